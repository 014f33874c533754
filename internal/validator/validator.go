package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError - кастомный тип ошибки с картой "поле" -> "сообщение"
type ValidationError struct {
	Errors map[string]string
}

// Error реализует стандартный интерфейс error.
func (e *ValidationError) Error() string {
	var errMsgs []string
	for field, msg := range e.Errors {
		errMsgs = append(errMsgs, fmt.Sprintf("field '%s': %s", field, msg))
	}
	return "Validation failed: " + strings.Join(errMsgs, "; ")
}

// Validator - обертка над go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// New создает новый экземпляр Validator.
func New() *Validator {
	v := validator.New()

	// Используем JSON-теги в сообщениях об ошибках, чтобы клиент видел
	// имена полей так, как они определены в DTO
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomRules(v)

	return &Validator{
		validate: v,
	}
}

// Validate выполняет валидацию переданной структуры.
// Если есть ошибки, возвращает *ValidationError.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	customErrors := make(map[string]string)
	for _, fe := range validationErrors {
		// fe.Field() вернет имя из json-тега благодаря RegisterTagNameFunc
		customErrors[fe.Field()] = v.getErrorMessage(fe)
	}

	return &ValidationError{Errors: customErrors}
}

func (v *Validator) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("Must be at least %s items/characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.Replace(fe.Param(), " ", ", ", -1))
	case "is-conversation-status":
		return "Must be a valid conversation status"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s' tag)", fe.Tag())
	}
}
