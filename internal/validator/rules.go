package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"helpdesk_backend/internal/models"
)

// registerCustomRules регистрирует кастомные правила валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Ошибка времени запуска: без правил приложение не стартует
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'is-conversation-status': проверяет статус диалога
	mustRegister("is-conversation-status", validateConversationStatus)
}

func validateConversationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустые значения покрывает 'required'
	}
	return models.ValidConversationStatus(models.ConversationStatus(value))
}
