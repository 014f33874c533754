package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	// Системные и неизвестные ошибки
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeBackendError  ErrorCode = "BACKEND_ERROR"
	CodeUnknownError  ErrorCode = "UNKNOWN_ERROR"

	// Общие ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Синхронизация инбокса
	CodeResolutionMiss ErrorCode = "RESOLUTION_MISS"
	CodeEmptyMessage   ErrorCode = "EMPTY_MESSAGE"
	CodeAlreadySending ErrorCode = "ALREADY_SENDING"
	CodeSendFailed     ErrorCode = "SEND_FAILED"
	CodeChannelDropped ErrorCode = "CHANNEL_DROPPED"
	CodeStaleResponse  ErrorCode = "STALE_RESPONSE"

	// Аутентификация и Авторизация (они сквозные)
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)
