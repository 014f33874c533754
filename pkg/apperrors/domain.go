package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок
синхронизации инбокса.
*/

// BackendError - удаленное чтение/запись не удалось. Операция прервана,
// локальное состояние не тронуто.
func BackendError(err error, table string) *AppError {
	return Wrap(err, CodeBackendError, "store", "Remote store operation failed: "+table, http.StatusBadGateway)
}

// SendFailed - запись исходящего сообщения не удалась.
func SendFailed(err error) *AppError {
	return Wrap(err, CodeSendFailed, "send", "Message was not delivered", http.StatusBadGateway)
}

// ResolutionMiss - личность участника недоступна. Не фатальна,
// вызывающая сторона показывает плейсхолдер.
func ResolutionMiss(role, id string) *AppError {
	return New(CodeResolutionMiss, "resolver", "Identity not found: "+role+"/"+id, http.StatusNotFound)
}

// ChannelDropped - realtime-подписка потеряна. Локальное состояние
// остается доступным, но устаревает до следующего явного обновления.
func ChannelDropped(err error) *AppError {
	return Wrap(err, CodeChannelDropped, "realtime", "Change feed connection lost", http.StatusServiceUnavailable)
}

// ErrEmptyMessage - тело сообщения пустое после trim. Отклоняется до
// любого удаленного вызова.
var ErrEmptyMessage = New(
	CodeEmptyMessage,
	"send",
	"Message body is empty",
	http.StatusBadRequest,
)

// ErrAlreadySending - отправка уже выполняется, очереди отправок нет.
var ErrAlreadySending = New(
	CodeAlreadySending,
	"send",
	"Another send is already in flight",
	http.StatusConflict,
)

// ErrConversationNotFound - диалог не найден.
var ErrConversationNotFound = New(
	CodeNotFound,
	"inbox",
	"Conversation not found",
	http.StatusNotFound,
)

// ErrNoConversationSelected - операция требует выбранного диалога.
var ErrNoConversationSelected = New(
	CodeInvalidOperation,
	"inbox",
	"No conversation is selected",
	http.StatusBadRequest,
)

// ErrInvalidConversationStatus - недопустимый статус диалога.
var ErrInvalidConversationStatus = New(
	CodeInvalidStatus,
	"inbox",
	"Invalid conversation status",
	http.StatusBadRequest,
)

// ErrStaleResponse - ответ загрузки пришел после смены выбранного диалога
// и был отброшен.
var ErrStaleResponse = New(
	CodeStaleResponse,
	"inbox",
	"Load result discarded: selection changed",
	http.StatusConflict,
)

// ErrInvalidToken - неверный или просроченный токен.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// ErrNoOperator - в запросе нет личности оператора.
var ErrNoOperator = New(
	CodeUnauthorized,
	"auth",
	"Operator identity missing",
	http.StatusUnauthorized,
)
