package apperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Respond отдает AppError клиенту в едином JSON-формате.
// Неизвестные ошибки маскируются как 500, детали остаются в логах.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !As(err, &appErr) {
		appErr = InternalError(err)
	}

	httpCode := appErr.HTTPCode
	if httpCode == 0 {
		httpCode = http.StatusInternalServerError
	}

	c.JSON(httpCode, gin.H{"error": appErr})
}

// Abort прерывает обработку запроса с AppError.
func Abort(c *gin.Context, err error) {
	Respond(c, err)
	c.Abort()
}
