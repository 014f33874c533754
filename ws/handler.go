package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/services"
)

// Сообщение клиенту: тип среза и его содержимое
type pushMessage struct {
	Type string `json:"type"` // conversations, timeline
	Data any    `json:"data"`
}

type Handler struct {
	manager *Manager
	inboxes *services.InboxManager
}

func NewHandler(manager *Manager, inboxes *services.InboxManager) *Handler {
	return &Handler{
		manager: manager,
		inboxes: inboxes,
	}
}

// ServeWS подключает операторский UI-клиент и подписывает его сессию
// на пуш срезов после каждой мутации
func (h *Handler) ServeWS(c *gin.Context) {
	operatorID := middleware.OperatorID(c)
	if operatorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator identity missing"})
		return
	}

	inbox, err := h.inboxes.Open(c.Request.Context(), operatorID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if _, err := ServeWS(h.manager, c.Writer, c.Request, operatorID); err != nil {
		return
	}

	inbox.SetOnChange(func(kind string) {
		h.manager.PushToOperator(operatorID, pushMessage{Type: "conversations", Data: inbox.Conversations()})
		if kind != "filter" {
			h.manager.PushToOperator(operatorID, pushMessage{Type: "timeline", Data: inbox.Timeline()})
		}
	})

	// Начальные срезы сразу после подключения
	h.manager.PushToOperator(operatorID, pushMessage{Type: "conversations", Data: inbox.Conversations()})
	h.manager.PushToOperator(operatorID, pushMessage{Type: "timeline", Data: inbox.Timeline()})
}
