package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/middleware"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/services"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/internal/validator"
	"helpdesk_backend/pkg/apperrors"
)

type InboxHandler struct {
	manager  *services.InboxManager
	validate *validator.Validator
}

func NewInboxHandler(manager *services.InboxManager, validate *validator.Validator) *InboxHandler {
	return &InboxHandler{
		manager:  manager,
		validate: validate,
	}
}

// RegisterRoutes регистрирует маршруты инбокса
func (h *InboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inbox := rg.Group("/inbox")
	inbox.Use(middleware.AuthMiddleware(), middleware.RequireAdmin())
	{
		inbox.POST("/session", h.OpenSession)
		inbox.DELETE("/session", h.CloseSession)
		inbox.GET("/conversations", h.GetConversations)
		inbox.GET("/stats", h.GetStats)
		inbox.GET("/timeline", h.GetTimeline)
		inbox.POST("/select", h.SelectConversation)
		inbox.POST("/messages", h.SendMessage)
		inbox.PATCH("/status", h.SetStatus)
		inbox.PUT("/filter", h.SetFilter)
		inbox.POST("/refresh", h.Refresh)
	}
}

// session возвращает сессию оператора, открывая ее при необходимости
func (h *InboxHandler) session(c *gin.Context) (*services.Inbox, bool) {
	operatorID := middleware.OperatorID(c)
	if operatorID == "" {
		apperrors.Abort(c, apperrors.ErrNoOperator)
		return nil, false
	}

	inbox, err := h.manager.Open(c.Request.Context(), operatorID)
	if err != nil {
		apperrors.Abort(c, err)
		return nil, false
	}
	return inbox, true
}

func (h *InboxHandler) OpenSession(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, inbox.Conversations())
}

func (h *InboxHandler) CloseSession(c *gin.Context) {
	h.manager.Close(middleware.OperatorID(c))
	c.Status(http.StatusNoContent)
}

func (h *InboxHandler) GetConversations(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inbox.Conversations())
}

func (h *InboxHandler) GetStats(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inbox.Conversations().Stats)
}

func (h *InboxHandler) GetTimeline(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inbox.Timeline())
}

func (h *InboxHandler) SelectConversation(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.SelectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		apperrors.Respond(c, apperrors.ValidationError(err.Error()))
		return
	}

	if err := inbox.SelectConversation(c.Request.Context(), req.ConversationID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox.Timeline())
}

func (h *InboxHandler) SendMessage(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		apperrors.Respond(c, apperrors.ValidationError(err.Error()))
		return
	}

	view, err := inbox.Send(c.Request.Context(), req.Body)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *InboxHandler) SetStatus(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		apperrors.Respond(c, apperrors.ValidationError(err.Error()))
		return
	}

	if err := inbox.SetStatus(c.Request.Context(), models.ConversationStatus(req.Status)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox.Conversations())
}

func (h *InboxHandler) SetFilter(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.SetFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		apperrors.Respond(c, apperrors.ValidationError(err.Error()))
		return
	}

	inbox.SetFilter(dto.Filter{Status: req.Status, Query: req.Query})
	c.JSON(http.StatusOK, inbox.Conversations())
}

func (h *InboxHandler) Refresh(c *gin.Context) {
	inbox, ok := h.session(c)
	if !ok {
		return
	}

	if err := inbox.Refresh(c.Request.Context()); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, inbox.Conversations())
}
