package services

import (
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/services/dto"
)

// messageView собирает представление сообщения с уже разрешенным
// отправителем
func messageView(message *support.Message, sender models.Identity) dto.MessageView {
	return dto.MessageView{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		SenderType:     message.SenderType,
		Sender:         sender,
		Body:           message.Body,
		Read:           message.Read,
		ReadAt:         message.ReadAt,
		CreatedAt:      message.CreatedAt,
	}
}
