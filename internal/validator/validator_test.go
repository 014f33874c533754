package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk_backend/internal/services/dto"
)

func TestValidate_SendMessageRequest(t *testing.T) {
	t.Parallel()
	v := New()

	assert.NoError(t, v.Validate(dto.SendMessageRequest{Body: "привет"}))

	err := v.Validate(dto.SendMessageRequest{})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	// Имя поля берется из json-тега
	assert.Contains(t, vErr.Errors, "body")

	err = v.Validate(dto.SendMessageRequest{Body: strings.Repeat("х", 5001)})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors["body"], "5000")
}

func TestValidate_SetStatusRequest(t *testing.T) {
	t.Parallel()
	v := New()

	for _, status := range []string{"open", "pending", "closed"} {
		assert.NoError(t, v.Validate(dto.SetStatusRequest{Status: status}), status)
	}

	var vErr *ValidationError
	err := v.Validate(dto.SetStatusRequest{Status: "archived"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Must be a valid conversation status", vErr.Errors["status"])

	// Пустое значение ловит required, не кастомное правило
	err = v.Validate(dto.SetStatusRequest{})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "This field is required", vErr.Errors["status"])
}

func TestValidate_SelectConversationRequest(t *testing.T) {
	t.Parallel()
	v := New()

	assert.NoError(t, v.Validate(dto.SelectConversationRequest{
		ConversationID: "8c8f7a1e-0000-4000-8000-000000000001",
	}))

	var vErr *ValidationError
	err := v.Validate(dto.SelectConversationRequest{ConversationID: "not-a-uuid"})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors, "conversation_id")
}

func TestValidate_SetFilterRequest(t *testing.T) {
	t.Parallel()
	v := New()

	// Пустой статус допустим: фильтр не меняет статусную часть
	assert.NoError(t, v.Validate(dto.SetFilterRequest{Query: "анна"}))
	assert.NoError(t, v.Validate(dto.SetFilterRequest{Status: "all"}))
	assert.Error(t, v.Validate(dto.SetFilterRequest{Status: "whatever"}))
}
