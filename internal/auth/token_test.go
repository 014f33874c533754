package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk_backend/internal/config"
)

func init() {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	config.AppConfig = cfg
}

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken("a1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.OperatorID)
	assert.Equal(t, "admin", claims.Role)
}

func TestToken_InvalidSignature(t *testing.T) {
	token, err := GenerateToken("a1", "admin")
	require.NoError(t, err)

	// Порча подписи
	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	_, err = ParseToken("not.a.token")
	assert.Error(t, err)
}
