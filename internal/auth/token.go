package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"helpdesk_backend/internal/config"
)

// Claims - полезная нагрузка токена оператора
type Claims struct {
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken выпускает JWT для оператора. Сам флоу аутентификации
// живет вне этого сервиса; токен здесь нужен сессиям и тестам.
func GenerateToken(operatorID, role string) (string, error) {
	cfg := config.GetConfig()

	claims := Claims{
		OperatorID: operatorID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.JWT.TTL) * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ParseToken проверяет подпись и срок токена и возвращает claims
func ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GetConfig().JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
