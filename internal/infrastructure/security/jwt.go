package security

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

type TokenManager struct {
	accessSecret []byte
}

func NewTokenManager(accessSecret string) *TokenManager {
	return &TokenManager{accessSecret: []byte(accessSecret)}
}

// ValidateAccessToken проверяет access-токен, выданный auth-service,
// и возвращает ID пользователя из claim "sub".
func (m *TokenManager) ValidateAccessToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.accessSecret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token")
		}
		return sub, nil
	}
	return "", errors.New("invalid token")
}
