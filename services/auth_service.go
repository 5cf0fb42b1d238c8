package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthService выдает токены администратора. Пользовательских аккаунтов нет:
// единственный субъект — администратор турниров, его bcrypt-хеш пароля
// задается конфигурацией.
type AuthService interface {
	Login(ctx context.Context, password string) (string, error)
}

type authService struct {
	passwordHash []byte
	jwtSecret    []byte
	tokenTTL     time.Duration
}

func NewAuthService(passwordHash, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     tokenTTL,
	}
}

func (s *authService) Login(_ context.Context, password string) (string, error) {
	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to compare password hash: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
