package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/orbitsim/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// IssueToken signs an HS256 session token for an operator
func IssueToken(cfg *config.Config, operator string, roles []string) (string, time.Time, error) {
	timeout := cfg.SessionTimeoutMin
	if timeout <= 0 {
		timeout = 60
	}
	exp := time.Now().Add(time.Duration(timeout) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   operator,
		"roles": roles,
		"exp":   jwt.NewNumericDate(exp).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates a session token and returns the operator name
func ParseToken(cfg *config.Config, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
