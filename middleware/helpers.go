package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

const jwtClaimRole = "role"

// GetRoleFromContext достает роль из claims, положенных Authenticate.
func GetRoleFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}
	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing %q claim in token", jwtClaimRole)
	}
	role, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for %q claim: expected string, got %T", jwtClaimRole, roleClaim)
	}
	return role, nil
}
