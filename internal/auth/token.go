package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// GenerateToken signs an access token the middleware accepts. Customer tokens come from the
// external auth service; this is for staff dashboards and kiosks issued from the ops shell.
func GenerateToken(secret []byte, userID, role string, duration time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth: JWT_ACCESS_SECRET is not set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  now.Add(duration).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
