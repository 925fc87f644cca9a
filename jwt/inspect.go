package jwt

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for tokens that are not JWTs.
var ErrNotJWT = errors.New("token is not a JWT")

// Inspect decodes the payload of tokenStr without verifying its signature.
// The result is for display only and must not drive authorization.
func Inspect(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}
