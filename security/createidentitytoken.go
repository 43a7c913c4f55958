package security

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the claim set carried for an authenticated worker.
type Identity struct {
	ID       int32  `json:"nameid"`
	Username string `json:"unique_name"`
	FullName string `json:"name"`
	Role     string `json:"role"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

// CreateIdentityToken mints an HS256 token for a verified worker. The secret
// is base64-encoded in configuration.
func CreateIdentityToken(identity *Identity, base64Secret string, expiresInSeconds int64) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", err
	}
	claims := IdentityClaims{
		Identity: *identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "timetrack",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiresInSeconds) * time.Second)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secretBytes)
}
