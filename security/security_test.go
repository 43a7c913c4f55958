package security

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-enough")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret-enough", hash)

	assert.True(t, CheckPassword(hash, "s3cret-enough"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret-enough"))
}

func TestCreateIdentityToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	base64Secret := base64.StdEncoding.EncodeToString(secret)

	identity := &Identity{ID: 7, Username: "ana", FullName: "Ana Silva", Role: "collaborator"}
	token, err := CreateIdentityToken(identity, base64Secret, 3600)
	assert.NoError(t, err)

	var claims IdentityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	assert.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, int32(7), claims.Identity.ID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "collaborator", claims.Role)
	assert.Equal(t, "timetrack", claims.Issuer)
}

func TestCreateIdentityTokenBadSecret(t *testing.T) {
	_, err := CreateIdentityToken(&Identity{ID: 1}, "%%% not base64 %%%", 60)
	assert.Error(t, err)
}
