package security

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestCreateAndParse(t *testing.T) {
	token, err := CreateIdentityToken(&Operator{Id: 7, UserName: "kiosk-1", Provider: "device", Email: "ops@example.com"}, testSecret, time.Hour)
	require.NoError(t, err)

	secret, _ := DecodeSecret(testSecret)
	claims, err := ParseIdentityToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.Identity.ID)
	assert.Equal(t, "kiosk-1", claims.UniqueName)
	assert.Equal(t, "device", claims.Provider)
	assert.NotEmpty(t, claims.SID)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestParseRejects(t *testing.T) {
	secret, _ := DecodeSecret(testSecret)

	expired, err := CreateIdentityToken(&Operator{Id: 1}, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseIdentityToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := base64.StdEncoding.EncodeToString([]byte("another-secret"))
	forged, err := CreateIdentityToken(&Operator{Id: 1}, other, time.Hour)
	require.NoError(t, err)
	_, err = ParseIdentityToken(forged, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString(secret)
	require.NoError(t, err)
	_, err = ParseIdentityToken(signed, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = ParseIdentityToken("not.a.token", secret)
	assert.Error(t, err)
}

func TestDecodeSecret(t *testing.T) {
	_, err := DecodeSecret("%%%")
	assert.Error(t, err)
	_, err = DecodeSecret("")
	assert.Error(t, err)
}
