package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHMAC(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func signECDSA(t *testing.T, key *ecdsa.PrivateKey, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func pemEncodePublicKey(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func testClaims(subject, email string) *Claims {
	return &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateJWTWithHMAC(t *testing.T) {
	signed := signHMAC(t, "topsecret", testClaims("acc-1", "a@b.test"))

	claims, err := ValidateJWT(signed, "topsecret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "a@b.test", claims.Email)

	_, err = ValidateJWT(signed, "wrongsecret")
	assert.Error(t, err)
}

func TestValidateJWTWithECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signed := signECDSA(t, key, testClaims("acc-2", "c@d.test"))

	claims, err := ValidateJWT(signed, pemEncodePublicKey(t, key))
	require.NoError(t, err)
	assert.Equal(t, "acc-2", claims.Subject)
	assert.Equal(t, "c@d.test", claims.Email)

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, err = ValidateJWT(signed, pemEncodePublicKey(t, other))
	assert.Error(t, err)
}

func TestValidateJWTRejectsBadECDSAKeyMaterial(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signed := signECDSA(t, key, testClaims("acc-3", "e@f.test"))

	_, err = ValidateJWT(signed, "not a pem block")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECDSA")
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	claims := testClaims("acc-4", "g@h.test")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	signed := signHMAC(t, "topsecret", claims)

	_, err := ValidateJWT(signed, "topsecret")
	assert.Error(t, err)
}
