package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "segredo-de-teste"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestVerifier(t *testing.T) {
	v, err := NewVerifier(testSecret, "authenticated")
	assert.NoError(t, err)

	t.Run("token válido retorna as claims", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub":   "u1",
			"email": "a@example.com",
			"aud":   "authenticated",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		claims, err := v.Verify(tokenString)

		assert.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, "a@example.com", claims.Email)
	})

	t.Run("token expirado é rejeitado", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"sub":   "u1",
			"email": "a@example.com",
			"aud":   "authenticated",
			"exp":   time.Now().Add(-time.Hour).Unix(),
		})

		_, err := v.Verify(tokenString)

		assert.Error(t, err)
	})

	t.Run("token assinado com outro segredo é rejeitado", func(t *testing.T) {
		tokenString := signToken(t, "outro-segredo", jwt.MapClaims{
			"sub":   "u1",
			"email": "a@example.com",
			"aud":   "authenticated",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.Verify(tokenString)

		assert.Error(t, err)
	})

	t.Run("token sem sub é rejeitado", func(t *testing.T) {
		tokenString := signToken(t, testSecret, jwt.MapClaims{
			"email": "a@example.com",
			"aud":   "authenticated",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.Verify(tokenString)

		assert.Error(t, err)
	})

	t.Run("sem segredo configurado o construtor falha", func(t *testing.T) {
		_, err := NewVerifier("", "authenticated")
		assert.Error(t, err)
	})
}
