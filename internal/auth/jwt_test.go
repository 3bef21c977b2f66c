package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateJWT тестирует создание JWT токена
func TestGenerateJWT(t *testing.T) {
	ti, err := NewTokenIssuer("", time.Hour)
	require.NoError(t, err)

	token, err := ti.Generate("admin", true)
	require.NoError(t, err, "Ошибка генерации JWT")
	assert.Equal(t, 2, strings.Count(token, "."), "Неверный формат JWT токена")
}

// TestValidateJWT тестирует валидацию JWT токена
func TestValidateJWT(t *testing.T) {
	ti, err := NewTokenIssuer("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)

	token, err := ti.Generate("operator", true)
	require.NoError(t, err)

	claims, err := ti.Validate(token)
	require.NoError(t, err, "Валидный токен определен как недействительный")
	assert.Equal(t, "operator", claims.Username)
	assert.True(t, claims.IsAdmin)
}

// TestValidateInvalidJWT тестирует валидацию недействительного JWT
func TestValidateInvalidJWT(t *testing.T) {
	ti, err := NewTokenIssuer("", time.Hour)
	require.NoError(t, err)

	testCases := []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}
	for _, invalidToken := range testCases {
		_, err := ti.Validate(invalidToken)
		assert.ErrorIs(t, err, ErrInvalidToken, "Недействительный токен '%s' прошел валидацию", invalidToken)
	}
}

// TestForeignSecretRejected токен другого секрета не принимается
func TestForeignSecretRejected(t *testing.T) {
	a, err := NewTokenIssuer("first-secret-0123456789", time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer("second-secret-0123456789", time.Hour)
	require.NoError(t, err)

	token, err := a.Generate("admin", true)
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestExpiredTokenRejected просроченный токен отклоняется
func TestExpiredTokenRejected(t *testing.T) {
	ti, err := NewTokenIssuer("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)
	ti.ttl = -time.Minute

	token, err := ti.Generate("admin", true)
	require.NoError(t, err)

	_, err = ti.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestShortSecretRejected(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	assert.Error(t, err)
}

// TestGenerateSecureSecret тестирует генерацию секретного ключа
func TestGenerateSecureSecret(t *testing.T) {
	secret1, err := GenerateSecureSecret()
	require.NoError(t, err)
	secret2, err := GenerateSecureSecret()
	require.NoError(t, err)

	assert.NotEqual(t, secret1, secret2, "Два последовательных вызова вернули одинаковый результат")
	assert.GreaterOrEqual(t, len(secret1), 40, "Секрет слишком короткий")
}
