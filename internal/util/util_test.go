package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"010-1234-5678", "01012345678"},
		{"010 1234 5678", "01012345678"},
		{"(010)1234.5678", "01012345678"},
		{"01012345678", "01012345678"},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("010-1234-5678"))
	assert.True(t, ValidPhone("02-1234-5678"))
	assert.False(t, ValidPhone("02-123-4567"))
	assert.False(t, ValidPhone("010-123"))
	assert.False(t, ValidPhone("010-1234-56789"))
	assert.False(t, ValidPhone(""))
}

func TestValidPIN(t *testing.T) {
	assert.True(t, ValidPIN("0000"))
	assert.True(t, ValidPIN("1234"))
	assert.False(t, ValidPIN("123"))
	assert.False(t, ValidPIN("12345"))
	assert.False(t, ValidPIN("12a4"))
	assert.False(t, ValidPIN("١٢٣٤"))
	assert.False(t, ValidPIN(""))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("kim@example.com"))
	assert.True(t, ValidEmail(" kim@example.co.kr "))
	assert.False(t, ValidEmail("kim@example"))
	assert.False(t, ValidEmail("kim example.com"))
	assert.False(t, ValidEmail("@example.com"))
}

func TestHashAndCheckPIN(t *testing.T) {
	hash, err := HashPIN("1234", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "1234", hash)
	assert.True(t, IsPINHash(hash))
	assert.True(t, CheckPIN("1234", hash))
	assert.False(t, CheckPIN("4321", hash))
	assert.False(t, CheckPIN("1234", ""))
	assert.False(t, IsPINHash("1234"))

	_, err = HashPIN("12", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(16)
	require.NoError(t, err)
	b, err := GenerateSecret(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestAdminToken(t *testing.T) {
	now := time.Now()
	token, err := GenerateAdminToken("secret", time.Hour, now)
	require.NoError(t, err)

	claims, err := ValidateAdminToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, claims.Subject)

	_, err = ValidateAdminToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateAdminToken(token, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateAdminToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminTokenExpired(t *testing.T) {
	token, err := GenerateAdminToken("secret", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ValidateAdminToken(token, "secret")
	assert.ErrorIs(t, err, ErrExpiredToken)
}
