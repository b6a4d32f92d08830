package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashIsSalted(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("password123")
	require.NoError(t, err)
	second, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", first)
	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("password123", first))
	assert.True(t, h.Verify("password123", second))
}

func TestBcryptHasher_Verify(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("password")
	require.NoError(t, err)

	tests := []struct {
		name  string
		plain string
		hash  string
		want  bool
	}{
		{"match", "password", hash, true},
		{"wrong password", "wrong", hash, false},
		{"malformed hash", "password", "HASHED_PASSWORD", false},
		{"empty hash", "password", "", false},
		{"truncated hash", "password", hash[:20], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.plain, tt.hash))
		})
	}
}

func TestBcryptHasher_Hash_Empty(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestBcryptHasher_Hash_TooLong(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("p", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(strings.Repeat("p", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	t.Parallel()
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost())
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).Cost())
}

func TestBcryptHasher_DummyVerify(t *testing.T) {
	t.Parallel()
	h := NewBcryptHasher(bcrypt.MinCost)
	assert.NotPanics(t, func() { h.DummyVerify("anything") })
}
