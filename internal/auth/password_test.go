package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("S3curePassw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, "S3curePassw0rd", hash)

	assert.True(t, hasher.Compare(hash, "S3curePassw0rd"))
	assert.False(t, hasher.Compare(hash, "s3curepassw0rd"))
	assert.False(t, hasher.Compare(hash, ""))
}

func TestBcryptHasherSaltsEachHash(t *testing.T) {
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}

	a, err := hasher.Hash("same-input")
	require.NoError(t, err)
	b, err := hasher.Hash("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, hasher.Compare(a, "same-input"))
	assert.True(t, hasher.Compare(b, "same-input"))
}

func TestBcryptHasherEmptyHashNeverMatches(t *testing.T) {
	hasher := NewBcryptHasher()
	assert.False(t, hasher.Compare("", ""))
	assert.False(t, hasher.Compare("", "anything"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Fresh-Passw0rd"))

	for _, weak := range []string{"Sh0rt", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		assert.ErrorIs(t, ValidatePassword(weak), ErrWeakPassword, "password %q", weak)
	}
}

func TestHashStringIsStable(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
	assert.Len(t, HashString("abc"), 64)
}
