package tracker_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	tracker "github.com/goliatone/go-tracker"
)

func TestNewConfirmationCode(t *testing.T) {
	a, err := tracker.NewConfirmationCode()
	require.NoError(t, err)
	b, err := tracker.NewConfirmationCode()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestHashSecret(t *testing.T) {
	hash, err := tracker.HashSecret("secret-code", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret-code", hash)

	other, err := tracker.HashSecret("secret-code", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes are salted")

	_, err = tracker.HashSecret("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestCompareSecretAndHash(t *testing.T) {
	hash, err := tracker.HashSecret("secret-code", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, tracker.CompareSecretAndHash("secret-code", hash))

	err = tracker.CompareSecretAndHash("wrong-code", hash)
	assert.True(t, tracker.IsError(err, tracker.ErrInvalidConfirmationCode))
	assert.Equal(t, 400, tracker.StatusCode(err))

	err = tracker.CompareSecretAndHash("secret-code", "")
	assert.True(t, tracker.IsError(err, tracker.ErrInvalidConfirmationCode))
}
