package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("S3cure#Phrase")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "S3cure#Phrase", hash)

	assert.True(t, h.Verify("S3cure#Phrase", hash))
	assert.False(t, h.Verify("wrong-password", hash))

	// Hashing is salted: two hashes of the same input differ.
	hash2, err := h.Hash("S3cure#Phrase")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(4)

	assert.False(t, h.Verify("anything", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("anything", ""))
	assert.True(t, h.NeedsRehash("not-a-bcrypt-hash"))
	assert.True(t, h.NeedsRehash(""))
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	old := NewPasswordHasher(4)
	hash, err := old.Hash("S3cure#Phrase")
	require.NoError(t, err)

	assert.False(t, old.NeedsRehash(hash))
	assert.True(t, NewPasswordHasher(5).NeedsRehash(hash))
}

func TestNewPasswordHasher_InvalidCost(t *testing.T) {
	// Out-of-range costs fall back to the bcrypt default instead of
	// failing at hash time.
	h := NewPasswordHasher(99)
	hash, err := h.Hash("S3cure#Phrase")
	require.NoError(t, err)
	assert.True(t, h.Verify("S3cure#Phrase", hash))
}
