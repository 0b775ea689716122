package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$")

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
	assert.False(t, VerifyPassword("correct horse", "plaintext"))

	again, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "every hash gets its own salt")
}

func TestHasherParametersTravelWithHash(t *testing.T) {
	cheap := Hasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hash, err := cheap.Hash("hunter2")
	require.NoError(t, err)
	assert.Contains(t, hash, "$m=1024,t=1,p=1$")

	decoded, salt, key, err := DecodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, cheap, decoded)
	assert.Len(t, salt, 8)
	assert.Len(t, key, 16)

	ok, err := Verify("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok, "verification uses the stored parameters, not DefaultHasher")
}

func TestDecodeHashRejects(t *testing.T) {
	cases := []string{
		"$bcrypt$v=19$m=1,t=1,p=1$AA$AA",
		"argon2id$v=19$m=1,t=1,p=1$AA$AA",
		"$argon2id$19$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=x$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1,p=0$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1,q=1$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1,p=1$!!$AAAA",
		"$argon2id$v=19$m=1,t=1,p=1$AAAA$",
	}
	for _, c := range cases {
		_, _, _, err := DecodeHash(c)
		assert.ErrorIs(t, err, ErrInvalidHash, c)
	}

	_, _, _, err := DecodeHash("$argon2id$v=16$m=1,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}
