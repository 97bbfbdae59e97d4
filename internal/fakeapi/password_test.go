package fakeapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword_Hash_And_Compare(t *testing.T) {
	req := require.New(t)

	hash := hashPassword("secret1")

	req.NotContains(hash, "secret1")
	req.NotEqual(hash, hashPassword("secret1"))
	req.True(comparePassword("secret1", hash))
	req.False(comparePassword("secret2", hash))
	req.False(comparePassword("secret1", "not-a-hash"))
}
