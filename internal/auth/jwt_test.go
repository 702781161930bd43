package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTSignAndVerify(t *testing.T) {
	j := NewJWT("secret")

	token, err := j.Sign()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, j.Verify(token))
}

func TestJWTVerifyRejectsGarbage(t *testing.T) {
	j := NewJWT("secret")

	assert.Error(t, j.Verify(""))
	assert.Error(t, j.Verify("not.a.token"))
}

func TestJWTVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign()
	require.NoError(t, err)

	assert.Error(t, NewJWT("secret-b").Verify(token))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, ComparePassword(hash, "s3cret"))
	assert.False(t, ComparePassword(hash, "guess"))
	assert.False(t, ComparePassword("not-a-hash", "s3cret"))
}
