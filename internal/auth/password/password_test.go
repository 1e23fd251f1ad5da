package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))
	assert.True(t, Verify("correct horse battery staple", encoded))
	assert.False(t, Verify("wrong password", encoded))
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("same password")
	require.NoError(t, err)
	second, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, Verify("same password", first))
	assert.True(t, Verify("same password", second))
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	assert.False(t, Verify("anything", ""))
	assert.False(t, Verify("anything", "$argon2id$v=19$m=65536,t=1,p=4$salt"))
	assert.False(t, Verify("anything", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"))
	assert.False(t, Verify("anything", "$argon2id$v=19$m=abc,t=1,p=4$c2FsdA$aGFzaA"))
	assert.False(t, Verify("anything", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"))
}
