package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndValidateJWT(t *testing.T) {
	token, err := BuildJWT("operator-uuid")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	uuid, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-uuid", uuid)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := BuildJWT("operator-uuid")
	require.NoError(t, err)

	SetSecret("rotated")
	defer SetSecret("supersecretkey")

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
