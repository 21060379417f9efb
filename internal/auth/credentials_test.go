package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
)

func TestAdminCredentialsAuthenticate(t *testing.T) {
	hash, hashErr := auth.HashPassword("mooncake-2026")
	require.NoError(t, hashErr)
	credentials := auth.AdminCredentials{Username: testAdminUsername, PasswordHash: hash}
	require.True(t, credentials.Enabled())

	require.NoError(t, credentials.Authenticate(" committee ", "mooncake-2026"))
	require.ErrorIs(t, credentials.Authenticate(testAdminUsername, "wrong"), auth.ErrInvalidCredentials)
	require.ErrorIs(t, credentials.Authenticate("intruder", "mooncake-2026"), auth.ErrInvalidCredentials)
}

func TestAdminCredentialsDisabledWithoutHash(t *testing.T) {
	credentials := auth.AdminCredentials{Username: testAdminUsername}
	require.False(t, credentials.Enabled())
	require.ErrorIs(t, credentials.Authenticate(testAdminUsername, "anything"), auth.ErrLoginDisabled)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	require.ErrorIs(t, err, auth.ErrEmptyPassword)
}
