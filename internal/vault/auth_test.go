package vault_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfolders/internal/testutil"
	"pfolders/internal/vault"
)

func TestParseAuthMode(t *testing.T) {
	mode, err := vault.ParseAuthMode("password")
	require.NoError(t, err)
	assert.Equal(t, vault.AuthModePassword, mode)

	mode, err = vault.ParseAuthMode("token")
	require.NoError(t, err)
	assert.Equal(t, vault.AuthModeToken, mode)

	_, err = vault.ParseAuthMode("kerberos")
	assert.Error(t, err)
}

func TestExchangeToken(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()

	token, err := vault.ExchangeToken(context.Background(), fake.URL(), fake.Username, fake.Password)
	require.NoError(t, err)
	assert.Equal(t, fake.Token, token)
}

func TestExchangeTokenBadCredentials(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()

	_, err := vault.ExchangeToken(context.Background(), fake.URL(), fake.Username, "wrong")
	require.Error(t, err)

	var authErr *vault.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "invalid_grant")
}

func TestExchangeTokenConnectionError(t *testing.T) {
	fake := testutil.NewFakeVault()
	url := fake.URL()
	fake.Close()

	_, err := vault.ExchangeToken(context.Background(), url, "u", "p")
	var authErr *vault.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.StatusCode)
}
