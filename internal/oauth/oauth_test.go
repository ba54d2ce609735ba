package oauth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenSourceReadsAuthBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	blob := `{"tokens": {"access_token": "at-1", "account_id": "acct-1"}}`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o600))

	src := &FileTokenSource{Path: path}
	creds, err := src.Valid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", creds.AccessToken)
	assert.Equal(t, "acct-1", creds.AccountID)
}

func TestFileTokenSourceMissingFile(t *testing.T) {
	src := &FileTokenSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	_, err := src.Valid(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestFileTokenSourceEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tokens": {"access_token": ""}}`), 0o600))

	src := &FileTokenSource{Path: path}
	_, err := src.Valid(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestFileTokenSourceMalformedBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	src := &FileTokenSource{Path: path}
	_, err := src.Valid(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConnected)
}

func TestStaticTokenSource(t *testing.T) {
	src := &StaticTokenSource{Credentials: Credentials{AccessToken: "at"}}
	creds, err := src.Valid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at", creds.AccessToken)

	_, err = (&StaticTokenSource{}).Valid(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}
