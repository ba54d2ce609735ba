// Package oauth holds the narrow contract over the Codex OAuth token
// store. Token exchange and refresh live outside this core; we only ask
// for a currently-valid access token immediately before dispatch.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Credentials is a usable OAuth grant.
type Credentials struct {
	AccessToken string
	AccountID   string
}

// TokenSource yields fresh credentials. Implementations must be safe for
// concurrent use; Valid is called per outgoing request.
type TokenSource interface {
	Valid(ctx context.Context) (Credentials, error)
}

// ErrNotConnected indicates no OAuth grant is stored.
var ErrNotConnected = errors.New("oauth: not connected")

// FileTokenSource reads the persisted auth blob written by the external
// login flow.
type FileTokenSource struct {
	Path string
}

type authBlob struct {
	Tokens struct {
		AccessToken string `json:"access_token"`
		AccountID   string `json:"account_id"`
	} `json:"tokens"`
}

func (f *FileTokenSource) Valid(ctx context.Context) (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, ErrNotConnected
		}
		return Credentials{}, fmt.Errorf("oauth: read auth file: %w", err)
	}
	var blob authBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return Credentials{}, fmt.Errorf("oauth: parse auth file: %w", err)
	}
	if blob.Tokens.AccessToken == "" {
		return Credentials{}, ErrNotConnected
	}
	return Credentials{AccessToken: blob.Tokens.AccessToken, AccountID: blob.Tokens.AccountID}, nil
}

// StaticTokenSource returns fixed credentials. Used in tests and for
// short-lived tokens injected by the embedding application.
type StaticTokenSource struct {
	Credentials Credentials
}

func (s *StaticTokenSource) Valid(ctx context.Context) (Credentials, error) {
	if s.Credentials.AccessToken == "" {
		return Credentials{}, ErrNotConnected
	}
	return s.Credentials, nil
}
