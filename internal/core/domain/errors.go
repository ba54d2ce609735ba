package domain

import (
	"errors"
	"fmt"
)

// ResolveErrorKind is the closed taxonomy of model-resolution failures.
// Every rejection path in the factory maps to exactly one kind so callers
// can branch without string matching.
type ResolveErrorKind string

const (
	KindInvalidModelString   ResolveErrorKind = "invalid_model_string"
	KindProviderNotSupported ResolveErrorKind = "provider_not_supported"
	KindPolicyDenied         ResolveErrorKind = "policy_denied"
	KindProviderDisabled     ResolveErrorKind = "provider_disabled"
	KindAPIKeyNotFound       ResolveErrorKind = "api_key_not_found"
	KindOAuthNotConnected    ResolveErrorKind = "oauth_not_connected"
	KindUnknown              ResolveErrorKind = "unknown"
)

// ResolveError is the typed error returned by the model factory.
type ResolveError struct {
	Kind     ResolveErrorKind
	Provider string
	Model    string
	Message  string
	Err      error
}

func (e *ResolveError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: provider %q: %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// NewResolveError builds a typed resolution error.
func NewResolveError(kind ResolveErrorKind, provider, msg string) *ResolveError {
	return &ResolveError{Kind: kind, Provider: provider, Message: msg}
}

// WrapUnknown converts an unexpected internal error into the catch-all
// kind, carrying the original message. Typed errors pass through as-is.
func WrapUnknown(provider string, err error) *ResolveError {
	if err == nil {
		return nil
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return re
	}
	return &ResolveError{Kind: KindUnknown, Provider: provider, Message: err.Error(), Err: err}
}

// KindOf returns the resolution kind of err, or KindUnknown when err is
// not a ResolveError.
func KindOf(err error) ResolveErrorKind {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}
