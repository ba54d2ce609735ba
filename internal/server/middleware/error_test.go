package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/pkg/api"
)

func performWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(err)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestResolveStatusMapping(t *testing.T) {
	cases := []struct {
		kind   domain.ResolveErrorKind
		status int
	}{
		{domain.KindInvalidModelString, http.StatusBadRequest},
		{domain.KindProviderNotSupported, http.StatusBadRequest},
		{domain.KindPolicyDenied, http.StatusForbidden},
		{domain.KindProviderDisabled, http.StatusForbidden},
		{domain.KindAPIKeyNotFound, http.StatusUnauthorized},
		{domain.KindOAuthNotConnected, http.StatusUnauthorized},
		{domain.KindUnknown, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			status, _ := resolveStatus(tc.kind)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestErrorHandlerResolveError(t *testing.T) {
	err := domain.NewResolveError(domain.KindAPIKeyNotFound, "anthropic",
		"API key not found for provider \"anthropic\"")

	w := performWithError(t, err)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "API Key Not Found", body["title"])
	assert.Equal(t, "api_key_not_found", body["kind"])
	assert.Equal(t, "anthropic", body["provider"])
}

func TestErrorHandlerProblemPassthrough(t *testing.T) {
	problem := api.NewError(http.StatusTooManyRequests, "Upstream Provider Error", "rate limited")

	w := performWithError(t, problem)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Upstream Provider Error", body["title"])
	assert.Equal(t, "rate limited", body["detail"])
}

func TestErrorHandlerUnknownError(t *testing.T) {
	w := performWithError(t, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body["title"])
}

func TestErrorHandlerNoErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
