package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/pkg/api"
)

// resolveStatus maps the closed resolution error kinds onto HTTP
// statuses.
func resolveStatus(kind domain.ResolveErrorKind) (int, string) {
	switch kind {
	case domain.KindInvalidModelString:
		return http.StatusBadRequest, "Invalid Model String"
	case domain.KindProviderNotSupported:
		return http.StatusBadRequest, "Provider Not Supported"
	case domain.KindPolicyDenied:
		return http.StatusForbidden, "Denied By Policy"
	case domain.KindProviderDisabled:
		return http.StatusForbidden, "Provider Disabled"
	case domain.KindAPIKeyNotFound:
		return http.StatusUnauthorized, "API Key Not Found"
	case domain.KindOAuthNotConnected:
		return http.StatusUnauthorized, "Account Not Connected"
	default:
		return http.StatusInternalServerError, "Model Resolution Failed"
	}
}

// ErrorHandler serializes all handler errors as RFC 9457 problems.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("request failed", zap.Error(problem.Log))
			}
			// RFC 9457 dictates the json is at the root.
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		var resolveErr *domain.ResolveError
		if errors.As(err, &resolveErr) {
			status, title := resolveStatus(resolveErr.Kind)
			if status >= 500 {
				logger.Error("model resolution failed", zap.Error(resolveErr))
			}
			p := api.NewError(status, title, resolveErr.Message,
				api.WithExtension("kind", string(resolveErr.Kind)))
			if resolveErr.Provider != "" {
				p.Extensions["provider"] = resolveErr.Provider
			}
			c.JSON(status, p)
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
