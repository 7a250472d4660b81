package api

import (
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/service"
	"errors"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to a status code. Unexpected errors are
// logged, reported to Sentry and answered with fallback.
func respondError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	var conflict *service.CategoryConflictError
	switch {
	case errors.As(err, &conflict):
		abortWithError(c, http.StatusBadRequest, conflict.Error())
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrInjuryTypeNotFound),
		errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAssignmentAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrCategoryExists),
		errors.Is(err, service.ErrVariantExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error(fallback, "path", c.FullPath(), "request_id", c.GetString(ContextRequestIDKey), "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}

// validationMessage strips the "validation failed: " prefix.
func validationMessage(err error) string {
	msg := err.Error()
	if detail := strings.TrimPrefix(msg, service.ErrValidation.Error()+": "); detail != "" {
		return detail
	}
	return msg
}
