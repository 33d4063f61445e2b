package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/pkg/response"
)

// StatusFromError maps domain and application errors to HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrCapacity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, application.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the response envelope. Server-side failures are
// logged and their message is not exposed.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := StatusFromError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
		response.Error[any](c, status, http.StatusText(status), nil)
		return
	}

	var details any
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		details = map[string]string{verr.Field: verr.Message}
	}
	response.Error[any](c, status, err.Error(), details)
}
