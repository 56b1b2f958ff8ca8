package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/models/dto"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
	"github.com/yigit/studentinfo/internal/pkg/logger"
)

// HandleAPIError writes the response for err, choosing the status from its error kind
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, dto.APIResponse{Error: detail})
}

func errorResponse(err error) (int, *dto.ErrorDetail) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge,
			dto.NewErrorDetail(dto.ErrorCodePayloadTooLarge, "Request body too large")
	}

	var ce *apperrors.CustomError
	hasCustom := errors.As(err, &ce)

	switch apperrors.Kind(err) {
	case apperrors.ErrValidationFailed:
		detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, messageOf(ce, "Validation failed"))
		if hasCustom {
			detail.WithField(ce.Field())
			if fields, ok := ce.Details["fields"]; ok {
				detail.WithDetails(fields)
			}
		}
		return http.StatusBadRequest, detail

	case apperrors.ErrConstraintViolation:
		detail := dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, messageOf(ce, "Resource already exists"))
		if hasCustom {
			detail.WithField(ce.Field())
		}
		return http.StatusConflict, detail

	case apperrors.ErrResourceNotFound:
		return http.StatusNotFound,
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, messageOf(ce, "Resource not found"))

	case apperrors.ErrTransactionFailure:
		return http.StatusServiceUnavailable,
			dto.NewErrorDetail(dto.ErrorCodeDatabaseError, "Database unavailable, please retry").
				WithSeverity(dto.ErrorSeverityCritical)

	case apperrors.ErrIOFailure:
		return http.StatusInternalServerError,
			dto.NewErrorDetail(dto.ErrorCodeStorageError, "Failed to store uploaded file").
				WithSeverity(dto.ErrorSeverityCritical)

	default:
		return http.StatusInternalServerError,
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}

func messageOf(ce *apperrors.CustomError, fallback string) string {
	if ce == nil || ce.Message == "" {
		return fallback
	}
	return ce.Message
}

// ErrorHandler reports the last error a handler attached with c.Error, if nothing was written yet
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		HandleAPIError(c, c.Errors.Last().Err)
	}
}
