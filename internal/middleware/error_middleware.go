package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models/dto"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorDetailFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Str("method", c.Request.Method).Msg("Request failed")
	}
	_ = c.Error(err)
	c.JSON(status, dto.NewErrorResponse(detail))
}

func errorDetailFor(err error) (int, *dto.ErrorDetail) {
	var fieldErr *apperrors.FieldError

	switch {
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, fieldErr.Error()).WithField(fieldErr.Field)
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error())
	case errors.Is(err, apperrors.ErrEnrollmentNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeEnrollmentNotFound, "Enrollment not found")
	case apperrors.Is(err, apperrors.ErrPersonalDataNotFound, apperrors.ErrStudentNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeStudentNotFound, "Student not found")
	case errors.Is(err, apperrors.ErrDocumentNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeDocumentNotFound, "Document not found")
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrNoLinkage):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error()).WithSeverity(dto.ErrorSeverityWarning)
	case errors.Is(err, apperrors.ErrResourceAlreadyExists):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Resource already exists")
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeStoreUnavailable, "Storage temporarily unavailable, try again later")
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
