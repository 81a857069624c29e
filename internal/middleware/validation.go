package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models/dto"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/validation"
)

var registerRules sync.Once

// RegisterValidationRules installs the document format tags (uf, cep, cpf) on
// gin's validator. Safe to call more than once.
func RegisterValidationRules() {
	registerRules.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := validation.Register(v); err != nil {
			logger.Error().Err(err).Msg("Failed to register validation rules")
		}
	})
}

// BindJSON decodes and validates the request body into a new T. On failure the
// 400 response is already written and ok is false.
func BindJSON[T any](c *gin.Context) (*T, bool) {
	RegisterValidationRules()
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return nil, false
	}
	return &req, true
}

// BindQuery is BindJSON for query string parameters
func BindQuery[T any](c *gin.Context) (*T, bool) {
	RegisterValidationRules()
	var req T
	if err := c.ShouldBindQuery(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return nil, false
	}
	return &req, true
}
