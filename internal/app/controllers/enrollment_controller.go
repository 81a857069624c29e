package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models/dto"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/middleware"
)

// EnrollmentProcessor is the part of the reconciliation service the controller needs
type EnrollmentProcessor interface {
	Process(ctx context.Context, id models.EnrollmentID) (models.StudentID, error)
	GetEnrollment(ctx context.Context, id models.EnrollmentID) (*models.Enrollment, error)
}

// EnrollmentController handles enrollment intake operations
type EnrollmentController struct {
	reconciler EnrollmentProcessor
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(reconciler EnrollmentProcessor) *EnrollmentController {
	return &EnrollmentController{reconciler: reconciler}
}

// ProcessEnrollment reconciles a submitted enrollment into student records
// @Summary Process an enrollment
// @Description Creates or finds the student identity of the enrollment, links it and writes the personal, address and schooling records. Transient storage failures are retried before an error is returned.
// @Tags enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProcessEnrollmentResponse} "Enrollment processed"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload field"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable after retries"
// @Router /enrollments/{id}/process [post]
func (c *EnrollmentController) ProcessEnrollment(ctx *gin.Context) {
	id := models.EnrollmentID(ctx.Param("id"))

	studentID, err := c.reconciler.Process(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ProcessEnrollmentResponse{
		EnrollmentID: id,
		StudentID:    studentID,
	}, "Enrollment processed successfully"))
}

// GetEnrollment returns an enrollment with its raw payloads
// @Summary Get enrollment by ID
// @Tags enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment} "Enrollment retrieved"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Router /enrollments/{id} [get]
func (c *EnrollmentController) GetEnrollment(ctx *gin.Context) {
	enrollment, err := c.reconciler.GetEnrollment(ctx.Request.Context(), models.EnrollmentID(ctx.Param("id")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, ""))
}
