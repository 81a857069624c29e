package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models/dto"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/services"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/middleware"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/helpers"
)

// AggregateEditor loads and saves the merged student view
type AggregateEditor interface {
	ListStudents(ctx context.Context, filter services.StudentListFilter) ([]*models.PersonalData, int64, error)
	LoadAggregate(ctx context.Context, seed models.SeedID) (*models.Aggregate, error)
	Save(ctx context.Context, agg, previous *models.Aggregate) error
}

// DocumentLocator finds the documents of a student
type DocumentLocator interface {
	ResolveDocuments(ctx context.Context, reference string) (*services.DocumentResult, error)
}

// StudentController handles the reviewer-facing student operations
type StudentController struct {
	aggregates AggregateEditor
	documents  DocumentLocator
}

// NewStudentController creates a new StudentController
func NewStudentController(aggregates AggregateEditor, documents DocumentLocator) *StudentController {
	return &StudentController{aggregates: aggregates, documents: documents}
}

// ListStudents returns a page of students
// @Summary List students
// @Description Lists personal records ordered by name. q matches name or CPF.
// @Tags students
// @Produce json
// @Param q query string false "Name or CPF fragment"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.StudentSummary}} "Students retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid query"
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	query, ok := middleware.BindQuery[dto.StudentListQuery](ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	rows, total, err := c.aggregates.ListStudents(ctx.Request.Context(), services.StudentListFilter{
		Page:  page,
		Size:  size,
		Query: query.Query,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	items := make([]dto.StudentSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.FromPersonalData(row))
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, ""))
}

// GetAggregate returns the editable view of a student
// @Summary Get student aggregate
// @Description The id may be a personal record id or a student id. Missing address or schooling data come back as empty objects.
// @Tags students
// @Produce json
// @Param id path string true "Personal record or student ID"
// @Success 200 {object} dto.APIResponse{data=models.Aggregate} "Aggregate retrieved"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/aggregate [get]
func (c *StudentController) GetAggregate(ctx *gin.Context) {
	agg, err := c.aggregates.LoadAggregate(ctx.Request.Context(), models.SeedID(ctx.Param("id")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(agg, ""))
}

// SaveAggregate writes an edited aggregate back
// @Summary Save student aggregate
// @Description Updates the personal record and writes address and schooling data when present. previousData limits the update to changed columns.
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "Personal record or student ID"
// @Param request body dto.SaveAggregateRequest true "Edited aggregate"
// @Success 200 {object} dto.APIResponse{data=models.Aggregate} "Aggregate saved"
// @Failure 400 {object} dto.ErrorResponse "Invalid aggregate"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/aggregate [put]
func (c *StudentController) SaveAggregate(ctx *gin.Context) {
	req, ok := middleware.BindJSON[dto.SaveAggregateRequest](ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	agg := req.Data
	if agg.ID == "" {
		agg.ID = models.PersonalDataID(id)
	}
	if string(agg.ID) != id && string(agg.OwnerID) != id {
		middleware.HandleAPIError(ctx, apperrors.NewFieldError("personal", "id", "does not match the requested student"))
		return
	}

	if err := c.aggregates.Save(ctx.Request.Context(), agg, req.PreviousData); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	saved, err := c.aggregates.LoadAggregate(ctx.Request.Context(), models.SeedID(agg.ID))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(saved, "Student data saved successfully"))
}

// GetDocuments lists the uploaded documents of a student
// @Summary List student documents
// @Description linked=false means no enrollment is associated with the student, which differs from an enrollment with no documents.
// @Tags students
// @Produce json
// @Param id path string true "Student, personal record or enrollment ID"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentsResponse} "Documents retrieved"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Router /students/{id}/documents [get]
func (c *StudentController) GetDocuments(ctx *gin.Context) {
	res, err := c.documents.ResolveDocuments(ctx.Request.Context(), ctx.Param("id"))
	if err != nil && !errors.Is(err, apperrors.ErrNoLinkage) {
		middleware.HandleAPIError(ctx, err)
		return
	}

	out := dto.DocumentsResponse{
		Linked:         res.Linked,
		DocumentSetKey: res.Key,
		Strategy:       res.Strategy,
		Documents:      make([]dto.DocumentResponse, 0, len(res.Documents)),
	}
	for _, d := range res.Documents {
		out.Documents = append(out.Documents, dto.FromDocumentRecord(d))
	}

	message := ""
	if !res.Linked {
		message = "No enrollment linked to this student"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out, message))
}
