package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models/dto"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/middleware"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/filestorage"
)

// DocumentSigner issues links to stored documents
type DocumentSigner interface {
	SignDocumentURL(ctx context.Context, id models.DocumentID) (*filestorage.SignedURL, error)
}

// DocumentController handles document access
type DocumentController struct {
	signer DocumentSigner
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(signer DocumentSigner) *DocumentController {
	return &DocumentController{signer: signer}
}

// GetSignedURL returns a time-limited link to a document
// @Summary Get a signed document URL
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.APIResponse{data=filestorage.SignedURL} "Signed URL issued"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Failure 503 {object} dto.ErrorResponse "Storage not configured"
// @Router /documents/{id}/signed-url [get]
func (c *DocumentController) GetSignedURL(ctx *gin.Context) {
	signed, err := c.signer.SignDocumentURL(ctx.Request.Context(), models.DocumentID(ctx.Param("id")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(signed, ""))
}
