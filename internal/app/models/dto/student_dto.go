package dto

import (
	"time"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
)

// ProcessEnrollmentResponse is returned once an enrollment has been reconciled
type ProcessEnrollmentResponse struct {
	EnrollmentID models.EnrollmentID `json:"enrollmentId" example:"0b5c1f9e-3f0c-4a53-9c55-0a3f7f1d2a10"`
	StudentID    models.StudentID    `json:"studentId" example:"6f2b7a44-5d7e-4bb8-b0a1-92d1f4d8c3e1"`
}

// StudentListQuery holds the free-text filter of the student listing
type StudentListQuery struct {
	Query string `form:"q" binding:"max=100"`
}

// StudentSummary is one row of the student listing
type StudentSummary struct {
	ID             models.PersonalDataID `json:"id"`
	StudentID      *models.StudentID     `json:"studentId,omitempty"`
	NomeCompleto   *string               `json:"nomeCompleto,omitempty"`
	CPF            *string               `json:"cpf,omitempty"`
	DataNascimento *string               `json:"dataNascimento,omitempty"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// FromPersonalData converts a personal record into a listing row
func FromPersonalData(p *models.PersonalData) StudentSummary {
	return StudentSummary{
		ID:             p.ID,
		StudentID:      p.StudentID,
		NomeCompleto:   p.NomeCompleto,
		CPF:            p.CPF,
		DataNascimento: p.DataNascimento,
		UpdatedAt:      p.UpdatedAt,
	}
}

// SaveAggregateRequest carries an edited aggregate and the version it was loaded as.
// PreviousData lets the server write only the columns that changed.
type SaveAggregateRequest struct {
	Data         *models.Aggregate `json:"data" binding:"required"`
	PreviousData *models.Aggregate `json:"previousData,omitempty" binding:"-"`
}

// DocumentResponse is one uploaded document as shown to reviewers
type DocumentResponse struct {
	ID           models.DocumentID   `json:"id"`
	FileName     string              `json:"fileName"`
	DocumentType models.DocumentType `json:"documentType"`
	Status       *string             `json:"status,omitempty"`
	FileSize     *int64              `json:"fileSize,omitempty"`
	UploadedAt   time.Time           `json:"uploadedAt"`
}

// FromDocumentRecord converts a stored document row
func FromDocumentRecord(d *models.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		FileName:     d.FileName,
		DocumentType: d.DocumentType,
		Status:       d.Status,
		FileSize:     d.FileSize,
		UploadedAt:   d.UploadedAt,
	}
}

// DocumentsResponse lists the documents of a student. Linked=false means no
// enrollment could be found for the student, which is not the same as an
// empty document set.
type DocumentsResponse struct {
	Linked         bool                  `json:"linked"`
	DocumentSetKey models.DocumentSetKey `json:"documentSetKey,omitempty"`
	Strategy       string                `json:"strategy,omitempty"`
	Documents      []DocumentResponse    `json:"documents"`
}
