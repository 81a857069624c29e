package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// IdentityService maps enrollments to their canonical student identity
type IdentityService struct {
	students repositories.Store[models.Student]
}

// NewIdentityService creates a new identity service instance
func NewIdentityService(students repositories.Store[models.Student]) *IdentityService {
	return &IdentityService{students: students}
}

// ResolveIdentity returns the student created for enrollmentID, creating it on
// first use. Calling it again, or concurrently, yields the same id.
func (s *IdentityService) ResolveIdentity(ctx context.Context, enrollmentID models.EnrollmentID) (models.StudentID, error) {
	if enrollmentID == "" {
		return "", apperrors.NewFieldError("enrollment", "id", "is required")
	}

	existing, err := s.find(ctx, enrollmentID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	student := &models.Student{ID: models.NewStudentID(), EnrollmentID: enrollmentID}
	err = s.students.Create(ctx, student)
	switch {
	case err == nil:
		logger.Info().Str("enrollmentID", enrollmentID.String()).Str("studentID", student.ID.String()).Msg("Student identity created")
		return student.ID, nil
	case errors.Is(err, apperrors.ErrResourceAlreadyExists):
		existing, findErr := s.find(ctx, enrollmentID)
		if findErr != nil {
			return "", findErr
		}
		if existing == nil {
			return "", apperrors.NewStoreUnavailableError("resolve identity", err)
		}
		return existing.ID, nil
	default:
		return "", fmt.Errorf("failed to create student identity: %w", err)
	}
}

func (s *IdentityService) find(ctx context.Context, enrollmentID models.EnrollmentID) (*models.Student, error) {
	rows, err := s.students.GetList(ctx, repositories.FirstByOwner("enrollment_id", enrollmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to look up student identity: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
