package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/filestorage"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/metrics"
)

// MaxDocumentsPerSet caps a document listing
const MaxDocumentsPerSet = 100

// Locator strategies, in the order they are tried
const (
	StrategyStudent    = "student"
	StrategyEnrollment = "enrollment"
	StrategyDirect     = "direct"
)

// DocumentResult is the outcome of locating the documents of a student.
// Linked with no documents means the set exists but is empty.
type DocumentResult struct {
	Linked    bool                     `json:"linked"`
	Key       models.DocumentSetKey    `json:"documentSetKey,omitempty"`
	Strategy  string                   `json:"strategy,omitempty"`
	Documents []*models.DocumentRecord `json:"documents"`
}

// DocumentService finds the uploaded documents of a student
type DocumentService struct {
	repos   *repositories.Repositories
	signer  filestorage.URLSigner
	metrics *metrics.Metrics
}

// NewDocumentService creates a new document service instance. m may be nil.
func NewDocumentService(repos *repositories.Repositories, signer filestorage.URLSigner, m *metrics.Metrics) *DocumentService {
	return &DocumentService{repos: repos, signer: signer, metrics: m}
}

type locatorStrategy struct {
	name    string
	resolve func(ctx context.Context, ref string) (models.DocumentSetKey, error)
}

func (s *DocumentService) strategies() []locatorStrategy {
	return []locatorStrategy{
		{StrategyStudent, s.keyFromStudent},
		{StrategyEnrollment, s.keyFromLatestEnrollment},
		{StrategyDirect, s.keyFromReference},
	}
}

// ResolveDocuments maps a student reference to its document set and lists it.
// When no strategy yields a key the result is unlinked and the error wraps
// apperrors.ErrNoLinkage. Transient store failures abort the chain.
func (s *DocumentService) ResolveDocuments(ctx context.Context, reference string) (*DocumentResult, error) {
	if reference == "" {
		return nil, apperrors.ErrInvalidStudentID
	}

	for _, strategy := range s.strategies() {
		key, err := strategy.resolve(ctx, reference)
		if err != nil {
			if apperrors.IsRetryable(err) {
				return nil, err
			}
			logger.Debug().Err(err).Str("reference", reference).Str("strategy", strategy.name).Msg("Document locator strategy failed")
			continue
		}
		if key == "" {
			continue
		}

		docs, err := s.listDocuments(ctx, key)
		if err != nil {
			return nil, err
		}
		s.observe(strategy.name)
		logger.Debug().Str("reference", reference).Str("strategy", strategy.name).Str("documentSetKey", key.String()).Int("documents", len(docs)).Msg("Documents located")
		return &DocumentResult{Linked: true, Key: key, Strategy: strategy.name, Documents: docs}, nil
	}

	s.observe("")
	logger.Warn().Str("reference", reference).Msg("No enrollment linked to student")
	return &DocumentResult{Documents: []*models.DocumentRecord{}}, fmt.Errorf("%w: %s", apperrors.ErrNoLinkage, reference)
}

// keyFromStudent treats the reference as a student identity
func (s *DocumentService) keyFromStudent(ctx context.Context, ref string) (models.DocumentSetKey, error) {
	student, err := s.repos.Students.GetOne(ctx, ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return "", fmt.Errorf("%w: %s", apperrors.ErrStudentNotFound, ref)
		}
		return "", err
	}
	return student.EnrollmentID.DocumentSetKey(), nil
}

// keyFromLatestEnrollment uses the most recent enrollment linked to the reference
func (s *DocumentService) keyFromLatestEnrollment(ctx context.Context, ref string) (models.DocumentSetKey, error) {
	rows, err := s.repos.Enrollments.GetList(ctx, repositories.ListQuery{
		Filter:  squirrel.Eq{"student_id": ref},
		Page:    1,
		PerPage: 1,
		Sort:    []repositories.SortField{{Field: "created_at", Desc: true}},
	})
	if err != nil || len(rows) == 0 {
		return "", err
	}
	return rows[0].ID.DocumentSetKey(), nil
}

// keyFromReference accepts the reference itself for records that were keyed by
// enrollment id, provided something actually exists under it.
func (s *DocumentService) keyFromReference(ctx context.Context, ref string) (models.DocumentSetKey, error) {
	_, err := s.repos.Enrollments.GetOne(ctx, ref)
	if err == nil {
		return models.DocumentSetKey(ref), nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return "", err
	}

	n, err := s.repos.Documents.Count(ctx, repositories.ListQuery{Filter: squirrel.Eq{"enrollment_id": ref}})
	if err != nil || n == 0 {
		return "", err
	}
	return models.DocumentSetKey(ref), nil
}

func (s *DocumentService) listDocuments(ctx context.Context, key models.DocumentSetKey) ([]*models.DocumentRecord, error) {
	docs, err := s.repos.Documents.GetList(ctx, repositories.ListQuery{
		Filter:  squirrel.Eq{"enrollment_id": key},
		Page:    1,
		PerPage: MaxDocumentsPerSet,
		Sort:    []repositories.SortField{{Field: "uploaded_at", Desc: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// SignDocumentURL issues a time-limited link to a stored document
func (s *DocumentService) SignDocumentURL(ctx context.Context, id models.DocumentID) (*filestorage.SignedURL, error) {
	doc, err := s.repos.Documents.GetOne(ctx, id.String())
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	if s.signer == nil {
		return nil, apperrors.NewCustomError(apperrors.ErrStoreUnavailable, "document storage is not configured")
	}

	signed, err := s.signer.SignURL(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, filestorage.ErrInvalidPath) {
			return nil, apperrors.NewFieldError("document", "storage_path", err.Error())
		}
		return nil, err
	}
	return signed, nil
}

func (s *DocumentService) observe(strategy string) {
	if s.metrics != nil {
		s.metrics.ObserveDocumentLookup(strategy)
	}
}
