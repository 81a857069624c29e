package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/metrics"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/retry"
)

// ReconciliationService turns a submitted enrollment into canonical student records.
//
// Every step is idempotent, so a failed attempt is simply replayed from the
// start: the identity is found instead of created, the back-reference is
// already set, and each entity row is updated in place.
type ReconciliationService struct {
	enrollments repositories.Store[models.Enrollment]
	identity    *IdentityService
	upserter    *EntityUpserter
	policy      retry.Policy
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewReconciliationService creates a new reconciliation service. m may be nil.
func NewReconciliationService(
	repos *repositories.Repositories,
	identity *IdentityService,
	upserter *EntityUpserter,
	policy retry.Policy,
	m *metrics.Metrics,
) *ReconciliationService {
	return &ReconciliationService{
		enrollments: repos.Enrollments,
		identity:    identity,
		upserter:    upserter,
		policy:      policy,
		metrics:     m,
		log:         logger.Component("reconciliation"),
	}
}

// Process reconciles one enrollment, retrying transient store failures
// according to the policy. It returns the student identity of the enrollment.
func (s *ReconciliationService) Process(ctx context.Context, enrollmentID models.EnrollmentID) (models.StudentID, error) {
	start := time.Now()
	log := s.log.With().Str("enrollmentID", enrollmentID.String()).Logger()

	policy := s.policy
	policy.OnBackoff = func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Reconciliation attempt failed, backing off")
	}

	var studentID models.StudentID
	exhausted := false
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		sid, err := s.attempt(ctx, enrollmentID)
		if s.metrics != nil {
			s.metrics.ObserveAttempt(err)
		}
		if err != nil {
			exhausted = attempt == policy.MaxAttempts
			return err
		}
		studentID = sid
		return nil
	})

	if err != nil {
		outcome := metrics.OutcomeFailed
		if exhausted && apperrors.IsRetryable(err) {
			outcome = metrics.OutcomeExhausted
		}
		if s.metrics != nil {
			s.metrics.ObserveRun(outcome, start)
		}
		log.Error().Err(err).Str("outcome", outcome).Dur("elapsed", time.Since(start)).Msg("Reconciliation failed")
		return "", err
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(metrics.OutcomeSuccess, start)
	}
	log.Info().Str("studentID", studentID.String()).Dur("elapsed", time.Since(start)).Msg("Enrollment reconciled")
	return studentID, nil
}

// GetEnrollment returns the enrollment as stored, including its back-reference
func (s *ReconciliationService) GetEnrollment(ctx context.Context, enrollmentID models.EnrollmentID) (*models.Enrollment, error) {
	if enrollmentID == "" {
		return nil, apperrors.NewFieldError("enrollment", "id", "is required")
	}
	enrollment, err := s.enrollments.GetOne(ctx, enrollmentID.String())
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrEnrollmentNotFound, enrollmentID)
		}
		return nil, err
	}
	return enrollment, nil
}

// attempt runs the pipeline once. After the identity is resolved, the
// back-reference and the three entity writes are all attempted and their
// errors joined.
func (s *ReconciliationService) attempt(ctx context.Context, enrollmentID models.EnrollmentID) (models.StudentID, error) {
	enrollment, err := s.enrollments.GetOne(ctx, enrollmentID.String())
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return "", fmt.Errorf("%w: %s", apperrors.ErrEnrollmentNotFound, enrollmentID)
		}
		return "", err
	}

	studentID, err := s.identity.ResolveIdentity(ctx, enrollmentID)
	if err != nil {
		return "", err
	}

	var errs []error
	if err := s.link(ctx, enrollment, studentID); err != nil {
		errs = append(errs, err)
	}
	for _, kind := range models.EntityKinds {
		if err := s.writeEntity(ctx, enrollment, kind, studentID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return studentID, errors.Join(errs...)
}

// link sets the enrollment back-reference unless it already points at studentID
func (s *ReconciliationService) link(ctx context.Context, enrollment *models.Enrollment, studentID models.StudentID) error {
	if enrollment.IsLinkedTo(studentID) {
		return nil
	}
	next := *enrollment
	next.StudentID = &studentID
	if err := s.enrollments.Update(ctx, enrollment.ID.String(), &next, enrollment); err != nil {
		return fmt.Errorf("failed to link enrollment to student: %w", err)
	}
	s.log.Debug().Str("enrollmentID", enrollment.ID.String()).Str("studentID", studentID.String()).Msg("Enrollment linked")
	return nil
}

func (s *ReconciliationService) writeEntity(ctx context.Context, enrollment *models.Enrollment, kind models.EntityKind, studentID models.StudentID) error {
	payload, err := DecodePayload(kind, enrollment.Payload(kind))
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}

	typed, err := Remap(kind, payload)
	if err != nil {
		return err
	}
	if !hasEntityContent(typed) {
		return nil
	}

	id, err := s.upserter.Upsert(ctx, kind, studentID, typed)
	if err != nil {
		return err
	}
	s.log.Debug().Str("kind", string(kind)).Str("studentID", studentID.String()).Str("id", id).Msg("Entity written")
	return nil
}

// hasEntityContent skips address and schooling payloads whose keys were all unknown or blank
func hasEntityContent(typed interface{}) bool {
	switch v := typed.(type) {
	case *models.AddressData:
		return v.HasContent()
	case *models.SchoolingData:
		return v.HasContent()
	}
	return true
}
