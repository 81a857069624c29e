package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	"golang.org/x/sync/errgroup"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/metrics"
)

// AggregateService presents the three per-student tables as one editable record
type AggregateService struct {
	repos   *repositories.Repositories
	metrics *metrics.Metrics
}

// NewAggregateService creates a new aggregate service instance. m may be nil.
func NewAggregateService(repos *repositories.Repositories, m *metrics.Metrics) *AggregateService {
	return &AggregateService{repos: repos, metrics: m}
}

// StudentListFilter selects a page of personal records
type StudentListFilter struct {
	Page  int
	Size  int
	Query string
}

// ListStudents returns a page of personal records ordered by name, with the total count
func (s *AggregateService) ListStudents(ctx context.Context, filter StudentListFilter) ([]*models.PersonalData, int64, error) {
	q := repositories.ListQuery{
		Page:    filter.Page,
		PerPage: filter.Size,
		Sort:    []repositories.SortField{{Field: "nome_completo"}, {Field: "id"}},
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		q.Search = &repositories.Search{Columns: []string{"nome_completo", "cpf"}, Term: term}
	}

	total, err := s.repos.PersonalData.Count(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}
	if total == 0 {
		return []*models.PersonalData{}, 0, nil
	}

	rows, err := s.repos.PersonalData.GetList(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}
	return rows, total, nil
}

// LoadAggregate assembles the editable record an editor opened with seed.
// Missing address or schooling rows yield empty structures, not errors.
func (s *AggregateService) LoadAggregate(ctx context.Context, seed models.SeedID) (*models.Aggregate, error) {
	personal, err := s.findPersonal(ctx, seed)
	if err != nil {
		return nil, err
	}
	owner := resolveOwner(personal, seed)

	agg := &models.Aggregate{PersonalData: *personal, OwnerID: owner}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repos.Addresses.GetList(gctx, repositories.FirstByOwner(ownerColumn, owner))
		if err != nil {
			return fmt.Errorf("failed to load address: %w", err)
		}
		if len(rows) > 0 {
			agg.Addresses = *rows[0]
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.repos.Schooling.GetList(gctx, repositories.FirstByOwner(ownerColumn, owner))
		if err != nil {
			return fmt.Errorf("failed to load schooling data: %w", err)
		}
		if len(rows) > 0 {
			agg.SchoolingData = *rows[0]
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.repos.Enrollments.GetList(gctx, repositories.ListQuery{
			Filter:  squirrel.Eq{ownerColumn: owner},
			Page:    1,
			PerPage: 1,
			Sort:    []repositories.SortField{{Field: "created_at", Desc: true}},
		})
		if err != nil {
			return fmt.Errorf("failed to load enrollment: %w", err)
		}
		if len(rows) > 0 {
			id := rows[0].ID
			agg.EnrollmentID = &id
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg, nil
}

// Save writes an edited aggregate back. The personal record is always updated
// and must exist; address and schooling are written when they carry data or
// their own row id, so clearing every field of a stored row is persisted.
// The writes run concurrently and are not rolled back when one of them fails;
// submitting the same aggregate again converges.
func (s *AggregateService) Save(ctx context.Context, agg, previous *models.Aggregate) (err error) {
	if s.metrics != nil {
		defer func() { s.metrics.ObserveSave(err) }()
	}
	if agg == nil || agg.PersonalData.ID == "" {
		return apperrors.NewFieldError(string(models.KindPersonal), "id", "is required")
	}
	if agg.PersonalData.NomeCompleto != nil && strings.TrimSpace(*agg.PersonalData.NomeCompleto) == "" {
		return apperrors.NewFieldError(string(models.KindPersonal), "nome_completo", "must not be blank")
	}

	owner := agg.OwnerID
	if owner == "" {
		owner = resolveOwner(&agg.PersonalData, models.SeedID(agg.PersonalData.ID))
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	// A plain group: one failing write must not cancel its siblings.
	var g errgroup.Group

	personal := agg.PersonalData
	if personal.StudentID == nil && owner != models.StudentID(personal.ID) {
		personal.SetOwner(owner)
	}
	var prevPersonal *models.PersonalData
	if previous != nil && previous.PersonalData.ID == personal.ID {
		prevPersonal = &previous.PersonalData
	}
	g.Go(func() error {
		err := s.repos.PersonalData.Update(ctx, personal.ID.String(), &personal, prevPersonal)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			err = fmt.Errorf("%w: %s", apperrors.ErrPersonalDataNotFound, personal.ID)
		}
		record(err)
		return err
	})

	if agg.Addresses.ID != "" || agg.Addresses.HasContent() {
		address := agg.Addresses
		var prev *models.AddressData
		if previous != nil {
			prev = &previous.Addresses
		}
		g.Go(func() error {
			err := saveNested(ctx, s.repos.Addresses, owner, &address, prev)
			record(err)
			return err
		})
	}

	if agg.SchoolingData.ID != "" || agg.SchoolingData.HasContent() {
		schooling := agg.SchoolingData
		var prev *models.SchoolingData
		if previous != nil {
			prev = &previous.SchoolingData
		}
		g.Go(func() error {
			err := saveNested(ctx, s.repos.Schooling, owner, &schooling, prev)
			record(err)
			return err
		})
	}

	_ = g.Wait()
	if len(errs) > 0 {
		logger.Error().Err(errors.Join(errs...)).Str("studentID", owner.String()).Msg("Aggregate save failed")
		return errors.Join(errs...)
	}
	logger.Info().Str("studentID", owner.String()).Str("personalDataID", personal.ID.String()).Msg("Aggregate saved")
	return nil
}

// saveNested writes the edited structure as a whole. Without a row id the
// owner's row is looked up and used as the previous version, so fields the
// editor cleared are written too; only when the owner has no row is one created.
func saveNested[T any, PT ownedRecord[T]](
	ctx context.Context,
	store repositories.Store[T],
	owner models.StudentID,
	next PT,
	previous PT,
) error {
	next.SetOwner(owner)

	id := next.RecordID()
	var prev *T
	if id != "" {
		if (*T)(previous) != nil && previous.RecordID() == id {
			prev = (*T)(previous)
		}
	} else {
		found, err := findByOwner(ctx, store, owner)
		if err != nil {
			return err
		}
		if found == nil {
			err = store.Create(ctx, (*T)(next))
			if !errors.Is(err, apperrors.ErrResourceAlreadyExists) {
				return err
			}
			// created concurrently; write over it
			if found, err = findByOwner(ctx, store, owner); err != nil {
				return err
			}
			if found == nil {
				return apperrors.NewStoreUnavailableError("save nested row", errConflictingRowGone)
			}
		}
		id = PT(found).RecordID()
		next.SetRecordID(id)
		prev = found
	}
	return store.Update(ctx, id, (*T)(next), prev)
}

// findPersonal looks the seed up as a personal record id, then as a student id
func (s *AggregateService) findPersonal(ctx context.Context, seed models.SeedID) (*models.PersonalData, error) {
	if seed == "" {
		return nil, apperrors.ErrInvalidStudentID
	}

	personal, err := s.repos.PersonalData.GetOne(ctx, seed.String())
	if err == nil {
		return personal, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, err
	}

	rows, err := s.repos.PersonalData.GetList(ctx, repositories.FirstByOwner(ownerColumn, seed.String()))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPersonalDataNotFound, seed)
	}
	return rows[0], nil
}

// resolveOwner is the one place a seed id becomes a student id: rows written
// before the owner column existed are keyed by their own id.
func resolveOwner(personal *models.PersonalData, seed models.SeedID) models.StudentID {
	return personal.OwnerOr(models.StudentID(seed))
}
