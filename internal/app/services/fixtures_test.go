package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/retry"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

var errConnReset = errors.New("connection reset by peer")

func transientErr(op string) error {
	return apperrors.NewStoreUnavailableError(op, errConnReset)
}

// flakyStore fails every call while failures > 0, counting down on each failure.
// A negative count fails forever.
type flakyStore[T any] struct {
	repositories.Store[T]
	failures atomic.Int64
	calls    atomic.Int64
	// failOn limits failures to one operation ("get", "list", "create", "update"); empty means all
	failOn string
}

func newFlaky[T any](inner repositories.Store[T], failures int64, failOn string) *flakyStore[T] {
	f := &flakyStore[T]{Store: inner, failOn: failOn}
	f.failures.Store(failures)
	return f
}

func (f *flakyStore[T]) fail(op string) error {
	f.calls.Add(1)
	if f.failOn != "" && f.failOn != op {
		return nil
	}
	n := f.failures.Load()
	if n == 0 {
		return nil
	}
	if n > 0 {
		f.failures.Add(-1)
	}
	return transientErr(op)
}

func (f *flakyStore[T]) GetOne(ctx context.Context, id string) (*T, error) {
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	return f.Store.GetOne(ctx, id)
}

func (f *flakyStore[T]) GetList(ctx context.Context, q repositories.ListQuery) ([]*T, error) {
	if err := f.fail("list"); err != nil {
		return nil, err
	}
	return f.Store.GetList(ctx, q)
}

func (f *flakyStore[T]) Create(ctx context.Context, rec *T) error {
	if err := f.fail("create"); err != nil {
		return err
	}
	return f.Store.Create(ctx, rec)
}

func (f *flakyStore[T]) Update(ctx context.Context, id string, next, previous *T) error {
	if err := f.fail("update"); err != nil {
		return err
	}
	return f.Store.Update(ctx, id, next, previous)
}

// recordingSleeper stands in for the backoff wait
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleeper) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func testPolicy(sleeper *recordingSleeper) retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = sleeper.Sleep
	return p
}

func newReconciler(repos *repositories.Repositories, sleeper *recordingSleeper) *ReconciliationService {
	return NewReconciliationService(
		repos,
		NewIdentityService(repos.Students),
		NewEntityUpserter(repos),
		testPolicy(sleeper),
		nil,
	)
}

func seedEnrollment(t *testing.T, repos *repositories.Repositories, id models.EnrollmentID, personal, address, schooling string) {
	t.Helper()
	e := &models.Enrollment{ID: id}
	if personal != "" {
		e.ConfirmedPersonalData = datatypes.JSON(personal)
	}
	if address != "" {
		e.ConfirmedAddressData = datatypes.JSON(address)
	}
	if schooling != "" {
		e.ConfirmedSchoolingData = datatypes.JSON(schooling)
	}
	require.NoError(t, repos.Enrollments.Create(context.Background(), e))
}

func countAll[T any](t *testing.T, store repositories.Store[T]) int64 {
	t.Helper()
	n, err := store.Count(context.Background(), repositories.ListQuery{})
	require.NoError(t, err)
	return n
}
