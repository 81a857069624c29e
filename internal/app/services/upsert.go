package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

const ownerColumn = "student_id"

// errConflictingRowGone is reported when a create hit a unique violation but
// the conflicting row could not be read back
var errConflictingRowGone = errors.New("conflicting row not found after duplicate key")

// ownedRecord is a per-student row: personal, address or schooling data
type ownedRecord[T any] interface {
	*T
	SetOwner(models.StudentID)
	RecordID() string
	SetRecordID(string)
}

// EntityUpserter keeps at most one row per student in each per-student table
type EntityUpserter struct {
	repos *repositories.Repositories
}

// NewEntityUpserter creates a new EntityUpserter
func NewEntityUpserter(repos *repositories.Repositories) *EntityUpserter {
	return &EntityUpserter{repos: repos}
}

// Upsert writes a remapped payload for owner and returns the id of the row
// written. payload must be the type Remap returns for kind.
func (u *EntityUpserter) Upsert(ctx context.Context, kind models.EntityKind, owner models.StudentID, payload interface{}) (string, error) {
	switch p := payload.(type) {
	case *models.PersonalData:
		id, err := u.UpsertPersonal(ctx, owner, p)
		return string(id), err
	case *models.AddressData:
		id, err := u.UpsertAddress(ctx, owner, p)
		return string(id), err
	case *models.SchoolingData:
		id, err := u.UpsertSchooling(ctx, owner, p)
		return string(id), err
	}
	return "", apperrors.NewFieldError(string(kind), "payload", fmt.Sprintf("unexpected type %T", payload))
}

// UpsertPersonal writes the personal record of owner
func (u *EntityUpserter) UpsertPersonal(ctx context.Context, owner models.StudentID, p *models.PersonalData) (models.PersonalDataID, error) {
	id, err := upsertOwned(ctx, u.repos.PersonalData, models.TablePersonalData, owner, p)
	return models.PersonalDataID(id), err
}

// UpsertAddress writes the address of owner
func (u *EntityUpserter) UpsertAddress(ctx context.Context, owner models.StudentID, a *models.AddressData) (models.AddressID, error) {
	id, err := upsertOwned(ctx, u.repos.Addresses, models.TableAddresses, owner, a)
	return models.AddressID(id), err
}

// UpsertSchooling writes the schooling history of owner
func (u *EntityUpserter) UpsertSchooling(ctx context.Context, owner models.StudentID, s *models.SchoolingData) (models.SchoolingID, error) {
	id, err := upsertOwned(ctx, u.repos.Schooling, models.TableSchoolingData, owner, s)
	return models.SchoolingID(id), err
}

// upsertOwned finds the row of owner and updates it, or creates one. The owner
// column of the payload is always forced to owner. A unique violation on create
// means a concurrent writer created the row first; it is then re-read and updated.
func upsertOwned[T any, PT ownedRecord[T]](ctx context.Context, store repositories.Store[T], table string, owner models.StudentID, payload PT) (string, error) {
	PT(payload).SetOwner(owner)

	existing, err := findByOwner(ctx, store, owner)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return updateOwned(ctx, store, existing, payload)
	}

	err = store.Create(ctx, (*T)(payload))
	if err == nil {
		logger.Debug().Str("table", table).Str("studentID", owner.String()).Str("id", PT(payload).RecordID()).Msg("Row created")
		return PT(payload).RecordID(), nil
	}
	if !errors.Is(err, apperrors.ErrResourceAlreadyExists) {
		return "", fmt.Errorf("failed to create %s row: %w", table, err)
	}

	logger.Info().Str("table", table).Str("studentID", owner.String()).Msg("Concurrent create detected, updating existing row")
	existing, err = findByOwner(ctx, store, owner)
	if err != nil {
		return "", err
	}
	if existing == nil {
		// the conflicting row is gone again; let the caller replay
		return "", apperrors.NewStoreUnavailableError("upsert "+table, errConflictingRowGone)
	}
	return updateOwned(ctx, store, existing, payload)
}

func findByOwner[T any](ctx context.Context, store repositories.Store[T], owner models.StudentID) (*T, error) {
	rows, err := store.GetList(ctx, repositories.FirstByOwner(ownerColumn, owner))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// updateOwned overlays the populated fields of payload on existing and writes the
// difference. Intake payloads only carry what was submitted, so absent fields keep
// their stored value.
func updateOwned[T any, PT ownedRecord[T]](ctx context.Context, store repositories.Store[T], existing *T, payload PT) (string, error) {
	next := overlay(existing, (*T)(payload))
	id := PT(existing).RecordID()
	if err := store.Update(ctx, id, next, existing); err != nil {
		return "", err
	}
	return id, nil
}

// overlay returns a copy of base with every non-nil pointer field of patch applied.
// Keys and timestamps of base are kept.
func overlay[T any](base, patch *T) *T {
	out := new(T)
	ov := reflect.ValueOf(out).Elem()
	ov.Set(reflect.ValueOf(base).Elem())

	pv := reflect.ValueOf(patch).Elem()
	for i := 0; i < pv.NumField(); i++ {
		f := pv.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		switch ov.Type().Field(i).Tag.Get("db") {
		case "", "id":
			continue
		}
		ov.Field(i).Set(f)
	}
	return out
}
