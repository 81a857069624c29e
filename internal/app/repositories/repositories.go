package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/db"
)

// Store is the record store contract every table is accessed through.
// Lookups of a missing id return an error wrapping apperrors.ErrResourceNotFound;
// a unique violation on Create wraps apperrors.ErrResourceAlreadyExists; driver
// failures worth replaying wrap apperrors.ErrStoreUnavailable.
type Store[T any] interface {
	GetOne(ctx context.Context, id string) (*T, error)
	GetList(ctx context.Context, query ListQuery) ([]*T, error)
	Count(ctx context.Context, query ListQuery) (int64, error)
	// Create assigns a UUID when the record has no id and stamps its timestamps.
	Create(ctx context.Context, rec *T) error
	// Update writes the columns of next that differ from previous (all of them
	// when previous is nil).
	Update(ctx context.Context, id string, next, previous *T) error
}

// ListQuery selects, orders and pages records
type ListQuery struct {
	Filter  squirrel.Eq
	Search  *Search
	Page    int
	PerPage int
	Sort    []SortField
}

// Search matches Term as a case-insensitive substring of any of Columns
type Search struct {
	Columns []string
	Term    string
}

// SortField orders by one column
type SortField struct {
	Field string
	Desc  bool
}

// offset returns the number of rows to skip, treating page < 1 as the first page
func (q ListQuery) offset() int {
	if q.PerPage <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// FirstByOwner is the lookup every per-owner table uses: one row, lowest id first
func FirstByOwner(ownerColumn string, owner any) ListQuery {
	return ListQuery{
		Filter:  squirrel.Eq{ownerColumn: owner},
		Page:    1,
		PerPage: 1,
		Sort:    []SortField{{Field: columnID}},
	}
}

// Repositories holds all the record stores
type Repositories struct {
	Enrollments  Store[models.Enrollment]
	Students     Store[models.Student]
	PersonalData Store[models.PersonalData]
	Addresses    Store[models.AddressData]
	Schooling    Store[models.SchoolingData]
	Documents    Store[models.DocumentRecord]
}

// NewRepositories initializes all repositories on top of a SQL database
func NewRepositories(database *db.Database) *Repositories {
	return &Repositories{
		Enrollments:  NewSQLStore[models.Enrollment](database, models.TableEnrollments),
		Students:     NewSQLStore[models.Student](database, models.TableStudents),
		PersonalData: NewSQLStore[models.PersonalData](database, models.TablePersonalData),
		Addresses:    NewSQLStore[models.AddressData](database, models.TableAddresses),
		Schooling:    NewSQLStore[models.SchoolingData](database, models.TableSchoolingData),
		Documents:    NewSQLStore[models.DocumentRecord](database, models.TableDocuments),
	}
}

// NewMemoryRepositories initializes process-local stores with the same unique
// constraints as the SQL schema
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Enrollments:  NewMemoryStore[models.Enrollment](models.TableEnrollments),
		Students:     NewMemoryStore[models.Student](models.TableStudents, "enrollment_id"),
		PersonalData: NewMemoryStore[models.PersonalData](models.TablePersonalData, "student_id"),
		Addresses:    NewMemoryStore[models.AddressData](models.TableAddresses, "student_id"),
		Schooling:    NewMemoryStore[models.SchoolingData](models.TableSchoolingData, "student_id"),
		Documents:    NewMemoryStore[models.DocumentRecord](models.TableDocuments),
	}
}
