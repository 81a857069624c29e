package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/db"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/dberrors"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// SQLStore handles database operations for one table
type SQLStore[T any] struct {
	db     *db.Database
	sb     squirrel.StatementBuilderType
	table  string
	schema *schema
}

// NewSQLStore creates a store for table using the db tags of T as columns
func NewSQLStore[T any](database *db.Database, table string) *SQLStore[T] {
	return &SQLStore[T]{
		db:     database,
		sb:     database.StatementBuilder(),
		table:  table,
		schema: schemaFor[T](),
	}
}

// quote keeps camelCase column names intact on PostgreSQL
func quote(name string) string {
	return `"` + name + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return out
}

// GetOne retrieves a record by ID
func (s *SQLStore[T]) GetOne(ctx context.Context, id string) (*T, error) {
	query, args, err := s.sb.Select(quoteAll(s.schema.names())...).
		From(s.table).
		Where(squirrel.Eq{quote(columnID): id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", s.table).Msg("Error building get by ID SQL")
		return nil, fmt.Errorf("failed to build get %s query: %w", s.table, err)
	}

	rec := new(T)
	if err := s.db.SQL.QueryRowContext(ctx, query, args...).Scan(s.schema.scanTargets(rec)...); err != nil {
		return nil, s.classify("get "+s.table, err)
	}
	return rec, nil
}

// GetList retrieves the records matching query
func (s *SQLStore[T]) GetList(ctx context.Context, q ListQuery) ([]*T, error) {
	builder := s.where(s.sb.Select(quoteAll(s.schema.names())...).From(s.table), q)

	for _, f := range q.Sort {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		builder = builder.OrderBy(quote(f.Field) + " " + dir)
	}
	if q.PerPage > 0 {
		builder = builder.Limit(uint64(q.PerPage)).Offset(uint64(q.offset()))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", s.table).Msg("Error building list SQL")
		return nil, fmt.Errorf("failed to build list %s query: %w", s.table, err)
	}

	rows, err := s.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.classify("list "+s.table, err)
	}
	defer rows.Close()

	records := make([]*T, 0)
	for rows.Next() {
		rec := new(T)
		if err := rows.Scan(s.schema.scanTargets(rec)...); err != nil {
			logger.Error().Err(err).Str("table", s.table).Msg("Error scanning row")
			return nil, fmt.Errorf("failed to scan %s row: %w", s.table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("list "+s.table, err)
	}
	return records, nil
}

// Count returns how many records match the filter and search of query
func (s *SQLStore[T]) Count(ctx context.Context, q ListQuery) (int64, error) {
	query, args, err := s.where(s.sb.Select("COUNT(*)").From(s.table), q).ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", s.table).Msg("Error building count SQL")
		return 0, fmt.Errorf("failed to build count %s query: %w", s.table, err)
	}

	var total int64
	if err := s.db.SQL.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, s.classify("count "+s.table, err)
	}
	return total, nil
}

func (s *SQLStore[T]) where(builder squirrel.SelectBuilder, q ListQuery) squirrel.SelectBuilder {
	if len(q.Filter) > 0 {
		eq := make(squirrel.Eq, len(q.Filter))
		for col, v := range q.Filter {
			eq[quote(col)] = plainFilterValue(v)
		}
		builder = builder.Where(eq)
	}

	if q.Search != nil && strings.TrimSpace(q.Search.Term) != "" {
		pattern := "%" + strings.TrimSpace(q.Search.Term) + "%"
		or := squirrel.Or{}
		for _, col := range q.Search.Columns {
			if s.db.Dialect == db.DialectPostgres {
				or = append(or, squirrel.ILike{quote(col): pattern})
			} else {
				// LIKE is case-insensitive for ASCII on SQLite
				or = append(or, squirrel.Like{quote(col): pattern})
			}
		}
		builder = builder.Where(or)
	}
	return builder
}

// Create inserts a new record
func (s *SQLStore[T]) Create(ctx context.Context, rec *T) error {
	if s.schema.id(rec) == "" {
		s.schema.setID(rec, uuid.NewString())
	}
	s.schema.stampCreate(rec, time.Now().UTC())

	names := s.schema.names()
	values, err := s.schema.values(rec, names)
	if err != nil {
		return fmt.Errorf("failed to encode %s row: %w", s.table, err)
	}

	query, args, err := s.sb.Insert(s.table).Columns(quoteAll(names)...).Values(values...).ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", s.table).Msg("Error building insert SQL")
		return fmt.Errorf("failed to build insert %s query: %w", s.table, err)
	}

	if _, err := s.db.SQL.ExecContext(ctx, query, args...); err != nil {
		return s.classify("create "+s.table, err)
	}
	return nil
}

// Update writes the changed columns of next onto the record with the given id
func (s *SQLStore[T]) Update(ctx context.Context, id string, next, previous *T) error {
	cols, err := s.schema.changed(next, previous)
	if err != nil {
		return fmt.Errorf("failed to diff %s row: %w", s.table, err)
	}
	if len(cols) == 0 {
		// nothing to write, but a missing row is still reported
		_, err := s.GetOne(ctx, id)
		return err
	}

	s.schema.touch(next, columnUpdatedAt, time.Now().UTC(), false)
	if s.schema.has(columnUpdatedAt) {
		cols = append(cols, columnUpdatedAt)
	}

	values, err := s.schema.values(next, cols)
	if err != nil {
		return fmt.Errorf("failed to encode %s row: %w", s.table, err)
	}
	set := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		set[quote(col)] = values[i]
	}

	query, args, err := s.sb.Update(s.table).
		SetMap(set).
		Where(squirrel.Eq{quote(columnID): id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Str("table", s.table).Msg("Error building update SQL")
		return fmt.Errorf("failed to build update %s query: %w", s.table, err)
	}

	result, err := s.db.SQL.ExecContext(ctx, query, args...)
	if err != nil {
		return s.classify("update "+s.table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return s.classify("update "+s.table, err)
	}
	if affected == 0 {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("update %s: no row with id %q", s.table, id))
	}
	return nil
}

// classify converts a driver error into the store error contract
func (s *SQLStore[T]) classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("%s: %s", op, apperrors.ErrResourceNotFound))
	case dberrors.IsDuplicateKeyError(err):
		return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, fmt.Sprintf("%s: %v", op, err)).
			WithCode("DUPLICATE_KEY")
	case dberrors.IsTransient(err):
		logger.Warn().Err(err).Str("op", op).Msg("Transient store failure")
		return apperrors.NewStoreUnavailableError(op, err)
	}
	logger.Error().Err(err).Str("op", op).Msg("Store operation failed")
	return fmt.Errorf("failed to %s: %w", op, err)
}

// plainFilterValue lets callers filter with typed ids, alone or in a list
func plainFilterValue(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = plainFilterValue(rv.Index(i).Interface())
		}
		return out
	}
	out, err := normalize(rv)
	if err != nil {
		return v
	}
	return out
}
