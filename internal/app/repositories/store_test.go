package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/migrations"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/db"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func sqliteRepositories(t *testing.T) *Repositories {
	t.Helper()
	database, err := db.OpenSQLite(db.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(database.Close)
	require.NoError(t, migrations.NewMigrator(database).MigrateEmbedded(context.Background()))
	return NewRepositories(database)
}

// backends runs fn against every store implementation
func backends(t *testing.T, fn func(t *testing.T, repos *Repositories)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryRepositories()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, sqliteRepositories(t)) })
}

func TestStore_CreateAndGetOne(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")
		rec := &models.PersonalData{
			StudentID:     &owner,
			NomeCompleto:  strPtr("Ana Souza"),
			TemNomeSocial: boolPtr(false),
		}

		require.NoError(t, repos.PersonalData.Create(ctx, rec))
		require.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := repos.PersonalData.GetOne(ctx, rec.ID.String())
		require.NoError(t, err)
		require.NotNil(t, got.StudentID)
		assert.Equal(t, owner, *got.StudentID)
		assert.Equal(t, "Ana Souza", *got.NomeCompleto)
		require.NotNil(t, got.TemNomeSocial)
		assert.False(t, *got.TemNomeSocial)
		assert.Nil(t, got.CPF)
	})
}

func TestStore_GetOneMissingIsNotFound(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		_, err := repos.Students.GetOne(context.Background(), "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
		assert.False(t, apperrors.IsRetryable(err))
	})
}

func TestStore_UniqueOwnerColumn(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")

		require.NoError(t, repos.Addresses.Create(ctx, &models.AddressData{StudentID: &owner, CEP: strPtr("01001-000")}))
		err := repos.Addresses.Create(ctx, &models.AddressData{StudentID: &owner, CEP: strPtr("02002-000")})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrResourceAlreadyExists)
	})
}

func TestStore_UpdateWritesOnlyChangedColumns(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")
		rec := &models.SchoolingData{StudentID: &owner, NivelEnsino: strPtr("EJA"), RA: strPtr("123")}
		require.NoError(t, repos.Schooling.Create(ctx, rec))

		previous, err := repos.Schooling.GetOne(ctx, rec.ID.String())
		require.NoError(t, err)

		// a concurrent writer changes RA after we read
		concurrent := *previous
		concurrent.RA = strPtr("999")
		require.NoError(t, repos.Schooling.Update(ctx, rec.ID.String(), &concurrent, previous))

		next := *previous
		next.NivelEnsino = strPtr("Médio")
		require.NoError(t, repos.Schooling.Update(ctx, rec.ID.String(), &next, previous))

		got, err := repos.Schooling.GetOne(ctx, rec.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "Médio", *got.NivelEnsino)
		assert.Equal(t, "999", *got.RA, "unchanged column must not be rewritten")
	})
}

func TestStore_UpdateMissingIsNotFound(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		next := &models.AddressData{CEP: strPtr("x")}

		err := repos.Addresses.Update(ctx, "missing", next, nil)
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

		// no changed columns still reports the missing row
		err = repos.Addresses.Update(ctx, "missing", next, next)
		assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	})
}

func TestStore_JSONColumnsRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")
		disciplines := datatypes.NewJSONSlice([]models.Discipline{{Disciplina: "Matemática"}, {Disciplina: "Física"}})
		rec := &models.SchoolingData{StudentID: &owner, ProgressaoParcialDisciplinas: &disciplines}
		require.NoError(t, repos.Schooling.Create(ctx, rec))

		got, err := repos.Schooling.GetOne(ctx, rec.ID.String())
		require.NoError(t, err)
		require.NotNil(t, got.ProgressaoParcialDisciplinas)
		assert.Equal(t, []models.Discipline{{Disciplina: "Matemática"}, {Disciplina: "Física"}}, []models.Discipline(*got.ProgressaoParcialDisciplinas))

		enrollment := &models.Enrollment{
			ID:                    "enr-1",
			ConfirmedPersonalData: datatypes.JSON(`{"nome_completo":"Ana"}`),
		}
		require.NoError(t, repos.Enrollments.Create(ctx, enrollment))
		gotEnrollment, err := repos.Enrollments.GetOne(ctx, "enr-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"nome_completo":"Ana"}`, string(gotEnrollment.ConfirmedPersonalData))
		assert.Nil(t, gotEnrollment.StudentID)
	})
}

func TestStore_GetListFilterSortPage(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")
		base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		for i, id := range []models.EnrollmentID{"enr-a", "enr-b", "enr-c"} {
			require.NoError(t, repos.Enrollments.Create(ctx, &models.Enrollment{
				ID:        id,
				StudentID: &owner,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}
		require.NoError(t, repos.Enrollments.Create(ctx, &models.Enrollment{ID: "enr-other", CreatedAt: base.Add(5 * time.Hour)}))

		latest, err := repos.Enrollments.GetList(ctx, ListQuery{
			Filter:  squirrel.Eq{"student_id": owner},
			Page:    1,
			PerPage: 1,
			Sort:    []SortField{{Field: "created_at", Desc: true}},
		})
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, models.EnrollmentID("enr-c"), latest[0].ID)

		second, err := repos.Enrollments.GetList(ctx, ListQuery{
			Filter:  squirrel.Eq{"student_id": owner},
			Page:    2,
			PerPage: 2,
			Sort:    []SortField{{Field: "id"}},
		})
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, models.EnrollmentID("enr-c"), second[0].ID)

		total, err := repos.Enrollments.Count(ctx, ListQuery{Filter: squirrel.Eq{"student_id": owner}})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)

		unlinked, err := repos.Enrollments.GetList(ctx, ListQuery{Filter: squirrel.Eq{"student_id": nil}})
		require.NoError(t, err)
		require.Len(t, unlinked, 1)
		assert.Equal(t, models.EnrollmentID("enr-other"), unlinked[0].ID)
	})
}

func TestStore_Search(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		for _, name := range []string{"Ana Souza", "Bruno Lima", "Mariana Alves"} {
			require.NoError(t, repos.PersonalData.Create(ctx, &models.PersonalData{NomeCompleto: strPtr(name)}))
		}

		q := ListQuery{
			Search: &Search{Columns: []string{"nome_completo", "cpf"}, Term: "ana"},
			Sort:   []SortField{{Field: "nome_completo"}},
		}
		found, err := repos.PersonalData.GetList(ctx, q)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Ana Souza", *found[0].NomeCompleto)
		assert.Equal(t, "Mariana Alves", *found[1].NomeCompleto)

		total, err := repos.PersonalData.Count(ctx, q)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})
}

func TestStore_CamelCaseColumns(t *testing.T) {
	backends(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		owner := models.StudentID("student-1")
		zone := models.ZoneRural
		rec := &models.AddressData{
			StudentID:                  &owner,
			NomeCidade:                 strPtr("Campinas"),
			UFCidade:                   strPtr("SP"),
			Zona:                       &zone,
			TemLocalizacaoDiferenciada: boolPtr(true),
		}
		require.NoError(t, repos.Addresses.Create(ctx, rec))

		found, err := repos.Addresses.GetList(ctx, FirstByOwner("student_id", owner))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Campinas", *found[0].NomeCidade)
		assert.Equal(t, models.ZoneRural, *found[0].Zona)
		assert.True(t, *found[0].TemLocalizacaoDiferenciada)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[models.PersonalData](models.TablePersonalData)
	rec := &models.PersonalData{NomeCompleto: strPtr("Ana")}
	require.NoError(t, store.Create(ctx, rec))

	*rec.NomeCompleto = "changed by caller"
	got, err := store.GetOne(ctx, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ana", *got.NomeCompleto)

	*got.NomeCompleto = "changed again"
	again, err := store.GetOne(ctx, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ana", *again.NomeCompleto)
}
