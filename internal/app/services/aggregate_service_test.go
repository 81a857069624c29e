package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

type aggregateFixture struct {
	ctx   context.Context
	repos *repositories.Repositories
	svc   *AggregateService
}

func newAggregateFixture() *aggregateFixture {
	repos := repositories.NewMemoryRepositories()
	return &aggregateFixture{
		ctx:   context.Background(),
		repos: repos,
		svc:   NewAggregateService(repos, nil),
	}
}

func (f *aggregateFixture) personal(t *testing.T, id models.PersonalDataID, owner *models.StudentID, name string) {
	t.Helper()
	require.NoError(t, f.repos.PersonalData.Create(f.ctx, &models.PersonalData{ID: id, StudentID: owner, NomeCompleto: strPtr(name)}))
}

func studentRef(id string) *models.StudentID {
	sid := models.StudentID(id)
	return &sid
}

func TestLoadAggregate_AssemblesAllParts(t *testing.T) {
	f := newAggregateFixture()
	owner := studentRef("student-1")
	f.personal(t, "pd-1", owner, "Ana")
	require.NoError(t, f.repos.Addresses.Create(f.ctx, &models.AddressData{StudentID: owner, CEP: strPtr("01001-000")}))
	require.NoError(t, f.repos.Schooling.Create(f.ctx, &models.SchoolingData{StudentID: owner, NivelEnsino: strPtr("EJA")}))

	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.repos.Enrollments.Create(f.ctx, &models.Enrollment{ID: "enr-old", StudentID: owner, CreatedAt: base}))
	require.NoError(t, f.repos.Enrollments.Create(f.ctx, &models.Enrollment{ID: "enr-new", StudentID: owner, CreatedAt: base.Add(time.Hour)}))

	agg, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)

	assert.Equal(t, models.PersonalDataID("pd-1"), agg.ID)
	assert.Equal(t, "Ana", *agg.NomeCompleto)
	assert.Equal(t, models.StudentID("student-1"), agg.OwnerID)
	assert.Equal(t, "01001-000", *agg.Addresses.CEP)
	assert.Equal(t, "EJA", *agg.SchoolingData.NivelEnsino)
	require.NotNil(t, agg.EnrollmentID)
	assert.Equal(t, models.EnrollmentID("enr-new"), *agg.EnrollmentID)
}

func TestLoadAggregate_MissingPartsAreEmpty(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-1", studentRef("student-1"), "Ana")

	agg, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	assert.Equal(t, models.AddressData{}, agg.Addresses)
	assert.Equal(t, models.SchoolingData{}, agg.SchoolingData)
	assert.Nil(t, agg.EnrollmentID)
}

func TestLoadAggregate_OwnerFallsBackToRecordID(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-legacy", nil, "Bia")
	require.NoError(t, f.repos.Addresses.Create(f.ctx, &models.AddressData{StudentID: studentRef("pd-legacy"), Bairro: strPtr("Centro")}))

	agg, err := f.svc.LoadAggregate(f.ctx, "pd-legacy")
	require.NoError(t, err)
	assert.Equal(t, models.StudentID("pd-legacy"), agg.OwnerID)
	assert.Equal(t, "Centro", *agg.Addresses.Bairro)
}

func TestLoadAggregate_SeedMayBeStudentID(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-1", studentRef("student-1"), "Ana")

	agg, err := f.svc.LoadAggregate(f.ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.PersonalDataID("pd-1"), agg.ID)
	assert.Equal(t, models.StudentID("student-1"), agg.OwnerID)
}

func TestLoadAggregate_Errors(t *testing.T) {
	f := newAggregateFixture()

	_, err := f.svc.LoadAggregate(f.ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrPersonalDataNotFound)

	_, err = f.svc.LoadAggregate(f.ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestSave_WritesAllParts(t *testing.T) {
	f := newAggregateFixture()
	owner := studentRef("student-1")
	f.personal(t, "pd-1", owner, "Ana")
	require.NoError(t, f.repos.Schooling.Create(f.ctx, &models.SchoolingData{StudentID: owner, NivelEnsino: strPtr("EJA"), RA: strPtr("1")}))

	previous, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)

	edited := *previous
	edited.NomeCompleto = strPtr("Ana Souza")
	edited.Addresses = models.AddressData{CEP: strPtr("01001-000")}
	edited.SchoolingData.NivelEnsino = strPtr("Médio")

	require.NoError(t, f.svc.Save(f.ctx, &edited, previous))

	got, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", *got.NomeCompleto)
	assert.Equal(t, "01001-000", *got.Addresses.CEP)
	assert.Equal(t, "Médio", *got.SchoolingData.NivelEnsino)
	assert.Equal(t, "1", *got.SchoolingData.RA)
	assert.Equal(t, previous.SchoolingData.ID, got.SchoolingData.ID)

	// same submission again
	require.NoError(t, f.svc.Save(f.ctx, &edited, previous))
	assert.EqualValues(t, 1, countAll(t, f.repos.Addresses))
	assert.EqualValues(t, 1, countAll(t, f.repos.Schooling))
}

func TestSave_SkipsEmptyNestedParts(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-1", studentRef("student-1"), "Ana")

	agg, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	agg.Addresses.Bairro = strPtr("")

	require.NoError(t, f.svc.Save(f.ctx, agg, nil))
	assert.EqualValues(t, 0, countAll(t, f.repos.Addresses))
	assert.EqualValues(t, 0, countAll(t, f.repos.Schooling))
}

func TestSave_ClearedNestedRowIsWritten(t *testing.T) {
	f := newAggregateFixture()
	owner := studentRef("student-1")
	f.personal(t, "pd-1", owner, "Ana")
	require.NoError(t, f.repos.Addresses.Create(f.ctx, &models.AddressData{StudentID: owner, CEP: strPtr("01001-000"), Logradouro: strPtr("Rua A")}))

	previous, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	require.NotEmpty(t, previous.Addresses.ID)

	edited := *previous
	edited.Addresses.CEP = nil
	edited.Addresses.Logradouro = nil
	require.False(t, edited.Addresses.HasContent())

	require.NoError(t, f.svc.Save(f.ctx, &edited, previous))

	got, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	assert.Equal(t, previous.Addresses.ID, got.Addresses.ID)
	assert.Nil(t, got.Addresses.CEP)
	assert.Nil(t, got.Addresses.Logradouro)
	assert.EqualValues(t, 1, countAll(t, f.repos.Addresses))
}

func TestSave_WithoutRowIDReplacesOwnersRow(t *testing.T) {
	f := newAggregateFixture()
	owner := studentRef("student-1")
	f.personal(t, "pd-1", owner, "Ana")
	existing := &models.AddressData{StudentID: owner, CEP: strPtr("01001-000")}
	require.NoError(t, f.repos.Addresses.Create(f.ctx, existing))

	agg := &models.Aggregate{
		PersonalData: models.PersonalData{ID: "pd-1", StudentID: owner, NomeCompleto: strPtr("Ana")},
		Addresses:    models.AddressData{Bairro: strPtr("Centro")},
		OwnerID:      *owner,
	}
	require.NoError(t, f.svc.Save(f.ctx, agg, nil))

	got, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.Addresses.ID)
	require.NotNil(t, got.Addresses.Bairro)
	assert.Equal(t, "Centro", *got.Addresses.Bairro)
	assert.Nil(t, got.Addresses.CEP, "fields left blank in the editor are cleared")
	assert.EqualValues(t, 1, countAll(t, f.repos.Addresses))
}

func TestSave_IgnoresPreviousOfAnotherRecord(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-1", studentRef("student-1"), "Ana")
	f.personal(t, "pd-2", studentRef("student-2"), "Bia")

	stale, err := f.svc.LoadAggregate(f.ctx, "pd-2")
	require.NoError(t, err)
	edited, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	edited.NomeCompleto = strPtr("Bia")

	require.NoError(t, f.svc.Save(f.ctx, edited, stale))

	got, err := f.svc.LoadAggregate(f.ctx, "pd-1")
	require.NoError(t, err)
	assert.Equal(t, "Bia", *got.NomeCompleto)
}

func TestSave_KeepsLegacyOwner(t *testing.T) {
	f := newAggregateFixture()
	f.personal(t, "pd-legacy", nil, "Bia")

	agg, err := f.svc.LoadAggregate(f.ctx, "pd-legacy")
	require.NoError(t, err)
	agg.SchoolingData.NivelEnsino = strPtr("EJA")
	require.NoError(t, f.svc.Save(f.ctx, agg, nil))

	rows, err := f.repos.Schooling.GetList(f.ctx, repositories.FirstByOwner("student_id", "pd-legacy"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	personal, err := f.repos.PersonalData.GetOne(f.ctx, "pd-legacy")
	require.NoError(t, err)
	assert.Nil(t, personal.StudentID)
}

func TestSave_Errors(t *testing.T) {
	f := newAggregateFixture()

	err := f.svc.Save(f.ctx, &models.Aggregate{}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	blank := &models.Aggregate{PersonalData: models.PersonalData{ID: "pd-1", NomeCompleto: strPtr(" ")}}
	err = f.svc.Save(f.ctx, blank, nil)
	var fieldErr *apperrors.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "nome_completo", fieldErr.Field)

	missing := &models.Aggregate{
		PersonalData:  models.PersonalData{ID: "pd-404", NomeCompleto: strPtr("Ana")},
		OwnerID:       "student-404",
		SchoolingData: models.SchoolingData{NivelEnsino: strPtr("EJA")},
	}
	err = f.svc.Save(f.ctx, missing, nil)
	assert.ErrorIs(t, err, apperrors.ErrPersonalDataNotFound)
	assert.EqualValues(t, 1, countAll(t, f.repos.Schooling), "sibling writes are not rolled back")
}

func TestListStudents(t *testing.T) {
	f := newAggregateFixture()
	for i, name := range []string{"Carla", "Ana", "Bruno", "Ana Paula"} {
		id := models.PersonalDataID(fmt.Sprintf("pd-%d", i))
		require.NoError(t, f.repos.PersonalData.Create(f.ctx, &models.PersonalData{
			ID: id, NomeCompleto: strPtr(name), CPF: strPtr(fmt.Sprintf("000.000.000-0%d", i)),
		}))
	}

	rows, total, err := f.svc.ListStudents(f.ctx, StudentListFilter{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", *rows[0].NomeCompleto)
	assert.Equal(t, "Ana Paula", *rows[1].NomeCompleto)

	rows, total, err = f.svc.ListStudents(f.ctx, StudentListFilter{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bruno", *rows[0].NomeCompleto)

	rows, total, err = f.svc.ListStudents(f.ctx, StudentListFilter{Page: 1, Size: 10, Query: "ana"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = f.svc.ListStudents(f.ctx, StudentListFilter{Page: 1, Size: 10, Query: "0-02"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bruno", *rows[0].NomeCompleto)

	rows, total, err = f.svc.ListStudents(f.ctx, StudentListFilter{Page: 1, Size: 10, Query: "zzz"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}
