package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appModels "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	appRepos "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	appServices "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/services"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/retry"
)

func TestCreateDemoData_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos := appRepos.NewMemoryRepositories()

	require.NoError(t, CreateDemoData(ctx, repos, zerolog.Nop()))
	require.NoError(t, CreateDemoData(ctx, repos, zerolog.Nop()))

	n, err := repos.Enrollments.Count(ctx, appRepos.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoEnrollments)), n)

	n, err = repos.Documents.Count(ctx, appRepos.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoDocuments)), n)
}

func TestCreateDemoData_Reconciles(t *testing.T) {
	ctx := context.Background()
	repos := appRepos.NewMemoryRepositories()
	require.NoError(t, CreateDemoData(ctx, repos, zerolog.Nop()))

	policy := retry.DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	upserter := appServices.NewEntityUpserter(repos)
	svc := appServices.NewReconciliationService(repos, appServices.NewIdentityService(repos.Students), upserter, policy, nil)

	for _, id := range []appModels.EnrollmentID{EnrollmentCamelCase, EnrollmentSnakeCase} {
		studentID, err := svc.Process(ctx, id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, studentID)
	}

	addresses, err := repos.Addresses.GetList(ctx, appRepos.ListQuery{})
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	for _, a := range addresses {
		require.NotNil(t, a.Zona)
		assert.Contains(t, []appModels.Zone{appModels.ZoneUrban, appModels.ZoneRural}, *a.Zona)
	}
}
