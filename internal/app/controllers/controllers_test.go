package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/controllers"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/routes"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/services"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/filestorage"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/retry"
)

type testAPI struct {
	router *gin.Engine
	repos  *repositories.Repositories
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repositories.NewMemoryRepositories()
	upserter := services.NewEntityUpserter(repos)
	policy := retry.DefaultPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }

	reconciler := services.NewReconciliationService(repos, services.NewIdentityService(repos.Students), upserter, policy, nil)
	aggregates := services.NewAggregateService(repos, nil)
	signer, err := filestorage.NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads", time.Hour)
	require.NoError(t, err)
	documents := services.NewDocumentService(repos, signer, nil)

	router := gin.New()
	routes.SetupRouter(router,
		controllers.NewEnrollmentController(reconciler),
		controllers.NewStudentController(aggregates, documents),
		controllers.NewDocumentController(documents),
	)
	return &testAPI{router: router, repos: repos}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (a *testAPI) seedEnrollment(t *testing.T, id models.EnrollmentID, personal, address, schooling string) {
	t.Helper()
	require.NoError(t, a.repos.Enrollments.Create(context.Background(), &models.Enrollment{
		ID:                     id,
		ConfirmedPersonalData:  datatypes.JSON(personal),
		ConfirmedAddressData:   datatypes.JSON(address),
		ConfirmedSchoolingData: datatypes.JSON(schooling),
	}))
}

func TestProcessEnrollment(t *testing.T) {
	api := newTestAPI(t)
	api.seedEnrollment(t, "enr-1", `{"nomeCompleto":"Ana"}`, `{}`, `{"nivel_ensino":"EJA"}`)

	w, env := api.do(t, http.MethodPost, "/api/v1/enrollments/enr-1/process", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var out struct {
		EnrollmentID string `json:"enrollmentId"`
		StudentID    string `json:"studentId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "enr-1", out.EnrollmentID)
	assert.NotEmpty(t, out.StudentID)

	w, env = api.do(t, http.MethodGet, "/api/v1/enrollments/enr-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var enrollment models.Enrollment
	require.NoError(t, json.Unmarshal(env.Data, &enrollment))
	require.NotNil(t, enrollment.StudentID)
	assert.Equal(t, out.StudentID, enrollment.StudentID.String())
}

func TestProcessEnrollment_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.seedEnrollment(t, "enr-bad", `{"cpf":"1"}`, `{}`, `{}`)

	w, env := api.do(t, http.MethodPost, "/api/v1/enrollments/missing/process", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RES_004", env.Error.Code)

	w, env = api.do(t, http.MethodPost, "/api/v1/enrollments/enr-bad/process", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "nome_completo", env.Error.Field)
}

func TestAggregateRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	api.seedEnrollment(t, "enr-1", `{"nome_completo":"Ana","cpf":"123.456.789-09"}`, `{}`, `{}`)
	_, env := api.do(t, http.MethodPost, "/api/v1/enrollments/enr-1/process", nil)
	var processed struct {
		StudentID string `json:"studentId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &processed))

	w, env := api.do(t, http.MethodGet, "/api/v1/students/"+processed.StudentID+"/aggregate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var agg models.Aggregate
	require.NoError(t, json.Unmarshal(env.Data, &agg))
	assert.Equal(t, "Ana", *agg.NomeCompleto)
	assert.Equal(t, models.StudentID(processed.StudentID), agg.OwnerID)
	assert.Empty(t, agg.Addresses.ID)

	previous := agg
	edited := agg
	edited.NomeCompleto = stringPtr("Ana Souza")
	edited.Addresses = models.AddressData{Bairro: stringPtr("Centro")}

	w, env = api.do(t, http.MethodPut, "/api/v1/students/"+agg.ID.String()+"/aggregate", map[string]interface{}{
		"data":         edited,
		"previousData": previous,
	})
	require.Equal(t, http.StatusOK, w.Code, string(env.Data))

	var saved models.Aggregate
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, "Ana Souza", *saved.NomeCompleto)
	assert.Equal(t, "123.456.789-09", *saved.CPF)
	require.NotNil(t, saved.Addresses.Bairro)
	assert.Equal(t, "Centro", *saved.Addresses.Bairro)
}

func TestSaveAggregate_Validation(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPut, "/api/v1/students/pd-1/aggregate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VAL_001", env.Error.Code)
	assert.Equal(t, "Data", env.Error.Field)

	w, env = api.do(t, http.MethodPut, "/api/v1/students/pd-1/aggregate", map[string]interface{}{
		"data": map[string]interface{}{"id": "pd-2", "nome_completo": "Ana"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id", env.Error.Field)

	w, _ = api.do(t, http.MethodPut, "/api/v1/students/pd-1/aggregate", map[string]interface{}{
		"data": map[string]interface{}{"nome_completo": "Ana"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodPut, "/api/v1/students/pd-1/aggregate", map[string]interface{}{
		"data": map[string]interface{}{"nome_completo": "Ana", "addresses": map[string]interface{}{"ufCidade": "Sao Paulo"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VAL_001", env.Error.Code)
	assert.Equal(t, "Data.Addresses.UFCidade", env.Error.Field)
}

func TestListStudents(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	for _, name := range []string{"Bruno", "Ana", "Carla"} {
		require.NoError(t, api.repos.PersonalData.Create(ctx, &models.PersonalData{NomeCompleto: stringPtr(name)}))
	}

	w, env := api.do(t, http.MethodGet, "/api/v1/students?page=1&size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items []struct {
			NomeCompleto string `json:"nomeCompleto"`
		} `json:"items"`
		Pagination struct {
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Ana", page.Items[0].NomeCompleto)
	assert.Equal(t, 3, page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	w, _ = api.do(t, http.MethodGet, "/api/v1/students?q="+string(long), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocuments(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.repos.Students.Create(ctx, &models.Student{ID: "student-1", EnrollmentID: "enr-1"}))
	require.NoError(t, api.repos.Documents.Create(ctx, &models.DocumentRecord{
		ID: "doc-1", EnrollmentID: "enr-1", FileName: "cpf.pdf", StoragePath: "enr-1/cpf.pdf", DocumentType: models.DocCPF,
	}))

	var docs struct {
		Linked         bool   `json:"linked"`
		DocumentSetKey string `json:"documentSetKey"`
		Strategy       string `json:"strategy"`
		Documents      []struct {
			ID string `json:"id"`
		} `json:"documents"`
	}

	w, env := api.do(t, http.MethodGet, "/api/v1/students/student-1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	assert.True(t, docs.Linked)
	assert.Equal(t, "enr-1", docs.DocumentSetKey)
	assert.Equal(t, services.StrategyStudent, docs.Strategy)
	require.Len(t, docs.Documents, 1)

	w, env = api.do(t, http.MethodGet, "/api/v1/students/nobody/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs.Documents = nil
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	assert.False(t, docs.Linked)
	assert.NotNil(t, docs.Documents)
	assert.Empty(t, docs.Documents)
	assert.NotEmpty(t, env.Message)
}

func TestGetSignedURL(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.repos.Documents.Create(context.Background(), &models.DocumentRecord{
		ID: "doc-1", EnrollmentID: "enr-1", FileName: "cpf.pdf", StoragePath: "enr-1/cpf.pdf", DocumentType: models.DocCPF,
	}))

	w, env := api.do(t, http.MethodGet, "/api/v1/documents/doc-1/signed-url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var signed filestorage.SignedURL
	require.NoError(t, json.Unmarshal(env.Data, &signed))
	assert.Equal(t, "http://localhost:8080/uploads/enr-1/cpf.pdf", signed.URL)

	w, env = api.do(t, http.MethodGet, "/api/v1/documents/doc-404/signed-url", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RES_006", env.Error.Code)
}

func stringPtr(s string) *string { return &s }
