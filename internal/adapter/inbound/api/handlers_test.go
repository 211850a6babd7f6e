package api

import (
	"bytes"
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/port/outbound"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorizationService struct {
	createResponse dto.VectorizeResponse
	createErr      error
	jobResponse    dto.JobStatusResponse
	jobErr         error
	lastRequest    dto.VectorizeRequest
}

func (s *fakeVectorizationService) CreateVectorizeJob(
	_ context.Context,
	request dto.VectorizeRequest,
) (dto.VectorizeResponse, error) {
	s.lastRequest = request
	return s.createResponse, s.createErr
}

func (s *fakeVectorizationService) GetJob(_ context.Context, _ string) (dto.JobStatusResponse, error) {
	return s.jobResponse, s.jobErr
}

type fakeSearchService struct {
	response dto.SearchResponse
	err      error
}

func (s *fakeSearchService) Search(_ context.Context, _ dto.SearchRequest) (dto.SearchResponse, error) {
	return s.response, s.err
}

type fakeTenantService struct {
	listResponse  dto.TenantReposResponse
	listErr       error
	deleteErr     error
	deletedTenant string
	deletedRepo   string
}

func (s *fakeTenantService) ListRepositories(_ context.Context, tenant string) (dto.TenantReposResponse, error) {
	return s.listResponse, s.listErr
}

func (s *fakeTenantService) DeleteRepository(_ context.Context, tenant, repoName string) error {
	s.deletedTenant = tenant
	s.deletedRepo = repoName
	return s.deleteErr
}

type testServer struct {
	handler    http.Handler
	vectorizer *fakeVectorizationService
	searcher   *fakeSearchService
	tenants    *fakeTenantService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		vectorizer: &fakeVectorizationService{},
		searcher:   &fakeSearchService{},
		tenants:    &fakeTenantService{},
	}

	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(
		NewHealthHandler("test", map[string]HealthCheck{}),
		NewVectorizeHandler(ts.vectorizer),
		NewSearchHandler(ts.searcher),
		NewTenantHandler(ts.tenants),
	)
	ts.handler = registry.Handler(RecoveryMiddleware(), RequestIDMiddleware())
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestCreateJob_Accepted(t *testing.T) {
	ts := newTestServer(t)
	ts.vectorizer.createResponse = dto.VectorizeResponse{
		JobID:     "7e2f7f2a-0000-0000-0000-000000000000",
		Status:    "pending",
		Message:   "vectorization of svc queued",
		CreatedAt: time.Now().UTC(),
	}

	recorder := ts.do(t, http.MethodPost, "/api/vectorize", dto.VectorizeRequest{
		RepoURL: "https://github.com/acme/svc",
		Tenant:  "acme",
	})

	assert.Equal(t, http.StatusAccepted, recorder.Code)
	assert.Equal(t, "acme", ts.vectorizer.lastRequest.Tenant)

	var response dto.VectorizeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "pending", response.Status)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestCreateJob_MalformedBody(t *testing.T) {
	ts := newTestServer(t)

	request := httptest.NewRequest(http.MethodPost, "/api/vectorize", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "invalid_request", response.Error)
}

func TestCreateJob_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	ts.vectorizer.createErr = domainerrors.ErrInvalidInput

	recorder := ts.do(t, http.MethodPost, "/api/vectorize", dto.VectorizeRequest{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetJob_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.vectorizer.jobErr = domainerrors.ErrJobNotFound

	recorder := ts.do(t, http.MethodGet, "/api/jobs/7e2f7f2a-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetJob_OK(t *testing.T) {
	ts := newTestServer(t)
	ts.vectorizer.jobResponse = dto.JobStatusResponse{
		JobID:  "7e2f7f2a-0000-0000-0000-000000000000",
		Status: "processing",
	}

	recorder := ts.do(t, http.MethodGet, "/api/jobs/7e2f7f2a-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response dto.JobStatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "processing", response.Status)
}

func TestSearch_OK(t *testing.T) {
	ts := newTestServer(t)
	ts.searcher.response = dto.SearchResponse{
		Results: []outbound.SearchResult{{Content: "func main()", Similarity: 0.91}},
		Total:   1,
		Query:   "entry point",
	}

	recorder := ts.do(t, http.MethodPost, "/api/search", dto.SearchRequest{
		Query:  "entry point",
		Tenant: "acme",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response dto.SearchResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Results, 1)
	assert.InDelta(t, 0.91, response.Results[0].Similarity, 1e-9)
}

func TestSearch_UnknownField(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"query":"x","tenant":"acme","bogus":true}`)
	request := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListTenantRepositories_OK(t *testing.T) {
	ts := newTestServer(t)
	ts.tenants.listResponse = dto.TenantReposResponse{
		Tenant: "acme",
		Repositories: []outbound.TenantRepository{
			{RepoName: "svc", Status: "completed", FileCount: 3, ChunkCount: 12},
		},
	}

	recorder := ts.do(t, http.MethodGet, "/api/tenants/acme/repositories", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response dto.TenantReposResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Repositories, 1)
	assert.Equal(t, "svc", response.Repositories[0].RepoName)
}

func TestDeleteRepository_NoContent(t *testing.T) {
	ts := newTestServer(t)

	recorder := ts.do(t, http.MethodDelete, "/api/tenants/acme/repositories/svc", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "acme", ts.tenants.deletedTenant)
	assert.Equal(t, "svc", ts.tenants.deletedRepo)
}

func TestDeleteRepository_InternalErrorHidesCause(t *testing.T) {
	ts := newTestServer(t)
	ts.tenants.deleteErr = errors.New("connection refused to 10.0.0.5")

	recorder := ts.do(t, http.MethodDelete, "/api/tenants/acme/repositories/svc", nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "internal server error", response.Message)
	assert.NotContains(t, recorder.Body.String(), "10.0.0.5")
}

func TestHealth_OK(t *testing.T) {
	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(
		NewHealthHandler("1.2.3", map[string]HealthCheck{
			"database": func(_ context.Context) error { return nil },
		}),
		NewVectorizeHandler(&fakeVectorizationService{}),
		NewSearchHandler(&fakeSearchService{}),
		NewTenantHandler(&fakeTenantService{}),
	)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	registry.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "healthy", response.Components["database"])
}

func TestHealth_FailingCheck(t *testing.T) {
	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(
		NewHealthHandler("1.2.3", map[string]HealthCheck{
			"nats": func(_ context.Context) error { return errors.New("not connected") },
		}),
		NewVectorizeHandler(&fakeVectorizationService{}),
		NewSearchHandler(&fakeSearchService{}),
		NewTenantHandler(&fakeTenantService{}),
	)

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	registry.Handler().ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRecoveryMiddleware_Panic(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	request := httptest.NewRequest(http.MethodGet, "/panic", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
