package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/models"
	"github.com/advanced-rising/vanillameta/pkg/services"
)

type mockConnectionService struct {
	services.ConnectionService

	testKind   models.EngineKind
	testConfig map[string]any
	testResult models.TestResult

	queryID     int64
	querySQL    string
	queryResult models.QueryResult

	removed   []int64
	removeErr error
}

func (m *mockConnectionService) TestConnection(ctx context.Context, kind models.EngineKind, config map[string]any) models.TestResult {
	m.testKind, m.testConfig = kind, config
	return m.testResult
}

func (m *mockConnectionService) ExecuteQuery(ctx context.Context, id int64, sqlText string) models.QueryResult {
	m.queryID, m.querySQL = id, sqlText
	return m.queryResult
}

func (m *mockConnectionService) RemoveConnection(id int64) error {
	m.removed = append(m.removed, id)
	return m.removeErr
}

func (m *mockConnectionService) ListEngines() []datasource.EngineInfo {
	return []datasource.EngineInfo{
		{Kind: models.EnginePostgres, Driver: "pg", DisplayName: "PostgreSQL", ProbeSQL: "SELECT 1", Available: true},
	}
}

func newConnectionsMux(t *testing.T, svc *mockConnectionService) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewConnectionsHandler(svc, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestConnectionsHandler_ListEngines(t *testing.T) {
	rec := do(newConnectionsMux(t, &mockConnectionService{}), http.MethodGet, "/api/engines", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EnginesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Engines, 1)
	assert.Equal(t, "SELECT 1", resp.Engines[0].ProbeSQL)
}

func TestConnectionsHandler_TestConnection(t *testing.T) {
	svc := &mockConnectionService{testResult: models.TestResult{
		Status: models.StatusSuccess,
		Data:   map[string]string{"message": "success"},
	}}

	rec := do(newConnectionsMux(t, svc), http.MethodPost, "/api/connections/test",
		`{"engine":"postgres","config":{"host":"db","user":"u"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, models.EnginePostgres, svc.testKind)
	assert.Equal(t, "db", svc.testConfig["host"])
	assert.JSONEq(t, `{"status":"success","data":{"message":"success"}}`, rec.Body.String())
}

func TestConnectionsHandler_TestConnection_FailureStays200(t *testing.T) {
	svc := &mockConnectionService{testResult: models.TestResult{Status: models.StatusError, Message: "no route to host"}}

	rec := do(newConnectionsMux(t, svc), http.MethodPost, "/api/connections/test", `{"engine":"mysql","config":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"no route to host"}`, rec.Body.String())
}

func TestConnectionsHandler_TestConnection_BadRequests(t *testing.T) {
	mux := newConnectionsMux(t, &mockConnectionService{})

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/connections/test", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/connections/test", `{"config":{}}`).Code)
}

func TestConnectionsHandler_ExecuteQuery(t *testing.T) {
	svc := &mockConnectionService{queryResult: models.NewSuccessResult(
		[]map[string]any{{"n": 1}},
		[]models.Field{{ColumnName: "n", ColumnType: models.ColumnTypeInteger}},
	)}

	rec := do(newConnectionsMux(t, svc), http.MethodPost, "/api/connections/42/query", `{"query":"SELECT 1 AS n"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(42), svc.queryID)
	assert.Equal(t, "SELECT 1 AS n", svc.querySQL)
	assert.JSONEq(t,
		`{"status":"success","message":"success","rows":[{"n":1}],"fields":[{"columnName":"n","columnType":"integer"}]}`,
		rec.Body.String())
}

func TestConnectionsHandler_ExecuteQuery_Validation(t *testing.T) {
	mux := newConnectionsMux(t, &mockConnectionService{})

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/connections/abc/query", `{"query":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/connections/0/query", `{"query":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/connections/1/query", `{"query":"  "}`).Code)
}

func TestConnectionsHandler_RemoveHandle(t *testing.T) {
	svc := &mockConnectionService{}
	mux := newConnectionsMux(t, svc)

	rec := do(mux, http.MethodDelete, "/api/connections/7/handle", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{7}, svc.removed)

	svc.removeErr = errors.New("close failed")
	rec = do(mux, http.MethodDelete, "/api/connections/7/handle", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
