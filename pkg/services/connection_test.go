package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/crypto"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

type connectionTestContext struct {
	factory  *fakeFactory
	store    *fakeStore
	registry *datasource.ConnectionRegistry
	service  ConnectionService
}

func setupConnectionTest(t *testing.T, factory *fakeFactory, closeOnRemove bool) *connectionTestContext {
	t.Helper()

	codec, err := crypto.NewConfigCodec("")
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	resolver := datasource.NewResolver("")
	store := &fakeStore{entries: map[int64]storedEntry{
		1: {kind: models.EnginePostgres, config: map[string]any{"host": "pg.internal", "user": "app"}},
		2: {kind: models.EngineMySQL, config: map[string]any{"host": "mysql.internal", "user": "app"}},
		3: {kind: models.EngineSnowflake, config: map[string]any{"account": "acme"}},
		4: {kind: models.EngineCockroachDB, config: map[string]any{"host": "crdb", "user": "u", "password": "p", "database": "d"}},
	}}
	registry := datasource.NewConnectionRegistry(resolver, factory, store, codec.Decode, logger)

	return &connectionTestContext{
		factory:  factory,
		store:    store,
		registry: registry,
		service:  NewConnectionService(resolver, factory, registry, datasource.NewNormalizer(), closeOnRemove, logger),
	}
}

func TestTestConnection_SuccessReleasesHandleOnce(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)

	config := map[string]any{"host": "pg.internal", "user": "app"}
	result := tc.service.TestConnection(context.Background(), models.EnginePostgres, config)

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, map[string]string{"message": "success"}, result.Data)

	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, []string{"SELECT 1"}, handles[0].statements())
	assert.Equal(t, int32(1), handles[0].closed.Load())

	assert.False(t, tc.registry.Exists(1), "test path must not touch the registry")
	assert.Equal(t, 0, tc.registry.Len())
}

func TestTestConnection_OracleUsesDualProbe(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)

	result := tc.service.TestConnection(context.Background(), models.EngineOracle, map[string]any{"host": "ora"})
	require.Equal(t, models.StatusSuccess, result.Status)

	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, []string{"SELECT 1 FROM DUAL"}, handles[0].statements())
}

func TestTestConnection_ProbeFailureReleasesHandleOnce(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{runErr: errors.New("password authentication failed")}, true)

	result := tc.service.TestConnection(context.Background(), models.EnginePostgres, map[string]any{"host": "h"})

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, "password authentication failed", result.Message)
	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, int32(1), handles[0].closed.Load())
}

func TestTestConnection_ProbePanicReleasesHandleOnce(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{panicRun: true}, true)

	result := tc.service.TestConnection(context.Background(), models.EngineDuckDB, map[string]any{})

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, datasource.GenericErrorMessage, result.Message)
	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, int32(1), handles[0].closed.Load())
}

func TestTestConnection_ConstructionFailure(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{openErr: errors.New("dial tcp: connection refused")}, true)

	result := tc.service.TestConnection(context.Background(), models.EngineMySQL, map[string]any{"host": "h"})

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, "connection could not be created: dial tcp: connection refused", result.Message)
	assert.Empty(t, tc.factory.handles())
}

func TestTestConnection_CockroachWithoutHostFailsBeforeOpen(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)

	result := tc.service.TestConnection(context.Background(), models.EngineCockroachDB, map[string]any{"user": "u"})

	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Message, "connection could not be created")
	assert.Empty(t, tc.factory.received)
}

func TestTestConnection_DoesNotMutateCallerConfig(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)

	config := map[string]any{"host": "crdb", "user": "u", "password": "p", "database": "d"}
	result := tc.service.TestConnection(context.Background(), models.EngineCockroachDB, config)
	require.Equal(t, models.StatusSuccess, result.Status)

	_, injected := config[datasource.ConnectionStringKey]
	assert.False(t, injected)
	require.Len(t, tc.factory.received, 1)
	assert.Contains(t, tc.factory.received[0].Config[datasource.ConnectionStringKey], "sslmode=verify-full")
}

func TestExecuteQuery_NamedRows(t *testing.T) {
	raw := datasource.NamedRows{
		Rows: []map[string]any{
			{"id": int64(1), "name": "alpha"},
			{"id": int64(2), "name": nil},
		},
		Fields: []string{"id", "name"},
	}
	tc := setupConnectionTest(t, &fakeFactory{raw: raw}, true)

	result := tc.service.ExecuteQuery(context.Background(), 1, "SELECT id, name FROM t")

	require.Equal(t, models.StatusSuccess, result.Status)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, []models.Field{
		{ColumnName: "id", ColumnType: models.ColumnTypeInteger},
		{ColumnName: "name", ColumnType: models.ColumnTypeString},
	}, result.Fields)

	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, []string{"SELECT id, name FROM t"}, handles[0].statements())
	assert.True(t, tc.service.ConnectionExists(1))
}

func TestExecuteQuery_ReusesHandle(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{raw: datasource.Records{}}, true)

	for i := 0; i < 3; i++ {
		result := tc.service.ExecuteQuery(context.Background(), 3, "SELECT 1")
		require.Equal(t, models.StatusSuccess, result.Status)
	}
	assert.Len(t, tc.factory.handles(), 1)
	assert.Equal(t, int32(1), tc.store.loads.Load())
}

func TestExecuteQuery_ConcurrentColdCallsOpenOnce(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{raw: datasource.Records{}}, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tc.service.ExecuteQuery(context.Background(), 3, "SELECT 1")
		}()
	}
	wg.Wait()

	assert.Len(t, tc.factory.handles(), 1)
	assert.Equal(t, int32(1), tc.store.loads.Load())
}

func TestExecuteQuery_ExecutionErrorHasEmptyRowsAndFields(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{runErr: errors.New(`relation "missing" does not exist`)}, true)

	result := tc.service.ExecuteQuery(context.Background(), 1, "SELECT * FROM missing")

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, `relation "missing" does not exist`, result.Message)

	b, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"relation \"missing\" does not exist","rows":[],"fields":[]}`, string(b))
}

func TestExecuteQuery_UnknownConnection(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)

	result := tc.service.ExecuteQuery(context.Background(), 99, "SELECT 1")

	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Message, "not found")
	assert.Empty(t, result.Rows)
	assert.False(t, tc.service.ConnectionExists(99))
}

func TestExecuteQuery_ConstructionFailureLeavesNoEntry(t *testing.T) {
	factory := &fakeFactory{openErr: errors.New("unreachable")}
	tc := setupConnectionTest(t, factory, true)

	result := tc.service.ExecuteQuery(context.Background(), 1, "SELECT 1")
	assert.Equal(t, models.StatusError, result.Status)
	assert.False(t, tc.service.ConnectionExists(1))

	factory.mu.Lock()
	factory.openErr = nil
	factory.raw = datasource.NamedRows{}
	factory.mu.Unlock()

	result = tc.service.ExecuteQuery(context.Background(), 1, "SELECT 1")
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.True(t, tc.service.ConnectionExists(1))
}

func TestExecuteQuery_ShapeMismatchIsError(t *testing.T) {
	// mysql expects typed rows
	tc := setupConnectionTest(t, &fakeFactory{raw: datasource.Records{Records: []datasource.Record{{Keys: []string{"a"}, Values: map[string]any{"a": 1}}}}}, true)

	result := tc.service.ExecuteQuery(context.Background(), 2, "SELECT 1")

	assert.Equal(t, models.StatusError, result.Status)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, result.Fields)
}

func TestExecuteQuery_PanicIsRecovered(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{panicRun: true}, true)

	result := tc.service.ExecuteQuery(context.Background(), 1, "SELECT 1")

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, datasource.GenericErrorMessage, result.Message)
}

func TestExecuteQuery_ZeroRowsEveryBranch(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		raw  datasource.RawResult
	}{
		{"pg named", 1, datasource.NamedRows{Fields: []string{"id"}}},
		{"mysql typed", 2, datasource.TypedRows{Columns: []datasource.NativeColumn{{Name: "id", TypeName: "INT"}}}},
		{"warehouse records", 3, datasource.Records{}},
		{"cockroach nil", 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := setupConnectionTest(t, &fakeFactory{raw: tt.raw}, true)

			result := tc.service.ExecuteQuery(context.Background(), tt.id, "SELECT id FROM empty")

			assert.Equal(t, models.StatusSuccess, result.Status)
			assert.NotNil(t, result.Rows)
			assert.Empty(t, result.Rows)
			assert.NotNil(t, result.Fields)
			assert.Empty(t, result.Fields)
		})
	}
}

func TestAddConnection_Idempotent(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)
	ctx := context.Background()

	require.NoError(t, tc.service.AddConnection(ctx, 10, models.EngineSQLite, map[string]any{"filename": ":memory:"}))
	require.NoError(t, tc.service.AddConnection(ctx, 10, models.EngineSQLite, map[string]any{"filename": "other.db"}))

	assert.True(t, tc.service.ConnectionExists(10))
	handles := tc.factory.handles()
	require.Len(t, handles, 1)
	assert.Equal(t, models.EngineSQLite, handles[0].Identity().Engine)
}

func TestAddConnection_FailurePropagates(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{openErr: errBoom}, true)

	err := tc.service.AddConnection(context.Background(), 10, models.EngineMySQL, map[string]any{})
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, tc.service.ConnectionExists(10))
}

func TestRemoveConnection_ClosePolicy(t *testing.T) {
	for _, closeOnRemove := range []bool{true, false} {
		tc := setupConnectionTest(t, &fakeFactory{}, closeOnRemove)
		ctx := context.Background()

		require.NoError(t, tc.service.AddConnection(ctx, 5, models.EngineDuckDB, nil))
		require.NoError(t, tc.service.RemoveConnection(5))
		assert.False(t, tc.service.ConnectionExists(5))

		handles := tc.factory.handles()
		require.Len(t, handles, 1)
		want := int32(0)
		if closeOnRemove {
			want = 1
		}
		assert.Equal(t, want, handles[0].closed.Load(), "closeOnRemove=%v", closeOnRemove)

		// Absent id is a no-op.
		require.NoError(t, tc.service.RemoveConnection(5))
	}
}

func TestRefreshConnection_ReloadsOnNextQuery(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{raw: datasource.Records{}}, true)
	ctx := context.Background()

	tc.service.ExecuteQuery(ctx, 3, "SELECT 1")
	require.NoError(t, tc.service.RefreshConnection(3))
	assert.False(t, tc.service.ConnectionExists(3))

	tc.service.ExecuteQuery(ctx, 3, "SELECT 1")
	assert.Len(t, tc.factory.handles(), 2)
	assert.Equal(t, int32(2), tc.store.loads.Load())
}

func TestListEngines(t *testing.T) {
	tc := setupConnectionTest(t, &fakeFactory{}, true)
	engines := tc.service.ListEngines()
	require.Len(t, engines, 1)
	assert.Equal(t, "pg", engines[0].Driver)
}
