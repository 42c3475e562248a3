package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

type fakeHandle struct {
	id       datasource.Identity
	raw      datasource.RawResult
	runErr   error
	panicRun bool
	closeErr error

	mu     sync.Mutex
	sql    []string
	closed atomic.Int32
}

func (h *fakeHandle) Identity() datasource.Identity { return h.id }

func (h *fakeHandle) Run(_ context.Context, sqlText string) (datasource.RawResult, error) {
	h.mu.Lock()
	h.sql = append(h.sql, sqlText)
	h.mu.Unlock()
	if h.panicRun {
		panic("driver exploded")
	}
	return h.raw, h.runErr
}

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	return h.closeErr
}

func (h *fakeHandle) statements() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sql...)
}

// fakeFactory opens fakeHandles configured from its fields.
type fakeFactory struct {
	raw      datasource.RawResult
	runErr   error
	panicRun bool
	openErr  error

	mu       sync.Mutex
	opened   []*fakeHandle
	received []datasource.Resolution
}

func (f *fakeFactory) Open(_ context.Context, res datasource.Resolution) (datasource.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, res)
	if f.openErr != nil {
		return nil, f.openErr
	}
	h := &fakeHandle{id: res.Identity(), raw: f.raw, runErr: f.runErr, panicRun: f.panicRun}
	f.opened = append(f.opened, h)
	return h, nil
}

func (f *fakeFactory) Engines() []datasource.EngineInfo {
	return []datasource.EngineInfo{{Kind: models.EnginePostgres, Driver: "pg", Available: true}}
}

func (f *fakeFactory) handles() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle(nil), f.opened...)
}

// fakeStore serves JSON configs keyed by id.
type fakeStore struct {
	entries map[int64]storedEntry
	loads   atomic.Int32
}

type storedEntry struct {
	kind   models.EngineKind
	config map[string]any
}

func (s *fakeStore) LoadConfig(_ context.Context, id int64) (models.EngineKind, string, error) {
	s.loads.Add(1)
	e, ok := s.entries[id]
	if !ok {
		return "", "", apperrors.ErrNotFound
	}
	b, err := json.Marshal(e.config)
	if err != nil {
		return "", "", err
	}
	return e.kind, string(b), nil
}

// fakeRepo is an in-memory DatabaseRepository.
type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.StoredConnection
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[int64]*models.StoredConnection)}
}

func (r *fakeRepo) Create(_ context.Context, conn *models.StoredConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Name == conn.Name {
			return apperrors.ErrConflict
		}
	}
	r.nextID++
	conn.ID = r.nextID
	stored := *conn
	r.rows[conn.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*models.StoredConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *conn
	return &c, nil
}

func (r *fakeRepo) List(_ context.Context) ([]*models.StoredConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.StoredConnection
	for id := int64(1); id <= r.nextID; id++ {
		if conn, ok := r.rows[id]; ok {
			c := *conn
			c.SerializedConfig = ""
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateConfig(_ context.Context, id int64, serialized string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	conn.SerializedConfig = serialized
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeRepo) LoadConfig(ctx context.Context, id int64) (models.EngineKind, string, error) {
	conn, err := r.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return conn.Engine, conn.SerializedConfig, nil
}

// recordingConnections records registry admin calls made by DatabaseService.
type recordingConnections struct {
	ConnectionService

	refreshed []int64
	removed   []int64
	err       error
}

func (c *recordingConnections) RefreshConnection(id int64) error {
	c.refreshed = append(c.refreshed, id)
	return c.err
}

func (c *recordingConnections) RemoveConnection(id int64) error {
	c.removed = append(c.removed, id)
	return c.err
}

var errBoom = errors.New("boom")
