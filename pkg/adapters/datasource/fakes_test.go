package datasource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// fakeHandle is a Handle that returns a canned result.
type fakeHandle struct {
	id      Identity
	result  RawResult
	err     error
	closed  atomic.Int32
	serial  int
	lastSQL string
}

func (h *fakeHandle) Identity() Identity { return h.id }

func (h *fakeHandle) Run(ctx context.Context, sqlText string) (RawResult, error) {
	h.lastSQL = sqlText
	return h.result, h.err
}

func (h *fakeHandle) Close() error {
	h.closed.Add(1)
	return nil
}

// fakeFactory opens fakeHandles and counts calls.
type fakeFactory struct {
	mu       sync.Mutex
	opens    int
	delay    time.Duration
	OpenErr  error
	Received []Resolution
	opened   []*fakeHandle
	// onOpen runs after a handle is created, outside the lock.
	onOpen func(serial int)
}

func (f *fakeFactory) Open(ctx context.Context, res Resolution) (Handle, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.opens++
	f.Received = append(f.Received, res)
	if f.OpenErr != nil {
		f.mu.Unlock()
		return nil, f.OpenErr
	}
	h := &fakeHandle{id: res.Identity(), serial: f.opens}
	f.opened = append(f.opened, h)
	hook := f.onOpen
	f.mu.Unlock()

	if hook != nil {
		hook(h.serial)
	}
	return h, nil
}

func (f *fakeFactory) Engines() []EngineInfo { return nil }

func (f *fakeFactory) openedHandles() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle(nil), f.opened...)
}

func (f *fakeFactory) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// fakeStore serves configs from a map and counts loads.
type fakeStore struct {
	loads   atomic.Int32
	configs map[int64]storedConfig
	Err     error
}

type storedConfig struct {
	kind       models.EngineKind
	serialized string
}

func (s *fakeStore) LoadConfig(ctx context.Context, id int64) (models.EngineKind, string, error) {
	s.loads.Add(1)
	if s.Err != nil {
		return "", "", s.Err
	}
	c, ok := s.configs[id]
	if !ok {
		return "", "", apperrors.ErrNotFound
	}
	return c.kind, c.serialized, nil
}

func rawDecoder(serialized string) (map[string]any, error) {
	if serialized == "" {
		return nil, errors.New("empty config")
	}
	return map[string]any{"raw": serialized}, nil
}
