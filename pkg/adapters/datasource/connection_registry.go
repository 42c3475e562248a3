package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/advanced-rising/vanillameta/pkg/logging"
	"github.com/advanced-rising/vanillameta/pkg/metrics"
	"github.com/advanced-rising/vanillameta/pkg/models"
)

// ConnectionRegistry holds one durable handle per connection id.
//
// Handles are created lazily by Get (loading the config from the store) or
// eagerly by Add, and live until Remove or Close. Population of a given id is
// serialized through a singleflight group, so concurrent first calls for the
// same id construct exactly one handle and load the config once.
//
// Remove bumps a per-id generation. A flight that was opening a handle when
// its id was removed closes that handle instead of registering it and starts
// over from the store.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	handles map[int64]Handle
	gens    map[int64]uint64
	group   singleflight.Group

	resolver *Resolver
	factory  HandleFactory
	store    ConfigStore
	decode   ConfigDecoder
	logger   *zap.Logger
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(resolver *Resolver, factory HandleFactory, store ConfigStore, decode ConfigDecoder, logger *zap.Logger) *ConnectionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionRegistry{
		handles:  make(map[int64]Handle),
		gens:     make(map[int64]uint64),
		resolver: resolver,
		factory:  factory,
		store:    store,
		decode:   decode,
		logger:   logger,
	}
}

// Exists reports whether a handle is registered for id.
func (r *ConnectionRegistry) Exists(id int64) bool {
	_, ok := r.lookup(id)
	return ok
}

// Add resolves config, opens a handle and registers it under id. If a handle
// already exists for id this is a no-op and the existing handle is kept.
// Construction failures are returned and leave no entry.
func (r *ConnectionRegistry) Add(ctx context.Context, id int64, kind models.EngineKind, config map[string]any) error {
	_, err := r.populate(ctx, id, func(context.Context) (Resolution, error) {
		return r.resolver.Resolve(kind, config)
	})
	return err
}

// Get returns the handle for id, loading its config from the store and
// opening a handle on first use.
func (r *ConnectionRegistry) Get(ctx context.Context, id int64) (Handle, error) {
	if h, ok := r.lookup(id); ok {
		return h, nil
	}
	return r.populate(ctx, id, r.loadResolution(id))
}

// Remove unregisters the handle for id and returns it, or nil when absent.
// The handle is not closed; that is the caller's decision. A handle still
// being opened for id is discarded rather than registered.
func (r *ConnectionRegistry) Remove(id int64) Handle {
	r.mu.Lock()
	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.gens[id]++
	n := len(r.handles)
	r.mu.Unlock()
	r.group.Forget(flightKey(id))

	if ok {
		metrics.SetRegistryHandles(n)
		r.logger.Info("removed connection handle", zap.Int64("connectionID", id))
	}
	return h
}

// Len returns the number of registered handles.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// IDs returns the registered connection ids in ascending order.
func (r *ConnectionRegistry) IDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Close closes every registered handle and empties the registry.
// Intended for process shutdown.
func (r *ConnectionRegistry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[int64]Handle)
	r.mu.Unlock()

	var errs []error
	for id, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection %d: %w", id, err))
		}
	}
	metrics.SetRegistryHandles(0)
	r.logger.Info("connection registry closed", zap.Int("handles", len(handles)))
	return errors.Join(errs...)
}

func (r *ConnectionRegistry) generation(id int64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gens[id]
}

func flightKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (r *ConnectionRegistry) lookup(id int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *ConnectionRegistry) loadResolution(id int64) func(context.Context) (Resolution, error) {
	return func(ctx context.Context) (Resolution, error) {
		kind, serialized, err := r.store.LoadConfig(ctx, id)
		if err != nil {
			return Resolution{}, fmt.Errorf("load config for connection %d: %w", id, err)
		}
		cfg, err := r.decode(serialized)
		if err != nil {
			return Resolution{}, fmt.Errorf("decode config for connection %d: %w", id, err)
		}
		return r.resolver.Resolve(kind, cfg)
	}
}

// maxPopulateAttempts bounds how often a flight restarts after its id was
// removed mid-open.
const maxPopulateAttempts = 3

// populate registers a handle for id unless one exists. Callers racing on the
// same id share one flight; the flight re-checks the map before resolving.
// The flight runs with the context of the caller that started it.
func (r *ConnectionRegistry) populate(ctx context.Context, id int64, resolve func(context.Context) (Resolution, error)) (Handle, error) {
	v, err, _ := r.group.Do(flightKey(id), func() (any, error) {
		for attempt := 1; attempt <= maxPopulateAttempts; attempt++ {
			h, stale, err := r.openOnce(ctx, id, resolve)
			if err != nil {
				return nil, err
			}
			if !stale {
				return h, nil
			}
		}
		return nil, fmt.Errorf("connection %d was removed while its handle was opening", id)
	})
	if err != nil {
		return nil, err
	}
	return v.(Handle), nil
}

// openOnce resolves and opens a handle for id and registers it. stale is true
// when id was removed while the handle was opening; that handle is closed.
func (r *ConnectionRegistry) openOnce(ctx context.Context, id int64, resolve func(context.Context) (Resolution, error)) (h Handle, stale bool, err error) {
	gen := r.generation(id)
	if h, ok := r.lookup(id); ok {
		return h, false, nil
	}

	res, err := resolve(ctx)
	if err != nil {
		return nil, false, err
	}

	h, err = r.factory.Open(ctx, res)
	metrics.ObserveHandleOpen(res.Kind.String(), err)
	if err != nil {
		r.logger.Error("failed to open connection handle",
			zap.Int64("connectionID", id),
			zap.String("engine", res.Kind.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, false, err
	}

	r.mu.Lock()
	if r.gens[id] != gen {
		r.mu.Unlock()
		r.discard(id, h, "connection removed while opening")
		return nil, true, nil
	}
	// A flight started after a Remove may have registered first.
	if existing, ok := r.handles[id]; ok {
		r.mu.Unlock()
		r.discard(id, h, "connection registered concurrently")
		return existing, false, nil
	}
	r.handles[id] = h
	n := len(r.handles)
	r.mu.Unlock()
	metrics.SetRegistryHandles(n)

	r.logger.Info("opened connection handle",
		zap.Int64("connectionID", id),
		zap.String("engine", res.Kind.String()),
		zap.String("driver", res.Client),
		zap.Int("totalHandles", n),
	)
	return h, false, nil
}

func (r *ConnectionRegistry) discard(id int64, h Handle, reason string) {
	if err := h.Close(); err != nil {
		r.logger.Warn("failed to close discarded connection handle",
			zap.Int64("connectionID", id),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
	r.logger.Debug("discarded connection handle", zap.Int64("connectionID", id), zap.String("reason", reason))
}
