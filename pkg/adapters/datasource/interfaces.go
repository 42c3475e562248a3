package datasource

import (
	"context"

	"github.com/advanced-rising/vanillameta/pkg/models"
)

// Identity is what a handle reports about itself: the engine it is bound to,
// the driver or adapter name it was opened with, and whether that name refers
// to a dedicated warehouse adapter rather than a standard driver.
type Identity struct {
	Engine  models.EngineKind `json:"engine"`
	Driver  string            `json:"driver"`
	Adapter bool              `json:"adapter"`
}

// Handle is a live, engine-bound database client capable of running raw SQL.
type Handle interface {
	// Identity reports the engine and driver the handle was opened with.
	Identity() Identity

	// Run executes sqlText verbatim and returns the driver's raw result.
	Run(ctx context.Context, sqlText string) (RawResult, error)

	// Close releases the underlying resources.
	Close() error
}

// Opener constructs a handle from an effective (resolved) config.
// The identity is passed through so a driver serving several engines
// (pg serves both PostgreSQL and CockroachDB) reports the right one.
type Opener func(ctx context.Context, id Identity, config map[string]any) (Handle, error)

// ConfigStore is the external store that owns persisted connection configs.
// LoadConfig must return an error wrapping apperrors.ErrNotFound for unknown ids.
type ConfigStore interface {
	LoadConfig(ctx context.Context, id int64) (models.EngineKind, string, error)
}

// ConfigDecoder turns a persisted config into engine parameters.
type ConfigDecoder func(serialized string) (map[string]any, error)

// HandleFactory opens handles for resolved configs.
type HandleFactory interface {
	// Open constructs a handle for the resolution.
	Open(ctx context.Context, res Resolution) (Handle, error)

	// Engines lists every known engine and whether it is compiled in.
	Engines() []EngineInfo
}
