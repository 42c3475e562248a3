package datasource

import (
	"sync"

	"github.com/advanced-rising/vanillameta/pkg/models"
)

// EngineInfo describes an engine for UI discovery.
type EngineInfo struct {
	Kind        models.EngineKind `json:"kind"`
	Driver      string            `json:"driver"`
	Adapter     bool              `json:"adapter"`
	DisplayName string            `json:"display_name"`
	ProbeSQL    string            `json:"probe_sql"`
	Available   bool              `json:"available"` // false when the engine package is not linked in
}

// Registration is what each engine package registers from its init().
type Registration struct {
	Name string // driver or adapter identifier, e.g. "pg", "snowflake"
	Open Opener
}

// ErrorMessageFunc extracts the most specific message a driver error carries.
// It returns false when err is not one of the driver's error types.
type ErrorMessageFunc func(err error) (string, bool)

var (
	registryMu sync.RWMutex
	drivers    = make(map[string]Registration)
	adapters   = make(map[string]Registration)
	extractors []ErrorMessageFunc
)

// RegisterDriver registers a standard driver. Called from engine init() functions.
func RegisterDriver(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	drivers[reg.Name] = reg
}

// RegisterAdapter registers a dedicated warehouse adapter. Adapters live in a
// table of their own; they are never looked up as standard drivers.
func RegisterAdapter(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[reg.Name] = reg
}

// RegisterErrorMessage adds a driver-specific error message extractor.
func RegisterErrorMessage(fn ErrorMessageFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	extractors = append(extractors, fn)
}

func lookup(name string, adapter bool) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if adapter {
		reg, ok := adapters[name]
		return reg, ok
	}
	reg, ok := drivers[name]
	return reg, ok
}

// IsRegistered reports whether a driver (or adapter) name has an opener.
func IsRegistered(name string, adapter bool) bool {
	_, ok := lookup(name, adapter)
	return ok
}

// RegisteredEngines returns one entry per known engine kind, in a stable order.
// Used by the API to tell the UI which engines can be connected.
func RegisteredEngines() []EngineInfo {
	result := make([]EngineInfo, 0, len(models.KnownEngineKinds()))
	for _, kind := range models.KnownEngineKinds() {
		r := routeFor(kind)
		result = append(result, EngineInfo{
			Kind:        kind,
			Driver:      r.name,
			Adapter:     r.adapter,
			DisplayName: r.displayName,
			ProbeSQL:    ProbeSQL(kind),
			Available:   IsRegistered(r.name, r.adapter),
		})
	}
	return result
}

func errorExtractors() []ErrorMessageFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]ErrorMessageFunc, len(extractors))
	copy(out, extractors)
	return out
}
