package models

import "time"

// StoredConnection is a database configuration persisted by the configuration
// store. SerializedConfig holds the engine parameters in their persisted form
// (JSON, optionally sealed) and must be decoded before use.
type StoredConnection struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Engine           EngineKind `json:"engine"`
	SerializedConfig string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
