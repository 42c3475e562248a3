package bigquery

import (
	"encoding/json"
	"fmt"

	"github.com/advanced-rising/vanillameta/pkg/adapters/datasource"
	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// Config contains BigQuery project and credential options.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	Location  string `mapstructure:"location"`
	Dataset   string `mapstructure:"dataset"`

	// CredentialsJSON is a service account key. It may arrive as a JSON
	// string or as an already-decoded object.
	CredentialsJSON []byte `mapstructure:"-"`
}

// FromMap decodes a BigQuery config. The project defaults to the one named
// in the service account key.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}
	if err := datasource.DecodeConfig(config, cfg); err != nil {
		return nil, err
	}

	switch creds := config["credentials"].(type) {
	case nil:
	case string:
		cfg.CredentialsJSON = []byte(creds)
	case map[string]any:
		b, err := json.Marshal(creds)
		if err != nil {
			return nil, fmt.Errorf("%w: credentials: %v", apperrors.ErrInvalidConfig, err)
		}
		cfg.CredentialsJSON = b
	default:
		return nil, fmt.Errorf("%w: credentials has unsupported type %T", apperrors.ErrInvalidConfig, creds)
	}

	if cfg.ProjectID == "" && len(cfg.CredentialsJSON) > 0 {
		var key struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal(cfg.CredentialsJSON, &key); err != nil {
			return nil, fmt.Errorf("%w: credentials are not valid JSON", apperrors.ErrInvalidConfig)
		}
		cfg.ProjectID = key.ProjectID
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: project_id is required", apperrors.ErrInvalidConfig)
	}
	return cfg, nil
}
