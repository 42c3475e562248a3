package datasource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/advanced-rising/vanillameta/pkg/apperrors"
)

// DecodeConfig decodes an engine config map into out, a pointer to a struct
// with mapstructure tags. Numbers and booleans typed as strings are accepted.
// Keys without a matching field are ignored.
func DecodeConfig(cfg map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create config decoder: %w", err)
	}
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	return nil
}

// ConfigString returns cfg[key] as a string, or "" when absent or not a string.
func ConfigString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// ConfigInt reads an integer that may have been decoded from JSON (float64),
// set directly (int), or typed into a form (string). Absent keys yield def.
func ConfigInt(cfg map[string]any, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidConfig, key)
		}
		return int(i), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", apperrors.ErrInvalidConfig, key)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", apperrors.ErrInvalidConfig, key, v)
	}
}
