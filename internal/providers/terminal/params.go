package terminal

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidParams, fmt.Sprintf(format, args...))
}

func requireString(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", invalid("%s is required", key)
	}
	return v, nil
}

func optionalString(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

// optionalInt accepts JSON numbers and Go ints. Missing keys yield def.
func optionalInt(params map[string]interface{}, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint16 {
			return 0, invalid("%s must be a whole number between 0 and 65535", key)
		}
		return int(v), nil
	case int:
		if v < 0 || v > math.MaxUint16 {
			return 0, invalid("%s must be between 0 and 65535", key)
		}
		return v, nil
	default:
		return 0, invalid("%s must be a number", key)
	}
}

func requireInt(params map[string]interface{}, key string) (int, error) {
	if _, ok := params[key]; !ok {
		return 0, invalid("%s is required", key)
	}
	return optionalInt(params, key, 0)
}

func requireBool(params map[string]interface{}, key string) (bool, error) {
	v, ok := params[key].(bool)
	if !ok {
		return false, invalid("%s must be a boolean", key)
	}
	return v, nil
}

// inputBytes reads "data" as base64, falling back to the raw "text" field.
func inputBytes(params map[string]interface{}) ([]byte, error) {
	if data, ok := params["data"].(string); ok {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, invalid("data is not valid base64: %v", err)
		}
		return decoded, nil
	}
	if text, ok := params["text"].(string); ok {
		return []byte(text), nil
	}
	return nil, invalid("data or text is required")
}
