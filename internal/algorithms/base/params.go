package base

import (
	"fmt"

	"artifact-detector/internal/errs"
)

// IntParam reads key from params. JSON-decoded numbers arrive as float64
// and are accepted when integral.
func IntParam(params map[string]interface{}, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, true, fmt.Errorf("%s must be an integer, got %v: %w", key, v, errs.ErrInvalidArgument)
		}
		return int(v), true, nil
	default:
		return 0, true, fmt.Errorf("%s must be an integer, got %T: %w", key, raw, errs.ErrInvalidArgument)
	}
}

func BoolParam(params map[string]interface{}, key string) (bool, bool, error) {
	raw, ok := params[key]
	if !ok {
		return false, false, nil
	}

	v, isBool := raw.(bool)
	if !isBool {
		return false, true, fmt.Errorf("%s must be a boolean, got %T: %w", key, raw, errs.ErrInvalidArgument)
	}
	return v, true, nil
}

func RangeCheck(key string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d: %w", key, lo, hi, v, errs.ErrInvalidArgument)
	}
	return nil
}

// UnknownKeys rejects parameters the algorithm does not define.
func UnknownKeys(params map[string]interface{}, known ...string) error {
	for k := range params {
		found := false
		for _, name := range known {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown parameter %q: %w", k, errs.ErrInvalidArgument)
		}
	}
	return nil
}
