package actions

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrParametersNotAMap is returned when action params are not a map.
	ErrParametersNotAMap = errors.New("parameters must be a map")
	// ErrParameterNotFound is returned when a required parameter is not found.
	ErrParameterNotFound = errors.New("parameter not found")
	// ErrParameterTypeMismatch is returned when a parameter has an unexpected type.
	ErrParameterTypeMismatch = errors.New("parameter type mismatch")
	// ErrInvalidDurationFormat is returned when a duration parameter has invalid format.
	ErrInvalidDurationFormat = errors.New("invalid duration format")
)

// ParamExtractor reads typed values out of map-shaped action params, such as
// params that went through a JSON or YAML round trip.
type ParamExtractor struct {
	params map[string]any
}

// NewParamExtractor accepts map[string]any params. Nil params behave as an
// empty map.
func NewParamExtractor(params any) (*ParamExtractor, error) {
	switch p := params.(type) {
	case nil:
		return &ParamExtractor{params: map[string]any{}}, nil
	case map[string]any:
		return &ParamExtractor{params: p}, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrParametersNotAMap, params)
	}
}

func (p *ParamExtractor) lookup(key string, required bool) (any, bool, error) {
	val, exists := p.params[key]
	if !exists && required {
		return nil, false, fmt.Errorf("required parameter %q: %w", key, ErrParameterNotFound)
	}

	return val, exists, nil
}

// GetString extracts a string parameter.
func (p *ParamExtractor) GetString(key string, required bool) (string, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return "", err
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T: %w", key, val, ErrParameterTypeMismatch)
	}

	return str, nil
}

// GetInt extracts an integer parameter.
func (p *ParamExtractor) GetInt(key string, required bool, defaultVal int) (int, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return defaultVal, err
	}

	// JSON numbers decode as float64.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %T: %w", key, val, ErrParameterTypeMismatch)
	}
}

// GetBool extracts a boolean parameter.
func (p *ParamExtractor) GetBool(key string, required bool, defaultVal bool) (bool, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return defaultVal, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean, got %T: %w", key, val, ErrParameterTypeMismatch)
	}

	return b, nil
}

// GetDuration extracts a duration given as a string ("1m30s") or a number of seconds.
func (p *ParamExtractor) GetDuration(key string, required bool, defaultVal time.Duration) (time.Duration, error) {
	val, exists, err := p.lookup(key, required)
	if err != nil || !exists {
		return defaultVal, err
	}

	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w: %w", key, ErrInvalidDurationFormat, err)
		}

		return d, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf(
			"parameter %q must be a duration string or number, got %T: %w",
			key, val, ErrParameterTypeMismatch,
		)
	}
}
