package canonical

import (
	"sync"
	"time"
)

// Validator reports whether a value satisfies a data-type tag.
type Validator func(value interface{}) bool

// Registry maps data-type tags to validators. It is an explicit instance
// passed to whoever validates rules, never package-level state, so tests can
// isolate their registrations.
type Registry struct {
	mu         sync.RWMutex
	validators map[DataType]Validator
	fallback   Validator
}

// NewRegistry creates a registry pre-loaded with the built-in validators and
// a permissive fallback for unknown tags.
func NewRegistry() *Registry {
	r := &Registry{
		validators: make(map[DataType]Validator),
		fallback:   func(interface{}) bool { return true },
	}
	r.Register(TypeString, isString)
	r.Register(TypeInteger, isInteger)
	r.Register(TypeFloat, isFloat)
	r.Register(TypeBoolean, isBoolean)
	r.Register(TypeDate, isTemporal)
	r.Register(TypeDateTime, isTemporal)
	r.Register(TypeArray, isArray)
	r.Register(TypeObject, isObject)
	return r
}

// Register installs a validator for a tag. The last registration wins.
func (r *Registry) Register(tag DataType, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[tag] = v
}

// SetFallback replaces the validator used for unknown tags.
func (r *Registry) SetFallback(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = v
}

// Has reports whether a validator is registered for the tag.
func (r *Registry) Has(tag DataType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.validators[tag]
	return ok
}

// Validate never fails: unknown tags go through the fallback.
func (r *Registry) Validate(tag DataType, value interface{}) bool {
	r.mu.RLock()
	v, ok := r.validators[tag]
	fb := r.fallback
	r.mu.RUnlock()
	if !ok {
		return fb(value)
	}
	return v(value)
}

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func isBoolean(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

// isInteger accepts integral values. Booleans are excluded even though some
// decoders surface them as numbers.
func isInteger(v interface{}) bool {
	switch n := v.(type) {
	case bool:
		return false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return n == float32(int64(n))
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

func isFloat(v interface{}) bool {
	switch v.(type) {
	case bool:
		return false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// isTemporal accepts either a pre-parsed time or its string form; format
// checking belongs to DATE_FORMAT rules, not the type gate.
func isTemporal(v interface{}) bool {
	switch v.(type) {
	case string, time.Time:
		return true
	default:
		return false
	}
}

func isArray(v interface{}) bool {
	switch v.(type) {
	case []interface{}, []string:
		return true
	default:
		return false
	}
}

func isObject(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return true
	default:
		return false
	}
}
