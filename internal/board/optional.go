package board

import (
	"bytes"
	"encoding/json"
)

// Optional is a patch field with three states: absent (no change), null
// (clear the field) and set. The zero value is absent. When decoded from
// JSON, a missing key stays absent and an explicit null clears.
type Optional[T any] struct {
	present bool
	valid   bool
	value   T
}

// Set returns an Optional carrying v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{present: true, valid: true, value: v}
}

// Clear returns an Optional that clears the field.
func Clear[T any]() Optional[T] {
	return Optional[T]{present: true}
}

// Present reports whether the field was supplied at all.
func (o Optional[T]) Present() bool {
	return o.present
}

// Get returns the value and whether one was set. A cleared field returns the
// zero value and false.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.valid
}

// Ptr returns a pointer to the value, or nil when cleared or absent.
func (o Optional[T]) Ptr() *T {
	if !o.valid {
		return nil
	}
	v := o.value
	return &v
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.valid, o.value = false, zero
		return nil
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
