// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// NA is the textual form of an unavailable value in tabular output.
const NA = "NA"

type optionalValue interface {
	int | float64 | string
}

// Optional holds a value that may be unavailable. The zero value is
// unavailable, which is distinct from a present zero.
type Optional[T optionalValue] struct {
	value T
	ok    bool
}

// Some returns an available Optional holding v.
func Some[T optionalValue](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// Unavailable returns the sentinel Optional.
func Unavailable[T optionalValue]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is available.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsAvailable reports whether o holds a value.
func (o Optional[T]) IsAvailable() bool {
	return o.ok
}

// String renders the value, or NA when unavailable.
func (o Optional[T]) String() string {
	if !o.ok {
		return NA
	}
	switch v := any(o.value).(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	}
	return fmt.Sprint(o.value)
}

// MarshalJSON encodes an unavailable value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as unavailable.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML encodes an unavailable value as null.
func (o Optional[T]) MarshalYAML() (any, error) {
	if !o.ok {
		return nil, nil
	}
	return o.value, nil
}

// Value implements driver.Valuer so an unavailable value is stored as NULL.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.ok {
		return nil, nil
	}
	switch v := any(o.value).(type) {
	case int:
		return int64(v), nil
	case float64, string:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported optional type %T", o.value)
}
