package api

import (
	"encoding/json"
	"strings"

	"trackflow-cli/internal/model"
)

// Nullable is a patch field with three states: unset (omitted from the body),
// explicitly null, or a value. Pair it with the `omitzero` json option.
type Nullable[T any] struct {
	set  bool
	null bool
	v    T
}

func Some[T any](v T) Nullable[T] { return Nullable[T]{set: true, v: v} }

func Null[T any]() Nullable[T] { return Nullable[T]{set: true, null: true} }

func (n Nullable[T]) IsZero() bool { return !n.set }

func (n Nullable[T]) IsNull() bool { return n.set && n.null }

func (n Nullable[T]) Get() (T, bool) { return n.v, n.set && !n.null }

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

// OptString sends blank text as null so a cleared field is not silently kept.
func OptString(s string) Nullable[string] {
	if strings.TrimSpace(s) == "" {
		return Null[string]()
	}
	return Some(s)
}

func OptDate(d *model.Date) Nullable[model.Date] {
	if d == nil || d.IsZero() {
		return Null[model.Date]()
	}
	return Some(*d)
}
