// Package helpers holds fail-fast guards used by constructors to reject missing dependencies.
// A violated guard is a wiring bug, so they panic instead of returning errors.
package helpers

import (
	"reflect"
	"time"
)

// StrPanic returns s, or panics with msg when s is empty.
func StrPanic(s string, msg string) string {
	if s == "" {
		panic(msg)
	}
	return s
}

// NilPanic returns v, or panics with msg when v is nil. Typed nils (pointer, slice, map,
// chan, func, interface) count as nil.
func NilPanic[T any](v T, msg string) T {
	if isNil(v) {
		panic(msg)
	}
	return v
}

// PositivePanic returns d, or panics with msg when d <= 0.
func PositivePanic(d time.Duration, msg string) time.Duration {
	if d <= 0 {
		panic(msg)
	}
	return d
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
