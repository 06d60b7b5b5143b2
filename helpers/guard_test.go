package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrPanic(t *testing.T) {
	t.Run("empty_panics", func(t *testing.T) {
		assert.PanicsWithValue(t, "address is required", func() {
			StrPanic("", "address is required")
		})
	})
	t.Run("non_empty_returns_value", func(t *testing.T) {
		require.Equal(t, "http://pi:5000", StrPanic("http://pi:5000", "address is required"))
	})
}

func TestNilPanic(t *testing.T) {
	t.Run("nil_interface_panics", func(t *testing.T) {
		var v interface{}
		assert.PanicsWithValue(t, "logger is required", func() {
			NilPanic(v, "logger is required")
		})
	})
	t.Run("nil_func_panics", func(t *testing.T) {
		var f func(string) int
		assert.PanicsWithValue(t, "factory is required", func() {
			NilPanic(f, "factory is required")
		})
	})
	t.Run("nil_pointer_panics", func(t *testing.T) {
		var p *int
		assert.PanicsWithValue(t, "pointer is required", func() {
			NilPanic(p, "pointer is required")
		})
	})
	t.Run("non_nil_returns_value", func(t *testing.T) {
		m := map[string]int{"a": 1}
		require.Equal(t, m, NilPanic(m, "map is required"))
	})
	t.Run("zero_int_is_not_nil", func(t *testing.T) {
		require.Equal(t, 0, NilPanic(0, "int is required"))
	})
}

func TestPositivePanic(t *testing.T) {
	assert.PanicsWithValue(t, "timeout must be positive", func() {
		PositivePanic(0, "timeout must be positive")
	})
	assert.PanicsWithValue(t, "timeout must be positive", func() {
		PositivePanic(-time.Second, "timeout must be positive")
	})
	assert.Equal(t, 2*time.Second, PositivePanic(2*time.Second, "timeout must be positive"))
}

func TestPtr(t *testing.T) {
	p := Ptr(5000)
	require.NotNil(t, p)
	assert.Equal(t, 5000, *p)
	*p = 1
	assert.Equal(t, 1, *Ptr(1))
}
