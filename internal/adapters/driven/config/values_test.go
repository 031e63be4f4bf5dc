package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{int(3), 3, true},
		{int64(1000), 1000, true},
		{float64(5), 5, true},
		{float64(5.5), 0, false},
		{" 42 ", 42, true},
		{"x", 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := Int(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestFloat(t *testing.T) {
	f, ok := Float("2.5")
	assert.True(t, ok)
	assert.InDelta(t, 2.5, f, 1e-9)

	f, ok = Float(int64(4))
	assert.True(t, ok)
	assert.InDelta(t, 4.0, f, 1e-9)

	_, ok = Float([]string{"1"})
	assert.False(t, ok)
}

func TestBoolAndString(t *testing.T) {
	b, ok := Bool("true")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Bool("maybe")
	assert.False(t, ok)

	s, ok := String(int64(30))
	assert.True(t, ok)
	assert.Equal(t, "30", s)

	_, ok = String(nil)
	assert.False(t, ok)
}

func TestStringSlice(t *testing.T) {
	got, ok := StringSlice("a, b,,c")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	got, ok = StringSlice([]any{"x", 1, "y"})
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "GRABDOCS_EMBEDDING_API_KEY", EnvKey("embedding.api_key"))
	assert.Equal(t, "GRABDOCS_VECTOR_MILVUS_ADDRESS", EnvKey("vector.milvus_address"))
}
