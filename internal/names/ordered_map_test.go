package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapIgnoresCase(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Put("Code", 1)
	m.Put("name", 2)
	m.Put("CODE", 3)

	require.Equal(t, 2, m.Len())
	v, ok := m.Get("code")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"Code", "name"}, m.Names())
	assert.Equal(t, []int{3, 2}, m.Values())
}

func TestEqualMatchesMapKeys(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "state", b: "STATE", want: true},
		{a: "\u017Ftate", b: "STATE", want: true},
		{a: "\u212Aey", b: "key", want: true},
		{a: "\u03C2", b: "\u03A3", want: true},
		{a: "state", b: "states", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"="+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))

			m := NewOrderedMap[int]()
			m.Put(tt.a, 1)
			_, ok := m.Get(tt.b)
			assert.Equal(t, tt.want, ok)
			m.Put(tt.b, 2)
			assert.Equal(t, tt.want, m.Len() == 1)
		})
	}
}

func TestOrderedMapRemoveReindexes(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Put("a", "1")
	m.Put("b", "2")
	m.Put("c", "3")

	assert.True(t, m.Remove("B"))
	assert.False(t, m.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, m.Names())

	v, ok := m.Get("C")
	require.True(t, ok)
	assert.Equal(t, "3", v)

	m.Put("d", "4")
	assert.Equal(t, []string{"a", "c", "d"}, m.Names())
}

func TestEqualSlices(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{name: "same", a: []string{"id", "code"}, b: []string{"ID", "Code"}, want: true},
		{name: "order matters", a: []string{"id", "code"}, b: []string{"code", "id"}, want: false},
		{name: "length", a: []string{"id"}, b: []string{"id", "code"}, want: false},
		{name: "empty", a: nil, b: []string{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EqualSlices(tt.a, tt.b))
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet("Country", "STATE", "country")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("state"))
	s.Remove("COUNTRY")
	assert.Equal(t, []string{"STATE"}, s.Items())
}
