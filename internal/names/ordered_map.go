// Package names provides name-keyed collections that compare keys
// case-insensitively while preserving the spelling of the first insertion.
package names

import "strings"

// Normalize returns the comparison key for a database object name. Upper
// casing first folds letters like 'ſ' that have no lower case partner of
// their own.
func Normalize(name string) string {
	return strings.ToLower(strings.ToUpper(name))
}

// Equal reports whether two database object names denote the same object.
// It agrees with the keys of OrderedMap and Set.
func Equal(a, b string) bool {
	return a == b || Normalize(a) == Normalize(b)
}

// EqualSlices reports whether two name lists are equal element by element, ignoring case.
func EqualSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

type entry[V any] struct {
	name  string
	value V
}

// OrderedMap maps names to values in insertion order. "Code" and "CODE" are the same key.
// Replacing a value keeps the original position and spelling.
type OrderedMap[V any] struct {
	index   map[string]int
	entries []entry[V]
}

// NewOrderedMap creates an empty map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{index: make(map[string]int)}
}

// Put adds or replaces the value stored under name.
func (m *OrderedMap[V]) Put(name string, value V) {
	key := Normalize(name)
	if i, ok := m.index[key]; ok {
		m.entries[i].value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry[V]{name: name, value: value})
}

// Get returns the value stored under name.
func (m *OrderedMap[V]) Get(name string) (V, bool) {
	if i, ok := m.index[Normalize(name)]; ok {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Has reports whether name is present.
func (m *OrderedMap[V]) Has(name string) bool {
	_, ok := m.index[Normalize(name)]
	return ok
}

// Remove deletes name and reports whether it was present.
func (m *OrderedMap[V]) Remove(name string) bool {
	key := Normalize(name)
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, key)
	for j := i; j < len(m.entries); j++ {
		m.index[Normalize(m.entries[j].name)] = j
	}
	return true
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.entries)
}

// Names returns the keys in insertion order, spelled as first inserted.
func (m *OrderedMap[V]) Names() []string {
	result := make([]string, len(m.entries))
	for i, e := range m.entries {
		result[i] = e.name
	}
	return result
}

// Values returns the values in insertion order.
func (m *OrderedMap[V]) Values() []V {
	result := make([]V, len(m.entries))
	for i, e := range m.entries {
		result[i] = e.value
	}
	return result
}

// Clear removes all entries.
func (m *OrderedMap[V]) Clear() {
	m.index = make(map[string]int)
	m.entries = nil
}

// Set is an ordered, case-insensitive set of names.
type Set struct {
	m *OrderedMap[struct{}]
}

// NewSet creates a set holding the given names.
func NewSet(items ...string) *Set {
	s := &Set{m: NewOrderedMap[struct{}]()}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts name; adding an existing name is a no-op.
func (s *Set) Add(name string) {
	if !s.m.Has(name) {
		s.m.Put(name, struct{}{})
	}
}

// Contains reports membership ignoring case.
func (s *Set) Contains(name string) bool {
	return s.m.Has(name)
}

// Remove deletes name.
func (s *Set) Remove(name string) {
	s.m.Remove(name)
}

// Len returns the number of names.
func (s *Set) Len() int {
	return s.m.Len()
}

// Items returns the names in insertion order.
func (s *Set) Items() []string {
	return s.m.Names()
}
