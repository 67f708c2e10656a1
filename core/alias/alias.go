// Package alias holds the shell's alias definitions.
package alias

// Table maps alias names to replacement text. Names are unique and
// iteration follows definition order.
type Table struct {
	names  []string
	values map[string]string
}

// New creates an empty table.
func New() *Table {
	return &Table{values: make(map[string]string)}
}

// Set defines name, replacing any earlier value in place.
func (t *Table) Set(name, value string) {
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = value
}

// Get returns the value for name.
func (t *Table) Get(name string) (string, bool) {
	value, ok := t.values[name]
	return value, ok
}

// Remove deletes name, reporting whether it was defined.
func (t *Table) Remove(name string) bool {
	if _, ok := t.values[name]; !ok {
		return false
	}
	delete(t.values, name)

	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i], t.names[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every alias.
func (t *Table) Clear() {
	t.names = nil
	t.values = make(map[string]string)
}

// Len returns the number of aliases.
func (t *Table) Len() int {
	return len(t.names)
}

// Names returns the alias names in definition order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Each calls fn for every alias in definition order.
func (t *Table) Each(fn func(name, value string)) {
	for _, name := range t.names {
		fn(name, t.values[name])
	}
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	out := New()
	t.Each(out.Set)
	return out
}
