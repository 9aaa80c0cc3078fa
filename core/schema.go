package core

import "strings"

// Schema is the frozen set of property names for one agent species. Names are
// interned once into a dense index order 0..n-1 which determines the storage
// layout of every agent built against it. A Schema has no mutators; it is safe
// to share between goroutines and between concurrently running models.
type Schema struct {
	names   []string
	indices map[string]int
}

// NewSchema interns the given property names in order. Names must be unique
// and non-empty.
func NewSchema(names ...string) (*Schema, error) {
	s := &Schema{
		names:   make([]string, 0, len(names)),
		indices: make(map[string]int, len(names)),
	}

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, &SchemaError{Kind: ErrEmptyProperty, Property: name}
		}

		if _, exists := s.indices[name]; exists {
			return nil, &SchemaError{Kind: ErrDuplicateProperty, Property: name}
		}

		s.indices[name] = len(s.names)
		s.names = append(s.names, name)
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for tests and
// package level fixtures.
func MustSchema(names ...string) *Schema {
	s, err := NewSchema(names...)
	if err != nil {
		panic(err)
	}

	return s
}

// IndexOf resolves a property name to its storage index.
func (s *Schema) IndexOf(name string) (int, error) {
	idx, ok := s.indices[name]
	if !ok {
		return -1, &SchemaError{Kind: ErrUnknownProperty, Property: name}
	}

	return idx, nil
}

// Has reports whether name is part of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.indices[name]
	return ok
}

// Len returns the number of properties (the length of every agent's value array).
func (s *Schema) Len() int { return len(s.names) }

// Name returns the property name stored at index i.
func (s *Schema) Name(i int) string { return s.names[i] }

// Names returns the property names in storage order. The slice is a copy.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)

	return out
}

// Equal reports whether both schemas intern the same names in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}

	if s == nil || other == nil || len(s.names) != len(other.names) {
		return false
	}

	for i, name := range s.names {
		if other.names[i] != name {
			return false
		}
	}

	return true
}

// Dense converts a name keyed value mapping into an array aligned with the
// schema order. It fails with ErrUnknownProperty for names outside the schema
// and reports every schema property missing from values.
func (s *Schema) Dense(values map[string]int64) ([]int64, []string, error) {
	for name := range values {
		if !s.Has(name) {
			return nil, nil, &SchemaError{Kind: ErrUnknownProperty, Property: name}
		}
	}

	dense := make([]int64, len(s.names))

	var missing []string

	for i, name := range s.names {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}

		dense[i] = v
	}

	return dense, missing, nil
}

// Map translates a dense value array back into its name keyed form.
func (s *Schema) Map(values []int64) map[string]int64 {
	out := make(map[string]int64, len(s.names))
	for i, name := range s.names {
		out[name] = values[i]
	}

	return out
}
