// Package synced implements replicated entity attributes. The authoritative
// store accepts writes and records which fields changed; the observing store
// only accepts replicated updates.
package synced

import (
	"encoding/json"
	"fmt"
)

// Key identifies a typed field within a Store. The type parameter is the
// field's type tag; Get and Set are only defined for the matching type.
type Key[T comparable] struct {
	name string
}

// NewKey constructs a key for the named field.
func NewKey[T comparable](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the wire name of the field.
func (k Key[T]) Name() string {
	return k.name
}

// Update carries a single field value across the replication boundary.
type Update struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type slot struct {
	value  any
	dirty  bool
	decode func(json.RawMessage) (any, error)
}

// Store holds the field values of one entity.
type Store struct {
	authoritative bool
	order         []string
	slots         map[string]*slot
}

// NewStore constructs an empty store. Only an authoritative store accepts Set.
func NewStore(authoritative bool) *Store {
	return &Store{
		authoritative: authoritative,
		slots:         make(map[string]*slot),
	}
}

// Authoritative reports whether writes through Set are honoured.
func (s *Store) Authoritative() bool {
	if s == nil {
		return false
	}
	return s.authoritative
}

// Define registers the field with its initial value. Redefining a field
// replaces its value and type. On an authoritative store the initial value is
// reported by the next Drain.
func Define[T comparable](s *Store, key Key[T], initial T) {
	if s == nil || key.name == "" {
		return
	}
	if _, exists := s.slots[key.name]; !exists {
		s.order = append(s.order, key.name)
	}
	s.slots[key.name] = &slot{
		value: initial,
		dirty: s.authoritative,
		decode: func(raw json.RawMessage) (any, error) {
			var value T
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, err
			}
			return value, nil
		},
	}
}

// Get returns the current field value, or the zero value when the field is
// undefined or was defined with another type.
func Get[T comparable](s *Store, key Key[T]) T {
	var zero T
	if s == nil {
		return zero
	}
	entry, ok := s.slots[key.name]
	if !ok {
		return zero
	}
	value, ok := entry.value.(T)
	if !ok {
		return zero
	}
	return value
}

// Set writes the field value and reports whether it changed. Writes on a
// non-authoritative store and writes to undefined fields are ignored.
func Set[T comparable](s *Store, key Key[T], value T) bool {
	if s == nil || !s.authoritative {
		return false
	}
	entry, ok := s.slots[key.name]
	if !ok {
		return false
	}
	if current, ok := entry.value.(T); ok && current == value {
		return false
	}
	entry.value = value
	entry.dirty = true
	return true
}

// Dirty reports whether any field changed since the last Drain.
func (s *Store) Dirty() bool {
	if s == nil {
		return false
	}
	for _, name := range s.order {
		if s.slots[name].dirty {
			return true
		}
	}
	return false
}

// Drain returns the fields changed since the previous Drain in definition
// order and clears their dirty marks.
func (s *Store) Drain() ([]Update, error) {
	if s == nil {
		return nil, nil
	}
	var updates []Update
	for _, name := range s.order {
		entry := s.slots[name]
		if !entry.dirty {
			continue
		}
		raw, err := json.Marshal(entry.value)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		entry.dirty = false
		updates = append(updates, Update{Key: name, Value: raw})
	}
	return updates, nil
}

// Snapshot returns every field value without touching dirty marks.
func (s *Store) Snapshot() ([]Update, error) {
	if s == nil {
		return nil, nil
	}
	updates := make([]Update, 0, len(s.order))
	for _, name := range s.order {
		raw, err := json.Marshal(s.slots[name].value)
		if err != nil {
			return nil, fmt.Errorf("encode field %s: %w", name, err)
		}
		updates = append(updates, Update{Key: name, Value: raw})
	}
	return updates, nil
}

// Apply installs replicated values on an observing store and returns the
// names of the fields whose value changed. Unknown fields are skipped; a
// value that fails to decode aborts with an error after the fields before it
// were applied.
func (s *Store) Apply(updates []Update) ([]string, error) {
	if s == nil || s.authoritative {
		return nil, nil
	}
	var changed []string
	for _, update := range updates {
		entry, ok := s.slots[update.Key]
		if !ok {
			continue
		}
		value, err := entry.decode(update.Value)
		if err != nil {
			return changed, fmt.Errorf("decode field %s: %w", update.Key, err)
		}
		if entry.value == value {
			continue
		}
		entry.value = value
		changed = append(changed, update.Key)
	}
	return changed, nil
}
