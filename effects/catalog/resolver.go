package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// Periodic is the resolved recurring action of a duration effect.
type Periodic struct {
	Action       string
	BaseInterval int
	Amount       float64
	MinHealth    float64
}

// InstantAction is the resolved one-shot action of an instantaneous effect.
type InstantAction struct {
	Action     string
	BaseAmount int
}

// Kind captures the resolved definition of a single effect kind.
type Kind struct {
	ID             string
	Instantaneous  bool
	Beneficial     bool
	Color          int32
	UndeadInverted bool
	ImmuneTags     []string
	Instant        *InstantAction
	Periodic       *Periodic
}

// AppliesTo reports whether a target carrying the given tags can receive the
// effect.
func (k Kind) AppliesTo(tags []string) bool {
	for _, immune := range k.ImmuneTags {
		for _, tag := range tags {
			if tag == immune {
				return false
			}
		}
	}
	return true
}

// InstantAmount returns the health delta of the instant action for the
// amplifier and proximity factor.
func (k Kind) InstantAmount(amplifier int, proximity float64) float64 {
	if k.Instant == nil {
		return 0
	}
	if amplifier < 0 {
		amplifier = 0
	}
	return math.Floor(proximity*float64(k.Instant.BaseAmount<<amplifier) + 0.5)
}

// Fires reports whether the periodic action runs for an instance with the
// given remaining duration and amplifier.
func (k Kind) Fires(remaining, amplifier int) bool {
	if k.Periodic == nil {
		return false
	}
	if amplifier < 0 {
		amplifier = 0
	}
	interval := k.Periodic.BaseInterval >> amplifier
	if interval <= 0 {
		return true
	}
	return remaining%interval == 0
}

func (k Kind) clone() Kind {
	clone := k
	if len(k.ImmuneTags) > 0 {
		clone.ImmuneTags = append([]string(nil), k.ImmuneTags...)
	}
	if k.Instant != nil {
		instant := *k.Instant
		clone.Instant = &instant
	}
	if k.Periodic != nil {
		periodic := *k.Periodic
		clone.Periodic = &periodic
	}
	return clone
}

// DefaultPaths returns the canonical catalog locations relative to the module
// root.
func DefaultPaths() []string {
	return []string{
		filepath.Join("config", "effects", "kinds.json"),
	}
}

// Resolver merges the built-in kinds with zero or more catalog sources into a
// stable lookup table.
type Resolver struct {
	mu      sync.RWMutex
	sources []source
	kinds   map[string]Kind
}

// Load constructs a Resolver overlaying the provided catalog file paths on
// the built-in kinds. Missing files are ignored.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// Default returns a Resolver containing only the built-in kinds.
func Default() *Resolver {
	r, err := NewResolver()
	if err != nil {
		// Built-in kinds always validate.
		panic(err)
	}
	return r
}

// NewResolver constructs a Resolver from arbitrary sources. Tests can supply
// in-memory sources while production code uses fileSource.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{
		sources: append([]source(nil), sources...),
		kinds:   make(map[string]Kind),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all catalog sources. Later sources override earlier ones
// and every source overrides the built-in kinds.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	kinds := make(map[string]Kind)
	if err := mergeDocuments(kinds, DefaultKinds(), "defaults"); err != nil {
		return err
	}
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("catalog: failed loading %s: %w", src.Path(), err)
		}
		documents, err := decodeKinds(data)
		if err != nil {
			return fmt.Errorf("catalog: failed parsing %s: %w", src.Path(), err)
		}
		if err := mergeDocuments(kinds, documents, src.Path()); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.kinds = kinds
	r.mu.Unlock()
	return nil
}

func mergeDocuments(dst map[string]Kind, documents []KindDocument, origin string) error {
	seen := make(map[string]struct{}, len(documents))
	for _, doc := range documents {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			return fmt.Errorf("catalog: kind missing id in %s", origin)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("catalog: duplicate id %q in %s", id, origin)
		}
		seen[id] = struct{}{}
		if doc.Color < 0 || doc.Color > 0xFFFFFF {
			return fmt.Errorf("catalog: kind %q color %d out of range", id, doc.Color)
		}

		kind := Kind{
			ID:             id,
			Instantaneous:  doc.Instantaneous,
			Beneficial:     doc.Beneficial,
			Color:          doc.Color,
			UndeadInverted: doc.UndeadInverted,
			ImmuneTags:     append([]string(nil), doc.ImmuneTags...),
		}
		if doc.Instant != nil {
			if !doc.Instantaneous {
				return fmt.Errorf("catalog: kind %q has an instant action but is not instantaneous", id)
			}
			switch doc.Instant.Action {
			case ActionHeal, ActionDamage:
			default:
				return fmt.Errorf("catalog: kind %q has unknown instant action %q", id, doc.Instant.Action)
			}
			if doc.Instant.BaseAmount <= 0 {
				return fmt.Errorf("catalog: kind %q instant amount must be positive", id)
			}
			kind.Instant = &InstantAction{Action: doc.Instant.Action, BaseAmount: doc.Instant.BaseAmount}
		}
		if doc.Periodic != nil {
			if doc.Instantaneous {
				return fmt.Errorf("catalog: kind %q is instantaneous and cannot be periodic", id)
			}
			switch doc.Periodic.Action {
			case ActionHeal, ActionDamage:
			default:
				return fmt.Errorf("catalog: kind %q has unknown periodic action %q", id, doc.Periodic.Action)
			}
			if doc.Periodic.BaseInterval <= 0 {
				return fmt.Errorf("catalog: kind %q periodic interval must be positive", id)
			}
			amount := doc.Periodic.Amount
			if amount <= 0 {
				amount = 1
			}
			kind.Periodic = &Periodic{
				Action:       doc.Periodic.Action,
				BaseInterval: doc.Periodic.BaseInterval,
				Amount:       amount,
				MinHealth:    doc.Periodic.MinHealth,
			}
		}
		dst[id] = kind
	}
	return nil
}

// Resolve returns the kind registered under id.
func (r *Resolver) Resolve(id string) (Kind, bool) {
	if r == nil {
		return Kind{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[id]
	if !ok {
		return Kind{}, false
	}
	return kind.clone(), true
}

// Kinds returns a snapshot of every kind sorted by id.
func (r *Resolver) Kinds() []Kind {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, kind := range r.kinds {
		out = append(out, kind.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func decodeKinds(data []byte) ([]KindDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var kinds []KindDocument
		if err := json.Unmarshal(trimmed, &kinds); err != nil {
			return nil, err
		}
		return kinds, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(object))
		for id := range object {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		kinds := make([]KindDocument, 0, len(ids))
		for _, id := range ids {
			var kind KindDocument
			if err := json.Unmarshal(object[id], &kind); err != nil {
				return nil, fmt.Errorf("kind %q: %w", id, err)
			}
			if kind.ID == "" {
				kind.ID = id
			} else if kind.ID != id {
				return nil, fmt.Errorf("kind id %q does not match key %q", kind.ID, id)
			}
			kinds = append(kinds, kind)
		}
		return kinds, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}
