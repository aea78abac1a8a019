// Package mapper turns gesture frames into effect parameter changes. It owns
// the mapping table (which feature drives which parameter), regenerates it on
// demand with a tunable chaos level, and evaluates it against incoming frames
// with smoothing, rate limiting, and change gating.
package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
)

// Mapping binds one gesture feature to one effect parameter.
type Mapping struct {
	Kind     effect.Kind
	Param    string
	Feature  gesture.Feature
	Inverted bool
}

type mappingWire struct {
	EffectID  string `json:"effectId"`
	Parameter string `json:"parameter"`
	Feature   string `json:"feature"`
	Inverted  bool   `json:"inverted"`
}

// MarshalJSON writes the persisted wire form using stable string names.
func (m Mapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(mappingWire{
		EffectID:  m.Kind.String(),
		Parameter: m.Param,
		Feature:   m.Feature.String(),
		Inverted:  m.Inverted,
	})
}

// UnmarshalJSON resolves the wire names back to enums.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var w mappingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind, err := effect.KindFromString(w.EffectID)
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}

	feature, err := gesture.FeatureFromString(w.Feature)
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}

	spec, ok := effect.Lookup(kind)
	if !ok {
		return fmt.Errorf("mapping: %w: %q", effect.ErrUnknownKind, w.EffectID)
	}

	if _, ok := spec.Param(w.Parameter); !ok {
		return fmt.Errorf("mapping: %v has no parameter %q", kind, w.Parameter)
	}

	m.Kind = kind
	m.Param = w.Parameter
	m.Feature = feature
	m.Inverted = w.Inverted

	return nil
}

// String renders one human-readable line, e.g. "delay.time <- height (inverted)".
func (m Mapping) String() string {
	s := fmt.Sprintf("%v.%s <- %v", m.Kind, m.Param, m.Feature)
	if m.Inverted {
		s += " (inverted)"
	}

	return s
}

// MappingSet is a named, persistable mapping table.
type MappingSet struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Mappings []Mapping `json:"mappings"`
}

// MappingSetInfo is the listing form of a stored set.
type MappingSetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
