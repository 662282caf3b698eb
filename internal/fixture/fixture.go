// Package fixture holds the compiled-in shipment simulation profiles.
//
// The table is decoded once from an embedded YAML file and never mutated.
// Every accessor hands out deep copies, so there is no runtime path that can
// change a profile after startup.
package fixture

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ashita-ai/nouki/internal/model"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// DefaultKey is the sentinel key reported when no profile matches.
const DefaultKey = "default"

// Table is an immutable, ordered product-code → profile mapping.
type Table struct {
	keys     []string
	profiles map[string]model.SimulationProfile
	fallback model.SimulationProfile
}

type fileProfile struct {
	Key                     string `yaml:"key"`
	model.SimulationProfile `yaml:",inline"`
}

type file struct {
	Profiles []fileProfile           `yaml:"profiles"`
	Default  *model.SimulationProfile `yaml:"default"`
}

// Load decodes and validates a profile table. Profiles keep the order in
// which they appear in the document.
func Load(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	if f.Default == nil {
		return nil, errors.New("fixture: default profile is required")
	}
	if err := validateProfile(DefaultKey, *f.Default); err != nil {
		return nil, err
	}

	t := &Table{
		keys:     make([]string, 0, len(f.Profiles)),
		profiles: make(map[string]model.SimulationProfile, len(f.Profiles)),
		fallback: f.Default.Clone(),
	}
	for i, p := range f.Profiles {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, fmt.Errorf("fixture: profiles[%d]: key is required", i)
		}
		if key != strings.ToUpper(key) {
			return nil, fmt.Errorf("fixture: profile %q: key must be uppercase", key)
		}
		if strings.EqualFold(key, DefaultKey) {
			return nil, fmt.Errorf("fixture: profile key %q is reserved", key)
		}
		if _, dup := t.profiles[key]; dup {
			return nil, fmt.Errorf("fixture: duplicate profile key %q", key)
		}
		if err := validateProfile(key, p.SimulationProfile); err != nil {
			return nil, err
		}
		t.keys = append(t.keys, key)
		t.profiles[key] = p.SimulationProfile.Clone()
	}
	return t, nil
}

func validateProfile(key string, p model.SimulationProfile) error {
	if p.DefaultQuantity <= 0 {
		return fmt.Errorf("fixture: profile %q: default_quantity must be positive", key)
	}
	if !p.Priority.Valid() {
		return fmt.Errorf("fixture: profile %q: invalid priority %q", key, p.Priority)
	}
	if !p.References.ProductionLoad.Severity.Valid() {
		return fmt.Errorf("fixture: profile %q: invalid severity %q", key, p.References.ProductionLoad.Severity)
	}
	if len(p.Plans) == 0 {
		return fmt.Errorf("fixture: profile %q: at least one plan is required", key)
	}
	for i, plan := range p.Plans {
		if _, err := time.Parse(time.DateOnly, plan.ShipDate); err != nil {
			return fmt.Errorf("fixture: profile %q: plans[%d].ship_date %q: %w", key, i, plan.ShipDate, err)
		}
	}
	seen := make(map[string]bool, len(p.Schedule))
	for i, b := range p.Schedule {
		if b.ID == "" {
			return fmt.Errorf("fixture: profile %q: schedule[%d]: id is required", key, i)
		}
		if seen[b.ID] {
			return fmt.Errorf("fixture: profile %q: duplicate schedule id %q", key, b.ID)
		}
		seen[b.ID] = true
		if !b.Status.Valid() {
			return fmt.Errorf("fixture: profile %q: schedule[%d]: invalid status %q", key, i, b.Status)
		}
	}
	return nil
}

// Default returns the process-wide table decoded from the embedded file.
var Default = sync.OnceValue(func() *Table {
	t, err := Load(embeddedProfiles)
	if err != nil {
		panic(err)
	}
	return t
})

// Keys returns the profile keys in declaration order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of keyed profiles (the default is not counted).
func (t *Table) Len() int {
	return len(t.keys)
}

// Lookup returns a copy of the profile for key. DefaultKey resolves to the
// default profile.
func (t *Table) Lookup(key string) (model.SimulationProfile, bool) {
	if key == DefaultKey {
		return t.fallback.Clone(), true
	}
	p, ok := t.profiles[key]
	if !ok {
		return model.SimulationProfile{}, false
	}
	return p.Clone(), true
}

// DefaultProfile returns a copy of the fallback profile.
func (t *Table) DefaultProfile() model.SimulationProfile {
	return t.fallback.Clone()
}

// Summaries lists the keyed profiles in declaration order followed by the
// default profile.
func (t *Table) Summaries() []model.ProfileSummary {
	out := make([]model.ProfileSummary, 0, len(t.keys)+1)
	for _, k := range t.keys {
		out = append(out, summarize(k, t.profiles[k]))
	}
	return append(out, summarize(DefaultKey, t.fallback))
}

func summarize(key string, p model.SimulationProfile) model.ProfileSummary {
	return model.ProfileSummary{
		Key:             key,
		Priority:        p.Priority,
		DefaultQuantity: p.DefaultQuantity,
		ShipDate:        p.PrimaryPlan().ShipDate,
		Plans:           len(p.Plans),
	}
}
