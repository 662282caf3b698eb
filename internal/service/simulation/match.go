package simulation

import (
	"strings"

	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
)

// Matcher resolves a project name to a fixture profile.
type Matcher struct {
	table *fixture.Table
}

// NewMatcher creates a matcher over table.
func NewMatcher(table *fixture.Table) *Matcher {
	return &Matcher{table: table}
}

// Match returns the first profile, in table declaration order, whose key is
// contained in the uppercased, trimmed name. Overlapping keys resolve by
// declaration order, not by specificity. No match yields the default
// profile under fixture.DefaultKey and matched=false.
func (m *Matcher) Match(projectName string) (key string, profile model.SimulationProfile, matched bool) {
	normalized := strings.ToUpper(strings.TrimSpace(projectName))
	if normalized != "" {
		for _, k := range m.table.Keys() {
			if strings.Contains(normalized, k) {
				p, _ := m.table.Lookup(k)
				return k, p, true
			}
		}
	}
	return fixture.DefaultKey, m.table.DefaultProfile(), false
}
