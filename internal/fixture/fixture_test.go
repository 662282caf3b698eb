package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/nouki/internal/model"
)

func TestDefaultTableLoads(t *testing.T) {
	tbl := Default()
	require.NotNil(t, tbl)
	assert.Equal(t, []string{"4CBTY2", "4CBTYK4", "5CBTX1"}, tbl.Keys())

	p, ok := tbl.Lookup("4CBTY2")
	require.True(t, ok)
	assert.Equal(t, 8, p.DefaultQuantity)
	assert.Equal(t, "2025-11-15", p.PrimaryPlan().ShipDate)

	p, ok = tbl.Lookup("4CBTYK4")
	require.True(t, ok)
	assert.Equal(t, 4, p.DefaultQuantity)
	assert.Equal(t, model.PriorityUrgent, p.Priority)
	assert.Equal(t, "2025-11-13", p.PrimaryPlan().ShipDate)

	assert.Equal(t, 5, tbl.DefaultProfile().DefaultQuantity)
}

func TestLookupDefaultKey(t *testing.T) {
	p, ok := Default().Lookup(DefaultKey)
	require.True(t, ok)
	assert.Equal(t, Default().DefaultProfile(), p)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Default().Lookup("NOPE")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	tbl := Default()

	p, _ := tbl.Lookup("4CBTY2")
	p.Plans[0].ShipDate = "1999-01-01"
	p.Schedule[0].Status = model.BlockNeedsReview

	again, _ := tbl.Lookup("4CBTY2")
	assert.Equal(t, "2025-11-15", again.Plans[0].ShipDate)
	assert.Equal(t, model.BlockConfirmed, again.Schedule[0].Status)

	keys := tbl.Keys()
	keys[0] = "MUTATED"
	assert.Equal(t, "4CBTY2", tbl.Keys()[0])
}

func TestLoadPreservesDeclarationOrder(t *testing.T) {
	doc := `
profiles:
  - key: ZZZ
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
default:
  default_quantity: 1
  priority: normal
  references: {production_load: {severity: low}}
  plans: [{label: a, ship_date: "2025-01-01"}]
`
	tbl, err := Load([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZ", "AAA"}, tbl.Keys())
}

func TestLoadValidation(t *testing.T) {
	const okDefault = `
default:
  default_quantity: 1
  priority: normal
  references: {production_load: {severity: low}}
  plans: [{label: a, ship_date: "2025-01-01"}]
`
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing default",
			doc:     "profiles: []\n",
			wantErr: "default profile is required",
		},
		{
			name: "no plans",
			doc: `
profiles:
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: []
` + okDefault,
			wantErr: "at least one plan",
		},
		{
			name: "zero quantity",
			doc: `
profiles:
  - key: AAA
    default_quantity: 0
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
` + okDefault,
			wantErr: "default_quantity must be positive",
		},
		{
			name: "lowercase key",
			doc: `
profiles:
  - key: aaa
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
` + okDefault,
			wantErr: "must be uppercase",
		},
		{
			name: "duplicate key",
			doc: `
profiles:
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
` + okDefault,
			wantErr: "duplicate profile key",
		},
		{
			name: "bad priority",
			doc: `
profiles:
  - key: AAA
    default_quantity: 1
    priority: asap
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
` + okDefault,
			wantErr: "invalid priority",
		},
		{
			name: "bad ship date",
			doc: `
profiles:
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "11/15"}]
` + okDefault,
			wantErr: "ship_date",
		},
		{
			name: "bad block status",
			doc: `
profiles:
  - key: AAA
    default_quantity: 1
    priority: normal
    references: {production_load: {severity: low}}
    plans: [{label: a, ship_date: "2025-01-01"}]
    schedule: [{id: S-1, status: done}]
` + okDefault,
			wantErr: "invalid status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSummaries(t *testing.T) {
	got := Default().Summaries()
	require.Len(t, got, 4)

	keys := make([]string, len(got))
	for i, s := range got {
		keys[i] = s.Key
	}
	assert.Equal(t, []string{"4CBTY2", "4CBTYK4", "5CBTX1", DefaultKey}, keys)
	assert.Equal(t, "2025-11-15", got[0].ShipDate)
	assert.Equal(t, 8, got[0].DefaultQuantity)
	assert.Equal(t, model.PriorityUrgent, got[1].Priority)
	assert.Equal(t, 5, got[3].DefaultQuantity)
}
