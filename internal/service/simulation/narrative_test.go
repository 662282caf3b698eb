package simulation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
)

func profileFor(t *testing.T, key string) model.SimulationProfile {
	t.Helper()
	p, ok := fixture.Default().Lookup(key)
	require.True(t, ok, "profile %s", key)
	return p
}

func TestBuildNarrative_SectionOrder(t *testing.T) {
	res := BuildNarrative("4CBTY2", "4CBTY2", profileFor(t, "4CBTY2"), intPtr(8))

	sections := []string{"【出荷シミュレーション結果】", "■ 参照情報", "■ 出荷プラン", "■ ご判断ください"}
	last := -1
	for _, s := range sections {
		idx := strings.Index(res.Narrative, s)
		require.GreaterOrEqual(t, idx, 0, "missing section %s", s)
		assert.Greater(t, idx, last, "section %s out of order", s)
		last = idx
	}
	for i, opt := range DecisionOptions {
		assert.Contains(t, res.Narrative, fmt.Sprintf("%d. %s", i+1, opt))
	}
}

func TestBuildNarrative_PlanListing(t *testing.T) {
	for _, key := range fixture.Default().Keys() {
		t.Run(key, func(t *testing.T) {
			p := profileFor(t, key)
			res := BuildNarrative(key, key, p, nil)

			assert.Equal(t, 1, strings.Count(res.Narrative, "["+PrimaryPlanLabel+"]"))
			assert.Equal(t, len(p.Plans)-1, strings.Count(res.Narrative, "["+AlternativePrefix))

			// Plans appear in authored order.
			last := -1
			for i, plan := range p.Plans {
				label := PrimaryPlanLabel
				if i > 0 {
					label = fmt.Sprintf("%s%d", AlternativePrefix, i)
				}
				idx := strings.Index(res.Narrative, "["+label+"] "+plan.Label)
				require.GreaterOrEqual(t, idx, 0, "plan %d missing", i)
				assert.Greater(t, idx, last)
				last = idx
			}
			assert.Equal(t, p.PrimaryPlan().ShipDate, res.ShipDate)
		})
	}
}

func TestBuildNarrative_QuantityDelta(t *testing.T) {
	p := profileFor(t, "4CBTY2")

	res := BuildNarrative("4CBTY2", "4CBTY2", p, intPtr(p.DefaultQuantity))
	assert.Equal(t, 0, res.QuantityDelta)
	assert.Contains(t, res.Narrative, "標準ロットと同数")

	for _, k := range []int{-7, -1, 1, 3, 1200} {
		res := BuildNarrative("4CBTY2", "4CBTY2", p, intPtr(p.DefaultQuantity+k))
		assert.Equal(t, k, res.QuantityDelta, "k=%d", k)
	}

	res = BuildNarrative("4CBTY2", "4CBTY2", p, intPtr(11))
	assert.Contains(t, res.Narrative, "+3台")
	res = BuildNarrative("4CBTY2", "4CBTY2", p, intPtr(6))
	assert.Contains(t, res.Narrative, "-2台")
}

func TestBuildNarrative_NoQuantity(t *testing.T) {
	p := profileFor(t, "4CBTY2")
	res := BuildNarrative("4CBTY2", "4CBTY2", p, nil)
	assert.Nil(t, res.RequestedQuantity)
	assert.Equal(t, 0, res.QuantityDelta)
	assert.Contains(t, res.Narrative, "希望数量: 指定なし")
	assert.Contains(t, res.Narrative, "標準ロット 8台 を基準に試算")
}

func TestBuildNarrative_ThousandsSeparators(t *testing.T) {
	p := profileFor(t, "4CBTY2")
	res := BuildNarrative("4CBTY2", "4CBTY2", p, intPtr(1500))
	assert.Contains(t, res.Narrative, "有効在庫 1,240")
	assert.Contains(t, res.Narrative, "希望数量: 1,500台")
	assert.Contains(t, res.Narrative, "+1,492台")
	assert.Contains(t, res.Narrative, "稼働率 72%")
	assert.Contains(t, res.Narrative, "21日")
}

func TestBuildNarrative_DefaultProfileLabel(t *testing.T) {
	res := BuildNarrative("XYZ999", fixture.DefaultKey, fixture.Default().DefaultProfile(), nil)
	assert.Contains(t, res.Narrative, "参照テンプレート: "+DefaultProfileName)
	assert.False(t, res.Matched)
}

func TestBuildNarrative_Deterministic(t *testing.T) {
	p := profileFor(t, "4CBTYK4")
	a := BuildNarrative("4CBTYK4", "4CBTYK4", p, intPtr(4))
	b := BuildNarrative("4CBTYK4", "4CBTYK4", p, intPtr(4))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("BuildNarrative not deterministic (-first +second):\n%s", diff)
	}
}

func TestBuildNarrative_DoesNotAliasInputs(t *testing.T) {
	p := profileFor(t, "4CBTY2")
	qty := 8
	res := BuildNarrative("4CBTY2", "4CBTY2", p, &qty)

	res.Schedule[0].Status = model.BlockNeedsReview
	qty = 99
	assert.Equal(t, model.BlockConfirmed, p.Schedule[0].Status)
	assert.Equal(t, 8, *res.RequestedQuantity)
}
