package simulation

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
)

// Fixed narrative text.
const (
	PrimaryPlanLabel   = "最短/推奨"
	AlternativePrefix  = "代替案"
	DefaultProfileName = "デフォルトプロファイル"

	footerNote = "※ 本シミュレーションは参照データに基づく試算です。確定納期は製造部門の承認後にご連絡します。"
)

// DecisionOptions is the fixed prompt closing every narrative.
var DecisionOptions = []string{
	"最短プランで承認する",
	"代替案に切り替える",
	"条件を変更して再シミュレーションを依頼する",
}

// BuildNarrative assembles the reply for a matched profile. qty is the
// requested quantity, nil when the request did not state one. The output is
// a pure function of its inputs.
func BuildNarrative(projectName, key string, profile model.SimulationProfile, qty *int) model.SimulationResult {
	p := message.NewPrinter(language.Japanese)
	primary := profile.PrimaryPlan()

	delta := 0
	if qty != nil {
		delta = *qty - profile.DefaultQuantity
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		b.WriteString(p.Sprintf(format, args...))
		b.WriteByte('\n')
	}

	templateName := key
	if key == fixture.DefaultKey {
		templateName = DefaultProfileName
	}

	line("【出荷シミュレーション結果】")
	line("案件名: %s", projectName)
	line("参照テンプレート: %s", templateName)
	line("優先度: %s", profile.Priority.Label())
	if qty != nil {
		line("希望数量: %d台", *qty)
	} else {
		line("希望数量: 指定なし")
	}
	line("数量差分: %s", quantityDifference(p, profile.DefaultQuantity, qty))
	b.WriteByte('\n')

	refs := profile.References
	line("■ 参照情報")
	line("・コンセプトリードタイム: %s / %s日 (%s)", refs.LeadTime.Variant, plainInt(refs.LeadTime.Days), refs.LeadTime.Reason)
	line("・在庫: %s 有効在庫 %d / 引当済 %d (%s)", refs.Inventory.SKU, refs.Inventory.Available, refs.Inventory.Reserved, refs.Inventory.Comment)
	line("・生産負荷: %s 稼働率 %s%% / 負荷 %s (%s)",
		refs.ProductionLoad.Line, plainInt(refs.ProductionLoad.UtilizationPercent),
		refs.ProductionLoad.Severity.Label(), refs.ProductionLoad.Comment)
	b.WriteByte('\n')

	line("■ 出荷プラン")
	writePlan(&b, p, PrimaryPlanLabel, primary)
	for i, alt := range profile.Alternatives() {
		writePlan(&b, p, p.Sprintf("%s%d", AlternativePrefix, i+1), alt)
	}
	b.WriteByte('\n')

	line("■ ご判断ください")
	line("%s", footerNote)
	for i, opt := range DecisionOptions {
		line("%d. %s", i+1, opt)
	}

	result := model.SimulationResult{
		ProjectName:       projectName,
		MatchedKey:        key,
		Matched:           key != fixture.DefaultKey,
		Priority:          profile.Priority,
		RequestedQuantity: qty,
		DefaultQuantity:   profile.DefaultQuantity,
		QuantityDelta:     delta,
		Narrative:         strings.TrimRight(b.String(), "\n"),
		History:           append([]model.SimilarCase(nil), profile.History...),
		Schedule:          append([]model.ScheduleBlock(nil), profile.Schedule...),
		ShipDate:          primary.ShipDate,
	}
	if qty != nil {
		q := *qty
		result.RequestedQuantity = &q
	}
	return result
}

func writePlan(b *strings.Builder, p *message.Printer, label string, plan model.SimulationPlan) {
	b.WriteString(p.Sprintf("[%s] %s\n", label, plan.Label))
	b.WriteString(p.Sprintf("  出荷日: %s (リードタイム %s日)\n", plan.ShipDate, plainInt(plan.LeadTimeDays)))
	b.WriteString(p.Sprintf("  引当: %s\n", plan.Allocation))
	b.WriteString(p.Sprintf("  製造枠: %s\n", plan.ManufacturingWindow))
	b.WriteString(p.Sprintf("  リスク: %s\n", plan.Risk))
	if plan.Note != "" {
		b.WriteString(p.Sprintf("  備考: %s\n", plan.Note))
	}
}

func quantityDifference(p *message.Printer, defaultQty int, qty *int) string {
	if qty == nil {
		return p.Sprintf("数量指定がないため標準ロット %d台 を基準に試算しています", defaultQty)
	}
	delta := *qty - defaultQty
	switch {
	case delta == 0:
		return p.Sprintf("標準ロットと同数 (%d台)", defaultQty)
	case delta > 0:
		return p.Sprintf("標準ロット %d台 に対して +%d台", defaultQty, delta)
	default:
		return p.Sprintf("標準ロット %d台 に対して -%d台", defaultQty, -delta)
	}
}

// plainInt renders percentages and day counts without grouping.
func plainInt(n int) string {
	return strconv.Itoa(n)
}
