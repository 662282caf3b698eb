package mcp

import (
	"github.com/ashita-ai/nouki/internal/model"
)

// compactResult is the machine-readable half of a nouki_simulate answer.
// The narrative already carries reference data and plan details, so only the
// fields an agent branches on are kept.
func compactResult(r model.SimulationResult) map[string]any {
	m := map[string]any{
		"project_name":     r.ProjectName,
		"matched_key":      r.MatchedKey,
		"matched":          r.Matched,
		"priority":         r.Priority,
		"ship_date":        r.ShipDate,
		"default_quantity": r.DefaultQuantity,
		"quantity_delta":   r.QuantityDelta,
		"schedule_blocks":  len(r.Schedule),
		"similar_cases":    len(r.History),
	}
	if r.RequestedQuantity != nil {
		m["requested_quantity"] = *r.RequestedQuantity
	}
	if pending := pendingBlocks(r.Schedule); len(pending) > 0 {
		m["pending_blocks"] = pending
	}
	return m
}

// pendingBlocks returns the IDs of blocks that are not yet confirmed.
func pendingBlocks(blocks []model.ScheduleBlock) []string {
	var ids []string
	for _, b := range blocks {
		if b.Status != model.BlockConfirmed {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
