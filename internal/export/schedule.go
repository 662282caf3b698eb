// Package export renders simulation attachments as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ashita-ai/nouki/internal/model"
)

// Sheet names of the exported workbook.
const (
	ScheduleSheet = "スケジュール"
	HistorySheet  = "類似実績"
)

// ContentType is the MIME type of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	scheduleHeaders = []any{"ID", "期間", "作業内容", "担当", "ステータス", "備考"}
	historyHeaders  = []any{"ID", "案件", "数量", "リードタイム(日)", "出荷日", "結果", "備考"}
)

// Schedule builds a workbook with the attachment's schedule and similar
// cases. The caller owns the returned file and must Close it.
func Schedule(att model.SimulationAttachment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ScheduleSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(HistorySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: add sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	if err := writeSchedule(f, att, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeHistory(f, att.History, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeSchedule(f *excelize.File, att model.SimulationAttachment, headerStyle int) error {
	// Rows 1-3 carry the context, the table starts at row 5.
	meta := [][]any{
		{"案件名", att.ProjectName},
		{"参照テンプレート", att.MatchedKey},
		{"出荷予定日", att.ShipDate},
	}
	for i, row := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(ScheduleSheet, cell, &row); err != nil {
			return fmt.Errorf("export: schedule meta: %w", err)
		}
	}

	const headerRow = 5
	if err := f.SetSheetRow(ScheduleSheet, fmt.Sprintf("A%d", headerRow), &scheduleHeaders); err != nil {
		return fmt.Errorf("export: schedule header: %w", err)
	}
	if err := f.SetRowStyle(ScheduleSheet, headerRow, headerRow, headerStyle); err != nil {
		return fmt.Errorf("export: schedule header style: %w", err)
	}
	for i, b := range att.Schedule.Blocks {
		row := []any{b.ID, b.TimeFrame, b.Focus, b.Owner, b.Status.Label(), b.Note}
		if err := f.SetSheetRow(ScheduleSheet, fmt.Sprintf("A%d", headerRow+1+i), &row); err != nil {
			return fmt.Errorf("export: schedule row %d: %w", i, err)
		}
	}

	_ = f.SetColWidth(ScheduleSheet, "A", "A", 18)
	_ = f.SetColWidth(ScheduleSheet, "B", "B", 16)
	_ = f.SetColWidth(ScheduleSheet, "C", "C", 28)
	_ = f.SetColWidth(ScheduleSheet, "D", "F", 20)
	return nil
}

func writeHistory(f *excelize.File, history []model.SimilarCase, headerStyle int) error {
	if err := f.SetSheetRow(HistorySheet, "A1", &historyHeaders); err != nil {
		return fmt.Errorf("export: history header: %w", err)
	}
	if err := f.SetRowStyle(HistorySheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("export: history header style: %w", err)
	}
	for i, c := range history {
		row := []any{c.ID, c.Project, c.Quantity, c.LeadTimeDays, c.ShippedOn, c.Outcome, c.Note}
		if err := f.SetSheetRow(HistorySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("export: history row %d: %w", i, err)
		}
	}
	_ = f.SetColWidth(HistorySheet, "B", "B", 24)
	_ = f.SetColWidth(HistorySheet, "F", "G", 24)
	return nil
}

// WriteSchedule writes the workbook for att to w.
func WriteSchedule(w io.Writer, att model.SimulationAttachment) error {
	f, err := Schedule(att)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// FileName returns the download name for a project's schedule.
func FileName(projectName string) string {
	name := sanitize(projectName)
	if name == "" {
		name = "schedule"
	}
	return name + "_schedule.xlsx"
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == '"' || r == ':' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			out = append(out, '_')
		case r < 0x20:
		case r == ' ' || r == '　':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
