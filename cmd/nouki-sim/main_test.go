package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ashita-ai/nouki/internal/export"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateJSON(t *testing.T) {
	out, err := execute(t, "simulate", "--json", "案件名: 4CBTY2 8台")
	require.NoError(t, err)

	var res model.SimulationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Matched)
	assert.Equal(t, "4CBTY2", res.MatchedKey)
	assert.Equal(t, "2025-11-15", res.ShipDate)
	require.NotNil(t, res.RequestedQuantity)
	assert.Equal(t, 8, *res.RequestedQuantity)
	assert.NotEmpty(t, res.Narrative)
}

func TestSimulateNarrative(t *testing.T) {
	out, err := execute(t, "simulate", "案件名: 4CBTY2 8台")
	require.NoError(t, err)
	assert.Contains(t, out, "4CBTY2")
}

func TestSimulateGuidance(t *testing.T) {
	out, err := execute(t, "simulate", "案件名:")
	require.ErrorIs(t, err, simulation.ErrNoProjectName)
	assert.Contains(t, out, simulation.GuidanceMessage)
}

func TestSimulateWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	_, err := execute(t, "simulate", "--xlsx", path, "案件名: 4CBTY2 8台")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Contains(t, f.GetSheetList(), export.ScheduleSheet)
	assert.Contains(t, f.GetSheetList(), export.HistorySheet)
}

func TestExtract(t *testing.T) {
	out, err := execute(t, "extract", `案件名: \n4台`)
	require.NoError(t, err)

	var info model.OrderInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Nil(t, info.ProjectName)
	require.NotNil(t, info.Quantity)
	assert.Equal(t, 4, *info.Quantity)
}

func TestProfiles(t *testing.T) {
	out, err := execute(t, "profiles")
	require.NoError(t, err)
	for _, key := range []string{"KEY", "4CBTY2", "4CBTYK4", "5CBTX1", "default"} {
		assert.Contains(t, out, key)
	}

	out, err = execute(t, "profiles", "--json")
	require.NoError(t, err)
	var summaries []model.ProfileSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	assert.Len(t, summaries, 4)
}

func TestProfilesFlag(t *testing.T) {
	_, err := execute(t, "profiles", "--profiles", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read profiles")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profiles: []\n"), 0o600))
	_, err = execute(t, "profiles", "--profiles", bad)
	require.Error(t, err)
}

func TestArgs(t *testing.T) {
	_, err := execute(t, "simulate")
	require.Error(t, err)
	_, err = execute(t, "profiles", "extra")
	require.Error(t, err)
}
