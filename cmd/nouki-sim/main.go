// Command nouki-sim runs the shipment simulation pipeline from the terminal,
// without starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/nouki/internal/export"
	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the flags shared by every subcommand.
type cli struct {
	profilesPath string
	asJSON       bool
	xlsxPath     string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "nouki-sim",
		Short: "Shipment simulation from the command line",
		Long: `nouki-sim answers shipment simulation requests against the profile table,
the same way the simulation persona does in a chat session.

Examples:
  nouki-sim simulate "案件名: 4CBTY2 8台"
  nouki-sim extract "プロジェクト名: 5CBTX1\n数量 12台"
  nouki-sim profiles`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.profilesPath, "profiles", "",
		"YAML profile table to use instead of the built-in one")

	simulateCmd := &cobra.Command{
		Use:   "simulate <request text>",
		Short: "Run a simulation and print the narrative",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runSimulate,
	}
	simulateCmd.Flags().BoolVar(&c.asJSON, "json", false, "print the structured result as JSON")
	simulateCmd.Flags().StringVar(&c.xlsxPath, "xlsx", "", "also write the schedule workbook to this path")

	extractCmd := &cobra.Command{
		Use:   "extract <request text>",
		Short: "Show what the extractor finds in a request",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runExtract,
	}

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the profile table",
		Args:  cobra.NoArgs,
		RunE:  c.runProfiles,
	}
	profilesCmd.Flags().BoolVar(&c.asJSON, "json", false, "print the summaries as JSON")

	rootCmd.AddCommand(simulateCmd, extractCmd, profilesCmd)
	return rootCmd
}

func (c *cli) table() (*fixture.Table, error) {
	if c.profilesPath == "" {
		return fixture.Default(), nil
	}
	data, err := os.ReadFile(c.profilesPath)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	t, err := fixture.Load(data)
	if err != nil {
		return nil, fmt.Errorf("profiles %s: %w", c.profilesPath, err)
	}
	return t, nil
}

func (c *cli) service(cmd *cobra.Command) (*simulation.Service, error) {
	t, err := c.table()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return simulation.New(t, logger), nil
}

// requestText joins the arguments and expands a literal "\n" so multi-line
// requests can be typed on one shell line.
func requestText(args []string) string {
	return strings.ReplaceAll(strings.Join(args, " "), `\n`, "\n")
}

func (c *cli) runSimulate(cmd *cobra.Command, args []string) error {
	svc, err := c.service(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	res, err := svc.Simulate(context.Background(), requestText(args))
	if errors.Is(err, simulation.ErrNoProjectName) {
		_, _ = fmt.Fprintln(out, simulation.GuidanceMessage)
		return err
	}
	if err != nil {
		return err
	}

	if c.xlsxPath != "" {
		if err := writeWorkbook(c.xlsxPath, res); err != nil {
			return err
		}
	}
	if c.asJSON {
		return writeJSON(out, res)
	}
	_, err = fmt.Fprintln(out, res.Narrative)
	return err
}

func writeWorkbook(path string, res model.SimulationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	att := model.SimulationAttachment{
		ProjectName: res.ProjectName,
		MatchedKey:  res.MatchedKey,
		ShipDate:    res.ShipDate,
		History:     res.History,
		Schedule:    model.ScheduleList{Version: 1, Blocks: res.Schedule},
	}
	if err := export.WriteSchedule(f, att); err != nil {
		_ = f.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	return f.Close()
}

func (c *cli) runExtract(cmd *cobra.Command, args []string) error {
	svc, err := c.service(cmd)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), svc.Extract(requestText(args)))
}

func (c *cli) runProfiles(cmd *cobra.Command, _ []string) error {
	t, err := c.table()
	if err != nil {
		return err
	}
	summaries := t.Summaries()
	if c.asJSON {
		return writeJSON(cmd.OutOrStdout(), summaries)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tPRIORITY\tQTY\tSHIP DATE\tPLANS")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n", s.Key, s.Priority, s.DefaultQuantity, s.ShipDate, s.Plans)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
