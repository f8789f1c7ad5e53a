package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/infrastructure/localstore"
	"privacyguard-lab/internal/inventory"
)

// errThresholdExceeded is returned when --fail-on matches at least one app
var errThresholdExceeded = errors.New("risk threshold exceeded")

type analyzeOptions struct {
	filterTier string
	query      string
	failOn     string
	savePath   string
}

func newAnalyzeCmd(opts *cliOptions) *cobra.Command {
	aopts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <inventory-file>",
		Short: "Analyze every app in a YAML, JSON or plist inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts, aopts, args[0])
		},
	}

	cmd.Flags().StringVar(&aopts.filterTier, "filter-tier", "", "Only show apps in this tier (safe, low, medium, high)")
	cmd.Flags().StringVarP(&aopts.query, "query", "q", "", "Only show apps whose name or identifier contains this text")
	cmd.Flags().StringVar(&aopts.failOn, "fail-on", "", "Exit non-zero if any app is at or above this tier")
	cmd.Flags().StringVar(&aopts.savePath, "save", "", "Record the analyses in this SQLite history database")

	return cmd
}

// analyzeOutput is the JSON document written by analyze -o json
type analyzeOutput struct {
	DeviceID string                  `json:"device_id,omitempty"`
	Summary  models.InventorySummary `json:"summary"`
	Apps     []models.AppAnalysis    `json:"apps"`
	Skipped  int                     `json:"skipped"`
}

func runAnalyze(ctx context.Context, w io.Writer, opts *cliOptions, aopts *analyzeOptions, path string) error {
	filter := models.AppFilter{Query: aopts.query}
	if aopts.filterTier != "" {
		tier, ok := models.ParseRiskTier(aopts.filterTier)
		if !ok {
			return fmt.Errorf("unknown tier %q", aopts.filterTier)
		}
		filter.Tier = tier
	}

	var failOn models.RiskTier
	if aopts.failOn != "" {
		tier, ok := models.ParseRiskTier(aopts.failOn)
		if !ok {
			return fmt.Errorf("unknown tier %q", aopts.failOn)
		}
		failOn = tier
	}

	inv, err := inventory.Load(path)
	if err != nil {
		return err
	}

	var deps services.AnalyzerDeps
	if aopts.savePath != "" {
		store, err := localstore.Open(ctx, aopts.savePath, opts.logger())
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Store = store
	}

	analyzer, err := opts.newAnalyzer(len(inv.Apps), deps)
	if err != nil {
		return err
	}

	batch, err := analyzer.AnalyzeBatch(ctx, &models.AppBatchAnalysisRequest{
		Apps:          inv.Apps,
		DeviceID:      inv.DeviceID,
		IncludeReport: opts.output == outputReport,
	})
	if err != nil {
		return err
	}

	summary := services.Summarize(batch.Results)
	apps := services.FilterApps(batch.Results, filter)

	switch opts.output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analyzeOutput{
			DeviceID: inv.DeviceID,
			Summary:  summary,
			Apps:     apps,
			Skipped:  batch.SkippedCount,
		}); err != nil {
			return err
		}
	case outputReport:
		for i, a := range apps {
			if i > 0 {
				fmt.Fprintln(w, strings.Repeat("-", 40))
			}
			fmt.Fprint(w, a.Report)
		}
	default:
		writeAnalysisTable(w, apps)
		writeSummary(w, summary, batch.SkippedCount)
	}

	if failOn != "" && exceeds(batch.Results, failOn) {
		return fmt.Errorf("%w: apps at or above %s", errThresholdExceeded, failOn)
	}
	return nil
}

// exceeds reports whether any analysis sits at or above tier
func exceeds(results []models.AppAnalysis, tier models.RiskTier) bool {
	threshold := tierRank(tier)
	for _, r := range results {
		if tierRank(r.Result.RiskTier) >= threshold {
			return true
		}
	}
	return false
}

func tierRank(t models.RiskTier) int {
	for i, rt := range models.RiskTiers {
		if rt == t {
			return i
		}
	}
	return len(models.RiskTiers)
}

func writeAnalysisTable(w io.Writer, apps []models.AppAnalysis) {
	if len(apps) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No apps match the filter"))
		return
	}

	t := newTable("APP", "IDENTIFIER", "SCORE", "TIER", "DANGEROUS", "SDKS")
	for _, a := range apps {
		names := make([]string, 0, len(a.Result.DetectedSDKs))
		for _, s := range a.Result.DetectedSDKs {
			names = append(names, s.Name)
		}
		t.Row(
			a.DisplayName,
			a.Identifier,
			strconv.Itoa(a.Result.SecurityScore),
			tierBadge(a.Result.RiskTier),
			strconv.Itoa(a.DangerousCount),
			strings.Join(names, ", "),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func writeSummary(w io.Writer, s models.InventorySummary, skipped int) {
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	fmt.Fprintf(w, "  Apps analyzed:     %d", s.TotalApps)
	if skipped > 0 {
		fmt.Fprintf(w, " (%d skipped)", skipped)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Average score:     %.1f\n", s.AverageScore)
	for _, t := range models.RiskTiers {
		fmt.Fprintf(w, "  %-18s %d\n", tierBadge(t)+":", s.ByTier[t])
	}
	fmt.Fprintf(w, "  With advertising:  %d\n", s.AppsWithAdvertising)
	fmt.Fprintf(w, "  With tracking:     %d\n", s.AppsWithTracking)
}
