package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/infrastructure/localstore"
)

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	var (
		tier       string
		identifier string
		deviceID   string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history <database>",
		Short: "List analyses recorded with analyze --save, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.AnalysisListFilter{
				Identifier: identifier,
				DeviceID:   deviceID,
				Limit:      limit,
			}
			if tier != "" {
				t, ok := models.ParseRiskTier(tier)
				if !ok {
					return fmt.Errorf("unknown tier %q", tier)
				}
				filter.Tier = t
			}

			ctx := cmd.Context()
			store, err := localstore.Open(ctx, args[0], opts.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			analyzer, err := opts.newAnalyzer(1, services.AnalyzerDeps{Store: store})
			if err != nil {
				return err
			}

			analyses, total, err := analyzer.ListAnalyses(ctx, filter)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.output == outputJSON {
				return writeJSON(w, map[string]any{
					"analyses": analyses,
					"total":    total,
				})
			}

			if len(analyses) == 0 {
				fmt.Fprintln(w, mutedStyle.Render("No recorded analyses"))
				return nil
			}

			t := newTable("ANALYZED", "APP", "IDENTIFIER", "SCORE", "TIER", "DEVICE")
			for _, a := range analyses {
				t.Row(
					a.AnalyzedAt.Local().Format("2006-01-02 15:04"),
					a.DisplayName,
					a.Identifier,
					strconv.Itoa(a.Result.SecurityScore),
					tierBadge(a.Result.RiskTier),
					a.DeviceID,
				)
			}
			fmt.Fprintln(w, t.Render())
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d of %d analyses", len(analyses), total)))
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Only list analyses in this tier")
	cmd.Flags().StringVar(&identifier, "app", "", "Only list analyses of this app identifier")
	cmd.Flags().StringVar(&deviceID, "device", "", "Only list analyses from this device")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of analyses to list (1-100)")

	return cmd
}
