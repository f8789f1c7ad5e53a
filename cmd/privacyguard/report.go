package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/inventory"
)

func newReportCmd(opts *cliOptions) *cobra.Command {
	var inventoryPath string

	cmd := &cobra.Command{
		Use:   "report <identifier>",
		Short: "Print the privacy report of one app from an inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}

			var snapshot *models.AppSnapshot
			for i := range inv.Apps {
				if inv.Apps[i].Identifier == args[0] {
					snapshot = &inv.Apps[i]
					break
				}
			}
			if snapshot == nil {
				return fmt.Errorf("app %q not found in %s", args[0], inventoryPath)
			}

			analyzer, err := opts.newAnalyzer(1, services.AnalyzerDeps{})
			if err != nil {
				return err
			}

			analysis, err := analyzer.AnalyzeApp(cmd.Context(), &models.AppAnalysisRequest{
				App:           *snapshot,
				DeviceID:      inv.DeviceID,
				IncludeReport: true,
			})
			if err != nil {
				return err
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), analysis)
			}
			fmt.Fprint(cmd.OutOrStdout(), analysis.Report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Inventory file containing the app")
	_ = cmd.MarkFlagRequired("inventory")

	return cmd
}
