package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPermissionsCmd(opts *cliOptions) *cobra.Command {
	var dangerousOnly bool

	cmd := &cobra.Command{
		Use:   "permissions [identifier]",
		Short: "List the permission catalog or classify one permission",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				rec := catalog.Classify(args[0], false)
				if opts.output == outputJSON {
					return writeJSON(w, rec)
				}
				_, known := catalog.LookupPermission(args[0])
				fmt.Fprintf(w, "%s (%s)\n", titleStyle.Render(rec.DisplayName), rec.Identifier)
				fmt.Fprintf(w, "  Dangerous:   %t\n", rec.IsDangerous)
				fmt.Fprintf(w, "  Risk weight: %d\n", rec.RiskWeight)
				fmt.Fprintf(w, "  Known:       %t\n", known)
				fmt.Fprintf(w, "  %s\n", rec.Explanation)
				return nil
			}

			perms := catalog.Permissions()
			if dangerousOnly {
				filtered := perms[:0]
				for _, p := range perms {
					if p.IsDangerous {
						filtered = append(filtered, p)
					}
				}
				perms = filtered
			}

			if opts.output == outputJSON {
				return writeJSON(w, perms)
			}

			t := newTable("PERMISSION", "NAME", "DANGEROUS", "WEIGHT")
			for _, p := range perms {
				t.Row(p.Identifier, p.DisplayName, strconv.FormatBool(p.IsDangerous), strconv.Itoa(p.RiskWeight))
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dangerousOnly, "dangerous", false, "Only list dangerous permissions")
	return cmd
}

func newSDKsCmd(opts *cliOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "sdks",
		Short: "List the third-party SDK catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdks := catalog.SdkCatalog()
			if category != "" {
				want := models.SdkCategory(strings.ToLower(category))
				filtered := sdks[:0]
				for _, s := range sdks {
					if s.Category == want {
						filtered = append(filtered, s)
					}
				}
				sdks = filtered
			}
			return writeSDKs(cmd.OutOrStdout(), opts, sdks)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list SDKs in this category")

	detect := &cobra.Command{
		Use:   "detect <app-identifier> [embedded-name...]",
		Short: "Detect SDKs from an app identifier and embedded class or library names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeSDKs(cmd.OutOrStdout(), opts, services.DetectSDKs(args[0], args[1:]))
		},
	}
	cmd.AddCommand(detect)

	return cmd
}

func writeSDKs(w io.Writer, opts *cliOptions, sdks []models.SdkDescriptor) error {
	if opts.output == outputJSON {
		return writeJSON(w, sdks)
	}
	if len(sdks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No SDKs found"))
		return nil
	}

	t := newTable("SDK", "CATEGORY", "DESCRIPTION")
	for _, s := range sdks {
		t.Row(s.Name, string(s.Category), s.Description)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}
