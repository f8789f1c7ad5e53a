package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

// cliOptions holds the persistent flags shared by every command
type cliOptions struct {
	configPath string
	logLevel   string
	output     string
}

const (
	outputTable  = "table"
	outputJSON   = "json"
	outputReport = "report"
)

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "privacyguard",
		Short:         "Score the privacy risk of installed apps",
		Long:          "privacyguard classifies app permissions, detects embedded third-party SDKs and scores each app's privacy risk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputTable, outputJSON, outputReport:
				return nil
			}
			return fmt.Errorf("unknown output format %q (table, json, report)", opts.output)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table, json or report")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newPermissionsCmd(opts))
	root.AddCommand(newSDKsCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newHistoryCmd(opts))

	return root
}

func (o *cliOptions) logger() *logger.Logger {
	return logger.NewWithWriter(logger.Config{Level: o.logLevel, Format: "console"}, os.Stderr)
}

func (o *cliOptions) config() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// newAnalyzer builds an analyzer sized for n apps using only the given deps
func (o *cliOptions) newAnalyzer(n int, deps services.AnalyzerDeps) (*services.AppAnalyzer, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	batchMax := cfg.Analysis.BatchMax
	if n > batchMax {
		batchMax = n
	}

	return services.NewAppAnalyzer(services.AnalyzerConfig{
		BatchMax: batchMax,
		Workers:  cfg.Analysis.Workers,
	}, deps, o.logger()), nil
}
