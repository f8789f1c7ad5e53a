package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/streaming"
)

type watchOptions struct {
	natsURL      string
	tiers        []string
	maxScore     int
	deviceID     string
	highRiskOnly bool
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	wopts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream analysis events published by the API server over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := wopts.subscription()
			if err != nil {
				return err
			}

			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if wopts.natsURL != "" {
				cfg.NATS.URL = wopts.natsURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			publisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, opts.logger())
			if err != nil {
				return err
			}
			defer publisher.Close()

			events, err := publisher.Subscribe(ctx, sub)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for event := range events {
				if err := writeEvent(w, opts.output, event); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wopts.natsURL, "nats-url", "", "NATS server URL (overrides config)")
	cmd.Flags().StringSliceVar(&wopts.tiers, "tier", nil, "Only show events for these tiers")
	cmd.Flags().IntVar(&wopts.maxScore, "max-score", -1, "Only show events at or below this score (negative disables)")
	cmd.Flags().StringVar(&wopts.deviceID, "device", "", "Only show events from this device")
	cmd.Flags().BoolVar(&wopts.highRiskOnly, "high-risk-only", false, "Only show high_risk_detected events")

	return cmd
}

// subscription converts the flags to an event filter; nil when nothing is set
func (o *watchOptions) subscription() (*streaming.Subscription, error) {
	if len(o.tiers) == 0 && o.maxScore < 0 && o.deviceID == "" && !o.highRiskOnly {
		return nil, nil
	}

	if o.maxScore > 100 {
		return nil, fmt.Errorf("max-score must be between 0 and 100, got %d", o.maxScore)
	}

	sub := &streaming.Subscription{
		DeviceID:     o.deviceID,
		HighRiskOnly: o.highRiskOnly,
	}
	if o.maxScore >= 0 {
		maxScore := o.maxScore
		sub.MaxScore = &maxScore
	}
	for _, raw := range o.tiers {
		tier, ok := models.ParseRiskTier(raw)
		if !ok {
			return nil, fmt.Errorf("unknown tier %q", raw)
		}
		sub.Tiers = append(sub.Tiers, tier)
	}
	return sub, nil
}

// writeEvent prints one event as a JSON line or a single styled line
func writeEvent(w io.Writer, output string, event *streaming.AnalysisEvent) error {
	if output == outputJSON {
		return json.NewEncoder(w).Encode(event)
	}

	_, err := fmt.Fprintf(w, "%s  %-6s %3d  %s (%s)  %s\n",
		event.Timestamp.Format("15:04:05"),
		tierBadge(event.RiskTier),
		event.SecurityScore,
		event.DisplayName,
		event.Identifier,
		mutedStyle.Render(string(event.Type)),
	)
	return err
}
