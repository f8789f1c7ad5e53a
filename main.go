// main.go - Lightweight privacy analysis server with no external infrastructure
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	}).WithComponent("lite")

	analyzer := services.NewAppAnalyzer(services.AnalyzerConfig{
		BatchMax: cfg.Analysis.BatchMax,
		Workers:  cfg.Analysis.Workers,
	}, services.AnalyzerDeps{}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.LitePort),
		Handler:      newLiteRouter(cfg, analyzer, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info().
		Str("addr", server.Addr).
		Int("api_keys", len(cfg.Auth.APIKeys)).
		Msg("privacy analysis lite server starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("lite server failed")
	}
}
