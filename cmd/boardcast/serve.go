// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/boardcast/internal/config"
	"github.com/ManuGH/boardcast/internal/daemon"
	"github.com/ManuGH/boardcast/internal/health"
	"github.com/ManuGH/boardcast/internal/log"
	xgtls "github.com/ManuGH/boardcast/internal/tls"
	"github.com/ManuGH/boardcast/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	envFile    string
	logOutput  io.Writer
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the screen sharing server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.logOutput = cmd.OutOrStdout()
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config; existing variables win")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}

	// Safe defaults until the config is loaded.
	log.Configure(log.Config{Level: "info", Output: opts.logOutput, Version: version.Version})
	logger := log.WithComponent("daemon")

	configPath := resolveConfigPath(opts.configPath)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}

	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Output:  opts.logOutput,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = log.WithComponent("daemon")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str(log.FieldSource, source).
		Str("path", configPath).
		Msg("configuration loaded")
	for _, w := range config.Warnings(cfg) {
		logger.Warn().Str("security", "weak").Msg(w.Error())
	}

	if cfg.Server.TLSAuto {
		certPath, keyPath, err := xgtls.EnsureCertificates(xgtls.Config{
			CertPath: cfg.Server.TLSCert,
			KeyPath:  cfg.Server.TLSKey,
			Hosts:    cfg.Server.TLSHosts,
			Logger:   log.WithComponent("tls"),
		})
		if err != nil {
			return fmt.Errorf("ensure TLS certificates: %w", err)
		}
		cfg.Server.TLSCert, cfg.Server.TLSKey = certPath, keyPath
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		return err
	}

	serverCfg, err := config.ServerConfigFor(cfg)
	if err != nil {
		return err
	}

	rt, err := wire(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}

	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     rt.handler,
		MetricsAddr:    cfg.Metrics.Listen,
		MetricsHandler: promhttp.Handler(),
		TLSCert:        cfg.Server.TLSCert,
		TLSKey:         cfg.Server.TLSKey,
		DrainStreams:   rt.registry.TerminateAll,
	})
	if err != nil {
		_ = rt.closeAll(context.WithoutCancel(ctx))
		return err
	}
	for _, h := range rt.hooks {
		mgr.RegisterShutdownHook(h.name, h.fn)
	}

	logBanner(logger, cfg, serverCfg)
	if err := mgr.Start(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "manager.failed").Msg("daemon failed")
		return err
	}
	logger.Info().Msg("server exiting")
	return nil
}

func logBanner(logger zerolog.Logger, cfg config.AppConfig, serverCfg config.ServerConfig) {
	scheme := "http"
	if cfg.Server.TLSCert != "" {
		scheme = "https"
	}
	logger.Info().
		Str(log.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str(log.FieldListenAddr, serverCfg.ListenAddr).
		Msg("starting boardcast")

	logger.Info().Msgf("→ Listening: %s://%s", scheme, serverCfg.ListenAddr)
	logger.Info().Msgf("→ Capture: %s (region %s)", cfg.Capture.Source, cfg.Capture.Region)
	logger.Info().Msgf("→ Encoding: %s q%d, %dx%d (%s)", cfg.Encode.Format, cfg.Encode.Quality, cfg.Encode.Width, cfg.Encode.Height, cfg.Encode.Fit)
	logger.Info().Msgf("→ Sessions: %s, ttl %s", cfg.Session.Backend, cfg.Auth.SessionTTL)
	logger.Info().Msgf("→ Input: %s", cfg.Input.Backend)
	if cfg.Metrics.Listen != "" {
		logger.Info().Msgf("→ Metrics: %s/metrics", cfg.Metrics.Listen)
	}
	logger.Info().Msgf("→ PIN: %s", secretState(cfg.Auth.PIN == config.DefaultPIN))
	logger.Info().Msgf("→ Session secret: %s", secretState(cfg.Auth.SessionSecret == config.DefaultSessionSecret))
}

func secretState(isDefault bool) string {
	if isDefault {
		return "default"
	}
	return "configured"
}
