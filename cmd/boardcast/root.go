// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ManuGH/boardcast/internal/config"
	"github.com/ManuGH/boardcast/internal/version"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boardcast",
		Short: "Share this screen with PIN-authenticated viewers",
		Long: `boardcast captures the local display and streams it as a multipart image
feed to browsers that entered the shared PIN. Viewers can page through a
presentation and toggle a privacy placeholder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}
	root.SetVersionTemplate("boardcast {{.Version}}\n")

	root.AddCommand(
		newServeCmd(),
		newConfigCmd(),
		newHealthcheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "boardcast %s\n", version.String())
		},
	}
}

// resolveConfigPath prefers the flag, then BOARDCAST_CONFIG, then ./config.yaml
// when present. An empty result means env and defaults only.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(config.EnvConfigPath)); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
