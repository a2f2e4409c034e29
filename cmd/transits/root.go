package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carlcj05/Astrozee/pkg/config"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:          "transits",
	Short:        "Compute the astrological transits of a birth profile",
	Long:         "transits scans the sky around a target month and lists the aspects transiting bodies form to a natal chart.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (defaults apply when empty)")
	rootCmd.PersistentFlags().String("remote", "", "base URL of a transits server; computes locally when empty")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level written to stderr")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadWithEnv(path)
	}
	cfg := config.Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*applogger.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", name)
	}
	return applogger.NewWriter(cmd.ErrOrStderr(), level), nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	out, _ := cmd.Flags().GetString("output")
	switch out = strings.ToLower(out); out {
	case "text", "json":
		return out, nil
	default:
		return "", fmt.Errorf("unknown output format %q", out)
	}
}
