package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/use-agent/serpcheck/config"
	"github.com/use-agent/serpcheck/models"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitCheckFailed = 1
	exitConfig      = 2
)

// errChecksFailed is returned by the run command when any check failed.
var errChecksFailed = errors.New("one or more checks failed")

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the root command and maps its error to an exit code.
func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	code := exitCode(err)
	if err != nil && !errors.Is(err, errChecksFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errChecksFailed):
		return exitCheckFailed
	case models.IsConfigurationError(err):
		return exitConfig
	default:
		return exitCheckFailed
	}
}

func newRootCmd() *cobra.Command {
	viper.SetEnvPrefix("SERPCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root := &cobra.Command{
		Use:           "serpcheck",
		Short:         "End-to-end checks of sponsored search results",
		Long:          "serpcheck drives a browser through a search, verifies the sponsored result and related videos, and records every outcome to the configured result stores.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCmdRun(), newCmdResults(), newCmdPing())
	return root
}

// loadConfig loads the configuration and initialises logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	initLogger(cfg.Log)
	return cfg, nil
}

// initLogger configures slog based on the LogConfig.
// Logs go to stderr so stdout stays reserved for reports.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
