package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/use-agent/serpcheck/browser"
	"github.com/use-agent/serpcheck/config"
	"github.com/use-agent/serpcheck/fetch"
	"github.com/use-agent/serpcheck/metrics"
	"github.com/use-agent/serpcheck/models"
	"github.com/use-agent/serpcheck/recorder"
	"github.com/use-agent/serpcheck/report"
	"github.com/use-agent/serpcheck/runner"
	"github.com/use-agent/serpcheck/store"
	"github.com/use-agent/serpcheck/webhook"
)

const (
	flagCheck    = "check"
	flagQuery    = "query"
	flagSideFile = "side-file"
	flagHeadless = "headless"
)

// newCmdRun creates the run command.
func newCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the checks",
		Long:  "Runs the selected checks (all of them by default) in order and records each outcome.",
		Args:  cobra.NoArgs,
		RunE:  runChecks,
	}

	cmd.Flags().StringSlice(flagCheck, nil, "check to run, repeatable (default: all checks in order)")
	cmd.Flags().String(flagQuery, "", "search query (overrides SERPCHECK_QUERY)")
	cmd.Flags().String(flagSideFile, "", "file persisting the sponsored URL between runs (overrides SERPCHECK_SIDE_FILE)")
	cmd.Flags().Bool(flagHeadless, true, "run the browser headless")

	viper.BindPFlag(flagCheck, cmd.Flags().Lookup(flagCheck))
	viper.BindPFlag(flagQuery, cmd.Flags().Lookup(flagQuery))
	viper.BindPFlag(flagSideFile, cmd.Flags().Lookup(flagSideFile))
	viper.BindPFlag(flagHeadless, cmd.Flags().Lookup(flagHeadless))

	return cmd
}

// applyRunFlags overlays command line values on the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if q := viper.GetString(flagQuery); q != "" {
		cfg.Search.Query = q
	}
	if p := viper.GetString(flagSideFile); p != "" {
		cfg.Search.SideFile = p
	}
	if cmd.Flags().Changed(flagHeadless) {
		cfg.Browser.Headless = viper.GetBool(flagHeadless)
	}
}

func runChecks(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	names := splitChecks(viper.GetStringSlice(flagCheck))
	if err := runner.ValidateNames(names); err != nil {
		return models.NewConfigurationError("invalid --check", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	rec := recorder.New(cfg.StorageTarget, store.NewPrimary(cfg.Primary), store.NewSecondary(cfg.Secondary), m)
	slog.Info("serpcheck starting",
		"version", Version,
		"query", cfg.Search.Query,
		"storageTarget", cfg.StorageTarget.String(),
		"stores", rec.Stores(),
		"checks", names,
	)

	var page browser.Page
	if runner.NeedsBrowser(names) {
		b, err := browser.Launch(cfg.Browser)
		if err != nil {
			return err
		}
		defer b.Close()

		p, err := b.NewPage(ctx)
		if err != nil {
			return err
		}
		defer p.Close()
		page = p
	}

	r := runner.New(page, fetch.New(cfg.Timeouts.HTTP), rec, m, runOptions(cfg))
	summary, err := r.Run(ctx, &runner.SharedState{}, names...)
	if err != nil {
		return err
	}

	if err := report.WriteSummary(cmd.OutOrStdout(), report.DefaultTheme(), summary); err != nil {
		slog.Warn("failed to write summary", "error", err)
	}

	if cfg.Report.MetricsFile != "" {
		if err := m.WriteFile(cfg.Report.MetricsFile); err != nil {
			slog.Warn("failed to write metrics file", "path", cfg.Report.MetricsFile, "error", err)
		}
	}

	if cfg.Report.WebhookURL != "" {
		// Uses a fresh context so an interrupted run still reports.
		event := summaryEvent(cfg.Search.Query, summary)
		if err := webhook.DeliverWithRetry(context.Background(), cfg.Report.WebhookURL, cfg.Report.WebhookSecret, event, webhook.RetryDelays); err != nil {
			slog.Warn("run summary not delivered", "error", err)
		}
	}

	if summary.Failed() {
		return errChecksFailed
	}
	return nil
}

// splitChecks flattens comma-separated entries. SERPCHECK_CHECK=A,B arrives
// from viper as the single entry "A,B".
func splitChecks(values []string) []string {
	var names []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func runOptions(cfg *config.Config) runner.Options {
	return runner.Options{
		SearchURL:         cfg.Search.URL,
		Query:             cfg.Search.Query,
		Spellings:         cfg.Search.Spellings,
		VideoPattern:      cfg.Search.VideoPattern,
		SideFile:          cfg.Search.SideFile,
		ScreenshotDir:     cfg.Search.ScreenshotDir,
		ElementTimeout:    cfg.Timeouts.Element,
		SponsoredTimeout:  cfg.Timeouts.Sponsored,
		PromptTimeout:     cfg.Timeouts.Prompt,
		NavigationTimeout: cfg.Timeouts.Navigation,
	}
}

// summaryEvent builds the webhook payload for a finished run.
func summaryEvent(query string, s *runner.Summary) *webhook.Event {
	passed, failed, skipped := s.Counts()
	data := webhook.RunSummary{
		Query:   query,
		Passed:  passed,
		Failed:  failed,
		Skipped: skipped,
		Checks:  make([]webhook.CheckOutcome, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		data.Checks = append(data.Checks, webhook.CheckOutcome{
			Check:      r.Check,
			Outcome:    string(r.Outcome),
			Details:    r.Details,
			DurationMS: r.Duration.Milliseconds(),
		})
	}

	eventType := "run.completed"
	if failed > 0 {
		eventType = "run.failed"
	}
	return &webhook.Event{
		Type:      eventType,
		RunID:     s.RunID,
		Timestamp: s.Finished.Unix(),
		Data:      data,
	}
}
