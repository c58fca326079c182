// Package runner executes the fixed sequence of checks against one browser
// session and records every terminal outcome.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/serpcheck/browser"
	"github.com/use-agent/serpcheck/fetch"
	"github.com/use-agent/serpcheck/models"
)

// Fetcher is the HTTP collaborator.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
	Title(ctx context.Context, url string) (string, error)
}

// Recorder persists one result per non-skipped check.
type Recorder interface {
	Record(ctx context.Context, name string, status models.Status, details string) error
}

// Observer is notified of every terminal check outcome.
type Observer interface {
	ObserveCheck(check, outcome string, d time.Duration)
}

// Options are the search parameters and bounded waits of a run.
type Options struct {
	SearchURL     string
	Query         string
	Spellings     []string
	VideoPattern  string
	SideFile      string
	ScreenshotDir string

	ElementTimeout    time.Duration
	SponsoredTimeout  time.Duration
	PromptTimeout     time.Duration
	NavigationTimeout time.Duration
}

type check struct {
	name string
	run  func(ctx context.Context, st *SharedState) models.Result
}

// Runner executes checks in catalog order.
type Runner struct {
	page     browser.Page
	fetcher  Fetcher
	recorder Recorder
	observer Observer
	opts     Options
	checks   []check
}

// New creates a Runner. page may be nil when only checks that do not need
// the browser will run.
func New(page browser.Page, fetcher Fetcher, recorder Recorder, observer Observer, opts Options) *Runner {
	r := &Runner{
		page:     page,
		fetcher:  fetcher,
		recorder: recorder,
		observer: observer,
		opts:     opts,
	}
	r.checks = []check{
		{models.CheckSearchAndFindSponsored, r.searchAndFindSponsored},
		{models.CheckVerifyURLReachable, r.verifyURLReachable},
		{models.CheckVerifyContentMentionsTerm, r.verifyContentMentionsTerm},
		{models.CheckCountRelatedVideoLinks, r.countRelatedVideoLinks},
		{models.CheckVerifyVideoTitlesRelevant, r.verifyVideoTitlesRelevant},
	}
	return r
}

// CheckNames lists the catalog in execution order.
func CheckNames() []string {
	return []string{
		models.CheckSearchAndFindSponsored,
		models.CheckVerifyURLReachable,
		models.CheckVerifyContentMentionsTerm,
		models.CheckCountRelatedVideoLinks,
		models.CheckVerifyVideoTitlesRelevant,
	}
}

// ValidateNames rejects names that are not in the catalog.
func ValidateNames(names []string) error {
	known := CheckNames()
	for _, n := range names {
		if !slices.Contains(known, n) {
			return fmt.Errorf("unknown check %q (known: %v)", n, known)
		}
	}
	return nil
}

// NeedsBrowser reports whether any of the selected checks drives the
// browser. An empty selection means every check.
func NeedsBrowser(names []string) bool {
	if len(names) == 0 {
		return true
	}
	return slices.Contains(names, models.CheckSearchAndFindSponsored) ||
		slices.Contains(names, models.CheckCountRelatedVideoLinks)
}

// Summary is the aggregated outcome of a run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []models.Result
}

// Counts returns the number of passed, failed and skipped checks.
func (s *Summary) Counts() (passed, failed, skipped int) {
	for _, r := range s.Results {
		switch r.Outcome {
		case models.OutcomePassed:
			passed++
		case models.OutcomeFailed:
			failed++
		case models.OutcomeSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Failed reports whether any check failed.
func (s *Summary) Failed() bool {
	_, failed, _ := s.Counts()
	return failed > 0
}

// Run executes the selected checks (all of them when names is empty) in
// catalog order, threading st through every check.
func (r *Runner) Run(ctx context.Context, st *SharedState, names ...string) (*Summary, error) {
	if err := ValidateNames(names); err != nil {
		return nil, models.NewConfigurationError("invalid check selection", err)
	}
	if r.page == nil && NeedsBrowser(names) {
		return nil, models.NewConfigurationError("browser checks selected without a browser page", nil)
	}

	summary := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	slog.Info("run started", "runID", summary.RunID, "query", r.opts.Query)

	for _, c := range r.checks {
		if len(names) > 0 && !slices.Contains(names, c.name) {
			continue
		}
		summary.Results = append(summary.Results, r.execute(ctx, c, st))
	}

	summary.Finished = time.Now()
	passed, failed, skipped := summary.Counts()
	slog.Info("run finished",
		"runID", summary.RunID,
		"passed", passed,
		"failed", failed,
		"skipped", skipped,
		"duration", summary.Finished.Sub(summary.Started),
	)
	return summary, nil
}

// execute runs one check inside its failure boundary and records the
// outcome unless the check was skipped.
func (r *Runner) execute(ctx context.Context, c check, st *SharedState) (res models.Result) {
	start := time.Now()
	slog.Info("running check", "check", c.name)

	func() {
		defer func() {
			if p := recover(); p != nil {
				res = models.Fail(models.NewCollaboratorError("check panicked", fmt.Errorf("%v", p)))
			}
		}()
		res = c.run(ctx, st)
	}()
	res.Check = c.name
	res.Duration = time.Since(start)

	switch res.Outcome {
	case models.OutcomeSkipped:
		slog.Info("check skipped", "check", c.name, "reason", res.Details)
	case models.OutcomePassed:
		slog.Info("check passed", "check", c.name, "details", res.Details)
	default:
		slog.Error("check failed",
			"check", c.name,
			"code", models.ErrorCode(res.Err),
			"error", res.Details,
		)
	}

	if res.Outcome != models.OutcomeSkipped {
		if err := r.recorder.Record(ctx, c.name, res.Status(), res.Details); err != nil {
			slog.Warn("result was not saved to every store", "check", c.name, "error", err)
		}
	}
	if r.observer != nil {
		r.observer.ObserveCheck(c.name, string(res.Outcome), res.Duration)
	}
	return res
}
