package runner

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/use-agent/serpcheck/browser"
	"github.com/use-agent/serpcheck/models"
)

var searchInputSelectors = browser.MustSelectorSet(
	`textarea[name="q"]`,
	`input[title="Search"]`,
	`input[aria-label="Search"]`,
	`input[type="text"]`,
	`input[class="gLFyf gsfi"]`,
)

// ensureSearch performs the search once per session. Later calls are no-ops
// once it has succeeded.
func (r *Runner) ensureSearch(ctx context.Context, st *SharedState) error {
	if st.SearchPerformed {
		return nil
	}
	st.SearchAttempted = true

	slog.Info("navigating to search page", "url", r.opts.SearchURL)
	if err := r.page.Navigate(ctx, r.opts.SearchURL); err != nil {
		return models.NewCollaboratorError("failed to open search page", err)
	}
	if err := r.page.WaitIdle(ctx); err != nil {
		return models.NewCollaboratorError("search page did not load", err)
	}

	if r.opts.ScreenshotDir != "" {
		path := filepath.Join(r.opts.ScreenshotDir, "before_search_input.png")
		if err := r.page.Screenshot(ctx, path); err != nil {
			slog.Warn("screenshot failed", "path", path, "error", err)
		} else {
			slog.Info("screenshot saved", "path", path)
		}
	}

	findCtx, cancel := context.WithTimeout(ctx, r.opts.ElementTimeout)
	input, err := r.page.FindFirst(findCtx, searchInputSelectors)
	cancel()
	if err != nil {
		return models.NewCheckError(models.ErrCodeAssertion, "search input not found", err)
	}

	slog.Info("performing search", "query", r.opts.Query)
	if err := input.Input(ctx, r.opts.Query); err != nil {
		return models.NewCollaboratorError("failed to type query", err)
	}
	navCtx, cancel := r.navigationContext(ctx)
	err = input.PressEnterAndWait(navCtx)
	cancel()
	if err != nil {
		return models.NewCollaboratorError("failed to submit query", err)
	}
	if err := r.page.WaitIdle(ctx); err != nil {
		return models.NewCollaboratorError("search results did not load", err)
	}

	r.dismissLocationPrompt(ctx)

	st.SearchPerformed = true
	return nil
}

// navigationContext bounds a wait for a click or submit to load a new page.
func (r *Runner) navigationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.NavigationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.NavigationTimeout)
}

// dismissLocationPrompt clicks "Not now" if the location prompt appears
// within the prompt timeout. Its absence is not an error.
func (r *Runner) dismissLocationPrompt(ctx context.Context) {
	promptCtx, cancel := context.WithTimeout(ctx, r.opts.PromptTimeout)
	defer cancel()

	el, err := r.page.FindByText(promptCtx, `button, div[role="button"], span`, "Not now")
	if err != nil {
		slog.Info("location prompt did not appear")
		return
	}
	if err := el.Click(promptCtx); err != nil {
		slog.Warn("failed to dismiss location prompt", "error", err)
		return
	}
	slog.Info("location prompt dismissed")
}
