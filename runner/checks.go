package runner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/use-agent/serpcheck/browser"
	"github.com/use-agent/serpcheck/models"
	"github.com/use-agent/serpcheck/serp"
)

var sponsoredSelectors = browser.MustSelectorSet(`div[data-text-ad="1"]`)

// minVideoLinks is how many related video links the results must offer.
const minVideoLinks = 2

func (r *Runner) searchAndFindSponsored(ctx context.Context, st *SharedState) models.Result {
	if err := st.ResetSponsoredURL(r.opts.SideFile); err != nil {
		return models.Fail(models.NewCollaboratorError("failed to clear sponsored URL", err))
	}
	if err := r.ensureSearch(ctx, st); err != nil {
		return models.Fail(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.opts.SponsoredTimeout)
	first, err := r.page.FindFirst(waitCtx, sponsoredSelectors)
	cancel()
	if err != nil {
		return models.Fail(models.NewCheckError(models.ErrCodeAssertion, "no sponsored results found", err))
	}
	if all, err := r.page.FindAll(ctx, sponsoredSelectors); err == nil {
		slog.Info("sponsored results found", "count", len(all))
	}

	navCtx, cancel := r.navigationContext(ctx)
	err = first.ClickAndWait(navCtx)
	cancel()
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to open sponsored result", err))
	}
	if err := r.page.WaitIdle(ctx); err != nil {
		return models.Fail(models.NewCollaboratorError("sponsored page did not load", err))
	}
	sponsoredURL, err := r.page.URL(ctx)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to read sponsored URL", err))
	}
	if sponsoredURL == "" {
		return models.Fail(models.Assertionf("no sponsored URL found"))
	}
	slog.Info("sponsored URL captured", "url", sponsoredURL)

	if err := st.SaveSponsoredURL(r.opts.SideFile, sponsoredURL); err != nil {
		return models.Fail(models.NewCollaboratorError("failed to persist sponsored URL", err))
	}

	// Later browser checks start from the results page.
	if err := r.page.Back(ctx); err != nil {
		slog.Warn("failed to return to results, search will be repeated", "error", err)
		st.SearchPerformed = false
		st.SearchAttempted = false
	}

	return models.Pass("Sponsored URL found and saved successfully.")
}

func (r *Runner) verifyURLReachable(ctx context.Context, st *SharedState) models.Result {
	u, err := st.ResolveSponsoredURL(r.opts.SideFile)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to load sponsored URL", err))
	}
	if u == "" {
		return models.Skip("no sponsored URL was recorded")
	}

	slog.Info("performing request", "url", u)
	resp, err := r.fetcher.Get(ctx, u)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("request to sponsored URL failed", err))
	}
	slog.Info("received response", "url", u, "status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return models.Fail(models.Assertionf("expected status code 200, but got %d", resp.StatusCode))
	}
	return models.Pass("API call to the sponsored URL was successful.")
}

func (r *Runner) verifyContentMentionsTerm(ctx context.Context, st *SharedState) models.Result {
	u, err := st.ResolveSponsoredURL(r.opts.SideFile)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to load sponsored URL", err))
	}
	if u == "" {
		return models.Skip("no sponsored URL was recorded")
	}

	resp, err := r.fetcher.Get(ctx, u)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("request to sponsored URL failed", err))
	}
	spellings := quoteAll(r.opts.Spellings)
	if !serp.ContainsAny(resp.Body, r.opts.Spellings) {
		return models.Fail(models.Assertionf("response does not contain %s", spellings))
	}
	return models.Pass(spellings + " is present in the response content.")
}

func (r *Runner) countRelatedVideoLinks(ctx context.Context, st *SharedState) models.Result {
	if st.SearchAttempted && !st.SearchPerformed {
		return models.Skip("search was not performed")
	}
	if err := r.ensureSearch(ctx, st); err != nil {
		return models.Fail(err)
	}

	findCtx, cancel := context.WithTimeout(ctx, r.opts.ElementTimeout)
	tab, err := r.page.FindByText(findCtx, `a, div[role="link"], span`, "Videos")
	cancel()
	if err != nil {
		return models.Fail(models.NewCheckError(models.ErrCodeAssertion, "videos tab not found", err))
	}
	navCtx, cancel := r.navigationContext(ctx)
	err = tab.ClickAndWait(navCtx)
	cancel()
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to open videos tab", err))
	}
	if err := r.page.WaitIdle(ctx); err != nil {
		return models.Fail(models.NewCollaboratorError("videos tab did not load", err))
	}

	html, err := r.page.HTML(ctx)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to read videos tab", err))
	}
	links, err := serp.VideoLinks(html, r.opts.VideoPattern)
	if err != nil {
		return models.Fail(models.NewCollaboratorError("failed to parse videos tab", err))
	}
	st.VideoLinks = links
	slog.Info("video links collected", "count", len(links), "pattern", r.opts.VideoPattern)

	if len(links) < minVideoLinks {
		return models.Fail(models.Assertionf("expected at least %d video links, but found %d", minVideoLinks, len(links)))
	}
	return models.Pass(fmt.Sprintf("Found %d video links.", len(links)))
}

func (r *Runner) verifyVideoTitlesRelevant(ctx context.Context, st *SharedState) models.Result {
	if len(st.VideoLinks) < minVideoLinks {
		return models.Skip(fmt.Sprintf("fewer than %d video links were collected", minVideoLinks))
	}

	term := r.term()
	for _, link := range st.VideoLinks[:minVideoLinks] {
		title := link.Title
		if strings.TrimSpace(title) == "" {
			fetched, err := r.fetcher.Title(ctx, link.URL)
			if err != nil {
				return models.Fail(models.NewCollaboratorError("failed to fetch video title", err))
			}
			title = fetched
		}
		slog.Info("video title", "url", link.URL, "title", title)
		if !strings.Contains(serp.Normalize(title), term) {
			return models.Fail(models.Assertionf("video title does not contain %q: %s", term, title))
		}
	}
	return models.Pass(fmt.Sprintf("The first %d video titles contain %q.", minVideoLinks, term))
}

// term is the normalized form every relevant title must contain.
func (r *Runner) term() string {
	source := r.opts.Query
	if len(r.opts.Spellings) > 0 {
		source = r.opts.Spellings[0]
	}
	return strings.TrimSpace(serp.Normalize(source))
}

func quoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, " or ")
}
