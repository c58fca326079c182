package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/serpcheck/browser"
	"github.com/use-agent/serpcheck/fetch"
	"github.com/use-agent/serpcheck/models"
	"github.com/use-agent/serpcheck/serp"
)

const (
	landingURL = "https://www.dominos.com/en/?utm_source=google"
	videosHTML = `<html><body>
<a href="https://www.youtube.com/watch?v=one"><h3>Domino's Pizza: How It's Made</h3></a>
<a href="https://www.youtube.com/watch?v=two"><h3>Trying every DOMINOS pizza</h3></a>
</body></html>`
)

// fakeElement simulates a link or button. onClick is the navigation it
// triggers, which only takes effect when the caller waits for it.
type fakeElement struct {
	text      string
	onClick   func()
	typed     string
	entered   bool
	clicks    int
	navigated bool
	panics    bool
}

func (e *fakeElement) Click(context.Context) error {
	if e.panics {
		panic("element detached")
	}
	e.clicks++
	return nil
}

func (e *fakeElement) ClickAndWait(ctx context.Context) error {
	if err := e.Click(ctx); err != nil {
		return err
	}
	if e.onClick != nil {
		e.onClick()
	}
	e.navigated = true
	return nil
}

func (e *fakeElement) Input(_ context.Context, text string) error {
	e.typed = text
	return nil
}

func (e *fakeElement) PressEnterAndWait(context.Context) error {
	e.entered = true
	e.navigated = true
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attribute(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// fakePage simulates the results page. Elements are keyed by the joined
// selector set, text lookups by the text.
type fakePage struct {
	url      string
	html     string
	navErr   error
	backErr  error
	elements map[string][]*fakeElement
	byText   map[string]*fakeElement
	visited  []string
	shots    []string
}

func newFakePage() *fakePage {
	p := &fakePage{
		elements: map[string][]*fakeElement{},
		byText:   map[string]*fakeElement{},
	}
	p.elements[searchInputSelectors.String()] = []*fakeElement{{}}
	p.elements[sponsoredSelectors.String()] = []*fakeElement{
		{onClick: func() { p.url = landingURL }},
		{},
	}
	p.byText["Videos"] = &fakeElement{onClick: func() { p.html = videosHTML }}
	return p
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.navErr != nil {
		return p.navErr
	}
	p.visited = append(p.visited, url)
	p.url = url
	return nil
}

func (p *fakePage) WaitIdle(context.Context) error { return nil }

func (p *fakePage) Back(context.Context) error {
	if p.backErr != nil {
		return p.backErr
	}
	p.url = "https://www.google.com/search?q=Domino%27s"
	return nil
}

func (p *fakePage) FindFirst(_ context.Context, set browser.SelectorSet) (browser.Element, error) {
	if els := p.elements[set.String()]; len(els) > 0 {
		return els[0], nil
	}
	return nil, context.DeadlineExceeded
}

func (p *fakePage) FindAll(_ context.Context, set browser.SelectorSet) ([]browser.Element, error) {
	var out []browser.Element
	for _, el := range p.elements[set.String()] {
		out = append(out, el)
	}
	return out, nil
}

func (p *fakePage) FindByText(_ context.Context, _ string, text string) (browser.Element, error) {
	if el, ok := p.byText[text]; ok {
		return el, nil
	}
	return nil, context.DeadlineExceeded
}

func (p *fakePage) URL(context.Context) (string, error) { return p.url, nil }

func (p *fakePage) HTML(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.shots = append(p.shots, path)
	return nil
}

type fakeFetcher struct {
	responses map[string]*fetch.Response
	titles    map[string]string
	err       error
	gets      int
}

func (f *fakeFetcher) Get(_ context.Context, url string) (*fetch.Response, error) {
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[url]; ok {
		return resp, nil
	}
	return &fetch.Response{StatusCode: 404}, nil
}

func (f *fakeFetcher) Title(_ context.Context, url string) (string, error) {
	if t, ok := f.titles[url]; ok {
		return t, nil
	}
	return "", errors.New("no title")
}

type fakeRecorder struct {
	rows []models.TestResult
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, name string, status models.Status, details string) error {
	r.rows = append(r.rows, models.TestResult{Name: name, Status: status, Details: details})
	return r.err
}

type fixture struct {
	page     *fakePage
	fetcher  *fakeFetcher
	recorder *fakeRecorder
	opts     Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		page: newFakePage(),
		fetcher: &fakeFetcher{responses: map[string]*fetch.Response{
			landingURL: {StatusCode: 200, Body: "<html><title>Domino's: Pizza Delivery</title></html>"},
		}},
		recorder: &fakeRecorder{},
		opts: Options{
			SearchURL:        "https://www.google.com?hl=en",
			Query:            "Domino's",
			Spellings:        []string{"Domino's", "Dominos"},
			VideoPattern:     "youtube.com/watch",
			SideFile:         filepath.Join(t.TempDir(), "sponsored_url.txt"),
			ElementTimeout:   time.Second,
			SponsoredTimeout: time.Second,
			PromptTimeout:    time.Millisecond,
		},
	}
}

func (f *fixture) run(t *testing.T, st *SharedState, names ...string) *Summary {
	t.Helper()
	var page browser.Page
	if f.page != nil {
		page = f.page
	}
	summary, err := New(page, f.fetcher, f.recorder, nil, f.opts).Run(context.Background(), st, names...)
	require.NoError(t, err)
	return summary
}

func outcomes(s *Summary) map[string]models.Outcome {
	out := make(map[string]models.Outcome, len(s.Results))
	for _, r := range s.Results {
		out[r.Check] = r.Outcome
	}
	return out
}

// assertOneRowPerTerminalCheck checks that every non-skipped check was
// recorded exactly once and skipped checks never were.
func assertOneRowPerTerminalCheck(t *testing.T, s *Summary, rows []models.TestResult) {
	t.Helper()
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.Name]++
	}
	for _, r := range s.Results {
		want := 1
		if r.Outcome == models.OutcomeSkipped {
			want = 0
		}
		assert.Equal(t, want, counts[r.Check], "rows recorded for %s", r.Check)
	}
}

func TestRun_AllPass(t *testing.T) {
	f := newFixture(t)
	st := &SharedState{}

	summary := f.run(t, st)

	assert.False(t, summary.Failed())
	assert.NotEmpty(t, summary.RunID)
	passed, failed, skipped := summary.Counts()
	assert.Equal(t, []int{5, 0, 0}, []int{passed, failed, skipped})
	assert.Equal(t, CheckNames(), checkOrder(summary))

	require.Len(t, f.recorder.rows, 5)
	for _, row := range f.recorder.rows {
		assert.Equal(t, models.StatusPassed, row.Status, row.Name)
	}
	assert.Equal(t, "'Domino's' or 'Dominos' is present in the response content.", f.recorder.rows[2].Details)

	raw, err := os.ReadFile(f.opts.SideFile)
	require.NoError(t, err)
	assert.Equal(t, landingURL, string(raw))
	assert.Equal(t, landingURL, st.SponsoredURL)
	assert.True(t, st.SearchPerformed)
	assert.Len(t, st.VideoLinks, 2)
	assert.Equal(t, "Domino's", f.page.elements[searchInputSelectors.String()][0].typed)
	assert.True(t, f.page.elements[searchInputSelectors.String()][0].entered)
	assert.Equal(t, []string{f.opts.SearchURL}, f.page.visited, "search runs once per session")
}

func checkOrder(s *Summary) []string {
	names := make([]string, len(s.Results))
	for i, r := range s.Results {
		names[i] = r.Check
	}
	return names
}

func TestRun_NoSponsoredResultSkipsDependentChecks(t *testing.T) {
	f := newFixture(t)
	delete(f.page.elements, sponsoredSelectors.String())

	summary := f.run(t, &SharedState{})

	assert.True(t, summary.Failed())
	assert.Equal(t, map[string]models.Outcome{
		models.CheckSearchAndFindSponsored:    models.OutcomeFailed,
		models.CheckVerifyURLReachable:        models.OutcomeSkipped,
		models.CheckVerifyContentMentionsTerm: models.OutcomeSkipped,
		models.CheckCountRelatedVideoLinks:    models.OutcomePassed,
		models.CheckVerifyVideoTitlesRelevant: models.OutcomePassed,
	}, outcomes(summary))
	assert.Equal(t, 0, f.fetcher.gets)
	assertOneRowPerTerminalCheck(t, summary, f.recorder.rows)
	assert.Equal(t, models.StatusFailed, f.recorder.rows[0].Status)
	assert.Contains(t, f.recorder.rows[0].Details, "no sponsored results found")
}

func TestRun_SearchFailureSkipsBrowserDependents(t *testing.T) {
	f := newFixture(t)
	f.page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	summary := f.run(t, &SharedState{})

	assert.Equal(t, map[string]models.Outcome{
		models.CheckSearchAndFindSponsored:    models.OutcomeFailed,
		models.CheckVerifyURLReachable:        models.OutcomeSkipped,
		models.CheckVerifyContentMentionsTerm: models.OutcomeSkipped,
		models.CheckCountRelatedVideoLinks:    models.OutcomeSkipped,
		models.CheckVerifyVideoTitlesRelevant: models.OutcomeSkipped,
	}, outcomes(summary))
	require.Len(t, f.recorder.rows, 1)
	assert.Equal(t, models.ErrCodeCollaborator, models.ErrorCode(summary.Results[0].Err))
	assert.Contains(t, f.recorder.rows[0].Details, "ERR_NAME_NOT_RESOLVED")
}

func TestRun_SeparateInvocationReadsSideFile(t *testing.T) {
	f := newFixture(t)
	f.page = nil
	require.NoError(t, os.WriteFile(f.opts.SideFile, []byte(landingURL+"\n"), 0o644))

	summary := f.run(t, &SharedState{}, models.CheckVerifyURLReachable, models.CheckVerifyContentMentionsTerm)

	assert.False(t, summary.Failed())
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, 2, f.fetcher.gets)
	assert.Len(t, f.recorder.rows, 2)
}

func TestRun_MissingSideFileSkips(t *testing.T) {
	f := newFixture(t)
	f.page = nil

	summary := f.run(t, &SharedState{}, models.CheckVerifyURLReachable, models.CheckVerifyContentMentionsTerm)

	for _, r := range summary.Results {
		assert.Equal(t, models.OutcomeSkipped, r.Outcome, r.Check)
	}
	assert.Empty(t, f.recorder.rows)
	assert.False(t, summary.Failed())
}

func TestVerifyURLReachable(t *testing.T) {
	tests := []struct {
		name    string
		resp    *fetch.Response
		err     error
		want    models.Outcome
		details string
		code    string
	}{
		{name: "200", resp: &fetch.Response{StatusCode: 200}, want: models.OutcomePassed,
			details: "API call to the sponsored URL was successful."},
		{name: "204 is not 200", resp: &fetch.Response{StatusCode: 204}, want: models.OutcomeFailed,
			details: "expected status code 200, but got 204", code: models.ErrCodeAssertion},
		{name: "404", resp: &fetch.Response{StatusCode: 404}, want: models.OutcomeFailed,
			details: "expected status code 200, but got 404", code: models.ErrCodeAssertion},
		{name: "unreachable", err: errors.New("connection reset"), want: models.OutcomeFailed,
			details: "request to sponsored URL failed: connection reset", code: models.ErrCodeCollaborator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.page = nil
			f.fetcher.err = tt.err
			if tt.resp != nil {
				f.fetcher.responses[landingURL] = tt.resp
			}

			summary := f.run(t, &SharedState{SponsoredURL: landingURL}, models.CheckVerifyURLReachable)

			require.Len(t, summary.Results, 1)
			res := summary.Results[0]
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.details, res.Details)
			if tt.code != "" {
				assert.Equal(t, tt.code, models.ErrorCode(res.Err))
			}
			require.Len(t, f.recorder.rows, 1)
			assert.Equal(t, res.Status(), f.recorder.rows[0].Status)
		})
	}
}

func TestVerifyContentMentionsTerm_CaseSensitive(t *testing.T) {
	f := newFixture(t)
	f.page = nil
	f.fetcher.responses[landingURL] = &fetch.Response{StatusCode: 200, Body: "ORDER DOMINOS NOW"}

	summary := f.run(t, &SharedState{SponsoredURL: landingURL}, models.CheckVerifyContentMentionsTerm)

	res := summary.Results[0]
	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, "response does not contain 'Domino's' or 'Dominos'", res.Details)
}

func TestCountRelatedVideoLinks_TooFew(t *testing.T) {
	f := newFixture(t)
	f.page.byText["Videos"] = &fakeElement{onClick: func() {
		f.page.html = `<a href="https://www.youtube.com/watch?v=one"><h3>Domino's</h3></a>`
	}}

	summary := f.run(t, &SharedState{}, models.CheckCountRelatedVideoLinks, models.CheckVerifyVideoTitlesRelevant)

	assert.Equal(t, models.OutcomeFailed, summary.Results[0].Outcome)
	assert.Equal(t, "expected at least 2 video links, but found 1", summary.Results[0].Details)
	assert.Equal(t, models.OutcomeSkipped, summary.Results[1].Outcome)
	assertOneRowPerTerminalCheck(t, summary, f.recorder.rows)
}

func TestVerifyVideoTitlesRelevant(t *testing.T) {
	tests := []struct {
		name   string
		links  []serp.VideoLink
		titles map[string]string
		want   models.Outcome
	}{
		{
			name:  "fewer than two links",
			links: []serp.VideoLink{{URL: "https://www.youtube.com/watch?v=1", Title: "Domino's"}},
			want:  models.OutcomeSkipped,
		},
		{
			name: "both relevant",
			links: []serp.VideoLink{
				{URL: "https://www.youtube.com/watch?v=1", Title: "DOMINO'S pizza review"},
				{URL: "https://www.youtube.com/watch?v=2", Title: "Dominos!"},
				{URL: "https://www.youtube.com/watch?v=3", Title: "only the first two count"},
			},
			want: models.OutcomePassed,
		},
		{
			name: "missing title is fetched",
			links: []serp.VideoLink{
				{URL: "https://www.youtube.com/watch?v=1", Title: "Domino's"},
				{URL: "https://www.youtube.com/watch?v=2"},
			},
			titles: map[string]string{"https://www.youtube.com/watch?v=2": "Domino's Tracker - YouTube"},
			want:   models.OutcomePassed,
		},
		{
			name: "irrelevant title",
			links: []serp.VideoLink{
				{URL: "https://www.youtube.com/watch?v=1", Title: "Domino's"},
				{URL: "https://www.youtube.com/watch?v=2", Title: "Pizza Hut taste test"},
			},
			want: models.OutcomeFailed,
		},
		{
			name: "title fetch fails",
			links: []serp.VideoLink{
				{URL: "https://www.youtube.com/watch?v=1"},
				{URL: "https://www.youtube.com/watch?v=2", Title: "Domino's"},
			},
			want: models.OutcomeFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.page = nil
			f.fetcher.titles = tt.titles

			summary := f.run(t, &SharedState{VideoLinks: tt.links}, models.CheckVerifyVideoTitlesRelevant)

			assert.Equal(t, tt.want, summary.Results[0].Outcome, summary.Results[0].Details)
			assertOneRowPerTerminalCheck(t, summary, f.recorder.rows)
		})
	}
}

func TestRun_RecorderFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	f.page = nil
	f.recorder.err = errors.New("all stores down")

	summary := f.run(t, &SharedState{SponsoredURL: landingURL}, models.CheckVerifyURLReachable)

	assert.Equal(t, models.OutcomePassed, summary.Results[0].Outcome)
	assert.False(t, summary.Failed())
}

func TestRun_BackFailureRepeatsSearch(t *testing.T) {
	f := newFixture(t)
	f.page.backErr = errors.New("no history")

	summary := f.run(t, &SharedState{})

	assert.False(t, summary.Failed())
	assert.Equal(t, []string{f.opts.SearchURL, f.opts.SearchURL}, f.page.visited)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	f := newFixture(t)
	f.page.elements[sponsoredSelectors.String()] = []*fakeElement{{panics: true}}

	summary := f.run(t, &SharedState{}, models.CheckSearchAndFindSponsored)

	assert.Equal(t, models.OutcomeFailed, summary.Results[0].Outcome)
	assert.Contains(t, summary.Results[0].Details, "element detached")
	assert.Len(t, f.recorder.rows, 1)
}

func TestRun_Screenshot(t *testing.T) {
	f := newFixture(t)
	f.opts.ScreenshotDir = t.TempDir()

	f.run(t, &SharedState{}, models.CheckSearchAndFindSponsored)

	assert.Equal(t, []string{filepath.Join(f.opts.ScreenshotDir, "before_search_input.png")}, f.page.shots)
}

func TestRun_InvalidSelection(t *testing.T) {
	f := newFixture(t)
	r := New(f.page, f.fetcher, f.recorder, nil, f.opts)

	_, err := r.Run(context.Background(), &SharedState{}, "NoSuchCheck")
	assert.True(t, models.IsConfigurationError(err))

	r = New(nil, f.fetcher, f.recorder, nil, f.opts)
	_, err = r.Run(context.Background(), &SharedState{}, models.CheckCountRelatedVideoLinks)
	assert.True(t, models.IsConfigurationError(err))
}

func TestNeedsBrowser(t *testing.T) {
	assert.True(t, NeedsBrowser(nil))
	assert.True(t, NeedsBrowser([]string{models.CheckCountRelatedVideoLinks}))
	assert.False(t, NeedsBrowser([]string{models.CheckVerifyURLReachable, models.CheckVerifyVideoTitlesRelevant}))
}

func TestSharedState_ResolveSponsoredURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponsored_url.txt")

	st := &SharedState{}
	u, err := st.ResolveSponsoredURL(path)
	require.NoError(t, err)
	assert.Empty(t, u)

	require.NoError(t, st.SaveSponsoredURL(path, landingURL))
	fresh := &SharedState{}
	u, err = fresh.ResolveSponsoredURL(path)
	require.NoError(t, err)
	assert.Equal(t, landingURL, u)
}

func TestRun_StaleSideFileIsIgnoredAfterSponsoredLookupFails(t *testing.T) {
	f := newFixture(t)
	const staleURL = "https://stale.example/from-yesterday"
	require.NoError(t, os.WriteFile(f.opts.SideFile, []byte(staleURL), 0o644))
	f.fetcher.responses[staleURL] = &fetch.Response{StatusCode: 200, Body: "Domino's"}
	delete(f.page.elements, sponsoredSelectors.String())
	st := &SharedState{}

	summary := f.run(t, st)

	got := outcomes(summary)
	assert.Equal(t, models.OutcomeFailed, got[models.CheckSearchAndFindSponsored])
	assert.Equal(t, models.OutcomeSkipped, got[models.CheckVerifyURLReachable])
	assert.Equal(t, models.OutcomeSkipped, got[models.CheckVerifyContentMentionsTerm])
	assert.Equal(t, 0, f.fetcher.gets)
	assert.Empty(t, st.SponsoredURL)
	assert.NoFileExists(t, f.opts.SideFile)
	assertOneRowPerTerminalCheck(t, summary, f.recorder.rows)
}

func TestRun_WaitsForNavigation(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, &SharedState{})

	require.False(t, summary.Failed())
	assert.True(t, f.page.elements[searchInputSelectors.String()][0].navigated, "search submit")
	assert.True(t, f.page.elements[sponsoredSelectors.String()][0].navigated, "sponsored result")
	assert.True(t, f.page.byText["Videos"].navigated, "videos tab")
}

func TestSharedState_ResetSponsoredURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponsored_url.txt")
	require.NoError(t, os.WriteFile(path, []byte(landingURL), 0o644))

	st := &SharedState{}
	require.NoError(t, st.ResetSponsoredURL(path))
	assert.True(t, st.SponsoredAttempted)
	assert.NoFileExists(t, path)

	u, err := st.ResolveSponsoredURL(path)
	require.NoError(t, err)
	assert.Empty(t, u)

	require.NoError(t, st.ResetSponsoredURL(path), "missing file is not an error")
}
