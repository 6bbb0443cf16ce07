package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"homefinder-backend/internal/models"
	"homefinder-backend/internal/services"
)

type fakeResolver struct {
	calls []models.ResolveRequest
	resp  *models.ResolveResponse
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, req models.ResolveRequest) (*models.ResolveResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeScraper struct {
	calls int
	resp  *models.ScrapeResult
	err   error
}

func (f *fakeScraper) Fetch(_ context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// blockingScraper parks inside Fetch until released, to observe what
// stays responsive while a scrape is in flight.
type blockingScraper struct {
	started chan struct{}
	release chan struct{}
	resp    *models.ScrapeResult
}

func (b *blockingScraper) Fetch(_ context.Context, _ models.ScrapeRequest) (*models.ScrapeResult, error) {
	close(b.started)
	<-b.release
	return b.resp, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestMachine(resolver *fakeResolver, scraper ScrapeFetcher, clock *fakeClock) *Machine {
	return NewMachine(
		resolver,
		scraper,
		services.NewListingService(),
		services.NewAnalysisService(),
		nil,
		MachineConfig{
			Cooldown: 5 * time.Second,
			Choose:   func(n int) int { return 0 },
			Now:      clock.Now,
		},
	)
}

func newTestClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSubmitBlankMessageIsNoOp(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://x"}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "   \n ")

	if len(res.Messages) != 0 {
		t.Errorf("messages appended for blank input: %d", len(res.Messages))
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called for blank input: %d calls", len(resolver.calls))
	}
	if res.Mode != ModeAcquiringURL {
		t.Errorf("mode must be reported even for a no-op: got %q, want %q", res.Mode, ModeAcquiringURL)
	}
}

func TestSubmitDispatchesAndStoresPendingURL(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://www.zillow.com/tx/"}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "3 bed Austin")

	if len(resolver.calls) != 1 {
		t.Fatalf("resolver calls: got %d, want 1", len(resolver.calls))
	}
	if resolver.calls[0].SearchQueryMessage != "3 bed Austin" {
		t.Errorf("dispatched text: got %q", resolver.calls[0].SearchQueryMessage)
	}
	if resolver.calls[0].SessionID != s.ID.String() {
		t.Errorf("dispatched session id: got %q", resolver.calls[0].SessionID)
	}

	if s.pendingURL != "https://www.zillow.com/tx/" {
		t.Errorf("pendingURL: got %q", s.pendingURL)
	}
	if res.Mode != ModeAcquiringURL {
		t.Errorf("mode: got %q, want %q", res.Mode, ModeAcquiringURL)
	}

	last := res.Messages[len(res.Messages)-1]
	if last.Role != models.RoleAssistant || !strings.Contains(last.Text, "https://www.zillow.com/tx/") {
		t.Errorf("confirmation message missing or malformed: %+v", last)
	}
}

func TestSubmitDuplicateWithinCooldownWarnsWithoutDispatch(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://x"}}
	clock := newTestClock()
	m := newTestMachine(resolver, &fakeScraper{}, clock)
	s := newSession()

	m.SubmitMessage(context.Background(), s, "3 bed Austin")
	clock.Advance(2 * time.Second)
	res := m.SubmitMessage(context.Background(), s, "3 bed Austin")

	if len(resolver.calls) != 1 {
		t.Errorf("resolver calls: got %d, want 1", len(resolver.calls))
	}
	if res.Notice == "" || !strings.Contains(res.Notice, "wait") {
		t.Errorf("expected a cooldown notice, got %q", res.Notice)
	}
}

func TestSubmitDuplicateAfterCooldownIsSilent(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://x"}}
	clock := newTestClock()
	m := newTestMachine(resolver, &fakeScraper{}, clock)
	s := newSession()

	m.SubmitMessage(context.Background(), s, "3 bed Austin")
	clock.Advance(time.Minute)
	res := m.SubmitMessage(context.Background(), s, "3 bed Austin")

	if len(resolver.calls) != 1 {
		t.Errorf("duplicate text must not be re-dispatched, got %d calls", len(resolver.calls))
	}
	if res.Notice != "" {
		t.Errorf("no notice expected after cooldown, got %q", res.Notice)
	}
}

func TestBlockedMessageRetriesOnNextCycle(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://x"}}
	clock := newTestClock()
	m := newTestMachine(resolver, &fakeScraper{}, clock)
	s := newSession()

	m.SubmitMessage(context.Background(), s, "first query")
	clock.Advance(2 * time.Second)

	res := m.SubmitMessage(context.Background(), s, "second query")
	if res.Notice == "" {
		t.Fatal("expected cooldown notice for new text inside the window")
	}
	if len(resolver.calls) != 1 {
		t.Fatalf("blocked message must not dispatch, got %d calls", len(resolver.calls))
	}

	// Next render cycle after the cooldown, with no new input.
	clock.Advance(10 * time.Second)
	m.SubmitMessage(context.Background(), s, "")

	if len(resolver.calls) != 2 {
		t.Fatalf("blocked message must retry automatically, got %d calls", len(resolver.calls))
	}
	if resolver.calls[1].SearchQueryMessage != "second query" {
		t.Errorf("retried text: got %q", resolver.calls[1].SearchQueryMessage)
	}
}

func TestResolverErrorMessageSurfaces(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{ErrorMessage: "I need a location to search in."}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "3 bed")

	last := res.Messages[len(res.Messages)-1]
	if last.Role != models.RoleAssistant || last.Text != "I need a location to search in." {
		t.Errorf("error message not surfaced: %+v", last)
	}
	if res.Mode != ModeAcquiringURL {
		t.Errorf("mode: got %q, want %q", res.Mode, ModeAcquiringURL)
	}
}

func TestEmptyAreaUsesTemplate(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{EmptyArea: true, SearchURL: "https://www.zillow.com/nowhere/"}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "castle on the moon")

	last := res.Messages[len(res.Messages)-1]
	if !strings.Contains(last.Text, "https://www.zillow.com/nowhere/") {
		t.Errorf("empty-area message must reference the attempted URL: %q", last.Text)
	}
}

func TestRunDataTransitionsOneWay(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{
		RunData:   &models.RunData{RunID: "run-1", RunURL: "https://runs.example.com/1"},
		AIMessage: "Starting your home hunt!",
	}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "yes")

	if res.Mode != ModeScrapingAnalyzing {
		t.Fatalf("mode: got %q, want %q", res.Mode, ModeScrapingAnalyzing)
	}
	if !res.StartScrape {
		t.Error("StartScrape must be set on the transition event")
	}
	if s.runData == nil || s.runData.RunID != "run-1" {
		t.Errorf("runData not stored: %+v", s.runData)
	}
	if s.pendingNotice != "Starting your home hunt!" {
		t.Errorf("pendingNotice: got %q", s.pendingNotice)
	}

	// Once scraping, further messages never reach the resolver.
	res = m.SubmitMessage(context.Background(), s, "another request")
	if res.Mode != ModeScrapingAnalyzing {
		t.Errorf("mode transitioned back: %q", res.Mode)
	}
	if len(resolver.calls) != 1 {
		t.Errorf("resolver called while scraping: %d calls", len(resolver.calls))
	}
}

func TestMalformedResolverResponseFallback(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "3 bed Austin")

	last := res.Messages[len(res.Messages)-1]
	if last.Role != models.RoleAssistant || !strings.Contains(last.Text, "couldn't interpret") {
		t.Errorf("fallback message missing: %+v", last)
	}
}

func TestResolverTransportErrorSurfaces(t *testing.T) {
	resolver := &fakeResolver{err: context.DeadlineExceeded}
	clock := newTestClock()
	m := newTestMachine(resolver, &fakeScraper{}, clock)
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "3 bed Austin")

	last := res.Messages[len(res.Messages)-1]
	if last.Role != models.RoleSystemError || !strings.Contains(last.Text, "Error:") {
		t.Errorf("transport error not surfaced: %+v", last)
	}

	// The failed text was marked dispatched: resending it after the
	// cooldown stays silent until the user changes it.
	clock.Advance(time.Minute)
	m.SubmitMessage(context.Background(), s, "3 bed Austin")
	if len(resolver.calls) != 1 {
		t.Errorf("failed call must not auto-retry, got %d calls", len(resolver.calls))
	}
}

func scrapingSession(t *testing.T, m *Machine, s *Session) {
	t.Helper()
	res := m.SubmitMessage(context.Background(), s, "yes")
	if res.Mode != ModeScrapingAnalyzing {
		t.Fatalf("setup: expected scraping mode, got %q", res.Mode)
	}
}

func TestRunScrapeAndAnalyzeSuccess(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{
		RunData:   &models.RunData{RunID: "run-1", RunURL: "https://runs.example.com/1"},
		AIMessage: "On it!",
	}}
	scraper := &fakeScraper{resp: &models.ScrapeResult{Homes: []models.RawListing{
		{"unformattedPrice": 300000.0, "area": 1500.0, "addressCity": "Austin"},
		{"unformattedPrice": 100000.0, "area": 2000.0, "addressCity": "Austin"},
		nil,
	}}}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()
	scrapingSession(t, m, s)

	m.RunScrapeAndAnalyze(context.Background(), s)

	if scraper.calls != 1 {
		t.Fatalf("scraper calls: got %d, want 1", scraper.calls)
	}

	analysis, ready := m.AnalysisWithBudget(s, nil)
	if !ready {
		t.Fatal("analysis must be ready after a successful run")
	}
	if analysis.Kpis.Count != 2 {
		t.Errorf("Kpis.Count: got %d, want 2", analysis.Kpis.Count)
	}
	if analysis.BestValue[0].Price == nil || *analysis.BestValue[0].Price != 100000 {
		t.Errorf("best value listing: got %+v", analysis.BestValue[0])
	}

	snap := s.Snapshot()
	var sawNotice, sawStatus, sawWarning, sawReady bool
	for _, msg := range snap.History {
		switch {
		case msg.Text == "On it!":
			sawNotice = true
		case strings.Contains(msg.Text, "https://runs.example.com/1"):
			sawStatus = true
		case strings.Contains(msg.Text, "could not be read"):
			sawWarning = true
		case strings.Contains(msg.Text, "analysis is ready"):
			sawReady = true
		}
	}
	if !sawNotice || !sawStatus || !sawWarning || !sawReady {
		t.Errorf("history missing expected messages (notice=%v status=%v warning=%v ready=%v)",
			sawNotice, sawStatus, sawWarning, sawReady)
	}
}

func TestRunScrapeAndAnalyzeIsOneShot(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &fakeScraper{resp: &models.ScrapeResult{Homes: []models.RawListing{
		{"unformattedPrice": 100000.0, "area": 1000.0},
	}}}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()
	scrapingSession(t, m, s)

	m.RunScrapeAndAnalyze(context.Background(), s)
	before := len(s.Snapshot().History)

	m.RunScrapeAndAnalyze(context.Background(), s)

	if scraper.calls != 1 {
		t.Errorf("scrape must be one-shot, got %d calls", scraper.calls)
	}
	if got := len(s.Snapshot().History); got != before {
		t.Errorf("second run appended messages: %d -> %d", before, got)
	}
}

func TestRunScrapeAndAnalyzeErrorPayload(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &fakeScraper{resp: &models.ScrapeResult{Error: &models.ScrapeError{Message: "run was aborted upstream"}}}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()
	scrapingSession(t, m, s)

	m.RunScrapeAndAnalyze(context.Background(), s)

	if _, ready := m.AnalysisWithBudget(s, nil); ready {
		t.Error("analysis must not be ready after an error payload")
	}

	snap := s.Snapshot()
	last := snap.History[len(snap.History)-1]
	if last.Role != models.RoleAssistant || last.Text != "run was aborted upstream" {
		t.Errorf("error payload not surfaced: %+v", last)
	}
}

func TestRunScrapeAndAnalyzeTransportError(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &fakeScraper{err: context.DeadlineExceeded}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()
	scrapingSession(t, m, s)

	m.RunScrapeAndAnalyze(context.Background(), s)

	snap := s.Snapshot()
	last := snap.History[len(snap.History)-1]
	if last.Role != models.RoleSystemError {
		t.Errorf("transport failure must surface as system_error: %+v", last)
	}
	if snap.Mode != string(ModeScrapingAnalyzing) {
		t.Errorf("mode must not transition back on failure: %q", snap.Mode)
	}

	// A finished run is never retried, unlike a job dropped by a full
	// queue.
	if res := m.SubmitMessage(context.Background(), s, "try again?"); res.StartScrape {
		t.Error("failed run must not be re-submitted")
	}
}

func TestAnalysisWithBudget(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &fakeScraper{resp: &models.ScrapeResult{Homes: []models.RawListing{
		{"unformattedPrice": 100000.0, "area": 1000.0},
		{"unformattedPrice": 300000.0, "area": 1500.0},
	}}}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()

	if _, ready := m.AnalysisWithBudget(s, nil); ready {
		t.Fatal("analysis must not be ready before the scrape")
	}

	scrapingSession(t, m, s)
	m.RunScrapeAndAnalyze(context.Background(), s)

	budget := 200000.0
	analysis, ready := m.AnalysisWithBudget(s, &budget)
	if !ready {
		t.Fatal("analysis must be ready")
	}
	if analysis.Kpis.PercentInBudget == nil || *analysis.Kpis.PercentInBudget != 50 {
		t.Errorf("PercentInBudget: got %v, want 50", analysis.Kpis.PercentInBudget)
	}

	// The stored result is untouched by budget queries.
	plain, _ := m.AnalysisWithBudget(s, nil)
	if plain.Kpis.PercentInBudget != nil {
		t.Error("budget KPI leaked into the stored analysis")
	}
}

func TestInFlightScrapeDoesNotBlockOtherAccess(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &blockingScraper{
		started: make(chan struct{}),
		release: make(chan struct{}),
		resp: &models.ScrapeResult{Homes: []models.RawListing{
			{"unformattedPrice": 100000.0, "area": 1000.0},
		}},
	}
	m := newTestMachine(resolver, scraper, newTestClock())

	mgr := NewManager(time.Minute)
	defer mgr.Stop()
	scraping := mgr.Create()
	other := mgr.Create()

	res := m.SubmitMessage(context.Background(), scraping, "yes")
	if res.Mode != ModeScrapingAnalyzing {
		t.Fatalf("setup: expected scraping mode, got %q", res.Mode)
	}

	runDone := make(chan struct{})
	go func() {
		m.RunScrapeAndAnalyze(context.Background(), scraping)
		close(runDone)
	}()
	<-scraper.started

	done := make(chan struct{})
	go func() {
		mgr.sweep()
		scraping.Snapshot()
		if _, ok := mgr.Get(other.ID); !ok {
			t.Error("unrelated session not resolvable")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session access blocked behind an in-flight scrape")
	}

	close(scraper.release)
	<-runDone

	if _, ready := m.AnalysisWithBudget(scraping, nil); !ready {
		t.Error("analysis must complete once the fetch returns")
	}
}

func TestDroppedScrapeJobResubmitsOnNextMessage(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{RunData: &models.RunData{RunID: "run-1"}}}
	scraper := &fakeScraper{resp: &models.ScrapeResult{Homes: []models.RawListing{
		{"unformattedPrice": 100000.0, "area": 1000.0},
	}}}
	m := newTestMachine(resolver, scraper, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "yes")
	if !res.StartScrape {
		t.Fatal("setup: transition must request a scrape")
	}

	// The job never ran (queue was full). The next message asks again.
	res = m.SubmitMessage(context.Background(), s, "is it ready?")
	if !res.StartScrape {
		t.Error("dropped job must be re-submitted on the next message")
	}

	m.RunScrapeAndAnalyze(context.Background(), s)

	res = m.SubmitMessage(context.Background(), s, "and now?")
	if res.StartScrape {
		t.Error("completed analysis must not request another scrape")
	}
	if scraper.calls != 1 {
		t.Errorf("scraper calls: got %d, want 1", scraper.calls)
	}
}

func TestPastedSearchURLReplacesPending(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://www.zillow.com/tx/"}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	pasted, err := services.EncodeSearchURL("https://www.zillow.com/tx/austin/", map[string]any{
		"usersSearchTerm": "Austin TX",
	})
	if err != nil {
		t.Fatalf("EncodeSearchURL: %v", err)
	}

	m.SubmitMessage(context.Background(), s, pasted)

	if len(resolver.calls) != 1 {
		t.Fatalf("resolver calls: got %d, want 1", len(resolver.calls))
	}
	if resolver.calls[0].PendingURL != pasted {
		t.Errorf("pending url dispatched: got %q, want %q", resolver.calls[0].PendingURL, pasted)
	}
}

func TestPastedSearchURLWithBadStateIsRejected(t *testing.T) {
	resolver := &fakeResolver{resp: &models.ResolveResponse{SearchURL: "https://x"}}
	m := newTestMachine(resolver, &fakeScraper{}, newTestClock())
	s := newSession()

	res := m.SubmitMessage(context.Background(), s, "https://www.zillow.com/tx/?searchQueryState=%7Bnope")

	if len(resolver.calls) != 0 {
		t.Errorf("undecodable URL must not reach the resolver, got %d calls", len(resolver.calls))
	}
	last := res.Messages[len(res.Messages)-1]
	if last.Role != models.RoleAssistant || !strings.Contains(last.Text, "URL") {
		t.Errorf("rejection message missing: %+v", last)
	}
	if s.pendingURL != "" {
		t.Errorf("pendingURL must stay empty: %q", s.pendingURL)
	}
}
