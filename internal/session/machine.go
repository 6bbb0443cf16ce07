package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"homefinder-backend/internal/models"
	"homefinder-backend/internal/services"
)

// Resolver is the query-resolution collaborator boundary.
type Resolver interface {
	Resolve(ctx context.Context, req models.ResolveRequest) (*models.ResolveResponse, error)
}

// ScrapeFetcher is the scrape-result collaborator boundary.
type ScrapeFetcher interface {
	Fetch(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error)
}

// Broadcaster pushes session events to connected widget clients.
type Broadcaster interface {
	SendToSession(id uuid.UUID, msg interface{})
}

// EventResult is what one processed inbound event produced: the
// messages appended during the event, the mode afterwards, an optional
// transient notice (cooldown warnings are not part of the history) and
// whether a scrape job should now be started.
type EventResult struct {
	Messages    []models.ChatMessage
	Mode        Mode
	Notice      string
	StartScrape bool
}

// MachineConfig tunes the conversation state machine.
type MachineConfig struct {
	Cooldown      time.Duration
	ScrapeTimeout time.Duration
	MinSqft       float64
	PriceBuckets  int
	Choose        services.Chooser
	Now           func() time.Time
}

// Machine holds the transition functions of the conversation state
// machine. It has no per-session state of its own; everything mutable
// lives on the Session, mutated only here and only under the session
// lock.
type Machine struct {
	resolver Resolver
	scraper  ScrapeFetcher
	listings *services.ListingService
	analysis *services.AnalysisService
	hub      Broadcaster

	cooldown      time.Duration
	scrapeTimeout time.Duration
	minSqft       float64
	numBuckets    int
	choose        services.Chooser
	now           func() time.Time
}

func NewMachine(resolver Resolver, scraper ScrapeFetcher, listings *services.ListingService, analysis *services.AnalysisService, hub Broadcaster, cfg MachineConfig) *Machine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 30 * time.Minute
	}
	if cfg.MinSqft <= 0 {
		cfg.MinSqft = 200
	}
	if cfg.PriceBuckets <= 0 {
		cfg.PriceBuckets = 5
	}
	if cfg.Choose == nil {
		cfg.Choose = services.NewRandomChooser()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Machine{
		resolver:      resolver,
		scraper:       scraper,
		listings:      listings,
		analysis:      analysis,
		hub:           hub,
		cooldown:      cfg.Cooldown,
		scrapeTimeout: cfg.ScrapeTimeout,
		minSqft:       cfg.MinSqft,
		numBuckets:    cfg.PriceBuckets,
		choose:        cfg.Choose,
		now:           cfg.Now,
	}
}

// SubmitMessage processes one inbound user message to completion:
// append it (blank input is ignored), then, while still acquiring a
// URL, decide whether to call the resolver. The call is blocked by the
// hard cooldown and deduplicated against the last dispatched text. A
// pasted search URL is validated and becomes the pending candidate.
// Query text and request time are marked before the network call and
// never rolled back, so a failed call is not retried until the user
// acts again.
func (m *Machine) SubmitMessage(ctx context.Context, s *Session, text string) (res EventResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		msg := s.append(models.RoleUser, trimmed)
		res.Messages = append(res.Messages, msg)
		m.push(s, msg)
	}

	defer func() { res.Mode = s.mode }()

	if s.mode != ModeAcquiringURL {
		// A scrape job dropped by a full queue is re-submitted on the
		// next inbound event. Only a job that never ran qualifies; a
		// finished run, failed or not, is not retried.
		if s.runData != nil && !s.scrapeDone && !s.scrapeInFlight {
			res.StartScrape = true
		}
		return res
	}

	last := s.lastUserText()
	if last == "" {
		return res
	}

	elapsed := m.now().Sub(s.lastRequestAt)
	if elapsed < m.cooldown {
		remaining := int(math.Ceil((m.cooldown - elapsed).Seconds()))
		res.Notice = fmt.Sprintf("Please wait **%d seconds** before sending another request.", remaining)
		return res
	}

	if last == s.lastQueryText {
		return res
	}

	// Mark as dispatched before the call so a slow resolver cannot be
	// re-triggered for the same text.
	s.lastQueryText = last
	s.lastRequestAt = m.now()

	// A pasted search URL replaces the pending candidate after its
	// query state is validated and canonicalized.
	if services.IsSearchURL(last) {
		canonical, err := services.CanonicalizeSearchURL(last)
		if err != nil {
			m.say(s, &res, models.RoleAssistant, services.BadSearchURLMessage)
			return res
		}
		s.pendingURL = canonical
	}

	resolved, err := m.resolver.Resolve(ctx, models.ResolveRequest{
		SearchQueryMessage: last,
		SessionID:          s.ID.String(),
		PendingURL:         s.pendingURL,
	})
	if err != nil {
		log.Printf("Session %s: resolver call failed: %v", s.ID, err)
		m.say(s, &res, models.RoleSystemError, fmt.Sprintf("Error: %v", err))
		return res
	}

	m.handleResolution(s, &res, resolved)
	return res
}

// handleResolution applies the resolver's verdict. Exactly one branch
// fires, in priority order. Caller must hold the session lock.
func (m *Machine) handleResolution(s *Session, res *EventResult, r *models.ResolveResponse) {
	switch {
	case r.ErrorMessage != "":
		m.say(s, res, models.RoleAssistant, r.ErrorMessage)

	case r.EmptyArea:
		m.say(s, res, models.RoleAssistant, services.EmptyAreaMessage(m.choose, r.SearchURL))

	case r.SearchURL != "":
		s.pendingURL = r.SearchURL
		m.say(s, res, models.RoleAssistant, services.ConfirmURLMessage(r.SearchURL))

	case r.RunData != nil:
		s.runData = r.RunData
		s.pendingNotice = r.AIMessage
		s.mode = ModeScrapingAnalyzing
		res.StartScrape = true
		log.Printf("Session %s: entering %s (run %s)", s.ID, ModeScrapingAnalyzing, r.RunData.RunID)

	default:
		// Defensive catch-all for a malformed resolver response.
		m.say(s, res, models.RoleAssistant, fmt.Sprintf("I received a response I couldn't interpret: %+v. Please try rephrasing your request.", *r))
	}
}

// RunScrapeAndAnalyze is invoked once after the session enters
// scraping mode, on a worker goroutine. The session lock is released
// while the fetch is in flight so reads and the idle sweep stay
// responsive; the in-flight flag admits one execution per session.
// A failure leaves a visible message and no retry.
func (m *Machine) RunScrapeAndAnalyze(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.mode != ModeScrapingAnalyzing || s.runData == nil || s.scrapeDone || s.scrapeInFlight {
		s.mu.Unlock()
		return
	}
	s.scrapeInFlight = true

	if s.pendingNotice != "" {
		m.say(s, nil, models.RoleAssistant, s.pendingNotice)
		s.pendingNotice = ""
	}
	m.say(s, nil, models.RoleAssistant, services.ScrapeStatusMessage(s.runData.RunURL))

	req := models.ScrapeRequest{
		RunData:   s.runData,
		SessionID: s.ID.String(),
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.scrapeTimeout)
	defer cancel()

	result, err := m.scraper.Fetch(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapeInFlight = false
	s.scrapeDone = true

	if err != nil {
		log.Printf("Session %s: scrape fetch failed: %v", s.ID, err)
		m.say(s, nil, models.RoleSystemError, fmt.Sprintf("Error: %v", err))
		return
	}
	if result.Error != nil {
		m.say(s, nil, models.RoleAssistant, result.Error.Message)
		return
	}

	listings, skipped := m.listings.Normalize(result.Homes)
	analysis := m.analysis.Analyze(listings, services.AnalyzeOptions{
		MinSqft:    m.minSqft,
		NumBuckets: m.numBuckets,
	})

	s.listings = listings
	s.analysis = &analysis
	s.touch()

	if skipped > 0 {
		m.say(s, nil, models.RoleAssistant, services.SkippedWarningMessage(skipped))
	}
	m.say(s, nil, models.RoleAssistant, services.AnalysisReadyMessage(analysis.Kpis.Count))

	if m.hub != nil {
		m.hub.SendToSession(s.ID, models.WSMessage{
			Type:    models.WSTypeAnalysisReady,
			Payload: map[string]string{"session_id": s.ID.String()},
		})
	}
	log.Printf("Session %s: analysis ready (%d homes, %d skipped)", s.ID, analysis.Kpis.Count, skipped)
}

// AnalysisWithBudget returns the stored analysis, recomputing the KPI
// block against an optional budget. Recomputation is pure, so asking
// twice with different budgets never disturbs the stored result.
func (m *Machine) AnalysisWithBudget(s *Session, maxPrice *float64) (*models.AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis == nil {
		return nil, false
	}

	result := *s.analysis
	if maxPrice != nil {
		result.Kpis = m.analysis.ComputeKPIs(s.listings, m.numBuckets, maxPrice)
	}
	return &result, true
}

// say appends, records in the event result when one is being built,
// and pushes to the widget. Caller must hold the session lock.
func (m *Machine) say(s *Session, res *EventResult, role models.Role, text string) {
	msg := s.append(role, text)
	if res != nil {
		res.Messages = append(res.Messages, msg)
	}
	m.push(s, msg)
}

func (m *Machine) push(s *Session, msg models.ChatMessage) {
	if m.hub == nil {
		return
	}
	m.hub.SendToSession(s.ID, models.WSMessage{Type: models.WSTypeChatMessage, Payload: msg})
}
