package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"homefinder-backend/internal/models"
)

// Mode is the state machine's current state. The only transition is
// acquiring_url → scraping_and_analyzing, and it is one-way for the
// life of the session.
type Mode string

const (
	ModeAcquiringURL      Mode = "acquiring_url"
	ModeScrapingAnalyzing Mode = "scraping_and_analyzing"
)

// Session owns every piece of per-conversation state. All mutation
// happens inside Machine transition functions while mu is held, so one
// inbound event runs to completion before the next is admitted.
type Session struct {
	ID uuid.UUID

	mu             sync.Mutex
	history        []models.ChatMessage
	mode           Mode
	lastQueryText  string
	lastRequestAt  time.Time
	pendingURL     string
	runData        *models.RunData
	pendingNotice  string
	scrapeInFlight bool
	scrapeDone     bool
	listings       []models.Listing
	analysis       *models.AnalysisResult

	createdAt    time.Time
	lastActiveAt time.Time
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		mode:         ModeAcquiringURL,
		createdAt:    now,
		lastActiveAt: now,
	}
}

// append adds a message to the history. Caller must hold mu.
func (s *Session) append(role models.Role, text string) models.ChatMessage {
	msg := models.ChatMessage{Role: role, Text: text}
	s.history = append(s.history, msg)
	return msg
}

// lastUserText returns the most recent user message, or "".
// Caller must hold mu.
func (s *Session) lastUserText() string {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == models.RoleUser {
			return s.history[i].Text
		}
	}
	return ""
}

// touch refreshes the idle clock. Caller must hold mu.
func (s *Session) touch() {
	s.lastActiveAt = time.Now()
}

// Snapshot returns a renderable copy of the session state.
func (s *Session) Snapshot() models.SessionStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]models.ChatMessage(nil), s.history...)
	return models.SessionStateResponse{
		SessionID:     s.ID.String(),
		Mode:          string(s.mode),
		History:       history,
		PendingURL:    s.pendingURL,
		AnalysisReady: s.analysis != nil,
	}
}
