package worker

import (
	"context"
	"log"

	"github.com/google/uuid"

	"homefinder-backend/internal/session"
)

// Pool runs scrape-and-analyze jobs off the request path. A job is
// just the session id; the state machine owns everything else. The
// queue is an in-process channel because session state never leaves
// this process.
type Pool struct {
	jobs        chan uuid.UUID
	manager     *session.Manager
	machine     *session.Machine
	workerCount int
	stopChan    chan struct{}
}

func NewPool(manager *session.Manager, machine *session.Machine, workerCount int) *Pool {
	return &Pool{
		jobs:        make(chan uuid.UUID, 64),
		manager:     manager,
		machine:     machine,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue schedules a session's scrape run. Scraping is one-shot per
// session, so a full queue is surfaced as a session error rather than
// blocking the conversation.
func (p *Pool) Enqueue(sessionID uuid.UUID) bool {
	select {
	case p.jobs <- sessionID:
		return true
	default:
		log.Printf("Worker queue full, dropping scrape job for session %s", sessionID)
		return false
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		case sessionID := <-p.jobs:
			s, ok := p.manager.Get(sessionID)
			if !ok {
				log.Printf("Worker %d: session %s no longer exists, dropping job", id, sessionID)
				continue
			}
			p.machine.RunScrapeAndAnalyze(context.Background(), s)
		}
	}
}
