package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homefinder-backend/internal/config"
	"homefinder-backend/internal/handlers"
	"homefinder-backend/internal/middleware"
	"homefinder-backend/internal/router"
	"homefinder-backend/internal/services"
	"homefinder-backend/internal/session"
	"homefinder-backend/internal/websocket"
	"homefinder-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting HomeFinder Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Services ────
	resolverService := services.NewResolverService(
		cfg.ResolverWebhookURL,
		time.Duration(cfg.ResolverTimeoutSeconds)*time.Second,
	)
	scrapeService := services.NewScrapeService(
		cfg.ScrapeResultURL,
		time.Duration(cfg.ScrapeTimeoutMinutes)*time.Minute,
	)
	listingService := services.NewListingService()
	analysisService := services.NewAnalysisService()
	log.Println("✓ Resolver and scrape clients initialized")

	// ──── Step 3: Session Tokens & WebSocket Hub ────
	sessionAuth := middleware.NewSessionAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(sessionAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 4: Session Manager & State Machine ────
	manager := session.NewManager(time.Duration(cfg.SessionTTLMinutes) * time.Minute)
	machine := session.NewMachine(
		resolverService,
		scrapeService,
		listingService,
		analysisService,
		wsHub,
		session.MachineConfig{
			Cooldown:      time.Duration(cfg.RequestCooldownSeconds) * time.Second,
			ScrapeTimeout: time.Duration(cfg.ScrapeTimeoutMinutes) * time.Minute,
			MinSqft:       float64(cfg.MinSqft),
			PriceBuckets:  cfg.PriceBuckets,
		},
	)
	log.Println("✓ Session manager and conversation state machine ready")

	// ──── Step 5: Start Scrape Worker Pool ────
	workerPool := worker.NewPool(manager, machine, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 6: Start HTTP Server ────
	sessionHandler := handlers.NewSessionHandler(manager, machine, workerPool, sessionAuth)
	r := router.New(sessionAuth, sessionHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout: 15 * time.Second,
		// PostMessage waits on the resolver for up to its full timeout,
		// so the write deadline must outlast it.
		WriteTimeout: time.Duration(cfg.ResolverTimeoutSeconds+15) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		manager.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ HomeFinder Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
