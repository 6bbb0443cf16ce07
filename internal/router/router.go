package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"homefinder-backend/internal/handlers"
	"homefinder-backend/internal/middleware"
	"homefinder-backend/internal/websocket"
)

func New(
	auth *middleware.SessionAuth,
	sessionHandler *handlers.SessionHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session creation is limited per IP; messages per session token.
	createLimiter := middleware.NewRateLimiter(10, time.Minute, middleware.KeyByRemoteAddr)
	messageLimiter := middleware.NewRateLimiter(30, time.Minute, middleware.KeyByToken)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(createLimiter.Middleware)
				r.Post("/", sessionHandler.Create)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)
				r.Get("/{id}", sessionHandler.GetState)
				r.With(messageLimiter.Middleware).Post("/{id}/messages", sessionHandler.PostMessage)
				r.Get("/{id}/analysis", sessionHandler.GetAnalysis)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
