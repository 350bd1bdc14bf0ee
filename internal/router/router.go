package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"english-hub-backend/internal/handlers"
	"english-hub-backend/internal/middleware"
	"english-hub-backend/internal/websocket"
)

// Handlers groups what the router mounts. StudySession and Bank are nil
// when the time log or the local bank is not configured.
type Handlers struct {
	Practice     *handlers.PracticeHandler
	Review       *handlers.ReviewHandler
	StudySession *handlers.StudySessionHandler
	Bank         *handlers.BankHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	limiter *middleware.RateLimiter,
	h Handlers,
	wsHub *websocket.Hub,
	frontendOrigins []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   frontendOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Authenticates through the token query param.
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(limiter.Middleware)
			r.Use(chimiddleware.Timeout(30 * time.Second))

			// ──── Practice Sessions ────
			r.Route("/practice/sessions", func(r chi.Router) {
				r.Post("/", h.Practice.Start)
				r.Get("/{id}", h.Practice.Get)
				r.Delete("/{id}", h.Practice.End)
				r.Post("/{id}/answers", h.Practice.Answer)
				r.Post("/{id}/next", h.Practice.Next)
				r.Post("/{id}/previous", h.Practice.Previous)
				r.Post("/{id}/submit", h.Practice.Submit)
			})

			// ──── Flashcard Reviews ────
			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", h.Review.Start)
				r.Get("/{id}", h.Review.Get)
				r.Delete("/{id}", h.Review.End)
				r.Post("/{id}/reveal", h.Review.Reveal)
				r.Post("/{id}/rating", h.Review.Rate)
				r.Post("/{id}/next", h.Review.Next)
				r.Post("/{id}/previous", h.Review.Previous)
			})

			if h.StudySession != nil {
				r.Route("/study-sessions", func(r chi.Router) {
					r.Post("/start", h.StudySession.Start)
					r.Post("/{id}/heartbeat", h.StudySession.Heartbeat)
					r.Post("/{id}/stop", h.StudySession.Stop)
				})
			}

			if h.Bank != nil {
				r.Get("/banks", h.Bank.List)
			}
		})
	})

	return r
}
