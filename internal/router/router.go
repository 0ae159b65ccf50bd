package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flashdeck-backend/internal/handlers"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// New builds the HTTP surface. ctx bounds background work owned by the
// router, such as rate limiter cleanup.
func New(
	ctx context.Context,
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	deckHandler *handlers.DeckHandler,
	generateHandler *handlers.GenerateHandler,
	studyHandler *handlers.StudyHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	authLimiter := middleware.NewRateLimiter(authRateLimit, authRateWindow)
	go authLimiter.Cleanup(ctx)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/exchange", authHandler.Exchange)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Get("/me", authHandler.Me)

			// ──── Deck Routes ────
			r.Route("/decks", func(r chi.Router) {
				r.Get("/", deckHandler.List)
				r.Post("/", deckHandler.Create)
				r.Get("/{id}", deckHandler.Get)
				r.Put("/{id}", deckHandler.Update)
				r.Delete("/{id}", deckHandler.Delete)
				r.Get("/{id}/flashcards", deckHandler.ListCards)

				r.Post("/{id}/generate", generateHandler.FromText)
				r.Post("/{id}/generate/pdf", generateHandler.FromPDF)
				r.Post("/{id}/generate/video", generateHandler.FromVideo)
				r.Post("/{id}/generate/jobs", generateHandler.Enqueue)

				r.Post("/{id}/study", studyHandler.Start)
			})

			// ──── Flashcard Routes ────
			r.Route("/flashcards", func(r chi.Router) {
				r.Post("/", deckHandler.CreateCard)
				r.Put("/{id}", deckHandler.UpdateCard)
				r.Delete("/{id}", deckHandler.DeleteCard)
			})

			// ──── Study Routes ────
			r.Route("/study/{sid}", func(r chi.Router) {
				r.Get("/", studyHandler.Get)
				r.Post("/flip", studyHandler.Flip)
				r.Post("/advance", studyHandler.Advance)
			})

			r.Get("/jobs/{id}", generateHandler.GetJob)
			r.Post("/extract/pdf", generateHandler.ExtractPDF)
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
