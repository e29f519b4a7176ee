package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"courtmatch/internal/config"
	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/match"
	"courtmatch/internal/domain/room"
	"courtmatch/internal/domain/schedule"
	"courtmatch/internal/domain/survey"
	"courtmatch/internal/server/handlers"
	"courtmatch/internal/service/reputation"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	clk clock.Clock,
	ranker match.Ranker,
	rooms room.Lifecycle,
	surveys survey.Ledger,
	rep *reputation.Model,
	slots schedule.Engine,
	pool handlers.AvailabilityPool,
	defaultStrategy match.ScoringStrategy,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	matchHandler := handlers.NewMatchHandler(ranker, surveys, rep, defaultStrategy)
	roomHandler := handlers.NewRoomHandler(rooms)
	surveyHandler := handlers.NewSurveyHandler(surveys, clk)
	playerHandler := handlers.NewPlayerHandler(rep, slots, pool, clk)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Players API
			r.Route("/players", func(r chi.Router) {
				r.Post("/", playerHandler.Register)
				r.Get("/{id}", playerHandler.GetPlayer)
				r.Get("/{id}/level", playerHandler.GetLevel)
				r.Put("/{id}/level", playerHandler.SetLevel)
				r.Get("/{id}/slots", playerHandler.GetRecurringSlots)
				r.Put("/{id}/slots", playerHandler.AddRecurringSlot)
				r.Put("/{id}/availability", playerHandler.SetAvailability)
				r.Delete("/{id}/availability", playerHandler.ClearAvailability)
			})

			// Matches API
			r.Route("/matches", func(r chi.Router) {
				r.Post("/search", matchHandler.Search)
				r.Post("/{id}/complete", matchHandler.Complete)
			})

			// Rooms API
			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", roomHandler.Create)
				r.Get("/{code}", roomHandler.Get)
				r.Post("/{code}/join", roomHandler.Join)
				r.Post("/{id}/kick", roomHandler.Kick)
				r.Post("/{id}/invite", roomHandler.Invite)
				r.Post("/{id}/start", roomHandler.Start)
				r.Post("/{id}/leave", roomHandler.Leave)
				r.Post("/{id}/close", roomHandler.Close)
			})

			// Surveys API
			r.Route("/surveys", func(r chi.Router) {
				r.Post("/", surveyHandler.Submit)
				r.Get("/pending", surveyHandler.Pending)
			})
		})
	})

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the router, mainly for tests
func (s *Server) Router() *chi.Mux {
	return s.router
}
