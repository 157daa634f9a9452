package api

import (
	"github.com/gorilla/mux"

	"github.com/lessonforge/lessonforge/internal/config"
	"github.com/lessonforge/lessonforge/internal/db"
	"github.com/lessonforge/lessonforge/internal/generation"
	"github.com/lessonforge/lessonforge/internal/mastery"
	"github.com/lessonforge/lessonforge/internal/repository/sqlite"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, database *db.DB) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(database, logger)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration)
	generateHandler := NewGenerateHandler(
		generation.NewEnqueuer(repo, repo, repo, cfg.FreeTierLimit, cfg.Worker.MaxAttempts, logger),
		generation.NewStatusReporter(repo),
	)
	reviewsHandler := NewReviewsHandler(repo, mastery.New(repo))
	masteryHandler := NewMasteryHandler(repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// Generation endpoints: anonymous allowed, identity attached when present
	genV1 := r.PathPrefix("/v1").Subrouter()
	genV1.Use(OptionalJWTMiddleware(cfg.JWTSecret))
	genV1.HandleFunc("/topics/generate", generateHandler.CreateGeneration).Methods("POST")
	genV1.HandleFunc("/jobs/{id}", generateHandler.GetJob).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Review endpoints
	apiV1.HandleFunc("/reviews/grade", reviewsHandler.Grade).Methods("POST")
	apiV1.HandleFunc("/reviews/due", reviewsHandler.ListDue).Methods("GET")

	// Mastery endpoint
	apiV1.HandleFunc("/mastery", masteryHandler.List).Methods("GET")

	return r
}
