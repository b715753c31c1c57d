// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/activity"
	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/character"
	"github.com/Luffy852/dnd5e-character-manager/internal/middleware"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
	"github.com/Luffy852/dnd5e-character-manager/internal/skills"
	"github.com/Luffy852/dnd5e-character-manager/internal/store"
)

var (
	_ auth.Sessions        = (*auth.RedisSessions)(nil)
	_ auth.Sessions        = (*auth.MemorySessions)(nil)
	_ activity.Store       = (*store.MongoActivity)(nil)
	_ activity.Store       = (*activity.Memory)(nil)
	_ character.SheetStore = (*store.MinioSheets)(nil)
)

// Deps are the collaborators the router is built from. Activity and Sheets
// are optional: a nil Activity falls back to activity.Discard and a nil
// Sheets leaves the export routes unmounted.
type Deps struct {
	Store       store.Store
	Sessions    auth.Sessions
	Activity    activity.Store
	Sheets      character.SheetStore
	Logger      *zap.Logger
	CORSOrigins []string
	SessionTTL  time.Duration
}

var endpoints = []string{
	"POST /api/users/register",
	"POST /api/users/login",
	"POST /api/users/logout",
	"GET /api/users/me",
	"GET /api/users/me/activity",
	"POST /api/characters",
	"GET /api/characters/user?userId={id}",
	"GET /api/characters/{id}",
	"PUT /api/characters/{id}",
	"DELETE /api/characters/{id}",
	"POST /api/characters/{id}/sheet",
	"GET /api/characters/{id}/sheet",
	"GET /api/skills",
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, o := range origins {
		if o == "*" {
			// Echo the caller's origin so credentialed requests are accepted.
			opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
			return opts
		}
	}
	opts.AllowedOrigins = origins
	return opts
}

// New returns the service router.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var recorder activity.Store = activity.Discard{}
	if d.Activity != nil {
		recorder = d.Activity
	}

	authHandler := auth.NewHandler(d.Store, d.Sessions, logger, d.SessionTTL)
	characterHandler := character.NewHandler(d.Store, d.Store, recorder, d.Sheets, logger)
	skillHandler := skills.NewHandler(d.Store, logger)
	activityHandler := activity.NewHandler(recorder, logger)
	requireAuth := middleware.RequireAuth(d.Sessions, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(corsOptions(d.CORSOrigins)))
	r.Use(middleware.Options)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]any{
			"service":   "dnd5e character manager",
			"endpoints": endpoints,
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// User routes
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.Me)
			r.Get("/me/activity", activityHandler.List)
		})
	})

	// Character routes (protected)
	r.Route("/api/characters", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", characterHandler.Create)
		r.Get("/user", characterHandler.ListByUser)
		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", characterHandler.Get)
			r.Put("/", characterHandler.Update)
			r.Delete("/", characterHandler.Delete)
			if d.Sheets != nil {
				r.Post("/sheet", characterHandler.ExportSheet)
				r.Get("/sheet", characterHandler.GetSheet)
			}
		})
	})

	r.Get("/api/skills", skillHandler.List)

	return r
}
