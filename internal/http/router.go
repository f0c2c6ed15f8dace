package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-scribe-service/internal/app"
	"voice-scribe-service/internal/languages"
	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/settings"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/languages", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, languages.Options)
		})
		r.Get("/settings", getSettings(application.Settings))
		r.Put("/settings", putSettings(application.Settings))
		r.Handle("/dictation", application.Gateway)
	})

	return r
}

func getSettings(provider settings.Provider) http.HandlerFunc {
	logger := logging.WithComponent("http")
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := provider.Load(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load settings")
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}

// putSettings applies the fields present in the body on top of the stored settings.
func putSettings(provider settings.Provider) http.HandlerFunc {
	logger := logging.WithComponent("http")
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := provider.Load(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load settings")
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, "malformed settings")
			return
		}
		if err := provider.Save(r.Context(), prefs); err != nil {
			if errors.Is(err, settings.ErrInvalid) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error().Err(err).Msg("Failed to save settings")
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		saved, err := provider.Load(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
