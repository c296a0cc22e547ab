// Demo web server for the configurator package. Routes only call the public
// Configuration API.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	configurator "github.com/GilbN/simple-toml-configurator"
)

var defaultConfig = map[string]any{
	"app": map[string]any{
		"ip":            "0.0.0.0",
		"host":          "",
		"port":          5000,
		"upload_folder": "uploads",
		"site_url":      "http://localhost:5000",
		"debug":         true,
	},
	"mysql": map[string]any{
		"host":      "localhost",
		"port":      3306,
		"user":      "root",
		"password":  "root",
		"databases": map[string]any{"prod": "test", "dev": "test2"},
	},
	"logging": map[string]any{
		"debug": true,
	},
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}

	settings, err := configurator.Quick(configPath, defaultConfig, "app_config", "",
		configurator.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not initialize configuration")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// GET /settings returns the flat table_key snapshot.
	r.Get("/settings", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, settings.GetSettings())
	})

	// POST /settings applies a partial update in the same flat format.
	r.Post("/settings", func(w http.ResponseWriter, req *http.Request) {
		var partial map[string]any
		if err := json.NewDecoder(req.Body).Decode(&partial); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := settings.UpdateConfig(partial); err != nil {
			logger.Error().Err(err).Msg("update failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, settings.GetSettings())
	})

	// GET /config returns the full nested document.
	r.Get("/config", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, settings.Config())
	})

	addr, _ := settings.String("app.ip")
	port, _ := settings.Int64("app.port")
	listen := addr + ":" + strconv.FormatInt(port, 10)

	logger.Info().Str("addr", listen).Msg("starting demo server")
	if err := http.ListenAndServe(listen, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
