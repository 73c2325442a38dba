package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/patrickcap/exploronomics/cmd/exploserve/handlers"
	"github.com/patrickcap/exploronomics/config"
	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default is ./exploronomics.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserFriendlyMessage(err))
		os.Exit(errors.ExitCode(err))
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.NewLogger(level, cfg.Logging.File)
	logger.SetCommand("exploserve")
	logging.SetLogger(logger)

	if err := run(cfg); err != nil {
		logging.Error("server", "Server stopped with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	router := setupRouter(cfg, handlers.NewMetrics())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server", fmt.Sprintf("Starting exploserve API server on %s", srv.Addr), map[string]interface{}{
			"database":   cfg.Database.Path,
			"indicators": cfg.Server.IndicatorsFile,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logging.Info("server", "Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}

func setupRouter(cfg *config.Config, metrics *handlers.Metrics) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(metrics.Middleware)

	countryHandler := handlers.NewCountryHandler(cfg.Database.Path)
	indicatorHandler := handlers.NewIndicatorHandler(cfg.Server.IndicatorsFile)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", healthHandler).Methods("GET")
	api.HandleFunc("/countries", countryHandler.ListCountries).Methods("GET")
	api.HandleFunc("/country/{code}", countryHandler.GetCountry).Methods("GET")
	api.HandleFunc("/country-data", indicatorHandler.CountryData).Methods("GET")

	// Preflight requests are answered by the CORS middleware
	api.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	return router
}

func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	allowAny := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAny = true
		}
		origins[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case allowAny:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && origins[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"healthy","service":"exploserve","version":"1.0.0"}`)
}
