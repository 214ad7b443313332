package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/careassist/symptom-checker/internal/analysis"
	"github.com/careassist/symptom-checker/internal/history"
	"github.com/careassist/symptom-checker/internal/provider"
	"github.com/careassist/symptom-checker/internal/ratelimit"
	"github.com/careassist/symptom-checker/internal/shared/config"
	"github.com/careassist/symptom-checker/internal/shared/database"
	"github.com/careassist/symptom-checker/internal/shared/logging"
	"github.com/careassist/symptom-checker/internal/shared/metrics"
	secmiddleware "github.com/careassist/symptom-checker/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Log     *zap.Logger
	DB      *database.DB
	Gateway *provider.Gateway
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := &App{Config: cfg, Log: log}

	// Initialize database (optional - history falls back to memory)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Warn("database not available, keeping history in memory", zap.Error(err))
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool, log); err != nil {
			log.Warn("migration failed", zap.Error(err))
		}
	}

	// The provider is not optional: without a model there is nothing to
	// analyze with.
	backend, err := provider.NewFromConfig(ctx, cfg.AI)
	if err != nil {
		log.Fatal("provider initialization failed", zap.Error(err))
	}
	app.Gateway = provider.NewGateway(backend, cfg.AI.Timeout, log)

	limiter := ratelimit.New(cfg.RateLimit.Max, cfg.RateLimit.Window)
	defer limiter.Close()

	var store analysis.HistoryStore
	if app.DB != nil {
		store = history.NewPostgres(app.DB.Pool, cfg.History.PerSession)
	} else {
		store = history.NewMemory(cfg.History.PerSession)
	}

	service := analysis.NewService(app.Gateway, limiter, store, analysis.Config{
		SymptomsMinChars: cfg.Analysis.SymptomsMinChars,
		SymptomsMaxChars: cfg.Analysis.SymptomsMaxChars,
	}, log)
	analysisHandler := analysis.NewHandler(service)

	globalLimiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst)

	corsConfig := secmiddleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.CORS.AllowedOrigins
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(secmiddleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(corsConfig))
	r.Use(secmiddleware.BodyLimit(1 << 20))
	r.Use(globalLimiter.Middleware)

	// Health checks and service info (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", infoHandler(app))

	// API routes
	r.Mount("/api", analysisHandler.Routes())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	dbStatus := "connected"
	if app.DB == nil {
		dbStatus = "limited mode (in-memory history)"
	}

	fmt.Println("============================================")
	fmt.Println("CareAssist Symptom Checker")
	fmt.Println("============================================")
	fmt.Printf("Environment:  %s\n", cfg.Server.Env)
	fmt.Printf("Server:       http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:          http://localhost:%d/api\n", cfg.Server.Port)
	fmt.Printf("Health:       http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Provider:     %s (%s)\n", app.Gateway.Name(), app.Gateway.Model())
	fmt.Printf("Database:     %s\n", dbStatus)
	fmt.Printf("Rate limit:   %d requests / %s\n", cfg.RateLimit.Max, cfg.RateLimit.Window)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("server stopped")
}

func infoHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":     "CareAssist Symptom Checker API",
			"version":  "1.0.0",
			"status":   "running",
			"ai_model": app.Gateway.Model(),
			"endpoints": map[string]string{
				"analyze": "POST /api/analyze",
				"history": "GET /api/history/{session_id}",
				"stats":   "GET /api/stats",
				"health":  "GET /health",
				"ready":   "GET /ready",
				"metrics": "GET /metrics",
			},
			"disclaimer": "Educational use only. Not a substitute for professional medical advice.",
		})
	}
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "limited"
		if app.DB != nil {
			dbStatus = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"ai_status": "ready",
			"ai_model":  app.Gateway.Model(),
			"database":  dbStatus,
			"timestamp": time.Now().UTC(),
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server":   "ready",
			"provider": "ready",
		}

		// Check database
		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		readiness := "ready"
		if !allReady {
			status = http.StatusServiceUnavailable
			readiness = "not ready"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": readiness,
			"checks": checks,
		})
	}
}
