package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"

	"github.com/Marcvolkov/task-management-system/internal/auth"
	"github.com/Marcvolkov/task-management-system/internal/config"
	"github.com/Marcvolkov/task-management-system/internal/db"
	"github.com/Marcvolkov/task-management-system/internal/insights"
	"github.com/Marcvolkov/task-management-system/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		slog.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Bootstrap(database); err != nil {
		slog.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	secret := []byte(cfg.JWTSecret)
	guard := auth.NewMiddleware(secret)
	authHandler := auth.NewHandler(database, secret)

	store := tasks.NewPostgresStore(database)
	taskHandler := tasks.NewHandler(store)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(guard.Handler)
			r.Get("/me", authHandler.Me)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Put("/password", authHandler.ChangePassword)
		})
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(guard.Handler)
		r.Get("/", taskHandler.List)
		r.Post("/", taskHandler.Create)
		r.Post("/smart", taskHandler.SmartCreate)
		r.Get("/stats", taskHandler.Stats)
		r.Get("/search", taskHandler.Search)
		r.Get("/suggestions", taskHandler.Suggestions)
		r.Get("/export/{format}", taskHandler.Export)
		r.Put("/bulk-update", taskHandler.BulkUpdate)
		r.Get("/{id}", taskHandler.Get)
		r.Put("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
	})

	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(guard.Handler)
		r.Get("/insights", insights.Handler(store))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(r),
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		slog.Error("listen failed", "err", err)
		os.Exit(1)
	}
	if cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConns)
	}

	go func() {
		slog.Info("API server running", "addr", srv.Addr)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	slog.Info("server stopped")
}
