// Package main our entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/attachment"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/config"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/handler"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/hub"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/ratelimiter"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}

	// Init store. Postgres when DATABASE_URL is set, SQLite otherwise.
	log.Println("Starting application...")
	log.Println("Initializing database connection...")

	var db store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.NewPostgresStore(ctx, cfg.DatabaseURL, loc)
	} else {
		db, err = store.NewSQLiteStore(ctx, cfg.SQLitePath, loc)
	}
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	attachments, err := attachment.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to initialize attachment store: %v", err)
	}

	// h.Run is our central hub that is always listening for client related
	// events.
	h := hub.NewHub(db)
	go h.Run(ctx)

	loginLimiter := ratelimiter.NewIPRateLimiter(10, time.Minute, ratelimiter.CleanupOpts{
		TTL:      10 * time.Minute,
		Interval: time.Minute,
	})
	defer loginLimiter.Cancel()

	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Middleware)
		r.Post("/signup", handler.SubmitSignup(db))
		r.Post("/login", handler.SubmitLogin(db))
	})

	r.Post("/logout", handler.SubmitLogout(db))
	r.Post("/refresh", handler.RefreshToken(db))
	r.Get("/healthz", handler.Healthz(db))

	// Authenticated surface: live socket, history replay/polling, uploads.
	r.Group(func(r chi.Router) {
		r.Use(internal.Middleware(db))
		r.Get("/ws", handler.ServeWs(h, db))
		r.Get("/messages", handler.ServeMessages(db))
		r.Post("/upload", handler.ServeUpload(attachments))
	})

	// Static page and stored attachments.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	r.Handle("/files/*", http.StripPrefix(attachment.RefPrefix, http.FileServer(http.Dir(attachments.Dir()))))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/index.html")
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	db.Close()

	log.Println("Server stopped")
}
