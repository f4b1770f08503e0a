// Package main runs the community platform API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ViveCali/community_layer/internal/config"
	"github.com/ViveCali/community_layer/internal/database"
	"github.com/ViveCali/community_layer/internal/httpapi"
	"github.com/ViveCali/community_layer/internal/middleware"
	"github.com/ViveCali/community_layer/internal/refresher"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/services/content"
	contentsb "github.com/ViveCali/community_layer/services/content/supabase"
	"github.com/ViveCali/community_layer/services/engagement"
	engagementsb "github.com/ViveCali/community_layer/services/engagement/supabase"
	"github.com/ViveCali/community_layer/services/session"
	sessionsb "github.com/ViveCali/community_layer/services/session/supabase"
	"github.com/ViveCali/community_layer/supabase/client"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("communityd").WithError(err).Fatal("Load config")
	}
	log := logger.New("communityd", cfg.Log.Level)

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.WithError(err).Fatal("Load settings")
	}
	log.WithFields(map[string]any{
		"categories": len(settings.EventCategories),
		"interests":  len(settings.Interests),
	}).Debug("Settings loaded")

	sb, err := client.New(client.Config{
		URL:       cfg.Supabase.URL,
		APIKey:    cfg.Supabase.AnonKey,
		Resilient: cfg.Supabase.Resilient,
	})
	if err != nil {
		log.WithError(err).Fatal("Create backend client")
	}

	var contentStore content.Store = contentsb.NewRepository(sb)
	if cfg.Database.URL != "" {
		db, err := database.Connect(context.Background(), cfg.Database.URL)
		if err != nil {
			log.WithError(err).Fatal("Connect database")
		}
		defer db.Close()

		if err := database.Migrate(db, cfg.Database.MigrationsDir, log); err != nil {
			log.WithError(err).Fatal("Migrate database")
		}
		contentStore = content.NewPostgresStore(db)
		log.Info("Content store: postgres")
	} else {
		log.Info("Content store: supabase")
	}

	sessionStore := sessionsb.NewRepository(sb)
	contentSvc := content.New(contentStore, log)
	engagementSvc := engagement.New(engagementsb.NewRepository(sb), log)

	manager := session.NewManager(sb.Auth(), sessionStore, session.Config{
		ResetRedirectURL: cfg.Auth.ResetRedirectURL,
	}, log)
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Initialize(ctx); err != nil {
		log.WithError(err).Warn("Session bootstrap degraded")
	}

	var realtime *client.RealtimeClient
	if cfg.Refresh.Realtime {
		realtime = sb.Realtime()
	}
	refresh := refresher.New(contentSvc, realtime, refresher.Config{
		Schedule: cfg.Refresh.Schedule,
		Realtime: cfg.Refresh.Realtime,
	}, log)
	if err := refresh.Start(ctx); err != nil {
		log.WithError(err).Fatal("Start refresher")
	}
	defer refresh.Stop()

	authmw := middleware.NewAuth(cfg.Supabase.JWTSecret, sb.Auth(), sessionStore, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	srv := httpapi.NewServer(sb.Auth(), sessionStore, contentSvc, engagementSvc,
		cfg.Auth.ResetRedirectURL, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Routes(authmw, limiter),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		log.WithError(err).Error("Server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown error")
		os.Exit(1)
	}
	log.Info("Stopped")
}
