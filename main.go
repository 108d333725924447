package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/originrp/sentryn/config"
	"github.com/originrp/sentryn/controllers"
	"github.com/originrp/sentryn/database"
	"github.com/originrp/sentryn/discord"
	"github.com/originrp/sentryn/logger"
	"github.com/originrp/sentryn/metrics"
	authmiddleware "github.com/originrp/sentryn/middleware"
	"github.com/originrp/sentryn/repositories"
	"github.com/originrp/sentryn/services"
	"github.com/originrp/sentryn/steam"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel})
	defer logger.Sync()
	log := logger.L()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	repos := repositories.NewRepositories(db)
	verifier := steam.NewClient(steam.Config{APIKey: cfg.SteamAPIKey})

	// The bot is created before the service so the role synchronizer and
	// webhook notifier can share its gateway session. The service only
	// calls them after the session is open.
	bot, err := discord.NewBot(cfg, nil)
	if err != nil {
		log.Fatal("failed to create discord bot", zap.Error(err))
	}

	roles := discord.NewRoleSynchronizer(bot.Session(), &cfg.Guilds)

	var notifier services.Notifier
	if cfg.WebhookURL != "" {
		wh, err := discord.NewWebhookNotifier(bot.Session(), cfg.WebhookURL)
		if err != nil {
			log.Fatal("invalid webhook url", zap.Error(err))
		}
		notifier = wh
	}

	srvs := services.NewServices(repos, verifier, roles, notifier)
	bot.SetLinkService(srvs.Link)

	ctrl := controllers.NewControllers(cfg, db, repos, srvs, verifier)

	r, err := setupRouter(cfg, ctrl)
	if err != nil {
		log.Fatal("failed to setup router", zap.Error(err))
	}

	if err := bot.Start(); err != nil {
		log.Fatal("failed to start discord bot", zap.Error(err))
	}
	defer bot.Stop()

	scheduler := startPurgeScheduler(srvs.Link)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.WebPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("web server listening",
			zap.String("port", cfg.WebPort),
			zap.String("url", cfg.WebURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("web server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown failed", zap.Error(err))
	}
}

// setupRouter configures all routes
func setupRouter(cfg *config.Config, ctrl *controllers.Controllers) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(chimiddleware.Compress(5))

	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     "sentryn_sess",
		Secure:         cfg.UseHTTPS,
		Gclifetime:     3600,
		Maxlifetime:    3600,
		CookieLifeTime: 3600,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)
	r.Use(authmiddleware.ActorContext)

	r.With(authmiddleware.RequireToken(ctrl.Pages.NotFound)).Get("/auth/link", ctrl.Auth.InitiateLink)
	r.With(authmiddleware.RequireDiscordSession).Get("/auth/steam/callback", ctrl.Auth.SteamCallback)
	r.Get("/api/session", ctrl.Auth.Session)
	r.With(authmiddleware.RequireSession).Post("/auth/logout", ctrl.Auth.Logout)

	r.Get("/health", ctrl.Health.Health)
	r.Get("/ping", ctrl.Health.Ping)
	r.Get("/success", ctrl.Pages.Success)
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(ctrl.Pages.NotFound)

	return r, nil
}

// startPurgeScheduler runs token housekeeping in the background. The purge
// predicate never touches active tokens, so it needs no coordination with
// in-flight binds.
func startPurgeScheduler(links services.LinkService) *cron.Cron {
	log := logger.Named("purge")

	c := cron.New()
	_, err := c.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		count, err := links.PurgeTokens(ctx)
		if err != nil {
			log.Error("token purge failed", zap.Error(err))
			return
		}
		if count > 0 {
			log.Info("purged stale link tokens", zap.Int64("count", count))
		}
	})
	if err != nil {
		log.Fatal("failed to schedule token purge", zap.Error(err))
	}

	c.Start()
	return c
}
