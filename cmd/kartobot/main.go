package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	log "github.com/sirupsen/logrus"

	"kartobot/internal/auth"
	"kartobot/internal/config"
	"kartobot/internal/db"
	"kartobot/internal/generation"
	"kartobot/internal/genimage"
	"kartobot/internal/history"
	httpx "kartobot/internal/http"
	"kartobot/internal/http/handler"
	"kartobot/internal/quota"
	"kartobot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		log.Fatal(err)
	}

	client, err := buildClient(cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.WithField("backend", client.Name()).Info("generation backend selected")

	store := &quota.Store{DB: gdb, Limit: cfg.DailyLimit}
	orch := &generation.Orchestrator{
		Client:           client,
		Quota:            store,
		Limit:            cfg.DailyLimit,
		ProgressInterval: cfg.ProgressInterval,
		Deadline:         cfg.GenerationDeadline,
	}

	deps := httpx.Deps{
		Webhook: &handler.WebhookHandler{
			Orch:  orch,
			Quota: store,
			Files: telegram.NewFiles(b),
			Notify: func(chatID int64) generation.Notifier {
				return telegram.NewChatNotifier(b, chatID)
			},
			Recorder: &history.Recorder{DB: gdb},
			Backend:  client.Name(),
			Limit:    cfg.DailyLimit,
		},
		Generate: &handler.GenerateHandler{Client: client},
	}
	if cfg.AdminEnabled() {
		jwtSvc := auth.NewJWT(cfg.JWTSecret)
		deps.JWT = jwtSvc
		deps.Admin = &handler.AdminHandler{
			JWT:          jwtSvc,
			PasswordHash: cfg.AdminPasswordHash,
			Quota:        store,
			Limit:        cfg.DailyLimit,
		}
	}

	r := httpx.NewRouter(cfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	go history.NewRetentionWorker(gdb).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildClient picks the generation backend from configuration: Gemini when
// its key is present, otherwise the polled NanoBanana task API.
func buildClient(cfg config.Config) (genimage.Client, error) {
	if cfg.GeminiAPIKey != "" {
		return genimage.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ProxyURL)
	}
	nano, err := genimage.NewNanoBanana(cfg.NanoBananaAPIKey, cfg.NanoBananaURL)
	if err != nil {
		return nil, err
	}
	return &genimage.Polled{Async: nano, Interval: cfg.PollInterval}, nil
}
