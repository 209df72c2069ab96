package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tobolak1/ppc-checker/internal/alerting"
	"github.com/tobolak1/ppc-checker/internal/config"
	"github.com/tobolak1/ppc-checker/internal/detector"
	"github.com/tobolak1/ppc-checker/internal/digest"
	"github.com/tobolak1/ppc-checker/internal/engine"
	"github.com/tobolak1/ppc-checker/internal/eventbus"
	"github.com/tobolak1/ppc-checker/internal/httpapi"
	"github.com/tobolak1/ppc-checker/internal/lifecycle"
	"github.com/tobolak1/ppc-checker/internal/models"
	"github.com/tobolak1/ppc-checker/internal/orchestrator"
	"github.com/tobolak1/ppc-checker/internal/platform/googleads"
	"github.com/tobolak1/ppc-checker/internal/platform/merchant"
	"github.com/tobolak1/ppc-checker/internal/platform/sklik"
	"github.com/tobolak1/ppc-checker/internal/scheduler"
	"github.com/tobolak1/ppc-checker/internal/store"
)

func main() {
	log.Printf("Starting PPC checker service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	detectionEngine := engine.NewEngine()
	detectionEngine.RegisterAdDetector(detector.NewAdsDetector())
	detectionEngine.RegisterAdDetector(detector.NewKeywordsDetector())
	detectionEngine.RegisterAdDetector(detector.NewBillingDetector())
	detectionEngine.RegisterAdDetector(detector.NewChangesDetector())
	detectionEngine.RegisterAdDetector(detector.NewPerformanceDetector())
	detectionEngine.RegisterMerchantDetector(detector.NewProductsDetector())

	log.Printf("Detection engine initialised with %d detectors", len(detectionEngine.RegisteredFamilies()))

	// Event bus is optional. Without a broker the service degrades to
	// log-only operation.
	var publisher *eventbus.Publisher
	if cfg.NatsURL != "" {
		publisher, err = eventbus.NewPublisher(cfg.NatsURL)
		if err != nil {
			log.Printf("Warning: event bus unavailable, continuing without it: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	var cooldown alerting.CooldownTracker
	if cfg.RedisAddr != "" {
		redisCooldown, err := alerting.NewRedisCooldown(cfg.RedisAddr, "", 0)
		if err != nil {
			log.Printf("Warning: redis unavailable, using in-memory cooldowns: %v", err)
			cooldown = alerting.NewMemoryCooldown()
		} else {
			defer redisCooldown.Close()
			cooldown = redisCooldown
		}
	} else {
		cooldown = alerting.NewMemoryCooldown()
	}

	messenger := alerting.NewSlackMessenger(cfg.SlackBotToken, cfg.SlackWebhookURL)
	if !messenger.Configured() {
		log.Printf("Warning: no Slack credentials configured, alerts will fail delivery")
	}

	dispatcher := alerting.NewDispatcher(alerting.Config{
		MinSeverity:     cfg.Alerting.MinSeverity,
		QuietHoursStart: cfg.Alerting.QuietHoursStart,
		QuietHoursEnd:   cfg.Alerting.QuietHoursEnd,
		Cooldown:        time.Duration(cfg.Alerting.CooldownMinutes) * time.Minute,
		DefaultChannel:  cfg.Alerting.DefaultChannel,
		CriticalChannel: cfg.Alerting.CriticalChannel,
	}, st, messenger, cooldown)

	apis := orchestrator.APIFactory{
		AdAPI: func(account *models.AdAccount) detector.AdPlatformAPI {
			if account.Platform == models.PlatformSklik {
				return sklik.New(account, cfg.SklikBaseURL)
			}
			return googleads.New(account, cfg.GoogleAdsBaseURL)
		},
		MerchantAPI: func(account *models.MerchantAccount) detector.MerchantAPI {
			return merchant.New(account, cfg.MerchantCenterBaseURL)
		},
	}

	resolver := lifecycle.NewResolver(st).WithPublisher(publisher)
	orch := orchestrator.New(st, detectionEngine, apis, dispatcher, resolver, publisher)
	digestBuilder := digest.NewBuilder(st, messenger, cfg.Alerting.DefaultChannel, cfg.DigestEnabled)

	sched := scheduler.New(orch, digestBuilder, cfg.CheckInterval, cfg.DigestHour)
	go sched.Run(ctx)

	router := httpapi.SetupRouter(&httpapi.Server{
		Orchestrator: orch,
		Digest:       digestBuilder,
		Store:        st,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	log.Printf("Shutdown complete")
}
