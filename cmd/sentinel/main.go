package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DarkPoolSentinel/internal/cache"
	"DarkPoolSentinel/internal/config"
	"DarkPoolSentinel/internal/dataset"
	"DarkPoolSentinel/internal/fetcher"
	"DarkPoolSentinel/internal/marketcap"
	"DarkPoolSentinel/internal/metrics"
	"DarkPoolSentinel/internal/model"
	"DarkPoolSentinel/internal/notifier"
	"DarkPoolSentinel/internal/recorder"
	"DarkPoolSentinel/internal/scheduler"
	"DarkPoolSentinel/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] DarkPoolSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher and assembler
	feed := fetcher.NewFinraFetcher(cfg.Feed.URLTemplate, cfg.FeedTimeout(), cfg.Proxy)
	log.Printf("[INFO] data source: %s", feed.Name())

	dayCache := cache.New[*model.DailyTable]()
	assembler := dataset.NewAssembler(feed, dayCache, cfg.DailyTTL(), nil)

	// Init metrics engine and dataset service
	engine := metrics.NewEngine(metrics.Thresholds{
		MinTotalVolume: cfg.Filter.MinTotalVolume,
		MinBuyVolume:   cfg.Filter.MinBuyVolume,
	})
	data := dataset.NewService(assembler, engine, cfg.DatasetTTL())

	// Init market-cap lookup
	caps := marketcap.NewService(cfg.Proxy, cfg.MarketCapTTL())

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	tn.Retries = cfg.Telegram.SendRetries

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, data, caps, tn, rec, scheduler.Options{
		LookbackDays: cfg.Feed.LookbackDays,
		AlertRelVol:  cfg.Alerts.RelativeVolume,
		AlertDPIndex: cfg.Alerts.DPIndex,
		TopN:         cfg.Alerts.TopN,
	})
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional HTTP API
	var api *server.Server
	if cfg.Server.Listen != "" {
		api = server.New(cfg.Server.Listen, data, caps, cfg.Feed.LookbackDays)
		go func() {
			if err := api.Start(); err != nil {
				log.Printf("[ERROR] http server: %v", err)
			}
		}()
	}

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing refresh now")
		go sched.RunRefreshNow()
	}

	log.Println("[INFO] DarkPoolSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	if api != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] http shutdown: %v", err)
		}
		shutdownCancel()
	}
	log.Println("[INFO] DarkPoolSentinel stopped")
}
