package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/oddswatch/internal/config"
	"github.com/rewired-gh/oddswatch/internal/feed"
	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/monitor"
	"github.com/rewired-gh/oddswatch/internal/sound"
	"github.com/rewired-gh/oddswatch/internal/storage"
	"github.com/rewired-gh/oddswatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	var db *storage.Storage
	if cfg.UsesSQLite() {
		db, err = storage.New(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
	}

	var snapshots monitor.SnapshotStore
	if cfg.Storage.Backend == "sqlite" {
		snapshots = db
		logger.Info("Using SQLite snapshot store at %s", cfg.Storage.DBPath)
	} else {
		snapshots = storage.NewJSONSnapshotStore(cfg.Storage.SnapshotPath)
		logger.Info("Using JSON snapshot store at %s", cfg.Storage.SnapshotPath)
	}
	rules := storage.NewCSVRuleStore(cfg.Storage.SingleRulesPath, cfg.Storage.ComboRulesPath)

	var alerter monitor.Alerter
	if cfg.Alert.SoundEnabled {
		alerter = sound.NewPlayer(cfg.Alert.Player, cfg.Alert.SoundFile)
	}

	mon := monitor.New(snapshots, rules, alerter)

	feedClient := feed.NewClient(
		cfg.Feed.URL,
		cfg.Feed.Timeout,
		cfg.Feed.MaxRetries,
		cfg.Feed.RetryDelayBase,
		feed.Filter{
			Language:          cfg.Feed.Language,
			IgnoreTournaments: cfg.Feed.IgnoreTournaments,
			IgnoreHandicaps:   cfg.Feed.IgnoreHandicaps,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var telegramClient *telegram.Client
	var commands <-chan telegram.Command
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.BroadcastChatIDs,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
		commands = telegramClient.ListenForCommands(ctx)
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	d := &driver{
		source:        feedClient,
		mon:           mon,
		handicapEvery: cfg.Feed.HandicapEvery,
	}
	if telegramClient != nil {
		d.sink = telegramClient
	}
	if cfg.Storage.PickLog {
		d.picks = db
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting monitoring service (interval: %v, language: %s, handicaps every %d cycles)",
		cfg.Feed.PollInterval,
		cfg.Feed.Language,
		cfg.Feed.HandicapEvery,
	)

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()

	logger.Debug("Running initial monitoring cycle")
	d.handleCycleResult(d.runCycle(ctx))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			d.handleCycleResult(d.runCycle(ctx))

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			reply := d.handleCommand(cmd)
			if err := telegramClient.Reply(cmd, reply); err != nil {
				logger.Warn("Failed to answer /%s: %v", cmd.Name, err)
			}
		}
	}
}
