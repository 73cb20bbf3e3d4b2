package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/safetrack-hq/escalator/internal/api"
	"github.com/safetrack-hq/escalator/internal/engine"
	"github.com/safetrack-hq/escalator/internal/metrics"
	"github.com/safetrack-hq/escalator/internal/notify"
	"github.com/safetrack-hq/escalator/internal/rules"
	"github.com/safetrack-hq/escalator/internal/storage"
	"github.com/safetrack-hq/escalator/pkg/config"
)

var (
	configFile string
	httpAddr   string
	rulesFile  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "escalatord",
	Short: "Escalator - Incident escalation rule engine",
	Long: `Escalatord evaluates escalation rules against incidents, executes
their notification actions, scans for overdue incidents, and keeps an
append-only history of everything it did.`,
	RunE: runDaemon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("escalatord %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP API listen address")
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "rule set file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if rulesFile != "" {
		cfg.Rules.Path = rulesFile
	}
	cfg.Verbose = verbose

	// Get API auth secret from environment
	authSecret := os.Getenv("ESCALATOR_AUTH_SECRET")
	if authSecret == "" {
		return fmt.Errorf("ESCALATOR_AUTH_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Load the rule set
	provider, err := rules.NewFileProvider(cfg.Rules.Path)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	log.Printf("loaded %d rules from %s", len(provider.Rules()), cfg.Rules.Path)

	// Notification stack
	renderer, err := notify.NewRenderer()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	dispatcher := notify.NewDispatcher(notify.PacingConfig{
		PerSecond: cfg.Notify.Pacing.PerSecond,
		Burst:     cfg.Notify.Pacing.Burst,
	})
	defer dispatcher.Close()

	if err := registerSenders(dispatcher, cfg, store.Directory()); err != nil {
		return err
	}

	// History sinks: sqlite is the source of truth, ClickHouse is an
	// optional archive for long-term reporting.
	sinks := []engine.HistorySink{store.History()}
	if cfg.ClickHouse.Enabled {
		archive := storage.NewClickHouseArchive(&storage.ClickHouseConfig{
			Addresses:     cfg.ClickHouse.Addresses,
			Database:      cfg.ClickHouse.Database,
			Username:      cfg.ClickHouse.Username,
			Password:      cfg.ClickHouse.Password,
			Compression:   cfg.ClickHouse.Compression,
			RetentionDays: cfg.ClickHouse.RetentionDays,
			BatchSize:     cfg.ClickHouse.BatchSize,
			FlushInterval: cfg.ClickHouse.FlushInterval,
		})
		if err := archive.Open(); err != nil {
			return fmt.Errorf("open clickhouse archive: %w", err)
		}
		defer archive.Close()
		sinks = append(sinks, archive)
		log.Printf("clickhouse archive enabled (%v)", cfg.ClickHouse.Addresses)
	}

	recorder := engine.NewRecorder(sinks...)
	events := engine.NewPublisher(cfg.Events.Buffer)
	executor := engine.NewExecutor(dispatcher, store.Directory(), renderer, recorder, events)
	orch := engine.NewOrchestrator(provider, store.Incidents(), store.Directory(),
		dispatcher, renderer, executor, recorder, events)
	scanner := engine.NewScanner(store.Incidents(), orch, cfg.Scanner.Concurrency)

	// HTTP API
	apiServer, err := api.New(&api.Config{
		Address:        cfg.Server.HTTPAddress,
		JWTSecret:      []byte(authSecret),
		TokenTTL:       cfg.Server.TokenTTL,
		RequestTimeout: cfg.Server.RequestTimeout,
		Verbose:        cfg.Verbose,
	}, orch, scanner, store.History(), provider)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// Event stream consumer. The channel closes when the publisher is
	// closed at shutdown.
	go func() {
		for ev := range events.Events() {
			log.Printf("event: %s incident=%s rule=%s targets=%d",
				ev.Type, ev.IncidentID, ev.RuleID, len(ev.Targets))
		}
	}()

	log.Printf("starting escalatord %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	g.Go(func() error {
		errChan := make(chan error, 1)
		go func() {
			errChan <- metricsServer.Start()
		}()
		select {
		case <-gctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		case err := <-errChan:
			return err
		}
	})

	if cfg.Scanner.Enabled {
		g.Go(func() error {
			return scanner.Run(gctx, cfg.Scanner.Interval)
		})
	}

	if cfg.Rules.Watch {
		g.Go(func() error {
			return provider.Watch(gctx)
		})
	}

	err = g.Wait()
	events.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}

	log.Printf("escalatord stopped")
	return nil
}

// registerSenders wires the enabled notification channels into the
// dispatcher.
func registerSenders(d *notify.Dispatcher, cfg *Config, addresses notify.AddressBook) error {
	if cfg.Notify.Email.Enabled {
		sender, err := notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
		}, addresses)
		if err != nil {
			return fmt.Errorf("email sender: %w", err)
		}
		d.Register(sender)
	}

	if cfg.Notify.SMS.Enabled {
		sender, err := notify.NewSMSSender(webhookConfig(cfg.Notify.SMS), addresses)
		if err != nil {
			return fmt.Errorf("sms sender: %w", err)
		}
		d.Register(sender)
	}

	if cfg.Notify.WhatsApp.Enabled {
		sender, err := notify.NewWhatsAppSender(webhookConfig(cfg.Notify.WhatsApp), addresses)
		if err != nil {
			return fmt.Errorf("whatsapp sender: %w", err)
		}
		d.Register(sender)
	}

	if cfg.Notify.Push.Enabled {
		sender, err := notify.NewPushSender(webhookConfig(cfg.Notify.Push), addresses)
		if err != nil {
			return fmt.Errorf("push sender: %w", err)
		}
		d.Register(sender)
	}

	return nil
}

func webhookConfig(gw GatewayConfig) notify.WebhookConfig {
	return notify.WebhookConfig{URL: gw.URL, APIKey: gw.APIKey}
}
