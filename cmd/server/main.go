package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/api"
	"github.com/good-yellow-bee/pulseboard/internal/api/health"
	"github.com/good-yellow-bee/pulseboard/internal/checker"
	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/notifier"
	"github.com/good-yellow-bee/pulseboard/internal/readstate"
	"github.com/good-yellow-bee/pulseboard/internal/rules"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
	"github.com/good-yellow-bee/pulseboard/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pulseboard-server",
	Short: "PulseBoard Server - Service monitoring and alerting backend",
	Long: `PulseBoard Server probes monitored services, evaluates alert rules
against check results and resource metrics, and serves the dashboard API.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulseboard-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serviceStore adapts the repository to the checker's narrower view.
type serviceStore struct {
	repo storage.ServiceRepository
}

func (s *serviceStore) ListServices(ctx context.Context) ([]*models.Service, error) {
	return s.repo.List(ctx)
}

func (s *serviceStore) UpdateServiceStatus(ctx context.Context, id string, status models.ServiceStatus, checkedAt time.Time) error {
	return s.repo.UpdateStatus(ctx, id, status, checkedAt)
}

// discardSink drops check results when ClickHouse is disabled.
type discardSink struct{}

func (discardSink) RecordCheck(ctx context.Context, result *models.CheckResult) error { return nil }

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Relational storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	// Telemetry storage
	var (
		telemetry storage.TelemetryStorage
		buffer    *storage.TelemetryBuffer
		sink      checker.ResultSink = discardSink{}
	)
	if cfg.ClickHouse.Enabled {
		ch := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
			Addresses:     cfg.ClickHouse.Addresses,
			Database:      cfg.ClickHouse.Database,
			Username:      cfg.ClickHouse.Username,
			Password:      cfg.ClickHouse.Password,
			Compression:   cfg.ClickHouse.Compression,
			RetentionDays: cfg.ClickHouse.RetentionDays,
		})
		if err := ch.Open(); err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer ch.Close()
		if err := ch.Migrate(); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		telemetry = ch
		buffer = storage.NewTelemetryBuffer(ch, nil)
		sink = buffer
		log.Printf("clickhouse telemetry enabled (%v)", cfg.ClickHouse.Addresses)
	} else {
		log.Printf("clickhouse disabled, check history will be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed rules before the first engine load
	if cfg.Rules.SeedFile != "" {
		if err := applySeedRules(ctx, store, cfg.Rules.SeedFile); err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
	}

	// Alert evaluation engine
	active, err := store.Rules().ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	engine := alerting.NewEngine(active, nil)
	defer engine.Close()
	log.Printf("alert engine loaded %d enabled rules", len(active))

	// Notification dispatcher
	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notifier.MaxPerWindow,
		Window:       cfg.Notifier.Window,
		Enabled:      true,
	})
	defer dispatcher.CloseAll()

	registered := make(map[string]struct{})
	reloadChannels := func(ctx context.Context) {
		list, err := store.Channels().List(ctx)
		if err != nil {
			log.Printf("reload channels error: %v", err)
			return
		}
		for id := range registered {
			dispatcher.Unregister(id)
			delete(registered, id)
		}
		for _, ch := range list {
			if !ch.Enabled {
				continue
			}
			n, err := notifier.FromChannel(ch)
			if err != nil {
				log.Printf("channel %s (%s) skipped: %v", ch.Name, ch.ID, err)
				continue
			}
			dispatcher.Register(n)
			registered[ch.ID] = struct{}{}
		}
		count, _ := dispatcher.Stats()
		log.Printf("notification channels loaded: %d", count)
	}
	reloadChannels(ctx)

	// Health checker
	chk := checker.NewChecker(cfg.Checker, &serviceStore{repo: store.Services()}, sink, engine)
	chk.ReloadRules(ctx, active)

	reloadRules := func(ctx context.Context) {
		active, err := store.Rules().ListEnabled(ctx)
		if err != nil {
			log.Printf("reload rules error: %v", err)
			return
		}
		engine.ReloadRules(active)
		chk.ReloadRules(ctx, active)
		log.Printf("rules reloaded: %d enabled", len(active))
	}

	// Seed file watcher
	if cfg.Rules.Watch {
		watcher, err := rules.NewWatcher(cfg.Rules.SeedFile, func([]*models.AlertRule) {
			if err := applySeedRules(ctx, store, cfg.Rules.SeedFile); err != nil {
				log.Printf("reseed rules error: %v", err)
				return
			}
			reloadRules(ctx)
		})
		if err != nil {
			return fmt.Errorf("watch seed rules: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch seed rules: %w", err)
		}
		log.Printf("watching seed rules file %s", cfg.Rules.SeedFile)
	}

	// Read marks
	reads := readstate.NewTracker(readstate.DefaultCapacity)
	marks, err := store.ReadMarks().Load(ctx)
	if err != nil {
		return fmt.Errorf("load read marks: %w", err)
	}
	reads.Load(marks)

	// API server
	apiServer, err := api.New(&api.Config{
		Address:        cfg.Server.HTTPAddress,
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
		Verbose:        cfg.Verbose,
	}, store, api.Options{
		Telemetry:       telemetry,
		Reads:           reads,
		OnRuleChange:    reloadRules,
		OnChannelChange: reloadChannels,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	apiServer.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))
	if cfg.ClickHouse.Enabled {
		apiServer.RegisterHealthChecker(health.NewClickHouseChecker(telemetry))
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)
	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting pulseboard-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	g.Go(func() error {
		log.Printf("metrics listening on %s", metricsServer.Addr())
		errChan := make(chan error, 1)
		go func() {
			if err := metricsServer.Start(); err != nil {
				errChan <- err
			}
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

	g.Go(func() error {
		chk.Start(gctx)
		<-gctx.Done()
		chk.Stop()
		return nil
	})

	if buffer != nil {
		g.Go(func() error {
			<-gctx.Done()
			return buffer.Close()
		})
	}

	// Alert event loop: persist each event to the feed and fan out to
	// the rule's channels.
	g.Go(func() error {
		for event := range engine.Events() {
			now := time.Now()
			notification := &models.Notification{
				ID:         uuid.New().String(),
				RuleID:     event.RuleID,
				RuleName:   event.RuleName,
				Severity:   event.Severity,
				Message:    event.Message,
				Value:      event.Value,
				NotifiedAt: event.Timestamp,
				CreatedAt:  now,
			}
			if err := store.Notifications().Create(ctx, notification); err != nil {
				log.Printf("record notification error: %v", err)
			}
			if err := dispatcher.Dispatch(ctx, event); err != nil {
				log.Printf("dispatch notification error: %v", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		engine.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// applySeedRules creates seed rules whose names are not yet present.
// Existing rules are never overwritten, so user edits survive reseeds.
func applySeedRules(ctx context.Context, store storage.Storage, path string) error {
	seeds, err := rules.LoadSeedFile(path)
	if err != nil {
		return err
	}

	existing, err := store.Rules().List(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		names[r.Name] = struct{}{}
	}

	created := 0
	for _, seed := range seeds {
		if _, ok := names[seed.Name]; ok {
			continue
		}
		if err := store.Rules().Create(ctx, seed); err != nil {
			return fmt.Errorf("create seed rule %q: %w", seed.Name, err)
		}
		created++
	}
	if created > 0 {
		log.Printf("seeded %d rules from %s", created, path)
	}
	return nil
}
