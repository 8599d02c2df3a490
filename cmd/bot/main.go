package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mfleur/polyleg/internal/api"
	"github.com/mfleur/polyleg/internal/config"
	"github.com/mfleur/polyleg/internal/marketdata"
	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/orders"
	"github.com/mfleur/polyleg/internal/storage"
	"github.com/mfleur/polyleg/internal/strategy"
	"github.com/mfleur/polyleg/internal/task"
)

// seedFile is the JSON shape accepted by -seed: bots and strategies to
// upsert before the API comes up.
type seedFile struct {
	Bots       []models.BotConfig      `json:"bots"`
	Strategies []models.StrategyConfig `json:"strategies"`
}

func main() {
	var configPath, seedPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&seedPath, "seed", "", "Optional JSON file of bots/strategies to upsert at startup")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := log.New(os.Stdout, "[POLYLEG] ", log.LstdFlags|log.Lshortfile)
	logger.Printf("Starting trading engine in %s mode", cfg.Environment.Mode)
	if !cfg.IsPaperTrading() {
		logger.Fatalf("live trading requires a broker gateway; this build ships the paper gateway only")
	}

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close store: %v", err)
		}
	}()

	var base marketdata.Provider
	switch cfg.Provider.Kind {
	case "mock":
		base = marketdata.NewMockProvider()
	default:
		logger.Fatalf("provider kind %q is not wired in this build", cfg.Provider.Kind)
	}
	provider := marketdata.NewCircuitBreakerProvider(base, logger)

	gateway := orders.NewPaperGateway(logger)
	planner := strategy.NewPlanner(provider, logger, cfg.GetMinNotional())
	evaluator := strategy.NewEvaluator(provider, logger)
	loop := task.NewLoop(store, provider, gateway, planner, evaluator, logger,
		cfg.GetTickInterval(), cfg.Trading.AvailableCash)

	queue := task.NewInProcessQueue()
	orchestrator := task.NewOrchestrator(store, queue, loop, logger)

	if seedPath != "" {
		if err := seed(store, seedPath); err != nil {
			log.Fatalf("Failed to seed store: %v", err)
		}
		logger.Printf("seeded bots and strategies from %s", seedPath)
	}

	apiLogger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		apiLogger.SetLevel(level)
	}
	server := api.NewServer(api.Config{
		Port:      cfg.API.Port,
		AuthToken: cfg.API.AuthToken,
	}, orchestrator, apiLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Println("Shutdown signal received, stopping...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("api shutdown: %v", err)
		}

		// Deactivate running tasks so their loops exit on the next tick.
		drainTasks(shutdownCtx, store, orchestrator, logger)
		queue.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("engine error: %v", err)
	}
	logger.Println("Engine stopped")
}

func seed(store storage.Store, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- seedPath is a user-provided fixture path
	if err != nil {
		return err
	}
	var sf seedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return err
	}
	ctx := context.Background()
	for i := range sf.Strategies {
		if err := store.PutStrategyConfig(ctx, &sf.Strategies[i]); err != nil {
			return err
		}
	}
	for i := range sf.Bots {
		if err := store.PutBotConfig(ctx, &sf.Bots[i]); err != nil {
			return err
		}
	}
	return nil
}

// drainTasks stops every task the store still reports active. Loops observe
// the flag within one tick; the queue revoke just speeds that up.
func drainTasks(ctx context.Context, store storage.Store, orchestrator *task.Orchestrator, logger *log.Logger) {
	tasks, err := store.ListActiveTasks(ctx, "")
	if err != nil {
		logger.Printf("list active tasks: %v", err)
	}
	for _, t := range tasks {
		if err := orchestrator.Stop(ctx, t.ID); err != nil {
			logger.Printf("stop task %s: %v", t.ID, err)
		}
	}
}
