package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tmc/langchaingo/llms/openai"

	"toolcrib/internal/advisor"
	"toolcrib/internal/api"
	"toolcrib/internal/config"
	"toolcrib/internal/escalation"
	"toolcrib/internal/ledger"
	"toolcrib/internal/maintenance"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"
	"toolcrib/internal/monitoring"
	"toolcrib/internal/reconcile"
	"toolcrib/internal/registry"
	"toolcrib/internal/store"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *metricsPort != 0 {
		cfg.MetricsPort = *metricsPort
	}
	if cfg.JWTSecret == "" {
		log.Fatal("No JWT secret configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recordStore, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer cleanup()

	reg := registry.New()
	led := ledger.New()
	queue := maintenance.New()
	if err := loadState(ctx, recordStore, reg, led, queue); err != nil {
		log.Fatalf("Failed to load state from store: %v", err)
	}

	engine := reconcile.NewEngine(reg, led, queue, recordStore)
	machine := escalation.NewMachine(reg, led, queue, recordStore)
	if cfg.Advisor.OpenAIKey != "" {
		model, err := openai.New(openai.WithToken(cfg.Advisor.OpenAIKey))
		if err != nil {
			log.Printf("Advisor disabled, failed to initialize model: %v", err)
		} else {
			machine.Drafter = advisor.New(model)
		}
	}

	server := api.NewServer(reg, led, queue, engine, machine, cfg.JWTSecret)

	monitor := monitoring.NewMonitor(led, 5*time.Minute)
	monitor.OnLapse = func(cases []models.Case) {
		for _, c := range cases {
			log.Printf("Grace period lapsed on case %s (tool %s, custodian %s)", c.ID, c.ToolID, c.StaffName)
			server.Hub.Broadcast(api.Event{
				Type:      "grace_lapsed",
				Timestamp: time.Now(),
				Payload: map[string]interface{}{
					"case_id": c.ID,
					"tool_id": c.ToolID,
				},
			})
		}
	}
	go monitor.Run(ctx)

	go startMetricsServer(cfg.MetricsPort)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
		cancel()
	}()

	log.Printf("Starting API server on port %d", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

// openStore selects the remote collaborator or the local SQLite fallback.
func openStore(cfg *config.Config) (store.RecordStore, func(), error) {
	if cfg.Store.Mode == "remote" {
		return store.NewClient(cfg.Store.BaseURL), func() {}, nil
	}
	s, err := store.OpenSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// loadState hydrates the registry, ledger and maintenance queue.
func loadState(ctx context.Context, s store.RecordStore, reg *registry.Registry,
	led *ledger.Ledger, queue *maintenance.Queue) error {

	assets, err := store.LoadAssets(ctx, s)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}
	reg.Load(assets)

	cases, err := store.LoadCases(ctx, s)
	if err != nil {
		return fmt.Errorf("loading cases: %w", err)
	}
	led.Load(cases)

	records, err := store.LoadMaintenance(ctx, s)
	if err != nil {
		return fmt.Errorf("loading maintenance: %w", err)
	}
	queue.Load(records)

	log.Printf("Loaded %d assets, %d cases, %d maintenance records", len(assets), len(cases), len(records))
	return nil
}

func startMetricsServer(port int) {
	metricsRouter := gin.Default()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.NewRegistry(), promhttp.HandlerOpts{})))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}
