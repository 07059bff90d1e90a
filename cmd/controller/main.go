// Command controller runs the network-lab control plane: it serves the
// REST/WebSocket API and drives the background reconciliation, job, and
// cleanup loops described across spec §4.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netlab-io/controller/internal/agentclient"
	"github.com/netlab-io/controller/internal/api"
	"github.com/netlab-io/controller/internal/cleanup"
	"github.com/netlab-io/controller/internal/config"
	"github.com/netlab-io/controller/internal/database"
	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/jobrunner"
	"github.com/netlab-io/controller/internal/linkmanager"
	"github.com/netlab-io/controller/internal/linkreconciler"
	"github.com/netlab-io/controller/internal/liveedit"
	"github.com/netlab-io/controller/internal/metrics"
	"github.com/netlab-io/controller/internal/nodereconciler"
	"github.com/netlab-io/controller/internal/persistence"
	"github.com/netlab-io/controller/internal/supervisor"
	"github.com/netlab-io/controller/internal/wsgateway"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	slog.Info("controller: connected to database")

	store := persistence.NewStore(dbClient.Pool)

	m := metrics.New(prometheus.DefaultRegisterer)

	agentPool := agentclient.NewClientPool(cfg.AgentClient, store.Hosts)

	publisher := events.NewEventPublisher(dbClient.Pool)
	connManager := events.NewConnectionManager()
	listener := events.NewNotifyListener(cfg.Database.DSN)
	connManager.SetListener(listener)
	go supervisor.Run(ctx, supervisor.DefaultConfig("notify-listener"), func(ctx context.Context) error {
		return listener.Start(ctx)
	})

	links := linkmanager.New(store.Links, store.LinkStates, store.VxlanTunnels, agentPool, store.Hosts, publisher)

	linkRecon := linkreconciler.New(store, links, agentPool, store.Hosts, publisher, linkreconciler.Config{
		Interval:  cfg.LinkReconciler.Interval,
		BatchSize: 100,
	})
	go linkRecon.Run(ctx)

	nodeRecon := nodereconciler.New(store, agentPool, nodereconciler.Config{
		MaxEnforcementAttempts: cfg.NodeReconciler.MaxEnforcementAttempts,
		StaleThreshold:         cfg.NodeReconciler.StaleThreshold,
	})

	jobs := jobrunner.New(store, agentPool, nodeRecon, links, publisher, cfg.JobRunner)
	go jobs.Run(ctx)
	go jobs.RunHealthMonitor(ctx, cfg.AgentClient.StaleTimeout)

	liveEditor := liveedit.New(store, agentPool, jobs, cfg.LiveEdit.DebounceDelay)

	cleanupBus := cleanup.New(store, agentPool)

	go supervisor.Run(ctx, supervisor.DefaultConfig("agent-health-loop"), func(ctx context.Context) error {
		agentPool.RunHealthLoop(ctx)
		return nil
	})

	ws := wsgateway.New(connManager, store)

	server := api.New(store, jobs, nodeRecon, liveEditor, cleanupBus, ws, agentPool, m, publisher)
	router := server.NewRouter()

	slog.Info("controller: listening", "addr", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("http server exited: %v", err)
	}
}
