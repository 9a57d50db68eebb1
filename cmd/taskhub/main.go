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

	"github.com/taskhub/taskhub/internal/bootstrap"
	"github.com/taskhub/taskhub/internal/coordinator"
	"github.com/taskhub/taskhub/internal/knowledge"
	"github.com/taskhub/taskhub/internal/mcp"
	natslib "github.com/taskhub/taskhub/internal/nats"
	"github.com/taskhub/taskhub/internal/reaper"
	"github.com/taskhub/taskhub/internal/server"
	"github.com/taskhub/taskhub/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	registry := store.NewRegistry(cfg.DataDir)
	defer registry.CloseAll()

	// warm the default namespace to fail fast on an unusable data dir
	if cfg.Identity.DefaultNamespace != "" {
		if _, err := registry.Get(cfg.Identity.DefaultNamespace); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open default namespace: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// knowledge adapter; stays nil when not configured
	var kc *knowledge.Client
	var drafter *knowledge.Drafter
	if cfg.Knowledge.Enabled {
		kc = knowledge.NewClient(cfg.Knowledge.URL, cfg.Knowledge.APIKey)
		if cfg.Knowledge.Autodraft {
			drafter = knowledge.NewDrafter(kc, knowledge.NewSummarizer(cfg.LLM), cfg.Knowledge.CollectionID)
			drafter.Start(ctx, 2)
			defer drafter.Stop()
		}
	}

	// embedded event broker
	var natsAnnouncer coordinator.Announcer
	if cfg.NATS.Enabled {
		natsServer, err := natslib.NewEmbeddedServer(natslib.EmbeddedServerConfig{Port: cfg.NATS.Port})
		if err != nil {
			log.Printf("[NATS] Warning: Failed to create server: %v", err)
		} else if err := natsServer.Start(); err != nil {
			log.Printf("[NATS] Warning: Failed to start server: %v", err)
		} else {
			log.Printf("[NATS] Embedded server started on %s", natsServer.URL())
			defer natsServer.Shutdown()

			client, err := natslib.NewClient(natsServer.URL())
			if err != nil {
				log.Printf("[NATS] Warning: Failed to connect client: %v", err)
			} else {
				defer client.Close()
				natsAnnouncer = natslib.NewAnnouncer(client)
			}
		}
	}

	hub := server.NewHub()
	coord := coordinator.New(cfg, registry, kc, drafter, coordinator.MultiAnnouncer(hub, natsAnnouncer))

	mcpServer := mcp.NewServer(func(r *http.Request) (coordinator.Identity, error) {
		return coordinator.IdentityFromHeaders(r.Header, cfg.Identity)
	})
	mcp.RegisterTaskhubTools(mcpServer, coord)

	go reaper.New(registry, cfg.Workflow).Start(ctx)

	srv := server.NewServer(coord, mcpServer, hub, cfg.Server.Host, cfg.Server.Port)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		log.Printf("[MAIN] Received %v, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[MAIN] Shutdown error: %v", err)
		}
	}
}
