package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"deckpilot/api"
	"deckpilot/config"
	"deckpilot/deck"
	"deckpilot/store"
)

func main() {
	// Get DECKPILOT_ROOT from environment
	rootPath := os.Getenv("DECKPILOT_ROOT")
	if rootPath == "" {
		log.Fatal("DECKPILOT_ROOT environment variable is required")
	}

	// Initialize database
	dbPath := filepath.Join(rootPath, "cards.db")
	database, err := store.NewDatabase(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Load configuration
	cfgManager := config.NewManager(filepath.Join(rootPath, "config.json"))
	if _, err := cfgManager.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize deck manager
	decks, err := deck.NewManager(rootPath)
	if err != nil {
		log.Fatalf("Failed to initialize deck manager: %v", err)
	}

	addr := os.Getenv("DECKPILOT_LISTEN")
	if addr == "" {
		addr = "0.0.0.0:8080"
	}
	selfURL := os.Getenv("DECKPILOT_SELF_URL")
	if selfURL == "" {
		selfURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webServer *api.WebServer
	shutdown := func() {
		slog.Info("shutting down")
		cancel()
		if webServer != nil {
			webServer.Runner().Stop()
		}
		os.Exit(0)
	}

	webServer = api.NewWebServer(database, cfgManager, decks, selfURL, shutdown)
	webServer.Start(ctx, addr)
}
