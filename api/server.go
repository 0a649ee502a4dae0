// Package api is the main api web server
package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"

	"deckpilot/api/models"
	"deckpilot/api/web/templates"
	"deckpilot/config"
	"deckpilot/deck"
	"deckpilot/schedule"
	"deckpilot/store"
	"deckpilot/util"
	"deckpilot/worker"
)

//go:embed web/templates/index.html web/static/**
var webFiles embed.FS

// workerLogLimit bounds the in-memory tail of worker log lines served to the
// UI.
const workerLogLimit = 200

type WebServer struct {
	router *gin.Engine
	db     *store.Database
	cfg    *config.Manager
	decks  *deck.Manager
	runner *worker.Runner

	localManager  *LocalManager
	remoteManager *RemoteManager
	coordinator   *schedule.Coordinator

	// workerMu guards the callback-fed UI state below.
	workerMu     sync.Mutex
	workerStatus string
	workerLog    []string
	lastError    string
}

func NewWebServer(db *store.Database, cfg *config.Manager, decks *deck.Manager, selfURL string, shutdown func()) *WebServer {
	router := gin.Default()

	ws := &WebServer{
		router:       router,
		db:           db,
		cfg:          cfg,
		decks:        decks,
		workerStatus: "idle",
	}

	ws.runner = worker.NewRunner(cfg, decks.DeckDir(), worker.Callbacks{
		OnLog:    ws.appendWorkerLog,
		OnStatus: ws.setWorkerStatus,
		OnStats:  func(stats worker.Stats) { slog.Debug("worker stats", "games", stats.Games, "wins", stats.Wins) },
		OnError:  ws.recordWorkerError,
	})
	ws.coordinator = schedule.NewCoordinator(cfg, ws.runner, shutdown)

	localManager, err := NewLocalManager(decks.LibraryDir(), decks.DeckDir(), selfURL)
	if err != nil {
		log.Fatalf("Failed to initialize local manager: %v", err)
	}
	ws.localManager = localManager

	remoteManager, err := NewRemoteManager(decks.LibraryDir(), selfURL)
	if err != nil {
		if err == ErrRemoteDisabled {
			slog.Info("remote card pack sync disabled")
		} else {
			log.Fatalf("Failed to initialize remote manager: %v", err)
		}
	}
	ws.remoteManager = remoteManager

	// Setup routes
	ws.setupRoutes()

	return ws
}

// Runner exposes the worker handle for shutdown handling in main.
func (ws *WebServer) Runner() *worker.Runner {
	return ws.runner
}

func (ws *WebServer) setupRoutes() {
	// Create filesystem for static files (strip "web/" prefix)
	staticFS, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		log.Fatalf("Failed to create static filesystem: %v", err)
	}

	// Serve static files from embedded filesystem
	ws.router.StaticFS("static", http.FS(staticFS))

	ws.router.GET("/favicon.svg", func(c *gin.Context) {
		data, err := webFiles.ReadFile("web/static/images/favicon.svg")
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", data)
	})

	// Serve index.html from embedded filesystem
	ws.router.GET("/", func(c *gin.Context) {
		data, err := webFiles.ReadFile("web/templates/index.html")
		if err != nil {
			slog.Error("failed to read index.html", "error", err)
			c.String(http.StatusInternalServerError, "Failed to load index.html")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	})
	ws.router.GET("/ui/cards/:category", ws.handleUICards)
	ws.router.GET("/ui/deck", ws.handleUIDeck)

	// API routes
	ws.router.POST("/cards/register", ws.handleRegisterCard)
	ws.router.GET("/cards", ws.handleListCards)
	ws.router.GET("/categories", ws.handleListCategories)
	ws.router.GET("/cards/:category/:name/image", ws.handleCardImage)
	ws.router.DELETE("/cards/:name/category/:category", ws.handleDeleteCard)
	ws.router.PUT("/cards/:name/category/:category/reorder", ws.handleReorderCard)

	ws.router.GET("/deck", ws.handleGetDeck)
	ws.router.POST("/deck/cards/:name/category/:category", ws.handleDeckAdd)
	ws.router.DELETE("/deck/cards/:name", ws.handleDeckRemove)
	ws.router.GET("/deck/snapshots", ws.handleListSnapshots)
	ws.router.POST("/deck/snapshots", ws.handleSaveSnapshot)
	ws.router.POST("/deck/snapshots/:name/restore", ws.handleRestoreSnapshot)
	ws.router.DELETE("/deck/snapshots/:name", ws.handleDeleteSnapshot)

	ws.router.GET("/priorities", ws.handleGetPriorities)
	ws.router.PUT("/priorities", ws.handleUpdatePriorities)
	ws.router.GET("/settings", ws.handleGetSettings)
	ws.router.PUT("/settings", ws.handleUpdateSettings)
	ws.router.GET("/schedule", ws.handleGetSchedule)
	ws.router.PUT("/schedule", ws.handleUpdateSchedule)

	ws.router.POST("/worker/start", ws.handleWorkerStart)
	ws.router.POST("/worker/stop", ws.handleWorkerStop)
	ws.router.POST("/worker/pause", ws.handleWorkerPause)
	ws.router.POST("/worker/resume", ws.handleWorkerResume)
	ws.router.GET("/worker/status", ws.handleWorkerStatus)
	ws.router.GET("/worker/log", ws.handleWorkerLog)
}

func (ws *WebServer) Start(ctx context.Context, port string) {
	// listen for library/deck updates for visibility; the worker reads the
	// deck folder directly so nothing needs restarting here
	go func() {
		for {
			var remoteUpdated chan bool
			if ws.remoteManager != nil {
				remoteUpdated = ws.remoteManager.Updated
			}
			select {
			case <-ctx.Done():
				return
			case <-remoteUpdated:
				slog.Info("remote card pack updated")
			case <-ws.localManager.Updated:
				slog.Info("library or deck files changed on disk")
			case <-ws.cfg.Updated:
				slog.Info("configuration changed on disk")
			}
		}
	}()

	go ws.localManager.Run()
	if ws.remoteManager != nil {
		go ws.remoteManager.Run()
	}
	go ws.coordinator.Run(ctx)
	go func() {
		if err := ws.cfg.Watch(); err != nil {
			slog.Warn("config watcher stopped", "error", err)
		}
	}()

	log.Printf("Starting web server on port %s", port)
	if err := ws.router.Run(port); err != nil {
		log.Fatalf("Failed to start web server: %v", err)
	}
}

func (ws *WebServer) appendWorkerLog(line string) {
	ws.workerMu.Lock()
	defer ws.workerMu.Unlock()
	ws.workerLog = append(ws.workerLog, line)
	if len(ws.workerLog) > workerLogLimit {
		ws.workerLog = ws.workerLog[len(ws.workerLog)-workerLogLimit:]
	}
}

func (ws *WebServer) setWorkerStatus(status string) {
	ws.workerMu.Lock()
	defer ws.workerMu.Unlock()
	ws.workerStatus = status
}

func (ws *WebServer) recordWorkerError(msg string) {
	ws.workerMu.Lock()
	defer ws.workerMu.Unlock()
	ws.lastError = msg
	ws.workerStatus = "idle"
}

func (ws *WebServer) handleRegisterCard(c *gin.Context) {
	// Parse request body
	var req models.RegisterCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	if req.CardName == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "card_name is required"})
		return
	}
	if req.Category == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "category is required"})
		return
	}

	// Validate file extension
	ext := filepath.Ext(req.CardName)
	if !util.SupportedExt.Contains(ext) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("Unsupported file extension: %s. Supported: .jpeg, .jpg, .png, .webp", ext),
		})
		return
	}

	// Check if file exists in the library category
	filePath := filepath.Join(ws.decks.LibraryDir(), req.Category, req.CardName)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Card file does not exist: %s", req.CardName)})
		return
	}

	// Check for duplicates in database
	exists, err := ws.db.CardExists(req.CardName, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}
	cost := util.CardCost(req.CardName)
	if exists {
		c.JSON(http.StatusOK, models.RegisterCardResponse{
			CardName: req.CardName,
			Category: req.Category,
			Cost:     cost,
			Order:    -1,
			Message:  fmt.Sprintf("Card with name '%s' already exists in database", req.CardName),
		})
		return
	}

	// Get max order for the category
	maxOrder, err := ws.db.GetMaxOrder(req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}

	// Insert into database
	if err := ws.db.InsertCard(req.CardName, req.Category, cost, maxOrder); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to insert card into database: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.RegisterCardResponse{
		CardName: req.CardName,
		Category: req.Category,
		Cost:     cost,
		Order:    maxOrder,
		Message:  "Card registered successfully",
	})
}

func (ws *WebServer) handleListCards(c *gin.Context) {
	// Parse query parameters
	category := c.DefaultQuery("category", RemoteCategory)
	pageStr := c.DefaultQuery("page", "1")
	limitStr := c.DefaultQuery("limit", "20")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid page parameter"})
		return
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid limit parameter"})
		return
	}

	// Optional elixir cost filter
	if maxCostStr := c.Query("max_cost"); maxCostStr != "" {
		maxCost, err := strconv.Atoi(maxCostStr)
		if err != nil || maxCost < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid max_cost parameter"})
			return
		}
		cards, err := ws.db.GetCardsByMaxCost(category, maxCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
			return
		}
		c.JSON(http.StatusOK, models.CardListResponse{
			Cards: cards,
			Total: len(cards),
			Page:  1,
			Limit: len(cards),
		})
		return
	}

	// Get total count
	total, err := ws.db.GetCardCount(category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}

	// Calculate offset
	offset := (page - 1) * limit

	// Get cards
	cards, err := ws.db.GetCards(category, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}

	c.JSON(http.StatusOK, models.CardListResponse{
		Cards: cards,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (ws *WebServer) handleListCategories(c *gin.Context) {
	categories, err := ws.decks.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list categories: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (ws *WebServer) handleDeleteCard(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Card name is required"})
		return
	}

	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Category is required"})
		return
	}

	// Check if card exists in database
	exists, err := ws.db.CardExists(name, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Card '%s' not found", name)})
		return
	}

	// Delete file from filesystem
	filePath := filepath.Join(ws.decks.LibraryDir(), category, name)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to delete file: %v", err)})
		return
	}

	// Delete from database
	if err := ws.db.DeleteCard(name, category); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to delete card from database: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Card '%s' deleted successfully", name)})
}

func (ws *WebServer) handleReorderCard(c *gin.Context) {
	name := c.Param("name")
	category := c.Param("category")
	if name == "" || category == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Card name and category are required"})
		return
	}

	// Parse request body
	var req models.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	if req.NewOrder < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "new_order must be non-negative"})
		return
	}

	if _, err := ws.db.GetCard(name, category); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Card '%s' not found", name)})
		return
	}

	// Get max order to validate new_order
	maxOrder, err := ws.db.GetMaxOrder(category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Database error: %v", err)})
		return
	}

	if req.NewOrder >= maxOrder {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("new_order %d exceeds maximum order %d for category %s", req.NewOrder, maxOrder-1, category),
		})
		return
	}

	// Update order
	if err := ws.db.UpdateCardOrder(name, category, req.NewOrder); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to update card order: %v", err)})
		return
	}

	// Get updated card
	updatedCard, err := ws.db.GetCard(name, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to retrieve updated card: %v", err)})
		return
	}

	c.JSON(http.StatusOK, updatedCard)
}

func (ws *WebServer) handleCardImage(c *gin.Context) {
	category := c.Param("category")
	encodedName := c.Param("name")

	if encodedName == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Card name is required"})
		return
	}

	// Decode the card name
	name, err := url.PathUnescape(encodedName)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid card name encoding"})
		return
	}

	filePath := filepath.Join(ws.decks.LibraryDir(), category, name)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("Card file not found: %s", name)})
		return
	}

	// Serve the file
	c.File(filePath)
}

func (ws *WebServer) handleGetDeck(c *gin.Context) {
	cards, err := ws.decks.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list deck: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.DeckResponse{Cards: cards, CardCount: len(cards)})
}

func (ws *WebServer) handleDeckAdd(c *gin.Context) {
	name := c.Param("name")
	category := c.Param("category")
	if name == "" || category == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Card name and category are required"})
		return
	}

	if err := ws.decks.Add(name, category); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, deck.ErrCardNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Error: fmt.Sprintf("Failed to add card to deck: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Card '%s' added to deck", name)})
}

func (ws *WebServer) handleDeckRemove(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Card name is required"})
		return
	}

	if err := ws.decks.Remove(name); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to remove card from deck: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Card '%s' removed from deck", name)})
}

func (ws *WebServer) handleListSnapshots(c *gin.Context) {
	snapshots, err := ws.decks.ListSnapshots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to list snapshots: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.SnapshotListResponse{Snapshots: snapshots})
}

func (ws *WebServer) handleSaveSnapshot(c *gin.Context) {
	var req models.SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	snap, err := ws.decks.SaveSnapshot(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Failed to save snapshot: %v", err)})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (ws *WebServer) handleRestoreSnapshot(c *gin.Context) {
	name := c.Param("name")
	result, err := ws.decks.RestoreSnapshot(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, deck.ErrSnapshotNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Error: fmt.Sprintf("Failed to restore snapshot: %v", err)})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ws *WebServer) handleDeleteSnapshot(c *gin.Context) {
	name := c.Param("name")
	if err := ws.decks.DeleteSnapshot(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, deck.ErrSnapshotNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Error: fmt.Sprintf("Failed to delete snapshot: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Snapshot '%s' deleted", name)})
}

func (ws *WebServer) handleGetPriorities(c *gin.Context) {
	c.JSON(http.StatusOK, models.PrioritiesResponse{Priorities: ws.cfg.Get().Priorities})
}

func (ws *WebServer) handleUpdatePriorities(c *gin.Context) {
	var req models.UpdatePrioritiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	for name, p := range req.Priorities {
		if p < config.PriorityMin || p > config.PriorityMax {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: fmt.Sprintf("priority for '%s' must be between %d and %d, got %d", name, config.PriorityMin, config.PriorityMax, p),
			})
			return
		}
	}

	cfg := *ws.cfg.Get()
	cfg.Priorities = map[string]int{}
	for name, p := range req.Priorities {
		cfg.Priorities[name] = p
	}

	if err := ws.cfg.Save(&cfg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to save priorities: %v", err)})
		return
	}
	c.JSON(http.StatusOK, models.PrioritiesResponse{Priorities: cfg.Priorities})
}

type settingsPayload struct {
	UI            config.UI     `json:"ui"`
	Timing        config.Timing `json:"timing"`
	WorkerCommand []string      `json:"worker_command"`
	LicenseKey    string        `json:"license_key"`
}

func (ws *WebServer) handleGetSettings(c *gin.Context) {
	cfg := ws.cfg.Get()
	c.JSON(http.StatusOK, settingsPayload{
		UI:            cfg.UI,
		Timing:        cfg.Timing,
		WorkerCommand: cfg.WorkerCommand,
		LicenseKey:    cfg.LicenseKey,
	})
}

func (ws *WebServer) handleUpdateSettings(c *gin.Context) {
	var req settingsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	cfg := *ws.cfg.Get()
	cfg.UI = req.UI
	cfg.Timing = req.Timing
	cfg.WorkerCommand = req.WorkerCommand
	cfg.LicenseKey = req.LicenseKey

	if err := ws.cfg.Save(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Failed to update settings: %v", err)})
		return
	}
	c.JSON(http.StatusOK, req)
}

func (ws *WebServer) handleGetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, ws.cfg.Get().Schedule)
}

func (ws *WebServer) handleUpdateSchedule(c *gin.Context) {
	var req config.Schedule
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	cfg := *ws.cfg.Get()
	cfg.Schedule = req

	if err := ws.cfg.Save(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Failed to update schedule: %v", err)})
		return
	}
	c.JSON(http.StatusOK, cfg.Schedule)
}

func (ws *WebServer) handleWorkerStart(c *gin.Context) {
	if err := ws.runner.Start(); err != nil {
		status := http.StatusInternalServerError
		switch err {
		case worker.ErrAlreadyRunning, worker.ErrStartThrottled:
			status = http.StatusConflict
		case worker.ErrNoCommand:
			status = http.StatusBadRequest
		}
		c.JSON(status, models.ErrorResponse{Error: fmt.Sprintf("Failed to start worker: %v", err)})
		return
	}

	ws.workerMu.Lock()
	ws.lastError = ""
	ws.workerMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Worker started"})
}

func (ws *WebServer) handleWorkerStop(c *gin.Context) {
	ws.runner.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Worker stopped"})
}

func (ws *WebServer) handleWorkerPause(c *gin.Context) {
	if !ws.runner.IsRunning() {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "Worker is not running"})
		return
	}
	ws.runner.Pause()
	c.JSON(http.StatusOK, gin.H{"message": "Worker paused"})
}

func (ws *WebServer) handleWorkerResume(c *gin.Context) {
	if !ws.runner.IsPaused() {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "Worker is not paused"})
		return
	}
	ws.runner.Resume()
	c.JSON(http.StatusOK, gin.H{"message": "Worker resumed"})
}

func (ws *WebServer) handleWorkerStatus(c *gin.Context) {
	state := "not-running"
	if ws.runner.IsRunning() {
		state = "running"
		if ws.runner.IsPaused() {
			state = "paused"
		}
	}
	c.JSON(http.StatusOK, models.WorkerStatusResponse{
		State: state,
		Stats: ws.runner.Stats(),
	})
}

func (ws *WebServer) handleWorkerLog(c *gin.Context) {
	ws.workerMu.Lock()
	lines := make([]string, len(ws.workerLog))
	copy(lines, ws.workerLog)
	lastError := ws.lastError
	ws.workerMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"lines": lines, "last_error": lastError})
}

func (ws *WebServer) handleUICards(c *gin.Context) {
	category := c.Param("category")

	cards, err := ws.db.GetAllCards(category)
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Error fetching cards: %v", err))
		return
	}

	deckCards, err := ws.decks.List()
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Error fetching deck: %v", err))
		return
	}
	inDeck := mapset.NewSet(deckCards...)

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := templates.CardGrid(cards, inDeck).Render(c.Request.Context(), c.Writer); err != nil {
		slog.Error("failed to render card grid", "error", err)
	}
}

func (ws *WebServer) handleUIDeck(c *gin.Context) {
	cards, err := ws.decks.List()
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Error fetching deck: %v", err))
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := templates.DeckPanel(cards).Render(c.Request.Context(), c.Writer); err != nil {
		slog.Error("failed to render deck panel", "error", err)
	}
}
