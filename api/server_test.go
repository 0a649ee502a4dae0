package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckpilot/api/models"
	"deckpilot/config"
	"deckpilot/deck"
	"deckpilot/store"
)

func newTestServer(t *testing.T) *WebServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("DECKPILOT_AWS_PROFILE", "")
	t.Setenv("DECKPILOT_S3_BUCKET", "")

	rootPath := t.TempDir()
	db, err := store.NewDatabase(filepath.Join(rootPath, "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.NewManager(filepath.Join(rootPath, "config.json"))
	_, err = cfg.Load()
	require.NoError(t, err)

	decks, err := deck.NewManager(rootPath)
	require.NoError(t, err)

	return NewWebServer(db, cfg, decks, "http://localhost:8080", nil)
}

func addLibraryCard(t *testing.T, ws *WebServer, category, name string) {
	t.Helper()
	dir := filepath.Join(ws.decks.LibraryDir(), category)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644))
}

func doJSON(ws *WebServer, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ws.router.ServeHTTP(w, req)
	return w
}

func registerCard(t *testing.T, ws *WebServer, category, name string) {
	t.Helper()
	addLibraryCard(t, ws, category, name)
	w := doJSON(ws, http.MethodPost, "/cards/register", models.RegisterCardRequest{
		CardName: name,
		Category: category,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRegisterCard(t *testing.T) {
	ws := newTestServer(t)
	addLibraryCard(t, ws, "troops", "3_knight.png")

	w := doJSON(ws, http.MethodPost, "/cards/register", models.RegisterCardRequest{
		CardName: "3_knight.png",
		Category: "troops",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RegisterCardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Cost, "cost parsed from the filename prefix")
	assert.Equal(t, 0, resp.Order)

	// Registering again reports the duplicate without failing.
	w = doJSON(ws, http.MethodPost, "/cards/register", models.RegisterCardRequest{
		CardName: "3_knight.png",
		Category: "troops",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "already exists")
}

func TestRegisterCardValidation(t *testing.T) {
	ws := newTestServer(t)

	tests := []struct {
		name string
		req  models.RegisterCardRequest
		code int
	}{
		{"missing name", models.RegisterCardRequest{Category: "troops"}, http.StatusBadRequest},
		{"missing category", models.RegisterCardRequest{CardName: "3_knight.png"}, http.StatusBadRequest},
		{"bad extension", models.RegisterCardRequest{CardName: "3_knight.gif", Category: "troops"}, http.StatusBadRequest},
		{"file absent", models.RegisterCardRequest{CardName: "3_knight.png", Category: "troops"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(ws, http.MethodPost, "/cards/register", tt.req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestListCardsWithCostFilter(t *testing.T) {
	ws := newTestServer(t)
	registerCard(t, ws, "troops", "1_skeletons.png")
	registerCard(t, ws, "troops", "5_wizard.png")

	w := doJSON(ws, http.MethodGet, "/cards?category=troops&max_cost=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CardListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "1_skeletons.png", resp.Cards[0].CardName)
}

func TestDeckAddRemove(t *testing.T) {
	ws := newTestServer(t)
	addLibraryCard(t, ws, "troops", "3_knight.png")

	w := doJSON(ws, http.MethodPost, "/deck/cards/3_knight.png/category/troops", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(ws, http.MethodGet, "/deck", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.DeckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"3_knight.png"}, resp.Cards)
	assert.Equal(t, 1, resp.CardCount)

	w = doJSON(ws, http.MethodDelete, "/deck/cards/3_knight.png", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(ws, http.MethodPost, "/deck/cards/9_ghost.png/category/troops", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnapshotEndpoints(t *testing.T) {
	ws := newTestServer(t)
	addLibraryCard(t, ws, "troops", "3_knight.png")

	w := doJSON(ws, http.MethodPost, "/deck/cards/3_knight.png/category/troops", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(ws, http.MethodPost, "/deck/snapshots", models.SaveSnapshotRequest{Name: "ladder"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(ws, http.MethodDelete, "/deck/cards/3_knight.png", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(ws, http.MethodPost, "/deck/snapshots/ladder/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result deck.RestoreResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"3_knight.png"}, result.Restored)

	w = doJSON(ws, http.MethodPost, "/deck/snapshots/unknown/restore", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(ws, http.MethodDelete, "/deck/snapshots/ladder", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPriorityEndpoints(t *testing.T) {
	ws := newTestServer(t)

	w := doJSON(ws, http.MethodPut, "/priorities", models.UpdatePrioritiesRequest{
		Priorities: map[string]int{"3_knight.png": 5},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(ws, http.MethodGet, "/priorities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.PrioritiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Priorities["3_knight.png"])

	// Out-of-range priorities are rejected, not clamped, at the API edge.
	w = doJSON(ws, http.MethodPut, "/priorities", models.UpdatePrioritiesRequest{
		Priorities: map[string]int{"3_knight.png": 1000},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	ws := newTestServer(t)

	sched := ws.cfg.Get().Schedule
	sched.ScheduledStart = config.Trigger{Enabled: true, At: config.TimeOfDay{Hour: 9, Minute: 30}}
	sched.Repeat = config.Repeat{Weekdays: true}

	w := doJSON(ws, http.MethodPut, "/schedule", sched)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(ws, http.MethodGet, "/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got config.Schedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, sched, got)

	// Invalid trigger times never reach the config file.
	sched.ScheduledStart.At.Hour = 24
	w = doJSON(ws, http.MethodPut, "/schedule", sched)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	ws := newTestServer(t)

	payload := settingsPayload{
		UI:            config.UI{WindowOpacity: 0.8},
		Timing:        config.Timing{DragDurationMs: 150, ActionDelayMs: 400},
		WorkerCommand: []string{"python3", "bot.py"},
		LicenseKey:    "abc-123",
	}
	w := doJSON(ws, http.MethodPut, "/settings", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(ws, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got settingsPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, payload, got)
}

func TestWorkerEndpoints(t *testing.T) {
	ws := newTestServer(t)

	// No worker command configured.
	w := doJSON(ws, http.MethodPost, "/worker/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(ws, http.MethodPost, "/worker/pause", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(ws, http.MethodPost, "/worker/resume", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(ws, http.MethodGet, "/worker/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.WorkerStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "not-running", status.State)

	// Stopping an idle worker is always accepted.
	w = doJSON(ws, http.MethodPost, "/worker/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWorkerErrorResetsStatus(t *testing.T) {
	ws := newTestServer(t)

	ws.setWorkerStatus("running")
	ws.recordWorkerError("license expired")

	w := doJSON(ws, http.MethodGet, "/worker/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Lines     []string `json:"lines"`
		LastError string   `json:"last_error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "license expired", resp.LastError)

	ws.workerMu.Lock()
	defer ws.workerMu.Unlock()
	assert.Equal(t, "idle", ws.workerStatus)
}

func TestCardImageEndpoint(t *testing.T) {
	ws := newTestServer(t)
	addLibraryCard(t, ws, "troops", "3_knight.png")

	w := doJSON(ws, http.MethodGet, "/cards/troops/3_knight.png/image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "img", w.Body.String())

	w = doJSON(ws, http.MethodGet, "/cards/troops/9_ghost.png/image", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
