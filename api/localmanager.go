package api

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"

	"deckpilot/api/client"
	"deckpilot/util"
)

const localCheckInterval = 10 * time.Minute

// LocalManager keeps the card registry in sync with the library directory
// tree and signals Updated when the active deck folder changes on disk, so
// manual file drops show up without waiting for a scan.
type LocalManager struct {
	libraryDir string
	deckDir    string

	cardClient   *client.CardClient
	trackedFiles map[string]mapset.Set[string]

	Updated chan bool
}

func NewLocalManager(libraryDir, deckDir, webServerURL string) (*LocalManager, error) {
	l := &LocalManager{
		libraryDir:   libraryDir,
		deckDir:      deckDir,
		cardClient:   client.NewCardClient(webServerURL),
		trackedFiles: map[string]mapset.Set[string]{},
		Updated:      make(chan bool, 1),
	}
	return l, nil
}

func (l *LocalManager) categories() ([]string, error) {
	entries, err := os.ReadDir(l.libraryDir)
	if err != nil {
		return nil, err
	}
	var categories []string
	for _, entry := range entries {
		if entry.IsDir() {
			categories = append(categories, entry.Name())
		}
	}
	return categories, nil
}

func (l *LocalManager) getCurrentFiles(category string) (mapset.Set[string], error) {
	entries, err := os.ReadDir(filepath.Join(l.libraryDir, category))
	if err != nil {
		return nil, err
	}

	currentFiles := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !util.SupportedExt.Contains(filepath.Ext(name)) {
			continue
		}
		currentFiles.Add(name)
	}
	return currentFiles, nil
}

func (l *LocalManager) Run() {
	go l.watchDeckDir()

	ticker := time.NewTicker(localCheckInterval)

	// Initial scan
	l.scanAndRegister()

	for range ticker.C {
		l.scanAndRegister()
	}
}

// watchDeckDir signals Updated whenever card files are added to or removed
// from the active deck folder outside the API.
func (l *LocalManager) watchDeckDir() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("unable to create deck watcher, falling back to scans only", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(l.deckDir); err != nil {
		slog.Warn("unable to watch deck directory", "path", l.deckDir, "error", err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !util.SupportedExt.Contains(filepath.Ext(event.Name)) {
				continue
			}
			slog.Debug("deck directory changed", "event", event.Op.String(), "name", filepath.Base(event.Name))
			select {
			case l.Updated <- true:
			default:
				// Channel is full, skip
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("deck watcher error", "error", err)
		}
	}
}

func (l *LocalManager) scanAndRegister() {
	categories, err := l.categories()
	if err != nil {
		slog.Warn("error reading library directory", "path", l.libraryDir, "error", err)
		return
	}

	changed := false
	for _, category := range categories {
		currentFiles, err := l.getCurrentFiles(category)
		if err != nil {
			slog.Warn("error reading library category", "category", category, "error", err)
			continue
		}

		tracked, ok := l.trackedFiles[category]
		if !ok {
			tracked = mapset.NewSet[string]()
		}
		if !currentFiles.Equal(tracked) {
			changed = true
		}
		l.trackedFiles[category] = currentFiles

		// Ensure all local files are registered
		for _, name := range currentFiles.ToSlice() {
			path := filepath.Join(l.libraryDir, category, name)
			if err := l.cardClient.RegisterCardIfNotExists(path, category); err != nil {
				slog.Warn("error while registering local card", "name", name, "category", category, "error", err)
			}
		}

		// Find cards registered in DB but not present locally
		registeredCards, err := l.cardClient.GetCards(category)
		if err != nil {
			slog.Warn("error getting registered cards from DB", "category", category, "error", err)
			continue
		}
		registeredNames := mapset.NewSet[string]()
		for _, card := range registeredCards {
			registeredNames.Add(card.CardName)
		}

		toDeregister := registeredNames.Difference(currentFiles).ToSlice()
		if len(toDeregister) > 0 {
			slog.Info("deregistering cards not present locally", "category", category, "count", len(toDeregister), "names", toDeregister)
			for _, name := range toDeregister {
				if err := l.cardClient.DeleteCard(name, category); err != nil {
					slog.Warn("error while deregistering card", "name", name, "category", category, "error", err)
				}
			}
		}
	}

	if changed {
		select {
		case l.Updated <- true:
		default:
			// Channel is full, skip
		}
	}
}
