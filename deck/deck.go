// Package deck manages the active deck folder and saved deck snapshots. The
// active deck is a directory of card image files copied out of the
// categorized library tree.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"deckpilot/util"
)

var (
	ErrCardNotFound     = errors.New("card not found in library")
	ErrSnapshotNotFound = errors.New("deck snapshot not found")
)

type Manager struct {
	libraryDir   string
	deckDir      string
	snapshotsDir string
}

func NewManager(rootPath string) (*Manager, error) {
	m := &Manager{
		libraryDir:   filepath.Join(rootPath, "library"),
		deckDir:      filepath.Join(rootPath, "deck"),
		snapshotsDir: filepath.Join(rootPath, "decks"),
	}
	for _, dir := range []string{m.libraryDir, m.deckDir, m.snapshotsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return m, nil
}

func (m *Manager) DeckDir() string    { return m.deckDir }
func (m *Manager) LibraryDir() string { return m.libraryDir }

// List returns the active deck filenames in sorted order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.deckDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !util.SupportedExt.Contains(filepath.Ext(entry.Name())) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Add copies a card image from a library category into the active deck.
// Adding an already present card is a no-op.
func (m *Manager) Add(name, category string) error {
	src := filepath.Join(m.libraryDir, category, name)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrCardNotFound, category, name)
		}
		return fmt.Errorf("failed to stat library card: %w", err)
	}

	dst := filepath.Join(m.deckDir, name)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

// Remove deletes a card from the active deck. Removing an absent card is not
// an error; the deck folder is authoritative either way.
func (m *Manager) Remove(name string) error {
	if err := os.Remove(filepath.Join(m.deckDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove deck card: %w", err)
	}
	return nil
}

// Clear empties the active deck directory.
func (m *Manager) Clear() error {
	names, err := m.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := m.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

// Categories lists the library category directories in sorted order. The
// sorted order also fixes which category wins when a filename exists in more
// than one category during restore.
func (m *Manager) Categories() ([]string, error) {
	entries, err := os.ReadDir(m.libraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	var categories []string
	for _, entry := range entries {
		if entry.IsDir() {
			categories = append(categories, entry.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// ListLibrary returns the card image filenames of one library category.
func (m *Manager) ListLibrary(category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.libraryDir, category))
	if err != nil {
		return nil, fmt.Errorf("failed to read library category %s: %w", category, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !util.SupportedExt.Contains(filepath.Ext(entry.Name())) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// findInLibrary resolves a bare filename to its library path, scanning
// categories in sorted order and returning the first match. Filenames are not
// content-hashed, so a name present in several categories silently resolves
// to the first one found.
func (m *Manager) findInLibrary(name string) (string, error) {
	categories, err := m.Categories()
	if err != nil {
		return "", err
	}
	for _, category := range categories {
		path := filepath.Join(m.libraryDir, category, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCardNotFound, name)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// Snapshot is a saved deck document as written to the decks directory.
type Snapshot struct {
	Name      string   `json:"name"`
	Cards     []string `json:"cards"`
	CardCount int      `json:"card_count"`
}

func (m *Manager) snapshotPath(name string) string {
	return filepath.Join(m.snapshotsDir, name+".json")
}

// SaveSnapshot records the current active deck under the given name,
// overwriting any snapshot with the same name.
func (m *Manager) SaveSnapshot(name string) (*Snapshot, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid snapshot name: %q", name)
	}

	cards, err := m.List()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Name:      name,
		Cards:     cards,
		CardCount: len(cards),
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(m.snapshotPath(name), b, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return snap, nil
}

// LoadSnapshot reads a saved deck document.
func (m *Manager) LoadSnapshot(name string) (*Snapshot, error) {
	b, err := os.ReadFile(m.snapshotPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", name, err)
	}
	return &snap, nil
}

// ListSnapshots returns the saved deck names in sorted order.
func (m *Manager) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(m.snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) DeleteSnapshot(name string) error {
	if err := os.Remove(m.snapshotPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// RestoreResult reports what a snapshot restore actually copied.
type RestoreResult struct {
	Restored []string `json:"restored"`
	Missing  []string `json:"missing"`
}

// RestoreSnapshot replaces the active deck with the snapshot's cards. Cards
// whose files have since left the library are skipped and reported rather
// than failing the whole restore.
func (m *Manager) RestoreSnapshot(name string) (*RestoreResult, error) {
	snap, err := m.LoadSnapshot(name)
	if err != nil {
		return nil, err
	}

	if err := m.Clear(); err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	seen := mapset.NewSet[string]()
	for _, card := range snap.Cards {
		if !seen.Add(card) {
			continue
		}
		src, err := m.findInLibrary(card)
		if err != nil {
			slog.Warn("snapshot card missing from library", "snapshot", name, "card", card)
			result.Missing = append(result.Missing, card)
			continue
		}
		if err := copyFile(src, filepath.Join(m.deckDir, card)); err != nil {
			return nil, err
		}
		result.Restored = append(result.Restored, card)
	}
	return result, nil
}
