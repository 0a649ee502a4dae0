// Package store database for card metadata backing the library browser
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{db: db}

	// Create table if it doesn't exist
	if err := database.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return database, nil
}

func (d *Database) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS cards (
		card_name TEXT NOT NULL,
		category  TEXT NOT NULL,
		cost      INTEGER NOT NULL,
		"order"   INTEGER NOT NULL,
		PRIMARY KEY (card_name, category)
	);
	CREATE INDEX IF NOT EXISTS idx_cards_category_order ON cards(category, "order");
	`
	_, err := d.db.Exec(query)
	return err
}

func (d *Database) InsertCard(name string, category string, cost int, order int) error {
	query := `INSERT INTO cards (card_name, category, cost, "order") VALUES (?, ?, ?, ?)`
	_, err := d.db.Exec(query, name, category, cost, order)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (d *Database) GetCards(category string, limit int, offset int) ([]Card, error) {
	query := `
		SELECT card_name, category, cost, "order"
		FROM cards
		WHERE category = ?
		ORDER BY "order" ASC
		LIMIT ? OFFSET ?
	`
	rows, err := d.db.Query(query, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

func (d *Database) GetAllCards(category string) ([]Card, error) {
	query := `
		SELECT card_name, category, cost, "order"
		FROM cards
		WHERE category = ?
		ORDER BY "order" ASC
	`
	rows, err := d.db.Query(query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// GetCardsByMaxCost filters a category by elixir cost, used by the browser's
// cost filter control.
func (d *Database) GetCardsByMaxCost(category string, maxCost int) ([]Card, error) {
	query := `
		SELECT card_name, category, cost, "order"
		FROM cards
		WHERE category = ? AND cost <= ?
		ORDER BY cost ASC, "order" ASC
	`
	rows, err := d.db.Query(query, category, maxCost)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

func scanCards(rows *sql.Rows) ([]Card, error) {
	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.CardName, &c.Category, &c.Cost, &c.Order); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return cards, nil
}

func (d *Database) GetCard(name string, category string) (*Card, error) {
	query := `SELECT card_name, category, cost, "order" FROM cards WHERE card_name = ? AND category = ?`
	var c Card
	err := d.db.QueryRow(query, name, category).Scan(&c.CardName, &c.Category, &c.Cost, &c.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &c, nil
}

func (d *Database) GetCardCount(category string) (int, error) {
	query := `SELECT COUNT(*) FROM cards WHERE category = ?`
	var count int
	err := d.db.QueryRow(query, category).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get card count: %w", err)
	}
	return count, nil
}

func (d *Database) GetCategories() ([]string, error) {
	query := `SELECT DISTINCT category FROM cards ORDER BY category ASC`
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return categories, nil
}

func (d *Database) DeleteCard(name string, category string) error {
	query := `DELETE FROM cards WHERE card_name = ? AND category = ?`
	result, err := d.db.Exec(query, name, category)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("card not found: %s in category %s", name, category)
	}

	return nil
}

func (d *Database) GetMaxOrder(category string) (int, error) {
	query := `SELECT COALESCE(MAX("order"), -1) FROM cards WHERE category = ?`
	var maxOrder int
	err := d.db.QueryRow(query, category).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to get max order: %w", err)
	}
	return maxOrder + 1, nil
}

func (d *Database) UpdateCardOrder(name string, category string, newOrder int) error {
	query := `UPDATE cards SET "order" = ? WHERE card_name = ? AND category = ?`
	result, err := d.db.Exec(query, newOrder, name, category)
	if err != nil {
		return fmt.Errorf("failed to update card order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("card not found: %s in category %s", name, category)
	}

	return nil
}

func (d *Database) CardExists(name string, category string) (bool, error) {
	query := `SELECT COUNT(*) FROM cards WHERE card_name = ? AND category = ?`
	var count int
	err := d.db.QueryRow(query, name, category).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check card existence: %w", err)
	}
	return count > 0, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
