package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetCards(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, 0))
	require.NoError(t, db.InsertCard("5_wizard.png", "troops", 5, 1))
	require.NoError(t, db.InsertCard("2_zap.png", "spells", 2, 0))

	cards, err := db.GetAllCards("troops")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "3_knight.png", cards[0].CardName)
	assert.Equal(t, 3, cards[0].Cost)
	assert.Equal(t, "5_wizard.png", cards[1].CardName)

	count, err := db.GetCardCount("troops")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = db.GetCardCount("buildings")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInsertDuplicateFails(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, 0))
	assert.Error(t, db.InsertCard("3_knight.png", "troops", 3, 1))

	// Same name in a different category is a distinct row.
	assert.NoError(t, db.InsertCard("3_knight.png", "remote", 3, 0))
}

func TestGetCardsPagination(t *testing.T) {
	db := newTestDatabase(t)

	names := []string{"1_skeletons.png", "2_zap.png", "3_knight.png", "4_tesla.png", "5_wizard.png"}
	for i, name := range names {
		require.NoError(t, db.InsertCard(name, "troops", i+1, i))
	}

	page, err := db.GetCards("troops", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "1_skeletons.png", page[0].CardName)

	page, err = db.GetCards("troops", 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "5_wizard.png", page[0].CardName)
}

func TestGetCardsByMaxCost(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.InsertCard("1_skeletons.png", "troops", 1, 0))
	require.NoError(t, db.InsertCard("5_wizard.png", "troops", 5, 1))
	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, 2))

	cards, err := db.GetCardsByMaxCost("troops", 3)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "1_skeletons.png", cards[0].CardName)
	assert.Equal(t, "3_knight.png", cards[1].CardName)
}

func TestGetCategories(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, 0))
	require.NoError(t, db.InsertCard("2_zap.png", "spells", 2, 0))
	require.NoError(t, db.InsertCard("4_tesla.png", "buildings", 4, 0))

	categories, err := db.GetCategories()
	require.NoError(t, err)
	assert.Equal(t, []string{"buildings", "spells", "troops"}, categories)
}

func TestDeleteCard(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, 0))
	require.NoError(t, db.DeleteCard("3_knight.png", "troops"))
	assert.Error(t, db.DeleteCard("3_knight.png", "troops"))

	exists, err := db.CardExists("3_knight.png", "troops")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOrdering(t *testing.T) {
	db := newTestDatabase(t)

	next, err := db.GetMaxOrder("troops")
	require.NoError(t, err)
	assert.Equal(t, 0, next, "empty category starts at order 0")

	require.NoError(t, db.InsertCard("3_knight.png", "troops", 3, next))
	next, err = db.GetMaxOrder("troops")
	require.NoError(t, err)
	require.NoError(t, db.InsertCard("5_wizard.png", "troops", 5, next))

	require.NoError(t, db.UpdateCardOrder("5_wizard.png", "troops", -1))
	assert.Error(t, db.UpdateCardOrder("9_ghost.png", "troops", 0))

	cards, err := db.GetAllCards("troops")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "5_wizard.png", cards[0].CardName, "reordered card sorts first")
}
