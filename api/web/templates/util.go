package templates

import (
	"fmt"
	"net/url"

	"deckpilot/store"
)

func cardImageURL(card store.Card) string {
	encodedName := url.PathEscape(card.CardName)
	return fmt.Sprintf("/cards/%s/%s/image", url.PathEscape(card.Category), encodedName)
}

func deckAddURL(card store.Card) string {
	return fmt.Sprintf("/deck/cards/%s/category/%s", url.PathEscape(card.CardName), url.PathEscape(card.Category))
}

func deckRemoveURL(name string) string {
	return fmt.Sprintf("/deck/cards/%s", url.PathEscape(name))
}
