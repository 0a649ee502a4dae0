// Package templates renders the HTMX fragments for the card browser and the
// active deck panel.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	mapset "github.com/deckarep/golang-set/v2"

	"deckpilot/store"
	"deckpilot/util"
)

// CardGrid renders one library category as a grid of card tiles. Cards
// already in the active deck get a disabled add button.
func CardGrid(cards []store.Card, inDeck mapset.Set[string]) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="card-row">`); err != nil {
			return err
		}
		for _, card := range cards {
			if err := cardTile(card, inDeck.Contains(card.CardName)).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func cardTile(card store.Card, inDeck bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := templ.EscapeString(util.CardDisplayName(card.CardName))

		if _, err := io.WriteString(w, `<div class="card-item">`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			`<img src="%s" alt="%s" class="card-thumbnail" loading="lazy"/>`,
			cardImageURL(card), name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			`<span class="card-cost">%d</span><span class="card-name">%s</span>`,
			card.Cost, name); err != nil {
			return err
		}

		if inDeck {
			if _, err := io.WriteString(w,
				`<button class="card-add-btn" disabled title="Already in deck">in deck</button>`); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w,
				`<button class="card-add-btn" title="Add to deck" `+
					`hx-post="%s" hx-swap="none" `+
					`hx-on::after-request="htmx.trigger(document.body, 'refreshDeck')">add</button>`,
				deckAddURL(card)); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// DeckPanel renders the active deck with remove buttons and the running cost
// summary.
func DeckPanel(cards []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		totalCost := 0
		for _, name := range cards {
			totalCost += util.CardCost(name)
		}

		if _, err := fmt.Fprintf(w,
			`<div class="deck-panel"><div class="deck-summary">%d cards, %d total cost</div>`,
			len(cards), totalCost); err != nil {
			return err
		}
		for _, name := range cards {
			if _, err := fmt.Fprintf(w,
				`<div class="deck-item"><span class="card-name">%s</span>`+
					`<button class="card-remove-btn" title="Remove from deck" `+
					`hx-delete="%s" hx-swap="none" `+
					`hx-on::after-request="htmx.trigger(document.body, 'refreshDeck')">x</button></div>`,
				templ.EscapeString(util.CardDisplayName(name)), deckRemoveURL(name)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
