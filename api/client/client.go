package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"deckpilot/api/models"
	"deckpilot/store"
)

type CardClient struct {
	baseURL string
	client  *http.Client
}

func NewCardClient(baseURL string) *CardClient {
	return &CardClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// RegisterCard registers an existing card image file in the database
func (cc *CardClient) RegisterCard(cardPath string, category string) error {
	cardName := filepath.Base(cardPath)

	// Check if file exists
	if _, err := os.Stat(cardPath); os.IsNotExist(err) {
		return fmt.Errorf("card file does not exist: %s", cardPath)
	}

	reqBody := models.RegisterCardRequest{
		CardName: cardName,
		Category: category,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/cards/register", cc.baseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp models.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var registerResp models.RegisterCardResponse
	if err := json.Unmarshal(body, &registerResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	slog.Info("card registered successfully", "name", cardName, "category", category, "cost", registerResp.Cost)
	return nil
}

// RegisterCardIfNotExists registers a card only if it doesn't already exist
func (cc *CardClient) RegisterCardIfNotExists(cardPath string, category string) error {
	err := cc.RegisterCard(cardPath, category)
	if err != nil {
		// Check if error is due to duplicate
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "409") {
			slog.Debug("card already registered, skipping", "path", cardPath)
			return nil
		}
		return err
	}
	return nil
}

// GetCards retrieves all cards for a given category from the database
func (cc *CardClient) GetCards(category string) ([]store.Card, error) {
	// Fetch all cards by using a large limit and paginating if needed
	var allCards []store.Card
	page := 1
	limit := 100

	for {
		url := fmt.Sprintf("%s/cards?category=%s&page=%d&limit=%d", cc.baseURL, url.QueryEscape(category), page, limit)
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := cc.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			var errResp models.ErrorResponse
			if err := json.Unmarshal(body, &errResp); err == nil {
				return nil, fmt.Errorf("server error: %s", errResp.Error)
			}
			return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
		}

		var listResp models.CardListResponse
		if err := json.Unmarshal(body, &listResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		allCards = append(allCards, listResp.Cards...)

		// Check if we've fetched all cards
		if len(listResp.Cards) < limit || len(allCards) >= listResp.Total {
			break
		}

		page++
	}

	return allCards, nil
}

// DeleteCard deletes a card from the database (and filesystem if it exists)
func (cc *CardClient) DeleteCard(name string, category string) error {
	encodedName := url.PathEscape(name)
	deleteURL := fmt.Sprintf("%s/cards/%s/category/%s", cc.baseURL, encodedName, url.PathEscape(category))
	req, err := http.NewRequest("DELETE", deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		var errResp models.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
