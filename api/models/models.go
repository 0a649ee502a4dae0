// Package models tracks all api models for request and responses
package models

import (
	"deckpilot/store"
	"deckpilot/worker"
)

type CardListResponse struct {
	Cards []store.Card `json:"cards"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type RegisterCardRequest struct {
	CardName string `json:"card_name"`
	Category string `json:"category"`
}

type RegisterCardResponse struct {
	CardName string `json:"card_name"`
	Category string `json:"category"`
	Cost     int    `json:"cost"`
	Order    int    `json:"order"`
	Message  string `json:"message"`
}

type ReorderRequest struct {
	NewOrder int `json:"new_order"`
}

type DeckResponse struct {
	Cards     []string `json:"cards"`
	CardCount int      `json:"card_count"`
}

type DeckAddRequest struct {
	CardName string `json:"card_name"`
	Category string `json:"category"`
}

type SnapshotListResponse struct {
	Snapshots []string `json:"snapshots"`
}

type SaveSnapshotRequest struct {
	Name string `json:"name"`
}

type PrioritiesResponse struct {
	Priorities map[string]int `json:"priorities"`
}

type UpdatePrioritiesRequest struct {
	Priorities map[string]int `json:"priorities"`
}

type WorkerStatusResponse struct {
	State string       `json:"state"`
	Stats worker.Stats `json:"stats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
