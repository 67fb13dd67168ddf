// Package websocket pushes live wallet balance changes to connected clients.
package websocket

import (
	"encoding/json"
	"sync"
)

// BalanceUpdate is pushed after a wallet balance changes.
type BalanceUpdate struct {
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Delta     string `json:"delta"`
	InvoiceID string `json:"invoice_id,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

// Unregister drops client and stops its writer. It is safe to call twice.
func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID][client]; !ok {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
	close(client.done)
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastBalance queues update for every connection of userID. Slow clients
// with a full buffer miss the update.
func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	if update.Type == "" {
		update.Type = "balance"
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
