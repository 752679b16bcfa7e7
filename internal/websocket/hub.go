package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeNewMessage  MessageType = "message.received"
	MessageTypeExtraction  MessageType = "extraction.completed"
	MessageTypeCleanup     MessageType = "cleanup.completed"
	MessageTypeError       MessageType = "error"
)

// WSMessage represents a WebSocket message. Subscriptions are keyed by
// mailbox address; cleanup notifications go to every connected client.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Mailbox string      `json:"mailbox,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewMessagePayload notifies subscribers about a freshly fetched message
type NewMessagePayload struct {
	UID             uint32 `json:"uid"`
	Folder          string `json:"folder"`
	Sender          string `json:"sender"`
	Subject         string `json:"subject,omitempty"`
	Date            string `json:"date"`
	AttachmentCount int    `json:"attachment_count"`
}

// ExtractionPayload notifies subscribers about a finished archive extraction
type ExtractionPayload struct {
	MessageUID    uint32 `json:"message_uid"`
	SourceArchive string `json:"source_archive"`
	Destination   string `json:"destination,omitempty"`
	FileCount     int    `json:"file_count"`
	Failed        bool   `json:"failed"`
}

// CleanupPayload summarizes an age-based cleanup run
type CleanupPayload struct {
	RemovedDirs int `json:"removed_dirs"`
	Failed      int `json:"failed"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Mailbox subscriptions: address -> set of clients
	subscriptions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to mailbox
	subscribe chan *subscriptionRequest

	// Unsubscribe from mailbox
	unsubscribeMailbox chan *subscriptionRequest

	// Broadcast to mailbox subscribers; empty mailbox means every client
	broadcast chan *broadcastMessage

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type subscriptionRequest struct {
	client  *Client
	mailbox string
}

type broadcastMessage struct {
	mailbox string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:            make(map[*Client]bool),
		subscriptions:      make(map[string]map[*Client]bool),
		register:           make(chan *Client),
		unregister:         make(chan *Client),
		subscribe:          make(chan *subscriptionRequest),
		unsubscribeMailbox: make(chan *subscriptionRequest),
		broadcast:          make(chan *broadcastMessage, 256),
		logger:             logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for mailbox, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, mailbox)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.mailbox] == nil {
				h.subscriptions[req.mailbox] = make(map[*Client]bool)
			}
			h.subscriptions[req.mailbox][req.client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed to mailbox", slog.String("mailbox", req.mailbox))
			}

		case req := <-h.unsubscribeMailbox:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.mailbox]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.mailbox)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed from mailbox", slog.String("mailbox", req.mailbox))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.mailbox == "" {
				for client := range h.clients {
					select {
					case client.send <- msg.message:
					default:
						// Client buffer full, skip
					}
				}
			} else {
				for client := range h.subscriptions[msg.mailbox] {
					select {
					case client.send <- msg.message:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to a mailbox
func (h *Hub) Subscribe(client *Client, mailbox string) {
	h.subscribe <- &subscriptionRequest{client: client, mailbox: mailbox}
}

// Unsubscribe unsubscribes a client from a mailbox
func (h *Hub) Unsubscribe(client *Client, mailbox string) {
	h.unsubscribeMailbox <- &subscriptionRequest{client: client, mailbox: mailbox}
}

// Broadcast sends a typed notification to a mailbox's subscribers. An empty
// mailbox broadcasts to every connected client.
func (h *Hub) Broadcast(msgType MessageType, mailbox string, payload interface{}) {
	msg := WSMessage{
		Type:    msgType,
		Mailbox: mailbox,
		Payload: payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{
		mailbox: mailbox,
		message: data,
	}
}
