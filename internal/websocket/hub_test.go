package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgwanai/email-mcp/internal/models"
)

func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, 16)}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	subscribed := newTestClient(hub)
	other := newTestClient(hub)
	hub.Register(subscribed)
	hub.Register(other)
	hub.Subscribe(subscribed, "user@example.com")
	hub.Subscribe(other, "other@example.com")

	hub.Broadcast(MessageTypeNewMessage, "user@example.com", &NewMessagePayload{UID: 42, Subject: "hello"})

	msg := receive(t, subscribed)
	assert.Equal(t, MessageTypeNewMessage, msg.Type)
	assert.Equal(t, "user@example.com", msg.Mailbox)

	select {
	case <-other.send:
		t.Fatal("unsubscribed mailbox received the broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_EmptyMailboxBroadcastsToAll(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)
	hub.Subscribe(a, "user@example.com")

	hub.Broadcast(MessageTypeCleanup, "", &CleanupPayload{RemovedDirs: 3})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypeCleanup, msg.Type)
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := newTestClient(hub)
	hub.Register(client)
	hub.Subscribe(client, "user@example.com")
	hub.Unsubscribe(client, "user@example.com")

	hub.Broadcast(MessageTypeNewMessage, "user@example.com", nil)

	select {
	case <-client.send:
		t.Fatal("unsubscribed client received the broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBridge_MessageReceived(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := newTestClient(hub)
	hub.Register(client)
	hub.Subscribe(client, "user@example.com")

	bridge := NewEventBridge(hub)
	bridge.MessageReceived("user@example.com", &models.Message{
		UID: 7, Folder: "INBOX", Sender: "a@b.c", Subject: "hi",
		Date:        time.Now(),
		Attachments: []models.AttachmentRef{{Filename: "x.pdf"}},
	})

	msg := receive(t, client)
	assert.Equal(t, MessageTypeNewMessage, msg.Type)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var got NewMessagePayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, uint32(7), got.UID)
	assert.Equal(t, 1, got.AttachmentCount)
}

func TestEventBridge_ExtractionFailureFlag(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := newTestClient(hub)
	hub.Register(client)
	hub.Subscribe(client, "user@example.com")

	bridge := NewEventBridge(hub)
	bridge.ExtractionCompleted("user@example.com", 7, models.ExtractionRecord{
		SourceArchive: "bad.zip", Failed: true,
	})

	msg := receive(t, client)
	assert.Equal(t, MessageTypeExtraction, msg.Type)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var got ExtractionPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.True(t, got.Failed)
	assert.Equal(t, "bad.zip", got.SourceArchive)
}
