package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, 8),
		id:          "test-client",
		remoteAddr:  "127.0.0.1:0",
		connectedAt: time.Now(),
		logger:      hub.logger,
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if hub.ClientCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("hub never reached %d clients, have %d", want, hub.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func readEnvelope(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case payload := <-client.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no message reached client")
		return Envelope{}
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)
	readEnvelope(t, client) // connection greeting

	hub.unregister <- client
	waitForClients(t, hub, 0)

	// Channel is closed on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

func TestHubGreetsNewClient(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	env := readEnvelope(t, client)
	assert.Equal(t, TypeConnection, env.Type)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, client.id, data["client_id"])
	assert.Equal(t, "connected", data["status"])
}

func TestHubBroadcastDatasetCreated(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)
	readEnvelope(t, client) // connection greeting

	hub.BroadcastDatasetCreated(map[string]string{"id": "abc"})

	env := readEnvelope(t, client)
	assert.Equal(t, TypeDatasetCreated, env.Type)
	assert.NotEmpty(t, env.Timestamp)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc", data["id"])
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	slow := newTestClient(hub)
	slow.send = make(chan []byte) // unbuffered, never drained
	hub.Register(slow)
	waitForClients(t, hub, 1)

	hub.BroadcastDatasetDeleted("abc")
	waitForClients(t, hub, 0)
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	client := newTestClient(hub)
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister blocked after hub stop")
	}
}

func TestHubStartIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()
}
