// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gavel/internal/logging"
)

func init() {
	logging.SetOutput(io.Discard)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, done
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHub_BroadcastOrderAndWelcome(t *testing.T) {
	hub, _, _ := startHub(t)
	a := NewClient(hub, nil, "alice")
	b := NewClient(hub, nil, "bob")
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	hub.BroadcastJSON("bid_placed", map[string]string{"lot": "item_1"})

	for _, c := range []*Client{a, b} {
		if m := receive(t, c); m.Type != MessageTypeWelcome {
			t.Errorf("first message = %q, want welcome", m.Type)
		}
		if m := receive(t, c); m.Type != "bid_placed" {
			t.Errorf("message = %q, want bid_placed", m.Type)
		}
	}
	if a.ID() >= b.ID() {
		t.Errorf("client IDs not increasing: %d, %d", a.ID(), b.ID())
	}
}

func TestHub_Unregister(t *testing.T) {
	hub, _, _ := startHub(t)
	c := NewClient(hub, nil, "alice")
	hub.Register <- c
	waitForClients(t, hub, 1)

	hub.Unregister <- c
	waitForClients(t, hub, 0)

	<-c.send // welcome
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// a second unregister is harmless
	hub.Unregister <- c
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _, _ := startHub(t)
	c := NewClient(hub, nil, "slow")
	hub.Register <- c
	waitForClients(t, hub, 1)

	for i := 0; i < cap(c.send)+10; i++ {
		hub.broadcastToClients(Message{Type: "lot_updated"})
	}
	if n := hub.GetClientCount(); n != 0 {
		t.Errorf("client count = %d, want slow client dropped", n)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel, done := startHub(t)
	c := NewClient(hub, nil, "alice")
	hub.Register <- c
	waitForClients(t, hub, 1)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if hub.GetClientCount() != 0 {
		t.Error("clients left after shutdown")
	}
}

func TestBroadcastJSON_FullQueueDoesNotBlock(t *testing.T) {
	hub := NewHub() // not running
	for i := 0; i < cap(hub.broadcast)+5; i++ {
		hub.BroadcastJSON("lot_created", i)
	}
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("queue length = %d", len(hub.broadcast))
	}
}

func TestClient_EndToEnd(t *testing.T) {
	hub, _, _ := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, "alice")
		hub.Register <- c
		c.Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageTypeWelcome {
		t.Fatalf("welcome = %+v, %v", msg, err)
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageTypePong {
		t.Fatalf("pong = %+v, %v", msg, err)
	}

	waitForClients(t, hub, 1)
	hub.BroadcastJSON("lot_settled", map[string]string{"lot": "item_4"})
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "lot_settled" {
		t.Fatalf("broadcast = %+v, %v", msg, err)
	}

	b, err := MarshalMessage(Message{Type: "x", Data: 1})
	if err != nil || string(b) != `{"type":"x","data":1}` {
		t.Errorf("MarshalMessage() = %s, %v", b, err)
	}
}
