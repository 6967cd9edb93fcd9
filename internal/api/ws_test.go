package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, counts chan int, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-counts:
			if n == want {
				return
			}
		case <-deadline:
			t.Fatalf("client count never reached %d", want)
		}
	}
}

func TestHubBroadcastDeliversEvent(t *testing.T) {
	counts := make(chan int, 4)
	hub := NewHub(func(n int) { counts <- n })

	conn := dialHub(t, hub)
	waitForClients(t, counts, 1)

	hub.Broadcast("sl_applied", map[string]int{"updated": 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != "sl_applied" {
		t.Errorf("event type = %q, want sl_applied", ev.Type)
	}
	if ev.TS == "" {
		t.Error("event timestamp missing")
	}
	data, ok := ev.Data.(map[string]interface{})
	if !ok || data["updated"].(float64) != 2 {
		t.Errorf("event data = %v", ev.Data)
	}
}

func TestHubSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(nil)
	slow := &wsClient{send: make(chan []byte, 1)}
	slow.send <- []byte("stale")
	hub.register(slow)

	done := make(chan struct{})
	go func() {
		hub.Broadcast("hedge", map[string]float64{"atm": 19500})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	if len(slow.send) != 1 {
		t.Errorf("slow client buffered %d messages, want only the stale one", len(slow.send))
	}
}

func TestHubClientCountTracksDisconnect(t *testing.T) {
	counts := make(chan int, 4)
	hub := NewHub(func(n int) { counts <- n })

	conn := dialHub(t, hub)
	waitForClients(t, counts, 1)

	conn.Close()
	waitForClients(t, counts, 0)
}
