package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			http.Error(w, "bad user id", http.StatusBadRequest)
			return
		}
		if err := hub.ServeWS(w, r, userID); err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}))
}

func dial(t *testing.T, server *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user_id=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers, got %d", want, hub.Subscribers())
}

func TestNotify_DeliversToSubscriber(t *testing.T) {
	hub := NewHub(nil, "")
	server := newWSServer(t, hub)
	defer server.Close()

	conn := dial(t, server, 7)
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	if !hub.Notify(context.Background(), 7, notify.SentimentUpdated(3, 95)) {
		t.Fatal("expected event to be delivered")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var got struct {
		Type string `json:"type"`
		Data struct {
			SessionID int64   `json:"sessionId"`
			NewScore  float64 `json:"newScore"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Type != "sentiment-update" || got.Data.NewScore != 95 || got.Data.SessionID != 3 {
		t.Fatalf("unexpected event: %s", data)
	}
}

func TestNotify_SkipsAbsentSubscriber(t *testing.T) {
	hub := NewHub(nil, "")
	if hub.Notify(context.Background(), 42, notify.EvaluationCompleted(1)) {
		t.Fatal("expected no delivery without a subscriber")
	}
}

func TestServeWS_NewConnectionReplacesOld(t *testing.T) {
	hub := NewHub(nil, "")
	server := newWSServer(t, hub)
	defer server.Close()

	first := dial(t, server, 7)
	defer first.Close()
	waitForSubscribers(t, hub, 1)

	second := dial(t, server, 7)
	defer second.Close()
	// The replaced connection receives a close frame.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("expected first connection to be closed")
	}
	waitForSubscribers(t, hub, 1)

	hub.Notify(context.Background(), 7, notify.EvaluationCompleted(9))
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `"evaluation-complete"`) {
		t.Fatalf("unexpected event: %s", data)
	}
}

func TestServeWS_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil, "")
	server := newWSServer(t, hub)
	defer server.Close()

	conn := dial(t, server, 5)
	waitForSubscribers(t, hub, 1)
	_ = conn.Close()
	waitForSubscribers(t, hub, 0)

	if hub.Notify(context.Background(), 5, notify.EvaluationCompleted(1)) {
		t.Fatal("expected no delivery after disconnect")
	}
}

func TestStop_ClosesConnections(t *testing.T) {
	hub := NewHub(nil, "")
	server := newWSServer(t, hub)
	defer server.Close()

	conn := dial(t, server, 1)
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	hub.Stop()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after stop, got %d", hub.Subscribers())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}
