package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pingboard/internal/events"
	"pingboard/internal/models"
)

func setupHubServer(t *testing.T, bus *events.Bus, snapshot SnapshotFunc, interval time.Duration) (*Hub, string) {
	t.Helper()
	hub := NewHub(bus, snapshot, interval)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	// Convert http:// to ws://
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return hub, wsURL
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestConnectDisconnect(t *testing.T) {
	hub, wsURL := setupHubServer(t, events.NewBus(), nil, time.Hour)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for hub.ActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ActiveConnections() != 1 {
		t.Fatalf("active: got %d, want 1", hub.ActiveConnections())
	}

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for hub.ActiveConnections() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ActiveConnections() != 0 {
		t.Errorf("active after close: got %d", hub.ActiveConnections())
	}
}

func TestEventFrameBroadcast(t *testing.T) {
	bus := events.NewBus()
	hub, wsURL := setupHubServer(t, bus, nil, time.Hour)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish(events.Event{
		Type:       events.DeviceDown,
		Severity:   events.SeverityCritical,
		DeviceName: "gateway",
		IP:         "192.168.1.1",
		Message:    "Ping failed",
	})

	frame := readFrame(t, conn)
	if frame.Type != "event" {
		t.Fatalf("frame type: got %q", frame.Type)
	}
	var e events.Event
	if err := json.Unmarshal(frame.Payload, &e); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if e.Type != events.DeviceDown || e.DeviceName != "gateway" {
		t.Errorf("event: %+v", e)
	}
}

func TestPeriodicStatusFrames(t *testing.T) {
	up := true
	snapshot := func() map[string]models.StatusSnapshot {
		return map[string]models.StatusSnapshot{
			"gateway": {Name: "gateway", IP: "192.168.1.1", PingStatus: &up},
		}
	}
	_, wsURL := setupHubServer(t, events.NewBus(), snapshot, 50*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	frame := readFrame(t, conn)
	if frame.Type != "status" {
		t.Fatalf("frame type: got %q", frame.Type)
	}
	var statuses map[string]models.StatusSnapshot
	if err := json.Unmarshal(frame.Payload, &statuses); err != nil {
		t.Fatalf("payload: %v", err)
	}
	s, ok := statuses["gateway"]
	if !ok || s.PingStatus == nil || !*s.PingStatus {
		t.Errorf("status: %+v", statuses)
	}
}
