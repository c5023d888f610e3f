package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/mkravets/salondesk/internal/repo"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{
		Port:   0, // Use random available port
		Logger: log.New(io.Discard, "", 0),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Stop(); err != nil {
			t.Errorf("Failed to stop server: %v", err)
		}
	})

	// Give server time to start
	time.Sleep(100 * time.Millisecond)
	return server
}

func dialClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func httpGet(url string) (map[string]interface{}, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func TestServerStartStop(t *testing.T) {
	server := testServer(t)

	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialClient(t, ctx, server)

	// The handler registers the client asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestMessageBroadcast(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond)

	payload, _ := json.Marshal(EntityUpdateData{
		Collection: "customers",
		ID:         "c-1",
		Action:     "added",
	})
	server.Broadcast(Message{Type: MessageTypeEntityUpdate, Data: payload})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeEntityUpdate {
		t.Errorf("Expected message type %s, got %s", MessageTypeEntityUpdate, msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected server-stamped timestamp")
	}

	var data EntityUpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
	if data.Collection != "customers" || data.Action != "added" {
		t.Errorf("Unexpected payload: %+v", data)
	}
}

func TestMultipleClients(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	conns := make([]*websocket.Conn, numClients)
	for i := 0; i < numClients; i++ {
		conns[i] = dialClient(t, ctx, server)
	}
	time.Sleep(100 * time.Millisecond)

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}

	// Every client receives the broadcast
	server.Broadcast(Message{Type: MessageTypeConnectivity, Data: json.RawMessage(`{"online":true}`)})
	for i, conn := range conns {
		msg := readMessage(t, ctx, conn)
		if msg.Type != MessageTypeConnectivity {
			t.Errorf("Client %d: expected %s, got %s", i, MessageTypeConnectivity, msg.Type)
		}
	}
}

func TestBroadcaster(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond)

	b := NewBroadcaster(server)

	b.SyncStarted("customers")
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncStarted {
		t.Errorf("Expected %s, got %s", MessageTypeSyncStarted, msg.Type)
	}

	b.SyncCompleted("customers", repo.SyncResult{Pushed: 2, Pulled: 1}, nil)
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Errorf("Expected %s, got %s", MessageTypeSyncComplete, msg.Type)
	}
	var complete SyncCompleteData
	if err := json.Unmarshal(msg.Data, &complete); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
	if complete.Pushed != 2 || complete.Pulled != 1 || complete.Error != "" {
		t.Errorf("Unexpected payload: %+v", complete)
	}

	b.PublishDirtyStats(map[string]int{"customers": 2, "services": 1})
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeDirtyStats {
		t.Errorf("Expected %s, got %s", MessageTypeDirtyStats, msg.Type)
	}
	var stats DirtyStatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Expected total 3, got %d", stats.Total)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := httpGet("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("Failed to fetch health: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
}
