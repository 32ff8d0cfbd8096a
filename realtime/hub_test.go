package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coalition-api/models"
	"coalition-api/services"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, func()) {
	t.Helper()
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	viewers := map[string]services.Viewer{
		"health":  {OrganizationID: 1, Role: models.RoleMember, Tags: []string{"healthcare"}},
		"finance": {OrganizationID: 2, Role: models.RoleMember, Tags: []string{"finance"}},
		"admin":   {OrganizationID: 3, Role: models.RoleAdmin},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, viewers[r.URL.Query().Get("as")]); err != nil {
			t.Errorf("serve: %v", err)
		}
	}))
	return hub, srv, func() {
		srv.Close()
		cancel()
	}
}

func dial(t *testing.T, srv *httptest.Server, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?as=" + as
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", as, err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesOnlyMatchingClients(t *testing.T) {
	hub, srv, stop := startHub(t)
	defer stop()

	health := dial(t, srv, "health")
	defer health.Close()
	finance := dial(t, srv, "finance")
	defer finance.Close()
	admin := dial(t, srv, "admin")
	defer admin.Close()
	waitForClients(t, hub, 3)

	hub.Broadcast(services.LiveMessage{Type: "published", Kind: "alert", ItemID: 42, Title: "Clinic closures"}, []string{"healthcare"})

	for name, conn := range map[string]*websocket.Conn{"health": health, "admin": admin} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s: expected message, got %v", name, err)
		}
		var msg services.LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if msg.ItemID != 42 || msg.Kind != "alert" {
			t.Fatalf("%s: unexpected message %#v", name, msg)
		}
	}

	_ = finance.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := finance.ReadMessage(); err == nil {
		t.Fatalf("finance client must not receive a healthcare item")
	}
}

func TestClosedClientIsUnregistered(t *testing.T) {
	hub, srv, stop := startHub(t)
	defer stop()

	conn := dial(t, srv, "health")
	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}
