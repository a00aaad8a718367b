package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newFeedServer(t *testing.T) (*Feed, *httptest.Server) {
	t.Helper()
	f := NewFeed(2 * time.Second)
	ts := httptest.NewServer(f.Handler())
	t.Cleanup(ts.Close)
	return f, ts
}

func dialFeed(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, f *Feed, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count=%d want %d", f.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(msg)
}

func TestFeed_BroadcastReachesAllClients(t *testing.T) {
	f, ts := newFeedServer(t)

	c1 := dialFeed(t, ts)
	c2 := dialFeed(t, ts)
	waitForClients(t, f, 2)

	payload := `{"position":{"latitudeDeg":34.55,"longitudeDeg":-80.11,"mslAltitudeFt":1200.1,"gpsGroundSpeedKts":55.6}}`
	if sent := f.Broadcast([]byte(payload)); sent != 2 {
		t.Fatalf("sent=%d want 2", sent)
	}

	if got := readFrame(t, c1); got != payload {
		t.Fatalf("client1 got %q", got)
	}
	if got := readFrame(t, c2); got != payload {
		t.Fatalf("client2 got %q", got)
	}
}

func TestFeed_BroadcastWithNoClients(t *testing.T) {
	f, _ := newFeedServer(t)
	if sent := f.Broadcast([]byte("{}")); sent != 0 {
		t.Fatalf("sent=%d want 0", sent)
	}
}

func TestFeed_DisconnectedClientPruned(t *testing.T) {
	f, ts := newFeedServer(t)

	c1 := dialFeed(t, ts)
	c2 := dialFeed(t, ts)
	waitForClients(t, f, 2)

	_ = c1.Close()
	waitForClients(t, f, 1)

	payload := `{"attitude":{"rollAngleDegRight":0.2,"pitchAngleDegUp":0.1,"trueHeadingDeg":180.2}}`
	if sent := f.Broadcast([]byte(payload)); sent != 1 {
		t.Fatalf("sent=%d want 1", sent)
	}
	if got := readFrame(t, c2); got != payload {
		t.Fatalf("surviving client got %q", got)
	}
}

func TestFeed_CloseAll(t *testing.T) {
	f, ts := newFeedServer(t)

	c := dialFeed(t, ts)
	waitForClients(t, f, 1)

	f.CloseAll()
	if n := f.ClientCount(); n != 0 {
		t.Fatalf("client count=%d want 0 after CloseAll", n)
	}

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	if err == nil {
		t.Fatalf("expected read to fail after CloseAll")
	}
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		// A plain connection teardown is acceptable too; a success is not.
		t.Logf("read error after CloseAll: %v", err)
	}

	// New sessions are refused once closed.
	c2 := dialFeed(t, ts)
	_ = c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c2.ReadMessage(); err == nil {
		t.Fatalf("expected new session to be rejected after CloseAll")
	}
	if n := f.ClientCount(); n != 0 {
		t.Fatalf("client count=%d want 0 after rejected dial", n)
	}
}
