package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// newEchoServer starts an httptest server that upgrades to a websocket and
// echoes every text frame it receives back to the client, using the same
// ws.UpgradeHTTP upgrade path as a server-side gobwas/ws listener.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		go func() {
			defer conn.Close()
			for {
				payload, op, err := wsutil.ReadClientData(conn)
				if err != nil {
					return
				}
				if err := wsutil.WriteServerMessage(conn, op, payload); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestDialSendRecv_RoundTrip(t *testing.T) {
	srv := newEchoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, wsURL(srv.URL), Config{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer tr.Close()

	if err := tr.Send(ctx, []byte(`{"requests":[]}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := tr.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != `{"requests":[]}` {
		t.Errorf("Recv() = %q, want echoed payload", got)
	}
}

func TestDial_CompressionNegotiation(t *testing.T) {
	srv := newEchoServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, wsURL(srv.URL), Config{EnableCompression: true})
	if err != nil {
		t.Fatalf("Dial with compression requested: %v", err)
	}
	defer tr.Close()

	// The echo server above never negotiates wsflate, so the client must
	// still function over a plain, uncompressed connection.
	if err := tr.Send(ctx, []byte(`ping`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := tr.Recv(ctx); err != nil {
		t.Fatalf("Recv: %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	srv := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := Dial(ctx, wsURL(srv.URL), Config{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}
