// Package transport owns the websocket connection used by the session: it
// dials the gateway, frames outgoing JSON as text messages, and hands back
// whole text frames from recv. Nothing above this layer touches the
// connection directly.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"
)

// Transport is the minimal surface the rest of the module relies on: send a
// text frame, receive the next one, close the connection. Implementations
// must serialise concurrent Send calls themselves.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Config controls how WSTransport dials and frames the connection.
type Config struct {
	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	EnableCompression bool
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// WSTransport is the gobwas/ws-backed client implementation of Transport.
type WSTransport struct {
	cfg    Config
	conn   io.ReadWriteCloser
	reader *wsutil.Reader

	writeMu sync.Mutex
}

// Dial opens a websocket connection to url (expected to be a wss:// URL)
// and returns a ready-to-use Transport. When cfg.EnableCompression is set,
// permessage-deflate is offered to the peer; if the peer accepts, inbound
// and outbound frames are transparently inflated/deflated by wsflate.
func Dial(ctx context.Context, url string, cfg Config) (*WSTransport, error) {
	cfg = cfg.withDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var flate wsflate.Extension
	dialer := ws.Dialer{}
	if cfg.EnableCompression {
		dialer.Extensions = []httphead.Option{wsflate.DefaultParameters.Option()}
	}

	conn, _, hs, err := dialer.Dial(dialCtx, url)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}

	reader := wsutil.NewReader(conn, ws.StateClientSide)
	if cfg.EnableCompression {
		for _, ext := range hs.Extensions {
			if parseErr := flate.Parse(ext); parseErr == nil {
				reader.Extensions = []wsutil.RecvExtension{&flate}
				break
			}
		}
	}

	t := &WSTransport{
		cfg:    cfg,
		conn:   conn,
		reader: reader,
	}
	return t, nil
}

// Send writes a single text frame containing payload.
func (t *WSTransport) Send(ctx context.Context, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if dl, ok := t.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
			_ = dl.SetWriteDeadline(deadline)
		}
	} else if dl, ok := t.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = dl.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}

	if err := wsutil.WriteClientMessage(t.conn, ws.OpText, payload); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Recv blocks until the next text frame arrives, transparently answering
// pings and skipping other control frames.
func (t *WSTransport) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := t.conn.(interface{ SetReadDeadline(time.Time) error }); ok {
		if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
			_ = dl.SetReadDeadline(deadline)
		} else {
			_ = dl.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
		}
	}

	for {
		hdr, err := t.reader.NextFrame()
		if err != nil {
			return nil, fmt.Errorf("transport: recv: %w", err)
		}

		switch hdr.OpCode {
		case ws.OpClose:
			return nil, fmt.Errorf("transport: recv: %w", io.EOF)
		case ws.OpPing:
			payload := make([]byte, hdr.Length)
			if _, err := io.ReadFull(t.reader, payload); err != nil {
				return nil, fmt.Errorf("transport: recv: reading ping payload: %w", err)
			}
			t.writeMu.Lock()
			werr := wsutil.WriteClientMessage(t.conn, ws.OpPong, payload)
			t.writeMu.Unlock()
			if werr != nil {
				return nil, fmt.Errorf("transport: recv: pong: %w", werr)
			}
			continue
		case ws.OpPong:
			if _, err := io.CopyN(io.Discard, t.reader, int64(hdr.Length)); err != nil {
				return nil, fmt.Errorf("transport: recv: draining pong: %w", err)
			}
			continue
		case ws.OpText, ws.OpBinary:
			payload := make([]byte, hdr.Length)
			if _, err := io.ReadFull(t.reader, payload); err != nil {
				return nil, fmt.Errorf("transport: recv: reading message: %w", err)
			}
			return payload, nil
		default:
			if _, err := io.CopyN(io.Discard, t.reader, int64(hdr.Length)); err != nil {
				return nil, fmt.Errorf("transport: recv: draining frame: %w", err)
			}
		}
	}
}

// Close shuts the underlying connection down. Safe to call more than once:
// a second call observes the connection already closed and treats that as
// success rather than an error.
func (t *WSTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	if err == nil || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("transport: close: %w", err)
}
