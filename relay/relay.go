// Package relay fans decoded data frames out onto NATS subjects. It is a
// pure side channel: publish failures are logged and counted, never
// returned to the caller, so a relay outage can never stall message
// handling (see SPEC_FULL §9).
package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/alexgolec/td-ameritrade-api/envelope"
)

// Metrics is the subset of the metrics package a Relay reports against. It
// is declared here, not imported from internal/metrics, so relay has no
// dependency on the ambient stack's concrete type.
type Metrics interface {
	SetRelayConnected(connected bool)
	IncrementRelayReconnects()
	IncrementRelayPublished()
	RecordRelayError(kind string)
}

// noopMetrics is used when the caller has no metrics sink to offer.
type noopMetrics struct{}

func (noopMetrics) SetRelayConnected(bool)    {}
func (noopMetrics) IncrementRelayReconnects() {}
func (noopMetrics) IncrementRelayPublished()  {}
func (noopMetrics) RecordRelayError(string)   {}

// Config configures the NATS connection and subject layout.
type Config struct {
	URL             string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
}

func (c Config) withDefaults() Config {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "streamer"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1 // unlimited, matches nats.go's documented convention
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	return c
}

// Relay publishes decoded data entries to NATS. A nil *Relay is valid and
// turns Publish into a no-op, so callers that run without STREAM_NATS_URL
// configured don't need to special-case a disabled relay.
type Relay struct {
	conn    *nats.Conn
	cfg     Config
	metrics Metrics
	log     zerolog.Logger

	mu sync.Mutex
}

// Dial connects to NATS and returns a Relay. A connection failure is
// returned to the caller: unlike publish failures, a relay that can never
// connect is a configuration error worth surfacing at startup.
func Dial(cfg Config, metrics Metrics, log zerolog.Logger) (*Relay, error) {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = noopMetrics{}
	}

	r := &Relay{cfg: cfg, metrics: metrics, log: log.With().Str("component", "relay").Logger()}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.ConnectHandler(r.onConnect),
		nats.DisconnectErrHandler(r.onDisconnect),
		nats.ReconnectHandler(r.onReconnect),
		nats.ErrorHandler(r.onError),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("relay: connect to nats: %w", err)
	}
	r.conn = conn
	r.metrics.SetRelayConnected(true)
	return r, nil
}

func (r *Relay) onConnect(conn *nats.Conn) {
	r.log.Info().Str("url", conn.ConnectedUrl()).Msg("connected to relay")
	r.metrics.SetRelayConnected(true)
}

func (r *Relay) onDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		r.log.Warn().Err(err).Msg("disconnected from relay")
	}
	r.metrics.SetRelayConnected(false)
}

func (r *Relay) onReconnect(conn *nats.Conn) {
	r.log.Info().Str("url", conn.ConnectedUrl()).Msg("reconnected to relay")
	r.metrics.SetRelayConnected(true)
	r.metrics.IncrementRelayReconnects()
}

func (r *Relay) onError(_ *nats.Conn, _ *nats.Subscription, err error) {
	r.log.Warn().Err(err).Msg("relay error")
	r.metrics.RecordRelayError("async")
}

// Subject returns the subject a data entry for service is published on.
func (r *Relay) Subject(service string) string {
	return fmt.Sprintf("%s.data.%s", r.cfg.SubjectPrefix, service)
}

// Publish best-effort publishes entry as JSON. Any failure, including a nil
// receiver (relay disabled) or a disconnected connection, is swallowed
// after being logged and counted.
func (r *Relay) Publish(entry envelope.DataEntry) {
	if r == nil || r.conn == nil {
		return
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	subject := r.Subject(entry.Service)
	if err := conn.Publish(subject, mustJSON(entry)); err != nil {
		r.log.Warn().Err(err).Str("subject", subject).Msg("relay publish failed")
		r.metrics.RecordRelayError("publish")
		return
	}
	r.metrics.IncrementRelayPublished()
}

// Close closes the underlying NATS connection. It tolerates a
// nil receiver so callers can defer it unconditionally.
func (r *Relay) Close() {
	if r == nil || r.conn == nil {
		return
	}
	r.conn.Close()
	r.metrics.SetRelayConnected(false)
}

func mustJSON(entry envelope.DataEntry) []byte {
	data, err := json.Marshal(entry)
	if err != nil {
		// entry is always composed of JSON-safe primitives decoded from the
		// wire; a marshal failure here would indicate a logic bug upstream.
		return []byte(`{}`)
	}
	return data
}
