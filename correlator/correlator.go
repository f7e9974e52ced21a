// Package correlator assigns request ids and matches them against the
// response frames the gateway sends back, while buffering any data frames
// that arrive interleaved on the wire so the dispatcher can see them later
// in arrival order.
package correlator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alexgolec/td-ameritrade-api/envelope"
	"github.com/alexgolec/td-ameritrade-api/transport"
)

// UnexpectedResponseCode is returned when a response arrives for the
// expected request id but carries a non-zero content code.
type UnexpectedResponseCode struct {
	Code int
	Msg  string
}

func (e *UnexpectedResponseCode) Error() string {
	return fmt.Sprintf("correlator: response code %d: %s", e.Code, e.Msg)
}

// UnexpectedResponse is returned for any response/malformed frame the
// correlator cannot reconcile with a pending await.
type UnexpectedResponse struct {
	Reason string
}

func (e *UnexpectedResponse) Error() string {
	return fmt.Sprintf("correlator: unexpected response: %s", e.Reason)
}

// TransportError wraps a failure from the underlying transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("correlator: transport error: %s", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Metrics is the subset of the metrics package a Correlator reports
// against. It is declared here, not imported from internal/metrics, so
// correlator has no dependency on the ambient stack's concrete type.
type Metrics interface {
	IncrementMessagesReceived()
	SetBacklogDepth(n int)
	RecordResponseError(kind string)
}

// noopMetrics is used when the caller has no metrics sink to offer.
type noopMetrics struct{}

func (noopMetrics) IncrementMessagesReceived() {}
func (noopMetrics) SetBacklogDepth(int)        {}
func (noopMetrics) RecordResponseError(string) {}

// Correlator owns request-id assignment and the single read path shared by
// AwaitResponse and HandleMessage. It is not safe for concurrent use; the
// session model is single-threaded cooperative (see SPEC_FULL §5).
type Correlator struct {
	counter uint64
	tr      transport.Transport
	metrics Metrics

	mu      sync.Mutex
	backlog []envelope.DataEntry
}

// New creates a Correlator bound to tr, with the request counter starting
// at 0 (the next id returned by NextID will be 0). Metrics are a no-op;
// use NewWithMetrics to report against a real sink.
func New(tr transport.Transport) *Correlator {
	return NewWithMetrics(tr, nil)
}

// NewWithMetrics creates a Correlator bound to tr that reports backlog
// depth and response-error counts to metrics. A nil metrics is treated as
// a no-op sink.
func NewWithMetrics(tr transport.Transport, metrics Metrics) *Correlator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Correlator{tr: tr, metrics: metrics}
}

// NextID returns the next request id and advances the counter. Ids are
// strictly monotone for the lifetime of the Correlator.
func (c *Correlator) NextID() uint64 {
	return atomic.AddUint64(&c.counter, 1) - 1
}

// PopBacklog removes and returns the oldest buffered data frame, if any.
func (c *Correlator) PopBacklog() (envelope.DataEntry, bool) {
	c.mu.Lock()
	if len(c.backlog) == 0 {
		c.mu.Unlock()
		return envelope.DataEntry{}, false
	}
	entry := c.backlog[0]
	c.backlog = c.backlog[1:]
	depth := len(c.backlog)
	c.mu.Unlock()
	c.metrics.SetBacklogDepth(depth)
	return entry, true
}

// HasBacklog reports whether any buffered data frames remain.
func (c *Correlator) HasBacklog() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.backlog) > 0
}

func (c *Correlator) pushBacklog(entries []envelope.DataEntry) {
	c.mu.Lock()
	c.backlog = append(c.backlog, entries...)
	depth := len(c.backlog)
	c.mu.Unlock()
	c.metrics.SetBacklogDepth(depth)
}

// AwaitResponse reads frames from the transport until it finds the response
// matching expectedID, buffering any data frames it sees along the way and
// discarding notify frames. On context cancellation the transport is closed
// so no dangling correlation state survives the abort.
func (c *Correlator) AwaitResponse(ctx context.Context, expectedID uint64) (envelope.ResponseContent, error) {
	for {
		select {
		case <-ctx.Done():
			_ = c.tr.Close()
			return envelope.ResponseContent{}, ctx.Err()
		default:
		}

		raw, err := c.tr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = c.tr.Close()
				return envelope.ResponseContent{}, ctx.Err()
			}
			return envelope.ResponseContent{}, &TransportError{Err: err}
		}

		frame, err := envelope.Classify(raw)
		if err != nil {
			c.metrics.RecordResponseError("malformed")
			return envelope.ResponseContent{}, &UnexpectedResponse{Reason: fmt.Sprintf("malformed frame: %s", err)}
		}

		switch frame.Kind {
		case envelope.KindData:
			c.metrics.IncrementMessagesReceived()
			c.pushBacklog(frame.Data)
			continue
		case envelope.KindNotify:
			continue
		case envelope.KindResponse:
			if len(frame.Response) == 0 {
				c.metrics.RecordResponseError("empty")
				return envelope.ResponseContent{}, &UnexpectedResponse{Reason: "empty response frame"}
			}
			entry := frame.Response[0]
			gotID, convErr := parseRequestID(entry.RequestID)
			if convErr != nil || gotID != expectedID {
				c.metrics.RecordResponseError("unexpected_id")
				return envelope.ResponseContent{}, &UnexpectedResponse{
					Reason: fmt.Sprintf("unexpected requestid: %s", entry.RequestID),
				}
			}
			if entry.Content.Code != 0 {
				c.metrics.RecordResponseError("code")
				return envelope.ResponseContent{}, &UnexpectedResponseCode{
					Code: entry.Content.Code,
					Msg:  entry.Content.Msg,
				}
			}
			return entry.Content, nil
		default: // envelope.KindMalformed
			c.metrics.RecordResponseError("malformed")
			return envelope.ResponseContent{}, &UnexpectedResponse{Reason: "malformed frame"}
		}
	}
}

func parseRequestID(s string) (uint64, error) {
	var id uint64
	_, err := fmt.Sscanf(s, "%d", &id)
	return id, err
}
