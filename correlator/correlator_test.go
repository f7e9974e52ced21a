package correlator

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTransport replays a fixed sequence of frames and records nothing
// about Send calls, which correlator tests don't exercise.
type fakeTransport struct {
	frames [][]byte
	idx    int
	closed bool
}

func (f *fakeTransport) Send(ctx context.Context, payload []byte) error { return nil }

func (f *fakeTransport) Recv(ctx context.Context) ([]byte, error) {
	if f.idx >= len(f.frames) {
		return nil, errors.New("fakeTransport: exhausted")
	}
	frame := f.frames[f.idx]
	f.idx++
	return frame, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

// fakeMetrics records every call so tests can assert on what the
// correlator actually reports, rather than just that it compiles against
// the Metrics interface.
type fakeMetrics struct {
	messagesReceived int
	backlogDepths    []int
	responseErrors   []string
}

func (f *fakeMetrics) IncrementMessagesReceived() { f.messagesReceived++ }
func (f *fakeMetrics) SetBacklogDepth(n int)      { f.backlogDepths = append(f.backlogDepths, n) }
func (f *fakeMetrics) RecordResponseError(kind string) {
	f.responseErrors = append(f.responseErrors, kind)
}

func TestNextID_Monotone(t *testing.T) {
	c := New(&fakeTransport{})
	for i := uint64(0); i < 5; i++ {
		if got := c.NextID(); got != i {
			t.Fatalf("NextID() = %d, want %d", got, i)
		}
	}
}

func TestAwaitResponse_Success(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"0","timestamp":1,"content":{"code":0,"msg":"ok"}}]}`),
	}}
	c := New(tr)
	content, err := c.AwaitResponse(context.Background(), 0)
	if err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if content.Code != 0 {
		t.Errorf("unexpected content: %+v", content)
	}
}

func TestAwaitResponse_BuffersDataFrames(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"data":[{"service":"QUOTE","command":"SUBS","timestamp":1,"content":[{"key":"MSFT"}]}]}`),
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"0","timestamp":1,"content":{"code":0,"msg":"ok"}}]}`),
	}}
	c := New(tr)
	if _, err := c.AwaitResponse(context.Background(), 0); err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if !c.HasBacklog() {
		t.Fatal("expected data frame to be buffered")
	}
	entry, ok := c.PopBacklog()
	if !ok || entry.Service != "QUOTE" {
		t.Errorf("unexpected backlog entry: %+v, ok=%v", entry, ok)
	}
	if c.HasBacklog() {
		t.Error("expected backlog to be empty after pop")
	}
}

func TestAwaitResponse_UnexpectedCode(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"0","timestamp":1,"content":{"code":21,"msg":"not logged in"}}]}`),
	}}
	c := New(tr)
	_, err := c.AwaitResponse(context.Background(), 0)
	var codeErr *UnexpectedResponseCode
	if !errors.As(err, &codeErr) {
		t.Fatalf("expected *UnexpectedResponseCode, got %v (%T)", err, err)
	}
	if codeErr.Code != 21 {
		t.Errorf("unexpected code: %d", codeErr.Code)
	}
}

func TestAwaitResponse_WrongRequestID(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"7","timestamp":1,"content":{"code":0,"msg":"ok"}}]}`),
	}}
	c := New(tr)
	_, err := c.AwaitResponse(context.Background(), 0)
	var unexpected *UnexpectedResponse
	if !errors.As(err, &unexpected) {
		t.Fatalf("expected *UnexpectedResponse, got %v (%T)", err, err)
	}
}

func TestAwaitResponse_Malformed(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{[]byte(`{}`)}}
	c := New(tr)
	_, err := c.AwaitResponse(context.Background(), 0)
	var unexpected *UnexpectedResponse
	if !errors.As(err, &unexpected) {
		t.Fatalf("expected *UnexpectedResponse, got %v (%T)", err, err)
	}
}

func TestAwaitResponse_ReportsMetrics(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"data":[{"service":"QUOTE","command":"SUBS","timestamp":1,"content":[{"key":"MSFT"}]}]}`),
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"0","timestamp":1,"content":{"code":0,"msg":"ok"}}]}`),
	}}
	m := &fakeMetrics{}
	c := NewWithMetrics(tr, m)
	if _, err := c.AwaitResponse(context.Background(), 0); err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if m.messagesReceived != 1 {
		t.Errorf("messagesReceived = %d, want 1", m.messagesReceived)
	}
	if len(m.backlogDepths) != 1 || m.backlogDepths[0] != 1 {
		t.Errorf("backlogDepths = %v, want [1]", m.backlogDepths)
	}

	c.PopBacklog()
	if len(m.backlogDepths) != 2 || m.backlogDepths[1] != 0 {
		t.Errorf("backlogDepths after pop = %v, want [1 0]", m.backlogDepths)
	}
}

func TestAwaitResponse_ReportsResponseErrorKind(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{
		[]byte(`{"response":[{"service":"ADMIN","command":"LOGIN","requestid":"0","timestamp":1,"content":{"code":21,"msg":"not logged in"}}]}`),
	}}
	m := &fakeMetrics{}
	c := NewWithMetrics(tr, m)
	if _, err := c.AwaitResponse(context.Background(), 0); err == nil {
		t.Fatal("expected an error")
	}
	if len(m.responseErrors) != 1 || m.responseErrors[0] != "code" {
		t.Errorf("responseErrors = %v, want [code]", m.responseErrors)
	}
}

func TestAwaitResponse_InvalidJSONIsUnexpectedResponse(t *testing.T) {
	tr := &fakeTransport{frames: [][]byte{[]byte(`not json`)}}
	c := New(tr)
	_, err := c.AwaitResponse(context.Background(), 0)
	var unexpected *UnexpectedResponse
	if !errors.As(err, &unexpected) {
		t.Fatalf("expected *UnexpectedResponse, got %v (%T)", err, err)
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		t.Fatal("invalid JSON is a protocol error, not a transport failure")
	}
}

func TestAwaitResponse_ContextCancelled(t *testing.T) {
	tr := &fakeTransport{}
	c := New(tr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	<-ctx.Done()

	_, err := c.AwaitResponse(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if !tr.closed {
		t.Error("expected transport to be closed on cancellation")
	}
}
