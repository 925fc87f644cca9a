package mpconsole

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestAuditDisabledReturnsNilDispatcher(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &countingSink{}, quietLogger())
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), AuditEvent{EventType: "e1"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, quietLogger())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, quietLogger())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditCloseFlushesQueue(t *testing.T) {
	sink := &countingSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 16,
	}, sink, quietLogger())

	for i := 0; i < 10; i++ {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e"})
	}
	dispatcher.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected all 10 events flushed, got %d", got)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: AuditLoginSuccess,
		Username:  "alice",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{EventType: AuditLogout})

	out := buf.String()
	if !strings.Contains(out, `"event_type":"login_success"`) {
		t.Fatalf("expected event type in output, got %s", out)
	}
	if !strings.Contains(out, `"username":"alice"`) {
		t.Fatalf("expected username in output, got %s", out)
	}
	if n := strings.Count(out, "\n"); n != 2 {
		t.Fatalf("expected two lines, got %d", n)
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{}, quietLogger())

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditDroppedCountedPerType(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, quietLogger())
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	ctx := context.Background()
	// one event held by the sink, one in the queue, the rest dropped
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditLoginSuccess})
	deadline := time.Now().Add(2 * time.Second)
	for len(dispatcher.queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("sink never picked up the first event")
		}
		time.Sleep(time.Millisecond)
	}
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditLoginSuccess})
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditHardRedirect})
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditHardRedirect})
	dispatcher.Emit(ctx, AuditEvent{EventType: "custom"})

	byType := dispatcher.DroppedByType()
	if got := dispatcher.Dropped(); got != 3 {
		t.Fatalf("expected 3 drops, got %d", got)
	}
	if byType[AuditHardRedirect] != 2 {
		t.Fatalf("expected 2 hard_redirect drops, got %v", byType)
	}
	if _, ok := byType["custom"]; ok {
		t.Fatalf("unknown types must not appear by name: %v", byType)
	}
}

type panicSink struct {
	countingSink
}

func (s *panicSink) Emit(ctx context.Context, event AuditEvent) {
	if event.EventType == AuditLogout {
		panic("sink failure")
	}
	s.countingSink.Emit(ctx, event)
}

func TestAuditSinkPanicDoesNotStopDispatcher(t *testing.T) {
	sink := &panicSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 8,
	}, sink, quietLogger())

	ctx := context.Background()
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditLogout})
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditLoginSuccess})
	dispatcher.Emit(ctx, AuditEvent{EventType: AuditLoginFailure})
	dispatcher.Close()

	if got := sink.count.Load(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
	if got := dispatcher.SinkPanics(); got != 1 {
		t.Fatalf("expected 1 sink panic, got %d", got)
	}
}

func TestAuditFilterSink(t *testing.T) {
	inner := &countingSink{}
	sink := FilterSink(inner, AuditSessionInvalidated, AuditHardRedirect)

	ctx := context.Background()
	for _, et := range []AuditEventType{AuditLoginSuccess, AuditSessionInvalidated, AuditLogout, AuditHardRedirect} {
		sink.Emit(ctx, AuditEvent{EventType: et})
	}
	if got := inner.count.Load(); got != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", got)
	}
}

func TestAuditSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	sink := NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := context.Background()
	sink.Emit(ctx, AuditEvent{EventType: AuditLoginSuccess, Username: "alice", Success: true})
	sink.Emit(ctx, AuditEvent{
		EventType: AuditLoginFailure,
		Username:  "alice",
		Error:     "invalid_credentials",
	})
	sink.Emit(ctx, AuditEvent{
		EventType: AuditHardRedirect,
		Path:      "/login",
		Success:   true,
		Metadata:  map[string]string{"from": "/logs"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "event=login_success") {
		t.Fatalf("unexpected success line %q", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "error=invalid_credentials") {
		t.Fatalf("unexpected failure line %q", lines[1])
	}
	if !strings.Contains(lines[2], "meta.from=/logs") {
		t.Fatalf("expected metadata in %q", lines[2])
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
