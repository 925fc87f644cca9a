package mpconsole

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// AuditEventType names a session or navigation change.
type AuditEventType string

const (
	AuditLoginSuccess       AuditEventType = "login_success"
	AuditLoginFailure       AuditEventType = "login_failure"
	AuditLogout             AuditEventType = "logout"
	AuditSessionInvalidated AuditEventType = "session_invalidated"
	AuditHardRedirect       AuditEventType = "hard_redirect"
)

var auditEventTypes = [...]AuditEventType{
	AuditLoginSuccess,
	AuditLoginFailure,
	AuditLogout,
	AuditSessionInvalidated,
	AuditHardRedirect,
}

// index returns the slot used for per-type counters; unknown types share the
// last slot.
func (t AuditEventType) index() int {
	if i := slices.Index(auditEventTypes[:], t); i >= 0 {
		return i
	}
	return len(auditEventTypes)
}

// AuditEvent records one session or navigation change. Tokens and passwords
// are never included.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType AuditEventType    `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Path      string            `json:"path,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to [AuditSink].
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}

// SlogSink logs events through a structured logger. Failures log at Warn,
// everything else at Info.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if !event.Success && event.Error != "" {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event", string(event.EventType)),
		slog.Time("at", event.Timestamp),
	}
	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta."+k, v))
	}
	s.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// FilterSink passes only the listed event types to next.
func FilterSink(next AuditSink, types ...AuditEventType) AuditSink {
	return AuditSinkFunc(func(ctx context.Context, event AuditEvent) {
		if slices.Contains(types, event.EventType) {
			next.Emit(ctx, event)
		}
	})
}
