// Package audit defines the audit event model and the sinks that receive
// login/logout events from the authentication service. Audit writes are
// fire-and-forget: the service logs sink failures but never fails an
// operation because of them.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event is a single audit record. Action/Entity/EntityID identify what
// happened ("LOGIN"/"Session"/<sessionId>); Details carries free-form
// context such as the granted permission set.
type Event struct {
	ID        string         `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenantId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use. A returned error is logged by the caller, never propagated.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Record implements Sink.
func (NoOpSink) Record(context.Context, Event) error { return nil }

// ChannelSink writes events into a buffered channel, mainly for tests.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Record implements Sink. It blocks until the event is buffered or ctx is
// cancelled.
func (s *ChannelSink) Record(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the buffered event stream.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Record implements Sink.
func (s *JSONWriterSink) Record(_ context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}
