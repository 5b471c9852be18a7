package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Drop on backpressure so an absent/slow UI cannot block worker execution.
	}
}

type PlainSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	line := formatPlain(e)
	if line == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, line)
}

func formatPlain(e Event) string {
	ts := e.At.Format("15:04:05")
	switch e.Type {
	case EventRunStarted:
		return fmt.Sprintf("[%s] run %s started", ts, e.RunID)
	case EventRunWarning:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = strings.TrimSpace(e.Error)
		}
		return fmt.Sprintf("[%s] warning: %s", ts, msg)
	case EventRunFinished:
		line := fmt.Sprintf("[%s] run %s finished status=%s findings=%d duration=%dms", ts, e.RunID, e.Status, e.FindingCount, e.DurationMS)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	case EventTargetStarted:
		return fmt.Sprintf("[%s] target %s started", ts, e.Target)
	case EventTargetProgress:
		return fmt.Sprintf("[%s] target %s scanning duration=%dms", ts, e.Target, e.DurationMS)
	case EventTargetFileScanned:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			return fmt.Sprintf("[%s] target %s: file scanned findings=%d", ts, e.Target, e.FindingCount)
		}
		return fmt.Sprintf("[%s] target %s: scanned %s findings=%d", ts, e.Target, msg, e.FindingCount)
	case EventTargetFinished:
		line := fmt.Sprintf("[%s] target %s finished status=%s findings=%d duration=%dms", ts, e.Target, e.Status, e.FindingCount, e.DurationMS)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	default:
		return ""
	}
}
