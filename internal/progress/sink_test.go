package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestChannelSinkEmitAddsTimestampAndForwardsEvent(t *testing.T) {
	ch := make(chan Event, 1)
	sink := NewChannelSink(ch)

	sink.Emit(Event{
		Type:  EventRunStarted,
		RunID: "run-1",
	})

	select {
	case got := <-ch:
		if got.Type != EventRunStarted {
			t.Fatalf("expected type %q, got %q", EventRunStarted, got.Type)
		}
		if got.RunID != "run-1" {
			t.Fatalf("expected run id run-1, got %q", got.RunID)
		}
		if got.At.IsZero() {
			t.Fatal("expected timestamp to be auto-populated")
		}
		if got.At.Location() != time.UTC {
			t.Fatalf("expected UTC timestamp location, got %q", got.At.Location())
		}
	default:
		t.Fatal("expected event to be sent to channel")
	}
}

func TestChannelSinkEmitDropsOnBackpressureWithoutBlocking(t *testing.T) {
	const ciTimeout = 5 * time.Second

	ch := make(chan Event, 1)
	ch <- Event{Type: EventTargetStarted, Target: "skill-bundle"}
	sink := NewChannelSink(ch)

	done := make(chan struct{})
	go func() {
		sink.Emit(Event{Type: EventTargetStarted, Target: "extension-bundle"})
		close(done)
	}()

	select {
	case <-done:
		// Expected: emit should return immediately and drop when channel is full.
	case <-time.After(ciTimeout):
		t.Fatal("expected Emit to return without blocking on full channel")
	}

	select {
	case got := <-ch:
		if got.Target != "skill-bundle" {
			t.Fatalf("expected original buffered event to remain, got %q", got.Target)
		}
	case <-time.After(ciTimeout):
		t.Fatal("expected original buffered event to remain available")
	}

	select {
	case extra := <-ch:
		t.Fatalf("expected dropped event, but received %+v", extra)
	default:
	}
}

func TestPlainSinkEmitFormatsAndSkipsUnknownEvents(t *testing.T) {
	var out bytes.Buffer
	sink := NewPlainSink(&out)

	sink.Emit(Event{
		Type:  EventRunWarning,
		Error: " warning from fallback ",
	})
	sink.Emit(Event{
		Type:         EventTargetFinished,
		At:           time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC),
		Target:       "hardcoded_credentials",
		Status:       "done",
		FindingCount: 2,
		DurationMS:   17,
		Error:        " permission denied ",
	})
	sink.Emit(Event{Type: EventType("unknown")})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two formatted lines, got %d: %q", len(lines), out.String())
	}

	if !strings.Contains(lines[0], "warning: warning from fallback") {
		t.Fatalf("expected warning fallback message in first line, got %q", lines[0])
	}

	const wantSecond = "[03:04:05] target hardcoded_credentials finished status=done findings=2 duration=17ms error=permission denied"
	if lines[1] != wantSecond {
		t.Fatalf("unexpected target-finished format:\nwant: %q\n got: %q", wantSecond, lines[1])
	}
}

func TestPlainSinkEmitFormatsFileScannedWithAndWithoutMessage(t *testing.T) {
	var out bytes.Buffer
	sink := NewPlainSink(&out)

	sink.Emit(Event{
		Type:         EventTargetFileScanned,
		At:           time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC),
		Target:       "skill-bundle",
		Message:      "scripts/run.py",
		FindingCount: 1,
	})
	sink.Emit(Event{
		Type:   EventTargetProgress,
		At:     time.Date(2025, time.January, 2, 3, 4, 6, 0, time.UTC),
		Target: "skill-bundle",
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two formatted lines, got %d: %q", len(lines), out.String())
	}

	const wantFirst = "[03:04:05] target skill-bundle: scanned scripts/run.py findings=1"
	if lines[0] != wantFirst {
		t.Fatalf("unexpected file-scanned format:\nwant: %q\n got: %q", wantFirst, lines[0])
	}
	if !strings.Contains(lines[1], "target skill-bundle scanning duration=") {
		t.Fatalf("unexpected target-progress format: %q", lines[1])
	}
}
