package watching

import (
	"testing"
	"time"
)

func event(path string) Event {
	return Event{Path: path, Kind: FileModified, Timestamp: time.Now()}
}

func TestDebouncer_BurstEmitsExactlyOneFlush(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Observe(event("models/user.py"))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case f := <-d.Flushes():
		if f.Events != 10 {
			t.Errorf("expected flush to cover 10 events, got %d", f.Events)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected a flush after the quiet period")
	}

	// No second flush for the same group
	select {
	case <-d.Flushes():
		t.Fatal("unexpected second flush for the same burst")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_SlidingWindowResetsOnEachEvent(t *testing.T) {
	d := NewDebouncer(80 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	d.Observe(event("models/user.py"))
	time.Sleep(50 * time.Millisecond)
	// Still inside the quiet period; this must reset the timer
	d.Observe(event("models/user.py"))

	select {
	case <-d.Flushes():
		elapsed := time.Since(start)
		// The flush must fire only after the SECOND event's quiet period,
		// i.e. no earlier than ~130ms after the first event.
		if elapsed < 110*time.Millisecond {
			t.Errorf("flush fired at %v, before the window slid", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a flush")
	}
}

func TestDebouncer_SeparateBurstsSeparateFlushes(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Observe(event("models/user.py"))
	select {
	case <-d.Flushes():
	case <-time.After(time.Second):
		t.Fatal("expected first flush")
	}

	d.Observe(event("models/chat.py"))
	select {
	case f := <-d.Flushes():
		if f.Events != 1 {
			t.Errorf("expected second flush to cover 1 event, got %d", f.Events)
		}
	case <-time.After(time.Second):
		t.Fatal("expected second flush")
	}
}

func TestDebouncer_NoFlushAfterStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Observe(event("models/user.py"))
	d.Stop()

	select {
	case <-d.Flushes():
		t.Fatal("flush emitted after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}
