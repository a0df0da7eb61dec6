package sockline

import (
	"testing"
	"time"
)

func TestManualClockAdvanceFiresInDueOrder(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	var fired []string
	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "late") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "early") })

	clock.Advance(3 * time.Second)
	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("expected [early late], got %v", fired)
	}
}

func TestManualClockStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	var fired bool
	timer := clock.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatalf("Stop on a pending timer must report true")
	}
	clock.Advance(2 * time.Second)
	if fired {
		t.Fatalf("stopped timer must not fire")
	}
	if timer.Stop() {
		t.Fatalf("Stop on a stopped timer must report false")
	}
}

func TestManualClockNowMovesWithAdvance(t *testing.T) {
	start := time.Unix(100, 0)
	clock := NewManualClock(start)
	clock.Advance(90 * time.Second)
	if got := clock.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("expected %v, got %v", start.Add(90*time.Second), got)
	}
}

func TestManualClockCallbackSchedulesFollowUp(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	var fired int
	clock.AfterFunc(time.Second, func() {
		fired++
		clock.AfterFunc(time.Second, func() { fired++ })
	})

	// Both the timer and the follow-up it scheduled are due within the
	// advanced span.
	clock.Advance(2 * time.Second)
	if fired != 2 {
		t.Fatalf("expected 2 firings, got %d", fired)
	}
}
