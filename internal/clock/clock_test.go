package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("expected %v, got %v", start, got)
	}

	c.Advance(time.Second)
	if got := c.Now(); !got.Equal(start.Add(time.Second)) {
		t.Errorf("expected %v, got %v", start.Add(time.Second), got)
	}
}

func TestFakeStep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)
	c.SetStep(10 * time.Millisecond)

	first := c.Now()
	second := c.Now()
	if second.Sub(first) != 10*time.Millisecond {
		t.Errorf("expected 10ms step, got %s", second.Sub(first))
	}
}
