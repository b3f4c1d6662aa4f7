package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	lim := NewLimiter(1, 100, Every(interval))
	defer lim.Close()

	tooshort := 1 * time.Millisecond

	client := "10.0.0.1"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := lim.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	client := "10.0.0.2"
	burst := 10

	interval := 100 * time.Millisecond

	tooshort := 10 * time.Millisecond
	shortest := 1 * time.Millisecond

	expected := []bool{true, true, true, true, true, true, true, true, true, true}
	waits := []time.Duration{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	expected = append(expected, false, true, true, false, false, false)
	waits = append(waits, interval, interval, tooshort, tooshort, shortest, shortest)

	lim := NewLimiter(burst, 100, Every(interval))
	defer lim.Close()
	for i, exp := range expected {
		if got := lim.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterTracksClientsIndependently(t *testing.T) {
	lim := NewLimiter(1, 100, Every(time.Second))
	defer lim.Close()

	if !lim.Check("10.0.0.3") {
		t.Fatal("first request for first client should pass")
	}
	if !lim.Check("10.0.0.4") {
		t.Fatal("first request for second client should pass")
	}
	if lim.Check("10.0.0.3") {
		t.Fatal("second immediate request for first client should be limited")
	}
}
