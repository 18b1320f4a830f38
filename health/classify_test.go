package health

import (
	"math"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	for days, want := range map[float64]HealthState{
		0:  StateHealthy,
		9:  StateHealthy,
		14: StateHealthy,
		15: StateAttention,
		30: StateAttention,
		31: StateDormant,
		60: StateDormant,
		61: StateWilted,
		90: StateWilted,
	} {
		if got := Classify(days); got != want {
			t.Errorf("Classify(%v) = %q, want %q", days, got, want)
		}
	}
}

func TestClassifyNeverContacted(t *testing.T) {
	if got := Classify(math.Inf(1)); got != StateWilted {
		t.Fatalf("Classify(+Inf) = %q, want %q", got, StateWilted)
	}
}
