package matchmaking

import "testing"

func TestEstimateWaitNotQueued(t *testing.T) {
	// Not in the queue: estimate one poll interval.
	if got := EstimateWaitSeconds(0, 10, 3); got != 3 {
		t.Errorf("EstimateWaitSeconds(0, 10, 3) = %d, want 3", got)
	}
}

func TestEstimateWaitFrontOfQueue(t *testing.T) {
	// First in line pairs on the next pass.
	if got := EstimateWaitSeconds(1, 5, 3); got != 3 {
		t.Errorf("EstimateWaitSeconds(1, 5, 3) = %d, want 3", got)
	}
	// Second in line pairs with the first, same pass.
	if got := EstimateWaitSeconds(2, 5, 3); got != 3 {
		t.Errorf("EstimateWaitSeconds(2, 5, 3) = %d, want 3", got)
	}
}

func TestEstimateWaitDeeperPositions(t *testing.T) {
	// Each pass consumes a pair ahead of you.
	if got := EstimateWaitSeconds(4, 10, 3); got != 6 {
		t.Errorf("EstimateWaitSeconds(4, 10, 3) = %d, want 6", got)
	}
	if got := EstimateWaitSeconds(7, 10, 5); got != 20 {
		t.Errorf("EstimateWaitSeconds(7, 10, 5) = %d, want 20", got)
	}
}

func TestEstimateWaitDefaultsPollInterval(t *testing.T) {
	// Guard against a zero poll interval from config.
	if got := EstimateWaitSeconds(1, 1, 0); got <= 0 {
		t.Errorf("EstimateWaitSeconds with zero poll = %d, want positive", got)
	}
}
