package generation

import (
	"time"

	"travelhub/internal/trip"
)

// Outcome is the result of one attempt.
type Outcome string

const (
	Success          Outcome = "success"
	TransientFailure Outcome = "transient_failure"
	TerminalFailure  Outcome = "terminal_failure"
)

// Attempt is one call to one tier.
type Attempt struct {
	Tier      ModelTier     `json:"tier"`
	TierIndex int           `json:"tierIndex"`
	Index     int           `json:"attemptIndex"`
	Outcome   Outcome       `json:"outcome"`
	Kind      ErrorKind     `json:"errorKind,omitempty"`
	Elapsed   time.Duration `json:"elapsedNs"`
}

// Trace is the ordered list of attempts made by one invocation.
type Trace []Attempt

// ForTier returns the attempts made against tier index i.
func (t Trace) ForTier(i int) Trace {
	var out Trace
	for _, a := range t {
		if a.TierIndex == i {
			out = append(out, a)
		}
	}
	return out
}

// Last returns the final attempt, if any.
func (t Trace) Last() (Attempt, bool) {
	if len(t) == 0 {
		return Attempt{}, false
	}
	return t[len(t)-1], true
}

// GenerationResult is a finished itinerary.
type GenerationResult struct {
	Content   string
	Tier      ModelTier
	TierIndex int
	ToolCalls int
	Params    trip.TripParameters
}
