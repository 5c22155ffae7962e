package analysis

import (
	"go.uber.org/zap"
)

// State is a step of one analysis
type State string

const (
	StateIdle           State = "idle"
	StateFingerprinting State = "fingerprinting"
	StateCacheLookup    State = "cache_lookup"
	StateCacheHit       State = "cache_hit"
	StateMapping        State = "mapping"
	StateReasoning      State = "reasoning"
	StateDeriving       State = "deriving"
	StateCaching        State = "caching"
	StateDone           State = "done"
	StateError          State = "error"
)

// run tracks the state of a single analysis and logs each transition
type run struct {
	state  State
	logger *zap.Logger
}

func newRun(logger *zap.Logger, fields ...zap.Field) *run {
	return &run{state: StateIdle, logger: logger.With(fields...)}
}

func (r *run) enter(next State) {
	r.logger.Debug("analysis state",
		zap.String("from", string(r.state)),
		zap.String("to", string(next)))
	r.state = next
}

// fail moves to the error state and returns err unchanged
func (r *run) fail(err error) error {
	r.logger.Debug("analysis state",
		zap.String("from", string(r.state)),
		zap.String("to", string(StateError)),
		zap.Error(err))
	r.state = StateError
	return err
}
