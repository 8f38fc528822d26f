package train

import "fmt"

// State is the state of a Trainer.
//
//	Uninitialized -> Initializing -> RunningEpoch -> {Converged, EpochBudgetExhausted, Aborted}
//
// Initializing is skipped when training continues from existing parameters.
type State int

const (
	Uninitialized State = iota
	Initializing
	RunningEpoch
	Converged
	EpochBudgetExhausted
	Aborted
)

// Terminal reports whether no further epochs can run.
func (s State) Terminal() bool {
	return s == Converged || s == EpochBudgetExhausted || s == Aborted
}

// Success reports whether training finished normally and the parameters are worth keeping.
func (s State) Success() bool {
	return s == Converged || s == EpochBudgetExhausted
}

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case RunningEpoch:
		return "RunningEpoch"
	case Converged:
		return "Converged"
	case EpochBudgetExhausted:
		return "EpochBudgetExhausted"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
