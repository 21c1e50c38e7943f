package workflows

import "fmt"

// ProjectStatus is the lifecycle status of a restoration project
type ProjectStatus string

const (
	StatusPending           ProjectStatus = "pending"
	StatusApproved          ProjectStatus = "approved"
	StatusCreditsCalculated ProjectStatus = "credits_calculated"
	StatusCreditsMinted     ProjectStatus = "credits_minted"
	StatusRejected          ProjectStatus = "rejected"
)

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCreditsCalculated, StatusCreditsMinted, StatusRejected:
		return true
	}
	return false
}

// TransitionError is returned when a status transition is not in the table
type TransitionError struct {
	From ProjectStatus
	To   ProjectStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// StateMachine enforces project status transitions
type StateMachine struct {
	allowedTransitions map[ProjectStatus][]ProjectStatus
}

// NewStateMachine creates a new state machine with allowed transitions.
// Recalculation before a mint re-enters credits_calculated; only the
// transition into credits_minted is terminal. An approved project may mint
// directly: the admin can accept the estimated figure without running the
// calculation first.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[ProjectStatus][]ProjectStatus{
			StatusPending:           {StatusApproved, StatusRejected, StatusCreditsCalculated},
			StatusApproved:          {StatusCreditsCalculated, StatusCreditsMinted, StatusRejected},
			StatusCreditsCalculated: {StatusCreditsMinted, StatusCreditsCalculated},
			StatusCreditsMinted:     {},
			StatusRejected:          {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to ProjectStatus) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition validates the move and returns a typed error if it is not allowed
func (sm *StateMachine) Transition(from, to ProjectStatus) error {
	if !sm.CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from ProjectStatus) []ProjectStatus {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []ProjectStatus{}
	}
	return allowed
}
