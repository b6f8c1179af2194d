package models

import "time"

// Swap saga steps, executed strictly in order. A return workflow starts
// directly at the cancel step.
const (
	SwapStepSwapMapping   = 1
	SwapStepCreateSkipass = 2
	SwapStepCancelSkipass = 3
)

type SwapStepStatus string

const (
	SwapStepPending   SwapStepStatus = "PENDING"
	SwapStepCompleted SwapStepStatus = "COMPLETED"
	SwapStepFailed    SwapStepStatus = "FAILED"
	SwapStepSkipped   SwapStepStatus = "SKIPPED"
)

// SwapSaga is the persisted progress of one lifepass swap/return. Step is
// the next step to run; a failed step keeps the saga parked there until an
// operator retries it.
type SwapSaga struct {
	ID          string
	OrderID     string
	ResortID    string
	OldPassID   string
	NewPassID   string
	ReturnOnly  bool
	Step        int
	StepStatus  SwapStepStatus
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Done reports whether every step of the saga has completed.
func (s *SwapSaga) Done() bool {
	return s.Step > SwapStepCancelSkipass
}
