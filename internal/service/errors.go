package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("operation not valid for current status")
	ErrAlreadyTerminal  = errors.New("contract already in a terminal state")
	ErrAlreadyPaid      = errors.New("installment already paid")
	ErrNoActiveIssue    = errors.New("no active issue on assignment")
	ErrGateBlocked      = errors.New("start work blocked")
)

// GateBlockedError carries the milestone that prevents the start-work transition.
type GateBlockedError struct {
	MilestoneID uuid.UUID
}

func (e *GateBlockedError) Error() string {
	return fmt.Sprintf("start work blocked by milestone %s", e.MilestoneID)
}

func (e *GateBlockedError) Unwrap() error { return ErrGateBlocked }
