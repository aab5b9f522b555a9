package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractEvent is an append-only audit record of a lifecycle or assignment change.
type ContractEvent struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	Actor      string
	Action     string
	FromStatus string
	ToStatus   string
	Reason     *string
	OccurredAt time.Time
}
