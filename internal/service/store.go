package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// Store is the persistence contract of the workflow engine. UpdateContract must apply
// the mutation atomically under a per-contract lock: concurrent mutations of the same
// contract serialize, different contracts proceed independently.
type Store interface {
	CreateContract(ctx context.Context, agg *model.ContractAggregate) error
	GetContract(ctx context.Context, contractID uuid.UUID) (*model.ContractAggregate, error)
	UpdateContract(ctx context.Context, contractID uuid.UUID, mutate func(agg *model.ContractAggregate) error) error

	// Lock routing: milestone-, assignment- and installment-addressed operations
	// still lock their owning contract.
	ContractIDForMilestone(ctx context.Context, milestoneID uuid.UUID) (uuid.UUID, error)
	ContractIDForAssignment(ctx context.Context, assignmentID uuid.UUID) (uuid.UUID, error)
	ContractIDForInstallment(ctx context.Context, installmentID uuid.UUID) (uuid.UUID, error)

	// ListSignedBefore returns contracts still SIGNED whose signature predates the
	// cutoff; feeds the expiry sweep.
	ListSignedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// ListEvents returns a contract's audit trail, newest first.
	ListEvents(ctx context.Context, contractID uuid.UUID) ([]model.ContractEvent, error)
}
