package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
	"github.com/thinhlal/mutrapro-system-sub005/internal/service"
)

func (r *ContractRepository) ContractIDForMilestone(ctx context.Context, milestoneID uuid.UUID) (uuid.UUID, error) {
	return r.lookupContractID(ctx, `SELECT contract_id FROM milestones WHERE id = ?`, "milestone", milestoneID)
}

func (r *ContractRepository) ContractIDForAssignment(ctx context.Context, assignmentID uuid.UUID) (uuid.UUID, error) {
	return r.lookupContractID(ctx, `
		SELECT m.contract_id
		FROM task_assignments a
		JOIN milestones m ON m.id = a.milestone_id
		WHERE a.id = ?`, "assignment", assignmentID)
}

func (r *ContractRepository) ContractIDForInstallment(ctx context.Context, installmentID uuid.UUID) (uuid.UUID, error) {
	return r.lookupContractID(ctx, `SELECT contract_id FROM installments WHERE id = ?`, "installment", installmentID)
}

func (r *ContractRepository) lookupContractID(ctx context.Context, query, what string, id uuid.UUID) (uuid.UUID, error) {
	var contractID uuid.UUID
	if err := r.db.WithContext(ctx).Raw(query, id).Scan(&contractID).Error; err != nil {
		return uuid.Nil, err
	}
	if contractID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s %s", service.ErrNotFound, what, id)
	}
	return contractID, nil
}

func (r *ContractRepository) ListSignedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT id FROM contracts
		WHERE status = ? AND signed_at < ?
		ORDER BY signed_at`, model.ContractStatusSigned, cutoff).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListEvents returns a contract's audit trail, newest first.
func (r *ContractRepository) ListEvents(ctx context.Context, contractID uuid.UUID) ([]model.ContractEvent, error) {
	var events []model.ContractEvent
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, contract_id, actor, action, from_status, to_status, reason, occurred_at
		FROM contract_events
		WHERE contract_id = ?
		ORDER BY occurred_at DESC, id`, contractID).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
