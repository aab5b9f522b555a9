package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// MarkInstallmentPaid is the payment gateway callback target. Idempotent on the
// installment's paid state: a duplicate callback yields ErrAlreadyPaid, never a second
// application. A DEPOSIT payment drives the signed -> active_pending_assignment
// lifecycle edge; the final MILESTONE payment completes the contract.
func (w *Workflow) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, paidAt time.Time) error {
	contractID, err := w.store.ContractIDForInstallment(ctx, installmentID)
	if err != nil {
		return err
	}
	return w.store.UpdateContract(ctx, contractID, func(agg *model.ContractAggregate) error {
		inst := agg.InstallmentByID(installmentID)
		if inst == nil {
			return fmt.Errorf("%w: installment %s", ErrNotFound, installmentID)
		}
		if inst.Status == model.InstallmentStatusPaid {
			return ErrAlreadyPaid
		}
		now := w.now()
		if paidAt.IsZero() {
			paidAt = now
		}

		if inst.Type == model.InstallmentTypeDeposit {
			if agg.Contract.Status != model.ContractStatusSigned {
				return fmt.Errorf("%w: deposit payable only while signed, status %s", ErrInvalidState, agg.Contract.Status)
			}
			agg.Contract.Status = model.ContractStatusPendingAssignment
			agg.Contract.UpdatedAt = now
			if err := applyDepositPaid(agg, paidAt, now); err != nil {
				return err
			}
			appendEvent(agg, model.SystemActor, "deposit_paid",
				string(model.ContractStatusSigned), string(model.ContractStatusPendingAssignment), nil, now)
			return nil
		}

		from := string(inst.Status)
		inst.Status = model.InstallmentStatusPaid
		inst.PaidAt = &paidAt
		if inst.MilestoneID != nil {
			if m := agg.MilestoneByID(*inst.MilestoneID); m != nil {
				recomputeWorkStatus(agg, m)
			}
		}
		appendEvent(agg, model.SystemActor, "installment_paid",
			from, string(model.InstallmentStatusPaid), nil, now)

		if agg.UnpaidMilestoneInstallments() == 0 &&
			model.CanTransition(agg.Contract.Status, model.ContractStatusCompleted) {
			from := agg.Contract.Status
			agg.Contract.Status = model.ContractStatusCompleted
			agg.Contract.UpdatedAt = now
			appendEvent(agg, model.SystemActor, "all_milestones_paid",
				string(from), string(model.ContractStatusCompleted), nil, now)
		}
		return nil
	})
}

// Installments returns the contract's payment schedule.
func (w *Workflow) Installments(ctx context.Context, contractID uuid.UUID) ([]model.Installment, error) {
	agg, err := w.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return agg.Installments, nil
}
