package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// transition applies a lifecycle edge under the contract lock. apply runs after the
// status change, inside the same transaction.
func (w *Workflow) transition(
	ctx context.Context,
	contractID uuid.UUID,
	to model.ContractStatus,
	action, actor string,
	reason *string,
	apply func(agg *model.ContractAggregate, now time.Time) error,
) error {
	return w.store.UpdateContract(ctx, contractID, func(agg *model.ContractAggregate) error {
		from := agg.Contract.Status
		if !model.CanTransition(from, to) {
			if from.Terminal() {
				return fmt.Errorf("%w: status %s", ErrAlreadyTerminal, from)
			}
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
		}
		now := w.now()
		agg.Contract.Status = to
		agg.Contract.UpdatedAt = now
		if apply != nil {
			if err := apply(agg, now); err != nil {
				return err
			}
		}
		appendEvent(agg, actor, action, string(from), string(to), reason, now)
		return nil
	})
}

// Send moves a drafted contract to the customer for review.
func (w *Workflow) Send(ctx context.Context, contractID uuid.UUID, p model.Principal) error {
	if !p.IsManager() {
		return ErrPermissionDenied
	}
	return w.transition(ctx, contractID, model.ContractStatusSent, "send", p.Actor(), nil, nil)
}

// Approve records the customer's acceptance of the sent contract.
func (w *Workflow) Approve(ctx context.Context, contractID uuid.UUID, p model.Principal) error {
	if !p.IsCustomer() {
		return ErrPermissionDenied
	}
	return w.transition(ctx, contractID, model.ContractStatusApproved, "approve", p.Actor(), nil, nil)
}

// RequestRevision parks the contract in NEED_REVISION, preserving the customer's
// stated reason for audit.
func (w *Workflow) RequestRevision(ctx context.Context, contractID uuid.UUID, reason string, p model.Principal) error {
	if !p.IsCustomer() {
		return ErrPermissionDenied
	}
	if reason == "" {
		return fmt.Errorf("%w: revision reason is required", ErrInvalidInput)
	}
	return w.transition(ctx, contractID, model.ContractStatusNeedRevision, "request_revision", p.Actor(), &reason,
		func(agg *model.ContractAggregate, _ time.Time) error {
			agg.Contract.RevisionReason = &reason
			return nil
		})
}

// ReturnToDraft is the manager's edit after a revision request. The contract always
// goes through a full resend/approve cycle; the revision reason stays on the record.
func (w *Workflow) ReturnToDraft(ctx context.Context, contractID uuid.UUID, p model.Principal) error {
	if !p.IsManager() {
		return ErrPermissionDenied
	}
	return w.transition(ctx, contractID, model.ContractStatusDraft, "return_to_draft", p.Actor(), nil, nil)
}

// Sign records e-signature completion. The OTP verification against the e-sign service
// happens at the HTTP layer, before this transaction.
func (w *Workflow) Sign(ctx context.Context, contractID uuid.UUID, signatureRef string, p model.Principal) error {
	if !p.IsCustomer() {
		return ErrPermissionDenied
	}
	var reason *string
	if signatureRef != "" {
		reason = &signatureRef
	}
	return w.transition(ctx, contractID, model.ContractStatusSigned, "sign", p.Actor(), reason,
		func(agg *model.ContractAggregate, now time.Time) error {
			signedAt := now
			agg.Contract.SignedAt = &signedAt
			return nil
		})
}

// Cancel terminates the contract. Managers may cancel from any non-terminal state;
// customers only while the contract is under review. Active milestones and assignments
// are cancelled in the same transaction, open issues cleared.
func (w *Workflow) Cancel(ctx context.Context, contractID uuid.UUID, reason string, p model.Principal) error {
	var to model.ContractStatus
	switch {
	case p.IsManager():
		to = model.ContractStatusCanceledManager
	case p.IsCustomer():
		to = model.ContractStatusCanceledCustomer
	default:
		return ErrPermissionDenied
	}
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason is required", ErrInvalidInput)
	}
	return w.transition(ctx, contractID, to, "cancel", p.Actor(), &reason,
		func(agg *model.ContractAggregate, now time.Time) error {
			agg.Contract.CancellationReason = &reason
			for i := range agg.Assignments {
				a := &agg.Assignments[i]
				if a.Active() {
					a.Status = model.AssignmentStatusCancelled
					clearIssue(a)
				}
			}
			for i := range agg.Milestones {
				m := &agg.Milestones[i]
				if m.WorkStatus != model.WorkStatusCompleted {
					m.WorkStatus = model.WorkStatusCancelled
				}
			}
			return nil
		})
}

// RecordDepositPaid marks the deposit installment PAID and unlocks assignment staffing.
// Exposed for the payment gateway callback; idempotent on the installment's paid state.
func (w *Workflow) RecordDepositPaid(ctx context.Context, contractID uuid.UUID, paidAt time.Time) error {
	return w.transition(ctx, contractID, model.ContractStatusPendingAssignment, "deposit_paid", model.SystemActor, nil,
		func(agg *model.ContractAggregate, now time.Time) error {
			return applyDepositPaid(agg, paidAt, now)
		})
}

func applyDepositPaid(agg *model.ContractAggregate, paidAt, now time.Time) error {
	deposit := agg.DepositInstallment()
	if deposit == nil {
		return fmt.Errorf("%w: contract has no deposit installment", ErrNotFound)
	}
	if deposit.Status == model.InstallmentStatusPaid {
		return ErrAlreadyPaid
	}
	if paidAt.IsZero() {
		paidAt = now
	}
	deposit.Status = model.InstallmentStatusPaid
	deposit.PaidAt = &paidAt
	for i := range agg.Milestones {
		recomputeWorkStatus(agg, &agg.Milestones[i])
	}
	return nil
}

// ExpireStaleSigned sweeps contracts that were signed but never saw their deposit within
// maxAge. Each contract is re-checked under its own lock; races with a deposit callback
// resolve in favor of whoever commits first.
func (w *Workflow) ExpireStaleSigned(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := w.now().Add(-maxAge)
	ids, err := w.store.ListSignedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list signed contracts: %w", err)
	}

	expired := 0
	for _, id := range ids {
		err := w.store.UpdateContract(ctx, id, func(agg *model.ContractAggregate) error {
			if agg.Contract.Status != model.ContractStatusSigned {
				return nil // already moved on, skip
			}
			if agg.Contract.SignedAt == nil || agg.Contract.SignedAt.After(cutoff) {
				return nil
			}
			now := w.now()
			agg.Contract.Status = model.ContractStatusExpired
			agg.Contract.UpdatedAt = now
			appendEvent(agg, model.SystemActor, "expire", string(model.ContractStatusSigned), string(model.ContractStatusExpired), nil, now)
			expired++
			return nil
		})
		if err != nil {
			return expired, fmt.Errorf("expire contract %s: %w", id, err)
		}
	}
	return expired, nil
}
