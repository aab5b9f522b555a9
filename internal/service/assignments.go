package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

type AssignInput struct {
	MilestoneID  uuid.UUID
	TaskType     model.TaskType
	SpecialistID uuid.UUID
	Notes        *string
	Principal    model.Principal
}

// Assign creates a task assignment for a milestone. At most one non-terminal assignment
// may occupy a (milestone, taskType) slot; a replacement requires cancelling first.
func (w *Workflow) Assign(ctx context.Context, input AssignInput) (*model.TaskAssignment, error) {
	if !input.Principal.IsManager() {
		return nil, ErrPermissionDenied
	}
	if input.SpecialistID == uuid.Nil {
		return nil, fmt.Errorf("%w: specialist_id is required", ErrInvalidInput)
	}

	contractID, err := w.store.ContractIDForMilestone(ctx, input.MilestoneID)
	if err != nil {
		return nil, err
	}

	var created *model.TaskAssignment
	err = w.store.UpdateContract(ctx, contractID, func(agg *model.ContractAggregate) error {
		switch agg.Contract.Status {
		case model.ContractStatusPendingAssignment, model.ContractStatusActive:
		default:
			return fmt.Errorf("%w: contract status %s does not allow staffing", ErrInvalidState, agg.Contract.Status)
		}

		m := agg.MilestoneByID(input.MilestoneID)
		if m == nil {
			return fmt.Errorf("%w: milestone %s", ErrNotFound, input.MilestoneID)
		}
		if m.WorkStatus == model.WorkStatusCompleted || m.WorkStatus == model.WorkStatusCancelled {
			return fmt.Errorf("%w: milestone is %s", ErrInvalidState, m.WorkStatus)
		}
		for _, a := range agg.AssignmentsForMilestone(m.ID) {
			if a.TaskType == input.TaskType && a.Active() {
				return fmt.Errorf("%w: slot %s already has an active assignment", ErrInvalidState, input.TaskType)
			}
		}

		now := w.now()
		assignment := model.TaskAssignment{
			ID:           uuid.New(),
			MilestoneID:  m.ID,
			TaskType:     input.TaskType,
			SpecialistID: input.SpecialistID,
			Status:       model.AssignmentStatusAssigned,
			AssignedAt:   now,
			Notes:        input.Notes,
		}
		agg.Assignments = append(agg.Assignments, assignment)
		recomputeWorkStatus(agg, m)
		appendEvent(agg, input.Principal.Actor(), "assign", "", string(model.AssignmentStatusAssigned), nil, now)
		created = &agg.Assignments[len(agg.Assignments)-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// mutateAssignment locks the owning contract, locates the assignment and applies fn,
// then recomputes the milestone projection.
func (w *Workflow) mutateAssignment(
	ctx context.Context,
	assignmentID uuid.UUID,
	fn func(agg *model.ContractAggregate, a *model.TaskAssignment, m *model.Milestone, now time.Time) error,
) error {
	contractID, err := w.store.ContractIDForAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	return w.store.UpdateContract(ctx, contractID, func(agg *model.ContractAggregate) error {
		a := agg.AssignmentByID(assignmentID)
		if a == nil {
			return fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
		}
		m := agg.MilestoneByID(a.MilestoneID)
		if m == nil {
			return fmt.Errorf("%w: milestone %s", ErrNotFound, a.MilestoneID)
		}
		now := w.now()
		if err := fn(agg, a, m, now); err != nil {
			return err
		}
		recomputeWorkStatus(agg, m)
		if m.WorkStatus == model.WorkStatusReadyForPayment {
			markInstallmentDue(agg, m, now)
			recomputeWorkStatus(agg, m)
		}
		return nil
	})
}

// SpecialistAccept records the specialist's acceptance of an assigned task.
func (w *Workflow) SpecialistAccept(ctx context.Context, assignmentID uuid.UUID, p model.Principal) error {
	return w.specialistStep(ctx, assignmentID, p,
		model.AssignmentStatusAssigned, model.AssignmentStatusAcceptedWaiting, "specialist_accept",
		func(a *model.TaskAssignment, now time.Time) {
			responded := now
			a.SpecialistRespondedAt = &responded
		})
}

// SpecialistReady marks the specialist ready to start the accepted task.
func (w *Workflow) SpecialistReady(ctx context.Context, assignmentID uuid.UUID, p model.Principal) error {
	return w.specialistStep(ctx, assignmentID, p,
		model.AssignmentStatusAcceptedWaiting, model.AssignmentStatusReadyToStart, "specialist_ready", nil)
}

func (w *Workflow) specialistStep(
	ctx context.Context,
	assignmentID uuid.UUID,
	p model.Principal,
	from, to model.AssignmentStatus,
	action string,
	apply func(a *model.TaskAssignment, now time.Time),
) error {
	if !p.IsSpecialist() {
		return ErrPermissionDenied
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, _ *model.Milestone, now time.Time) error {
		if a.SpecialistID != p.UserID {
			return ErrPermissionDenied
		}
		if a.Status != from {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, a.Status)
		}
		a.Status = to
		if apply != nil {
			apply(a, now)
		}
		appendEvent(agg, p.Actor(), action, string(from), string(to), nil, now)
		return nil
	})
}

// StartTask begins work on a ready assignment. The contract must already be ACTIVE and
// the preceding milestone finished: milestones run sequentially.
func (w *Workflow) StartTask(ctx context.Context, assignmentID uuid.UUID, p model.Principal) error {
	if !p.IsSpecialist() {
		return ErrPermissionDenied
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, m *model.Milestone, now time.Time) error {
		if a.SpecialistID != p.UserID {
			return ErrPermissionDenied
		}
		if agg.Contract.Status != model.ContractStatusActive {
			return fmt.Errorf("%w: contract status %s", ErrInvalidState, agg.Contract.Status)
		}
		if a.Status != model.AssignmentStatusReadyToStart {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, a.Status)
		}
		if m.OrderIndex > 1 {
			prev := agg.MilestoneByIndex(m.OrderIndex - 1)
			if prev != nil && prev.WorkStatus != model.WorkStatusCompleted {
				return fmt.Errorf("%w: milestone %d not finished", ErrInvalidState, prev.OrderIndex)
			}
		}
		a.Status = model.AssignmentStatusInProgress
		if m.ActualStartAt == nil {
			started := now
			m.ActualStartAt = &started
		}
		appendEvent(agg, p.Actor(), "start_task", string(model.AssignmentStatusReadyToStart), string(model.AssignmentStatusInProgress), nil, now)
		return nil
	})
}

// CompleteTask finishes an in-progress assignment. An open issue must be adjudicated
// first; a task never ends up completed with the issue flag still set.
func (w *Workflow) CompleteTask(ctx context.Context, assignmentID uuid.UUID, p model.Principal) error {
	if !p.IsSpecialist() {
		return ErrPermissionDenied
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, m *model.Milestone, now time.Time) error {
		if a.SpecialistID != p.UserID {
			return ErrPermissionDenied
		}
		if a.Status != model.AssignmentStatusInProgress {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, a.Status)
		}
		if a.HasIssue {
			return fmt.Errorf("%w: open issue must be resolved before completion", ErrInvalidState)
		}
		a.Status = model.AssignmentStatusCompleted
		completedAt := now
		a.CompletedAt = &completedAt
		appendEvent(agg, p.Actor(), "complete_task", string(model.AssignmentStatusInProgress), string(model.AssignmentStatusCompleted), nil, now)

		if milestoneWorkDone(agg, m) && m.ActualEndAt == nil {
			ended := now
			m.ActualEndAt = &ended
		}
		return nil
	})
}

// milestoneWorkDone reports whether every surviving assignment of the milestone is done.
func milestoneWorkDone(agg *model.ContractAggregate, m *model.Milestone) bool {
	total, completed := 0, 0
	for _, a := range agg.AssignmentsForMilestone(m.ID) {
		if a.Status == model.AssignmentStatusCancelled {
			continue
		}
		total++
		if a.Status == model.AssignmentStatusCompleted {
			completed++
		}
	}
	return total > 0 && completed == total
}

// markInstallmentDue flips the milestone's installment PENDING -> DUE once the work is
// ready for payment.
func markInstallmentDue(agg *model.ContractAggregate, m *model.Milestone, now time.Time) {
	inst := agg.InstallmentForMilestone(m.ID)
	if inst == nil || inst.Status != model.InstallmentStatusPending {
		return
	}
	inst.Status = model.InstallmentStatusDue
	due := now
	inst.DueDate = &due
}

// ReportIssue flags an in-progress task as blocked, pending manager adjudication.
func (w *Workflow) ReportIssue(ctx context.Context, assignmentID uuid.UUID, reason string, p model.Principal) error {
	if !p.IsSpecialist() {
		return ErrPermissionDenied
	}
	if reason == "" {
		return fmt.Errorf("%w: issue reason is required", ErrInvalidInput)
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, _ *model.Milestone, now time.Time) error {
		if a.SpecialistID != p.UserID {
			return ErrPermissionDenied
		}
		if a.Status != model.AssignmentStatusInProgress {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, a.Status)
		}
		a.HasIssue = true
		a.IssueReason = &reason
		reportedAt := now
		a.IssueReportedAt = &reportedAt
		appendEvent(agg, p.Actor(), "report_issue", string(a.Status), string(a.Status), &reason, now)
		return nil
	})
}

// ResolveIssue is the manager's "continue working" verdict: clears the flag, status
// stays in_progress.
func (w *Workflow) ResolveIssue(ctx context.Context, assignmentID uuid.UUID, p model.Principal) error {
	if !p.IsManager() {
		return ErrPermissionDenied
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, _ *model.Milestone, now time.Time) error {
		if !a.HasIssue {
			return ErrNoActiveIssue
		}
		reason := a.IssueReason
		clearIssue(a)
		appendEvent(agg, p.Actor(), "resolve_issue", string(a.Status), string(a.Status), reason, now)
		return nil
	})
}

// CancelAssignment is the manager's cancel-and-reassign verdict, allowed from any
// non-terminal assignment status. Always clears an open issue; the milestone reverts to
// WAITING_ASSIGNMENT when no active assignment remains.
func (w *Workflow) CancelAssignment(ctx context.Context, assignmentID uuid.UUID, reason string, p model.Principal) error {
	if !p.IsManager() {
		return ErrPermissionDenied
	}
	return w.mutateAssignment(ctx, assignmentID, func(agg *model.ContractAggregate, a *model.TaskAssignment, _ *model.Milestone, now time.Time) error {
		if !a.Active() {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, a.Status)
		}
		from := a.Status
		a.Status = model.AssignmentStatusCancelled
		clearIssue(a)
		var r *string
		if reason != "" {
			r = &reason
		}
		appendEvent(agg, p.Actor(), "cancel_assignment", string(from), string(model.AssignmentStatusCancelled), r, now)
		return nil
	})
}

func clearIssue(a *model.TaskAssignment) {
	a.HasIssue = false
	a.IssueReason = nil
	a.IssueReportedAt = nil
}
