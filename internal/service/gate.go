package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// GateResult is the start-work policy verdict. Only milestone 1 can block; unstaffed
// later milestones surface as warnings because their work cannot begin yet anyway.
type GateResult struct {
	Allowed             bool
	BlockingMilestoneID uuid.UUID
	Warnings            []uuid.UUID
}

// EvaluateStartGate applies the start-work policy to an aggregate snapshot.
func EvaluateStartGate(agg *model.ContractAggregate) GateResult {
	result := GateResult{Allowed: true}
	for i := range agg.Milestones {
		m := &agg.Milestones[i]
		engaged := false
		for _, a := range agg.AssignmentsForMilestone(m.ID) {
			if a.Status != model.AssignmentStatusCancelled && a.Engaged() {
				engaged = true
				break
			}
		}
		if engaged {
			continue
		}
		if m.OrderIndex == 1 {
			result.Allowed = false
			result.BlockingMilestoneID = m.ID
		} else {
			result.Warnings = append(result.Warnings, m.ID)
		}
	}
	return result
}

// CanStartWork evaluates the gate without mutating anything.
func (w *Workflow) CanStartWork(ctx context.Context, contractID uuid.UUID) (GateResult, error) {
	agg, err := w.store.GetContract(ctx, contractID)
	if err != nil {
		return GateResult{}, err
	}
	return EvaluateStartGate(agg), nil
}

// StartWork moves the contract into ACTIVE and starts its SLA clock: the expected start
// date is pinned exactly once, planned milestone dates are materialized from their
// relative offsets, and milestone 1 begins immediately.
func (w *Workflow) StartWork(ctx context.Context, contractID uuid.UUID, p model.Principal) error {
	if !p.IsManager() {
		return ErrPermissionDenied
	}
	return w.store.UpdateContract(ctx, contractID, func(agg *model.ContractAggregate) error {
		if agg.Contract.Status != model.ContractStatusPendingAssignment {
			return fmt.Errorf("%w: status %s", ErrInvalidState, agg.Contract.Status)
		}
		gate := EvaluateStartGate(agg)
		if !gate.Allowed {
			return &GateBlockedError{MilestoneID: gate.BlockingMilestoneID}
		}

		now := w.now()
		agg.Contract.Status = model.ContractStatusActive
		agg.Contract.UpdatedAt = now
		if agg.Contract.ExpectedStartDate == nil {
			anchor := now
			agg.Contract.ExpectedStartDate = &anchor
		}
		materializePlannedDates(agg.Milestones, *agg.Contract.ExpectedStartDate)

		if first := agg.MilestoneByIndex(1); first != nil && first.ActualStartAt == nil {
			started := now
			first.ActualStartAt = &started
		}
		for i := range agg.Milestones {
			recomputeWorkStatus(agg, &agg.Milestones[i])
		}
		appendEvent(agg, p.Actor(), "start_work",
			string(model.ContractStatusPendingAssignment), string(model.ContractStatusActive), nil, now)
		return nil
	})
}

func materializePlannedDates(milestones []model.Milestone, anchor time.Time) {
	for i := range milestones {
		m := &milestones[i]
		start := anchor.AddDate(0, 0, m.StartOffsetDays)
		due := anchor.AddDate(0, 0, m.DueOffsetDays)
		m.PlannedStartAt = &start
		m.PlannedDueDate = &due
	}
}
