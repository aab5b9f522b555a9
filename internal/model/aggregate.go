package model

import (
	"sort"

	"github.com/google/uuid"
)

// ContractAggregate is the unit of transactional mutation: the contract row together
// with everything the workflow engine may touch under the same per-contract lock.
type ContractAggregate struct {
	Contract     Contract
	Milestones   []Milestone
	Installments []Installment
	Assignments  []TaskAssignment

	// PendingEvents collects audit records appended during a mutation; the store
	// persists them in the same transaction as the state change.
	PendingEvents []ContractEvent
}

// MilestoneByID returns a pointer into the aggregate's milestone slice, or nil.
func (a *ContractAggregate) MilestoneByID(id uuid.UUID) *Milestone {
	for i := range a.Milestones {
		if a.Milestones[i].ID == id {
			return &a.Milestones[i]
		}
	}
	return nil
}

// MilestoneByIndex returns the milestone with the given 1-based order index, or nil.
func (a *ContractAggregate) MilestoneByIndex(orderIndex int) *Milestone {
	for i := range a.Milestones {
		if a.Milestones[i].OrderIndex == orderIndex {
			return &a.Milestones[i]
		}
	}
	return nil
}

// AssignmentByID returns a pointer into the aggregate's assignment slice, or nil.
func (a *ContractAggregate) AssignmentByID(id uuid.UUID) *TaskAssignment {
	for i := range a.Assignments {
		if a.Assignments[i].ID == id {
			return &a.Assignments[i]
		}
	}
	return nil
}

// AssignmentsForMilestone returns pointers to every assignment of a milestone,
// ordered by assignment time.
func (a *ContractAggregate) AssignmentsForMilestone(milestoneID uuid.UUID) []*TaskAssignment {
	var out []*TaskAssignment
	for i := range a.Assignments {
		if a.Assignments[i].MilestoneID == milestoneID {
			out = append(out, &a.Assignments[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out
}

// InstallmentByID returns a pointer into the aggregate's installment slice, or nil.
func (a *ContractAggregate) InstallmentByID(id uuid.UUID) *Installment {
	for i := range a.Installments {
		if a.Installments[i].ID == id {
			return &a.Installments[i]
		}
	}
	return nil
}

// DepositInstallment returns the single DEPOSIT installment, or nil.
func (a *ContractAggregate) DepositInstallment() *Installment {
	for i := range a.Installments {
		if a.Installments[i].Type == InstallmentTypeDeposit {
			return &a.Installments[i]
		}
	}
	return nil
}

// InstallmentForMilestone returns the milestone's installment, or nil when the
// milestone carries no payment.
func (a *ContractAggregate) InstallmentForMilestone(milestoneID uuid.UUID) *Installment {
	for i := range a.Installments {
		if a.Installments[i].MilestoneID != nil && *a.Installments[i].MilestoneID == milestoneID {
			return &a.Installments[i]
		}
	}
	return nil
}

// UnpaidMilestoneInstallments counts MILESTONE installments not yet PAID.
func (a *ContractAggregate) UnpaidMilestoneInstallments() int {
	n := 0
	for i := range a.Installments {
		if a.Installments[i].Type == InstallmentTypeMilestone && a.Installments[i].Status != InstallmentStatusPaid {
			n++
		}
	}
	return n
}
