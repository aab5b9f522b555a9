package service

import (
	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// recomputeWorkStatus is the single source of a milestone's work status, derived from
// its assignments, its installment and the contract status. Called after every
// assignment or payment change, inside the same transaction.
func recomputeWorkStatus(agg *model.ContractAggregate, m *model.Milestone) {
	if m.WorkStatus == model.WorkStatusCancelled {
		return
	}

	inst := agg.InstallmentForMilestone(m.ID)
	if inst != nil && inst.Status == model.InstallmentStatusPaid {
		m.WorkStatus = model.WorkStatusCompleted
		return
	}

	// Until the deposit clears, milestones are only planned.
	switch agg.Contract.Status {
	case model.ContractStatusDraft, model.ContractStatusSent, model.ContractStatusApproved,
		model.ContractStatusNeedRevision, model.ContractStatusSigned:
		m.WorkStatus = model.WorkStatusPlanned
		return
	}

	assignments := agg.AssignmentsForMilestone(m.ID)
	var live []*model.TaskAssignment
	completed, total := 0, 0
	for _, a := range assignments {
		if a.Status == model.AssignmentStatusCancelled {
			continue
		}
		total++
		if a.Status == model.AssignmentStatusCompleted {
			completed++
			continue
		}
		live = append(live, a)
	}

	if total > 0 && completed == total {
		// All surviving assignments are done; the installment drives the rest.
		switch {
		case inst == nil:
			m.WorkStatus = model.WorkStatusCompleted
		case inst.Status == model.InstallmentStatusDue:
			m.WorkStatus = model.WorkStatusWaitingCustomer
		default:
			m.WorkStatus = model.WorkStatusReadyForPayment
		}
		return
	}

	if len(live) == 0 {
		m.WorkStatus = model.WorkStatusWaitingAssignment
		return
	}

	for _, a := range live {
		if a.Status == model.AssignmentStatusInProgress {
			m.WorkStatus = model.WorkStatusInProgress
			return
		}
	}
	for _, a := range live {
		if a.Engaged() {
			if agg.Contract.Status == model.ContractStatusActive {
				m.WorkStatus = model.WorkStatusReadyToStart
			} else {
				m.WorkStatus = model.WorkStatusAcceptedWaitActivation
			}
			return
		}
	}
	m.WorkStatus = model.WorkStatusWaitingSpecialist
}
