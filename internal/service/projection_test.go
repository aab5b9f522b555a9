package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

func projectionFixture(contractStatus model.ContractStatus, installmentStatus *model.InstallmentStatus, assignmentStatuses ...model.AssignmentStatus) (*model.ContractAggregate, *model.Milestone) {
	milestoneID := uuid.New()
	agg := &model.ContractAggregate{
		Contract: model.Contract{ID: uuid.New(), Status: contractStatus},
		Milestones: []model.Milestone{{
			ID:         milestoneID,
			OrderIndex: 1,
			WorkStatus: model.WorkStatusPlanned,
		}},
	}
	if installmentStatus != nil {
		mid := milestoneID
		agg.Installments = append(agg.Installments, model.Installment{
			ID:          uuid.New(),
			MilestoneID: &mid,
			Type:        model.InstallmentTypeMilestone,
			Status:      *installmentStatus,
		})
	}
	for i, status := range assignmentStatuses {
		agg.Assignments = append(agg.Assignments, model.TaskAssignment{
			ID:          uuid.New(),
			MilestoneID: milestoneID,
			Status:      status,
			AssignedAt:  time.Now().Add(time.Duration(i) * time.Minute),
		})
	}
	return agg, &agg.Milestones[0]
}

func status(s model.InstallmentStatus) *model.InstallmentStatus { return &s }

func TestRecomputeWorkStatus(t *testing.T) {
	tests := []struct {
		name        string
		contract    model.ContractStatus
		installment *model.InstallmentStatus
		assignments []model.AssignmentStatus
		want        model.MilestoneWorkStatus
	}{
		{
			name:        "planned until deposit clears",
			contract:    model.ContractStatusSigned,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusAssigned},
			want:        model.WorkStatusPlanned,
		},
		{
			name:        "no assignments after deposit",
			contract:    model.ContractStatusPendingAssignment,
			installment: status(model.InstallmentStatusPending),
			want:        model.WorkStatusWaitingAssignment,
		},
		{
			name:        "assigned awaiting acceptance",
			contract:    model.ContractStatusPendingAssignment,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusAssigned},
			want:        model.WorkStatusWaitingSpecialist,
		},
		{
			name:        "accepted before activation",
			contract:    model.ContractStatusPendingAssignment,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusAcceptedWaiting},
			want:        model.WorkStatusAcceptedWaitActivation,
		},
		{
			name:        "accepted on active contract",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusReadyToStart},
			want:        model.WorkStatusReadyToStart,
		},
		{
			name:        "any in-progress wins",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusInProgress, model.AssignmentStatusAssigned},
			want:        model.WorkStatusInProgress,
		},
		{
			name:        "work done payment pending",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusCompleted},
			want:        model.WorkStatusReadyForPayment,
		},
		{
			name:        "work done payment due",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusDue),
			assignments: []model.AssignmentStatus{model.AssignmentStatusCompleted},
			want:        model.WorkStatusWaitingCustomer,
		},
		{
			name:        "paid installment completes",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusPaid),
			assignments: []model.AssignmentStatus{model.AssignmentStatusCompleted},
			want:        model.WorkStatusCompleted,
		},
		{
			name:        "no installment completes on work alone",
			contract:    model.ContractStatusActive,
			assignments: []model.AssignmentStatus{model.AssignmentStatusCompleted},
			want:        model.WorkStatusCompleted,
		},
		{
			name:        "cancelled assignments do not count",
			contract:    model.ContractStatusActive,
			installment: status(model.InstallmentStatusPending),
			assignments: []model.AssignmentStatus{model.AssignmentStatusCancelled},
			want:        model.WorkStatusWaitingAssignment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, m := projectionFixture(tt.contract, tt.installment, tt.assignments...)
			recomputeWorkStatus(agg, m)
			assert.Equal(t, tt.want, m.WorkStatus)
		})
	}
}

func TestRecomputeWorkStatusCancelledIsSticky(t *testing.T) {
	agg, m := projectionFixture(model.ContractStatusActive, status(model.InstallmentStatusPaid),
		model.AssignmentStatusCompleted)
	m.WorkStatus = model.WorkStatusCancelled
	recomputeWorkStatus(agg, m)
	assert.Equal(t, model.WorkStatusCancelled, m.WorkStatus)
}
