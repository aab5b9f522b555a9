package http

import (
	"time"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

type contractResponse struct {
	ID                    string                `json:"id"`
	ContractNumber        string                `json:"contract_number"`
	RequestID             string                `json:"request_id"`
	CustomerID            string                `json:"customer_id"`
	ContractType          string                `json:"contract_type"`
	TotalPrice            int64                 `json:"total_price"`
	Currency              string                `json:"currency"`
	SLADays               int                   `json:"sla_days"`
	DepositPercent        int                   `json:"deposit_percent"`
	FreeRevisions         int                   `json:"free_revisions"`
	AdditionalRevisionFee int64                 `json:"additional_revision_fee"`
	ExpectedStartDate     *time.Time            `json:"expected_start_date,omitempty"`
	Status                string                `json:"status"`
	RevisionReason        *string               `json:"revision_reason,omitempty"`
	CancellationReason    *string               `json:"cancellation_reason,omitempty"`
	SignedAt              *time.Time            `json:"signed_at,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	Milestones            []milestoneResponse   `json:"milestones"`
	Installments          []installmentResponse `json:"installments"`
}

type milestoneResponse struct {
	ID             string               `json:"id"`
	OrderIndex     int                  `json:"order_index"`
	Name           string               `json:"name"`
	MilestoneType  string               `json:"milestone_type"`
	PaymentPercent int                  `json:"payment_percent"`
	SLADays        int                  `json:"sla_days"`
	PlannedStartAt *time.Time           `json:"planned_start_at,omitempty"`
	PlannedDueDate *time.Time           `json:"planned_due_date,omitempty"`
	ActualStartAt  *time.Time           `json:"actual_start_at,omitempty"`
	ActualEndAt    *time.Time           `json:"actual_end_at,omitempty"`
	WorkStatus     string               `json:"work_status"`
	Assignments    []assignmentResponse `json:"assignments"`
}

type assignmentResponse struct {
	ID                    string     `json:"id"`
	MilestoneID           string     `json:"milestone_id"`
	TaskType              string     `json:"task_type"`
	SpecialistID          string     `json:"specialist_id"`
	Status                string     `json:"status"`
	HasIssue              bool       `json:"has_issue"`
	IssueReason           *string    `json:"issue_reason,omitempty"`
	IssueReportedAt       *time.Time `json:"issue_reported_at,omitempty"`
	AssignedAt            time.Time  `json:"assigned_at"`
	SpecialistRespondedAt *time.Time `json:"specialist_responded_at,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
}

type installmentResponse struct {
	ID          string     `json:"id"`
	MilestoneID *string    `json:"milestone_id,omitempty"`
	Type        string     `json:"type"`
	Percent     int        `json:"percent"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

type eventResponse struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Reason     *string   `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func contractResponseFrom(agg *model.ContractAggregate) contractResponse {
	c := agg.Contract
	resp := contractResponse{
		ID:                    c.ID.String(),
		ContractNumber:        c.ContractNumber,
		RequestID:             c.RequestID.String(),
		CustomerID:            c.CustomerID.String(),
		ContractType:          string(c.ContractType),
		TotalPrice:            c.TotalPrice,
		Currency:              c.Currency,
		SLADays:               c.SLADays,
		DepositPercent:        c.DepositPercent,
		FreeRevisions:         c.FreeRevisions,
		AdditionalRevisionFee: c.AdditionalRevisionFee,
		ExpectedStartDate:     c.ExpectedStartDate,
		Status:                string(c.Status),
		RevisionReason:        c.RevisionReason,
		CancellationReason:    c.CancellationReason,
		SignedAt:              c.SignedAt,
		CreatedAt:             c.CreatedAt,
		Installments:          installmentResponsesFrom(agg.Installments),
	}
	for i := range agg.Milestones {
		m := &agg.Milestones[i]
		mr := milestoneResponse{
			ID:             m.ID.String(),
			OrderIndex:     m.OrderIndex,
			Name:           m.Name,
			MilestoneType:  string(m.MilestoneType),
			PaymentPercent: m.PaymentPercent,
			SLADays:        m.SLADays,
			PlannedStartAt: m.PlannedStartAt,
			PlannedDueDate: m.PlannedDueDate,
			ActualStartAt:  m.ActualStartAt,
			ActualEndAt:    m.ActualEndAt,
			WorkStatus:     string(m.WorkStatus),
			Assignments:    []assignmentResponse{},
		}
		for _, a := range agg.AssignmentsForMilestone(m.ID) {
			mr.Assignments = append(mr.Assignments, assignmentResponseFrom(a))
		}
		resp.Milestones = append(resp.Milestones, mr)
	}
	return resp
}

func assignmentResponseFrom(a *model.TaskAssignment) assignmentResponse {
	return assignmentResponse{
		ID:                    a.ID.String(),
		MilestoneID:           a.MilestoneID.String(),
		TaskType:              string(a.TaskType),
		SpecialistID:          a.SpecialistID.String(),
		Status:                string(a.Status),
		HasIssue:              a.HasIssue,
		IssueReason:           a.IssueReason,
		IssueReportedAt:       a.IssueReportedAt,
		AssignedAt:            a.AssignedAt,
		SpecialistRespondedAt: a.SpecialistRespondedAt,
		CompletedAt:           a.CompletedAt,
		Notes:                 a.Notes,
	}
}

func installmentResponsesFrom(installments []model.Installment) []installmentResponse {
	out := make([]installmentResponse, 0, len(installments))
	for i := range installments {
		in := &installments[i]
		resp := installmentResponse{
			ID:       in.ID.String(),
			Type:     string(in.Type),
			Percent:  in.Percent,
			Amount:   in.Amount,
			Currency: in.Currency,
			Status:   string(in.Status),
			DueDate:  in.DueDate,
			PaidAt:   in.PaidAt,
		}
		if in.MilestoneID != nil {
			s := in.MilestoneID.String()
			resp.MilestoneID = &s
		}
		out = append(out, resp)
	}
	return out
}

func eventResponsesFrom(events []model.ContractEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for i := range events {
		e := &events[i]
		out = append(out, eventResponse{
			ID:         e.ID.String(),
			Actor:      e.Actor,
			Action:     e.Action,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Reason:     e.Reason,
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}
