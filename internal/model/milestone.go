package model

import (
	"time"

	"github.com/google/uuid"
)

type MilestoneWorkStatus string

const (
	WorkStatusPlanned                MilestoneWorkStatus = "PLANNED"
	WorkStatusWaitingAssignment      MilestoneWorkStatus = "WAITING_ASSIGNMENT"
	WorkStatusWaitingSpecialist      MilestoneWorkStatus = "WAITING_SPECIALIST_ACCEPT"
	WorkStatusAcceptedWaitActivation MilestoneWorkStatus = "TASK_ACCEPTED_WAITING_ACTIVATION"
	WorkStatusReadyToStart           MilestoneWorkStatus = "READY_TO_START"
	WorkStatusInProgress             MilestoneWorkStatus = "IN_PROGRESS"
	WorkStatusWaitingCustomer        MilestoneWorkStatus = "WAITING_CUSTOMER"
	WorkStatusReadyForPayment        MilestoneWorkStatus = "READY_FOR_PAYMENT"
	WorkStatusCompleted              MilestoneWorkStatus = "COMPLETED"
	WorkStatusCancelled              MilestoneWorkStatus = "CANCELLED"
)

type MilestoneType string

const (
	MilestoneTypeTranscription MilestoneType = "transcription"
	MilestoneTypeArrangement   MilestoneType = "arrangement"
	MilestoneTypeRecording     MilestoneType = "recording"
	MilestoneTypeRevision      MilestoneType = "revision"
)

type Milestone struct {
	ID             uuid.UUID
	ContractID     uuid.UUID
	OrderIndex     int // 1-based, contiguous
	Name           string
	MilestoneType  MilestoneType
	PaymentPercent int
	SLADays        int `gorm:"column:sla_days"`

	// Relative offsets (days from the start-work anchor), fixed at planning time.
	StartOffsetDays int
	DueOffsetDays   int

	// Absolute dates, materialized by the start-work transition.
	PlannedStartAt  *time.Time
	PlannedDueDate  *time.Time
	ActualStartAt   *time.Time
	ActualEndAt     *time.Time

	WorkStatus MilestoneWorkStatus
}

// HasPayment reports whether the milestone carries its own installment.
func (m *Milestone) HasPayment() bool {
	return m.PaymentPercent > 0
}
