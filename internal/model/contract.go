package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusDraft             ContractStatus = "DRAFT"
	ContractStatusSent              ContractStatus = "SENT"
	ContractStatusApproved          ContractStatus = "APPROVED"
	ContractStatusNeedRevision      ContractStatus = "NEED_REVISION"
	ContractStatusSigned            ContractStatus = "SIGNED"
	ContractStatusPendingAssignment ContractStatus = "ACTIVE_PENDING_ASSIGNMENT"
	ContractStatusActive            ContractStatus = "ACTIVE"
	ContractStatusCompleted         ContractStatus = "COMPLETED"
	ContractStatusCanceledCustomer  ContractStatus = "CANCELED_BY_CUSTOMER"
	ContractStatusCanceledManager   ContractStatus = "CANCELED_BY_MANAGER"
	ContractStatusExpired           ContractStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s ContractStatus) Terminal() bool {
	switch s {
	case ContractStatusCompleted,
		ContractStatusCanceledCustomer,
		ContractStatusCanceledManager,
		ContractStatusExpired:
		return true
	}
	return false
}

type ContractType string

const (
	ContractTypeTranscription            ContractType = "transcription"
	ContractTypeArrangement              ContractType = "arrangement"
	ContractTypeArrangementWithRecording ContractType = "arrangement_with_recording"
	ContractTypeRecording                ContractType = "recording"
	ContractTypeBundle                   ContractType = "bundle"
)

func ParseContractType(raw string) (ContractType, bool) {
	switch ContractType(raw) {
	case ContractTypeTranscription,
		ContractTypeArrangement,
		ContractTypeArrangementWithRecording,
		ContractTypeRecording,
		ContractTypeBundle:
		return ContractType(raw), true
	}
	return "", false
}

type Contract struct {
	ID                    uuid.UUID
	ContractNumber        string
	RequestID             uuid.UUID
	CustomerID            uuid.UUID
	ContractType          ContractType
	TotalPrice            int64 // minor units of Currency
	Currency              string
	SLADays               int `gorm:"column:sla_days"`
	DepositPercent        int
	FreeRevisions         int
	AdditionalRevisionFee int64
	ExpectedStartDate     *time.Time
	Status                ContractStatus
	RevisionReason        *string
	CancellationReason    *string
	SignedAt              *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// lifecycleTransitions holds every legal status edge keyed by source status.
// manager_cancel from any non-terminal state is handled separately.
var lifecycleTransitions = map[ContractStatus][]ContractStatus{
	ContractStatusDraft:             {ContractStatusSent},
	ContractStatusSent:              {ContractStatusApproved, ContractStatusNeedRevision, ContractStatusCanceledCustomer},
	ContractStatusApproved:          {ContractStatusSigned, ContractStatusNeedRevision, ContractStatusCanceledCustomer},
	ContractStatusNeedRevision:      {ContractStatusDraft},
	ContractStatusSigned:            {ContractStatusPendingAssignment, ContractStatusExpired},
	ContractStatusPendingAssignment: {ContractStatusActive},
	ContractStatusActive:            {ContractStatusCompleted},
}

// CanTransition reports whether the lifecycle machine allows from -> to.
func CanTransition(from, to ContractStatus) bool {
	if to == ContractStatusCanceledManager {
		return !from.Terminal()
	}
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
