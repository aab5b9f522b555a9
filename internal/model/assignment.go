package model

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentStatusAssigned        AssignmentStatus = "assigned"
	AssignmentStatusAcceptedWaiting AssignmentStatus = "accepted_waiting"
	AssignmentStatusReadyToStart    AssignmentStatus = "ready_to_start"
	AssignmentStatusInProgress      AssignmentStatus = "in_progress"
	AssignmentStatusCompleted       AssignmentStatus = "completed"
	AssignmentStatusCancelled       AssignmentStatus = "cancelled"
)

type TaskType string

const (
	TaskTypeTranscription TaskType = "transcription"
	TaskTypeArrangement   TaskType = "arrangement"
	TaskTypeRecording     TaskType = "recording"
)

type TaskAssignment struct {
	ID                    uuid.UUID
	MilestoneID           uuid.UUID
	TaskType              TaskType
	SpecialistID          uuid.UUID
	Status                AssignmentStatus
	HasIssue              bool
	IssueReason           *string
	IssueReportedAt       *time.Time
	AssignedAt            time.Time
	SpecialistRespondedAt *time.Time
	CompletedAt           *time.Time
	Notes                 *string
}

// Active reports whether the assignment still occupies its (milestone, taskType) slot.
func (a *TaskAssignment) Active() bool {
	return a.Status != AssignmentStatusCancelled && a.Status != AssignmentStatusCompleted
}

// Engaged reports whether the specialist has committed to the task: accepted or further.
// Used by the start-work gate.
func (a *TaskAssignment) Engaged() bool {
	switch a.Status {
	case AssignmentStatusAcceptedWaiting,
		AssignmentStatusReadyToStart,
		AssignmentStatusInProgress,
		AssignmentStatusCompleted:
		return true
	}
	return false
}
