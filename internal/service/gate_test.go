package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

func TestStartWorkBlockedWithoutFirstMilestoneCommitment(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	agg = toPendingAssignment(t, w, id)
	firstMilestone := agg.Milestones[0].ID

	// No assignment at all.
	err := w.StartWork(ctx, id, manager)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateBlocked)

	// Assigned but not yet accepted still blocks: the specialist has not committed.
	a, err := w.Assign(ctx, AssignInput{
		MilestoneID:  firstMilestone,
		TaskType:     model.TaskTypeTranscription,
		SpecialistID: specialist.UserID,
		Principal:    manager,
	})
	require.NoError(t, err)

	err = w.StartWork(ctx, id, manager)
	require.Error(t, err)
	var blocked *GateBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, firstMilestone, blocked.MilestoneID)

	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusPendingAssignment, got.Contract.Status)

	// Acceptance opens the gate.
	require.NoError(t, w.SpecialistAccept(ctx, a.ID, specialist))
	require.NoError(t, w.StartWork(ctx, id, manager))
}

func TestStartGateWarnsOnLaterMilestones(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	agg = toPendingAssignment(t, w, id)
	staffMilestone(t, w, agg.Milestones[0].ID)

	gate, err := w.CanStartWork(ctx, id)
	require.NoError(t, err)
	assert.True(t, gate.Allowed)
	require.Len(t, gate.Warnings, 1)
	assert.Equal(t, agg.Milestones[1].ID, gate.Warnings[0])
}

func TestStartWorkActivatesAndPinsSchedule(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	got, _ := toActive(t, w, id)

	assert.Equal(t, model.ContractStatusActive, got.Contract.Status)
	require.NotNil(t, got.Contract.ExpectedStartDate)
	anchor := *got.Contract.ExpectedStartDate

	for _, m := range got.Milestones {
		require.NotNil(t, m.PlannedStartAt)
		require.NotNil(t, m.PlannedDueDate)
		assert.Equal(t, anchor.AddDate(0, 0, m.StartOffsetDays), *m.PlannedStartAt)
		assert.Equal(t, anchor.AddDate(0, 0, m.DueOffsetDays), *m.PlannedDueDate)
	}
	require.NotNil(t, got.Milestones[0].ActualStartAt)
	assert.Nil(t, got.Milestones[1].ActualStartAt)

	// Starting twice is rejected; the anchor never moves.
	err := w.StartWork(ctx, id, manager)
	assert.ErrorIs(t, err, ErrInvalidState)
	again, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, anchor, *again.Contract.ExpectedStartDate)
}

func TestStartWorkRequiresManagerAndDeposit(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID

	assert.ErrorIs(t, w.StartWork(ctx, id, specialist), ErrPermissionDenied)

	// Signed but deposit unpaid: staffing has not opened yet.
	toSigned(t, w, id)
	err := w.StartWork(ctx, id, manager)
	assert.ErrorIs(t, err, ErrInvalidState)
}
