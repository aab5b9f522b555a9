package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

func TestDepositPaymentOpensStaffing(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	toSigned(t, w, id)

	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	deposit := got.DepositInstallment()
	require.NotNil(t, deposit)

	paidAt := time.Now()
	require.NoError(t, w.MarkInstallmentPaid(ctx, deposit.ID, paidAt))

	got, err = w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusPendingAssignment, got.Contract.Status)
	dep := got.DepositInstallment()
	assert.Equal(t, model.InstallmentStatusPaid, dep.Status)
	require.NotNil(t, dep.PaidAt)
	assert.Equal(t, paidAt, *dep.PaidAt)

	// Deposit paid flips milestones out of PLANNED.
	assert.Equal(t, model.WorkStatusWaitingAssignment, got.Milestones[0].WorkStatus)

	// Duplicate gateway callback.
	err = w.MarkInstallmentPaid(ctx, deposit.ID, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestDepositRejectedBeforeSignature(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	deposit := agg.DepositInstallment()
	require.NotNil(t, deposit)

	err := w.MarkInstallmentPaid(ctx, deposit.ID, time.Now())
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := w.GetContract(ctx, agg.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstallmentStatusPending, got.DepositInstallment().Status)
}

func TestMilestonePaymentCompletesMilestoneOnly(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	_, assignmentID := toActive(t, w, id)
	require.NoError(t, w.StartTask(ctx, assignmentID, specialist))
	require.NoError(t, w.CompleteTask(ctx, assignmentID, specialist))

	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	inst := got.InstallmentForMilestone(got.Milestones[0].ID)
	require.NotNil(t, inst)
	require.Equal(t, model.InstallmentStatusDue, inst.Status)

	require.NoError(t, w.MarkInstallmentPaid(ctx, inst.ID, time.Now()))

	got, err = w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.WorkStatusCompleted, got.Milestones[0].WorkStatus)
	assert.Equal(t, model.ContractStatusActive, got.Contract.Status,
		"the second milestone is still unpaid")
	assert.Equal(t, 1, got.UnpaidMilestoneInstallments())
}

func TestInstallmentsAccessor(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	installments, err := w.Installments(ctx, agg.Contract.ID)
	require.NoError(t, err)
	require.Len(t, installments, 3)

	var sum int64
	for _, in := range installments {
		sum += in.Amount
	}
	assert.Equal(t, agg.Contract.TotalPrice, sum)
}

func TestUnknownInstallment(t *testing.T) {
	w, _ := testWorkflow(t)
	agg := createDraft(t, w)

	err := w.MarkInstallmentPaid(context.Background(), agg.Milestones[0].ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound, "a milestone ID is not an installment ID")
}
