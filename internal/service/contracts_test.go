package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

func TestLifecycleRoleChecks(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()
	agg := createDraft(t, w)
	id := agg.Contract.ID

	assert.ErrorIs(t, w.Send(ctx, id, customer), ErrPermissionDenied)
	require.NoError(t, w.Send(ctx, id, manager))

	assert.ErrorIs(t, w.Approve(ctx, id, manager), ErrPermissionDenied)
	assert.ErrorIs(t, w.Approve(ctx, id, specialist), ErrPermissionDenied)
	require.NoError(t, w.Approve(ctx, id, customer))

	assert.ErrorIs(t, w.Sign(ctx, id, "", manager), ErrPermissionDenied)
}

func TestSignRequiresApproval(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()
	agg := createDraft(t, w)

	err := w.Sign(ctx, agg.Contract.ID, "session", customer)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, getErr := w.GetContract(ctx, agg.Contract.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.ContractStatusDraft, got.Contract.Status, "failed transition leaves state untouched")
}

func TestSignSetsSignedAt(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()
	agg := createDraft(t, w)
	toSigned(t, w, agg.Contract.ID)

	got, err := w.GetContract(ctx, agg.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusSigned, got.Contract.Status)
	require.NotNil(t, got.Contract.SignedAt)
}

func TestRevisionRoundTrip(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()
	agg := createDraft(t, w)
	id := agg.Contract.ID

	require.NoError(t, w.Send(ctx, id, manager))

	err := w.RequestRevision(ctx, id, "", customer)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, w.RequestRevision(ctx, id, "wrong tempo on track 2", customer))
	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusNeedRevision, got.Contract.Status)
	require.NotNil(t, got.Contract.RevisionReason)
	assert.Equal(t, "wrong tempo on track 2", *got.Contract.RevisionReason)

	// Back through the full review cycle.
	require.NoError(t, w.ReturnToDraft(ctx, id, manager))
	require.NoError(t, w.Send(ctx, id, manager))
	require.NoError(t, w.Approve(ctx, id, customer))
	require.NoError(t, w.Sign(ctx, id, "session", customer))
}

func TestCustomerCancelOnlyDuringReview(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	require.NoError(t, w.Send(ctx, id, manager))
	require.NoError(t, w.Cancel(ctx, id, "changed my mind", customer))

	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusCanceledCustomer, got.Contract.Status)

	// Once signed, the customer can no longer cancel unilaterally.
	other := createDraft(t, w)
	toSigned(t, w, other.Contract.ID)
	err = w.Cancel(ctx, other.Contract.ID, "too late", customer)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestManagerCancelTearsDownWork(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	id := agg.Contract.ID
	_, assignmentID := toActive(t, w, id)
	require.NoError(t, w.StartTask(ctx, assignmentID, specialist))
	require.NoError(t, w.ReportIssue(ctx, assignmentID, "source files corrupted", specialist))

	err := w.Cancel(ctx, id, "", manager)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, w.Cancel(ctx, id, "customer unreachable", manager))

	got, err := w.GetContract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusCanceledManager, got.Contract.Status)
	require.NotNil(t, got.Contract.CancellationReason)

	a := got.AssignmentByID(assignmentID)
	require.NotNil(t, a)
	assert.Equal(t, model.AssignmentStatusCancelled, a.Status)
	assert.False(t, a.HasIssue, "cancellation clears open issues")
	for _, m := range got.Milestones {
		assert.Equal(t, model.WorkStatusCancelled, m.WorkStatus)
	}

	// Terminal contracts reject further cancellation.
	err = w.Cancel(ctx, id, "again", manager)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestExpireStaleSigned(t *testing.T) {
	w, store := testWorkflow(t)
	ctx := context.Background()

	stale := createDraft(t, w)
	toSigned(t, w, stale.Contract.ID)
	fresh := createDraft(t, w)
	toSigned(t, w, fresh.Contract.ID)
	draft := createDraft(t, w)

	// Age the stale signature past the expiry window.
	store.mu.Lock()
	old := time.Now().Add(-8 * 24 * time.Hour)
	store.contracts[stale.Contract.ID].Contract.SignedAt = &old
	store.mu.Unlock()

	expired, err := w.ExpireStaleSigned(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := w.GetContract(ctx, stale.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusExpired, got.Contract.Status)

	got, err = w.GetContract(ctx, fresh.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusSigned, got.Contract.Status)

	got, err = w.GetContract(ctx, draft.Contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusDraft, got.Contract.Status)

	// A second sweep finds nothing.
	expired, err = w.ExpireStaleSigned(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}
