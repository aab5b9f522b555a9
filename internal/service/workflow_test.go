package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

var (
	manager    = model.Principal{UserID: uuid.New(), Role: model.RoleManager}
	customer   = model.Principal{UserID: uuid.New(), Role: model.RoleCustomer}
	specialist = model.Principal{UserID: uuid.New(), Role: model.RoleSpecialist}
)

// memStore is an in-memory Store with copy-on-write updates: a failed mutation leaves
// the stored aggregate untouched, mirroring transaction rollback.
type memStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]*model.ContractAggregate
	events    map[uuid.UUID][]model.ContractEvent
}

func newMemStore() *memStore {
	return &memStore{
		contracts: make(map[uuid.UUID]*model.ContractAggregate),
		events:    make(map[uuid.UUID][]model.ContractEvent),
	}
}

func cloneAggregate(src *model.ContractAggregate) *model.ContractAggregate {
	return &model.ContractAggregate{
		Contract:     src.Contract,
		Milestones:   append([]model.Milestone(nil), src.Milestones...),
		Installments: append([]model.Installment(nil), src.Installments...),
		Assignments:  append([]model.TaskAssignment(nil), src.Assignments...),
	}
}

func (s *memStore) CreateContract(_ context.Context, agg *model.ContractAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := agg.Contract.ID
	if _, ok := s.contracts[id]; ok {
		return fmt.Errorf("contract %s already exists", id)
	}
	s.events[id] = append(s.events[id], agg.PendingEvents...)
	s.contracts[id] = cloneAggregate(agg)
	return nil
}

func (s *memStore) GetContract(_ context.Context, contractID uuid.UUID) (*model.ContractAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.contracts[contractID]
	if !ok {
		return nil, fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
	}
	return cloneAggregate(agg), nil
}

func (s *memStore) UpdateContract(_ context.Context, contractID uuid.UUID, mutate func(agg *model.ContractAggregate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.contracts[contractID]
	if !ok {
		return fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
	}
	work := cloneAggregate(agg)
	if err := mutate(work); err != nil {
		return err
	}
	s.events[contractID] = append(s.events[contractID], work.PendingEvents...)
	work.PendingEvents = nil
	s.contracts[contractID] = work
	return nil
}

func (s *memStore) ContractIDForMilestone(_ context.Context, milestoneID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, agg := range s.contracts {
		if agg.MilestoneByID(milestoneID) != nil {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("milestone %s: %w", milestoneID, ErrNotFound)
}

func (s *memStore) ContractIDForAssignment(_ context.Context, assignmentID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, agg := range s.contracts {
		if agg.AssignmentByID(assignmentID) != nil {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("assignment %s: %w", assignmentID, ErrNotFound)
}

func (s *memStore) ContractIDForInstallment(_ context.Context, installmentID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, agg := range s.contracts {
		if agg.InstallmentByID(installmentID) != nil {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("installment %s: %w", installmentID, ErrNotFound)
}

func (s *memStore) ListSignedBefore(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, agg := range s.contracts {
		c := agg.Contract
		if c.Status == model.ContractStatusSigned && c.SignedAt != nil && c.SignedAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *memStore) ListEvents(_ context.Context, contractID uuid.UUID) ([]model.ContractEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[contractID]
	out := make([]model.ContractEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

type stubPricing struct {
	quote Quote
	err   error
	calls int
}

func (s *stubPricing) Quote(_ context.Context, _ string, _ map[string]string) (Quote, error) {
	s.calls++
	if s.err != nil {
		return Quote{}, s.err
	}
	return s.quote, nil
}

func testWorkflow(t *testing.T) (*Workflow, *memStore) {
	t.Helper()
	store := newMemStore()
	w := NewWorkflow(store, &stubPricing{quote: Quote{TotalPrice: 1_500_000, Currency: "VND"}})
	return w, store
}

func createDraft(t *testing.T, w *Workflow) *model.ContractAggregate {
	t.Helper()
	agg, err := w.CreateContract(context.Background(), CreateContractInput{
		RequestID:      uuid.New(),
		CustomerID:     customer.UserID,
		ContractType:   model.ContractTypeTranscription,
		TotalPrice:     1_000_000,
		Currency:       "VND",
		SLADays:        20,
		DepositPercent: 40,
		Principal:      manager,
	})
	require.NoError(t, err)
	return agg
}

func toSigned(t *testing.T, w *Workflow, contractID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.Send(ctx, contractID, manager))
	require.NoError(t, w.Approve(ctx, contractID, customer))
	require.NoError(t, w.Sign(ctx, contractID, "esign-session-1", customer))
}

func toPendingAssignment(t *testing.T, w *Workflow, contractID uuid.UUID) *model.ContractAggregate {
	t.Helper()
	ctx := context.Background()
	toSigned(t, w, contractID)
	agg, err := w.GetContract(ctx, contractID)
	require.NoError(t, err)
	deposit := agg.DepositInstallment()
	require.NotNil(t, deposit)
	require.NoError(t, w.MarkInstallmentPaid(ctx, deposit.ID, time.Now()))
	agg, err = w.GetContract(ctx, contractID)
	require.NoError(t, err)
	return agg
}

// staffMilestone assigns the specialist and walks the assignment to ready_to_start.
func staffMilestone(t *testing.T, w *Workflow, milestoneID uuid.UUID) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	a, err := w.Assign(ctx, AssignInput{
		MilestoneID:  milestoneID,
		TaskType:     model.TaskTypeTranscription,
		SpecialistID: specialist.UserID,
		Principal:    manager,
	})
	require.NoError(t, err)
	require.NoError(t, w.SpecialistAccept(ctx, a.ID, specialist))
	require.NoError(t, w.SpecialistReady(ctx, a.ID, specialist))
	return a.ID
}

func toActive(t *testing.T, w *Workflow, contractID uuid.UUID) (agg *model.ContractAggregate, firstAssignment uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	agg = toPendingAssignment(t, w, contractID)
	firstAssignment = staffMilestone(t, w, agg.Milestones[0].ID)
	require.NoError(t, w.StartWork(ctx, contractID, manager))
	agg, err := w.GetContract(ctx, contractID)
	require.NoError(t, err)
	return agg, firstAssignment
}

func TestCreateContractRequiresManager(t *testing.T) {
	w, _ := testWorkflow(t)
	_, err := w.CreateContract(context.Background(), CreateContractInput{
		RequestID:      uuid.New(),
		CustomerID:     uuid.New(),
		ContractType:   model.ContractTypeTranscription,
		TotalPrice:     100,
		Currency:       "VND",
		SLADays:        10,
		DepositPercent: 40,
		Principal:      customer,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateContractValidatesInput(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	base := CreateContractInput{
		RequestID:      uuid.New(),
		CustomerID:     uuid.New(),
		ContractType:   model.ContractTypeTranscription,
		TotalPrice:     100,
		Currency:       "VND",
		SLADays:        10,
		DepositPercent: 40,
		Principal:      manager,
	}

	missing := base
	missing.RequestID = uuid.Nil
	_, err := w.CreateContract(ctx, missing)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badDeposit := base
	badDeposit.DepositPercent = 100
	_, err = w.CreateContract(ctx, badDeposit)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badSLA := base
	badSLA.SLADays = 0
	_, err = w.CreateContract(ctx, badSLA)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badType := base
	badType.ContractType = model.ContractType("mixing")
	_, err = w.CreateContract(ctx, badType)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateContractQuotesWhenNoPrice(t *testing.T) {
	store := newMemStore()
	pricing := &stubPricing{quote: Quote{TotalPrice: 2_500_000, Currency: "VND"}}
	w := NewWorkflow(store, pricing)

	agg, err := w.CreateContract(context.Background(), CreateContractInput{
		RequestID:      uuid.New(),
		CustomerID:     uuid.New(),
		ContractType:   model.ContractTypeArrangement,
		SLADays:        30,
		DepositPercent: 20,
		Principal:      manager,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pricing.calls)
	assert.Equal(t, int64(2_500_000), agg.Contract.TotalPrice)
	assert.Equal(t, "VND", agg.Contract.Currency)
}

func TestCreateContractBuildsPlanAndSchedule(t *testing.T) {
	w, _ := testWorkflow(t)
	agg := createDraft(t, w)

	assert.Equal(t, model.ContractStatusDraft, agg.Contract.Status)
	assert.Contains(t, agg.Contract.ContractNumber, "MTP-")

	require.Len(t, agg.Milestones, 2)
	assert.Equal(t, 36, agg.Milestones[0].PaymentPercent)
	assert.Equal(t, 24, agg.Milestones[1].PaymentPercent)
	assert.Equal(t, model.WorkStatusPlanned, agg.Milestones[0].WorkStatus)

	require.Len(t, agg.Installments, 3)
	assert.Equal(t, int64(400_000), agg.Installments[0].Amount)
	assert.Equal(t, int64(360_000), agg.Installments[1].Amount)
	assert.Equal(t, int64(240_000), agg.Installments[2].Amount)
}

func TestEventsRecordEveryTransition(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()
	agg := createDraft(t, w)
	toSigned(t, w, agg.Contract.ID)

	events, err := w.Events(ctx, agg.Contract.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)

	// Newest first.
	assert.Equal(t, "sign", events[0].Action)
	assert.Equal(t, "approve", events[1].Action)
	assert.Equal(t, "send", events[2].Action)
	assert.Equal(t, "create", events[3].Action)
	assert.Equal(t, customer.Actor(), events[0].Actor)
}

// TestFullContractJourney drives one transcription contract end to end: draft, review,
// signature, deposit, staffing, both milestones worked and paid, contract completed.
func TestFullContractJourney(t *testing.T) {
	w, _ := testWorkflow(t)
	ctx := context.Background()

	agg := createDraft(t, w)
	contractID := agg.Contract.ID

	agg, firstAssignment := toActive(t, w, contractID)
	assert.Equal(t, model.ContractStatusActive, agg.Contract.Status)
	assert.Equal(t, model.WorkStatusReadyToStart, agg.Milestones[0].WorkStatus)
	assert.Equal(t, model.WorkStatusWaitingAssignment, agg.Milestones[1].WorkStatus)

	// Milestone 1: work and customer payment.
	require.NoError(t, w.StartTask(ctx, firstAssignment, specialist))
	require.NoError(t, w.CompleteTask(ctx, firstAssignment, specialist))

	agg, err := w.GetContract(ctx, contractID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkStatusWaitingCustomer, agg.Milestones[0].WorkStatus)
	first := agg.InstallmentForMilestone(agg.Milestones[0].ID)
	require.NotNil(t, first)
	assert.Equal(t, model.InstallmentStatusDue, first.Status)
	assert.Equal(t, int64(360_000), first.Amount)

	require.NoError(t, w.MarkInstallmentPaid(ctx, first.ID, time.Now()))
	agg, err = w.GetContract(ctx, contractID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkStatusCompleted, agg.Milestones[0].WorkStatus)
	assert.Equal(t, model.ContractStatusActive, agg.Contract.Status, "one unpaid milestone left")

	// Milestone 2.
	secondAssignment := staffMilestone(t, w, agg.Milestones[1].ID)
	require.NoError(t, w.StartTask(ctx, secondAssignment, specialist))
	require.NoError(t, w.CompleteTask(ctx, secondAssignment, specialist))

	agg, err = w.GetContract(ctx, contractID)
	require.NoError(t, err)
	second := agg.InstallmentForMilestone(agg.Milestones[1].ID)
	require.NotNil(t, second)
	assert.Equal(t, int64(240_000), second.Amount)
	require.NoError(t, w.MarkInstallmentPaid(ctx, second.ID, time.Now()))

	agg, err = w.GetContract(ctx, contractID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusCompleted, agg.Contract.Status)
	assert.Equal(t, model.WorkStatusCompleted, agg.Milestones[1].WorkStatus)
}
