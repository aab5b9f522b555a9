// Package service implements the contract & milestone fulfillment engine: the contract
// lifecycle machine, task-assignment tracking, the start-work gate and the installment
// ledger. Every public operation runs as one atomic mutation under the store's
// per-contract lock.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
	"github.com/thinhlal/mutrapro-system-sub005/internal/plan"
)

// Quote is the price breakdown returned by the pricing provider.
type Quote struct {
	TotalPrice int64
	Currency   string
}

// PricingProvider supplies quotes for service requests. External; consulted before any
// state-mutating transaction, never inside one.
type PricingProvider interface {
	Quote(ctx context.Context, requestType string, params map[string]string) (Quote, error)
}

type Workflow struct {
	store   Store
	pricing PricingProvider
	now     func() time.Time
}

func NewWorkflow(store Store, pricing PricingProvider) *Workflow {
	return &Workflow{
		store:   store,
		pricing: pricing,
		now:     time.Now,
	}
}

type CreateContractInput struct {
	RequestID             uuid.UUID
	CustomerID            uuid.UUID
	ContractType          model.ContractType
	TotalPrice            int64 // 0 requests a quote from the pricing provider
	Currency              string
	SLADays               int
	DepositPercent        int
	FreeRevisions         int
	AdditionalRevisionFee int64
	Principal             model.Principal
}

// CreateContract converts an accepted service request into a DRAFT contract: runs the
// milestone planner and materializes the installment schedule in one shot.
func (w *Workflow) CreateContract(ctx context.Context, input CreateContractInput) (*model.ContractAggregate, error) {
	if !input.Principal.IsManager() {
		return nil, ErrPermissionDenied
	}
	if input.RequestID == uuid.Nil || input.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: request_id and customer_id are required", ErrInvalidInput)
	}
	if input.DepositPercent <= 0 || input.DepositPercent >= 100 {
		return nil, fmt.Errorf("%w: deposit percent must be within (0, 100)", ErrInvalidInput)
	}
	if input.SLADays <= 0 {
		return nil, fmt.Errorf("%w: sla days must be positive", ErrInvalidInput)
	}

	totalPrice := input.TotalPrice
	currency := input.Currency
	if totalPrice == 0 {
		if w.pricing == nil {
			return nil, fmt.Errorf("%w: no price given and pricing provider not configured", ErrInvalidInput)
		}
		quote, err := w.pricing.Quote(ctx, string(input.ContractType), map[string]string{
			"request_id": input.RequestID.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("quote request: %w", err)
		}
		totalPrice = quote.TotalPrice
		currency = quote.Currency
	}
	if totalPrice <= 0 || currency == "" {
		return nil, fmt.Errorf("%w: total price and currency are required", ErrInvalidInput)
	}

	specs, err := plan.Plan(input.ContractType, input.DepositPercent, input.SLADays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := w.now()
	contract := model.Contract{
		ID:                    uuid.New(),
		RequestID:             input.RequestID,
		CustomerID:            input.CustomerID,
		ContractType:          input.ContractType,
		TotalPrice:            totalPrice,
		Currency:              currency,
		SLADays:               input.SLADays,
		DepositPercent:        input.DepositPercent,
		FreeRevisions:         input.FreeRevisions,
		AdditionalRevisionFee: input.AdditionalRevisionFee,
		Status:                model.ContractStatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	contract.ContractNumber = buildContractNumber(now, contract.ID)

	milestones := plan.Materialize(contract.ID, specs)
	agg := &model.ContractAggregate{
		Contract:     contract,
		Milestones:   milestones,
		Installments: model.BuildInstallments(&contract, milestones, now),
	}
	appendEvent(agg, input.Principal.Actor(), "create", "", string(model.ContractStatusDraft), nil, now)

	if err := w.store.CreateContract(ctx, agg); err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return agg, nil
}

// GetContract returns the full aggregate snapshot.
func (w *Workflow) GetContract(ctx context.Context, contractID uuid.UUID) (*model.ContractAggregate, error) {
	agg, err := w.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// Events returns the contract's audit trail.
func (w *Workflow) Events(ctx context.Context, contractID uuid.UUID) ([]model.ContractEvent, error) {
	if _, err := w.store.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return w.store.ListEvents(ctx, contractID)
}

func buildContractNumber(now time.Time, id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:8]
	return fmt.Sprintf("MTP-%s-%s", now.Format("20060102"), short)
}

func appendEvent(agg *model.ContractAggregate, actor, action, from, to string, reason *string, at time.Time) {
	agg.PendingEvents = append(agg.PendingEvents, model.ContractEvent{
		ID:         uuid.New(),
		ContractID: agg.Contract.ID,
		Actor:      actor,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		OccurredAt: at,
	})
}
