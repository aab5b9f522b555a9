// Package plan derives a contract's milestone schedule from its type. Planning is
// deterministic and date-free: milestones carry day offsets relative to an anchor that
// only exists once the contract starts work.
package plan

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
)

// MilestoneSpec describes one planned milestone before persistence.
type MilestoneSpec struct {
	OrderIndex      int
	Name            string
	MilestoneType   model.MilestoneType
	PaymentPercent  int // share of the contract total, deposit already carved out
	SLADays         int
	StartOffsetDays int
	DueOffsetDays   int
}

// shares are per-service payment splits before deposit carve-out, in relative weight.
type share struct {
	name          string
	milestoneType model.MilestoneType
	weight        int
}

var serviceShares = map[model.ContractType][]share{
	model.ContractTypeTranscription: {
		{"Transcription draft", model.MilestoneTypeTranscription, 60},
		{"Transcription final delivery", model.MilestoneTypeTranscription, 40},
	},
	model.ContractTypeRecording: {
		{"Recording session", model.MilestoneTypeRecording, 60},
		{"Mix & master delivery", model.MilestoneTypeRecording, 40},
	},
	model.ContractTypeArrangement: {
		{"Arrangement sketch", model.MilestoneTypeArrangement, 40},
		{"Full arrangement", model.MilestoneTypeArrangement, 35},
		{"Final revision & delivery", model.MilestoneTypeArrangement, 25},
	},
	model.ContractTypeArrangementWithRecording: {
		{"Arrangement sketch", model.MilestoneTypeArrangement, 40},
		{"Full arrangement", model.MilestoneTypeArrangement, 35},
		{"Recording & delivery", model.MilestoneTypeRecording, 25},
	},
}

// bundleOrder fixes the composition order of bundle contracts.
var bundleOrder = []model.ContractType{
	model.ContractTypeTranscription,
	model.ContractTypeArrangement,
	model.ContractTypeRecording,
}

// Plan returns the ordered milestone list for a contract. Payment percents sum to
// exactly 100-depositPercent; SLA days are split proportionally to payment share with
// the remainder on the last milestone; offsets accumulate SLA days in order.
func Plan(contractType model.ContractType, depositPercent, slaDays int) ([]MilestoneSpec, error) {
	if depositPercent < 0 || depositPercent >= 100 {
		return nil, fmt.Errorf("deposit percent %d out of range", depositPercent)
	}
	if slaDays <= 0 {
		return nil, fmt.Errorf("sla days must be positive, got %d", slaDays)
	}

	var shares []share
	if contractType == model.ContractTypeBundle {
		for _, sub := range bundleOrder {
			shares = append(shares, serviceShares[sub]...)
		}
	} else {
		base, ok := serviceShares[contractType]
		if !ok {
			return nil, fmt.Errorf("unknown contract type %q", contractType)
		}
		shares = append(shares, base...)
	}

	totalWeight := 0
	for _, s := range shares {
		totalWeight += s.weight
	}

	remaining := 100 - depositPercent
	specs := make([]MilestoneSpec, len(shares))
	percentSum, daysSum := 0, 0
	for i, s := range shares {
		specs[i] = MilestoneSpec{
			OrderIndex:     i + 1,
			Name:           s.name,
			MilestoneType:  s.milestoneType,
			PaymentPercent: remaining * s.weight / totalWeight,
			SLADays:        slaDays * s.weight / totalWeight,
		}
		percentSum += specs[i].PaymentPercent
		daysSum += specs[i].SLADays
	}

	// Integer division remainders go to the last milestone.
	specs[len(specs)-1].PaymentPercent += remaining - percentSum
	specs[len(specs)-1].SLADays += slaDays - daysSum

	offset := 0
	for i := range specs {
		specs[i].StartOffsetDays = offset
		offset += specs[i].SLADays
		specs[i].DueOffsetDays = offset
	}

	return specs, nil
}

// Materialize converts specs into model milestones owned by the given contract.
func Materialize(contractID uuid.UUID, specs []MilestoneSpec) []model.Milestone {
	milestones := make([]model.Milestone, len(specs))
	for i, s := range specs {
		milestones[i] = model.Milestone{
			ID:              uuid.New(),
			ContractID:      contractID,
			OrderIndex:      s.OrderIndex,
			Name:            s.Name,
			MilestoneType:   s.MilestoneType,
			PaymentPercent:  s.PaymentPercent,
			SLADays:         s.SLADays,
			StartOffsetDays: s.StartOffsetDays,
			DueOffsetDays:   s.DueOffsetDays,
			WorkStatus:      model.WorkStatusPlanned,
		}
	}
	return milestones
}
