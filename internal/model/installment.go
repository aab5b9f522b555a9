package model

import (
	"time"

	"github.com/google/uuid"
)

type InstallmentType string

const (
	InstallmentTypeDeposit   InstallmentType = "DEPOSIT"
	InstallmentTypeMilestone InstallmentType = "MILESTONE"
)

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusDue     InstallmentStatus = "DUE"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
)

type Installment struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	MilestoneID *uuid.UUID // nil for DEPOSIT
	Type        InstallmentType
	Percent     int
	Amount      int64 // minor units of Currency
	Currency    string
	Status      InstallmentStatus
	DueDate     *time.Time
	PaidAt      *time.Time
}

// minorUnitDigits maps ISO currency codes to the number of minor-unit digits.
// Unlisted currencies default to 2.
var minorUnitDigits = map[string]int{
	"VND": 0,
	"JPY": 0,
	"KRW": 0,
	"USD": 2,
	"EUR": 2,
}

// MinorUnitDigits returns the minor-unit exponent for a currency code.
func MinorUnitDigits(currency string) int {
	if d, ok := minorUnitDigits[currency]; ok {
		return d
	}
	return 2
}

// BuildInstallments derives the payment schedule from a contract and its milestones:
// one DEPOSIT installment plus one MILESTONE installment per milestone with a payment
// percent. Amounts are rounded half-up in minor units; the rounding remainder lands on
// the last installment so the total always equals the contract price.
func BuildInstallments(c *Contract, milestones []Milestone, now time.Time) []Installment {
	installments := make([]Installment, 0, len(milestones)+1)

	dueNow := now
	installments = append(installments, Installment{
		ID:         uuid.New(),
		ContractID: c.ID,
		Type:       InstallmentTypeDeposit,
		Percent:    c.DepositPercent,
		Amount:     roundShare(c.TotalPrice, c.DepositPercent),
		Currency:   c.Currency,
		Status:     InstallmentStatusPending,
		DueDate:    &dueNow,
	})

	for i := range milestones {
		m := &milestones[i]
		if !m.HasPayment() {
			continue
		}
		mid := m.ID
		installments = append(installments, Installment{
			ID:          uuid.New(),
			ContractID:  c.ID,
			MilestoneID: &mid,
			Type:        InstallmentTypeMilestone,
			Percent:     m.PaymentPercent,
			Amount:      roundShare(c.TotalPrice, m.PaymentPercent),
			Currency:    c.Currency,
			Status:      InstallmentStatusPending,
		})
	}

	// Assign the rounding remainder to the last installment.
	var sum int64
	for i := range installments {
		sum += installments[i].Amount
	}
	installments[len(installments)-1].Amount += c.TotalPrice - sum

	return installments
}

func roundShare(total int64, percent int) int64 {
	p := total * int64(percent)
	q := p / 100
	if p%100 >= 50 {
		q++
	}
	return q
}
