package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thinhlal/mutrapro-system-sub005/internal/model"
	"github.com/thinhlal/mutrapro-system-sub005/internal/service"
)

// ContractRepository implements service.Store on Postgres. Mutations run inside a
// transaction holding a row lock on the contract, so operations on the same contract
// serialize while different contracts proceed in parallel.
type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `
	id, contract_number, request_id, customer_id, contract_type,
	total_price, currency, sla_days, deposit_percent,
	free_revisions, additional_revision_fee,
	expected_start_date, status, revision_reason, cancellation_reason,
	signed_at, created_at, updated_at
`

const milestoneColumns = `
	id, contract_id, order_index, name, milestone_type,
	payment_percent, sla_days, start_offset_days, due_offset_days,
	planned_start_at, planned_due_date, actual_start_at, actual_end_at, work_status
`

const installmentColumns = `
	id, contract_id, milestone_id, type, percent, amount, currency,
	status, due_date, paid_at
`

const assignmentColumns = `
	id, milestone_id, task_type, specialist_id, status,
	has_issue, issue_reason, issue_reported_at,
	assigned_at, specialist_responded_at, completed_at, notes
`

func (r *ContractRepository) CreateContract(ctx context.Context, agg *model.ContractAggregate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertContract(tx, &agg.Contract); err != nil {
			return err
		}
		for i := range agg.Milestones {
			if err := insertMilestone(tx, &agg.Milestones[i]); err != nil {
				return err
			}
		}
		for i := range agg.Installments {
			if err := insertInstallment(tx, &agg.Installments[i]); err != nil {
				return err
			}
		}
		return insertEvents(tx, agg.PendingEvents)
	})
}

func (r *ContractRepository) GetContract(ctx context.Context, contractID uuid.UUID) (*model.ContractAggregate, error) {
	return r.loadAggregate(r.db.WithContext(ctx), contractID, false)
}

func (r *ContractRepository) UpdateContract(
	ctx context.Context,
	contractID uuid.UUID,
	mutate func(agg *model.ContractAggregate) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agg, err := r.loadAggregate(tx, contractID, true)
		if err != nil {
			return err
		}
		before := len(agg.Assignments)
		if err := mutate(agg); err != nil {
			return err
		}
		if err := updateContract(tx, &agg.Contract); err != nil {
			return err
		}
		for i := range agg.Milestones {
			if err := updateMilestone(tx, &agg.Milestones[i]); err != nil {
				return err
			}
		}
		for i := range agg.Installments {
			if err := updateInstallment(tx, &agg.Installments[i]); err != nil {
				return err
			}
		}
		for i := range agg.Assignments {
			if i < before {
				if err := updateAssignment(tx, &agg.Assignments[i]); err != nil {
					return err
				}
			} else {
				if err := insertAssignment(tx, &agg.Assignments[i]); err != nil {
					return err
				}
			}
		}
		return insertEvents(tx, agg.PendingEvents)
	})
}

func (r *ContractRepository) loadAggregate(tx *gorm.DB, contractID uuid.UUID, forUpdate bool) (*model.ContractAggregate, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}

	var contract model.Contract
	err := tx.Raw(`
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = ?`+lock, contractID).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: contract %s", service.ErrNotFound, contractID)
	}

	agg := &model.ContractAggregate{Contract: contract}

	if err := tx.Raw(`
		SELECT `+milestoneColumns+`
		FROM milestones
		WHERE contract_id = ?
		ORDER BY order_index`, contractID).Scan(&agg.Milestones).Error; err != nil {
		return nil, err
	}
	if err := tx.Raw(`
		SELECT `+installmentColumns+`
		FROM installments
		WHERE contract_id = ?
		ORDER BY type DESC, id`, contractID).Scan(&agg.Installments).Error; err != nil {
		return nil, err
	}
	if err := tx.Raw(`
		SELECT `+assignmentColumns+`
		FROM task_assignments
		WHERE milestone_id IN (SELECT id FROM milestones WHERE contract_id = ?)
		ORDER BY assigned_at`, contractID).Scan(&agg.Assignments).Error; err != nil {
		return nil, err
	}
	return agg, nil
}

func insertContract(tx *gorm.DB, c *model.Contract) error {
	return tx.Exec(`
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ContractNumber, c.RequestID, c.CustomerID, c.ContractType,
		c.TotalPrice, c.Currency, c.SLADays, c.DepositPercent,
		c.FreeRevisions, c.AdditionalRevisionFee,
		c.ExpectedStartDate, c.Status, c.RevisionReason, c.CancellationReason,
		c.SignedAt, c.CreatedAt, c.UpdatedAt,
	).Error
}

func updateContract(tx *gorm.DB, c *model.Contract) error {
	return tx.Exec(`
		UPDATE contracts SET
			total_price = ?, currency = ?, sla_days = ?, deposit_percent = ?,
			free_revisions = ?, additional_revision_fee = ?,
			expected_start_date = ?, status = ?, revision_reason = ?,
			cancellation_reason = ?, signed_at = ?, updated_at = ?
		WHERE id = ?`,
		c.TotalPrice, c.Currency, c.SLADays, c.DepositPercent,
		c.FreeRevisions, c.AdditionalRevisionFee,
		c.ExpectedStartDate, c.Status, c.RevisionReason,
		c.CancellationReason, c.SignedAt, c.UpdatedAt,
		c.ID,
	).Error
}

func insertMilestone(tx *gorm.DB, m *model.Milestone) error {
	return tx.Exec(`
		INSERT INTO milestones (`+milestoneColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ContractID, m.OrderIndex, m.Name, m.MilestoneType,
		m.PaymentPercent, m.SLADays, m.StartOffsetDays, m.DueOffsetDays,
		m.PlannedStartAt, m.PlannedDueDate, m.ActualStartAt, m.ActualEndAt, m.WorkStatus,
	).Error
}

func updateMilestone(tx *gorm.DB, m *model.Milestone) error {
	return tx.Exec(`
		UPDATE milestones SET
			planned_start_at = ?, planned_due_date = ?,
			actual_start_at = ?, actual_end_at = ?, work_status = ?
		WHERE id = ?`,
		m.PlannedStartAt, m.PlannedDueDate,
		m.ActualStartAt, m.ActualEndAt, m.WorkStatus,
		m.ID,
	).Error
}

func insertInstallment(tx *gorm.DB, in *model.Installment) error {
	return tx.Exec(`
		INSERT INTO installments (`+installmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.ContractID, in.MilestoneID, in.Type, in.Percent, in.Amount, in.Currency,
		in.Status, in.DueDate, in.PaidAt,
	).Error
}

func updateInstallment(tx *gorm.DB, in *model.Installment) error {
	return tx.Exec(`
		UPDATE installments SET status = ?, due_date = ?, paid_at = ?
		WHERE id = ?`,
		in.Status, in.DueDate, in.PaidAt, in.ID,
	).Error
}

func insertAssignment(tx *gorm.DB, a *model.TaskAssignment) error {
	return tx.Exec(`
		INSERT INTO task_assignments (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MilestoneID, a.TaskType, a.SpecialistID, a.Status,
		a.HasIssue, a.IssueReason, a.IssueReportedAt,
		a.AssignedAt, a.SpecialistRespondedAt, a.CompletedAt, a.Notes,
	).Error
}

func updateAssignment(tx *gorm.DB, a *model.TaskAssignment) error {
	return tx.Exec(`
		UPDATE task_assignments SET
			status = ?, has_issue = ?, issue_reason = ?, issue_reported_at = ?,
			specialist_responded_at = ?, completed_at = ?, notes = ?
		WHERE id = ?`,
		a.Status, a.HasIssue, a.IssueReason, a.IssueReportedAt,
		a.SpecialistRespondedAt, a.CompletedAt, a.Notes,
		a.ID,
	).Error
}

func insertEvents(tx *gorm.DB, events []model.ContractEvent) error {
	for i := range events {
		e := &events[i]
		err := tx.Exec(`
			INSERT INTO contract_events (id, contract_id, actor, action, from_status, to_status, reason, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.ContractID, e.Actor, e.Action, e.FromStatus, e.ToStatus, e.Reason, e.OccurredAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
