package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM (
				'DRAFT', 'SENT', 'APPROVED', 'NEED_REVISION', 'SIGNED',
				'ACTIVE_PENDING_ASSIGNMENT', 'ACTIVE', 'COMPLETED',
				'CANCELED_BY_CUSTOMER', 'CANCELED_BY_MANAGER', 'EXPIRED'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_type') THEN
			CREATE TYPE contract_type AS ENUM (
				'transcription', 'arrangement', 'arrangement_with_recording',
				'recording', 'bundle'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'milestone_work_status') THEN
			CREATE TYPE milestone_work_status AS ENUM (
				'PLANNED', 'WAITING_ASSIGNMENT', 'WAITING_SPECIALIST_ACCEPT',
				'TASK_ACCEPTED_WAITING_ACTIVATION', 'READY_TO_START', 'IN_PROGRESS',
				'WAITING_CUSTOMER', 'READY_FOR_PAYMENT', 'COMPLETED', 'CANCELLED'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'assignment_status') THEN
			CREATE TYPE assignment_status AS ENUM (
				'assigned', 'accepted_waiting', 'ready_to_start',
				'in_progress', 'completed', 'cancelled'
			);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'installment_type') THEN
			CREATE TYPE installment_type AS ENUM ('DEPOSIT', 'MILESTONE');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'installment_status') THEN
			CREATE TYPE installment_status AS ENUM ('PENDING', 'DUE', 'PAID');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY,
		contract_number VARCHAR(64) NOT NULL,
		request_id UUID NOT NULL,
		customer_id UUID NOT NULL,
		contract_type contract_type NOT NULL,
		total_price BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		sla_days INT NOT NULL,
		deposit_percent INT NOT NULL,
		free_revisions INT NOT NULL DEFAULT 0,
		additional_revision_fee BIGINT NOT NULL DEFAULT 0,
		expected_start_date TIMESTAMPTZ,
		status contract_status NOT NULL DEFAULT 'DRAFT',
		revision_reason TEXT,
		cancellation_reason TEXT,
		signed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_number ON contracts (contract_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_customer_id ON contracts (customer_id);`,
	`CREATE TABLE IF NOT EXISTS milestones (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		order_index INT NOT NULL,
		name VARCHAR(255) NOT NULL,
		milestone_type VARCHAR(64) NOT NULL,
		payment_percent INT NOT NULL,
		sla_days INT NOT NULL,
		start_offset_days INT NOT NULL,
		due_offset_days INT NOT NULL,
		planned_start_at TIMESTAMPTZ,
		planned_due_date TIMESTAMPTZ,
		actual_start_at TIMESTAMPTZ,
		actual_end_at TIMESTAMPTZ,
		work_status milestone_work_status NOT NULL DEFAULT 'PLANNED'
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_milestone_order ON milestones (contract_id, order_index);`,
	`CREATE TABLE IF NOT EXISTS installments (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		milestone_id UUID REFERENCES milestones(id),
		type installment_type NOT NULL,
		percent INT NOT NULL,
		amount BIGINT NOT NULL,
		currency VARCHAR(8) NOT NULL,
		status installment_status NOT NULL DEFAULT 'PENDING',
		due_date TIMESTAMPTZ,
		paid_at TIMESTAMPTZ
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_installment_deposit
		ON installments (contract_id) WHERE type = 'DEPOSIT';`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_installment_milestone
		ON installments (milestone_id) WHERE milestone_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS task_assignments (
		id UUID PRIMARY KEY,
		milestone_id UUID NOT NULL REFERENCES milestones(id),
		task_type VARCHAR(64) NOT NULL,
		specialist_id UUID NOT NULL,
		status assignment_status NOT NULL DEFAULT 'assigned',
		has_issue BOOLEAN NOT NULL DEFAULT FALSE,
		issue_reason TEXT,
		issue_reported_at TIMESTAMPTZ,
		assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		specialist_responded_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		notes TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_milestone_id ON task_assignments (milestone_id);`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_specialist_id ON task_assignments (specialist_id);`,
	`CREATE TABLE IF NOT EXISTS contract_events (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		actor VARCHAR(128) NOT NULL,
		action VARCHAR(64) NOT NULL,
		from_status VARCHAR(64) NOT NULL DEFAULT '',
		to_status VARCHAR(64) NOT NULL DEFAULT '',
		reason TEXT,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_events_contract_id ON contract_events (contract_id, occurred_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
