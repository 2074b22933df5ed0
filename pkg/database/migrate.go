package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cohorts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	currency CHAR(3) NOT NULL,
	plan TEXT NOT NULL CHECK (plan IN ('one_shot', 'installments')),
	admission_fee BIGINT NOT NULL DEFAULT 0 CHECK (admission_fee >= 0),
	admission_fee_due_date TIMESTAMPTZ,
	one_shot_base_fee BIGINT,
	one_shot_discount BIGINT,
	one_shot_due_date TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS cohort_installments (
	cohort_id TEXT NOT NULL REFERENCES cohorts(id),
	semester INT NOT NULL,
	sequence INT NOT NULL,
	base_fee BIGINT NOT NULL CHECK (base_fee >= 0),
	due_date TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (cohort_id, semester, sequence)
)`,
	`CREATE TABLE IF NOT EXISTS scholarship_slabs (
	id TEXT PRIMARY KEY,
	cohort_id TEXT NOT NULL REFERENCES cohorts(id),
	name TEXT NOT NULL,
	percentage NUMERIC(5,2) NOT NULL CHECK (percentage >= 0 AND percentage <= 100),
	clearance_threshold INT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS engagements (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	cohort_id TEXT NOT NULL REFERENCES cohorts(id),
	status TEXT NOT NULL,
	application_status TEXT NOT NULL,
	revision_count INT NOT NULL DEFAULT 1,
	task_submissions JSONB NOT NULL DEFAULT '[]',
	evaluation_status TEXT NOT NULL DEFAULT 'pending',
	rubric JSONB NOT NULL DEFAULT '[]',
	performance_rating INT,
	evaluation_feedback TEXT NOT NULL DEFAULT '',
	scholarship_recommendation TEXT NOT NULL DEFAULT '',
	evaluator_id TEXT NOT NULL DEFAULT '',
	evaluation_completed_at TIMESTAMPTZ,
	award_slab_id TEXT,
	award_slab_name TEXT,
	award_percentage NUMERIC(5,2),
	award_clearance_threshold INT,
	awarded_by TEXT,
	awarded_at TIMESTAMPTZ,
	schedule_plan TEXT,
	schedule_currency CHAR(3),
	drop_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS engagements_student_idx ON engagements (student_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS engagements_cohort_idx ON engagements (cohort_id, status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS engagements_open_seat_idx ON engagements (student_id, cohort_id) WHERE status <> 'dropped'`,
	`CREATE TABLE IF NOT EXISTS engagement_feedback (
	id TEXT PRIMARY KEY,
	engagement_id TEXT NOT NULL REFERENCES engagements(id),
	status TEXT NOT NULL,
	comments TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS interview_sessions (
	id TEXT PRIMARY KEY,
	engagement_id TEXT NOT NULL REFERENCES engagements(id),
	meeting_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	timezone TEXT NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	ends_at TIMESTAMPTZ NOT NULL,
	meeting_url TEXT NOT NULL DEFAULT '',
	interviewer_id TEXT NOT NULL DEFAULT '',
	feedback TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS installments (
	id TEXT PRIMARY KEY,
	engagement_id TEXT NOT NULL REFERENCES engagements(id),
	kind TEXT NOT NULL,
	semester INT NOT NULL,
	sequence INT NOT NULL,
	due_date TIMESTAMPTZ,
	base_fee BIGINT NOT NULL,
	scholarship_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
	scholarship_amount BIGINT NOT NULL DEFAULT 0,
	discount BIGINT NOT NULL DEFAULT 0,
	amount_payable BIGINT NOT NULL,
	frozen_at TIMESTAMPTZ,
	CHECK (amount_payable = base_fee - scholarship_amount - discount),
	UNIQUE (engagement_id, kind, semester, sequence)
)`,
	`CREATE TABLE IF NOT EXISTS receipts (
	id TEXT PRIMARY KEY,
	installment_id TEXT NOT NULL REFERENCES installments(id),
	file_url TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	uploaded_by TEXT NOT NULL,
	decision TEXT NOT NULL DEFAULT '' CHECK (decision IN ('', 'paid', 'flagged')),
	comment TEXT NOT NULL DEFAULT '',
	decided_at TIMESTAMPTZ,
	decided_by TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS receipts_installment_idx ON receipts (installment_id, uploaded_at)`,
}

// Migrate applies the schema inside one transaction.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}
