package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const engagementColumns = `id, student_id, cohort_id, status, application_status, revision_count, task_submissions,
       evaluation_status, rubric, performance_rating, evaluation_feedback, scholarship_recommendation, evaluator_id,
       evaluation_completed_at, award_slab_id, award_slab_name, award_percentage, award_clearance_threshold,
       awarded_by, awarded_at, schedule_plan, schedule_currency, drop_reason, created_at, updated_at`

type engagementRow struct {
	ID                        string              `db:"id"`
	StudentID                 string              `db:"student_id"`
	CohortID                  string              `db:"cohort_id"`
	Status                    string              `db:"status"`
	ApplicationStatus         string              `db:"application_status"`
	RevisionCount             int                 `db:"revision_count"`
	TaskSubmissions           []byte              `db:"task_submissions"`
	EvaluationStatus          string              `db:"evaluation_status"`
	Rubric                    []byte              `db:"rubric"`
	PerformanceRating         sql.NullInt64       `db:"performance_rating"`
	EvaluationFeedback        string              `db:"evaluation_feedback"`
	ScholarshipRecommendation string              `db:"scholarship_recommendation"`
	EvaluatorID               string              `db:"evaluator_id"`
	EvaluationCompletedAt     sql.NullTime        `db:"evaluation_completed_at"`
	AwardSlabID               sql.NullString      `db:"award_slab_id"`
	AwardSlabName             sql.NullString      `db:"award_slab_name"`
	AwardPercentage           decimal.NullDecimal `db:"award_percentage"`
	AwardClearanceThreshold   sql.NullInt64       `db:"award_clearance_threshold"`
	AwardedBy                 sql.NullString      `db:"awarded_by"`
	AwardedAt                 sql.NullTime        `db:"awarded_at"`
	SchedulePlan              sql.NullString      `db:"schedule_plan"`
	ScheduleCurrency          sql.NullString      `db:"schedule_currency"`
	DropReason                sql.NullString      `db:"drop_reason"`
	CreatedAt                 time.Time           `db:"created_at"`
	UpdatedAt                 time.Time           `db:"updated_at"`
}

type feedbackRow struct {
	EngagementID string `db:"engagement_id"`
	models.FeedbackEntry
}

type interviewRow struct {
	EngagementID string `db:"engagement_id"`
	models.InterviewSession
}

type installmentRow struct {
	ID                    string           `db:"id"`
	EngagementID          string           `db:"engagement_id"`
	Kind                  string           `db:"kind"`
	Semester              int              `db:"semester"`
	Sequence              int              `db:"sequence"`
	DueDate               sql.NullTime     `db:"due_date"`
	BaseFee               int64            `db:"base_fee"`
	ScholarshipPercentage money.Percentage `db:"scholarship_percentage"`
	ScholarshipAmount     int64            `db:"scholarship_amount"`
	Discount              int64            `db:"discount"`
	AmountPayable         int64            `db:"amount_payable"`
	FrozenAt              sql.NullTime     `db:"frozen_at"`
}

// EngagementRepository persists engagements and their append-only histories.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository constructs the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// FindByID loads one engagement with its sub-records.
func (r *EngagementRepository) FindByID(ctx context.Context, id string) (*models.Engagement, error) {
	query := fmt.Sprintf("SELECT %s FROM engagements WHERE id = $1", engagementColumns)
	var row engagementRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}
	list, err := r.hydrate(ctx, []engagementRow{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListByStudent returns a student's engagement history, oldest first, so the
// authoritative engagement is the last element.
func (r *EngagementRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Engagement, error) {
	query := fmt.Sprintf("SELECT %s FROM engagements WHERE student_id = $1 ORDER BY created_at ASC, id ASC", engagementColumns)
	var rows []engagementRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student engagements: %w", err)
	}
	return r.hydrate(ctx, rows)
}

// ListByCohort returns every engagement of a cohort.
func (r *EngagementRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.Engagement, error) {
	query := fmt.Sprintf("SELECT %s FROM engagements WHERE cohort_id = $1 ORDER BY created_at ASC, id ASC", engagementColumns)
	var rows []engagementRow
	if err := r.db.SelectContext(ctx, &rows, query, cohortID); err != nil {
		return nil, fmt.Errorf("list cohort engagements: %w", err)
	}
	return r.hydrate(ctx, rows)
}

// List returns a page of engagements matching the filter plus the total count.
func (r *EngagementRepository) List(ctx context.Context, filter models.EngagementFilter) ([]models.Engagement, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.CohortID != "" {
		args = append(args, filter.CohortID)
		conditions = append(conditions, fmt.Sprintf("cohort_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM engagements"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count engagements: %w", err)
	}

	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf("SELECT %s FROM engagements%s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d",
		engagementColumns, where, size, (page-1)*size)
	var rows []engagementRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list engagements: %w", err)
	}
	list, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// hydrate loads the sub-records of every row with one query per table.
func (r *EngagementRepository) hydrate(ctx context.Context, rows []engagementRow) ([]models.Engagement, error) {
	result := make([]models.Engagement, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}
	ids := make([]string, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		e, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, e)
		ids[i] = row.ID
		index[row.ID] = i
	}

	var feedback []feedbackRow
	if err := r.db.SelectContext(ctx, &feedback, `SELECT engagement_id, id, status, comments, author_id, created_at
FROM engagement_feedback WHERE engagement_id = ANY($1) ORDER BY created_at ASC, id ASC`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list engagement feedback: %w", err)
	}
	for _, f := range feedback {
		e := &result[index[f.EngagementID]]
		e.Application.Feedback = append(e.Application.Feedback, f.FeedbackEntry)
	}

	var interviews []interviewRow
	if err := r.db.SelectContext(ctx, &interviews, `SELECT engagement_id, id, meeting_date, start_time, end_time, timezone,
       starts_at, ends_at, meeting_url, interviewer_id, feedback, created_at
FROM interview_sessions WHERE engagement_id = ANY($1) ORDER BY created_at ASC, id ASC`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list interview sessions: %w", err)
	}
	for _, s := range interviews {
		e := &result[index[s.EngagementID]]
		e.Interviews = append(e.Interviews, s.InterviewSession)
	}

	var lines []installmentRow
	if err := r.db.SelectContext(ctx, &lines, `SELECT id, engagement_id, kind, semester, sequence, due_date, base_fee,
       scholarship_percentage, scholarship_amount, discount, amount_payable, frozen_at
FROM installments WHERE engagement_id = ANY($1) ORDER BY semester ASC, sequence ASC, kind ASC`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	if len(lines) == 0 {
		return result, nil
	}

	lineIDs := make([]string, len(lines))
	for i, line := range lines {
		lineIDs[i] = line.ID
	}
	var receipts []models.Receipt
	if err := r.db.SelectContext(ctx, &receipts, `SELECT id, installment_id, file_url, uploaded_at, uploaded_by, decision, comment,
       decided_at, decided_by
FROM receipts WHERE installment_id = ANY($1) ORDER BY uploaded_at ASC, id ASC`, pq.Array(lineIDs)); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	byLine := make(map[string][]models.Receipt, len(lines))
	for _, rc := range receipts {
		byLine[rc.InstallmentID] = append(byLine[rc.InstallmentID], rc)
	}

	for _, row := range lines {
		e := &result[index[row.EngagementID]]
		if e.Schedule == nil {
			continue
		}
		line := row.toModel()
		if rs, ok := byLine[line.ID]; ok {
			line.Receipts = rs
		}
		if line.Kind == models.InstallmentKindAdmission {
			e.Schedule.AdmissionFee = &line
			continue
		}
		e.Schedule.Installments = append(e.Schedule.Installments, line)
	}
	return result, nil
}

// Save writes the snapshot in one transaction. History rows are inserted
// once; decisions are only written to receipts that have none; frozen
// installments are never rewritten.
func (r *EngagementRepository) Save(ctx context.Context, e *models.Engagement) (err error) {
	row, err := engagementToRow(e)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin engagement tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO engagements (`+engagementColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, application_status = EXCLUDED.application_status,
    revision_count = EXCLUDED.revision_count, task_submissions = EXCLUDED.task_submissions,
    evaluation_status = EXCLUDED.evaluation_status, rubric = EXCLUDED.rubric,
    performance_rating = EXCLUDED.performance_rating, evaluation_feedback = EXCLUDED.evaluation_feedback,
    scholarship_recommendation = EXCLUDED.scholarship_recommendation, evaluator_id = EXCLUDED.evaluator_id,
    evaluation_completed_at = EXCLUDED.evaluation_completed_at, award_slab_id = EXCLUDED.award_slab_id,
    award_slab_name = EXCLUDED.award_slab_name, award_percentage = EXCLUDED.award_percentage,
    award_clearance_threshold = EXCLUDED.award_clearance_threshold, awarded_by = EXCLUDED.awarded_by,
    awarded_at = EXCLUDED.awarded_at, schedule_plan = EXCLUDED.schedule_plan,
    schedule_currency = EXCLUDED.schedule_currency, drop_reason = EXCLUDED.drop_reason,
    updated_at = EXCLUDED.updated_at`,
		row.ID, row.StudentID, row.CohortID, row.Status, row.ApplicationStatus, row.RevisionCount, row.TaskSubmissions,
		row.EvaluationStatus, row.Rubric, row.PerformanceRating, row.EvaluationFeedback, row.ScholarshipRecommendation,
		row.EvaluatorID, row.EvaluationCompletedAt, row.AwardSlabID, row.AwardSlabName, row.AwardPercentage,
		row.AwardClearanceThreshold, row.AwardedBy, row.AwardedAt, row.SchedulePlan, row.ScheduleCurrency,
		row.DropReason, row.CreatedAt, row.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "student already has an open engagement in this cohort")
		}
		return fmt.Errorf("upsert engagement: %w", err)
	}

	for _, f := range e.Application.Feedback {
		if _, err = tx.ExecContext(ctx, `INSERT INTO engagement_feedback (id, engagement_id, status, comments, author_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			f.ID, e.ID, f.Status, f.Comments, f.AuthorID, f.CreatedAt); err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
	}

	for _, s := range e.Interviews {
		if _, err = tx.ExecContext(ctx, `INSERT INTO interview_sessions (id, engagement_id, meeting_date, start_time, end_time,
    timezone, starts_at, ends_at, meeting_url, interviewer_id, feedback, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) ON CONFLICT (id) DO NOTHING`,
			s.ID, e.ID, s.MeetingDate, s.StartTime, s.EndTime, s.Timezone, s.StartsAt, s.EndsAt,
			s.MeetingURL, s.InterviewerID, s.Feedback, s.CreatedAt); err != nil {
			return fmt.Errorf("insert interview session: %w", err)
		}
	}

	lines := e.Schedule.Lines()
	if len(lines) == 0 {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit engagement tx: %w", err)
		}
		return nil
	}

	keep := make([]string, 0, len(lines))
	for _, line := range lines {
		keep = append(keep, line.ID)
		if _, err = tx.ExecContext(ctx, `INSERT INTO installments (id, engagement_id, kind, semester, sequence, due_date, base_fee,
    scholarship_percentage, scholarship_amount, discount, amount_payable, frozen_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET due_date = EXCLUDED.due_date, base_fee = EXCLUDED.base_fee,
    scholarship_percentage = EXCLUDED.scholarship_percentage, scholarship_amount = EXCLUDED.scholarship_amount,
    discount = EXCLUDED.discount, amount_payable = EXCLUDED.amount_payable, frozen_at = EXCLUDED.frozen_at
WHERE installments.frozen_at IS NULL`,
			line.ID, e.ID, line.Kind, line.Semester, line.Sequence, nullTime(line.DueDate), int64(line.BaseFee),
			line.ScholarshipPercentage, int64(line.ScholarshipAmount), int64(line.Discount), int64(line.AmountPayable),
			line.FrozenAt); err != nil {
			return fmt.Errorf("upsert installment: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE engagement_id = $1 AND NOT (id = ANY($2))
AND frozen_at IS NULL AND NOT EXISTS (SELECT 1 FROM receipts WHERE receipts.installment_id = installments.id)`,
		e.ID, pq.Array(keep)); err != nil {
		return fmt.Errorf("prune installments: %w", err)
	}

	for _, line := range lines {
		for _, rc := range line.Receipts {
			if _, err = tx.ExecContext(ctx, `INSERT INTO receipts (id, installment_id, file_url, uploaded_at, uploaded_by)
VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
				rc.ID, line.ID, rc.FileURL, rc.UploadedAt, rc.UploadedBy); err != nil {
				return fmt.Errorf("insert receipt: %w", err)
			}
			if !rc.Decided() {
				continue
			}
			if _, err = tx.ExecContext(ctx, `UPDATE receipts SET decision = $2, comment = $3, decided_at = $4, decided_by = $5
WHERE id = $1 AND decided_at IS NULL`,
				rc.ID, rc.Decision, rc.Comment, rc.DecidedAt, rc.DecidedBy); err != nil {
				return fmt.Errorf("record receipt decision: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit engagement tx: %w", err)
	}
	return nil
}

func (row engagementRow) toModel() (models.Engagement, error) {
	e := models.Engagement{
		ID:        row.ID,
		StudentID: row.StudentID,
		CohortID:  row.CohortID,
		Status:    models.EngagementStatus(row.Status),
		Application: models.Application{
			Status:          models.ApplicationStatus(row.ApplicationStatus),
			RevisionCount:   row.RevisionCount,
			TaskSubmissions: []models.TaskSubmission{},
			Feedback:        []models.FeedbackEntry{},
		},
		Interviews: []models.InterviewSession{},
		Evaluation: models.Evaluation{
			Status:                    models.EvaluationStatus(row.EvaluationStatus),
			Rubric:                    []models.RubricScore{},
			Feedback:                  row.EvaluationFeedback,
			ScholarshipRecommendation: row.ScholarshipRecommendation,
			EvaluatorID:               row.EvaluatorID,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.TaskSubmissions) > 0 {
		if err := json.Unmarshal(row.TaskSubmissions, &e.Application.TaskSubmissions); err != nil {
			return models.Engagement{}, fmt.Errorf("decode task submissions of %s: %w", row.ID, err)
		}
	}
	if len(row.Rubric) > 0 {
		if err := json.Unmarshal(row.Rubric, &e.Evaluation.Rubric); err != nil {
			return models.Engagement{}, fmt.Errorf("decode rubric of %s: %w", row.ID, err)
		}
	}
	if row.PerformanceRating.Valid {
		rating := int(row.PerformanceRating.Int64)
		e.Evaluation.PerformanceRating = &rating
	}
	if row.EvaluationCompletedAt.Valid {
		at := row.EvaluationCompletedAt.Time
		e.Evaluation.CompletedAt = &at
	}
	if row.AwardSlabID.Valid {
		e.Award = &models.ScholarshipAward{
			SlabID:             row.AwardSlabID.String,
			SlabName:           row.AwardSlabName.String,
			Percentage:         money.Percentage{Decimal: row.AwardPercentage.Decimal},
			ClearanceThreshold: int(row.AwardClearanceThreshold.Int64),
			AwardedBy:          row.AwardedBy.String,
			AwardedAt:          row.AwardedAt.Time,
		}
	}
	if row.SchedulePlan.Valid {
		e.Schedule = &models.FeeSchedule{
			Plan:         models.FeePlan(row.SchedulePlan.String),
			Currency:     row.ScheduleCurrency.String,
			Installments: []models.Installment{},
		}
	}
	if row.DropReason.Valid {
		reason := row.DropReason.String
		e.DropReason = &reason
	}
	return e, nil
}

func engagementToRow(e *models.Engagement) (engagementRow, error) {
	tasks, err := json.Marshal(nonNil(e.Application.TaskSubmissions))
	if err != nil {
		return engagementRow{}, fmt.Errorf("encode task submissions: %w", err)
	}
	rubric, err := json.Marshal(nonNil(e.Evaluation.Rubric))
	if err != nil {
		return engagementRow{}, fmt.Errorf("encode rubric: %w", err)
	}
	status := e.Evaluation.Status
	if status == "" {
		status = models.EvaluationStatusPending
	}
	row := engagementRow{
		ID:                        e.ID,
		StudentID:                 e.StudentID,
		CohortID:                  e.CohortID,
		Status:                    string(e.Status),
		ApplicationStatus:         string(e.Application.Status),
		RevisionCount:             e.Application.RevisionCount,
		TaskSubmissions:           tasks,
		EvaluationStatus:          string(status),
		Rubric:                    rubric,
		EvaluationFeedback:        e.Evaluation.Feedback,
		ScholarshipRecommendation: e.Evaluation.ScholarshipRecommendation,
		EvaluatorID:               e.Evaluation.EvaluatorID,
		CreatedAt:                 e.CreatedAt,
		UpdatedAt:                 e.UpdatedAt,
	}
	if e.Evaluation.PerformanceRating != nil {
		row.PerformanceRating = sql.NullInt64{Int64: int64(*e.Evaluation.PerformanceRating), Valid: true}
	}
	if e.Evaluation.CompletedAt != nil {
		row.EvaluationCompletedAt = sql.NullTime{Time: *e.Evaluation.CompletedAt, Valid: true}
	}
	if a := e.Award; a != nil {
		row.AwardSlabID = sql.NullString{String: a.SlabID, Valid: true}
		row.AwardSlabName = sql.NullString{String: a.SlabName, Valid: true}
		row.AwardPercentage = decimal.NullDecimal{Decimal: a.Percentage.Decimal, Valid: true}
		row.AwardClearanceThreshold = sql.NullInt64{Int64: int64(a.ClearanceThreshold), Valid: true}
		row.AwardedBy = sql.NullString{String: a.AwardedBy, Valid: true}
		row.AwardedAt = sql.NullTime{Time: a.AwardedAt, Valid: true}
	}
	if s := e.Schedule; s != nil {
		row.SchedulePlan = sql.NullString{String: string(s.Plan), Valid: true}
		row.ScheduleCurrency = sql.NullString{String: s.Currency, Valid: true}
	}
	if e.DropReason != nil {
		row.DropReason = sql.NullString{String: *e.DropReason, Valid: true}
	}
	return row, nil
}

func (row installmentRow) toModel() models.Installment {
	line := models.Installment{
		ID:                    row.ID,
		EngagementID:          row.EngagementID,
		Kind:                  models.InstallmentKind(row.Kind),
		Semester:              row.Semester,
		Sequence:              row.Sequence,
		DueDate:               row.DueDate.Time,
		BaseFee:               money.Amount(row.BaseFee),
		ScholarshipPercentage: row.ScholarshipPercentage,
		ScholarshipAmount:     money.Amount(row.ScholarshipAmount),
		Discount:              money.Amount(row.Discount),
		AmountPayable:         money.Amount(row.AmountPayable),
		Receipts:              []models.Receipt{},
	}
	if row.FrozenAt.Valid {
		at := row.FrozenAt.Time
		line.FrozenAt = &at
	}
	return line
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
