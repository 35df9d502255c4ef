package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
)

type cpdRepository struct {
	repository
}

var _ cpd.Repository = (*cpdRepository)(nil) // interface compliance check

func NewCPDRepository(db *sqlx.DB) *cpdRepository {
	return &cpdRepository{repository{db: db}}
}

type (
	cpdProfileRow struct {
		UserID       string    `db:"user_id"`
		TargetPoints float64   `db:"target_points"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}

	activityRow struct {
		ID           string      `db:"id"`
		UserID       string      `db:"user_id"`
		MentorshipID null.String `db:"mentorship_id"`
		Role         null.String `db:"role"`
		Title        string      `db:"title"`
		Type         string      `db:"type"`
		Date         time.Time   `db:"date"`
		Duration     int         `db:"duration"`
		Points       float64     `db:"points"`
		Status       string      `db:"status"`
		Evidence     null.String `db:"evidence"`
		Reflection   null.String `db:"reflection"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}
)

func (repo cpdRepository) unboilProfile(row cpdProfileRow) cpd.Profile {
	return cpd.Profile{
		UserID:       row.UserID,
		TargetPoints: row.TargetPoints,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo cpdRepository) boil(act cpd.Activity) activityRow {
	return activityRow{
		ID:           act.ID,
		UserID:       act.UserID,
		MentorshipID: nullString(act.MentorshipID),
		Role:         nullString(act.Role),
		Title:        act.Title,
		Type:         act.Type,
		Date:         act.Date.UTC(),
		Duration:     act.Duration,
		Points:       act.Points,
		Status:       act.Status,
		Evidence:     nullString(act.Evidence),
		Reflection:   nullString(act.Reflection),
		CreatedAt:    act.CreatedAt.UTC(),
		UpdatedAt:    act.UpdatedAt.UTC(),
	}
}

func (repo cpdRepository) unboil(row activityRow) cpd.Activity {
	return cpd.Activity{
		ID:           row.ID,
		UserID:       row.UserID,
		MentorshipID: row.MentorshipID.String,
		Role:         row.Role.String,
		Title:        row.Title,
		Type:         row.Type,
		Date:         row.Date.UTC(),
		Duration:     row.Duration,
		Points:       row.Points,
		Status:       row.Status,
		Evidence:     row.Evidence.String,
		Reflection:   row.Reflection.String,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo cpdRepository) UpsertProfile(ctx context.Context, prof cpd.Profile, exec ...core.DBExecutor) (cpd.Profile, error) {
	var row cpdProfileRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `
		INSERT INTO cpd_profiles (user_id, target_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING *`,
		prof.UserID, prof.TargetPoints, prof.CreatedAt.UTC(), prof.UpdatedAt.UTC(),
	)
	if err != nil {
		return cpd.Profile{}, errors.Wrap(err, "upserting cpd profile")
	}
	return repo.unboilProfile(row), nil
}

func (repo cpdRepository) GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (cpd.Profile, error) {
	var row cpdProfileRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `SELECT * FROM cpd_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return cpd.Profile{}, trapNoRowsErr(err, cpd.ErrProfileNotFound, "getting cpd profile")
	}
	return repo.unboilProfile(row), nil
}

func (repo cpdRepository) CreateActivities(ctx context.Context, acts []cpd.Activity, exec ...core.DBExecutor) ([]cpd.Activity, error) {
	const q = `
		INSERT INTO cpd_activities (
			id, user_id, mentorship_id, role, title, type, date, duration, points,
			status, evidence, reflection, created_at, updated_at
		) VALUES (
			:id, :user_id, :mentorship_id, :role, :title, :type, :date, :duration, :points,
			:status, :evidence, :reflection, :created_at, :updated_at
		) RETURNING *`
	ex := repo.getExec(exec)
	saved := make([]cpd.Activity, 0, len(acts))
	for _, act := range acts {
		var row activityRow
		if err := namedGet(ctx, ex, &row, q, repo.boil(act)); err != nil {
			return nil, errors.Wrap(err, "inserting cpd activity")
		}
		saved = append(saved, repo.unboil(row))
	}
	return saved, nil
}

func (repo cpdRepository) CreditMentorshipActivities(ctx context.Context, mentorshipID string, minutes int, points float64, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE cpd_activities SET duration = duration + $1, points = points + $2, updated_at = now()
		WHERE mentorship_id = $3`,
		minutes, points, mentorshipID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "crediting cpd activities")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "crediting cpd activities")
}

func (repo cpdRepository) FinalizeMentorshipActivities(ctx context.Context, mentorshipID, reflection string, at time.Time, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE cpd_activities SET status = $1, reflection = $2, updated_at = $3
		WHERE mentorship_id = $4`,
		cpd.StatusCompleted, reflection, at.UTC(), mentorshipID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "finalizing cpd activities")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "finalizing cpd activities")
}

func (repo cpdRepository) QueryActivities(ctx context.Context, filter cpd.ActivityFilter, exec ...core.DBExecutor) ([]cpd.Activity, error) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.MentorshipID != "" {
		if !isUUID(filter.MentorshipID) {
			return []cpd.Activity{}, nil
		}
		w.add("mentorship_id = ?", filter.MentorshipID)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}

	var rows []activityRow
	q := "SELECT * FROM cpd_activities" + w.String() + " ORDER BY date DESC, role"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying cpd activities")
	}
	acts := make([]cpd.Activity, 0, len(rows))
	for _, row := range rows {
		acts = append(acts, repo.unboil(row))
	}
	return acts, nil
}
