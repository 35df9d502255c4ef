package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/portfolio"
)

type portfolioRepository struct {
	repository
}

var _ portfolio.Repository = (*portfolioRepository)(nil) // interface compliance check

func NewPortfolioRepository(db *sqlx.DB) *portfolioRepository {
	return &portfolioRepository{repository{db: db}}
}

type (
	achievementRow struct {
		ID           string         `db:"id"`
		UserID       string         `db:"user_id"`
		MentorshipID null.String    `db:"mentorship_id"`
		SourceKey    string         `db:"source_key"`
		Title        string         `db:"title"`
		Description  null.String    `db:"description"`
		Date         time.Time      `db:"date"`
		Type         string         `db:"type"`
		Tags         pq.StringArray `db:"tags"`
		Visibility   string         `db:"visibility"`
		CreatedAt    time.Time      `db:"created_at"`
	}

	reflectionRow struct {
		ID           string         `db:"id"`
		UserID       string         `db:"user_id"`
		MentorshipID null.String    `db:"mentorship_id"`
		Title        string         `db:"title"`
		Content      string         `db:"content"`
		Date         time.Time      `db:"date"`
		Type         string         `db:"type"`
		Tags         pq.StringArray `db:"tags"`
		Visibility   string         `db:"visibility"`
		CreatedAt    time.Time      `db:"created_at"`
	}
)

func (repo portfolioRepository) unboilAchievement(row achievementRow) portfolio.Achievement {
	return portfolio.Achievement{
		ID:           row.ID,
		UserID:       row.UserID,
		MentorshipID: row.MentorshipID.String,
		SourceKey:    row.SourceKey,
		Title:        row.Title,
		Description:  row.Description.String,
		Date:         row.Date.UTC(),
		Type:         row.Type,
		Tags:         fromStringArray(row.Tags),
		Visibility:   row.Visibility,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func (repo portfolioRepository) unboilReflection(row reflectionRow) portfolio.Reflection {
	return portfolio.Reflection{
		ID:           row.ID,
		UserID:       row.UserID,
		MentorshipID: row.MentorshipID.String,
		Title:        row.Title,
		Content:      row.Content,
		Date:         row.Date.UTC(),
		Type:         row.Type,
		Tags:         fromStringArray(row.Tags),
		Visibility:   row.Visibility,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func (repo portfolioRepository) AddAchievement(ctx context.Context, ach portfolio.Achievement, exec ...core.DBExecutor) (portfolio.Achievement, bool, error) {
	ex := repo.getExec(exec)
	row := achievementRow{
		ID:           ach.ID,
		UserID:       ach.UserID,
		MentorshipID: nullString(ach.MentorshipID),
		SourceKey:    ach.SourceKey,
		Title:        ach.Title,
		Description:  nullString(ach.Description),
		Date:         ach.Date.UTC(),
		Type:         ach.Type,
		Tags:         toStringArray(ach.Tags),
		Visibility:   ach.Visibility,
		CreatedAt:    ach.CreatedAt.UTC(),
	}
	const q = `
		INSERT INTO portfolio_achievements (
			id, user_id, mentorship_id, source_key, title, description, date, type, tags, visibility, created_at
		) VALUES (
			:id, :user_id, :mentorship_id, :source_key, :title, :description, :date, :type, :tags, :visibility, :created_at
		)
		ON CONFLICT (user_id, source_key) DO NOTHING
		RETURNING *`
	var saved achievementRow
	err := namedGet(ctx, ex, &saved, q, row)
	if err == nil {
		return repo.unboilAchievement(saved), true, nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return portfolio.Achievement{}, false, errors.Wrap(err, "inserting achievement")
	}

	// already recorded
	err = sqlx.GetContext(ctx, ex, &saved,
		`SELECT * FROM portfolio_achievements WHERE user_id = $1 AND source_key = $2`, ach.UserID, ach.SourceKey)
	if err != nil {
		return portfolio.Achievement{}, false, errors.Wrap(err, "getting achievement")
	}
	return repo.unboilAchievement(saved), false, nil
}

func (repo portfolioRepository) AddReflection(ctx context.Context, ref portfolio.Reflection, exec ...core.DBExecutor) (portfolio.Reflection, error) {
	row := reflectionRow{
		ID:           ref.ID,
		UserID:       ref.UserID,
		MentorshipID: nullString(ref.MentorshipID),
		Title:        ref.Title,
		Content:      ref.Content,
		Date:         ref.Date.UTC(),
		Type:         ref.Type,
		Tags:         toStringArray(ref.Tags),
		Visibility:   ref.Visibility,
		CreatedAt:    ref.CreatedAt.UTC(),
	}
	const q = `
		INSERT INTO portfolio_reflections (
			id, user_id, mentorship_id, title, content, date, type, tags, visibility, created_at
		) VALUES (
			:id, :user_id, :mentorship_id, :title, :content, :date, :type, :tags, :visibility, :created_at
		) RETURNING *`
	var saved reflectionRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, row); err != nil {
		return portfolio.Reflection{}, errors.Wrap(err, "inserting reflection")
	}
	return repo.unboilReflection(saved), nil
}

func portfolioWhere(filter portfolio.Filter) (where, bool) {
	var w where
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.MentorshipID != "" {
		if !isUUID(filter.MentorshipID) {
			return w, false
		}
		w.add("mentorship_id = ?", filter.MentorshipID)
	}
	return w, true
}

func (repo portfolioRepository) QueryAchievements(ctx context.Context, filter portfolio.Filter, exec ...core.DBExecutor) ([]portfolio.Achievement, error) {
	w, ok := portfolioWhere(filter)
	if !ok {
		return []portfolio.Achievement{}, nil
	}
	var rows []achievementRow
	q := "SELECT * FROM portfolio_achievements" + w.String() + " ORDER BY date DESC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying achievements")
	}
	achs := make([]portfolio.Achievement, 0, len(rows))
	for _, row := range rows {
		achs = append(achs, repo.unboilAchievement(row))
	}
	return achs, nil
}

func (repo portfolioRepository) QueryReflections(ctx context.Context, filter portfolio.Filter, exec ...core.DBExecutor) ([]portfolio.Reflection, error) {
	w, ok := portfolioWhere(filter)
	if !ok {
		return []portfolio.Reflection{}, nil
	}
	var rows []reflectionRow
	q := "SELECT * FROM portfolio_reflections" + w.String() + " ORDER BY date DESC"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying reflections")
	}
	refs := make([]portfolio.Reflection, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, repo.unboilReflection(row))
	}
	return refs, nil
}
