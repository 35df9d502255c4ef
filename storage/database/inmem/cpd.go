package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
)

type cpdRepository struct {
	db *DB
}

var _ cpd.Repository = (*cpdRepository)(nil) // interface compliance check

func NewCPDRepository(db *DB) *cpdRepository {
	return &cpdRepository{db: db}
}

func (repo *cpdRepository) UpsertProfile(_ context.Context, prof cpd.Profile, _ ...core.DBExecutor) (cpd.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.tables.cpdProfiles.get(prof.UserID); ok {
		orig.UpdatedAt = prof.UpdatedAt
		prof = orig
	}
	repo.db.tables.cpdProfiles.put(prof.UserID, prof)
	return prof, nil
}

func (repo *cpdRepository) GetProfile(_ context.Context, userID string, _ ...core.DBExecutor) (cpd.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.tables.cpdProfiles.get(userID); ok {
		return prof, nil
	}
	return cpd.Profile{}, cpd.ErrProfileNotFound
}

func (repo *cpdRepository) CreateActivities(_ context.Context, acts []cpd.Activity, _ ...core.DBExecutor) ([]cpd.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, act := range acts {
		repo.db.tables.activities.put(act.ID, act)
	}
	saved := make([]cpd.Activity, len(acts))
	copy(saved, acts)
	return saved, nil
}

func (repo *cpdRepository) updateMentorshipActivities(mentorshipID string, update func(act *cpd.Activity)) int {
	acts := repo.db.tables.activities.filter(func(act cpd.Activity) bool { return act.MentorshipID == mentorshipID })
	for _, act := range acts {
		update(&act)
		repo.db.tables.activities.put(act.ID, act)
	}
	return len(acts)
}

func (repo *cpdRepository) CreditMentorshipActivities(_ context.Context, mentorshipID string, minutes int, points float64, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	return repo.updateMentorshipActivities(mentorshipID, func(act *cpd.Activity) {
		act.Duration += minutes
		act.Points += points
		act.UpdatedAt = now
	}), nil
}

func (repo *cpdRepository) FinalizeMentorshipActivities(_ context.Context, mentorshipID, reflection string, at time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	return repo.updateMentorshipActivities(mentorshipID, func(act *cpd.Activity) {
		act.Status = cpd.StatusCompleted
		act.Reflection = reflection
		act.UpdatedAt = at
	}), nil
}

func (repo *cpdRepository) QueryActivities(_ context.Context, filter cpd.ActivityFilter, _ ...core.DBExecutor) ([]cpd.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	acts := repo.db.tables.activities.filter(func(act cpd.Activity) bool {
		return (filter.UserID == "" || act.UserID == filter.UserID) &&
			(filter.MentorshipID == "" || act.MentorshipID == filter.MentorshipID) &&
			(filter.Type == "" || act.Type == filter.Type)
	})
	sort.SliceStable(acts, func(i, j int) bool { return acts[i].Date.After(acts[j].Date) })
	return acts, nil
}
