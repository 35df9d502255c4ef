package inmemdb

import (
	"context"
	"sort"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/portfolio"
)

type portfolioRepository struct {
	db *DB
}

var _ portfolio.Repository = (*portfolioRepository)(nil) // interface compliance check

func NewPortfolioRepository(db *DB) *portfolioRepository {
	return &portfolioRepository{db: db}
}

func (repo *portfolioRepository) AddAchievement(_ context.Context, ach portfolio.Achievement, _ ...core.DBExecutor) (portfolio.Achievement, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing := repo.db.tables.achievements.filter(func(a portfolio.Achievement) bool {
		return a.UserID == ach.UserID && a.SourceKey == ach.SourceKey
	})
	if len(existing) > 0 {
		return existing[0], false, nil
	}
	repo.db.tables.achievements.put(ach.ID, ach)
	return ach, true, nil
}

func (repo *portfolioRepository) AddReflection(_ context.Context, ref portfolio.Reflection, _ ...core.DBExecutor) (portfolio.Reflection, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.reflections.put(ref.ID, ref)
	return ref, nil
}

func matches(filter portfolio.Filter, userID, mentorshipID string) bool {
	return (filter.UserID == "" || userID == filter.UserID) &&
		(filter.MentorshipID == "" || mentorshipID == filter.MentorshipID)
}

func (repo *portfolioRepository) QueryAchievements(_ context.Context, filter portfolio.Filter, _ ...core.DBExecutor) ([]portfolio.Achievement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	achs := repo.db.tables.achievements.filter(func(a portfolio.Achievement) bool {
		return matches(filter, a.UserID, a.MentorshipID)
	})
	sort.SliceStable(achs, func(i, j int) bool { return achs[i].Date.After(achs[j].Date) })
	return achs, nil
}

func (repo *portfolioRepository) QueryReflections(_ context.Context, filter portfolio.Filter, _ ...core.DBExecutor) ([]portfolio.Reflection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	refs := repo.db.tables.reflections.filter(func(r portfolio.Reflection) bool {
		return matches(filter, r.UserID, r.MentorshipID)
	})
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Date.After(refs[j].Date) })
	return refs, nil
}
