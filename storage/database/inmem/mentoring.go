package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
)

type mentoringRepository struct {
	db *DB
}

var _ mentoring.Repository = (*mentoringRepository)(nil) // interface compliance check

func NewMentoringRepository(db *DB) *mentoringRepository {
	return &mentoringRepository{db: db}
}

// Profiles

func (repo *mentoringRepository) UpsertProfile(_ context.Context, prof mentoring.Profile, _ ...core.DBExecutor) (mentoring.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.tables.profiles.get(prof.UserID); ok {
		prof.CreatedAt = orig.CreatedAt
	}
	repo.db.tables.profiles.put(prof.UserID, prof)
	return prof, nil
}

func (repo *mentoringRepository) GetProfile(_ context.Context, userID string, _ ...core.DBExecutor) (mentoring.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.tables.profiles.get(userID); ok {
		return prof, nil
	}
	return mentoring.Profile{}, mentoring.ErrProfileNotFound
}

func (repo *mentoringRepository) QueryMentors(_ context.Context, filter mentoring.MentorFilter, _ ...core.DBExecutor) ([]mentoring.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mentors := repo.db.tables.profiles.filter(func(prof mentoring.Profile) bool {
		switch {
		case !prof.IsMentor():
			return false
		case filter.ExcludeUserID != "" && prof.UserID == filter.ExcludeUserID:
			return false
		case filter.Expertise != 0 && !containsInt(prof.Expertise, filter.Expertise):
			return false
		case filter.Phase != "" && !strings.EqualFold(prof.Phase, filter.Phase):
			return false
		case filter.Subject != "" && !containsFold(prof.Subjects, filter.Subject):
			return false
		}
		return true
	})
	sort.SliceStable(mentors, func(i, j int) bool {
		if mentors[i].YearsExperience != mentors[j].YearsExperience {
			return mentors[i].YearsExperience > mentors[j].YearsExperience
		}
		return mentors[i].UserID < mentors[j].UserID
	})
	return mentors, nil
}

func containsInt(ints []int, i int) bool {
	for _, v := range ints {
		if v == i {
			return true
		}
	}
	return false
}

func containsFold(ss []string, s string) bool {
	for _, v := range ss {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

var (
	requestComparators = map[string]func(a, b mentoring.MentorshipRequest) int{
		"createdAt":   func(a, b mentoring.MentorshipRequest) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
		"respondedAt": func(a, b mentoring.MentorshipRequest) int { return compareTimePtrs(a.RespondedAt, b.RespondedAt) },
		"status":      func(a, b mentoring.MentorshipRequest) int { return strings.Compare(a.Status, b.Status) },
		"duration":    func(a, b mentoring.MentorshipRequest) int { return compareInts(int(a.Duration), int(b.Duration)) },
	}
	mentorshipComparators = map[string]func(a, b mentoring.Mentorship) int{
		"startDate": func(a, b mentoring.Mentorship) int { return compareTimes(a.StartDate, b.StartDate) },
		"endDate":   func(a, b mentoring.Mentorship) int { return compareTimes(a.EndDate, b.EndDate) },
		"createdAt": func(a, b mentoring.Mentorship) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
		"status":    func(a, b mentoring.Mentorship) int { return strings.Compare(a.Status, b.Status) },
	}
)

// userMatches selects the records of userID as mentor, mentee or either.
func userMatches(mentorID, menteeID, userID, role string) bool {
	if userID == "" {
		return true
	}
	switch role {
	case mentoring.RoleMentor:
		return mentorID == userID
	case mentoring.RoleMentee:
		return menteeID == userID
	default:
		return mentorID == userID || menteeID == userID
	}
}

// Requests

func (repo *mentoringRepository) CreateRequest(_ context.Context, req mentoring.MentorshipRequest, _ ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if req.Status == mentoring.RequestPending && repo.hasPending(req.MentorID, req.MenteeID) {
		return mentoring.MentorshipRequest{}, mentoring.ErrPendingRequestExists
	}
	repo.db.tables.requests.put(req.ID, req)
	return req, nil
}

func (repo *mentoringRepository) hasPending(mentorID, menteeID string) bool {
	pending := repo.db.tables.requests.filter(func(r mentoring.MentorshipRequest) bool {
		return r.MentorID == mentorID && r.MenteeID == menteeID && r.Status == mentoring.RequestPending
	})
	return len(pending) > 0
}

func (repo *mentoringRepository) GetRequest(_ context.Context, id string, _ ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.tables.requests.get(id); ok {
		return req, nil
	}
	return mentoring.MentorshipRequest{}, mentoring.ErrRequestNotFound
}

func (repo *mentoringRepository) HasPendingRequest(_ context.Context, mentorID, menteeID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.hasPending(mentorID, menteeID), nil
}

func (repo *mentoringRepository) UpdateRequest(_ context.Context, req mentoring.MentorshipRequest, _ ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only the response fields are writable
	orig, ok := repo.db.tables.requests.get(req.ID)
	if !ok {
		return mentoring.MentorshipRequest{}, mentoring.ErrRequestNotFound
	}
	orig.Status = req.Status
	orig.ResponseMessage = req.ResponseMessage
	orig.RespondedAt = req.RespondedAt
	orig.UpdatedAt = req.UpdatedAt
	repo.db.tables.requests.put(orig.ID, orig)
	return orig, nil
}

func (repo *mentoringRepository) QueryRequests(_ context.Context, filter mentoring.RequestFilter, _ ...core.DBExecutor) ([]mentoring.MentorshipRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := repo.db.tables.requests.filter(func(r mentoring.MentorshipRequest) bool {
		return userMatches(r.MentorID, r.MenteeID, filter.UserID, filter.Role) &&
			(filter.Status == "" || r.Status == filter.Status)
	})
	// newest first
	for i, j := 0, len(reqs)-1; i < j; i, j = i+1, j-1 {
		reqs[i], reqs[j] = reqs[j], reqs[i]
	}
	sortRows(reqs, filter.Ordering, requestComparators, core.DBOrdering{Field: "createdAt"})
	return reqs, nil
}

// Mentorships

func (repo *mentoringRepository) CreateMentorship(_ context.Context, ms mentoring.Mentorship, _ ...core.DBExecutor) (mentoring.Mentorship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ms.Goals = []mentoring.Goal{}
	repo.db.tables.mentorships.put(ms.ID, ms)
	return ms, nil
}

func (repo *mentoringRepository) GetMentorship(_ context.Context, id string, _ ...core.DBExecutor) (mentoring.Mentorship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ms, ok := repo.db.tables.mentorships.get(id); ok {
		return ms, nil
	}
	return mentoring.Mentorship{}, mentoring.ErrMentorshipNotFound
}

func (repo *mentoringRepository) UpdateMentorship(_ context.Context, ms mentoring.Mentorship, _ ...core.DBExecutor) (mentoring.Mentorship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tables.mentorships.get(ms.ID)
	if !ok {
		return mentoring.Mentorship{}, mentoring.ErrMentorshipNotFound
	}
	orig.Status = ms.Status
	orig.EndDate = ms.EndDate
	orig.FocusAreas = ms.FocusAreas
	orig.Frequency = ms.Frequency
	orig.CompletedAt = ms.CompletedAt
	orig.UpdatedAt = ms.UpdatedAt
	repo.db.tables.mentorships.put(orig.ID, orig)
	return orig, nil
}

func (repo *mentoringRepository) QueryMentorships(_ context.Context, filter mentoring.MentorshipFilter, _ ...core.DBExecutor) ([]mentoring.Mentorship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mss := repo.db.tables.mentorships.filter(func(ms mentoring.Mentorship) bool {
		return userMatches(ms.MentorID, ms.MenteeID, filter.UserID, filter.Role) &&
			(filter.Status == "" || ms.Status == filter.Status)
	})
	sortRows(mss, filter.Ordering, mentorshipComparators, core.DBOrdering{Field: "startDate"})
	return mss, nil
}

// Goals

func (repo *mentoringRepository) CreateGoals(_ context.Context, goals []mentoring.Goal, _ ...core.DBExecutor) ([]mentoring.Goal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, g := range goals {
		repo.db.tables.goals.put(g.ID, g)
	}
	saved := make([]mentoring.Goal, len(goals))
	copy(saved, goals)
	return saved, nil
}

func (repo *mentoringRepository) GetGoal(_ context.Context, mentorshipID, goalID string, _ ...core.DBExecutor) (mentoring.Goal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.tables.goals.get(goalID); ok && g.MentorshipID == mentorshipID {
		return g, nil
	}
	return mentoring.Goal{}, mentoring.ErrGoalNotFound
}

func (repo *mentoringRepository) UpdateGoal(_ context.Context, goal mentoring.Goal, _ ...core.DBExecutor) (mentoring.Goal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tables.goals.get(goal.ID)
	if !ok {
		return mentoring.Goal{}, mentoring.ErrGoalNotFound
	}
	orig.Text = goal.Text
	orig.Status = goal.Status
	orig.CompletedAt = goal.CompletedAt
	orig.UpdatedAt = goal.UpdatedAt
	repo.db.tables.goals.put(orig.ID, orig)
	return orig, nil
}

func (repo *mentoringRepository) QueryGoals(_ context.Context, mentorshipIDs []string, _ ...core.DBExecutor) ([]mentoring.Goal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := stringSet(mentorshipIDs)
	goals := repo.db.tables.goals.filter(func(g mentoring.Goal) bool { return ids[g.MentorshipID] })
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].MentorshipID != goals[j].MentorshipID {
			return goals[i].MentorshipID < goals[j].MentorshipID
		}
		return goals[i].Position < goals[j].Position
	})
	return goals, nil
}

func stringSet(ss []string) map[string]bool {
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[s] = true
	}
	return set
}

// Meetings

func (repo *mentoringRepository) CreateMeeting(_ context.Context, mtg mentoring.Meeting, _ ...core.DBExecutor) (mentoring.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.meetings.put(mtg.ID, mtg)
	return mtg, nil
}

func (repo *mentoringRepository) GetMeeting(_ context.Context, id string, _ ...core.DBExecutor) (mentoring.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if mtg, ok := repo.db.tables.meetings.get(id); ok {
		return mtg, nil
	}
	return mentoring.Meeting{}, mentoring.ErrMeetingNotFound
}

func (repo *mentoringRepository) UpdateMeeting(_ context.Context, mtg mentoring.Meeting, _ ...core.DBExecutor) (mentoring.Meeting, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tables.meetings.get(mtg.ID)
	if !ok {
		return mentoring.Meeting{}, mentoring.ErrMeetingNotFound
	}
	mtg.MentorshipID = orig.MentorshipID
	mtg.CreatedAt = orig.CreatedAt
	repo.db.tables.meetings.put(mtg.ID, mtg)
	return mtg, nil
}

func (repo *mentoringRepository) QueryMeetings(_ context.Context, mentorshipIDs []string, _ ...core.DBExecutor) ([]mentoring.Meeting, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := stringSet(mentorshipIDs)
	mtgs := repo.db.tables.meetings.filter(func(mtg mentoring.Meeting) bool { return ids[mtg.MentorshipID] })
	sort.SliceStable(mtgs, func(i, j int) bool { return mtgs[i].Date.Before(mtgs[j].Date) })
	return mtgs, nil
}

// Resources & feedback

func (repo *mentoringRepository) CreateResource(_ context.Context, res mentoring.Resource, _ ...core.DBExecutor) (mentoring.Resource, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.resources.put(res.ID, res)
	return res, nil
}

func (repo *mentoringRepository) QueryResources(_ context.Context, mentorshipID string, _ ...core.DBExecutor) ([]mentoring.Resource, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.db.tables.resources.filter(func(res mentoring.Resource) bool {
		return res.MentorshipID == mentorshipID
	}), nil
}

func (repo *mentoringRepository) CreateFeedback(_ context.Context, fb mentoring.Feedback, _ ...core.DBExecutor) (mentoring.Feedback, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.tables.feedback.put(fb.ID, fb)
	return fb, nil
}

func (repo *mentoringRepository) QueryFeedback(_ context.Context, mentorshipID string, _ ...core.DBExecutor) ([]mentoring.Feedback, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.db.tables.feedback.filter(func(fb mentoring.Feedback) bool {
		return fb.MentorshipID == mentorshipID
	}), nil
}
