package mentoring

import (
	"context"

	"github.com/edpsychconnect/connect/core"
)

var (
	// errors
	ErrProfileNotFound    = core.NewNotFoundError("profile")
	ErrRequestNotFound    = core.NewNotFoundError("mentorship request")
	ErrMentorshipNotFound = core.NewNotFoundError("mentorship")
	ErrGoalNotFound       = core.NewNotFoundError("goal")
	ErrMeetingNotFound    = core.NewNotFoundError("meeting")

	ErrPendingRequestExists = core.NewFieldError("mentorId", "a pending request to this mentor already exists")
)

// Repository persists the mentoring records.
// Reads made with a transactional exec lock the returned rows until the transaction ends.
type Repository interface {
	UpsertProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
	GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (Profile, error)
	// QueryMentors returns the profiles with role mentor or both matching the filter.
	QueryMentors(ctx context.Context, filter MentorFilter, exec ...core.DBExecutor) ([]Profile, error)

	// CreateRequest returns ErrPendingRequestExists when the pair already has a pending request.
	CreateRequest(ctx context.Context, req MentorshipRequest, exec ...core.DBExecutor) (MentorshipRequest, error)
	GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (MentorshipRequest, error)
	HasPendingRequest(ctx context.Context, mentorID, menteeID string, exec ...core.DBExecutor) (bool, error)
	UpdateRequest(ctx context.Context, req MentorshipRequest, exec ...core.DBExecutor) (MentorshipRequest, error)
	QueryRequests(ctx context.Context, filter RequestFilter, exec ...core.DBExecutor) ([]MentorshipRequest, error)

	// CreateMentorship does not persist ms.Goals; see CreateGoals.
	CreateMentorship(ctx context.Context, ms Mentorship, exec ...core.DBExecutor) (Mentorship, error)
	// GetMentorship returns the mentorship without its goals.
	GetMentorship(ctx context.Context, id string, exec ...core.DBExecutor) (Mentorship, error)
	UpdateMentorship(ctx context.Context, ms Mentorship, exec ...core.DBExecutor) (Mentorship, error)
	QueryMentorships(ctx context.Context, filter MentorshipFilter, exec ...core.DBExecutor) ([]Mentorship, error)

	CreateGoals(ctx context.Context, goals []Goal, exec ...core.DBExecutor) ([]Goal, error)
	GetGoal(ctx context.Context, mentorshipID, goalID string, exec ...core.DBExecutor) (Goal, error)
	UpdateGoal(ctx context.Context, goal Goal, exec ...core.DBExecutor) (Goal, error)
	// QueryGoals returns the goals of the mentorships ordered by mentorship and position.
	QueryGoals(ctx context.Context, mentorshipIDs []string, exec ...core.DBExecutor) ([]Goal, error)

	CreateMeeting(ctx context.Context, mtg Meeting, exec ...core.DBExecutor) (Meeting, error)
	GetMeeting(ctx context.Context, id string, exec ...core.DBExecutor) (Meeting, error)
	UpdateMeeting(ctx context.Context, mtg Meeting, exec ...core.DBExecutor) (Meeting, error)
	// QueryMeetings returns the meetings of the mentorships ordered by date.
	QueryMeetings(ctx context.Context, mentorshipIDs []string, exec ...core.DBExecutor) ([]Meeting, error)

	CreateResource(ctx context.Context, res Resource, exec ...core.DBExecutor) (Resource, error)
	QueryResources(ctx context.Context, mentorshipID string, exec ...core.DBExecutor) ([]Resource, error)

	CreateFeedback(ctx context.Context, fb Feedback, exec ...core.DBExecutor) (Feedback, error)
	QueryFeedback(ctx context.Context, mentorshipID string, exec ...core.DBExecutor) ([]Feedback, error)
}
