package cpd

import (
	"context"
	"time"

	"github.com/edpsychconnect/connect/core"
)

var ErrProfileNotFound = core.NewNotFoundError("cpd profile")

type Repository interface {
	// UpsertProfile creates the CPD profile of a user or refreshes its UpdatedAt.
	UpsertProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
	GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (Profile, error)
	CreateActivities(ctx context.Context, acts []Activity, exec ...core.DBExecutor) ([]Activity, error)
	// CreditMentorshipActivities atomically adds minutes and points to every activity of the mentorship.
	// It returns the number of activities credited.
	CreditMentorshipActivities(ctx context.Context, mentorshipID string, minutes int, points float64, exec ...core.DBExecutor) (int, error)
	// FinalizeMentorshipActivities marks every activity of the mentorship as completed.
	FinalizeMentorshipActivities(ctx context.Context, mentorshipID, reflection string, at time.Time, exec ...core.DBExecutor) (int, error)
	QueryActivities(ctx context.Context, filter ActivityFilter, exec ...core.DBExecutor) ([]Activity, error)
}
