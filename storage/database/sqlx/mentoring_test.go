package sqlxrepos_test

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
	"github.com/edpsychconnect/connect/core/mentoring"
	emailsvc "github.com/edpsychconnect/connect/services/email"
	logsvc "github.com/edpsychconnect/connect/services/logger"
	"github.com/edpsychconnect/connect/storage/database"
	sqlxrepos "github.com/edpsychconnect/connect/storage/database/sqlx"
)

// openTestDB connects to TEST_DATABASE_URL and migrates it, or skips the test.
func openTestDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	_, err = db.Exec(`TRUNCATE mentor_profiles, cpd_profiles, mentorship_requests, mentorships,
		mentorship_goals, mentorship_meetings, mentorship_resources, mentorship_feedback,
		cpd_activities, portfolio_achievements, portfolio_reflections CASCADE`)
	require.NoError(t, err)
	return db
}

func newTestService(db *sqlx.DB) mentoring.Service {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	return mentoring.NewService(mentoring.Deps{
		Repo:          sqlxrepos.NewMentoringRepository(db),
		CPDRepo:       sqlxrepos.NewCPDRepository(db),
		PortfolioRepo: sqlxrepos.NewPortfolioRepository(db),
		Tx:            sqlxrepos.NewTxRunner(db),
		MailSvc:       emailsvc.NewConsoleServiceMock(conf, logger),
		Logger:        logger,
	})
}

func TestPostgres_mentorshipLifecycle(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, mentoring.UpdateProfile{
		UserID: "M1", Role: mentoring.RoleMentor, Expertise: []int{1, 2}, Phase: "primary", YearsExperience: 12,
	})
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, mentoring.UpdateProfile{UserID: "E1", Role: mentoring.RoleMentee})
	require.NoError(t, err)

	mentors, err := svc.FindMentors(ctx, mentoring.MentorFilter{ExcludeUserID: "E1", Expertise: 2})
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, "M1", mentors[0].UserID)

	nr := mentoring.NewRequest{
		MentorID:   "M1",
		MenteeID:   "E1",
		Message:    "Would you mentor me?",
		FocusAreas: []int{1},
		Goals:      []string{"Improve report writing"},
		Duration:   3,
		Frequency:  "monthly",
	}
	req, err := svc.RequestMentorship(ctx, nr)
	require.NoError(t, err)
	assert.Equal(t, mentoring.RequestPending, req.Status)

	_, err = svc.RequestMentorship(ctx, nr)
	assert.Equal(t, mentoring.ErrPendingRequestExists, errors.Cause(err))

	res, err := svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
	require.NoError(t, err)
	require.NotNil(t, res.Mentorship)
	ms := *res.Mentorship
	assert.Equal(t, mentoring.StatusActive, ms.Status)
	assert.Equal(t, ms.StartDate.AddDate(0, 3, 0), ms.EndDate)

	detail, err := svc.GetMentorship(ctx, ms.ID)
	require.NoError(t, err)
	require.Len(t, detail.Goals, 1)
	assert.Equal(t, mentoring.GoalNotStarted, detail.Goals[0].Status)

	_, err = svc.AddMeeting(ctx, mentoring.NewMeeting{
		MentorshipID: ms.ID,
		Date:         time.Now().UTC(),
		Duration:     60,
		Format:       "video",
		Status:       mentoring.MeetingCompleted,
	})
	require.NoError(t, err)

	_, err = svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID, Reflection: "Great experience"})
	require.NoError(t, err)

	for _, userID := range []string{"M1", "E1"} {
		acts, err := svc.CPDActivities(ctx, userID)
		require.NoError(t, err)
		require.Len(t, acts, 1, userID)
		assert.Equal(t, ms.ID, acts[0].MentorshipID)
		assert.Equal(t, 60, acts[0].Duration)
		assert.InDelta(t, 1.0, acts[0].Points, 0.0001)
		assert.Equal(t, cpd.StatusCompleted, acts[0].Status)
		assert.Equal(t, "Great experience", acts[0].Reflection)
	}

	_, err = svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID})
	assert.Error(t, err)
}

func TestPostgres_notFound(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	_, err := svc.GetMentorship(ctx, "not-a-uuid")
	assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))

	_, err = svc.GetMentorship(ctx, "1f0f6bd4-4a43-4d8c-9b62-0c6a9a3f3c11")
	assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))

	_, err = svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: "1f0f6bd4-4a43-4d8c-9b62-0c6a9a3f3c11", Response: mentoring.ResponseAccept})
	assert.Equal(t, mentoring.ErrRequestNotFound, errors.Cause(err))
}
