package mentoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
	"github.com/edpsychconnect/connect/core/mentoring"
	"github.com/edpsychconnect/connect/core/portfolio"
	"github.com/edpsychconnect/connect/storage/database/inmem"
	"github.com/edpsychconnect/connect/tests"
)

var (
	ctx = context.Background()
	env = testutil.NewEnv()
)

func setup(t *testing.T) {
	t.Helper()
	env.Reset()
}

func intPtr(i int) *int              { return &i }
func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.Truef(t, ok, "want *core.ValidationError, got %T (%v)", errors.Cause(err), err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func mentoringActivities(t *testing.T, mentorshipID string) map[string]cpd.Activity {
	t.Helper()
	acts := make(map[string]cpd.Activity)
	for _, userID := range []string{"M1", "E1"} {
		userActs, err := env.Svc.CPDActivities(ctx, userID)
		require.NoError(t, err)
		for _, act := range userActs {
			if act.MentorshipID == mentorshipID {
				acts[act.Role] = act
			}
		}
	}
	return acts
}

func TestService_UpdateProfile(t *testing.T) {
	setup(t)

	up := mentoring.UpdateProfile{
		UserID:          "M1",
		Role:            mentoring.RoleMentor,
		Phase:           "Secondary",
		YearsExperience: 12,
		Expertise:       []int{1, 2},
		Subjects:        []string{"Maths"},
	}
	first := testutil.CreateProfile(t, env, up)
	assert.Equal(t, "M1", first.UserID)
	assert.Equal(t, float64(cpd.DefaultTargetPoints), first.CPDProfile.TargetPoints)

	up.Role = mentoring.RoleBoth
	up.Bio = "Educational psychologist"
	second := testutil.CreateProfile(t, env, up)
	assert.Equal(t, mentoring.RoleBoth, second.Role)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.CPDProfile.CreatedAt, second.CPDProfile.CreatedAt)

	got, err := env.Svc.GetProfile(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, "Educational psychologist", got.Bio)
	assert.Equal(t, "M1", got.CPDProfile.UserID)

	mentors, err := env.Svc.FindMentors(ctx, mentoring.MentorFilter{})
	require.NoError(t, err)
	assert.Len(t, mentors, 1)

	_, err = env.Svc.GetProfile(ctx, "nobody")
	assert.True(t, core.IsNotFound(err))
}

func TestService_FindMentors(t *testing.T) {
	setup(t)

	testutil.CreateProfile(t, env, mentoring.UpdateProfile{
		UserID: "senior", Role: mentoring.RoleMentor, Phase: "Secondary", YearsExperience: 20,
		Expertise: []int{1, 3}, Subjects: []string{"Maths"},
	})
	testutil.CreateProfile(t, env, mentoring.UpdateProfile{
		UserID: "junior", Role: mentoring.RoleBoth, Phase: "Primary", YearsExperience: 4,
		Expertise: []int{3}, Subjects: []string{"English"},
	})
	testutil.CreateProfile(t, env, mentoring.UpdateProfile{
		UserID: "mentee", Role: mentoring.RoleMentee, Phase: "Primary", YearsExperience: 1, Expertise: []int{3},
	})

	ids := func(profs []mentoring.Profile) []string {
		res := make([]string, 0, len(profs))
		for _, p := range profs {
			res = append(res, p.UserID)
		}
		return res
	}

	tests := []struct {
		name   string
		filter mentoring.MentorFilter
		want   []string
	}{
		{name: "all mentors", want: []string{"senior", "junior"}},
		{name: "exclude self", filter: mentoring.MentorFilter{ExcludeUserID: "senior"}, want: []string{"junior"}},
		{name: "expertise", filter: mentoring.MentorFilter{Expertise: 1}, want: []string{"senior"}},
		{name: "shared expertise", filter: mentoring.MentorFilter{Expertise: 3}, want: []string{"senior", "junior"}},
		{name: "phase", filter: mentoring.MentorFilter{Phase: "Primary"}, want: []string{"junior"}},
		{name: "subject", filter: mentoring.MentorFilter{Subject: "English"}, want: []string{"junior"}},
		{name: "no match", filter: mentoring.MentorFilter{Expertise: 15}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Svc.FindMentors(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestService_RequestMentorship(t *testing.T) {
	setup(t)

	testutil.CreateProfile(t, env, mentoring.UpdateProfile{UserID: "M1", Role: mentoring.RoleMentor, ContactEmail: "m1@test.uk"})

	req := testutil.CreateRequest(t, env, "M1", "E1", []int{1, 2})
	assert.Equal(t, mentoring.RequestPending, req.Status)
	assert.Equal(t, 6, req.Duration)

	sent := env.MailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "m1@test.uk", sent[0].To[0].Address)
	assert.Equal(t, "mentorship_request", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Would you mentor me?")

	// a second pending request to the same mentor is rejected
	_, err := env.Svc.RequestMentorship(ctx, mentoring.NewRequest{
		MentorID: "M1", MenteeID: "E1", Message: "again", FocusAreas: []int{1},
		Goals: []string{"goal"}, Duration: 3, Frequency: "weekly",
	})
	assert.Equal(t, mentoring.ErrPendingRequestExists, errors.Cause(err))
	assert.Contains(t, fieldErrors(t, err), "mentorId")

	// mentors without contact email are not notified
	env.MailSvc.Reset()
	testutil.CreateRequest(t, env, "M2", "E1", []int{3})
	assert.Empty(t, env.MailSvc.SentMessages())

	reqs, err := env.Svc.QueryRequests(ctx, mentoring.RequestFilter{UserID: "E1", Role: mentoring.RoleMentee})
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	reqs, err = env.Svc.QueryRequests(ctx, mentoring.RequestFilter{UserID: "M1", Role: mentoring.RoleMentor})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, req.ID, reqs[0].ID)

	reqs, err = env.Svc.QueryRequests(ctx, mentoring.RequestFilter{UserID: "M1", Role: mentoring.RoleMentee})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestService_QueryOrdering(t *testing.T) {
	setup(t)

	restore := mentoring.SetNow(time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC))
	defer restore()
	jan := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})
	mentoring.SetNow(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC))
	mar := testutil.CreateMentorship(t, env, "M2", "E1", []int{2})
	mentoring.SetNow(time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC))
	feb := testutil.CreateMentorship(t, env, "M3", "E1", []int{3})
	_, err := env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: feb.ID})
	require.NoError(t, err)

	mentorshipIDs := func(ordering ...core.DBOrdering) []string {
		mss, err := env.Svc.QueryMentorships(ctx, mentoring.MentorshipFilter{UserID: "E1", Ordering: ordering})
		require.NoError(t, err)
		ids := make([]string, 0, len(mss))
		for _, ms := range mss {
			ids = append(ids, ms.ID)
		}
		return ids
	}
	assert.Equal(t, []string{mar.ID, feb.ID, jan.ID}, mentorshipIDs())
	assert.Equal(t, []string{jan.ID, feb.ID, mar.ID}, mentorshipIDs(core.DBOrdering{Field: "startDate", Ascending: true}))
	assert.Equal(t, []string{mar.ID, jan.ID, feb.ID}, mentorshipIDs(
		core.DBOrdering{Field: "status", Ascending: true},
		core.DBOrdering{Field: "startDate"},
	))

	reqs, err := env.Svc.QueryRequests(ctx, mentoring.RequestFilter{
		UserID: "E1", Ordering: []core.DBOrdering{{Field: "createdAt", Ascending: true}},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, []string{jan.RequestID, feb.RequestID, mar.RequestID}, []string{reqs[0].ID, reqs[1].ID, reqs[2].ID})

	_, err = env.Svc.QueryMentorships(ctx, mentoring.MentorshipFilter{UserID: "E1", Ordering: []core.DBOrdering{{Field: "mentorId"}}})
	assert.Equal(t, "cannot order by mentorId", fieldErrors(t, err)["ordering"])
	_, err = env.Svc.QueryRequests(ctx, mentoring.RequestFilter{UserID: "E1", Ordering: []core.DBOrdering{{Field: "message"}}})
	assert.Equal(t, "cannot order by message", fieldErrors(t, err)["ordering"])
}

func TestService_RespondToRequest(t *testing.T) {
	setup(t)

	now := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	defer mentoring.SetNow(now)()

	testutil.CreateProfile(t, env, mentoring.UpdateProfile{UserID: "E1", Role: mentoring.RoleMentee, ContactEmail: "e1@test.uk"})

	t.Run("decline", func(t *testing.T) {
		req := testutil.CreateRequest(t, env, "M1", "E1", []int{1})
		res, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{
			RequestID: req.ID, Response: mentoring.ResponseDecline, Message: "Sorry, I am fully booked.",
		})
		require.NoError(t, err)
		assert.Nil(t, res.Mentorship)
		assert.Equal(t, mentoring.RequestDeclined, res.Request.Status)
		assert.Equal(t, "Sorry, I am fully booked.", res.Request.ResponseMessage)
		require.NotNil(t, res.Request.RespondedAt)
		assert.Equal(t, now, *res.Request.RespondedAt)

		mss, err := env.Svc.QueryMentorships(ctx, mentoring.MentorshipFilter{UserID: "E1"})
		require.NoError(t, err)
		assert.Empty(t, mss)

		sent := env.MailSvc.SentMessages()
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, "e1@test.uk", last.To[0].Address)
		assert.Equal(t, "mentorship_response", last.TemplateName)

		// already answered
		_, err = env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
		assert.Contains(t, fieldErrors(t, err), "requestId")
	})

	t.Run("accept", func(t *testing.T) {
		req := testutil.CreateRequest(t, env, "M1", "E1", []int{1, 2}, "Goal A", "Goal B")
		res, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
		require.NoError(t, err)
		assert.Equal(t, mentoring.RequestAccepted, res.Request.Status)
		require.NotNil(t, res.Mentorship)

		ms := *res.Mentorship
		assert.Equal(t, mentoring.StatusActive, ms.Status)
		assert.Equal(t, req.ID, ms.RequestID)
		assert.Equal(t, now, ms.StartDate)
		assert.Equal(t, time.Date(2024, time.July, 31, 10, 0, 0, 0, time.UTC), ms.EndDate)
		assert.Equal(t, []int{1, 2}, ms.FocusAreas)
		require.Len(t, ms.Goals, 2)
		for i, g := range ms.Goals {
			assert.Equal(t, mentoring.GoalNotStarted, g.Status)
			assert.Equal(t, i, g.Position)
			assert.NotEmpty(t, g.ID)
		}
		assert.Equal(t, "Goal A", ms.Goals[0].Text)

		acts := mentoringActivities(t, ms.ID)
		require.Len(t, acts, 2)
		for _, role := range []string{cpd.RoleMentor, cpd.RoleMentee} {
			act := acts[role]
			assert.Equal(t, cpd.StatusInProgress, act.Status)
			assert.Equal(t, cpd.TypeMentoring, act.Type)
			assert.Zero(t, act.Duration)
			assert.Zero(t, act.Points)
		}
		assert.Equal(t, "M1", acts[cpd.RoleMentor].UserID)
		assert.Equal(t, "E1", acts[cpd.RoleMentee].UserID)

		// a new request may follow once the previous one was answered
		testutil.CreateRequest(t, env, "M1", "E1", []int{3})
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: "unknown", Response: mentoring.ResponseAccept})
		assert.Equal(t, mentoring.ErrRequestNotFound, errors.Cause(err))
	})
}

func TestService_UpdateMentorship(t *testing.T) {
	setup(t)

	ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1}, "Goal A")

	newEnd := ms.StartDate.AddDate(1, 0, 0)
	got, err := env.Svc.UpdateMentorship(ctx, mentoring.UpdateMentorship{
		MentorshipID: ms.ID,
		FocusAreas:   []int{4, 5},
		Frequency:    strPtr("fortnightly"),
		EndDate:      &newEnd,
		NewGoals:     []string{"Goal B"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, got.FocusAreas)
	assert.Equal(t, "fortnightly", got.Frequency)
	assert.Equal(t, newEnd, got.EndDate)
	require.Len(t, got.Goals, 2)
	assert.Equal(t, "Goal B", got.Goals[1].Text)
	assert.Equal(t, 1, got.Goals[1].Position)

	_, err = env.Svc.UpdateMentorship(ctx, mentoring.UpdateMentorship{
		MentorshipID: ms.ID,
		EndDate:      timePtr(ms.StartDate.Add(-time.Hour)),
	})
	assert.Contains(t, fieldErrors(t, err), "endDate")

	_, err = env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID})
	require.NoError(t, err)
	_, err = env.Svc.UpdateMentorship(ctx, mentoring.UpdateMentorship{MentorshipID: ms.ID, Frequency: strPtr("weekly")})
	assert.Contains(t, fieldErrors(t, err), "mentorshipId")

	_, err = env.Svc.UpdateMentorship(ctx, mentoring.UpdateMentorship{MentorshipID: "unknown"})
	assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))
}

func TestService_Meetings(t *testing.T) {
	setup(t)

	ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})

	scheduled, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{
		MentorshipID: ms.ID, Date: time.Now(), Duration: 90, Format: "video", Status: mentoring.MeetingScheduled,
	})
	require.NoError(t, err)
	assert.Nil(t, scheduled.CPDCreditedAt)
	for _, act := range mentoringActivities(t, ms.ID) {
		assert.Zero(t, act.Duration)
	}

	// completing the meeting credits both participants once
	completed, err := env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: scheduled.ID, Status: strPtr(mentoring.MeetingCompleted)})
	require.NoError(t, err)
	assert.NotNil(t, completed.CPDCreditedAt)

	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: scheduled.ID, Status: strPtr(mentoring.MeetingCompleted)})
	require.NoError(t, err)
	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: scheduled.ID, Notes: strPtr("follow-up booked")})
	require.NoError(t, err)

	for _, act := range mentoringActivities(t, ms.ID) {
		assert.Equal(t, 90, act.Duration)
		assert.Equal(t, 1.5, act.Points)
	}

	// meetings added as completed are credited straight away
	_, err = env.Svc.AddMeeting(ctx, mentoring.NewMeeting{
		MentorshipID: ms.ID, Date: time.Now(), Duration: 30, Format: "in person", Status: mentoring.MeetingCompleted,
	})
	require.NoError(t, err)
	for _, act := range mentoringActivities(t, ms.ID) {
		assert.Equal(t, 120, act.Duration)
		assert.Equal(t, 2.0, act.Points)
	}

	mtgs, err := env.Svc.QueryMeetings(ctx, ms.ID, "")
	require.NoError(t, err)
	assert.Len(t, mtgs, 2)

	mtgs, err = env.Svc.QueryMeetings(ctx, "", "E1")
	require.NoError(t, err)
	assert.Len(t, mtgs, 2)

	mtgs, err = env.Svc.QueryMeetings(ctx, "", "nobody")
	require.NoError(t, err)
	assert.Empty(t, mtgs)

	_, err = env.Svc.QueryMeetings(ctx, "unknown", "")
	assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))

	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: "unknown", Duration: intPtr(10)})
	assert.Equal(t, mentoring.ErrMeetingNotFound, errors.Cause(err))

	// only active mentorships accept meetings
	pending, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{
		MentorshipID: ms.ID, Date: time.Now(), Duration: 120, Format: "video", Status: mentoring.MeetingScheduled,
	})
	require.NoError(t, err)
	_, err = env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID})
	require.NoError(t, err)
	_, err = env.Svc.AddMeeting(ctx, mentoring.NewMeeting{MentorshipID: ms.ID, Date: time.Now(), Duration: 30, Format: "video"})
	assert.Contains(t, fieldErrors(t, err), "mentorshipId")

	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: pending.ID, Status: strPtr(mentoring.MeetingCompleted)})
	assert.Contains(t, fieldErrors(t, err), "meetingId")
	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: pending.ID, Duration: intPtr(45)})
	assert.Contains(t, fieldErrors(t, err), "meetingId")
	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: pending.ID, Notes: strPtr("never happened")})
	require.NoError(t, err)

	for role, act := range mentoringActivities(t, ms.ID) {
		assert.Equal(t, cpd.StatusCompleted, act.Status, role)
		assert.Equal(t, 120, act.Duration, role)
		assert.Equal(t, 2.0, act.Points, role)
	}
	mtgs, err = env.Svc.QueryMeetings(ctx, ms.ID, "")
	require.NoError(t, err)
	for _, mtg := range mtgs {
		if mtg.ID == pending.ID {
			assert.Equal(t, mentoring.MeetingScheduled, mtg.Status)
			assert.Nil(t, mtg.CPDCreditedAt)
		}
	}
}

func TestService_ResourcesAndFeedback(t *testing.T) {
	setup(t)

	ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})
	other := testutil.CreateMentorship(t, env, "M2", "E2", []int{1})
	otherMtg, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{MentorshipID: other.ID, Date: time.Now(), Duration: 30, Format: "video"})
	require.NoError(t, err)
	mtg, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{MentorshipID: ms.ID, Date: time.Now(), Duration: 30, Format: "video"})
	require.NoError(t, err)

	res, err := env.Svc.AddResource(ctx, mentoring.NewResource{
		MentorshipID: ms.ID, Title: "Reading list", Type: "document", URL: "https://example.com/list", AddedBy: "M1",
	})
	require.NoError(t, err)
	assert.Equal(t, ms.ID, res.MentorshipID)

	_, err = env.Svc.AddResource(ctx, mentoring.NewResource{MentorshipID: ms.ID, Title: "x", Type: "link", AddedBy: "E2"})
	assert.Contains(t, fieldErrors(t, err), "addedBy")

	_, err = env.Svc.AddResource(ctx, mentoring.NewResource{MentorshipID: "unknown", Title: "x", Type: "link"})
	assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))

	fb, err := env.Svc.AddFeedback(ctx, mentoring.NewFeedback{
		MentorshipID: ms.ID, FromUserID: "E1", ToUserID: "M1", Rating: 5, Comment: "Very helpful", MeetingID: mtg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)

	tests := []struct {
		name      string
		fb        mentoring.NewFeedback
		wantField string
	}{
		{name: "outsider author", fb: mentoring.NewFeedback{FromUserID: "E2", ToUserID: "M1"}, wantField: "fromUserId"},
		{name: "outsider recipient", fb: mentoring.NewFeedback{FromUserID: "E1", ToUserID: "M2"}, wantField: "toUserId"},
		{name: "unknown meeting", fb: mentoring.NewFeedback{FromUserID: "E1", ToUserID: "M1", MeetingID: "unknown"}, wantField: "meetingId"},
		{name: "foreign meeting", fb: mentoring.NewFeedback{FromUserID: "E1", ToUserID: "M1", MeetingID: otherMtg.ID}, wantField: "meetingId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fb.MentorshipID = ms.ID
			tt.fb.Rating = 3
			_, err := env.Svc.AddFeedback(ctx, tt.fb)
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}

	detail, err := env.Svc.GetMentorship(ctx, ms.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Resources, 1)
	assert.Len(t, detail.Feedback, 1)
	assert.Len(t, detail.Meetings, 1)
	assert.Len(t, detail.Goals, 1)
}

func TestService_UpdateGoal(t *testing.T) {
	setup(t)

	ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{2}, "Goal A", "Goal B")
	goalID := ms.Goals[0].ID

	update := func(status string) mentoring.Goal {
		t.Helper()
		goal, err := env.Svc.UpdateGoal(ctx, mentoring.UpdateGoal{MentorshipID: ms.ID, GoalID: goalID, Status: status})
		require.NoError(t, err)
		return goal
	}

	goal := update(mentoring.GoalInProgress)
	assert.Nil(t, goal.CompletedAt)

	goal = update(mentoring.GoalCompleted)
	assert.NotNil(t, goal.CompletedAt)
	update(mentoring.GoalCompleted)
	update(mentoring.GoalInProgress)
	update(mentoring.GoalCompleted)

	pf, err := env.Svc.Portfolio(ctx, "E1")
	require.NoError(t, err)
	require.Len(t, pf.Achievements, 1)
	ach := pf.Achievements[0]
	assert.Equal(t, ms.ID, ach.MentorshipID)
	assert.Equal(t, portfolio.TypeMentorshipGoal, ach.Type)
	assert.Equal(t, "Goal A", ach.Description)
	assert.Equal(t, []string{"Autism Spectrum Conditions"}, ach.Tags)

	pf, err = env.Svc.Portfolio(ctx, "M1")
	require.NoError(t, err)
	assert.Empty(t, pf.Achievements)

	_, err = env.Svc.UpdateGoal(ctx, mentoring.UpdateGoal{MentorshipID: ms.ID, GoalID: "unknown", Status: mentoring.GoalCompleted})
	assert.Equal(t, mentoring.ErrGoalNotFound, errors.Cause(err))

	other := testutil.CreateMentorship(t, env, "M2", "E2", []int{1})
	_, err = env.Svc.UpdateGoal(ctx, mentoring.UpdateGoal{MentorshipID: other.ID, GoalID: goalID, Status: mentoring.GoalCompleted})
	assert.Equal(t, mentoring.ErrGoalNotFound, errors.Cause(err))
}

func TestService_CompleteMentorship(t *testing.T) {
	setup(t)

	t.Run("without reflection", func(t *testing.T) {
		ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})
		got, err := env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID})
		require.NoError(t, err)
		assert.Equal(t, mentoring.StatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)

		for _, act := range mentoringActivities(t, ms.ID) {
			assert.Equal(t, cpd.StatusCompleted, act.Status)
			assert.Equal(t, "Mentorship programme completed.", act.Reflection)
		}

		pf, err := env.Svc.Portfolio(ctx, "E1")
		require.NoError(t, err)
		assert.Len(t, pf.Achievements, 1)
		assert.Empty(t, pf.Reflections)

		// completing twice is rejected and adds nothing
		_, err = env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID, Reflection: "again"})
		assert.Contains(t, fieldErrors(t, err), "mentorshipId")

		pf, err = env.Svc.Portfolio(ctx, "E1")
		require.NoError(t, err)
		assert.Len(t, pf.Achievements, 1)
		assert.Empty(t, pf.Reflections)
	})

	t.Run("unknown mentorship", func(t *testing.T) {
		_, err := env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: "unknown"})
		assert.Equal(t, mentoring.ErrMentorshipNotFound, errors.Cause(err))
	})
}

func TestService_MentorshipLifecycle(t *testing.T) {
	setup(t)

	// E1 asks M1 for a 3 month mentorship
	nr := mentoring.NewRequest{
		MentorID: "M1", MenteeID: "E1", Message: "Please mentor me", FocusAreas: []int{1, 2},
		Goals: []string{"Build confidence with assessments"}, Frequency: "monthly",
	}
	require.NoError(t, nr.Duration.UnmarshalJSON([]byte(`"3"`)))
	require.NoError(t, nr.Validate(env.Validate))
	req, err := env.Svc.RequestMentorship(ctx, nr)
	require.NoError(t, err)

	res, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
	require.NoError(t, err)
	ms := *res.Mentorship
	assert.Equal(t, mentoring.StatusActive, ms.Status)
	assert.Equal(t, ms.StartDate.AddDate(0, 3, 0), ms.EndDate)

	acts := mentoringActivities(t, ms.ID)
	require.Len(t, acts, 2)
	for _, act := range acts {
		assert.Equal(t, cpd.StatusInProgress, act.Status)
	}

	mtg, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{MentorshipID: ms.ID, Date: time.Now(), Duration: 60, Format: "video"})
	require.NoError(t, err)
	_, err = env.Svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: mtg.ID, Status: strPtr(mentoring.MeetingCompleted)})
	require.NoError(t, err)
	for _, act := range mentoringActivities(t, ms.ID) {
		assert.Equal(t, 60, act.Duration)
		assert.Equal(t, 1.0, act.Points)
	}

	got, err := env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID, Reflection: "Great experience"})
	require.NoError(t, err)
	assert.Equal(t, mentoring.StatusCompleted, got.Status)
	for _, act := range mentoringActivities(t, ms.ID) {
		assert.Equal(t, cpd.StatusCompleted, act.Status)
		assert.Equal(t, "Great experience", act.Reflection)
	}

	menteePf, err := env.Svc.Portfolio(ctx, "E1")
	require.NoError(t, err)
	mentorPf, err := env.Svc.Portfolio(ctx, "M1")
	require.NoError(t, err)
	assert.Len(t, menteePf.Achievements, 1)
	assert.Len(t, mentorPf.Achievements, 1)
	assert.Empty(t, mentorPf.Reflections)
	require.Len(t, menteePf.Reflections, 1)
	assert.Equal(t, "Great experience", menteePf.Reflections[0].Content)

	stats, err := env.Svc.Analytics(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Mentorships.Completed)
	assert.Equal(t, 1, stats.Meetings.Completed)
	assert.Equal(t, 1.0, stats.CPDPoints)
}

func TestService_Analytics(t *testing.T) {
	setup(t)

	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	defer mentoring.SetNow(now)()

	t.Run("no mentorships", func(t *testing.T) {
		stats, err := env.Svc.Analytics(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, mentoring.MentorshipCounts{}, stats.Mentorships)
		assert.Equal(t, mentoring.MeetingCounts{}, stats.Meetings)
		assert.Equal(t, mentoring.GoalCounts{}, stats.Goals)
		assert.Zero(t, stats.CPDPoints)
		assert.Empty(t, stats.ExpertiseDistribution)
		require.Len(t, stats.MonthlyMeetings, 12)
		for _, m := range stats.MonthlyMeetings {
			assert.Zero(t, m.Count)
		}
	})

	t.Run("mentor", func(t *testing.T) {
		ms1 := testutil.CreateMentorship(t, env, "M1", "E1", []int{1, 2}, "Goal A", "Goal B")
		ms2 := testutil.CreateMentorship(t, env, "M1", "E2", []int{2})
		testutil.CreateMentorship(t, env, "E1", "M1", []int{5}) // M1 as mentee

		declined := testutil.CreateRequest(t, env, "M1", "E3", []int{1})
		_, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: declined.ID, Response: mentoring.ResponseDecline})
		require.NoError(t, err)

		meetings := []mentoring.NewMeeting{
			{MentorshipID: ms1.ID, Date: now.AddDate(0, 0, -1), Duration: 60, Format: "video", Status: mentoring.MeetingCompleted},
			{MentorshipID: ms1.ID, Date: now.AddDate(0, -2, 0), Duration: 30, Format: "video", Status: mentoring.MeetingCompleted},
			{MentorshipID: ms2.ID, Date: now.AddDate(-2, 0, 0), Duration: 30, Format: "video", Status: mentoring.MeetingCompleted},
			{MentorshipID: ms2.ID, Date: now.AddDate(0, 0, 7), Duration: 45, Format: "video", Status: mentoring.MeetingScheduled},
		}
		for _, nm := range meetings {
			_, err = env.Svc.AddMeeting(ctx, nm)
			require.NoError(t, err)
		}

		_, err = env.Svc.UpdateGoal(ctx, mentoring.UpdateGoal{MentorshipID: ms1.ID, GoalID: ms1.Goals[0].ID, Status: mentoring.GoalCompleted})
		require.NoError(t, err)
		_, err = env.Svc.UpdateGoal(ctx, mentoring.UpdateGoal{MentorshipID: ms1.ID, GoalID: ms1.Goals[1].ID, Status: mentoring.GoalInProgress})
		require.NoError(t, err)
		_, err = env.Svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms2.ID})
		require.NoError(t, err)

		stats, err := env.Svc.Analytics(ctx, "M1")
		require.NoError(t, err)
		assert.Equal(t, mentoring.MentorshipCounts{Total: 3, Active: 2, Completed: 1}, stats.Mentorships)
		assert.Equal(t, mentoring.MeetingCounts{Total: 4, Completed: 3, CompletedHours: 2}, stats.Meetings)
		assert.Equal(t, mentoring.GoalCounts{Total: 4, NotStarted: 2, InProgress: 1, Completed: 1}, stats.Goals)
		assert.Equal(t, 2.0, stats.CPDPoints)
		assert.Equal(t, []mentoring.ExpertiseCount{
			{ID: 2, Name: "Autism Spectrum Conditions", Count: 2},
			{ID: 1, Name: "Cognitive Assessment", Count: 1},
		}, stats.ExpertiseDistribution)

		require.Len(t, stats.MonthlyMeetings, 12)
		counts := make(map[string]int)
		for _, m := range stats.MonthlyMeetings {
			counts[m.Month] = m.Count
		}
		assert.Equal(t, 1, counts["2024-06"])
		assert.Equal(t, 1, counts["2024-04"])
		assert.Equal(t, 0, counts["2024-05"])
	})
}

var errBroken = errors.New("broken")

type failingCPDRepo struct{ cpd.Repository }

func (failingCPDRepo) CreateActivities(context.Context, []cpd.Activity, ...core.DBExecutor) ([]cpd.Activity, error) {
	return nil, errBroken
}

type failingPortfolioRepo struct{ portfolio.Repository }

func (failingPortfolioRepo) AddReflection(context.Context, portfolio.Reflection, ...core.DBExecutor) (portfolio.Reflection, error) {
	return portfolio.Reflection{}, errBroken
}

type failingMeetingRepo struct{ mentoring.Repository }

func (failingMeetingRepo) UpdateMeeting(context.Context, mentoring.Meeting, ...core.DBExecutor) (mentoring.Meeting, error) {
	return mentoring.Meeting{}, errBroken
}

// newBrokenService shares env's database; wrap replaces some of its repositories.
func newBrokenService(wrap func(deps *mentoring.Deps)) mentoring.Service {
	deps := mentoring.Deps{
		Repo:          inmemdb.NewMentoringRepository(env.DB),
		CPDRepo:       inmemdb.NewCPDRepository(env.DB),
		PortfolioRepo: inmemdb.NewPortfolioRepository(env.DB),
		Tx:            inmemdb.NewTxRunner(env.DB),
		MailSvc:       env.MailSvc,
		Logger:        env.Logger,
	}
	wrap(&deps)
	return mentoring.NewService(deps)
}

func TestService_cascadeRollback(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		setup(t)
		req := testutil.CreateRequest(t, env, "M1", "E1", []int{1})
		svc := newBrokenService(func(deps *mentoring.Deps) { deps.CPDRepo = &failingCPDRepo{deps.CPDRepo} })

		_, err := svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
		assert.Equal(t, errBroken, errors.Cause(err))

		reqs, err := env.Svc.QueryRequests(ctx, mentoring.RequestFilter{UserID: "E1"})
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, mentoring.RequestPending, reqs[0].Status)
		assert.Nil(t, reqs[0].RespondedAt)

		mss, err := env.Svc.QueryMentorships(ctx, mentoring.MentorshipFilter{UserID: "E1"})
		require.NoError(t, err)
		assert.Empty(t, mss)
		for _, userID := range []string{"M1", "E1"} {
			acts, err := env.Svc.CPDActivities(ctx, userID)
			require.NoError(t, err)
			assert.Empty(t, acts, userID)
		}

		// the request can still be accepted afterwards
		res, err := env.Svc.RespondToRequest(ctx, mentoring.RequestResponse{RequestID: req.ID, Response: mentoring.ResponseAccept})
		require.NoError(t, err)
		assert.NotNil(t, res.Mentorship)
	})

	t.Run("meeting completion", func(t *testing.T) {
		setup(t)
		ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})
		mtg, err := env.Svc.AddMeeting(ctx, mentoring.NewMeeting{
			MentorshipID: ms.ID, Date: time.Now(), Duration: 60, Format: "video", Status: mentoring.MeetingScheduled,
		})
		require.NoError(t, err)
		svc := newBrokenService(func(deps *mentoring.Deps) { deps.Repo = &failingMeetingRepo{deps.Repo} })

		_, err = svc.UpdateMeeting(ctx, mentoring.UpdateMeeting{MeetingID: mtg.ID, Status: strPtr(mentoring.MeetingCompleted)})
		assert.Equal(t, errBroken, errors.Cause(err))

		for role, act := range mentoringActivities(t, ms.ID) {
			assert.Zero(t, act.Duration, role)
			assert.Zero(t, act.Points, role)
		}
		mtgs, err := env.Svc.QueryMeetings(ctx, ms.ID, "")
		require.NoError(t, err)
		require.Len(t, mtgs, 1)
		assert.Equal(t, mentoring.MeetingScheduled, mtgs[0].Status)
		assert.Nil(t, mtgs[0].CPDCreditedAt)
	})

	t.Run("complete", func(t *testing.T) {
		setup(t)
		ms := testutil.CreateMentorship(t, env, "M1", "E1", []int{1})
		svc := newBrokenService(func(deps *mentoring.Deps) { deps.PortfolioRepo = &failingPortfolioRepo{deps.PortfolioRepo} })

		_, err := svc.CompleteMentorship(ctx, mentoring.CompleteMentorship{MentorshipID: ms.ID, Reflection: "Great experience"})
		assert.Equal(t, errBroken, errors.Cause(err))

		detail, err := env.Svc.GetMentorship(ctx, ms.ID)
		require.NoError(t, err)
		assert.Equal(t, mentoring.StatusActive, detail.Status)
		assert.Nil(t, detail.CompletedAt)

		acts := mentoringActivities(t, ms.ID)
		require.Len(t, acts, 2)
		for role, act := range acts {
			assert.Equal(t, cpd.StatusInProgress, act.Status, role)
			assert.Empty(t, act.Reflection, role)
		}
		for _, userID := range []string{"M1", "E1"} {
			pf, err := env.Svc.Portfolio(ctx, userID)
			require.NoError(t, err)
			assert.Empty(t, pf.Achievements, userID)
			assert.Empty(t, pf.Reflections, userID)
		}
	})
}
