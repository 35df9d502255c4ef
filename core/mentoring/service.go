package mentoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
	"github.com/edpsychconnect/connect/core/portfolio"
)

const defaultCompletionReflection = "Mentorship programme completed."

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	Service interface {
		UpdateProfile(ctx context.Context, up UpdateProfile) (ProfileDetail, error)
		GetProfile(ctx context.Context, userID string) (ProfileDetail, error)
		FindMentors(ctx context.Context, filter MentorFilter) ([]Profile, error)

		RequestMentorship(ctx context.Context, nr NewRequest) (MentorshipRequest, error)
		RespondToRequest(ctx context.Context, rr RequestResponse) (RequestResult, error)
		QueryRequests(ctx context.Context, filter RequestFilter) ([]MentorshipRequest, error)

		UpdateMentorship(ctx context.Context, um UpdateMentorship) (Mentorship, error)
		GetMentorship(ctx context.Context, id string) (MentorshipDetail, error)
		QueryMentorships(ctx context.Context, filter MentorshipFilter) ([]Mentorship, error)
		CompleteMentorship(ctx context.Context, cm CompleteMentorship) (Mentorship, error)

		AddMeeting(ctx context.Context, nm NewMeeting) (Meeting, error)
		UpdateMeeting(ctx context.Context, um UpdateMeeting) (Meeting, error)
		// QueryMeetings returns the meetings of one mentorship, or of every mentorship of userID.
		QueryMeetings(ctx context.Context, mentorshipID, userID string) ([]Meeting, error)

		AddResource(ctx context.Context, nr NewResource) (Resource, error)
		AddFeedback(ctx context.Context, nf NewFeedback) (Feedback, error)
		UpdateGoal(ctx context.Context, ug UpdateGoal) (Goal, error)

		Analytics(ctx context.Context, userID string) (Analytics, error)
		CPDActivities(ctx context.Context, userID string) ([]cpd.Activity, error)
		Portfolio(ctx context.Context, userID string) (Portfolio, error)
	}

	// Portfolio holds the portfolio entries of a user.
	Portfolio struct {
		Achievements []portfolio.Achievement `json:"achievements"`
		Reflections  []portfolio.Reflection  `json:"reflections"`
	}

	Deps struct {
		Repo          Repository
		CPDRepo       cpd.Repository
		PortfolioRepo portfolio.Repository
		Tx            core.TxRunner
		MailSvc       core.EmailService
		Logger        core.Logger
	}

	service struct {
		repo          Repository
		cpdRepo       cpd.Repository
		portfolioRepo portfolio.Repository
		tx            core.TxRunner
		mailSvc       core.EmailService
		logger        core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps Deps) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.CPDRepo, "CPDRepo"),
		vala.IsNotNil(deps.PortfolioRepo, "PortfolioRepo"),
		vala.IsNotNil(deps.Tx, "Tx"),
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).CheckAndPanic()

	return &service{
		repo:          deps.Repo,
		cpdRepo:       deps.CPDRepo,
		portfolioRepo: deps.PortfolioRepo,
		tx:            deps.Tx,
		mailSvc:       deps.MailSvc,
		logger:        deps.Logger,
	}
}

// Profiles

func (svc *service) UpdateProfile(ctx context.Context, up UpdateProfile) (ProfileDetail, error) {
	now := nowFunc()
	prof := Profile{
		UserID:          up.UserID,
		Role:            up.Role,
		School:          up.School,
		Phase:           up.Phase,
		YearsExperience: up.YearsExperience,
		Expertise:       up.Expertise,
		Subjects:        up.Subjects,
		Bio:             up.Bio,
		Availability:    up.Availability,
		Goals:           up.Goals,
		ContactEmail:    up.ContactEmail,
		Preferences:     up.Preferences,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var detail ProfileDetail
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		saved, err := svc.repo.UpsertProfile(ctx, prof, exec)
		if err != nil {
			return errors.Wrap(err, "upserting profile")
		}
		cpdProf, err := svc.cpdRepo.UpsertProfile(ctx, cpd.Profile{
			UserID:       up.UserID,
			TargetPoints: cpd.DefaultTargetPoints,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "upserting cpd profile")
		}
		detail = ProfileDetail{Profile: saved, CPDProfile: cpdProf}
		return nil
	})
	return detail, err
}

func (svc *service) GetProfile(ctx context.Context, userID string) (ProfileDetail, error) {
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return ProfileDetail{}, errors.Wrap(err, "getting profile")
	}
	cpdProf, err := svc.cpdRepo.GetProfile(ctx, userID)
	if err != nil && errors.Cause(err) != cpd.ErrProfileNotFound {
		return ProfileDetail{}, errors.Wrap(err, "getting cpd profile")
	}
	return ProfileDetail{Profile: prof, CPDProfile: cpdProf}, nil
}

func (svc *service) FindMentors(ctx context.Context, filter MentorFilter) ([]Profile, error) {
	filter.Clean()
	mentors, err := svc.repo.QueryMentors(ctx, filter)
	return mentors, errors.Wrap(err, "querying mentors")
}

// Requests

func (svc *service) RequestMentorship(ctx context.Context, nr NewRequest) (MentorshipRequest, error) {
	exists, err := svc.repo.HasPendingRequest(ctx, nr.MentorID, nr.MenteeID)
	if err != nil {
		return MentorshipRequest{}, errors.Wrap(err, "checking pending requests")
	}
	if exists {
		return MentorshipRequest{}, ErrPendingRequestExists
	}

	now := nowFunc()
	req, err := svc.repo.CreateRequest(ctx, MentorshipRequest{
		ID:         uuid.New().String(),
		MentorID:   nr.MentorID,
		MenteeID:   nr.MenteeID,
		Message:    nr.Message,
		FocusAreas: nr.FocusAreas,
		Goals:      nr.Goals,
		Duration:   int(nr.Duration),
		Frequency:  nr.Frequency,
		Status:     RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrPendingRequestExists {
			return MentorshipRequest{}, ErrPendingRequestExists
		}
		return MentorshipRequest{}, errors.Wrap(err, "creating request")
	}

	svc.notifyRequestReceived(ctx, req)
	return req, nil
}

func (svc *service) RespondToRequest(ctx context.Context, rr RequestResponse) (RequestResult, error) {
	var result RequestResult
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		req, err := svc.repo.GetRequest(ctx, rr.RequestID, exec)
		if err != nil {
			return errors.Wrap(err, "getting request")
		}
		if req.Status != RequestPending {
			return core.NewFieldError("requestId", "this request has already been answered")
		}

		now := nowFunc()
		req.ResponseMessage = rr.Message
		req.RespondedAt = &now
		req.UpdatedAt = now
		if rr.Response == ResponseDecline {
			req.Status = RequestDeclined
		} else {
			req.Status = RequestAccepted
		}
		if req, err = svc.repo.UpdateRequest(ctx, req, exec); err != nil {
			return errors.Wrap(err, "updating request")
		}
		result.Request = req

		if req.Status == RequestAccepted {
			ms, err := svc.startMentorship(ctx, req, now, exec)
			if err != nil {
				return err
			}
			result.Mentorship = &ms
		}
		return nil
	})
	if err != nil {
		return RequestResult{}, err
	}

	svc.notifyRequestAnswered(ctx, result.Request)
	return result, nil
}

// startMentorship materializes an accepted request: the mentorship, its goals and both CPD activities.
func (svc *service) startMentorship(ctx context.Context, req MentorshipRequest, now time.Time, exec core.DBExecutor) (Mentorship, error) {
	ms, err := svc.repo.CreateMentorship(ctx, Mentorship{
		ID:         uuid.New().String(),
		MentorID:   req.MentorID,
		MenteeID:   req.MenteeID,
		Status:     StatusActive,
		StartDate:  now,
		EndDate:    now.AddDate(0, req.Duration, 0),
		FocusAreas: req.FocusAreas,
		Frequency:  req.Frequency,
		RequestID:  req.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, exec)
	if err != nil {
		return Mentorship{}, errors.Wrap(err, "creating mentorship")
	}

	if ms.Goals, err = svc.repo.CreateGoals(ctx, newGoals(ms.ID, req.Goals, 0, now), exec); err != nil {
		return Mentorship{}, errors.Wrap(err, "creating goals")
	}

	activity := func(userID, role, title string) cpd.Activity {
		return cpd.Activity{
			ID:           uuid.New().String(),
			UserID:       userID,
			MentorshipID: ms.ID,
			Role:         role,
			Title:        title,
			Type:         cpd.TypeMentoring,
			Date:         now,
			Status:       cpd.StatusInProgress,
			Evidence:     "Mentorship meetings and goal records",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	acts := []cpd.Activity{
		activity(ms.MentorID, cpd.RoleMentor, "Mentoring a colleague"),
		activity(ms.MenteeID, cpd.RoleMentee, "Receiving mentorship"),
	}
	if _, err = svc.cpdRepo.CreateActivities(ctx, acts, exec); err != nil {
		return Mentorship{}, errors.Wrap(err, "creating cpd activities")
	}
	return ms, nil
}

func newGoals(mentorshipID string, texts []string, offset int, now time.Time) []Goal {
	goals := make([]Goal, 0, len(texts))
	for i, text := range texts {
		goals = append(goals, Goal{
			ID:           uuid.New().String(),
			MentorshipID: mentorshipID,
			Text:         text,
			Status:       GoalNotStarted,
			Position:     offset + i,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return goals
}

func (svc *service) QueryRequests(ctx context.Context, filter RequestFilter) ([]MentorshipRequest, error) {
	if err := validateOrdering(filter.Ordering, RequestOrderFields); err != nil {
		return nil, err
	}
	reqs, err := svc.repo.QueryRequests(ctx, filter)
	return reqs, errors.Wrap(err, "querying requests")
}

// Mentorships

func (svc *service) UpdateMentorship(ctx context.Context, um UpdateMentorship) (Mentorship, error) {
	var ms Mentorship
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if ms, err = svc.repo.GetMentorship(ctx, um.MentorshipID, exec); err != nil {
			return errors.Wrap(err, "getting mentorship")
		}
		if !ms.IsOpen() {
			return core.NewFieldError("mentorshipId", "mentorship is "+ms.Status)
		}

		now := nowFunc()
		if um.FocusAreas != nil {
			ms.FocusAreas = um.FocusAreas
		}
		if um.Frequency != nil {
			ms.Frequency = *um.Frequency
		}
		if um.EndDate != nil {
			if !um.EndDate.After(ms.StartDate) {
				return core.NewFieldError("endDate", "end date must be after the start date")
			}
			ms.EndDate = um.EndDate.UTC()
		}
		ms.UpdatedAt = now
		if ms, err = svc.repo.UpdateMentorship(ctx, ms, exec); err != nil {
			return errors.Wrap(err, "updating mentorship")
		}

		if ms.Goals, err = svc.repo.QueryGoals(ctx, []string{ms.ID}, exec); err != nil {
			return errors.Wrap(err, "querying goals")
		}
		if len(um.NewGoals) > 0 {
			added, err := svc.repo.CreateGoals(ctx, newGoals(ms.ID, um.NewGoals, len(ms.Goals), now), exec)
			if err != nil {
				return errors.Wrap(err, "creating goals")
			}
			ms.Goals = append(ms.Goals, added...)
		}
		return nil
	})
	if err != nil {
		return Mentorship{}, err
	}
	return ms, nil
}

func (svc *service) GetMentorship(ctx context.Context, id string) (MentorshipDetail, error) {
	ms, err := svc.repo.GetMentorship(ctx, id)
	if err != nil {
		return MentorshipDetail{}, errors.Wrap(err, "getting mentorship")
	}
	detail := MentorshipDetail{Mentorship: ms}
	if detail.Goals, err = svc.repo.QueryGoals(ctx, []string{id}); err != nil {
		return MentorshipDetail{}, errors.Wrap(err, "querying goals")
	}
	if detail.Meetings, err = svc.repo.QueryMeetings(ctx, []string{id}); err != nil {
		return MentorshipDetail{}, errors.Wrap(err, "querying meetings")
	}
	if detail.Resources, err = svc.repo.QueryResources(ctx, id); err != nil {
		return MentorshipDetail{}, errors.Wrap(err, "querying resources")
	}
	if detail.Feedback, err = svc.repo.QueryFeedback(ctx, id); err != nil {
		return MentorshipDetail{}, errors.Wrap(err, "querying feedback")
	}
	return detail, nil
}

func (svc *service) QueryMentorships(ctx context.Context, filter MentorshipFilter) ([]Mentorship, error) {
	if err := validateOrdering(filter.Ordering, MentorshipOrderFields); err != nil {
		return nil, err
	}
	mss, err := svc.repo.QueryMentorships(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying mentorships")
	}
	if err = svc.attachGoals(ctx, mss); err != nil {
		return nil, err
	}
	return mss, nil
}

func (svc *service) attachGoals(ctx context.Context, mss []Mentorship) error {
	if len(mss) == 0 {
		return nil
	}
	ids := make([]string, 0, len(mss))
	for _, ms := range mss {
		ids = append(ids, ms.ID)
	}
	goals, err := svc.repo.QueryGoals(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "querying goals")
	}
	byMentorship := make(map[string][]Goal, len(mss))
	for _, g := range goals {
		byMentorship[g.MentorshipID] = append(byMentorship[g.MentorshipID], g)
	}
	for i := range mss {
		mss[i].Goals = byMentorship[mss[i].ID]
	}
	return nil
}

func (svc *service) CompleteMentorship(ctx context.Context, cm CompleteMentorship) (Mentorship, error) {
	var ms Mentorship
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if ms, err = svc.repo.GetMentorship(ctx, cm.MentorshipID, exec); err != nil {
			return errors.Wrap(err, "getting mentorship")
		}
		if ms.Status != StatusActive {
			return core.NewFieldError("mentorshipId", "only active mentorships can be completed")
		}

		now := nowFunc()
		ms.Status = StatusCompleted
		ms.CompletedAt = &now
		ms.UpdatedAt = now
		if ms, err = svc.repo.UpdateMentorship(ctx, ms, exec); err != nil {
			return errors.Wrap(err, "updating mentorship")
		}

		reflection := cm.Reflection
		if reflection == "" {
			reflection = defaultCompletionReflection
		}
		if _, err = svc.cpdRepo.FinalizeMentorshipActivities(ctx, ms.ID, reflection, now, exec); err != nil {
			return errors.Wrap(err, "finalizing cpd activities")
		}

		tags := ExpertiseNames(ms.FocusAreas)
		achievements := []portfolio.Achievement{
			{
				UserID:      ms.MentorID,
				SourceKey:   "mentorship:" + ms.ID + ":mentor",
				Title:       "Mentored a colleague",
				Description: "Completed a mentorship as mentor.",
				Type:        portfolio.TypeMentoringProvided,
			},
			{
				UserID:      ms.MenteeID,
				SourceKey:   "mentorship:" + ms.ID + ":mentee",
				Title:       "Completed a mentorship programme",
				Description: "Completed a mentorship as mentee.",
				Type:        portfolio.TypeMentorshipCompleted,
			},
		}
		for _, ach := range achievements {
			ach.ID = uuid.New().String()
			ach.MentorshipID = ms.ID
			ach.Date = now
			ach.Tags = tags
			ach.Visibility = portfolio.VisibilityPrivate
			ach.CreatedAt = now
			if _, _, err = svc.portfolioRepo.AddAchievement(ctx, ach, exec); err != nil {
				return errors.Wrap(err, "adding achievement")
			}
		}

		if cm.Reflection != "" {
			_, err = svc.portfolioRepo.AddReflection(ctx, portfolio.Reflection{
				ID:           uuid.New().String(),
				UserID:       ms.MenteeID,
				MentorshipID: ms.ID,
				Title:        "Mentorship reflection",
				Content:      cm.Reflection,
				Date:         now,
				Type:         portfolio.TypeMentorshipReflection,
				Tags:         tags,
				Visibility:   portfolio.VisibilityPrivate,
				CreatedAt:    now,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "adding reflection")
			}
		}

		ms.Goals, err = svc.repo.QueryGoals(ctx, []string{ms.ID}, exec)
		return errors.Wrap(err, "querying goals")
	})
	if err != nil {
		return Mentorship{}, err
	}
	return ms, nil
}

// Meetings

func (svc *service) AddMeeting(ctx context.Context, nm NewMeeting) (Meeting, error) {
	var mtg Meeting
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		ms, err := svc.repo.GetMentorship(ctx, nm.MentorshipID, exec)
		if err != nil {
			return errors.Wrap(err, "getting mentorship")
		}
		if ms.Status != StatusActive {
			return core.NewFieldError("mentorshipId", "meetings can only be added to active mentorships")
		}

		now := nowFunc()
		mtg = Meeting{
			ID:           uuid.New().String(),
			MentorshipID: ms.ID,
			Date:         nm.Date.UTC(),
			Duration:     nm.Duration,
			Format:       nm.Format,
			Agenda:       nm.Agenda,
			Notes:        nm.Notes,
			Status:       nm.Status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err = svc.creditMeeting(ctx, &mtg, now, exec); err != nil {
			return err
		}
		mtg, err = svc.repo.CreateMeeting(ctx, mtg, exec)
		return errors.Wrap(err, "creating meeting")
	})
	if err != nil {
		return Meeting{}, err
	}
	return mtg, nil
}

func (svc *service) UpdateMeeting(ctx context.Context, um UpdateMeeting) (Meeting, error) {
	var mtg Meeting
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if mtg, err = svc.repo.GetMeeting(ctx, um.MeetingID, exec); err != nil {
			return errors.Wrap(err, "getting meeting")
		}
		if um.Status != nil || um.Duration != nil {
			ms, err := svc.repo.GetMentorship(ctx, mtg.MentorshipID, exec)
			if err != nil {
				return errors.Wrap(err, "getting mentorship")
			}
			// finalized cpd activities must not be credited again
			if ms.Status != StatusActive {
				return core.NewFieldError("meetingId", "only meetings of active mentorships can change status or duration")
			}
		}

		now := nowFunc()
		if um.Date != nil {
			mtg.Date = um.Date.UTC()
		}
		if um.Duration != nil {
			mtg.Duration = *um.Duration
		}
		if um.Format != nil {
			mtg.Format = core.CleanString(*um.Format, true /* lower */)
		}
		if um.Agenda != nil {
			mtg.Agenda = core.CleanString(*um.Agenda)
		}
		if um.Notes != nil {
			mtg.Notes = core.CleanString(*um.Notes)
		}
		if um.Status != nil {
			mtg.Status = *um.Status
		}
		mtg.UpdatedAt = now

		if err = svc.creditMeeting(ctx, &mtg, now, exec); err != nil {
			return err
		}
		mtg, err = svc.repo.UpdateMeeting(ctx, mtg, exec)
		return errors.Wrap(err, "updating meeting")
	})
	if err != nil {
		return Meeting{}, err
	}
	return mtg, nil
}

// creditMeeting adds a completed meeting's time to both participants' CPD activities.
// A meeting is credited at most once; mtg.CPDCreditedAt records it.
func (svc *service) creditMeeting(ctx context.Context, mtg *Meeting, now time.Time, exec core.DBExecutor) error {
	if mtg.Status != MeetingCompleted || mtg.CPDCreditedAt != nil {
		return nil
	}
	if _, err := svc.cpdRepo.CreditMentorshipActivities(ctx, mtg.MentorshipID, mtg.Duration, cpd.PointsFor(mtg.Duration), exec); err != nil {
		return errors.Wrap(err, "crediting cpd activities")
	}
	mtg.CPDCreditedAt = &now
	return nil
}

func (svc *service) QueryMeetings(ctx context.Context, mentorshipID, userID string) ([]Meeting, error) {
	var ids []string
	if mentorshipID != "" {
		if _, err := svc.repo.GetMentorship(ctx, mentorshipID); err != nil {
			return nil, errors.Wrap(err, "getting mentorship")
		}
		ids = []string{mentorshipID}
	} else {
		mss, err := svc.repo.QueryMentorships(ctx, MentorshipFilter{UserID: userID})
		if err != nil {
			return nil, errors.Wrap(err, "querying mentorships")
		}
		for _, ms := range mss {
			ids = append(ids, ms.ID)
		}
	}
	if len(ids) == 0 {
		return []Meeting{}, nil
	}
	mtgs, err := svc.repo.QueryMeetings(ctx, ids)
	return mtgs, errors.Wrap(err, "querying meetings")
}

// Resources, feedback & goals

func (svc *service) AddResource(ctx context.Context, nr NewResource) (Resource, error) {
	ms, err := svc.repo.GetMentorship(ctx, nr.MentorshipID)
	if err != nil {
		return Resource{}, errors.Wrap(err, "getting mentorship")
	}
	if nr.AddedBy != "" && !ms.HasParticipant(nr.AddedBy) {
		return Resource{}, core.NewFieldError("addedBy", "only participants can add resources")
	}
	res, err := svc.repo.CreateResource(ctx, Resource{
		ID:           uuid.New().String(),
		MentorshipID: ms.ID,
		Title:        nr.Title,
		Description:  nr.Description,
		Type:         nr.Type,
		URL:          nr.URL,
		FileURL:      nr.FileURL,
		AddedBy:      nr.AddedBy,
		CreatedAt:    nowFunc(),
	})
	return res, errors.Wrap(err, "creating resource")
}

func (svc *service) AddFeedback(ctx context.Context, nf NewFeedback) (Feedback, error) {
	ms, err := svc.repo.GetMentorship(ctx, nf.MentorshipID)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "getting mentorship")
	}
	if !ms.HasParticipant(nf.FromUserID) {
		return Feedback{}, core.NewFieldError("fromUserId", "feedback must come from a participant")
	}
	if !ms.HasParticipant(nf.ToUserID) {
		return Feedback{}, core.NewFieldError("toUserId", "feedback must be addressed to a participant")
	}
	if nf.MeetingID != "" {
		mtg, err := svc.repo.GetMeeting(ctx, nf.MeetingID)
		if err != nil {
			if errors.Cause(err) == ErrMeetingNotFound {
				return Feedback{}, core.NewFieldError("meetingId", "meeting not found")
			}
			return Feedback{}, errors.Wrap(err, "getting meeting")
		}
		if mtg.MentorshipID != ms.ID {
			return Feedback{}, core.NewFieldError("meetingId", "meeting belongs to another mentorship")
		}
	}

	fb, err := svc.repo.CreateFeedback(ctx, Feedback{
		ID:           uuid.New().String(),
		MentorshipID: ms.ID,
		FromUserID:   nf.FromUserID,
		ToUserID:     nf.ToUserID,
		Rating:       nf.Rating,
		Comment:      nf.Comment,
		MeetingID:    nf.MeetingID,
		CreatedAt:    nowFunc(),
	})
	return fb, errors.Wrap(err, "creating feedback")
}

func (svc *service) UpdateGoal(ctx context.Context, ug UpdateGoal) (Goal, error) {
	var goal Goal
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		ms, err := svc.repo.GetMentorship(ctx, ug.MentorshipID, exec)
		if err != nil {
			return errors.Wrap(err, "getting mentorship")
		}
		if goal, err = svc.repo.GetGoal(ctx, ms.ID, ug.GoalID, exec); err != nil {
			return errors.Wrap(err, "getting goal")
		}

		now := nowFunc()
		wasCompleted := goal.Status == GoalCompleted
		goal.Status = ug.Status
		goal.UpdatedAt = now
		switch {
		case goal.Status == GoalCompleted && !wasCompleted:
			goal.CompletedAt = &now
		case goal.Status != GoalCompleted:
			goal.CompletedAt = nil
		}
		if goal, err = svc.repo.UpdateGoal(ctx, goal, exec); err != nil {
			return errors.Wrap(err, "updating goal")
		}

		if goal.Status != GoalCompleted || wasCompleted {
			return nil
		}
		_, _, err = svc.portfolioRepo.AddAchievement(ctx, portfolio.Achievement{
			ID:           uuid.New().String(),
			UserID:       ms.MenteeID,
			MentorshipID: ms.ID,
			SourceKey:    "goal:" + goal.ID,
			Title:        "Mentorship goal achieved",
			Description:  goal.Text,
			Date:         now,
			Type:         portfolio.TypeMentorshipGoal,
			Tags:         ExpertiseNames(ms.FocusAreas),
			Visibility:   portfolio.VisibilityPrivate,
			CreatedAt:    now,
		}, exec)
		return errors.Wrap(err, "adding achievement")
	})
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

// CPD & portfolio

func (svc *service) CPDActivities(ctx context.Context, userID string) ([]cpd.Activity, error) {
	acts, err := svc.cpdRepo.QueryActivities(ctx, cpd.ActivityFilter{UserID: userID})
	return acts, errors.Wrap(err, "querying cpd activities")
}

func (svc *service) Portfolio(ctx context.Context, userID string) (Portfolio, error) {
	filter := portfolio.Filter{UserID: userID}
	achs, err := svc.portfolioRepo.QueryAchievements(ctx, filter)
	if err != nil {
		return Portfolio{}, errors.Wrap(err, "querying achievements")
	}
	refs, err := svc.portfolioRepo.QueryReflections(ctx, filter)
	if err != nil {
		return Portfolio{}, errors.Wrap(err, "querying reflections")
	}
	return Portfolio{Achievements: achs, Reflections: refs}, nil
}
