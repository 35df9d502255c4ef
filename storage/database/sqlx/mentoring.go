package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
)

type mentoringRepository struct {
	repository
}

var _ mentoring.Repository = (*mentoringRepository)(nil) // interface compliance check

func NewMentoringRepository(db *sqlx.DB) *mentoringRepository {
	return &mentoringRepository{repository{db: db}}
}

// rows

type (
	profileRow struct {
		UserID          string         `db:"user_id"`
		Role            string         `db:"role"`
		School          null.String    `db:"school"`
		Phase           null.String    `db:"phase"`
		YearsExperience int            `db:"years_experience"`
		Expertise       pq.Int64Array  `db:"expertise"`
		Subjects        pq.StringArray `db:"subjects"`
		Bio             null.String    `db:"bio"`
		Availability    null.String    `db:"availability"`
		Goals           null.String    `db:"goals"`
		ContactEmail    null.String    `db:"contact_email"`
		Preferences     null.JSON      `db:"preferences"`
		CreatedAt       time.Time      `db:"created_at"`
		UpdatedAt       time.Time      `db:"updated_at"`
	}

	requestRow struct {
		ID              string         `db:"id"`
		MentorID        string         `db:"mentor_id"`
		MenteeID        string         `db:"mentee_id"`
		Message         string         `db:"message"`
		FocusAreas      pq.Int64Array  `db:"focus_areas"`
		Goals           pq.StringArray `db:"goals"`
		Duration        int            `db:"duration"`
		Frequency       string         `db:"frequency"`
		Status          string         `db:"status"`
		ResponseMessage null.String    `db:"response_message"`
		RespondedAt     null.Time      `db:"responded_at"`
		CreatedAt       time.Time      `db:"created_at"`
		UpdatedAt       time.Time      `db:"updated_at"`
	}

	mentorshipRow struct {
		ID          string        `db:"id"`
		MentorID    string        `db:"mentor_id"`
		MenteeID    string        `db:"mentee_id"`
		Status      string        `db:"status"`
		StartDate   time.Time     `db:"start_date"`
		EndDate     time.Time     `db:"end_date"`
		FocusAreas  pq.Int64Array `db:"focus_areas"`
		Frequency   string        `db:"frequency"`
		RequestID   string        `db:"request_id"`
		CompletedAt null.Time     `db:"completed_at"`
		CreatedAt   time.Time     `db:"created_at"`
		UpdatedAt   time.Time     `db:"updated_at"`
	}

	goalRow struct {
		ID           string    `db:"id"`
		MentorshipID string    `db:"mentorship_id"`
		Text         string    `db:"text"`
		Status       string    `db:"status"`
		Position     int       `db:"position"`
		CompletedAt  null.Time `db:"completed_at"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}

	meetingRow struct {
		ID            string      `db:"id"`
		MentorshipID  string      `db:"mentorship_id"`
		Date          time.Time   `db:"date"`
		Duration      int         `db:"duration"`
		Format        string      `db:"format"`
		Agenda        null.String `db:"agenda"`
		Notes         null.String `db:"notes"`
		Status        string      `db:"status"`
		CPDCreditedAt null.Time   `db:"cpd_credited_at"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
	}

	resourceRow struct {
		ID           string      `db:"id"`
		MentorshipID string      `db:"mentorship_id"`
		Title        string      `db:"title"`
		Description  null.String `db:"description"`
		Type         string      `db:"type"`
		URL          null.String `db:"url"`
		FileURL      null.String `db:"file_url"`
		AddedBy      null.String `db:"added_by"`
		CreatedAt    time.Time   `db:"created_at"`
	}

	feedbackRow struct {
		ID           string      `db:"id"`
		MentorshipID string      `db:"mentorship_id"`
		FromUserID   string      `db:"from_user_id"`
		ToUserID     string      `db:"to_user_id"`
		Rating       int         `db:"rating"`
		Comment      null.String `db:"comment"`
		MeetingID    null.String `db:"meeting_id"`
		CreatedAt    time.Time   `db:"created_at"`
	}
)

func nullString(s string) null.String { return null.NewString(s, s != "") }

// Profiles

func boilProfile(prof mentoring.Profile) (profileRow, error) {
	row := profileRow{
		UserID:          prof.UserID,
		Role:            prof.Role,
		School:          nullString(prof.School),
		Phase:           nullString(prof.Phase),
		YearsExperience: prof.YearsExperience,
		Expertise:       toInt64Array(prof.Expertise),
		Subjects:        toStringArray(prof.Subjects),
		Bio:             nullString(prof.Bio),
		Availability:    nullString(prof.Availability),
		Goals:           nullString(prof.Goals),
		ContactEmail:    nullString(prof.ContactEmail),
		CreatedAt:       prof.CreatedAt.UTC(),
		UpdatedAt:       prof.UpdatedAt.UTC(),
	}
	if prof.Preferences != nil {
		b, err := json.Marshal(prof.Preferences)
		if err != nil {
			return profileRow{}, errors.Wrap(err, "marshalling preferences")
		}
		row.Preferences = null.JSONFrom(b)
	}
	return row, nil
}

func unboilProfile(row profileRow) (mentoring.Profile, error) {
	prof := mentoring.Profile{
		UserID:          row.UserID,
		Role:            row.Role,
		School:          row.School.String,
		Phase:           row.Phase.String,
		YearsExperience: row.YearsExperience,
		Expertise:       fromInt64Array(row.Expertise),
		Subjects:        fromStringArray(row.Subjects),
		Bio:             row.Bio.String,
		Availability:    row.Availability.String,
		Goals:           row.Goals.String,
		ContactEmail:    row.ContactEmail.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.Preferences.Valid {
		prof.Preferences = new(mentoring.Preferences)
		if err := row.Preferences.Unmarshal(prof.Preferences); err != nil {
			return mentoring.Profile{}, errors.Wrap(err, "unmarshalling preferences")
		}
	}
	return prof, nil
}

func unboilProfiles(rows []profileRow) ([]mentoring.Profile, error) {
	profs := make([]mentoring.Profile, 0, len(rows))
	for _, row := range rows {
		prof, err := unboilProfile(row)
		if err != nil {
			return nil, err
		}
		profs = append(profs, prof)
	}
	return profs, nil
}

func (repo mentoringRepository) UpsertProfile(ctx context.Context, prof mentoring.Profile, exec ...core.DBExecutor) (mentoring.Profile, error) {
	row, err := boilProfile(prof)
	if err != nil {
		return mentoring.Profile{}, err
	}
	const q = `
		INSERT INTO mentor_profiles (
			user_id, role, school, phase, years_experience, expertise, subjects, bio,
			availability, goals, contact_email, preferences, created_at, updated_at
		) VALUES (
			:user_id, :role, :school, :phase, :years_experience, :expertise, :subjects, :bio,
			:availability, :goals, :contact_email, :preferences, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			school = EXCLUDED.school,
			phase = EXCLUDED.phase,
			years_experience = EXCLUDED.years_experience,
			expertise = EXCLUDED.expertise,
			subjects = EXCLUDED.subjects,
			bio = EXCLUDED.bio,
			availability = EXCLUDED.availability,
			goals = EXCLUDED.goals,
			contact_email = EXCLUDED.contact_email,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
		RETURNING *`
	var saved profileRow
	if err = namedGet(ctx, repo.getExec(exec), &saved, q, row); err != nil {
		return mentoring.Profile{}, errors.Wrap(err, "upserting profile")
	}
	return unboilProfile(saved)
}

func (repo mentoringRepository) GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (mentoring.Profile, error) {
	var row profileRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, `SELECT * FROM mentor_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return mentoring.Profile{}, trapNoRowsErr(err, mentoring.ErrProfileNotFound, "getting profile")
	}
	return unboilProfile(row)
}

func (repo mentoringRepository) QueryMentors(ctx context.Context, filter mentoring.MentorFilter, exec ...core.DBExecutor) ([]mentoring.Profile, error) {
	var w where
	w.raw("role IN ('mentor', 'both')")
	if filter.ExcludeUserID != "" {
		w.add("user_id <> ?", filter.ExcludeUserID)
	}
	if filter.Expertise != 0 {
		w.add("? = ANY(expertise)", filter.Expertise)
	}
	if filter.Phase != "" {
		w.add("lower(phase) = lower(?)", filter.Phase)
	}
	if filter.Subject != "" {
		w.add("EXISTS (SELECT 1 FROM unnest(subjects) s WHERE lower(s) = lower(?))", filter.Subject)
	}

	var rows []profileRow
	q := "SELECT * FROM mentor_profiles" + w.String() + " ORDER BY years_experience DESC, user_id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying mentors")
	}
	return unboilProfiles(rows)
}

// Requests

func boilRequest(req mentoring.MentorshipRequest) requestRow {
	return requestRow{
		ID:              req.ID,
		MentorID:        req.MentorID,
		MenteeID:        req.MenteeID,
		Message:         req.Message,
		FocusAreas:      toInt64Array(req.FocusAreas),
		Goals:           toStringArray(req.Goals),
		Duration:        req.Duration,
		Frequency:       req.Frequency,
		Status:          req.Status,
		ResponseMessage: nullString(req.ResponseMessage),
		RespondedAt:     null.TimeFromPtr(req.RespondedAt),
		CreatedAt:       req.CreatedAt.UTC(),
		UpdatedAt:       req.UpdatedAt.UTC(),
	}
}

func unboilRequest(row requestRow) mentoring.MentorshipRequest {
	return mentoring.MentorshipRequest{
		ID:              row.ID,
		MentorID:        row.MentorID,
		MenteeID:        row.MenteeID,
		Message:         row.Message,
		FocusAreas:      fromInt64Array(row.FocusAreas),
		Goals:           fromStringArray(row.Goals),
		Duration:        row.Duration,
		Frequency:       row.Frequency,
		Status:          row.Status,
		ResponseMessage: row.ResponseMessage.String,
		RespondedAt:     utcPtr(row.RespondedAt),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (repo mentoringRepository) CreateRequest(ctx context.Context, req mentoring.MentorshipRequest, exec ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	const q = `
		INSERT INTO mentorship_requests (
			id, mentor_id, mentee_id, message, focus_areas, goals, duration, frequency,
			status, response_message, responded_at, created_at, updated_at
		) VALUES (
			:id, :mentor_id, :mentee_id, :message, :focus_areas, :goals, :duration, :frequency,
			:status, :response_message, :responded_at, :created_at, :updated_at
		) RETURNING *`
	var saved requestRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilRequest(req)); err != nil {
		if isUniqueViolation(err) {
			return mentoring.MentorshipRequest{}, mentoring.ErrPendingRequestExists
		}
		return mentoring.MentorshipRequest{}, errors.Wrap(err, "inserting request")
	}
	return unboilRequest(saved), nil
}

func (repo mentoringRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	if !isUUID(id) {
		return mentoring.MentorshipRequest{}, mentoring.ErrRequestNotFound
	}
	ex := repo.getExec(exec)
	var row requestRow
	err := sqlx.GetContext(ctx, ex, &row, `SELECT * FROM mentorship_requests WHERE id = $1`+forUpdate(ex), id)
	if err != nil {
		return mentoring.MentorshipRequest{}, trapNoRowsErr(err, mentoring.ErrRequestNotFound, "getting request")
	}
	return unboilRequest(row), nil
}

func (repo mentoringRepository) HasPendingRequest(ctx context.Context, mentorID, menteeID string, exec ...core.DBExecutor) (bool, error) {
	var found bool
	err := sqlx.GetContext(ctx, repo.getExec(exec), &found, `
		SELECT EXISTS (
			SELECT 1 FROM mentorship_requests WHERE mentor_id = $1 AND mentee_id = $2 AND status = 'pending'
		)`, mentorID, menteeID)
	return found, errors.Wrap(err, "checking pending requests")
}

func (repo mentoringRepository) UpdateRequest(ctx context.Context, req mentoring.MentorshipRequest, exec ...core.DBExecutor) (mentoring.MentorshipRequest, error) {
	const q = `
		UPDATE mentorship_requests SET
			status = :status,
			response_message = :response_message,
			responded_at = :responded_at,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING *`
	var saved requestRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilRequest(req)); err != nil {
		return mentoring.MentorshipRequest{}, trapNoRowsErr(err, mentoring.ErrRequestNotFound, "updating request")
	}
	return unboilRequest(saved), nil
}

var (
	requestColumns = map[string]string{
		"createdAt":   "created_at",
		"respondedAt": "responded_at",
		"status":      "status",
		"duration":    "duration",
	}
	mentorshipColumns = map[string]string{
		"startDate": "start_date",
		"endDate":   "end_date",
		"createdAt": "created_at",
		"status":    "status",
	}
)

// userWhere selects the records of userID as mentor, mentee or either.
func userWhere(w *where, userID, role string) {
	if userID == "" {
		return
	}
	switch role {
	case mentoring.RoleMentor:
		w.add("mentor_id = ?", userID)
	case mentoring.RoleMentee:
		w.add("mentee_id = ?", userID)
	default:
		w.add("(mentor_id = ? OR mentee_id = ?)", userID)
	}
}

func (repo mentoringRepository) QueryRequests(ctx context.Context, filter mentoring.RequestFilter, exec ...core.DBExecutor) ([]mentoring.MentorshipRequest, error) {
	var w where
	userWhere(&w, filter.UserID, filter.Role)
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []requestRow
	q := "SELECT * FROM mentorship_requests" + w.String() + orderBy(filter.Ordering, requestColumns, "created_at DESC")
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	reqs := make([]mentoring.MentorshipRequest, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, unboilRequest(row))
	}
	return reqs, nil
}

// Mentorships

func boilMentorship(ms mentoring.Mentorship) mentorshipRow {
	return mentorshipRow{
		ID:          ms.ID,
		MentorID:    ms.MentorID,
		MenteeID:    ms.MenteeID,
		Status:      ms.Status,
		StartDate:   ms.StartDate.UTC(),
		EndDate:     ms.EndDate.UTC(),
		FocusAreas:  toInt64Array(ms.FocusAreas),
		Frequency:   ms.Frequency,
		RequestID:   ms.RequestID,
		CompletedAt: null.TimeFromPtr(ms.CompletedAt),
		CreatedAt:   ms.CreatedAt.UTC(),
		UpdatedAt:   ms.UpdatedAt.UTC(),
	}
}

func unboilMentorship(row mentorshipRow) mentoring.Mentorship {
	return mentoring.Mentorship{
		ID:          row.ID,
		MentorID:    row.MentorID,
		MenteeID:    row.MenteeID,
		Status:      row.Status,
		StartDate:   row.StartDate.UTC(),
		EndDate:     row.EndDate.UTC(),
		FocusAreas:  fromInt64Array(row.FocusAreas),
		Frequency:   row.Frequency,
		RequestID:   row.RequestID,
		Goals:       []mentoring.Goal{},
		CompletedAt: utcPtr(row.CompletedAt),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo mentoringRepository) CreateMentorship(ctx context.Context, ms mentoring.Mentorship, exec ...core.DBExecutor) (mentoring.Mentorship, error) {
	const q = `
		INSERT INTO mentorships (
			id, mentor_id, mentee_id, status, start_date, end_date, focus_areas, frequency,
			request_id, completed_at, created_at, updated_at
		) VALUES (
			:id, :mentor_id, :mentee_id, :status, :start_date, :end_date, :focus_areas, :frequency,
			:request_id, :completed_at, :created_at, :updated_at
		) RETURNING *`
	var saved mentorshipRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilMentorship(ms)); err != nil {
		return mentoring.Mentorship{}, errors.Wrap(err, "inserting mentorship")
	}
	return unboilMentorship(saved), nil
}

func (repo mentoringRepository) GetMentorship(ctx context.Context, id string, exec ...core.DBExecutor) (mentoring.Mentorship, error) {
	if !isUUID(id) {
		return mentoring.Mentorship{}, mentoring.ErrMentorshipNotFound
	}
	ex := repo.getExec(exec)
	var row mentorshipRow
	err := sqlx.GetContext(ctx, ex, &row, `SELECT * FROM mentorships WHERE id = $1`+forUpdate(ex), id)
	if err != nil {
		return mentoring.Mentorship{}, trapNoRowsErr(err, mentoring.ErrMentorshipNotFound, "getting mentorship")
	}
	return unboilMentorship(row), nil
}

func (repo mentoringRepository) UpdateMentorship(ctx context.Context, ms mentoring.Mentorship, exec ...core.DBExecutor) (mentoring.Mentorship, error) {
	const q = `
		UPDATE mentorships SET
			status = :status,
			end_date = :end_date,
			focus_areas = :focus_areas,
			frequency = :frequency,
			completed_at = :completed_at,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING *`
	var saved mentorshipRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilMentorship(ms)); err != nil {
		return mentoring.Mentorship{}, trapNoRowsErr(err, mentoring.ErrMentorshipNotFound, "updating mentorship")
	}
	return unboilMentorship(saved), nil
}

func (repo mentoringRepository) QueryMentorships(ctx context.Context, filter mentoring.MentorshipFilter, exec ...core.DBExecutor) ([]mentoring.Mentorship, error) {
	var w where
	userWhere(&w, filter.UserID, filter.Role)
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []mentorshipRow
	q := "SELECT * FROM mentorships" + w.String() + orderBy(filter.Ordering, mentorshipColumns, "start_date DESC")
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying mentorships")
	}
	mss := make([]mentoring.Mentorship, 0, len(rows))
	for _, row := range rows {
		mss = append(mss, unboilMentorship(row))
	}
	return mss, nil
}

// Goals

func boilGoal(g mentoring.Goal) goalRow {
	return goalRow{
		ID:           g.ID,
		MentorshipID: g.MentorshipID,
		Text:         g.Text,
		Status:       g.Status,
		Position:     g.Position,
		CompletedAt:  null.TimeFromPtr(g.CompletedAt),
		CreatedAt:    g.CreatedAt.UTC(),
		UpdatedAt:    g.UpdatedAt.UTC(),
	}
}

func unboilGoal(row goalRow) mentoring.Goal {
	return mentoring.Goal{
		ID:           row.ID,
		MentorshipID: row.MentorshipID,
		Text:         row.Text,
		Status:       row.Status,
		Position:     row.Position,
		CompletedAt:  utcPtr(row.CompletedAt),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo mentoringRepository) CreateGoals(ctx context.Context, goals []mentoring.Goal, exec ...core.DBExecutor) ([]mentoring.Goal, error) {
	const q = `
		INSERT INTO mentorship_goals (id, mentorship_id, text, status, position, completed_at, created_at, updated_at)
		VALUES (:id, :mentorship_id, :text, :status, :position, :completed_at, :created_at, :updated_at)
		RETURNING *`
	ex := repo.getExec(exec)
	saved := make([]mentoring.Goal, 0, len(goals))
	for _, g := range goals {
		var row goalRow
		if err := namedGet(ctx, ex, &row, q, boilGoal(g)); err != nil {
			return nil, errors.Wrap(err, "inserting goal")
		}
		saved = append(saved, unboilGoal(row))
	}
	return saved, nil
}

func (repo mentoringRepository) GetGoal(ctx context.Context, mentorshipID, goalID string, exec ...core.DBExecutor) (mentoring.Goal, error) {
	if !isUUID(goalID) || !isUUID(mentorshipID) {
		return mentoring.Goal{}, mentoring.ErrGoalNotFound
	}
	ex := repo.getExec(exec)
	var row goalRow
	err := sqlx.GetContext(ctx, ex, &row,
		`SELECT * FROM mentorship_goals WHERE id = $1 AND mentorship_id = $2`+forUpdate(ex), goalID, mentorshipID)
	if err != nil {
		return mentoring.Goal{}, trapNoRowsErr(err, mentoring.ErrGoalNotFound, "getting goal")
	}
	return unboilGoal(row), nil
}

func (repo mentoringRepository) UpdateGoal(ctx context.Context, goal mentoring.Goal, exec ...core.DBExecutor) (mentoring.Goal, error) {
	const q = `
		UPDATE mentorship_goals SET
			text = :text,
			status = :status,
			completed_at = :completed_at,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING *`
	var saved goalRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilGoal(goal)); err != nil {
		return mentoring.Goal{}, trapNoRowsErr(err, mentoring.ErrGoalNotFound, "updating goal")
	}
	return unboilGoal(saved), nil
}

func (repo mentoringRepository) QueryGoals(ctx context.Context, mentorshipIDs []string, exec ...core.DBExecutor) ([]mentoring.Goal, error) {
	var rows []goalRow
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows,
		`SELECT * FROM mentorship_goals WHERE mentorship_id = ANY($1::uuid[]) ORDER BY mentorship_id, position`,
		pq.StringArray(mentorshipIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying goals")
	}
	goals := make([]mentoring.Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, unboilGoal(row))
	}
	return goals, nil
}

// Meetings

func boilMeeting(mtg mentoring.Meeting) meetingRow {
	return meetingRow{
		ID:            mtg.ID,
		MentorshipID:  mtg.MentorshipID,
		Date:          mtg.Date.UTC(),
		Duration:      mtg.Duration,
		Format:        mtg.Format,
		Agenda:        nullString(mtg.Agenda),
		Notes:         nullString(mtg.Notes),
		Status:        mtg.Status,
		CPDCreditedAt: null.TimeFromPtr(mtg.CPDCreditedAt),
		CreatedAt:     mtg.CreatedAt.UTC(),
		UpdatedAt:     mtg.UpdatedAt.UTC(),
	}
}

func unboilMeeting(row meetingRow) mentoring.Meeting {
	return mentoring.Meeting{
		ID:            row.ID,
		MentorshipID:  row.MentorshipID,
		Date:          row.Date.UTC(),
		Duration:      row.Duration,
		Format:        row.Format,
		Agenda:        row.Agenda.String,
		Notes:         row.Notes.String,
		Status:        row.Status,
		CPDCreditedAt: utcPtr(row.CPDCreditedAt),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func (repo mentoringRepository) CreateMeeting(ctx context.Context, mtg mentoring.Meeting, exec ...core.DBExecutor) (mentoring.Meeting, error) {
	const q = `
		INSERT INTO mentorship_meetings (
			id, mentorship_id, date, duration, format, agenda, notes, status, cpd_credited_at, created_at, updated_at
		) VALUES (
			:id, :mentorship_id, :date, :duration, :format, :agenda, :notes, :status, :cpd_credited_at, :created_at, :updated_at
		) RETURNING *`
	var saved meetingRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilMeeting(mtg)); err != nil {
		return mentoring.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return unboilMeeting(saved), nil
}

func (repo mentoringRepository) GetMeeting(ctx context.Context, id string, exec ...core.DBExecutor) (mentoring.Meeting, error) {
	if !isUUID(id) {
		return mentoring.Meeting{}, mentoring.ErrMeetingNotFound
	}
	ex := repo.getExec(exec)
	var row meetingRow
	err := sqlx.GetContext(ctx, ex, &row, `SELECT * FROM mentorship_meetings WHERE id = $1`+forUpdate(ex), id)
	if err != nil {
		return mentoring.Meeting{}, trapNoRowsErr(err, mentoring.ErrMeetingNotFound, "getting meeting")
	}
	return unboilMeeting(row), nil
}

func (repo mentoringRepository) UpdateMeeting(ctx context.Context, mtg mentoring.Meeting, exec ...core.DBExecutor) (mentoring.Meeting, error) {
	const q = `
		UPDATE mentorship_meetings SET
			date = :date,
			duration = :duration,
			format = :format,
			agenda = :agenda,
			notes = :notes,
			status = :status,
			cpd_credited_at = :cpd_credited_at,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING *`
	var saved meetingRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, boilMeeting(mtg)); err != nil {
		return mentoring.Meeting{}, trapNoRowsErr(err, mentoring.ErrMeetingNotFound, "updating meeting")
	}
	return unboilMeeting(saved), nil
}

func (repo mentoringRepository) QueryMeetings(ctx context.Context, mentorshipIDs []string, exec ...core.DBExecutor) ([]mentoring.Meeting, error) {
	var rows []meetingRow
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows,
		`SELECT * FROM mentorship_meetings WHERE mentorship_id = ANY($1::uuid[]) ORDER BY date`,
		pq.StringArray(mentorshipIDs))
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	mtgs := make([]mentoring.Meeting, 0, len(rows))
	for _, row := range rows {
		mtgs = append(mtgs, unboilMeeting(row))
	}
	return mtgs, nil
}

// Resources & feedback

func (repo mentoringRepository) CreateResource(ctx context.Context, res mentoring.Resource, exec ...core.DBExecutor) (mentoring.Resource, error) {
	const q = `
		INSERT INTO mentorship_resources (id, mentorship_id, title, description, type, url, file_url, added_by, created_at)
		VALUES (:id, :mentorship_id, :title, :description, :type, :url, :file_url, :added_by, :created_at)
		RETURNING *`
	row := resourceRow{
		ID:           res.ID,
		MentorshipID: res.MentorshipID,
		Title:        res.Title,
		Description:  nullString(res.Description),
		Type:         res.Type,
		URL:          nullString(res.URL),
		FileURL:      nullString(res.FileURL),
		AddedBy:      nullString(res.AddedBy),
		CreatedAt:    res.CreatedAt.UTC(),
	}
	var saved resourceRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, row); err != nil {
		return mentoring.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return unboilResource(saved), nil
}

func unboilResource(row resourceRow) mentoring.Resource {
	return mentoring.Resource{
		ID:           row.ID,
		MentorshipID: row.MentorshipID,
		Title:        row.Title,
		Description:  row.Description.String,
		Type:         row.Type,
		URL:          row.URL.String,
		FileURL:      row.FileURL.String,
		AddedBy:      row.AddedBy.String,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func (repo mentoringRepository) QueryResources(ctx context.Context, mentorshipID string, exec ...core.DBExecutor) ([]mentoring.Resource, error) {
	var rows []resourceRow
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows,
		`SELECT * FROM mentorship_resources WHERE mentorship_id = $1 ORDER BY created_at`, mentorshipID)
	if err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]mentoring.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, unboilResource(row))
	}
	return resources, nil
}

func (repo mentoringRepository) CreateFeedback(ctx context.Context, fb mentoring.Feedback, exec ...core.DBExecutor) (mentoring.Feedback, error) {
	const q = `
		INSERT INTO mentorship_feedback (id, mentorship_id, from_user_id, to_user_id, rating, comment, meeting_id, created_at)
		VALUES (:id, :mentorship_id, :from_user_id, :to_user_id, :rating, :comment, :meeting_id, :created_at)
		RETURNING *`
	row := feedbackRow{
		ID:           fb.ID,
		MentorshipID: fb.MentorshipID,
		FromUserID:   fb.FromUserID,
		ToUserID:     fb.ToUserID,
		Rating:       fb.Rating,
		Comment:      nullString(fb.Comment),
		MeetingID:    nullString(fb.MeetingID),
		CreatedAt:    fb.CreatedAt.UTC(),
	}
	var saved feedbackRow
	if err := namedGet(ctx, repo.getExec(exec), &saved, q, row); err != nil {
		return mentoring.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return unboilFeedback(saved), nil
}

func unboilFeedback(row feedbackRow) mentoring.Feedback {
	return mentoring.Feedback{
		ID:           row.ID,
		MentorshipID: row.MentorshipID,
		FromUserID:   row.FromUserID,
		ToUserID:     row.ToUserID,
		Rating:       row.Rating,
		Comment:      row.Comment.String,
		MeetingID:    row.MeetingID.String,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func (repo mentoringRepository) QueryFeedback(ctx context.Context, mentorshipID string, exec ...core.DBExecutor) ([]mentoring.Feedback, error) {
	var rows []feedbackRow
	err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows,
		`SELECT * FROM mentorship_feedback WHERE mentorship_id = $1 ORDER BY created_at`, mentorshipID)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	feedback := make([]mentoring.Feedback, 0, len(rows))
	for _, row := range rows {
		feedback = append(feedback, unboilFeedback(row))
	}
	return feedback, nil
}
