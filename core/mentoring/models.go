package mentoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
)

// Profile roles
const (
	RoleMentor = "mentor"
	RoleMentee = "mentee"
	RoleBoth   = "both"
)

// Request statuses
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

// Request responses
const (
	ResponseAccept  = "accept"
	ResponseDecline = "decline"
)

// Mentorship statuses: pending -(accept)-> active -(complete)-> completed; pending -(decline)-> declined.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDeclined  = "declined"
)

// Goal statuses
const (
	GoalNotStarted = "not_started"
	GoalInProgress = "in_progress"
	GoalCompleted  = "completed"
)

// Meeting statuses
const (
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

type Preferences struct {
	Frequency  string `json:"frequency,omitempty" validate:"max=50"`
	Format     string `json:"format,omitempty" validate:"max=50"`
	FocusAreas []int  `json:"focusAreas,omitempty" validate:"omitempty,expertise"`
}

type Profile struct {
	UserID          string       `json:"userId"`
	Role            string       `json:"role"`
	School          string       `json:"school"`
	Phase           string       `json:"phase"`
	YearsExperience int          `json:"yearsExperience"`
	Expertise       []int        `json:"expertise"`
	Subjects        []string     `json:"subjects"`
	Bio             string       `json:"bio"`
	Availability    string       `json:"availability"`
	Goals           string       `json:"goals"`
	ContactEmail    string       `json:"contactEmail,omitempty"`
	Preferences     *Preferences `json:"preferences,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"` // UTC
	UpdatedAt       time.Time    `json:"updatedAt"` // UTC
}

func (p Profile) IsMentor() bool {
	return p.Role == RoleMentor || p.Role == RoleBoth
}

// ProfileDetail is a profile together with the user's CPD profile.
type ProfileDetail struct {
	Profile
	CPDProfile cpd.Profile `json:"cpdProfile"`
}

type MentorshipRequest struct {
	ID              string     `json:"id"`
	MentorID        string     `json:"mentorId"`
	MenteeID        string     `json:"menteeId"`
	Message         string     `json:"message"`
	FocusAreas      []int      `json:"focusAreas"`
	Goals           []string   `json:"goals"`
	Duration        int        `json:"duration"` // months
	Frequency       string     `json:"frequency"`
	Status          string     `json:"status"`
	ResponseMessage string     `json:"responseMessage,omitempty"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"` // UTC
	CreatedAt       time.Time  `json:"createdAt"`             // UTC
	UpdatedAt       time.Time  `json:"updatedAt"`             // UTC
}

type Goal struct {
	ID           string     `json:"id"`
	MentorshipID string     `json:"mentorshipId"`
	Text         string     `json:"text"`
	Status       string     `json:"status"`
	Position     int        `json:"position"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"` // UTC
	CreatedAt    time.Time  `json:"createdAt"`             // UTC
	UpdatedAt    time.Time  `json:"updatedAt"`             // UTC
}

type Mentorship struct {
	ID          string     `json:"id"`
	MentorID    string     `json:"mentorId"`
	MenteeID    string     `json:"menteeId"`
	Status      string     `json:"status"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	FocusAreas  []int      `json:"focusAreas"`
	Frequency   string     `json:"frequency"`
	RequestID   string     `json:"requestId"`
	Goals       []Goal     `json:"goals"`
	CompletedAt *time.Time `json:"completedAt,omitempty"` // UTC
	CreatedAt   time.Time  `json:"createdAt"`             // UTC
	UpdatedAt   time.Time  `json:"updatedAt"`             // UTC
}

func (ms Mentorship) HasParticipant(userID string) bool {
	return userID != "" && (ms.MentorID == userID || ms.MenteeID == userID)
}

func (ms Mentorship) IsOpen() bool {
	return ms.Status == StatusActive || ms.Status == StatusPending
}

type Meeting struct {
	ID            string     `json:"id"`
	MentorshipID  string     `json:"mentorshipId"`
	Date          time.Time  `json:"date"`
	Duration      int        `json:"duration"` // minutes
	Format        string     `json:"format"`
	Agenda        string     `json:"agenda"`
	Notes         string     `json:"notes"`
	Status        string     `json:"status"`
	CPDCreditedAt *time.Time `json:"cpdCreditedAt,omitempty"` // UTC
	CreatedAt     time.Time  `json:"createdAt"`               // UTC
	UpdatedAt     time.Time  `json:"updatedAt"`               // UTC
}

type Resource struct {
	ID           string    `json:"id"`
	MentorshipID string    `json:"mentorshipId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	URL          string    `json:"url,omitempty"`
	FileURL      string    `json:"fileUrl,omitempty"`
	AddedBy      string    `json:"addedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

type Feedback struct {
	ID           string    `json:"id"`
	MentorshipID string    `json:"mentorshipId"`
	FromUserID   string    `json:"fromUserId"`
	ToUserID     string    `json:"toUserId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	MeetingID    string    `json:"meetingId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

// MentorshipDetail is a mentorship with all of its child records.
type MentorshipDetail struct {
	Mentorship
	Meetings  []Meeting  `json:"meetings"`
	Resources []Resource `json:"resources"`
	Feedback  []Feedback `json:"feedback"`
}

// RequestResult is the outcome of answering a request.
// Mentorship is only set when the request was accepted.
type RequestResult struct {
	Request    MentorshipRequest `json:"request"`
	Mentorship *Mentorship       `json:"mentorship,omitempty"`
}

// Months is a number of months. It decodes from a JSON number or a numeric string.
type Months int

func (m *Months) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("duration must be a whole number of months")
	}
	*m = Months(n)
	return nil
}

// UpdateProfile contains the information needed to create or update a Profile.
type UpdateProfile struct {
	UserID          string       `json:"userId" validate:"required"`
	Role            string       `json:"role" validate:"required,oneof=mentor mentee both"`
	School          string       `json:"school" validate:"max=200"`
	Phase           string       `json:"phase" validate:"max=100"`
	YearsExperience int          `json:"yearsExperience" validate:"gte=0,lte=60"`
	Expertise       []int        `json:"expertise" validate:"omitempty,expertise"`
	Subjects        []string     `json:"subjects" validate:"omitempty,dive,max=100"`
	Bio             string       `json:"bio" validate:"max=2000"`
	Availability    string       `json:"availability" validate:"max=500"`
	Goals           string       `json:"goals" validate:"max=2000"`
	ContactEmail    string       `json:"contactEmail" validate:"omitempty,email"`
	Preferences     *Preferences `json:"preferences" validate:"omitempty"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.UserID = core.CleanString(up.UserID)
	up.Role = core.CleanString(up.Role, true /* lower */)
	up.School = core.CleanString(up.School)
	up.Phase = core.CleanString(up.Phase)
	up.Subjects = core.CleanStrings(up.Subjects)
	up.Bio = core.CleanString(up.Bio)
	up.Availability = core.CleanString(up.Availability)
	up.Goals = core.CleanString(up.Goals)
	up.ContactEmail = core.CleanString(up.ContactEmail, true /* lower */)
	return validate.Struct(up)
}

// NewRequest contains the information needed to request a mentorship.
type NewRequest struct {
	MentorID   string   `json:"mentorId" validate:"required"`
	MenteeID   string   `json:"menteeId" validate:"required,nefield=MentorID"`
	Message    string   `json:"message" validate:"required,max=2000"`
	FocusAreas []int    `json:"focusAreas" validate:"required,min=1,expertise"`
	Goals      []string `json:"goals" validate:"required,min=1,max=20,dive,max=500"`
	Duration   Months   `json:"duration" validate:"required,min=1,max=24"`
	Frequency  string   `json:"frequency" validate:"required,max=50"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.MentorID = core.CleanString(nr.MentorID)
	nr.MenteeID = core.CleanString(nr.MenteeID)
	nr.Message = core.CleanString(nr.Message)
	nr.Goals = core.CleanStrings(nr.Goals)
	nr.Frequency = core.CleanString(nr.Frequency, true /* lower */)
	return validate.Struct(nr)
}

// RequestResponse answers a pending MentorshipRequest.
type RequestResponse struct {
	RequestID string `json:"requestId" validate:"required"`
	Response  string `json:"response" validate:"required,oneof=accept decline"`
	Message   string `json:"message" validate:"max=2000"`
}

func (rr *RequestResponse) Validate(validate *validator.Validate) error {
	rr.RequestID = core.CleanString(rr.RequestID)
	rr.Response = core.CleanString(rr.Response, true /* lower */)
	rr.Message = core.CleanString(rr.Message)
	return validate.Struct(rr)
}

// UpdateMentorship defines what may be changed on an open Mentorship.
type UpdateMentorship struct {
	MentorshipID string     `json:"mentorshipId" validate:"required"`
	FocusAreas   []int      `json:"focusAreas" validate:"omitempty,min=1,expertise"`
	Frequency    *string    `json:"frequency" validate:"omitempty,max=50"`
	EndDate      *time.Time `json:"endDate"`
	NewGoals     []string   `json:"newGoals" validate:"omitempty,max=20,dive,max=500"`
}

func (um *UpdateMentorship) Validate(validate *validator.Validate) error {
	um.MentorshipID = core.CleanString(um.MentorshipID)
	if um.Frequency != nil {
		freq := core.CleanString(*um.Frequency, true /* lower */)
		um.Frequency = &freq
	}
	um.NewGoals = core.CleanStrings(um.NewGoals)
	return validate.Struct(um)
}

type NewMeeting struct {
	MentorshipID string    `json:"mentorshipId" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Duration     int       `json:"duration" validate:"required,min=1,max=1440"`
	Format       string    `json:"format" validate:"required,max=50"`
	Agenda       string    `json:"agenda" validate:"max=2000"`
	Notes        string    `json:"notes" validate:"max=5000"`
	Status       string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

func (nm *NewMeeting) Validate(validate *validator.Validate) error {
	nm.MentorshipID = core.CleanString(nm.MentorshipID)
	nm.Format = core.CleanString(nm.Format, true /* lower */)
	nm.Agenda = core.CleanString(nm.Agenda)
	nm.Notes = core.CleanString(nm.Notes)
	nm.Status = core.CleanString(nm.Status, true /* lower */)
	if nm.Status == "" {
		nm.Status = MeetingScheduled
	}
	return validate.Struct(nm)
}

// UpdateMeeting only changes the fields that are set.
type UpdateMeeting struct {
	MeetingID string     `json:"meetingId" validate:"required"`
	Date      *time.Time `json:"date"`
	Duration  *int       `json:"duration" validate:"omitempty,min=1,max=1440"`
	Format    *string    `json:"format" validate:"omitempty,notblank,max=50"`
	Agenda    *string    `json:"agenda" validate:"omitempty,max=2000"`
	Notes     *string    `json:"notes" validate:"omitempty,max=5000"`
	Status    *string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

func (um *UpdateMeeting) Validate(validate *validator.Validate) error {
	um.MeetingID = core.CleanString(um.MeetingID)
	if um.Status != nil {
		status := core.CleanString(*um.Status, true /* lower */)
		um.Status = &status
	}
	return validate.Struct(um)
}

type NewResource struct {
	MentorshipID string `json:"mentorshipId" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	Type         string `json:"type" validate:"required,max=50"`
	URL          string `json:"url" validate:"omitempty,url"`
	FileURL      string `json:"fileUrl" validate:"omitempty,url"`
	AddedBy      string `json:"addedBy"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.MentorshipID = core.CleanString(nr.MentorshipID)
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.URL = core.CleanString(nr.URL)
	nr.FileURL = core.CleanString(nr.FileURL)
	nr.AddedBy = core.CleanString(nr.AddedBy)
	return validate.Struct(nr)
}

type NewFeedback struct {
	MentorshipID string `json:"mentorshipId" validate:"required"`
	FromUserID   string `json:"fromUserId" validate:"required"`
	ToUserID     string `json:"toUserId" validate:"required,nefield=FromUserID"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"max=2000"`
	MeetingID    string `json:"meetingId"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.MentorshipID = core.CleanString(nf.MentorshipID)
	nf.FromUserID = core.CleanString(nf.FromUserID)
	nf.ToUserID = core.CleanString(nf.ToUserID)
	nf.Comment = core.CleanString(nf.Comment)
	nf.MeetingID = core.CleanString(nf.MeetingID)
	return validate.Struct(nf)
}

type UpdateGoal struct {
	MentorshipID string `json:"mentorshipId" validate:"required"`
	GoalID       string `json:"goalId" validate:"required"`
	Status       string `json:"status" validate:"required,oneof=not_started in_progress completed"`
}

func (ug *UpdateGoal) Validate(validate *validator.Validate) error {
	ug.MentorshipID = core.CleanString(ug.MentorshipID)
	ug.GoalID = core.CleanString(ug.GoalID)
	ug.Status = core.CleanString(ug.Status, true /* lower */)
	return validate.Struct(ug)
}

type CompleteMentorship struct {
	MentorshipID string `json:"mentorshipId" validate:"required"`
	Reflection   string `json:"reflection" validate:"max=5000"`
}

func (cm *CompleteMentorship) Validate(validate *validator.Validate) error {
	cm.MentorshipID = core.CleanString(cm.MentorshipID)
	cm.Reflection = core.CleanString(cm.Reflection)
	return validate.Struct(cm)
}

type MentorFilter struct {
	ExcludeUserID string
	Expertise     int
	Phase         string
	Subject       string
}

func (f *MentorFilter) Clean() {
	f.ExcludeUserID = core.CleanString(f.ExcludeUserID)
	f.Phase = core.CleanString(f.Phase)
	f.Subject = core.CleanString(f.Subject)
}

// RequestFilter selects the requests of a user.
// Role RoleMentor selects received requests, RoleMentee sent ones, "" both.
// Ordering fields are JSON field names from RequestOrderFields; newest first when empty.
type RequestFilter struct {
	UserID   string
	Role     string
	Status   string
	Ordering []core.DBOrdering
}

// MentorshipFilter selects the mentorships of a user; see RequestFilter for Role.
// Ordering fields come from MentorshipOrderFields; latest start first when empty.
type MentorshipFilter struct {
	UserID   string
	Role     string
	Status   string
	Ordering []core.DBOrdering
}

var (
	RequestOrderFields    = []string{"createdAt", "respondedAt", "status", "duration"}
	MentorshipOrderFields = []string{"startDate", "endDate", "createdAt", "status"}
)

func validateOrdering(ordering []core.DBOrdering, allowed []string) error {
	for _, ord := range ordering {
		ok := false
		for _, field := range allowed {
			if ord.Field == field {
				ok = true
				break
			}
		}
		if !ok {
			return core.NewFieldError("ordering", "cannot order by "+ord.Field)
		}
	}
	return nil
}
