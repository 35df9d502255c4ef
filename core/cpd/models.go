package cpd

import "time"

// Activity statuses
const (
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Activity types
const (
	TypeMentoring = "Mentoring"
)

// Participant roles of a mentoring activity
const (
	RoleMentor = "mentor"
	RoleMentee = "mentee"
)

const (
	// MinutesPerPoint is the accreditation rate: one point per hour.
	MinutesPerPoint = 60

	DefaultTargetPoints = 30
)

// PointsFor converts meeting minutes to CPD points.
func PointsFor(minutes int) float64 {
	return float64(minutes) / MinutesPerPoint
}

// Profile is the CPD record of a user, created alongside their mentoring profile.
type Profile struct {
	UserID       string    `json:"userId"`
	TargetPoints float64   `json:"targetPoints"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

// Activity is one continuing-professional-development entry of a user.
// Mentoring activities are linked to their mentorship by MentorshipID and Role.
type Activity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	MentorshipID string    `json:"mentorshipId,omitempty"`
	Role         string    `json:"role,omitempty"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Date         time.Time `json:"date"`
	Duration     int       `json:"duration"` // minutes
	Points       float64   `json:"points"`
	Status       string    `json:"status"`
	Evidence     string    `json:"evidence"`
	Reflection   string    `json:"reflection"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

type ActivityFilter struct {
	UserID       string
	MentorshipID string
	Type         string
}
