package portfolio

import (
	"context"
	"time"

	"github.com/edpsychconnect/connect/core"
)

// Entry types
const (
	TypeMentorshipGoal       = "mentorship_goal"
	TypeMentorshipCompleted  = "mentorship_completed"
	TypeMentoringProvided    = "mentoring_provided"
	TypeMentorshipReflection = "mentorship_reflection"
)

// Visibility levels
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Achievement is a milestone appended to a user's portfolio.
// SourceKey identifies the event that produced it; a user holds at most one achievement per key.
type Achievement struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	MentorshipID string    `json:"mentorshipId,omitempty"`
	SourceKey    string    `json:"-"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	Tags         []string  `json:"tags"`
	Visibility   string    `json:"visibility"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

type Reflection struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	MentorshipID string    `json:"mentorshipId,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	Tags         []string  `json:"tags"`
	Visibility   string    `json:"visibility"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

type Filter struct {
	UserID       string
	MentorshipID string
}

type Repository interface {
	// AddAchievement inserts ach unless the user already holds an achievement with the same SourceKey.
	// created reports whether a row was inserted.
	AddAchievement(ctx context.Context, ach Achievement, exec ...core.DBExecutor) (saved Achievement, created bool, err error)
	AddReflection(ctx context.Context, ref Reflection, exec ...core.DBExecutor) (Reflection, error)
	QueryAchievements(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Achievement, error)
	QueryReflections(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Reflection, error)
}
