package mentoring

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core/cpd"
)

const analyticsMonths = 12

type (
	Analytics struct {
		Mentorships           MentorshipCounts `json:"mentorships"`
		Meetings              MeetingCounts    `json:"meetings"`
		Goals                 GoalCounts       `json:"goals"`
		CPDPoints             float64          `json:"cpdPoints"`
		ExpertiseDistribution []ExpertiseCount `json:"expertiseDistribution"`
		MonthlyMeetings       []MonthCount     `json:"monthlyMeetings"` // oldest first
	}

	MentorshipCounts struct {
		Total     int `json:"total"`
		Active    int `json:"active"`
		Completed int `json:"completed"`
		Other     int `json:"other"`
	}

	MeetingCounts struct {
		Total          int     `json:"total"`
		Completed      int     `json:"completed"`
		CompletedHours float64 `json:"completedHours"`
	}

	GoalCounts struct {
		Total      int `json:"total"`
		NotStarted int `json:"notStarted"`
		InProgress int `json:"inProgress"`
		Completed  int `json:"completed"`
	}

	ExpertiseCount struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	MonthCount struct {
		Month string `json:"month"` // YYYY-MM
		Count int    `json:"count"`
	}
)

func (svc *service) Analytics(ctx context.Context, userID string) (Analytics, error) {
	stats := Analytics{
		ExpertiseDistribution: []ExpertiseCount{},
		MonthlyMeetings:       newMonthSeries(nowFunc()),
	}

	mss, err := svc.repo.QueryMentorships(ctx, MentorshipFilter{UserID: userID})
	if err != nil {
		return Analytics{}, errors.Wrap(err, "querying mentorships")
	}

	ids := make([]string, 0, len(mss))
	focus := make(map[int]int)
	for _, ms := range mss {
		ids = append(ids, ms.ID)
		stats.Mentorships.Total++
		switch ms.Status {
		case StatusActive:
			stats.Mentorships.Active++
		case StatusCompleted:
			stats.Mentorships.Completed++
		default:
			stats.Mentorships.Other++
		}
		if ms.MentorID == userID {
			for _, id := range ms.FocusAreas {
				focus[id]++
			}
		}
	}
	stats.ExpertiseDistribution = expertiseDistribution(focus)

	if len(ids) > 0 {
		mtgs, err := svc.repo.QueryMeetings(ctx, ids)
		if err != nil {
			return Analytics{}, errors.Wrap(err, "querying meetings")
		}
		months := make(map[string]int, len(stats.MonthlyMeetings))
		for i, m := range stats.MonthlyMeetings {
			months[m.Month] = i
		}
		var minutes int
		for _, mtg := range mtgs {
			stats.Meetings.Total++
			if mtg.Status != MeetingCompleted {
				continue
			}
			stats.Meetings.Completed++
			minutes += mtg.Duration
			if i, ok := months[mtg.Date.UTC().Format("2006-01")]; ok {
				stats.MonthlyMeetings[i].Count++
			}
		}
		stats.Meetings.CompletedHours = float64(minutes) / 60

		goals, err := svc.repo.QueryGoals(ctx, ids)
		if err != nil {
			return Analytics{}, errors.Wrap(err, "querying goals")
		}
		for _, g := range goals {
			stats.Goals.Total++
			switch g.Status {
			case GoalNotStarted:
				stats.Goals.NotStarted++
			case GoalInProgress:
				stats.Goals.InProgress++
			case GoalCompleted:
				stats.Goals.Completed++
			}
		}
	}

	acts, err := svc.cpdRepo.QueryActivities(ctx, cpd.ActivityFilter{UserID: userID, Type: cpd.TypeMentoring})
	if err != nil {
		return Analytics{}, errors.Wrap(err, "querying cpd activities")
	}
	for _, act := range acts {
		stats.CPDPoints += act.Points
	}

	return stats, nil
}

// newMonthSeries returns the 12 calendar months ending with the month of now, oldest first.
func newMonthSeries(now time.Time) []MonthCount {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	series := make([]MonthCount, analyticsMonths)
	for i := range series {
		month := first.AddDate(0, i-(analyticsMonths-1), 0)
		series[i] = MonthCount{Month: month.Format("2006-01")}
	}
	return series
}

func expertiseDistribution(focus map[int]int) []ExpertiseCount {
	dist := make([]ExpertiseCount, 0, len(focus))
	for id, count := range focus {
		dist = append(dist, ExpertiseCount{ID: id, Name: ExpertiseName(id), Count: count})
	}
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Count != dist[j].Count {
			return dist[i].Count > dist[j].Count
		}
		return dist[i].ID < dist[j].ID
	})
	return dist
}
