package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/config"
)

// ScheduleQuery composes the calendar, slot generation and conflict checks
// into the two read views: professional search and the weekly schedule.
// It is read-only and takes no locks; a view may be stale by at most one
// concurrent booking.
type ScheduleQuery struct {
	repo            Repository
	clock           Clock
	calendar        *Calendar
	sessionDefaults int
}

func NewScheduleQuery(repo Repository, clock Clock, cfg config.Config) *ScheduleQuery {
	return &ScheduleQuery{
		repo:            repo,
		clock:           clock,
		calendar:        NewCalendar(repo),
		sessionDefaults: cfg.SessionMinutes,
	}
}

type SearchInput struct {
	Date           time.Time
	Time           *MinuteOfDay // optional: only professionals open at this time
	Specialization string
	City           string
}

// SearchResult is one bookable professional with their free slots for the
// searched date.
type SearchResult struct {
	Professional Professional
	FreeSlots    []Slot
}

// SearchProfessionals finds professionals bookable on a date, optionally at
// a given time, filtered by specialization and city.
func (q *ScheduleQuery) SearchProfessionals(ctx context.Context, in SearchInput) ([]SearchResult, error) {
	date := DateOnly(in.Date)
	if date.Before(DateOnly(q.clock.Now())) {
		return nil, fmt.Errorf("%w: cannot search past dates", ErrValidation)
	}
	if in.Time != nil && !in.Time.Valid() {
		return nil, fmt.Errorf("%w: time out of range", ErrValidation)
	}

	candidates, err := q.repo.SearchProfessionals(ctx, in.Specialization, in.City)
	if err != nil {
		return nil, fmt.Errorf("search professionals: %w", err)
	}

	var results []SearchResult
	for _, pro := range candidates {
		open, _, err := q.calendar.DayRules(ctx, pro.ID, date)
		if err != nil {
			return nil, err
		}
		if in.Time != nil {
			open = rulesOpenAt(open, *in.Time)
		}
		if len(open) == 0 {
			continue
		}

		free, err := q.freeSlots(ctx, pro.ID, date, open)
		if err != nil {
			return nil, err
		}

		results = append(results, SearchResult{Professional: pro, FreeSlots: free})
	}
	return results, nil
}

// rulesOpenAt keeps rules whose hours contain instant t (end exclusive).
func rulesOpenAt(rules []AvailabilityRule, t MinuteOfDay) []AvailabilityRule {
	var out []AvailabilityRule
	for _, r := range rules {
		if r.Start <= t && t < r.End {
			out = append(out, r)
		}
	}
	return out
}

func (q *ScheduleQuery) freeSlots(ctx context.Context, professionalID uuid.UUID, date time.Time, open []AvailabilityRule) ([]Slot, error) {
	duration, err := q.sessionDuration(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	booked, err := q.repo.ListBookedForDay(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}

	var free []Slot
	for i := range open {
		for slot := range open[i].Slots(duration) {
			if firstConflict(booked, slot.Start, slot.End, uuid.Nil) == nil {
				free = append(free, slot)
			}
		}
	}
	return free, nil
}

type DaySchedule struct {
	Date      time.Time
	Weekday   int
	Available bool
	Blocked   bool
	Slots     []Slot
}

type WeekSchedule struct {
	Professional Professional
	WeekStart    time.Time
	WeekEnd      time.Time
	Days         []DaySchedule
}

// WeeklySchedule renders 7 consecutive days starting at weekStart for one
// professional: per-day availability and blocked flags plus every slot
// annotated booked or free.
func (q *ScheduleQuery) WeeklySchedule(ctx context.Context, professionalID uuid.UUID, weekStart time.Time) (*WeekSchedule, error) {
	pro, err := q.repo.GetProfessionalByID(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load professional: %w", err)
	}

	duration, err := q.sessionDuration(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	start := DateOnly(weekStart)
	week := &WeekSchedule{
		Professional: *pro,
		WeekStart:    start,
		WeekEnd:      start.AddDate(0, 0, 6),
		Days:         make([]DaySchedule, 0, 7),
	}

	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i)

		open, anyBlocked, err := q.calendar.DayRules(ctx, professionalID, date)
		if err != nil {
			return nil, err
		}

		day := DaySchedule{
			Date:      date,
			Weekday:   WeekdayIndex(date),
			Available: len(open) > 0,
			Blocked:   anyBlocked,
		}

		if len(open) > 0 {
			booked, err := q.repo.ListBookedForDay(ctx, professionalID, date)
			if err != nil {
				return nil, fmt.Errorf("list booked appointments: %w", err)
			}
			for j := range open {
				for slot := range open[j].Slots(duration) {
					slot.Booked = firstConflict(booked, slot.Start, slot.End, uuid.Nil) != nil
					day.Slots = append(day.Slots, slot)
				}
			}
		}

		week.Days = append(week.Days, day)
	}

	return week, nil
}

func (q *ScheduleQuery) sessionDuration(ctx context.Context, professionalID uuid.UUID) (int, error) {
	policy, err := q.repo.GetSessionPolicy(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return q.sessionDefaults, nil
		}
		return 0, fmt.Errorf("load session policy: %w", err)
	}
	if policy.DurationMinutes <= 0 {
		return q.sessionDefaults, nil
	}
	return policy.DurationMinutes, nil
}
