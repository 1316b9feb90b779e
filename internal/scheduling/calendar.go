package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calendar resolves which availability rules apply to a professional on a
// concrete date: active rules matching the date's weekday, minus rules that
// have the date in their blocked set. Blocking is all-or-nothing per rule.
type Calendar struct {
	repo Repository
}

func NewCalendar(repo Repository) *Calendar {
	return &Calendar{repo: repo}
}

// Open returns the rules under which the professional can be booked on date,
// ordered by start time.
func (c *Calendar) Open(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]AvailabilityRule, error) {
	open, _, err := c.DayRules(ctx, professionalID, date)
	return open, err
}

// DayRules returns the open rules for date plus whether any rule for that
// weekday is explicitly blocked on it. The blocked flag feeds calendar
// views; booking decisions only need the open set.
func (c *Calendar) DayRules(ctx context.Context, professionalID uuid.UUID, date time.Time) (open []AvailabilityRule, anyBlocked bool, err error) {
	rules, err := c.repo.ListActiveRules(ctx, professionalID, WeekdayIndex(date))
	if err != nil {
		return nil, false, fmt.Errorf("list active rules: %w", err)
	}

	for _, r := range rules {
		if r.IsBlockedOn(date) {
			anyBlocked = true
			continue
		}
		open = append(open, r)
	}
	return open, anyBlocked, nil
}
