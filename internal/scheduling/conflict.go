package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// overlaps is standard half-open interval overlap: touching endpoints do
// not conflict (a session ending 10:00 and one starting 10:00 coexist).
func overlaps(aStart, aEnd, bStart, bEnd MinuteOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// firstConflict returns the first appointment in appts that occupies any
// part of [start,end), skipping exclude and anything that no longer blocks
// its slot (cancelled, completed, no_show).
func firstConflict(appts []Appointment, start, end MinuteOfDay, exclude uuid.UUID) *Appointment {
	for i := range appts {
		a := &appts[i]
		if a.ID == exclude || !blocksBooking(a.Status) {
			continue
		}
		if overlaps(a.Start, a.End, start, end) {
			return a
		}
	}
	return nil
}

// ConflictDetector answers whether a candidate interval collides with an
// existing pending or confirmed appointment for a professional on a date.
type ConflictDetector struct {
	repo Repository
}

func NewConflictDetector(repo Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

func (d *ConflictDetector) HasConflict(ctx context.Context, professionalID uuid.UUID, date time.Time, start, end MinuteOfDay, exclude uuid.UUID) (bool, error) {
	booked, err := d.repo.ListBookedForDay(ctx, professionalID, date)
	if err != nil {
		return false, fmt.Errorf("list booked appointments: %w", err)
	}
	return firstConflict(booked, start, end, exclude) != nil, nil
}
