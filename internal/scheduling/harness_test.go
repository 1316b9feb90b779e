package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/config"
)

// testClock is a movable clock so tests can cross the cancellation window.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

// mondayMorning anchors the suite: Monday 2025-06-02 08:00 local.
var mondayMorning = time.Date(2025, time.June, 2, 8, 0, 0, 0, time.Local)

type testEnv struct {
	repo  *MemoryRepository
	clock *testClock
	svc   *Service
	query *ScheduleQuery
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := NewMemoryRepository()
	clock := &testClock{now: mondayMorning}
	cfg := config.Config{
		CancelNotice:   24 * time.Hour,
		SessionMinutes: 60,
	}

	return &testEnv{
		repo:  repo,
		clock: clock,
		svc:   NewService(repo, NewLocalLocker(), clock, cfg),
		query: NewScheduleQuery(repo, clock, cfg),
	}
}

func (e *testEnv) addPatient(name string) Actor {
	p := Patient{ID: uuid.New(), Name: name}
	e.repo.Patients[p.ID] = p
	return Actor{ID: p.ID, Role: RolePatient, Name: name}
}

func (e *testEnv) addProfessional(name, specialization, city string) Actor {
	p := Professional{
		ID:             uuid.New(),
		Name:           name,
		Specialization: specialization,
		City:           city,
		Active:         true,
	}
	e.repo.Professionals[p.ID] = p
	return Actor{ID: p.ID, Role: RoleProfessional, Name: name}
}

func (e *testEnv) addRule(professionalID uuid.UUID, weekday int, start, end MinuteOfDay) *AvailabilityRule {
	rule := AvailabilityRule{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		Weekday:        weekday,
		Start:          start,
		End:            end,
		Active:         true,
		BlockedDates:   []string{},
	}
	e.repo.Rules[rule.ID] = rule
	r := rule
	return &r
}

func (e *testEnv) addPolicy(professionalID uuid.UUID, minutes int, fee *float64) {
	e.repo.Policies[professionalID] = SessionPolicy{
		ProfessionalID:  professionalID,
		DurationMinutes: minutes,
		Fee:             fee,
	}
}

func mustMinute(t *testing.T, s string) MinuteOfDay {
	t.Helper()
	m, err := ParseMinuteOfDay(s)
	if err != nil {
		t.Fatalf("parse minute %q: %v", s, err)
	}
	return m
}

func floatPtr(f float64) *float64 { return &f }
