package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAvailabilityRule(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")

	rule, err := env.svc.CreateAvailabilityRule(context.Background(), pro, AvailabilityInput{
		Weekday: 2,
		Start:   mustMinute(t, "14:00"),
		End:     mustMinute(t, "18:00"),
		Active:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, pro.ID, rule.ProfessionalID)
	assert.Equal(t, 2, rule.Weekday)
	assert.NotNil(t, rule.BlockedDates)

	stored, err := env.repo.GetRuleByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestCreateAvailabilityRuleValidation(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")

	cases := []struct {
		name string
		in   AvailabilityInput
	}{
		{"weekday too high", AvailabilityInput{Weekday: 7, Start: 540, End: 720}},
		{"weekday negative", AvailabilityInput{Weekday: -1, Start: 540, End: 720}},
		{"start after end", AvailabilityInput{Weekday: 0, Start: 720, End: 540}},
		{"zero length", AvailabilityInput{Weekday: 0, Start: 540, End: 540}},
		{"end past midnight", AvailabilityInput{Weekday: 0, Start: 540, End: 1441}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateAvailabilityRule(context.Background(), pro, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// 24:00 is a legal end.
	_, err := env.svc.CreateAvailabilityRule(context.Background(), pro, AvailabilityInput{
		Weekday: 0, Start: mustMinute(t, "22:00"), End: MinutesPerDay, Active: true,
	})
	require.NoError(t, err)

	patient := env.addPatient("Ana")
	_, err = env.svc.CreateAvailabilityRule(context.Background(), patient, AvailabilityInput{
		Weekday: 0, Start: 540, End: 720,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOverlappingRulesAllowed(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")

	for _, in := range []AvailabilityInput{
		{Weekday: 0, Start: 540, End: 780, Active: true},
		{Weekday: 0, Start: 600, End: 720, Active: true},
	} {
		_, err := env.svc.CreateAvailabilityRule(context.Background(), pro, in)
		require.NoError(t, err)
	}

	rules, err := env.svc.ListAvailability(context.Background(), pro, nil)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestUpdateAvailabilityRule(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")
	rule := env.addRule(pro.ID, 0, 540, 720)

	updated, err := env.svc.UpdateAvailabilityRule(context.Background(), pro, rule.ID, AvailabilityInput{
		Weekday: 4,
		Start:   mustMinute(t, "10:00"),
		End:     mustMinute(t, "13:00"),
		Active:  false,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Weekday)
	assert.False(t, updated.Active)

	// Someone else's rule is off limits.
	other := env.addProfessional("Dr. Choque", "trauma", "Sucre")
	_, err = env.svc.UpdateAvailabilityRule(context.Background(), other, rule.ID, AvailabilityInput{
		Weekday: 0, Start: 540, End: 720, Active: true,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.UpdateAvailabilityRule(context.Background(), pro, uuid.New(), AvailabilityInput{
		Weekday: 0, Start: 540, End: 720, Active: true,
	})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestDeactivatedRuleStopsBooking(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")
	rule := env.addRule(pro.ID, 0, mustMinute(t, "09:00"), mustMinute(t, "12:00"))
	patient := env.addPatient("Ana")
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	_, err := env.svc.UpdateAvailabilityRule(context.Background(), pro, rule.ID, AvailabilityInput{
		Weekday: rule.Weekday,
		Start:   rule.Start,
		End:     rule.End,
		Active:  false,
	})
	require.NoError(t, err)

	_, err = env.svc.CreateAppointment(context.Background(), patient, CreateBookingInput{
		ProfessionalID: pro.ID,
		Date:           monday,
		Start:          mustMinute(t, "09:00"),
	})
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBlockAndUnblockDate(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")
	rule := env.addRule(pro.ID, 0, 540, 720)
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	changed, err := env.svc.BlockDate(context.Background(), pro, rule.ID, monday)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.svc.BlockDate(context.Background(), pro, rule.ID, monday)
	require.NoError(t, err)
	assert.False(t, changed, "blocking an already blocked date reports no change")

	stored, err := env.repo.GetRuleByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{DateKey(monday)}, stored.BlockedDates)

	changed, err = env.svc.UnblockDate(context.Background(), pro, rule.ID, monday)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.svc.UnblockDate(context.Background(), pro, rule.ID, monday)
	require.NoError(t, err)
	assert.False(t, changed)

	// Block/unblock leave an audit trail.
	require.Len(t, env.repo.Events, 2)
	assert.Equal(t, EventDateBlocked, env.repo.Events[0].EventType)
	assert.Equal(t, EventDateUnblocked, env.repo.Events[1].EventType)
}

func TestListAvailabilityScoping(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Mamani", "anxiety", "La Paz")
	other := env.addProfessional("Dr. Choque", "trauma", "Sucre")
	env.addRule(pro.ID, 0, 540, 720)
	env.addRule(pro.ID, 2, 840, 1080)
	env.addRule(other.ID, 1, 540, 720)

	// A professional always gets their own rules, sorted by weekday.
	rules, err := env.svc.ListAvailability(context.Background(), pro, &other.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 0, rules[0].Weekday)
	assert.Equal(t, 2, rules[1].Weekday)

	// Patients must name a professional.
	patient := env.addPatient("Ana")
	_, err = env.svc.ListAvailability(context.Background(), patient, nil)
	assert.ErrorIs(t, err, ErrValidation)

	rules, err = env.svc.ListAvailability(context.Background(), patient, &other.ID)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
