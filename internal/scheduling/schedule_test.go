package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchFixture(t *testing.T) (*testEnv, Actor, Actor) {
	env := newTestEnv(t)

	anxiety := env.addProfessional("Dr. Rojas", "anxiety", "La Paz")
	env.addRule(anxiety.ID, 0, mustMinute(t, "09:00"), mustMinute(t, "12:00"))

	trauma := env.addProfessional("Dr. Choque", "trauma", "Sucre")
	env.addRule(trauma.ID, 0, mustMinute(t, "14:00"), mustMinute(t, "17:00"))

	return env, anxiety, trauma
}

func TestSearchProfessionals(t *testing.T) {
	env, anxiety, trauma := searchFixture(t)
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	results, err := env.query.SearchProfessionals(context.Background(), SearchInput{Date: monday})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[uuid.UUID]SearchResult{}
	for _, r := range results {
		byID[r.Professional.ID] = r
	}
	require.Len(t, byID[anxiety.ID].FreeSlots, 3)
	assert.Equal(t, mustMinute(t, "09:00"), byID[anxiety.ID].FreeSlots[0].Start)
	require.Len(t, byID[trauma.ID].FreeSlots, 3)

	// Tuesday: nobody is open.
	results, err = env.query.SearchProfessionals(context.Background(), SearchInput{Date: monday.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchProfessionalsFilters(t *testing.T) {
	env, anxiety, trauma := searchFixture(t)
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	results, err := env.query.SearchProfessionals(context.Background(), SearchInput{
		Date:           monday,
		Specialization: "anxiety",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, anxiety.ID, results[0].Professional.ID)

	results, err = env.query.SearchProfessionals(context.Background(), SearchInput{
		Date: monday,
		City: "Sucre",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, trauma.ID, results[0].Professional.ID)

	results, err = env.query.SearchProfessionals(context.Background(), SearchInput{
		Date:           monday,
		Specialization: "anxiety",
		City:           "Sucre",
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchProfessionalsAtTime(t *testing.T) {
	env, anxiety, trauma := searchFixture(t)
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	at := mustMinute(t, "10:00")
	results, err := env.query.SearchProfessionals(context.Background(), SearchInput{Date: monday, Time: &at})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, anxiety.ID, results[0].Professional.ID)

	// 12:00 is the exclusive end of the morning rule.
	at = mustMinute(t, "12:00")
	results, err = env.query.SearchProfessionals(context.Background(), SearchInput{Date: monday, Time: &at})
	require.NoError(t, err)
	assert.Empty(t, results)

	at = mustMinute(t, "14:00")
	results, err = env.query.SearchProfessionals(context.Background(), SearchInput{Date: monday, Time: &at})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, trauma.ID, results[0].Professional.ID)
}

func TestSearchProfessionalsExcludesBookedSlots(t *testing.T) {
	env, anxiety, _ := searchFixture(t)
	patient := env.addPatient("Ana")
	monday := DateOnly(mondayMorning).AddDate(0, 0, 7)

	_, err := env.svc.CreateAppointment(context.Background(), patient, CreateBookingInput{
		ProfessionalID: anxiety.ID,
		Date:           monday,
		Start:          mustMinute(t, "10:00"),
	})
	require.NoError(t, err)

	results, err := env.query.SearchProfessionals(context.Background(), SearchInput{
		Date:           monday,
		Specialization: "anxiety",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	free := results[0].FreeSlots
	require.Len(t, free, 2)
	assert.Equal(t, mustMinute(t, "09:00"), free[0].Start)
	assert.Equal(t, mustMinute(t, "11:00"), free[1].Start)
}

func TestSearchProfessionalsPastDate(t *testing.T) {
	env, _, _ := searchFixture(t)

	_, err := env.query.SearchProfessionals(context.Background(), SearchInput{
		Date: DateOnly(mondayMorning).AddDate(0, 0, -1),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWeeklySchedule(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "anxiety", "La Paz")
	env.addPolicy(pro.ID, 60, nil)
	rule := env.addRule(pro.ID, 0, mustMinute(t, "09:00"), mustMinute(t, "12:00"))
	env.addRule(pro.ID, 2, mustMinute(t, "14:00"), mustMinute(t, "16:00"))
	patient := env.addPatient("Ana")

	weekStart := DateOnly(mondayMorning).AddDate(0, 0, 7)

	_, err := env.svc.CreateAppointment(context.Background(), patient, CreateBookingInput{
		ProfessionalID: pro.ID,
		Date:           weekStart,
		Start:          mustMinute(t, "10:00"),
	})
	require.NoError(t, err)

	week, err := env.query.WeeklySchedule(context.Background(), pro.ID, weekStart)
	require.NoError(t, err)

	assert.Equal(t, pro.ID, week.Professional.ID)
	assert.Equal(t, weekStart, week.WeekStart)
	assert.Equal(t, weekStart.AddDate(0, 0, 6), week.WeekEnd)
	require.Len(t, week.Days, 7)

	mondaySchedule := week.Days[0]
	assert.Equal(t, 0, mondaySchedule.Weekday)
	assert.True(t, mondaySchedule.Available)
	require.Len(t, mondaySchedule.Slots, 3)
	assert.False(t, mondaySchedule.Slots[0].Booked)
	assert.True(t, mondaySchedule.Slots[1].Booked, "the 10:00 slot is taken")
	assert.False(t, mondaySchedule.Slots[2].Booked)

	tuesday := week.Days[1]
	assert.False(t, tuesday.Available)
	assert.Empty(t, tuesday.Slots)

	wednesday := week.Days[2]
	assert.True(t, wednesday.Available)
	assert.Len(t, wednesday.Slots, 2)

	// Block next Monday's rule and the day flips to blocked.
	_, err = env.svc.BlockDate(context.Background(), pro, rule.ID, weekStart)
	require.NoError(t, err)

	week, err = env.query.WeeklySchedule(context.Background(), pro.ID, weekStart)
	require.NoError(t, err)
	assert.False(t, week.Days[0].Available)
	assert.True(t, week.Days[0].Blocked)
	assert.Empty(t, week.Days[0].Slots)
}

func TestWeeklyScheduleUnknownProfessional(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.query.WeeklySchedule(context.Background(), uuid.New(), DateOnly(mondayMorning))
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
}
