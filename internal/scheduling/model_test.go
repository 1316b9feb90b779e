package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want MinuteOfDay
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:00", 540, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"09:60", 0, false},
		{"9am", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseMinuteOfDay(tc.in)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestMinuteOfDayString(t *testing.T) {
	assert.Equal(t, "00:00", MinuteOfDay(0).String())
	assert.Equal(t, "09:05", MinuteOfDay(545).String())
	assert.Equal(t, "23:59", MinuteOfDay(1439).String())
}

func TestMinuteOfDayJSON(t *testing.T) {
	type wrapper struct {
		At MinuteOfDay `json:"at"`
	}

	data, err := json.Marshal(wrapper{At: 570})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"09:30"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"at":"14:15"}`), &w))
	assert.Equal(t, MinuteOfDay(855), w.At)

	assert.Error(t, json.Unmarshal([]byte(`{"at":855}`), &w))
	assert.Error(t, json.Unmarshal([]byte(`{"at":"25:00"}`), &w))
}

func TestWeekdayIndex(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, WeekdayIndex(monday.AddDate(0, 0, i)))
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	}
	all := []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestRuleCovers(t *testing.T) {
	r := AvailabilityRule{Start: 540, End: 720} // 09:00-12:00

	assert.True(t, r.Covers(540, 600))
	assert.True(t, r.Covers(660, 720))
	assert.True(t, r.Covers(540, 720))
	assert.False(t, r.Covers(530, 600))
	assert.False(t, r.Covers(660, 721))
	assert.False(t, r.Covers(720, 780))
}

func TestRuleBlockedDates(t *testing.T) {
	r := AvailabilityRule{}
	d1 := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local)
	d2 := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.Local)

	assert.False(t, r.IsBlockedOn(d1))

	assert.True(t, r.BlockDate(d1))
	assert.False(t, r.BlockDate(d1), "second block of the same date is a no-op")
	assert.True(t, r.BlockDate(d2))

	// The set stays sorted regardless of insertion order.
	assert.Equal(t, []string{"2025-06-02", "2025-06-09"}, r.BlockedDates)
	assert.True(t, r.IsBlockedOn(d1))
	assert.True(t, r.IsBlockedOn(d2))

	assert.True(t, r.UnblockDate(d1))
	assert.False(t, r.UnblockDate(d1), "second unblock is a no-op")
	assert.False(t, r.IsBlockedOn(d1))
	assert.True(t, r.IsBlockedOn(d2))
}

func TestAppointmentStartsAt(t *testing.T) {
	date := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.Local)
	a := Appointment{Date: date, Start: 570}
	assert.Equal(t, time.Date(2025, time.June, 9, 9, 30, 0, 0, time.Local), a.StartsAt())
}
