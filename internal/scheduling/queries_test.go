package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAppointment inserts an appointment directly, bypassing the booking
// path, so list tests can set up arbitrary dates and statuses.
func (e *testEnv) seedAppointment(patientID, proID uuid.UUID, daysFromNow int, start MinuteOfDay, status AppointmentStatus) Appointment {
	a := Appointment{
		ID:             uuid.New(),
		PatientID:      patientID,
		ProfessionalID: proID,
		Date:           DateOnly(e.clock.now).AddDate(0, 0, daysFromNow),
		Start:          start,
		End:            start + 60,
		Type:           TypeInPerson,
		Status:         status,
	}
	e.repo.Appointments[a.ID] = a
	return a
}

func TestListAppointmentsScoping(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	otherPro := env.addProfessional("Dr. Choque", "trauma", "Sucre")
	patient := env.addPatient("Carla")
	otherPatient := env.addPatient("Luis")

	env.seedAppointment(patient.ID, pro.ID, 1, 540, StatusPending)
	env.seedAppointment(patient.ID, otherPro.ID, 2, 540, StatusConfirmed)
	env.seedAppointment(otherPatient.ID, pro.ID, 3, 540, StatusPending)

	mine, err := env.svc.ListAppointments(context.Background(), patient, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, a := range mine {
		assert.Equal(t, patient.ID, a.PatientID)
	}

	calendar, err := env.svc.ListAppointments(context.Background(), pro, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, calendar, 2)
	for _, a := range calendar {
		assert.Equal(t, pro.ID, a.ProfessionalID)
	}

	admin := Actor{ID: uuid.New(), Role: RoleAdmin, Name: "ops"}
	all, err := env.svc.ListAppointments(context.Background(), admin, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListAppointmentsFilters(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")

	env.seedAppointment(patient.ID, pro.ID, 1, 540, StatusPending)
	env.seedAppointment(patient.ID, pro.ID, 2, 540, StatusConfirmed)
	env.seedAppointment(patient.ID, pro.ID, 5, 540, StatusCancelled)

	status := StatusConfirmed
	got, err := env.svc.ListAppointments(context.Background(), patient, ListOptions{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusConfirmed, got[0].Status)

	from := DateOnly(env.clock.now).AddDate(0, 0, 2)
	to := DateOnly(env.clock.now).AddDate(0, 0, 4)
	got, err = env.svc.ListAppointments(context.Background(), patient, ListOptions{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, from, got[0].Date)
}

func TestListAppointmentsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")

	env.seedAppointment(patient.ID, pro.ID, 1, 540, StatusPending)
	env.seedAppointment(patient.ID, pro.ID, 3, 540, StatusPending)
	env.seedAppointment(patient.ID, pro.ID, 3, 600, StatusPending)

	got, err := env.svc.ListAppointments(context.Background(), patient, ListOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Date.After(got[2].Date))
	assert.Equal(t, MinuteOfDay(600), got[0].Start, "same-day entries order by start, latest first")
}

func TestUpcoming(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")

	env.seedAppointment(patient.ID, pro.ID, -1, 540, StatusConfirmed) // yesterday
	env.seedAppointment(patient.ID, pro.ID, 2, 540, StatusCancelled)  // cancelled
	late := env.seedAppointment(patient.ID, pro.ID, 4, 540, StatusConfirmed)
	soon := env.seedAppointment(patient.ID, pro.ID, 1, 540, StatusPending)

	got, err := env.svc.Upcoming(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, soon.ID, got[0].ID, "soonest first")
	assert.Equal(t, late.ID, got[1].ID)
}

func TestUpcomingCap(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")

	for day := 1; day <= 12; day++ {
		env.seedAppointment(patient.ID, pro.ID, day, 540, StatusPending)
	}

	got, err := env.svc.Upcoming(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Date.After(got[i-1].Date))
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")

	past := env.seedAppointment(patient.ID, pro.ID, -3, 540, StatusCancelled)
	doneToday := env.seedAppointment(patient.ID, pro.ID, 0, 540, StatusCompleted)
	env.seedAppointment(patient.ID, pro.ID, 2, 540, StatusPending) // future, not history

	got, err := env.svc.History(context.Background(), patient)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ids := []uuid.UUID{got[0].ID, got[1].ID}
	assert.Contains(t, ids, past.ID, "past-dated appointments are history regardless of status")
	assert.Contains(t, ids, doneToday.ID, "completed appointments are history even when dated today")
}

func TestGetAppointmentVisibility(t *testing.T) {
	env := newTestEnv(t)
	pro := env.addProfessional("Dr. Rojas", "depression", "Cochabamba")
	patient := env.addPatient("Carla")
	appt := env.seedAppointment(patient.ID, pro.ID, 1, 540, StatusPending)

	for _, actor := range []Actor{patient, pro, {ID: uuid.New(), Role: RoleAdmin}} {
		got, err := env.svc.GetAppointment(context.Background(), actor, appt.ID)
		require.NoError(t, err, "role %s", actor.Role)
		assert.Equal(t, appt.ID, got.ID)
	}

	stranger := env.addPatient("Eva")
	_, err := env.svc.GetAppointment(context.Background(), stranger, appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.GetAppointment(context.Background(), patient, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
