package availability

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"keramika/internal/config"
	"keramika/internal/database"
	"keramika/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetCapacities(map[string]int{
		models.TechniquePottersWheel: 6,
		models.TechniqueHandModeling: 12,
		models.TechniquePainting:     10,
	})

	studio := config.StudioConfig{
		HorizonDays: 30,
		Capacities: map[string]int{
			models.TechniquePottersWheel: 6,
			models.TechniqueHandModeling: 12,
			models.TechniquePainting:     10,
		},
		Hours: map[int]config.DayHours{
			0: {Open: "10:00", Close: "12:00"},
			1: {Open: "10:00", Close: "12:00"},
			2: {Open: "10:00", Close: "12:00"},
			3: {Open: "10:00", Close: "12:00"},
			4: {Open: "10:00", Close: "12:00"},
			5: {Open: "10:00", Close: "12:00"},
			6: {Open: "10:00", Close: "12:00"},
		},
		IntroExceptions: []config.IntroException{
			{DayOfWeek: 2, Time: "19:00"},
			{DayOfWeek: 3, Time: "11:00"},
		},
	}

	// The DB itself is the schedule source; caching is layered on in main.
	return NewService(db, db, studio, &logger), db
}

func date(s string) time.Time {
	d, _ := time.Parse(models.DateLayout, s)
	return d
}

func TestCheckSlot(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	booking := &models.Booking{
		CustomerName: "Anna",
		Technique:    models.TechniquePottersWheel,
		Participants: 4,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	check, err := svc.CheckSlot(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel, 2)
	require.NoError(t, err)
	assert.True(t, check.Available)
	assert.Equal(t, 4, check.Capacity.Booked)
	assert.Equal(t, 6, check.Capacity.Max)
	assert.Equal(t, 2, check.Capacity.Available)

	check, err = svc.CheckSlot(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel, 3)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, "not enough places for this slot", check.Message)

	// A check never reserves anything: repeating it gives the same answer.
	again, err := svc.CheckSlot(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel, 3)
	require.NoError(t, err)
	assert.Equal(t, check, again)
}

func TestCheckSlot_CourseConflict(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.CreateCourse(ctx, &models.Course{
		Name:      "Wheel basics",
		Technique: models.TechniquePottersWheel,
		DayOfWeek: 6,
		Time:      "10:00",
		StartDate: "2026-08-29",
		Weeks:     8,
	}))

	check, err := svc.CheckSlot(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel, 1)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, BlockedReasonCourseConflict, check.BlockedReason)
}

func TestCheckSlot_OverrideCapacityWins(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.SetSessionOverride(ctx, &models.SessionOverride{
		Date: "2026-09-05",
		Sessions: []models.OverrideSession{
			{Time: "10:00", InstructorID: 1, Capacity: 2},
		},
	}))

	check, err := svc.CheckSlot(ctx, "2026-09-05", "10:00", models.TechniquePottersWheel, 3)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, 2, check.Capacity.Max)
}

func TestAvailableSlots_LargeGroupGetsOperatingHours(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePottersWheel,
		Participants: 3,
		StartDate:    date("2026-09-05"), // Saturday
		DaysAhead:    1,                  // through Sunday
	})
	require.NoError(t, err)

	// Two days, four half-hour slots each within 10:00-12:00.
	require.Len(t, slots, 8)
	assert.Equal(t, "2026-09-05", slots[0].Date)
	assert.Equal(t, "10:00", slots[0].Time)
	assert.Equal(t, "11:30", slots[3].Time)
}

func TestAvailableSlots_SmallWheelGroupOnlyFixedTimes(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSchedulingRule(ctx, &models.SchedulingRule{
		DayOfWeek:    6,
		Time:         "10:00",
		InstructorID: 1,
		Capacity:     6,
		Technique:    models.TechniquePottersWheel,
	}))

	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePottersWheel,
		Participants: 2,
		StartDate:    date("2026-09-05"), // Saturday
		DaysAhead:    0,
	})
	require.NoError(t, err)

	require.Len(t, slots, 1, "a duo on the wheel only gets fixed class times")
	assert.Equal(t, "10:00", slots[0].Time)
	assert.True(t, slots[0].FixedSchedule)
}

func TestAvailableSlots_SmallWheelGroupIntroExceptions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// No rules at all: Tuesday still offers the standing 19:00 intro slot.
	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePottersWheel,
		Participants: 1,
		StartDate:    date("2026-09-01"), // Tuesday
		DaysAhead:    1,                  // through Wednesday
	})
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.Equal(t, "19:00", slots[0].Time)
	assert.Equal(t, "2026-09-01", slots[0].Date)
	assert.Equal(t, "11:00", slots[1].Time)
	assert.Equal(t, "2026-09-02", slots[1].Date)
}

func TestAvailableSlots_ClosedOverride(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.SetSessionOverride(ctx, &models.SessionOverride{
		Date:   "2026-09-05",
		Closed: true,
	}))

	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniqueHandModeling,
		Participants: 2,
		StartDate:    date("2026-09-05"),
		DaysAhead:    0,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_MondayPainting(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePainting,
		Participants: 1,
		StartDate:    date("2026-08-31"), // Monday
		DaysAhead:    0,
	})
	require.NoError(t, err)
	assert.Empty(t, slots, "painting is closed on Mondays")

	// An override for the exact date opens it up.
	require.NoError(t, db.SetSessionOverride(ctx, &models.SessionOverride{
		Date: "2026-08-31",
		Sessions: []models.OverrideSession{
			{Time: "10:00", InstructorID: 1, Capacity: 10},
		},
	}))

	slots, err = svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePainting,
		Participants: 1,
		StartDate:    date("2026-08-31"),
		DaysAhead:    0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
}

func TestAvailableSlots_FullSlotsWithheld(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	booking := &models.Booking{
		CustomerName: "Anna",
		Technique:    models.TechniquePottersWheel,
		Participants: 6,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniquePottersWheel,
		Participants: 3,
		StartDate:    date("2026-09-05"),
		DaysAhead:    0,
	})
	require.NoError(t, err)

	for _, slot := range slots {
		assert.NotEqual(t, "10:00", slot.Time, "saturated slot must be withheld")
	}
	require.Len(t, slots, 3)
}

func TestAvailableSlots_DefaultHorizon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Negative DaysAhead selects the 30-day horizon: 31 days inclusive,
	// four half-hour slots each within 10:00-12:00.
	slots, err := svc.AvailableSlots(ctx, SlotQuery{
		Technique:    models.TechniqueHandModeling,
		Participants: 2,
		StartDate:    date("2026-09-01"),
		DaysAhead:    -1,
	})
	require.NoError(t, err)
	assert.Len(t, slots, 124)
}

func TestAvailableSlots_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AvailableSlots(ctx, SlotQuery{Technique: "origami", Participants: 1})
	assert.Error(t, err)

	_, err = svc.AvailableSlots(ctx, SlotQuery{Technique: models.TechniquePainting, Participants: 0})
	assert.Error(t, err)
}

func TestSessions(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSchedulingRule(ctx, &models.SchedulingRule{
		DayOfWeek:    6,
		Time:         "10:00",
		InstructorID: 1,
		Capacity:     2,
	}))

	booking := &models.Booking{
		CustomerName: "Anna",
		Technique:    models.TechniquePottersWheel,
		Participants: 2,
		IsPaid:       true,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	sessions, err := svc.Sessions(ctx, date("2026-09-05"), 0, "", true)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].PaidBookingsCount)

	// Customer view withholds the saturated session.
	sessions, err = svc.Sessions(ctx, date("2026-09-05"), 0, "", false)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSessions_DefaultHorizon(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSchedulingRule(ctx, &models.SchedulingRule{
		DayOfWeek:    6,
		Time:         "10:00",
		InstructorID: 1,
		Capacity:     6,
	}))

	// Negative days falls back to the 30-day horizon: five Saturdays from
	// 2026-09-05 through 2026-10-05.
	sessions, err := svc.Sessions(ctx, date("2026-09-05"), -1, "", true)
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	// Zero days means the start date only.
	sessions, err = svc.Sessions(ctx, date("2026-09-05"), 0, "", true)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestSessions_CountsScopedToTechnique(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSchedulingRule(ctx, &models.SchedulingRule{
		DayOfWeek:    6,
		Time:         "10:00",
		InstructorID: 1,
		Capacity:     2,
		Technique:    models.TechniquePottersWheel,
	}))

	// A paid painting booking on the same (date, time) must not saturate
	// the wheel session.
	booking := &models.Booking{
		CustomerName: "Olga",
		Technique:    models.TechniquePainting,
		Participants: 2,
		IsPaid:       true,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	sessions, err := svc.Sessions(ctx, date("2026-09-05"), 0, models.TechniquePottersWheel, false)
	require.NoError(t, err)
	require.Len(t, sessions, 1, "another discipline's bookings must not hide the session")
	assert.Equal(t, 0, sessions[0].PaidBookingsCount)

	_, err = svc.Sessions(ctx, date("2026-09-05"), 0, "origami", false)
	assert.Error(t, err)
}
