package availability

import (
	"context"
	"testing"

	"keramika/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findingCodes(findings []Finding) []string {
	codes := make([]string, 0, len(findings))
	for _, finding := range findings {
		codes = append(codes, finding.Code)
	}
	return codes
}

func TestValidateAdminBooking_UnknownTechnique(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.ValidateAdminBooking(context.Background(), BookingData{
		Technique:    "origami",
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, SeverityError, result.Findings[0].Severity)
	assert.Equal(t, FindingUnknownTechnique, result.Findings[0].Code)
	assert.False(t, result.CanContinueWithWarnings)
}

func TestValidateAdminBooking_CourseConflictIsError(t *testing.T) {
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

	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 4,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, findingCodes(result.Findings), FindingCourseConflict)
	assert.False(t, result.CanContinueWithWarnings, "a course conflict is never overridable")
}

func TestValidateAdminBooking_OverCapacityIsError(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	booking := &models.Booking{
		CustomerName: "Anna",
		Technique:    models.TechniquePottersWheel,
		Participants: 5,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	}
	require.NoError(t, db.CreateBooking(ctx, booking))

	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 3,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, findingCodes(result.Findings), FindingOverCapacity)
	assert.False(t, result.CanContinueWithWarnings)
}

func TestValidateAdminBooking_WarningsAreOverridable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Sunday, not a fixed time, small wheel group: three warnings, no errors.
	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "2026-09-06", Time: "10:30"}},
	})
	require.NoError(t, err)

	codes := findingCodes(result.Findings)
	assert.Contains(t, codes, FindingSundayBooking)
	assert.Contains(t, codes, FindingNonStandardHour)
	assert.Contains(t, codes, FindingSmallWheelGroup)
	for _, finding := range result.Findings {
		assert.Equal(t, SeverityWarning, finding.Severity)
	}
	assert.True(t, result.CanContinueWithWarnings)
	assert.Len(t, result.Warnings(), len(result.Findings))
}

func TestValidateAdminBooking_IntroExceptionSuppressesSmallGroupWarning(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Tuesday 19:00 is a standing intro slot for small wheel groups.
	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "2026-09-01", Time: "19:00"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, findingCodes(result.Findings), FindingSmallWheelGroup)
	assert.True(t, result.CanContinueWithWarnings)
}

func TestValidateAdminBooking_SoloHandModeling(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniqueHandModeling,
		Participants: 1,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "10:30"}},
	})
	require.NoError(t, err)

	codes := findingCodes(result.Findings)
	assert.Contains(t, codes, FindingSoloOutsideFixed)
	assert.True(t, result.CanContinueWithWarnings)
}

func TestValidateAdminBooking_MondayPaintingWarning(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePainting,
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "2026-08-31", Time: "10:00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, findingCodes(result.Findings), FindingMondayPainting)
	assert.True(t, result.CanContinueWithWarnings)

	// An override for the date removes the warning.
	require.NoError(t, db.SetSessionOverride(ctx, &models.SessionOverride{
		Date: "2026-08-31",
		Sessions: []models.OverrideSession{
			{Time: "10:00", InstructorID: 1, Capacity: 10},
		},
	}))

	result, err = svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePainting,
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "2026-08-31", Time: "10:00"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, findingCodes(result.Findings), FindingMondayPainting)
}

func TestValidateAdminBooking_OverrideSessionTimeIsFixed(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// The override's session list replaces the weekly rules for its date,
	// so booking one of its times is on-schedule, not a non-standard hour.
	require.NoError(t, db.SetSessionOverride(ctx, &models.SessionOverride{
		Date: "2026-09-05",
		Sessions: []models.OverrideSession{
			{Time: "14:00", InstructorID: 1, Capacity: 6},
		},
	}))

	result, err := svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 3,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "14:00"}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.True(t, result.CanContinueWithWarnings)

	// A time the override does not list stays non-standard.
	result, err = svc.ValidateAdminBooking(ctx, BookingData{
		Technique:    models.TechniquePottersWheel,
		Participants: 3,
		Slots:        []models.TimeSlot{{Date: "2026-09-05", Time: "15:00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, findingCodes(result.Findings), FindingNonStandardHour)
}

func TestValidateAdminBooking_InvalidSlot(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.ValidateAdminBooking(context.Background(), BookingData{
		Technique:    models.TechniquePainting,
		Participants: 2,
		Slots:        []models.TimeSlot{{Date: "05.09.2026", Time: "10:00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, findingCodes(result.Findings), FindingInvalidSlot)
	assert.False(t, result.CanContinueWithWarnings)
}
