package availability

import (
	"context"
	"fmt"
	"time"

	"keramika/internal/models"
	"keramika/internal/schedule"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

const (
	FindingOverCapacity     = "over_capacity"
	FindingCourseConflict   = "course_conflict"
	FindingNonStandardHour  = "non_standard_hour"
	FindingSundayBooking    = "sunday_booking"
	FindingSoloOutsideFixed = "solo_outside_fixed_hours"
	FindingSmallWheelGroup  = "small_wheel_group"
	FindingMondayPainting   = "monday_painting"
	FindingUnknownTechnique = "unknown_technique"
	FindingInvalidSlot      = "invalid_slot"
	FindingNoParticipants   = "no_participants"
)

// Finding is a single validation outcome. Errors are hard stops the admin
// UI must not let anyone pass; warnings may be bypassed with a persisted
// reason.
type Finding struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
}

// ValidationResult is the two-way contract with the admin modal: it renders
// the findings and, when CanContinueWithWarnings is true, collects a reason
// and records it through the override authorizer.
type ValidationResult struct {
	Findings                []Finding `json:"findings"`
	CanContinueWithWarnings bool      `json:"can_continue_with_warnings"`
}

// Warnings returns only the soft findings.
func (r ValidationResult) Warnings() []Finding {
	var warnings []Finding
	for _, finding := range r.Findings {
		if finding.Severity == SeverityWarning {
			warnings = append(warnings, finding)
		}
	}
	return warnings
}

// BookingData is the admin-entered booking candidate to validate.
type BookingData struct {
	Technique    string            `json:"technique"`
	Participants int               `json:"participants"`
	Slots        []models.TimeSlot `json:"slots"`
}

// ValidateAdminBooking applies the full rule set to an admin-entered
// booking and classifies every violation as an error or a warning. Customers
// never reach this path; their flow simply withholds unavailable slots.
func (s *Service) ValidateAdminBooking(ctx context.Context, data BookingData) (*ValidationResult, error) {
	result := &ValidationResult{}

	if !models.ValidTechnique(data.Technique) {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Code:     FindingUnknownTechnique,
			Message:  fmt.Sprintf("unknown technique: %s", data.Technique),
		})
		return result, nil
	}
	if data.Participants < 1 {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Code:     FindingNoParticipants,
			Message:  "at least one participant is required",
		})
		return result, nil
	}

	rules, err := s.schedSrc.GetSchedulingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scheduling rules: %w", err)
	}
	rules = schedule.FilterRulesByTechnique(rules, data.Technique)

	overrides, err := s.schedSrc.GetSessionOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session overrides: %w", err)
	}

	for _, slot := range data.Slots {
		day, err := time.Parse(models.DateLayout, slot.Date)
		if err != nil {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityError,
				Code:     FindingInvalidSlot,
				Message:  fmt.Sprintf("invalid date: %s", slot.Date),
				Date:     slot.Date,
				Time:     slot.Time,
			})
			continue
		}
		weekday := int(day.Weekday())
		dateOverride, hasOverride := overrides[slot.Date]

		check, err := s.CheckSlot(ctx, slot.Date, slot.Time, data.Technique, data.Participants)
		if err != nil {
			return nil, err
		}
		switch {
		case check.BlockedReason == BlockedReasonCourseConflict:
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityError,
				Code:     FindingCourseConflict,
				Message:  "slot overlaps a running course",
				Date:     slot.Date,
				Time:     slot.Time,
			})
			continue
		case !check.Available:
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityError,
				Code:     FindingOverCapacity,
				Message: fmt.Sprintf("capacity exceeded: %d booked of %d",
					check.Capacity.Booked, check.Capacity.Max),
				Date: slot.Date,
				Time: slot.Time,
			})
			continue
		}

		// An override replaces the weekly rules for its date, so its
		// session times are the fixed schedule there.
		isFixed := s.isFixedTime(rules, weekday, slot.Time)
		if hasOverride {
			isFixed = overrideSessionAt(dateOverride, slot.Time)
		}

		if weekday == 0 {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingSundayBooking,
				Message:  "booking falls on a Sunday",
				Date:     slot.Date,
				Time:     slot.Time,
			})
		}

		if !isFixed {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingNonStandardHour,
				Message:  "slot is outside the fixed class schedule",
				Date:     slot.Date,
				Time:     slot.Time,
			})

			if data.Technique == models.TechniqueHandModeling && data.Participants == 1 {
				result.Findings = append(result.Findings, Finding{
					Severity: SeverityWarning,
					Code:     FindingSoloOutsideFixed,
					Message:  "solo hand-modeling outside fixed hours",
					Date:     slot.Date,
					Time:     slot.Time,
				})
			}
		}

		if data.Technique == models.TechniquePottersWheel &&
			data.Participants < models.SmallGroupThreshold &&
			!isFixed && !s.isIntroException(weekday, slot.Time) {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingSmallWheelGroup,
				Message:  "small potter's-wheel group outside the fixed schedule",
				Date:     slot.Date,
				Time:     slot.Time,
			})
		}

		if data.Technique == models.TechniquePainting && weekday == 1 && !hasOverride {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingMondayPainting,
				Message:  "painting is normally closed on Mondays",
				Date:     slot.Date,
				Time:     slot.Time,
			})
		}
	}

	result.CanContinueWithWarnings = true
	for _, finding := range result.Findings {
		if finding.Severity == SeverityError {
			result.CanContinueWithWarnings = false
			break
		}
	}
	return result, nil
}

func (s *Service) isFixedTime(rules []models.SchedulingRule, weekday int, timeStr string) bool {
	for _, rule := range rules {
		if rule.DayOfWeek == weekday && rule.Time == timeStr {
			return true
		}
	}
	return false
}

func overrideSessionAt(override models.SessionOverride, timeStr string) bool {
	for _, session := range override.Sessions {
		if session.Time == timeStr {
			return true
		}
	}
	return false
}

func (s *Service) isIntroException(weekday int, timeStr string) bool {
	for _, intro := range s.studio.IntroExceptions {
		if intro.DayOfWeek == weekday && intro.Time == timeStr {
			return true
		}
	}
	return false
}
