// Package schedule expands weekly scheduling rules and date overrides into
// concrete dated sessions over a rolling horizon.
package schedule

import (
	"time"

	"keramika/internal/database"
	"keramika/internal/models"
)

// GenerateOptions controls expansion.
type GenerateOptions struct {
	// IncludeFull keeps sessions whose paid headcount has reached capacity.
	// Admin views want them; the customer-facing default drops them.
	IncludeFull bool
}

// Generate expands rules + overrides into enriched sessions for every date
// from `from` through `from + horizonDays`.
//
// Per date:
//   - closed override: zero sessions, regardless of matching weekday rules;
//   - replacement override: exactly the override's session list, IsOverride=true;
//   - no override: rules filtered by weekday, IsOverride=false.
//
// Dates are compared as canonical "YYYY-MM-DD" strings; counts join live
// booking headcounts so the result is never stale.
func Generate(
	rules []models.SchedulingRule,
	overrides map[string]models.SessionOverride,
	counts map[models.TimeSlot]database.SlotCount,
	from time.Time,
	horizonDays int,
	opts GenerateOptions,
) []models.EnrichedSession {
	var sessions []models.EnrichedSession

	for i := 0; i <= horizonDays; i++ {
		day := from.AddDate(0, 0, i)
		date := day.Format(models.DateLayout)

		if override, ok := overrides[date]; ok {
			if override.Closed {
				continue
			}
			for _, overrideSession := range override.Sessions {
				session := enrich(models.EnrichedSession{
					ID:           models.SessionID(date, overrideSession.Time, overrideSession.InstructorID),
					Date:         date,
					Time:         overrideSession.Time,
					InstructorID: overrideSession.InstructorID,
					Capacity:     overrideSession.Capacity,
					IsOverride:   true,
				}, counts)
				if opts.IncludeFull || session.PaidBookingsCount < session.Capacity {
					sessions = append(sessions, session)
				}
			}
			continue
		}

		weekday := int(day.Weekday())
		for _, rule := range rules {
			if rule.DayOfWeek != weekday {
				continue
			}
			session := enrich(models.EnrichedSession{
				ID:           models.SessionID(date, rule.Time, rule.InstructorID),
				Date:         date,
				Time:         rule.Time,
				InstructorID: rule.InstructorID,
				Capacity:     rule.Capacity,
				IsOverride:   false,
			}, counts)
			if opts.IncludeFull || session.PaidBookingsCount < session.Capacity {
				sessions = append(sessions, session)
			}
		}
	}

	return sessions
}

func enrich(session models.EnrichedSession, counts map[models.TimeSlot]database.SlotCount) models.EnrichedSession {
	count := counts[models.TimeSlot{Date: session.Date, Time: session.Time}]
	session.PaidBookingsCount = count.Paid
	session.TotalBookingsCount = count.Total
	return session
}

// FilterRulesByTechnique keeps rules for the given technique. Rules with an
// empty technique apply to every discipline.
func FilterRulesByTechnique(rules []models.SchedulingRule, technique string) []models.SchedulingRule {
	var filtered []models.SchedulingRule
	for _, rule := range rules {
		if rule.Technique == "" || rule.Technique == technique {
			filtered = append(filtered, rule)
		}
	}
	return filtered
}
