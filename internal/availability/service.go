package availability

import (
	"context"
	"fmt"
	"time"

	"keramika/internal/config"
	"keramika/internal/database"
	"keramika/internal/domain"
	"keramika/internal/models"
	"keramika/internal/schedule"

	"github.com/rs/zerolog"
)

// Service is the public read path for bookable slots plus the admin-only
// validation used by the CRM. All schedule data flows through the (cached)
// ScheduleSource; booking counts always come from the database so capacity
// is never stale.
type Service struct {
	db       *database.DB
	schedSrc domain.ScheduleSource
	studio   config.StudioConfig
	logger   *zerolog.Logger
}

func NewService(db *database.DB, schedSrc domain.ScheduleSource, studio config.StudioConfig, logger *zerolog.Logger) *Service {
	return &Service{
		db:       db,
		schedSrc: schedSrc,
		studio:   studio,
		logger:   logger,
	}
}

// SlotQuery asks for bookable (date, time) pairs for one experience.
// DaysAhead extends the window past StartDate: zero keeps the start date
// only, negative selects the studio's default horizon.
type SlotQuery struct {
	Technique    string
	Participants int
	StartDate    time.Time
	DaysAhead    int
}

// Slot is one bookable (date, time) with its live capacity snapshot.
type Slot struct {
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Capacity      Capacity `json:"capacity"`
	FixedSchedule bool     `json:"fixed_schedule"`
}

// AvailableSlots returns the bookable slots for a technique and headcount.
//
// Small-group potter's-wheel rule: fewer than three people on the wheel only
// get fixed SchedulingRule times plus the standing introductory exceptions;
// the studio won't open a dedicated instructor slot for them outside a
// pre-planned class. Groups of three or more may book any operating-hours
// slot. Painting is closed on Mondays unless an override exists for that
// exact date.
func (s *Service) AvailableSlots(ctx context.Context, query SlotQuery) ([]Slot, error) {
	if !models.ValidTechnique(query.Technique) {
		return nil, fmt.Errorf("unknown technique: %s", query.Technique)
	}
	if query.Participants < 1 {
		return nil, fmt.Errorf("participants must be at least 1")
	}
	if query.DaysAhead < 0 {
		query.DaysAhead = s.studio.HorizonDays
	}
	if query.StartDate.IsZero() {
		query.StartDate = time.Now()
	}

	rules, err := s.schedSrc.GetSchedulingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scheduling rules: %w", err)
	}
	rules = schedule.FilterRulesByTechnique(rules, query.Technique)

	overrides, err := s.schedSrc.GetSessionOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session overrides: %w", err)
	}

	smallWheelGroup := query.Technique == models.TechniquePottersWheel &&
		query.Participants < models.SmallGroupThreshold

	var slots []Slot
	for i := 0; i <= query.DaysAhead; i++ {
		day := query.StartDate.AddDate(0, 0, i)
		date := day.Format(models.DateLayout)
		weekday := int(day.Weekday())

		override, hasOverride := overrides[date]
		if hasOverride && override.Closed {
			continue
		}

		// Monday painting is blocked unless an override opened the date.
		if query.Technique == models.TechniquePainting && weekday == 1 && !hasOverride {
			continue
		}

		var candidateTimes []candidate
		if smallWheelGroup {
			candidateTimes = s.smallGroupTimes(rules, override, hasOverride, weekday)
		} else {
			candidateTimes, err = s.operatingTimes(rules, override, hasOverride, weekday)
			if err != nil {
				return nil, err
			}
		}

		for _, cand := range candidateTimes {
			check, err := s.CheckSlot(ctx, date, cand.timeStr, query.Technique, query.Participants)
			if err != nil {
				return nil, err
			}
			if !check.Available {
				continue
			}
			slots = append(slots, Slot{
				Date:          date,
				Time:          cand.timeStr,
				Capacity:      check.Capacity,
				FixedSchedule: cand.fixed,
			})
		}
	}

	return slots, nil
}

type candidate struct {
	timeStr string
	fixed   bool
}

// smallGroupTimes offers only fixed-schedule times for the weekday, plus the
// standing introductory exceptions.
func (s *Service) smallGroupTimes(rules []models.SchedulingRule, override models.SessionOverride, hasOverride bool, weekday int) []candidate {
	seen := make(map[string]bool)
	var candidates []candidate

	add := func(timeStr string, fixed bool) {
		if seen[timeStr] {
			return
		}
		seen[timeStr] = true
		candidates = append(candidates, candidate{timeStr: timeStr, fixed: fixed})
	}

	if hasOverride {
		// Overrides replace the weekly rules for their date.
		for _, session := range override.Sessions {
			add(session.Time, true)
		}
	} else {
		for _, rule := range rules {
			if rule.DayOfWeek == weekday {
				add(rule.Time, true)
			}
		}
	}

	for _, intro := range s.studio.IntroExceptions {
		if intro.DayOfWeek == weekday {
			add(intro.Time, true)
		}
	}

	return candidates
}

// operatingTimes enumerates every 30-minute slot within the weekday's
// opening hours, marking the ones that coincide with a fixed rule time.
func (s *Service) operatingTimes(rules []models.SchedulingRule, override models.SessionOverride, hasOverride bool, weekday int) ([]candidate, error) {
	hours, open := s.studio.Hours[weekday]
	if !open {
		return nil, nil
	}

	times, err := schedule.DaySlotTimes(hours.Open, hours.Close)
	if err != nil {
		return nil, fmt.Errorf("enumerate slot times: %w", err)
	}

	fixed := make(map[string]bool)
	if hasOverride {
		for _, session := range override.Sessions {
			fixed[session.Time] = true
		}
	} else {
		for _, rule := range rules {
			if rule.DayOfWeek == weekday {
				fixed[rule.Time] = true
			}
		}
	}

	candidates := make([]candidate, 0, len(times))
	for _, timeStr := range times {
		candidates = append(candidates, candidate{timeStr: timeStr, fixed: fixed[timeStr]})
	}
	return candidates, nil
}

// Sessions returns the enriched session view for the admin schedule screen.
// Zero days keeps the start date only, negative selects the default horizon.
// A non-empty technique scopes both the rules and the booking counts to that
// discipline, so a saturated painting slot never hides a wheel session.
func (s *Service) Sessions(ctx context.Context, from time.Time, days int, technique string, includeFull bool) ([]models.EnrichedSession, error) {
	if technique != "" && !models.ValidTechnique(technique) {
		return nil, fmt.Errorf("unknown technique: %s", technique)
	}
	if days < 0 {
		days = s.studio.HorizonDays
	}
	if from.IsZero() {
		from = time.Now()
	}

	rules, err := s.schedSrc.GetSchedulingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scheduling rules: %w", err)
	}
	if technique != "" {
		rules = schedule.FilterRulesByTechnique(rules, technique)
	}
	overrides, err := s.schedSrc.GetSessionOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session overrides: %w", err)
	}

	startDate := from.Format(models.DateLayout)
	endDate := from.AddDate(0, 0, days).Format(models.DateLayout)
	counts, err := s.db.GetSlotCounts(ctx, technique, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("load slot counts: %w", err)
	}

	return schedule.Generate(rules, overrides, counts, from, days, schedule.GenerateOptions{
		IncludeFull: includeFull,
	}), nil
}
