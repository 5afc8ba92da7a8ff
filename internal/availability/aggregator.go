// Package availability computes live slot capacity and applies the studio's
// booking rules on top of the generated schedule.
package availability

import (
	"context"
	"fmt"
)

const BlockedReasonCourseConflict = "course_conflict"

// Capacity is the booked-vs-max snapshot for one slot.
type Capacity struct {
	Booked    int `json:"booked"`
	Max       int `json:"max"`
	Available int `json:"available"`
}

// SlotCheck is the result of a capacity check for a requested headcount.
type SlotCheck struct {
	Available     bool     `json:"available"`
	Capacity      Capacity `json:"capacity"`
	Message       string   `json:"message,omitempty"`
	BlockedReason string   `json:"blocked_reason,omitempty"`
}

// CheckSlot computes booked-vs-max capacity for the (date, time, technique)
// tuple. The effective cap is the date override's capacity when one exists,
// otherwise the technique's configured pool. Course conflicts block the slot
// absolutely and are reported separately from capacity.
func (s *Service) CheckSlot(ctx context.Context, date, timeStr, technique string, participants int) (*SlotCheck, error) {
	maxCapacity, ok := s.db.TechniqueCapacity(technique)
	if !ok {
		return nil, fmt.Errorf("unknown technique: %s", technique)
	}

	conflict, err := s.db.HasCourseConflict(ctx, date, timeStr, technique)
	if err != nil {
		return nil, fmt.Errorf("check course conflict: %w", err)
	}
	if conflict {
		return &SlotCheck{
			Available:     false,
			BlockedReason: BlockedReasonCourseConflict,
			Message:       "slot is reserved by a running course",
		}, nil
	}

	if overrideCap, ok, err := s.db.OverrideCapacity(ctx, date, timeStr); err != nil {
		return nil, err
	} else if ok {
		maxCapacity = overrideCap
	}

	booked, err := s.db.GetBookedParticipants(ctx, date, timeStr, technique)
	if err != nil {
		return nil, err
	}

	check := &SlotCheck{
		Capacity: Capacity{
			Booked:    booked,
			Max:       maxCapacity,
			Available: maxCapacity - booked,
		},
	}

	if booked+participants > maxCapacity {
		check.Message = "not enough places for this slot"
		return check, nil
	}

	check.Available = true
	return check, nil
}
