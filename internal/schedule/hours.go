package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"keramika/internal/models"
)

// DaySlotTimes enumerates free-form slot start times between opening and
// closing at SlotStepMinutes granularity. The last slot starts one step
// before closing time.
func DaySlotTimes(open, close string) ([]string, error) {
	openMinutes, err := parseMinutes(open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	closeMinutes, err := parseMinutes(close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}

	var times []string
	for cursor := openMinutes; cursor+models.SlotStepMinutes <= closeMinutes; cursor += models.SlotStepMinutes {
		times = append(times, fmt.Sprintf("%02d:%02d", cursor/60, cursor%60))
	}
	return times, nil
}

func parseMinutes(timeStr string) (int, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", timeStr)
	}
	return hour*60 + minute, nil
}
