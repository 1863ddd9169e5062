package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ScheduleFrequency string

const (
	FrequencyManual    ScheduleFrequency = "manual"
	FrequencyDaily     ScheduleFrequency = "daily"
	FrequencyWeekly    ScheduleFrequency = "weekly"
	FrequencyMonthly   ScheduleFrequency = "monthly"
	FrequencyQuarterly ScheduleFrequency = "quarterly"
)

var ErrInvalidScheduleConfig = errors.New("invalid schedule config")

var weekdayToCron = map[string]string{
	"sunday":    "0",
	"monday":    "1",
	"tuesday":   "2",
	"wednesday": "3",
	"thursday":  "4",
	"friday":    "5",
	"saturday":  "6",
}

// ScheduleConfig is the user facing description of a recurring schedule.
type ScheduleConfig struct {
	Frequency  ScheduleFrequency `json:"frequency"`
	DayOfWeek  string            `json:"day_of_week,omitempty"`
	DayOfMonth int               `json:"day_of_month,omitempty"`
	RunTime    string            `json:"run_time,omitempty"`
}

// ScheduledJob mirrors one entry of the persisted scheduler state.
type ScheduledJob struct {
	ModelID string     `json:"model_id"`
	Cron    string     `json:"cron"`
	NextRun *time.Time `json:"next_run"`
}

func (c ScheduleConfig) Validate() error {
	switch c.Frequency {
	case FrequencyManual, FrequencyDaily, FrequencyMonthly, FrequencyQuarterly:
	case FrequencyWeekly:
		if c.DayOfWeek == "" {
			return fmt.Errorf("%w: day_of_week is required for weekly schedules", ErrInvalidScheduleConfig)
		}
		if _, ok := weekdayToCron[strings.ToLower(c.DayOfWeek)]; !ok {
			return fmt.Errorf("%w: unknown day_of_week %q", ErrInvalidScheduleConfig, c.DayOfWeek)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidScheduleConfig, c.Frequency)
	}

	if c.DayOfMonth != 0 && (c.DayOfMonth < 1 || c.DayOfMonth > 31) {
		return fmt.Errorf("%w: day_of_month must be between 1 and 31", ErrInvalidScheduleConfig)
	}

	if _, _, err := c.clock(); err != nil {
		return err
	}
	return nil
}

// ToCron converts the config to a five-field cron expression. Manual
// schedules return ok=false.
func (c ScheduleConfig) ToCron() (string, bool, error) {
	if err := c.Validate(); err != nil {
		return "", false, err
	}

	hour, minute, _ := c.clock()
	day := c.DayOfMonth
	if day == 0 {
		day = 1
	}

	switch c.Frequency {
	case FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), true, nil
	case FrequencyWeekly:
		return fmt.Sprintf("%d %d * * %s", minute, hour, weekdayToCron[strings.ToLower(c.DayOfWeek)]), true, nil
	case FrequencyMonthly:
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), true, nil
	case FrequencyQuarterly:
		return fmt.Sprintf("%d %d %d 1,4,7,10 *", minute, hour, day), true, nil
	}
	return "", false, nil
}

// clock parses RunTime as HH:MM, defaulting to 02:00.
func (c ScheduleConfig) clock() (int, int, error) {
	if c.RunTime == "" {
		return 2, 0, nil
	}
	parsed, err := time.Parse("15:04", c.RunTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: run_time must be HH:MM", ErrInvalidScheduleConfig)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
