package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Up to five years of minute candidates.
const maxCronSearchIterations = 5 * 366 * 24 * 60

// CronSpec translates a human-readable period into the six-field cron
// expression (seconds first) the scheduler evaluates. The translation is
// deliberately coarse:
//
//	>= 1 day    -> midnight every N days
//	>= 1 hour   -> on the hour every N hours
//	>= 1 minute -> every N minutes
//	>= 30 s     -> every minute
//	<  30 s     -> every N seconds (floor at 1)
//
// Periods between 30 and 59 seconds collapse to whole-minute cadence on
// purpose, trading requested precision for bounded scheduling resolution.
func CronSpec(period time.Duration) string {
	switch {
	case period >= 24*time.Hour:
		days := int(period / (24 * time.Hour))
		return fmt.Sprintf("0 0 0 */%d * *", days)
	case period >= time.Hour:
		hours := int(period / time.Hour)
		return fmt.Sprintf("0 0 */%d * * *", hours)
	case period >= time.Minute:
		minutes := int(period / time.Minute)
		return fmt.Sprintf("0 */%d * * * *", minutes)
	case period >= 30*time.Second:
		return "0 * * * * *"
	default:
		seconds := int(period / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("*/%d * * * * *", seconds)
	}
}

type cronField struct {
	any    bool
	values map[int]struct{}
}

func (f cronField) contains(value int) bool {
	if f.any {
		return true
	}
	_, ok := f.values[value]
	return ok
}

// smallestAtLeast returns the smallest admitted value >= floor, or -1.
func (f cronField) smallestAtLeast(floor, maxValue int) int {
	for value := floor; value <= maxValue; value++ {
		if f.contains(value) {
			return value
		}
	}
	return -1
}

type cronExpr struct {
	seconds    cronField
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

// matchesMinute checks every field above second resolution.
func (e cronExpr) matchesMinute(candidate time.Time) bool {
	if !e.minute.contains(candidate.Minute()) {
		return false
	}
	if !e.hour.contains(candidate.Hour()) {
		return false
	}
	if !e.month.contains(int(candidate.Month())) {
		return false
	}

	domMatch := e.dayOfMonth.contains(candidate.Day())
	dowMatch := e.dayOfWeek.contains(int(candidate.Weekday()))
	switch {
	case e.dayOfMonth.any && e.dayOfWeek.any:
		return true
	case e.dayOfMonth.any:
		return dowMatch
	case e.dayOfWeek.any:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// next returns the first instant strictly after now admitted by the
// expression.
func (e cronExpr) next(now time.Time) (time.Time, error) {
	candidate := now.Truncate(time.Minute)
	for iteration := 0; iteration < maxCronSearchIterations; iteration++ {
		if e.matchesMinute(candidate) {
			floor := 0
			if candidate.Equal(now.Truncate(time.Minute)) {
				floor = now.Second() + 1
			}
			if second := e.seconds.smallestAtLeast(floor, 59); second >= 0 {
				return candidate.Add(time.Duration(second) * time.Second), nil
			}
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, schedulerError(ErrValidation, "no next run found for expression")
}

func parseCronSpec(spec string) (*cronExpr, error) {
	fields := strings.Fields(strings.TrimSpace(spec))
	if len(fields) != 6 {
		return nil, schedulerError(ErrValidation, fmt.Sprintf("expected 6 cron fields, got %q", spec))
	}

	seconds, err := parseCronField(fields[0], 0, 59, false)
	if err != nil {
		return nil, fmt.Errorf("seconds field %q: %w", fields[0], err)
	}
	minute, err := parseCronField(fields[1], 0, 59, false)
	if err != nil {
		return nil, fmt.Errorf("minute field %q: %w", fields[1], err)
	}
	hour, err := parseCronField(fields[2], 0, 23, false)
	if err != nil {
		return nil, fmt.Errorf("hour field %q: %w", fields[2], err)
	}
	dayOfMonth, err := parseCronField(fields[3], 1, 31, false)
	if err != nil {
		return nil, fmt.Errorf("day-of-month field %q: %w", fields[3], err)
	}
	month, err := parseCronField(fields[4], 1, 12, false)
	if err != nil {
		return nil, fmt.Errorf("month field %q: %w", fields[4], err)
	}
	dayOfWeek, err := parseCronField(fields[5], 0, 7, true)
	if err != nil {
		return nil, fmt.Errorf("day-of-week field %q: %w", fields[5], err)
	}

	return &cronExpr{
		seconds:    seconds,
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

func parseCronField(raw string, minValue, maxValue int, normalizeSunday bool) (cronField, error) {
	field := strings.TrimSpace(raw)
	if field == "" {
		return cronField{}, schedulerError(ErrValidation, "empty cron field")
	}
	if field == "*" {
		return cronField{any: true}, nil
	}

	values := map[int]struct{}{}
	for _, segment := range strings.Split(field, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return cronField{}, schedulerError(ErrValidation, "empty cron segment")
		}
		if err := addSegmentValues(values, segment, minValue, maxValue, normalizeSunday); err != nil {
			return cronField{}, err
		}
	}
	if len(values) == 0 {
		return cronField{}, schedulerError(ErrValidation, "no values in cron field")
	}
	return cronField{values: values}, nil
}

func addSegmentValues(values map[int]struct{}, segment string, minValue, maxValue int, normalizeSunday bool) error {
	base := segment
	step := 1
	if strings.Contains(segment, "/") {
		parts := strings.SplitN(segment, "/", 2)
		parsedStep, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || parsedStep <= 0 {
			return schedulerError(ErrValidation, fmt.Sprintf("invalid step in %q", segment))
		}
		base = strings.TrimSpace(parts[0])
		step = parsedStep
	}
	if base == "" {
		base = "*"
	}

	start := minValue
	end := maxValue
	switch {
	case base == "*":
	case strings.Contains(base, "-"):
		parts := strings.SplitN(base, "-", 2)
		rangeStart, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return schedulerError(ErrValidation, fmt.Sprintf("invalid range start in %q", segment))
		}
		rangeEnd, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return schedulerError(ErrValidation, fmt.Sprintf("invalid range end in %q", segment))
		}
		start = normalizeCronValue(rangeStart, normalizeSunday)
		end = normalizeCronValue(rangeEnd, normalizeSunday)
	default:
		value, err := strconv.Atoi(base)
		if err != nil {
			return schedulerError(ErrValidation, fmt.Sprintf("invalid value %q", base))
		}
		start = normalizeCronValue(value, normalizeSunday)
		end = start
		if step > 1 {
			end = maxValue
		}
	}

	if start < minValue || start > maxValue || end < minValue || end > maxValue || end < start {
		return schedulerError(ErrValidation, fmt.Sprintf("segment %q out of range [%d,%d]", segment, minValue, maxValue))
	}

	for value := start; value <= end; value += step {
		normalized := normalizeCronValue(value, normalizeSunday)
		if normalized >= minValue && normalized <= maxValue {
			values[normalized] = struct{}{}
		}
	}
	return nil
}

func normalizeCronValue(value int, normalizeSunday bool) int {
	if normalizeSunday && value == 7 {
		return 0
	}
	return value
}
