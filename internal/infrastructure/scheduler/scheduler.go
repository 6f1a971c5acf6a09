package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is the cron expression the external scheduler triggers runs with.
// It is only used to tell operators when the next run is expected.
type Schedule struct {
	spec     string
	schedule cron.Schedule
}

// Parse accepts a standard 5-field crontab expression, a descriptor such as
// @daily, or an EventBridge expression of the form cron(min hour dom month dow year).
// EventBridge day-of-week numbers run 1-7 from Sunday and are shifted to 0-6.
// The L, W and # forms have no crontab equivalent and are rejected.
// Expressions without an explicit CRON_TZ are evaluated in UTC.
func Parse(spec string) (*Schedule, error) {
	normalized := normalize(spec)
	if normalized == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	if !strings.HasPrefix(normalized, "CRON_TZ=") && !strings.HasPrefix(normalized, "TZ=") {
		normalized = "CRON_TZ=UTC " + normalized
	}

	s, err := cron.ParseStandard(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	return &Schedule{spec: spec, schedule: s}, nil
}

// Next returns the first activation strictly after from, in UTC.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from.UTC()).UTC()
}

func (s *Schedule) String() string {
	return s.spec
}

func normalize(spec string) string {
	spec = strings.TrimSpace(spec)
	if !strings.HasPrefix(spec, "cron(") || !strings.HasSuffix(spec, ")") {
		return spec
	}

	fields := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(spec, "cron("), ")"))
	if len(fields) == 6 {
		// Year field is not supported by crontab syntax.
		fields = fields[:5]
	}
	for i, f := range fields {
		if f == "?" {
			fields[i] = "*"
		}
	}
	if len(fields) == 5 {
		fields[4] = shiftDayOfWeek(fields[4])
	}
	return strings.Join(fields, " ")
}

// shiftDayOfWeek rewrites numeric EventBridge days (1=SUN..7=SAT) in lists,
// ranges and stepped ranges to crontab numbering. Names are left alone.
func shiftDayOfWeek(field string) string {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		rng, step, hasStep := strings.Cut(part, "/")
		bounds := strings.Split(rng, "-")
		for j, b := range bounds {
			if n, err := strconv.Atoi(b); err == nil && n >= 1 && n <= 7 {
				bounds[j] = strconv.Itoa(n - 1)
			}
		}
		parts[i] = strings.Join(bounds, "-")
		if hasStep {
			parts[i] += "/" + step
		}
	}
	return strings.Join(parts, ",")
}
