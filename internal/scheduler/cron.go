package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronSpec is a parsed five-field cron expression: minute, hour, day of
// month, month, day of week. Fields accept "*", "*/n", ranges "a-b", lists
// "a,b,c" and plain numbers.
type cronSpec struct {
	minute  cronField
	hour    cronField
	day     cronField
	month   cronField
	weekday cronField
}

type cronField struct {
	any    bool
	step   int // "*/n" when > 0
	values map[int]struct{}
}

func parseCron(expr string) (*cronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: want 5 fields, got %d", expr, len(fields))
	}

	bounds := [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}
	parsed := make([]cronField, 5)
	for i, raw := range fields {
		f, err := parseCronField(raw, bounds[i][0], bounds[i][1])
		if err != nil {
			return nil, fmt.Errorf("cron %q field %d: %w", expr, i+1, err)
		}
		parsed[i] = f
	}
	return &cronSpec{
		minute:  parsed[0],
		hour:    parsed[1],
		day:     parsed[2],
		month:   parsed[3],
		weekday: parsed[4],
	}, nil
}

func parseCronField(raw string, lo, hi int) (cronField, error) {
	if raw == "*" {
		return cronField{any: true}, nil
	}
	if after, ok := strings.CutPrefix(raw, "*/"); ok {
		n, err := strconv.Atoi(after)
		if err != nil || n <= 0 {
			return cronField{}, fmt.Errorf("bad step %q", raw)
		}
		return cronField{step: n}, nil
	}

	values := map[int]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if from, to, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(from)
			b, errB := strconv.Atoi(to)
			if errA != nil || errB != nil || a > b {
				return cronField{}, fmt.Errorf("bad range %q", part)
			}
			for v := a; v <= b; v++ {
				if v < lo || v > hi {
					return cronField{}, fmt.Errorf("value %d out of range [%d,%d]", v, lo, hi)
				}
				values[v] = struct{}{}
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return cronField{}, fmt.Errorf("bad value %q", part)
		}
		if v < lo || v > hi {
			return cronField{}, fmt.Errorf("value %d out of range [%d,%d]", v, lo, hi)
		}
		values[v] = struct{}{}
	}
	return cronField{values: values}, nil
}

func (f cronField) matches(v int) bool {
	if f.any {
		return true
	}
	if f.step > 0 {
		return v%f.step == 0
	}
	_, ok := f.values[v]
	return ok
}

// matches reports whether the expression fires at the given minute.
func (c *cronSpec) matches(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.day.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.weekday.matches(int(t.Weekday()))
}
