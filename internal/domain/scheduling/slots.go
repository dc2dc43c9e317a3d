package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/clinica/clinica/pkg/wallclock"
)

// AvailabilityWindow is a weekly opening of a professional, e.g. Monday
// 08:00-12:00. Weekday follows time.Weekday (0 = Sunday).
type AvailabilityWindow struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func (w AvailabilityWindow) Validate() error {
	if w.Weekday < 0 || w.Weekday > 6 {
		return fmt.Errorf("weekday %d out of range 0-6", w.Weekday)
	}
	start, err := time.Parse(wallclock.TimeLayout, w.Start)
	if err != nil {
		return fmt.Errorf("invalid window start %q", w.Start)
	}
	end, err := time.Parse(wallclock.TimeLayout, w.End)
	if err != nil {
		return fmt.Errorf("invalid window end %q", w.End)
	}
	if !end.After(start) {
		return fmt.Errorf("window end %s must be after start %s", w.End, w.Start)
	}
	return nil
}

// defaultWindow applies when a professional has no window for the day.
var defaultWindow = AvailabilityWindow{Start: "08:00", End: "18:00"}

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ComputeSlots steps through the windows that apply to day in step-sized
// slots and keeps the ones that intersect no busy interval. Slots never
// cross a window's end.
func ComputeSlots(day time.Time, windows []AvailabilityWindow, busy []Interval, step time.Duration) []Slot {
	if step <= 0 {
		step = DefaultDurationMinutes * time.Minute
	}
	date := day.Format(wallclock.DateLayout)

	var todays []AvailabilityWindow
	for _, w := range windows {
		if w.Weekday == int(day.Weekday()) {
			todays = append(todays, w)
		}
	}
	if len(todays) == 0 {
		todays = []AvailabilityWindow{defaultWindow}
	}
	sort.Slice(todays, func(i, j int) bool { return todays[i].Start < todays[j].Start })

	slots := []Slot{}
	seen := make(map[time.Time]bool)
	for _, w := range todays {
		from, err := wallclock.ParseDateTime(date, w.Start)
		if err != nil {
			continue
		}
		until, err := wallclock.ParseDateTime(date, w.End)
		if err != nil {
			continue
		}
		for t := from; !t.Add(step).After(until); t = t.Add(step) {
			end := t.Add(step)
			if seen[t] || overlapsAny(t, end, busy) {
				continue
			}
			seen[t] = true
			slots = append(slots, Slot{Start: t.Format(wallclock.TimeLayout), End: end.Format(wallclock.TimeLayout)})
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if b.Start.Before(end) && b.End.After(start) {
			return true
		}
	}
	return false
}
