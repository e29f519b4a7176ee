package schedule

import (
	"sync"
	"time"

	"courtmatch/internal/domain/clock"
	"courtmatch/internal/domain/schedule"
)

// Engine implements schedule.Engine. Slot validation and intersection are
// pure; the recurring-slot store is guarded by a single mutex.
type Engine struct {
	clock clock.Clock

	mu        sync.RWMutex
	recurring map[string][]schedule.RecurringTimeSlot
}

// NewEngine creates a schedule engine on the given clock.
func NewEngine(clk clock.Clock) *Engine {
	return &Engine{
		clock:     clk,
		recurring: make(map[string][]schedule.RecurringTimeSlot),
	}
}

// Validate enforces the 1-8 hour duration and the 14-day booking horizon
// relative to the engine's clock. Validation happens once at creation; a slot
// is not re-checked as the horizon moves.
func (e *Engine) Validate(slot schedule.TimeSlot) error {
	if !slot.End.After(slot.Start) {
		return schedule.ErrEndBeforeStart
	}

	d := slot.Duration()
	if d < schedule.MinDuration || d > schedule.MaxDuration {
		return schedule.ErrDurationOutOfRange
	}

	now := e.clock.Now()
	today := startOfDay(now)
	day := startOfDay(slot.Date)
	if day.Before(today) || day.After(today.AddDate(0, 0, schedule.MaxAdvanceDays)) {
		return schedule.ErrDateOutOfRange
	}
	return nil
}

// Overlap intersects two slots on the same calendar day. The shared window is
// [max(starts), min(ends)); anything shorter than MinOverlap is no overlap.
func (e *Engine) Overlap(a, b schedule.TimeSlot) *schedule.TimeSlot {
	if !a.SameDay(b) {
		return nil
	}

	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}

	if end.Sub(start) < schedule.MinOverlap {
		return nil
	}
	return &schedule.TimeSlot{Date: a.Date, Start: start, End: end}
}

// AddRecurring stores a recurring slot for a user. The cap counts stored
// slots whether active or not.
func (e *Engine) AddRecurring(userID string, slot schedule.RecurringTimeSlot) error {
	if slot.DayOfWeek < 1 || slot.DayOfWeek > 7 {
		return schedule.ErrInvalidDayOfWeek
	}
	if slot.EndMinute <= slot.StartMinute {
		return schedule.ErrEndBeforeStart
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.recurring[userID]) >= schedule.MaxRecurringSlots {
		return schedule.ErrRecurringLimit
	}
	e.recurring[userID] = append(e.recurring[userID], slot)
	return nil
}

// RecurringFor returns a copy of the user's stored recurring slots.
func (e *Engine) RecurringFor(userID string) []schedule.RecurringTimeSlot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slots := e.recurring[userID]
	out := make([]schedule.RecurringTimeSlot, len(slots))
	copy(out, slots)
	return out
}

// NextOccurrence walks forward day by day from `from`, bounded to
// MaxAdvanceDays, for the next date matching the slot's weekday. A slot whose
// window has already elapsed today is skipped to the following week.
func (e *Engine) NextOccurrence(slot schedule.RecurringTimeSlot, from time.Time) *schedule.TimeSlot {
	if slot.DayOfWeek < 1 || slot.DayOfWeek > 7 {
		return nil
	}

	for i := 0; i <= schedule.MaxAdvanceDays; i++ {
		day := startOfDay(from.AddDate(0, 0, i))
		if day.Weekday() != slot.Weekday() {
			continue
		}

		end := day.Add(time.Duration(slot.EndMinute) * time.Minute)
		if i == 0 && !end.After(from) {
			continue
		}

		return &schedule.TimeSlot{
			Date:  day,
			Start: day.Add(time.Duration(slot.StartMinute) * time.Minute),
			End:   end,
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
