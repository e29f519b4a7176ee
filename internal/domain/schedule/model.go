package schedule

import (
	"time"

	"courtmatch/internal/domain/fault"
)

// Validation bounds for one-off slots and the recurring-slot cap.
const (
	MinDuration = time.Hour
	MaxDuration = 8 * time.Hour

	// MaxAdvanceDays bounds how far ahead a slot may be scheduled, and how
	// far NextOccurrence will walk looking for a recurring slot's next date.
	MaxAdvanceDays = 14

	// MinOverlap is the floor below which two slots are not considered to
	// overlap usefully for a match.
	MinOverlap = 30 * time.Minute

	// MaxRecurringSlots caps stored recurring slots per user, active or not.
	MaxRecurringSlots = 5
)

var (
	ErrDurationOutOfRange = fault.New(fault.KindValidation, "slot_duration", "slot must last between 1 and 8 hours")
	ErrDateOutOfRange     = fault.New(fault.KindValidation, "slot_date", "slot date must be within the next 14 days")
	ErrEndBeforeStart     = fault.New(fault.KindValidation, "slot_window", "slot end must be after its start")
	ErrInvalidDayOfWeek   = fault.New(fault.KindValidation, "slot_day_of_week", "day of week must be between 1 and 7")

	// ErrRecurringLimit is returned when a user already holds the maximum
	// number of stored recurring slots.
	ErrRecurringLimit = fault.New(fault.KindStateConflict, "recurring_limit", "recurring slot limit reached")
)

// TimeSlot is a concrete playable window on a single calendar day. Date
// carries the day; Start and End carry the full instants on that day.
// Validity (duration and date bounds) is checked once at creation, not
// re-checked later.
type TimeSlot struct {
	Date  time.Time `json:"date"`
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Duration returns the window length.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SameDay reports whether both slots fall on the same calendar day.
func (s TimeSlot) SameDay(o TimeSlot) bool {
	y1, m1, d1 := s.Date.Date()
	y2, m2, d2 := o.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RecurringTimeSlot is a weekly availability window. DayOfWeek runs 1=Sunday
// through 7=Saturday. Minutes are counted from midnight local time.
type RecurringTimeSlot struct {
	DayOfWeek   int  `json:"day_of_week"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	IsActive    bool `json:"is_active"`
}

// Weekday converts the 1-based day index to time.Weekday.
func (r RecurringTimeSlot) Weekday() time.Weekday {
	return time.Weekday(r.DayOfWeek - 1)
}

// Engine validates slots, intersects them, and manages per-user recurring
// availability.
type Engine interface {
	// Validate enforces the duration and date bounds relative to the
	// engine's clock.
	Validate(slot TimeSlot) error

	// Overlap returns the shared window of a and b, or nil when the slots
	// fall on different days or share less than MinOverlap.
	Overlap(a, b TimeSlot) *TimeSlot

	// AddRecurring stores a recurring slot for a user, rejecting beyond the
	// per-user cap.
	AddRecurring(userID string, slot RecurringTimeSlot) error

	// RecurringFor returns the stored recurring slots for a user.
	RecurringFor(userID string) []RecurringTimeSlot

	// NextOccurrence resolves the next concrete TimeSlot for a recurring
	// slot at or after from, or nil when none lands within MaxAdvanceDays.
	NextOccurrence(slot RecurringTimeSlot, from time.Time) *TimeSlot
}
