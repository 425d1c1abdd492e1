// Package lifecycle holds the derived-status rules shared by every module:
// open/closed participation windows, status workflows and blood donor
// eligibility. Everything here is pure and clock-injected.
package lifecycle

import (
	"errors"
	"time"
)

var (
	ErrInactive        = errors.New("activity is not active")
	ErrFull            = errors.New("capacity reached")
	ErrDeadlinePassed  = errors.New("deadline has passed")
	errNilDeadlineTime = errors.New("deadline time is zero")
)

// Deadline is either a calendar date or an instant. Date deadlines compare
// by UTC day and stay open for the whole of that day; instant deadlines
// compare to the nanosecond.
type Deadline struct {
	At       time.Time
	DateOnly bool
}

// OnDate returns a day-granular deadline, or nil for a zero date.
func OnDate(d Date) *Deadline {
	if d.IsZero() {
		return nil
	}
	return &Deadline{At: d.Time(), DateOnly: true}
}

// AtInstant returns a timestamp deadline, or nil for a zero time.
func AtInstant(t time.Time) *Deadline {
	if t.IsZero() {
		return nil
	}
	return &Deadline{At: t.UTC()}
}

// Passed reports whether now is strictly after the deadline.
func (d Deadline) Passed(now time.Time) bool {
	if d.DateOnly {
		return DateOf(now).After(DateOf(d.At))
	}
	return now.After(d.At)
}

func (d Deadline) validate() error {
	if d.At.IsZero() {
		return errNilDeadlineTime
	}
	return nil
}

// Window describes whether an activity accepts new participants.
// A nil Capacity means unlimited, a nil Deadline means no time bound.
type Window struct {
	Active   bool
	Capacity *int
	Count    int
	Deadline *Deadline
}

// IsOpen is Active and below capacity and not past the deadline.
func (w Window) IsOpen(now time.Time) bool {
	return w.Check(now) == nil
}

// Check returns nil when open, otherwise the first rule that closes it.
func (w Window) Check(now time.Time) error {
	if !w.Active {
		return ErrInactive
	}
	if w.Full() {
		return ErrFull
	}
	if w.Deadline != nil {
		if err := w.Deadline.validate(); err != nil {
			return err
		}
		if w.Deadline.Passed(now) {
			return ErrDeadlinePassed
		}
	}
	return nil
}

// Full reports whether the participant count has reached capacity.
func (w Window) Full() bool {
	return w.Capacity != nil && w.Count >= *w.Capacity
}

// Remaining is the number of free places, nil when unlimited.
func (w Window) Remaining() *int {
	if w.Capacity == nil {
		return nil
	}
	left := *w.Capacity - w.Count
	if left < 0 {
		left = 0
	}
	return &left
}
