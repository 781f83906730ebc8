// Package schedule holds the civil-time rules of the quiet-hours
// regime: when a night starts, when it ends depending on the day of the
// week, and which days carry the payment reminder.
package schedule

import "time"

// Schedule computes quiet-hours boundaries in a fixed civil timezone.
// All methods are pure functions of their arguments and the configured
// hours.
type Schedule struct {
	loc            *time.Location
	startHour      int
	weekdayEndHour int
	weekendEndHour int
}

// New creates a Schedule for the given location and boundary hours.
func New(loc *time.Location, startHour, weekdayEndHour, weekendEndHour int) *Schedule {
	return &Schedule{
		loc:            loc,
		startHour:      startHour,
		weekdayEndHour: weekdayEndHour,
		weekendEndHour: weekendEndHour,
	}
}

// Now returns the current time in the schedule's timezone.
func (s *Schedule) Now() time.Time {
	return time.Now().In(s.loc)
}

// Location returns the schedule's timezone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// StartHour returns the hour at which quiet hours begin.
func (s *Schedule) StartHour() int {
	return s.startHour
}

// IsWeekend reports whether the given civil date is Saturday or Sunday.
func (s *Schedule) IsWeekend(date time.Time) bool {
	wd := date.In(s.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NightEndHour returns the hour at which quiet hours end on the given
// civil date: the weekend hour on Saturday and Sunday, the weekday hour
// otherwise.
func (s *Schedule) NightEndHour(date time.Time) int {
	if s.IsWeekend(date) {
		return s.weekendEndHour
	}
	return s.weekdayEndHour
}

// InNightWindow reports whether t falls inside quiet hours. The end
// hour is evaluated on t's own civil date, which is "tomorrow" relative
// to the evening the night started.
func (s *Schedule) InNightWindow(t time.Time) bool {
	t = t.In(s.loc)
	return t.Hour() >= s.startHour || t.Hour() < s.NightEndHour(t)
}

// IsPaymentReminderDay reports whether the membership-fee reminder goes
// out on the given date.
func (s *Schedule) IsPaymentReminderDay(date time.Time) bool {
	wd := date.In(s.loc).Weekday()
	return wd == time.Monday || wd == time.Friday
}
