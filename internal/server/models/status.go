package models

import (
	"time"

	"github.com/dmitrijs2005/garagebook/internal/timex"
)

// ServiceStatus is derived from the next service date; it is never stored.
type ServiceStatus string

const (
	StatusOverdue   ServiceStatus = "overdue"
	StatusUpcoming  ServiceStatus = "upcoming"
	StatusScheduled ServiceStatus = "scheduled"
)

// UpcomingWindowDays is how far ahead a service counts as upcoming.
const UpcomingWindowDays = 7

// Classify compares next against the calendar date of now, taken in now's
// location: before today is overdue, today up to (not including) today+7 is
// upcoming, anything later is scheduled.
func Classify(next timex.Date, now time.Time) ServiceStatus {
	today := timex.DateOf(now)
	switch {
	case next.Before(today):
		return StatusOverdue
	case next.Before(today.AddDays(UpcomingWindowDays)):
		return StatusUpcoming
	default:
		return StatusScheduled
	}
}

// Summary counts an account's records per status.
type Summary struct {
	Total     int `json:"total"`
	Overdue   int `json:"overdue"`
	Upcoming  int `json:"upcoming"`
	Scheduled int `json:"scheduled"`
}

// Add counts one record with the given status.
func (s *Summary) Add(status ServiceStatus) {
	s.Total++
	switch status {
	case StatusOverdue:
		s.Overdue++
	case StatusUpcoming:
		s.Upcoming++
	case StatusScheduled:
		s.Scheduled++
	}
}
