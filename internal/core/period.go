package core

import (
	"time"

	"github.com/google/uuid"
)

// periodNamespace seeds schedule identities so that every writer derives the
// same ID for the same month.
var periodNamespace = uuid.MustParse("3d1f6a2e-58c4-4b7e-a0f9-2c6e8d4b1a70")

// ScheduleID returns the identity of the schedule starting at begin.
func ScheduleID(begin time.Time) uuid.UUID {
	return uuid.NewSHA1(periodNamespace, []byte(begin.Format("2006-01-02")))
}

// NewSchedule derives the monthly schedule containing d. BeginDate is the first
// instant of the month and EndDate the last nanosecond before the next month,
// both in d's location.
func NewSchedule(d time.Time) BudgetSchedule {
	begin := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	end := begin.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return BudgetSchedule{
		Entity:    Entity{ID: ScheduleID(begin)},
		BeginDate: begin,
		EndDate:   end,
	}
}

// Next returns the schedule of the following month.
func (s BudgetSchedule) Next() BudgetSchedule {
	return NewSchedule(s.EndDate.AddDate(0, 0, 1))
}

// Previous returns the schedule of the preceding month.
func (s BudgetSchedule) Previous() BudgetSchedule {
	return NewSchedule(s.BeginDate.AddDate(0, 0, -1))
}

// Contains reports whether t falls in the schedule. Both boundaries are inclusive.
func (s BudgetSchedule) Contains(t time.Time) bool {
	return !t.Before(s.BeginDate) && !t.After(s.EndDate)
}

// Before reports whether t is strictly before the schedule starts.
func (s BudgetSchedule) Before(t time.Time) bool {
	return t.Before(s.BeginDate)
}

// Name is the human label of the month, e.g. "March 2024".
func (s BudgetSchedule) Name() string {
	return s.BeginDate.Format("January 2006")
}
