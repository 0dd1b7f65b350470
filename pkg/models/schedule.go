package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidReportSchedule is returned when schedule validation fails.
var ErrInvalidReportSchedule = errors.New("invalid report schedule configuration")

// ReportSchedule drives periodic health report generation in the worker.
// NextDueAt is precomputed so the worker can poll due schedules without
// keeping an individual timer per schedule.
type ReportSchedule struct {
	ID             string    `json:"id"              validate:"required"`
	CronExpression string    `json:"cron_expression" validate:"required"`
	NextDueAt      time.Time `json:"next_due_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Active         bool      `json:"active"`
}

// NewReportSchedule creates a schedule with the first due time computed from now.
func NewReportSchedule(id, cronExpression string, now time.Time) (*ReportSchedule, error) {
	schedule := &ReportSchedule{
		ID:             id,
		CronExpression: cronExpression,
		CreatedAt:      now,
		UpdatedAt:      now,
		Active:         true,
	}

	if err := schedule.computeNextDueAt(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt recomputes the next due time from the given reference time,
// typically right after a report run.
func (s *ReportSchedule) UpdateNextDueAt(now time.Time) error {
	return s.computeNextDueAt(now)
}

// IsDue reports whether the schedule should run at the given time.
func (s *ReportSchedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate checks the schedule fields, including the cron expression format.
func (s *ReportSchedule) Validate() error {
	if s.ID == "" || s.CronExpression == "" {
		return ErrInvalidReportSchedule
	}

	_, err := cronParser().Parse(s.CronExpression)

	return err
}

func (s *ReportSchedule) computeNextDueAt(referenceTime time.Time) error {
	cronSchedule, err := cronParser().Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = referenceTime

	return nil
}

// Standard 5-field cron format (minute hour day month weekday).
func cronParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}
