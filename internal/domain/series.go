package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clubplanner/backend/internal/recurrence"
)

// Series records the rule a group of events was generated from. The events
// themselves point back at it through Event.SeriesID.
type Series struct {
	bun.BaseModel `bun:"table:event_series"`

	ID               uuid.UUID                  `bun:"id,pk,type:uuid"`
	UserID           string                     `bun:"user_id,notnull"`
	DTStart          time.Time                  `bun:"dtstart,notnull"`
	Frequency        recurrence.Frequency       `bun:"frequency,notnull"`
	Interval         int                        `bun:"interval,notnull"`
	Weekdays         []int                      `bun:"weekdays"`
	Termination      recurrence.TerminationMode `bun:"termination,notnull"`
	TerminationDate  *time.Time                 `bun:"termination_date"`
	TerminationCount *int                       `bun:"termination_count"`
	RRule            string                     `bun:"rrule,notnull"`
	Occurrences      int                        `bun:"occurrences,notnull"`
	CreatedAt        time.Time                  `bun:"created_at,notnull"`
	UpdatedAt        time.Time                  `bun:"updated_at,notnull"`
}

func (s *Series) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

func NewSeries(userID string, start time.Time, rule recurrence.Rule) Series {
	s := Series{
		UserID:      userID,
		DTStart:     start,
		Frequency:   rule.Frequency,
		Interval:    rule.Interval,
		Termination: rule.Termination,
	}
	if s.Termination == "" {
		s.Termination = recurrence.TerminationNever
	}
	for _, wd := range rule.Weekdays {
		s.Weekdays = append(s.Weekdays, int(wd))
	}
	switch rule.Termination {
	case recurrence.TerminationOnDate:
		d := rule.TerminationDate
		s.TerminationDate = &d
	case recurrence.TerminationAfterCount:
		c := rule.TerminationCount
		s.TerminationCount = &c
	}
	return s
}

func (s Series) Rule() recurrence.Rule {
	r := recurrence.Rule{
		Frequency:   s.Frequency,
		Interval:    s.Interval,
		Termination: s.Termination,
	}
	for _, wd := range s.Weekdays {
		r.Weekdays = append(r.Weekdays, time.Weekday(wd))
	}
	if s.TerminationDate != nil {
		r.TerminationDate = *s.TerminationDate
	}
	if s.TerminationCount != nil {
		r.TerminationCount = *s.TerminationCount
	}
	return r
}
