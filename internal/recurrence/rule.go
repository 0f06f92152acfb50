package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxOccurrences bounds every expansion regardless of the rule.
const DefaultMaxOccurrences = 730

// MaxYear is the last calendar year an occurrence may fall in.
const MaxYear = 9999

// maxInterval keeps a single step within MaxYear years, so step arithmetic
// cannot overflow.
var maxInterval = map[Frequency]int{
	FrequencyDaily:   MaxYear * 366,
	FrequencyWeekly:  MaxYear * 366 / 7,
	FrequencyMonthly: MaxYear * 12,
	FrequencyYearly:  MaxYear,
}

var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FrequencyNone:
		return FrequencyNone, nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return f, nil
	default:
		return "", invalidArgument("unknown frequency %q", s)
	}
}

type TerminationMode string

const (
	TerminationNever      TerminationMode = "never"
	TerminationOnDate     TerminationMode = "on_date"
	TerminationAfterCount TerminationMode = "after_count"
)

func ParseTerminationMode(s string) (TerminationMode, error) {
	switch m := TerminationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", TerminationNever:
		return TerminationNever, nil
	case TerminationOnDate, TerminationAfterCount:
		return m, nil
	default:
		return "", invalidArgument("unknown termination mode %q", s)
	}
}

// Rule describes how an event repeats from its start instant.
//
// Weekdays is only consulted for weekly rules; when empty the weekday of the
// start instant is used. TerminationDate is an inclusive calendar day and is
// only read when Termination is TerminationOnDate; TerminationCount only when
// Termination is TerminationAfterCount.
type Rule struct {
	Frequency        Frequency
	Interval         int
	Weekdays         []time.Weekday
	Termination      TerminationMode
	TerminationDate  time.Time
	TerminationCount int
}

func (r Rule) IsRecurring() bool {
	return r.Frequency != "" && r.Frequency != FrequencyNone
}

// Validate reports the first problem that would prevent expansion. Rules
// with frequency none are always valid.
func (r Rule) Validate() error {
	if !r.IsRecurring() {
		return nil
	}
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return invalidArgument("unknown frequency %q", r.Frequency)
	}
	if r.Interval < 1 {
		return invalidArgument("interval must be at least 1")
	}
	if max := maxInterval[r.Frequency]; r.Interval > max {
		return invalidArgument("interval must be at most %d for %s rules", max, r.Frequency)
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return invalidArgument("invalid weekday %d", wd)
		}
	}
	switch r.Termination {
	case "", TerminationNever:
	case TerminationOnDate:
		if r.TerminationDate.IsZero() {
			return invalidArgument("termination date is required")
		}
	case TerminationAfterCount:
		if r.TerminationCount < 1 {
			return invalidArgument("termination count must be at least 1")
		}
	default:
		return invalidArgument("unknown termination mode %q", r.Termination)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, invalidArgument("malformed date %q", s)
	}
	return t, nil
}
