package recurrence

import "time"

// Expander turns a start instant and a Rule into concrete occurrences.
// The zero value caps expansions at DefaultMaxOccurrences.
type Expander struct {
	MaxOccurrences int
}

func NewExpander(maxOccurrences int) *Expander {
	return &Expander{MaxOccurrences: maxOccurrences}
}

var defaultExpander Expander

// Expand expands rule from start with the default occurrence cap.
func Expand(start time.Time, rule Rule) ([]time.Time, error) {
	return defaultExpander.Expand(start, rule)
}

func (e *Expander) Max() int {
	if e == nil || e.MaxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.MaxOccurrences
}

// Limit is the number of occurrences rule may produce under this expander.
func (e *Expander) Limit(rule Rule) int {
	limit := e.Max()
	if rule.Termination == TerminationAfterCount && rule.TerminationCount < limit {
		limit = rule.TerminationCount
	}
	return limit
}

// Expand returns the ascending occurrences of rule anchored at start. Rules
// with frequency none yield exactly start. Invalid rules fail with
// ErrInvalidArgument before anything is generated.
func (e *Expander) Expand(start time.Time, rule Rule) ([]time.Time, error) {
	if !rule.IsRecurring() {
		return []time.Time{start}, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	limit := e.Limit(rule)
	end := boundary(start, rule)

	switch rule.Frequency {
	case FrequencyDaily:
		return stepped(start, limit, end, func(k int) time.Time {
			return AddDays(start, k*rule.Interval)
		}), nil
	case FrequencyWeekly:
		return weekly(start, rule, limit, end), nil
	case FrequencyMonthly:
		return stepped(start, limit, end, func(k int) time.Time {
			return AddMonthsPreservingDay(start, k*rule.Interval)
		}), nil
	default:
		return stepped(start, limit, end, func(k int) time.Time {
			return AddYearsWithLeapClamp(start, k*rule.Interval)
		}), nil
	}
}

// horizon is the last instant that is still in MaxYear both in start's
// location and in UTC, or start itself when start already lies beyond it.
func horizon(start time.Time) time.Time {
	last := int(time.Second - time.Nanosecond)
	h := time.Date(MaxYear, time.December, 31, 23, 59, 59, last, start.Location())
	if u := time.Date(MaxYear, time.December, 31, 23, 59, 59, last, time.UTC); u.Before(h) {
		h = u.In(start.Location())
	}
	if start.After(h) {
		return start
	}
	return h
}

// boundary is the last instant an occurrence of rule may fall on: the end of
// the termination date, never later than the horizon.
func boundary(start time.Time, rule Rule) time.Time {
	h := horizon(start)
	if rule.Termination == TerminationOnDate {
		if b := EndOfDay(rule.TerminationDate, start.Location()); b.Before(h) {
			return b
		}
	}
	return h
}

// stepped collects start followed by next(1), next(2), ... Each candidate is
// computed from start rather than from its predecessor so clamped days do
// not drift. Candidates past boundary, or not after the previous one, end
// the series.
func stepped(start time.Time, limit int, boundary time.Time, next func(k int) time.Time) []time.Time {
	out := make([]time.Time, 0, initialCap(limit))
	for k := 0; len(out) < limit; k++ {
		d := start
		if k > 0 {
			d = next(k)
			if !d.After(out[len(out)-1]) {
				break
			}
		}
		if d.After(boundary) {
			break
		}
		out = append(out, d)
	}
	return out
}

func weekly(start time.Time, rule Rule, limit int, boundary time.Time) []time.Time {
	var days [7]bool
	if len(rule.Weekdays) == 0 {
		days[start.Weekday()] = true
	}
	for _, wd := range rule.Weekdays {
		days[wd] = true
	}

	// Day offsets past the boundary never matter; capping the walk there keeps
	// the week skip below in range.
	span := daysBetween(start, boundary) + 1

	out := make([]time.Time, 0, initialCap(limit))
	for n := 0; len(out) < limit && n <= span; n++ {
		week := n / 7
		if week%rule.Interval != 0 {
			// Jump to the day before the next active week.
			n = (week/rule.Interval+1)*rule.Interval*7 - 1
			continue
		}
		d := AddDays(start, n)
		if d.After(boundary) {
			break
		}
		if days[d.Weekday()] {
			out = append(out, d)
		}
	}
	return out
}

// daysBetween counts calendar days from a's date to b's date. It works on
// Unix seconds because time.Duration saturates after about 292 years.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Unix()
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC).Unix()
	return int((to - from) / 86400)
}

func initialCap(limit int) int {
	if limit > 64 {
		return 64
	}
	return limit
}
