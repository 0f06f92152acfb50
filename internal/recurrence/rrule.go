package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var rruleFrequencies = map[Frequency]rrule.Frequency{
	FrequencyDaily:   rrule.DAILY,
	FrequencyWeekly:  rrule.WEEKLY,
	FrequencyMonthly: rrule.MONTHLY,
	FrequencyYearly:  rrule.YEARLY,
}

// ROption builds RFC 5545 options that an rrule evaluator expands to the same
// dates as Expand. It returns nil for rules that do not repeat.
func (e *Expander) ROption(start time.Time, rule Rule) (*rrule.ROption, error) {
	if !rule.IsRecurring() {
		return nil, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     rruleFrequencies[rule.Frequency],
		Interval: rule.Interval,
		Dtstart:  start,
	}

	switch rule.Frequency {
	case FrequencyWeekly:
		// Weeks are counted from the start day, so the RFC week starts there too.
		opt.Wkst = rruleWeekdays[start.Weekday()]
		wds := append([]time.Weekday(nil), rule.Weekdays...)
		if len(wds) == 0 {
			wds = []time.Weekday{start.Weekday()}
		}
		sort.Slice(wds, func(i, j int) bool { return wds[i] < wds[j] })
		for i, wd := range wds {
			if i > 0 && wds[i-1] == wd {
				continue
			}
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}
	case FrequencyMonthly:
		if d := start.Day(); d > 28 {
			// Last existing day among 28..d reproduces the month-end clamp.
			for md := 28; md <= d; md++ {
				opt.Bymonthday = append(opt.Bymonthday, md)
			}
			opt.Bysetpos = []int{-1}
		}
	case FrequencyYearly:
		if start.Month() == time.February && start.Day() == 29 {
			opt.Bymonth = []int{2}
			opt.Bymonthday = []int{28, 29}
			opt.Bysetpos = []int{-1}
		}
	}

	occs, err := e.Expand(start, rule)
	if err != nil {
		return nil, err
	}
	if limit := e.Limit(rule); len(occs) >= limit {
		opt.Count = limit
	} else {
		// The termination date or the end of MaxYear ends the series before
		// the cap does.
		opt.Until = boundary(start, rule)
	}

	return &opt, nil
}

// RRule renders rule as the value of an RRULE property, without DTSTART.
func (e *Expander) RRule(start time.Time, rule Rule) (string, error) {
	opt, err := e.ROption(start, rule)
	if err != nil || opt == nil {
		return "", err
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return r.OrigOptions.RRuleString(), nil
}
