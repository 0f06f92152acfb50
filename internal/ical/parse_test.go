package ical

import (
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// entry is one VEVENT read back from an exported calendar.
type entry struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	Categories  []string
	SeriesID    string
	SeriesIndex int
	InSeries    bool
}

func parseEntries(r io.Reader) ([]entry, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	var out []entry
	for _, ve := range cal.Events() {
		e := entry{UID: ve.Id()}
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			e.Summary = p.Value
		}
		if p := ve.GetProperty(ics.ComponentPropertyDescription); p != nil {
			e.Description = p.Value
		}
		if p := ve.GetProperty(ics.ComponentPropertyCategories); p != nil && p.Value != "" {
			e.Categories = strings.Split(p.Value, ",")
		}
		if p := ve.GetProperty(propRelatedTo); p != nil {
			e.SeriesID = p.Value
			e.InSeries = true
		}
		if p := ve.GetProperty(propSeriesIndex); p != nil {
			if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
				e.SeriesIndex = n
			}
		}
		start, err := ve.GetStartAt()
		if err != nil {
			return nil, err
		}
		e.Start = start
		out = append(out, e)
	}
	return out, nil
}
