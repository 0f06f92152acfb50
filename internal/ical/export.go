package ical

import (
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"clubplanner/backend/internal/domain"
)

const ProductID = "-//clubplanner//events//EN"

const (
	propRelatedTo   = ics.ComponentProperty("RELATED-TO")
	propSeriesIndex = ics.ComponentProperty("X-CLUBPLANNER-SERIES-INDEX")
)

// Calendar builds a VCALENDAR with one VEVENT per scheduled, non-trashed
// event. Unallocated and trashed events are left out. stamp is used for
// DTSTAMP.
func Calendar(events []domain.Event, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)

	for _, ev := range events {
		if ev.IsTrashed() || ev.IsUnallocated() {
			continue
		}

		ve := cal.AddEvent(ev.ID.String())
		ve.SetDtStampTime(stamp.UTC())
		ve.SetCreatedTime(ev.CreatedAt.UTC())
		ve.SetModifiedAt(ev.UpdatedAt.UTC())
		ve.SetStartAt(ev.StartTime.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}

		categories := make([]string, 0, 1+len(ev.TagIDs))
		if ev.CategoryID != "" {
			categories = append(categories, ev.CategoryID)
		}
		categories = append(categories, ev.TagIDs...)
		if len(categories) > 0 {
			ve.SetProperty(ics.ComponentPropertyCategories, strings.Join(categories, ","))
		}

		if ev.InSeries() {
			ve.SetProperty(propRelatedTo, ev.SeriesID.String())
			if ev.SeriesIndex != nil {
				ve.SetProperty(propSeriesIndex, strconv.Itoa(*ev.SeriesIndex))
			}
		}
	}
	return cal
}

func Export(w io.Writer, events []domain.Event, stamp time.Time) error {
	_, err := io.WriteString(w, Calendar(events, stamp).Serialize())
	return err
}
