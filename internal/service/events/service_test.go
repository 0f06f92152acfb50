package events

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"clubplanner/backend/internal/domain"
	"clubplanner/backend/internal/metrics"
	"clubplanner/backend/internal/recurrence"
	"clubplanner/backend/internal/store"
)

type fakeRepo struct {
	createEventFn        func(ctx context.Context, ev domain.Event) (domain.Event, error)
	createSeriesFn       func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error)
	convertToSeriesFn    func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error)
	getEventFn           func(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error)
	getSeriesFn          func(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error)
	listEventsFn         func(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error)
	listUnallocatedFn    func(ctx context.Context, userID string) ([]domain.Event, error)
	listTrashFn          func(ctx context.Context, userID string) ([]domain.Event, error)
	listSeriesEventsFn   func(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error)
	updateEventFn        func(ctx context.Context, ev domain.Event) (domain.Event, error)
	updateSeriesEventsFn func(ctx context.Context, userID string, seriesID uuid.UUID, fields domain.EventFields) (int, error)
	deleteEventsFn       func(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error)
	restoreEventFn       func(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error)
	purgeTrashFn         func(ctx context.Context, deletedBefore time.Time) (int, error)
}

func (f *fakeRepo) CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if f.createEventFn == nil {
		panic("CreateEvent not configured")
	}
	return f.createEventFn(ctx, ev)
}

func (f *fakeRepo) CreateSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
	if f.createSeriesFn == nil {
		panic("CreateSeries not configured")
	}
	return f.createSeriesFn(ctx, series, events)
}

func (f *fakeRepo) ConvertToSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
	if f.convertToSeriesFn == nil {
		panic("ConvertToSeries not configured")
	}
	return f.convertToSeriesFn(ctx, series, events)
}

func (f *fakeRepo) GetEvent(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error) {
	if f.getEventFn == nil {
		panic("GetEvent not configured")
	}
	return f.getEventFn(ctx, userID, eventID)
}

func (f *fakeRepo) GetSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error) {
	if f.getSeriesFn == nil {
		panic("GetSeries not configured")
	}
	return f.getSeriesFn(ctx, userID, seriesID)
}

func (f *fakeRepo) ListEvents(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error) {
	if f.listEventsFn == nil {
		panic("ListEvents not configured")
	}
	return f.listEventsFn(ctx, userID, windowStart, windowEnd)
}

func (f *fakeRepo) ListUnallocated(ctx context.Context, userID string) ([]domain.Event, error) {
	if f.listUnallocatedFn == nil {
		panic("ListUnallocated not configured")
	}
	return f.listUnallocatedFn(ctx, userID)
}

func (f *fakeRepo) ListTrash(ctx context.Context, userID string) ([]domain.Event, error) {
	if f.listTrashFn == nil {
		panic("ListTrash not configured")
	}
	return f.listTrashFn(ctx, userID)
}

func (f *fakeRepo) ListSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error) {
	if f.listSeriesEventsFn == nil {
		panic("ListSeriesEvents not configured")
	}
	return f.listSeriesEventsFn(ctx, userID, seriesID)
}

func (f *fakeRepo) UpdateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if f.updateEventFn == nil {
		panic("UpdateEvent not configured")
	}
	return f.updateEventFn(ctx, ev)
}

func (f *fakeRepo) UpdateSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID, fields domain.EventFields) (int, error) {
	if f.updateSeriesEventsFn == nil {
		panic("UpdateSeriesEvents not configured")
	}
	return f.updateSeriesEventsFn(ctx, userID, seriesID, fields)
}

func (f *fakeRepo) DeleteEvents(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error) {
	if f.deleteEventsFn == nil {
		panic("DeleteEvents not configured")
	}
	return f.deleteEventsFn(ctx, userID, eventIDs)
}

func (f *fakeRepo) RestoreEvent(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error) {
	if f.restoreEventFn == nil {
		panic("RestoreEvent not configured")
	}
	return f.restoreEventFn(ctx, userID, eventID, mode)
}

func (f *fakeRepo) PurgeTrash(ctx context.Context, deletedBefore time.Time) (int, error) {
	if f.purgeTrashFn == nil {
		panic("PurgeTrash not configured")
	}
	return f.purgeTrashFn(ctx, deletedBefore)
}

func ptr[T any](v T) *T {
	return &v
}

func requireValidationError(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T (%v), want *ValidationError", err, err)
	}
	if !strings.Contains(vErr.Error(), wantSubstr) {
		t.Fatalf("error = %q, want it to contain %q", vErr.Error(), wantSubstr)
	}
}

func TestServiceCreate_ValidationErrorType(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{UserID: "", Title: "x"})
	requireValidationError(t, err, "user_id is required")

	_, err = svc.Create(context.Background(), CreateInput{UserID: "u1", Title: "   "})
	requireValidationError(t, err, "title is required")

	_, err = svc.Create(context.Background(), CreateInput{UserID: "u1", Title: "x", IdempotencyKey: strings.Repeat("k", 257)})
	requireValidationError(t, err, "idempotency_key too long")
}

func TestServiceCreate_SingleEventDefaults(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	var got domain.Event
	svc := NewService(&fakeRepo{
		createEventFn: func(ctx context.Context, ev domain.Event) (domain.Event, error) {
			got = ev
			return ev, nil
		},
	}, nil, nil)

	res, err := svc.Create(context.Background(), CreateInput{
		UserID:         "u1",
		Title:          "  Quiz night ",
		StartTime:      &start,
		IdempotencyKey: "k1",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if res.Series != nil {
		t.Fatalf("Series = %+v, want nil", res.Series)
	}
	if len(res.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(res.Events))
	}
	if got.Title != "Quiz night" {
		t.Fatalf("title = %q, want trimmed", got.Title)
	}
	if got.CategoryID != domain.DefaultCategoryID {
		t.Fatalf("category = %q, want %q", got.CategoryID, domain.DefaultCategoryID)
	}
	if got.ID == uuid.Nil {
		t.Fatalf("expected idempotent id")
	}
	if got.ID != idempotentID("create_event", "u1", "k1") {
		t.Fatalf("id not derived from idempotency key")
	}
	if got.StartTime == nil || !got.StartTime.Equal(start) {
		t.Fatalf("start = %v, want %v", got.StartTime, start)
	}
}

func TestServiceCreate_UnallocatedEvent(t *testing.T) {
	svc := NewService(&fakeRepo{
		createEventFn: func(ctx context.Context, ev domain.Event) (domain.Event, error) {
			if ev.StartTime != nil {
				t.Fatalf("start = %v, want nil", ev.StartTime)
			}
			return ev, nil
		},
	}, nil, nil)

	if _, err := svc.Create(context.Background(), CreateInput{UserID: "u1", Title: "Someday"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestServiceCreate_WeeklySeries(t *testing.T) {
	// Tuesday start, Monday/Wednesday rule: the start itself is skipped.
	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	m := metrics.New()

	var gotSeries domain.Series
	var gotEvents []domain.Event
	svc := NewService(&fakeRepo{
		createSeriesFn: func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
			gotSeries = series
			gotEvents = events
			return series, events, nil
		},
	}, nil, m)

	res, err := svc.Create(context.Background(), CreateInput{
		UserID:    "u1",
		Title:     "Training",
		TagIDs:    []string{"fitness"},
		StartTime: &start,
		Rule: RuleInput{
			Frequency:        "weekly",
			Weekdays:         []int{3, 1, 3},
			Termination:      "after_count",
			TerminationCount: 6,
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if res.Series == nil {
		t.Fatalf("expected series")
	}
	if gotSeries.Interval != 1 {
		t.Fatalf("interval = %d, want 1 (defaulted)", gotSeries.Interval)
	}
	if len(gotSeries.Weekdays) != 2 || gotSeries.Weekdays[0] != 1 || gotSeries.Weekdays[1] != 3 {
		t.Fatalf("weekdays = %v, want [1 3]", gotSeries.Weekdays)
	}
	if gotSeries.Occurrences != 6 || !strings.Contains(gotSeries.RRule, "FREQ=WEEKLY") {
		t.Fatalf("series = %+v", gotSeries)
	}

	want := []time.Time{
		time.Date(2024, time.January, 3, 19, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 19, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 10, 19, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 19, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 17, 19, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 22, 19, 0, 0, 0, time.UTC),
	}
	if len(gotEvents) != len(want) {
		t.Fatalf("len(events) = %d, want %d", len(gotEvents), len(want))
	}
	for i, ev := range gotEvents {
		if ev.StartTime == nil || !ev.StartTime.Equal(want[i]) {
			t.Fatalf("events[%d].StartTime = %v, want %v", i, ev.StartTime, want[i])
		}
		if ev.Title != "Training" || ev.CategoryID != domain.DefaultCategoryID {
			t.Fatalf("events[%d] = %+v", i, ev)
		}
	}
	gotEvents[0].TagIDs[0] = "changed"
	if gotEvents[1].TagIDs[0] != "fitness" {
		t.Fatalf("tag slices are shared between occurrences")
	}
}

func TestServiceCreate_RuleErrors(t *testing.T) {
	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	svc := NewService(&fakeRepo{}, nil, nil)

	tests := []struct {
		name  string
		start *time.Time
		rule  RuleInput
		want  string
	}{
		{name: "missing start", rule: RuleInput{Frequency: "daily"}, want: "start_time is required"},
		{name: "unknown frequency", start: &start, rule: RuleInput{Frequency: "hourly"}, want: "unknown frequency"},
		{name: "negative interval", start: &start, rule: RuleInput{Frequency: "daily", Interval: -1}, want: "interval"},
		{name: "missing date", start: &start, rule: RuleInput{Frequency: "daily", Termination: "on_date"}, want: "termination_date is required"},
		{name: "bad date", start: &start, rule: RuleInput{Frequency: "daily", Termination: "on_date", TerminationDate: "2024/01/05"}, want: "invalid argument"},
		{name: "zero count", start: &start, rule: RuleInput{Frequency: "daily", Termination: "after_count"}, want: "invalid argument"},
		{name: "bad weekday", start: &start, rule: RuleInput{Frequency: "weekly", Weekdays: []int{7}}, want: "weekdays"},
		{name: "bad zone", start: &start, rule: RuleInput{Frequency: "daily", TimeZone: "Mars/Olympus"}, want: "invalid time_zone"},
		{name: "date before start", start: &start, rule: RuleInput{Frequency: "weekly", Weekdays: []int{1}, Termination: "on_date", TerminationDate: "2024-01-01"}, want: "no occurrences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), CreateInput{UserID: "u1", Title: "x", StartTime: tt.start, Rule: tt.rule})
			requireValidationError(t, err, tt.want)
		})
	}
}

func TestServiceCreate_SeriesIdempotencyKey(t *testing.T) {
	start := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	svc := NewService(&fakeRepo{
		createSeriesFn: func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
			if series.ID != idempotentID("create_series", "u1", "abc") {
				t.Fatalf("series id = %v, want derived id", series.ID)
			}
			return series, events, nil
		},
	}, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:         "u1",
		Title:          "Dues",
		StartTime:      &start,
		Rule:           RuleInput{Frequency: "monthly", Termination: "after_count", TerminationCount: 3},
		IdempotencyKey: "abc",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestServiceCreate_TimeZoneKeepsWallClock(t *testing.T) {
	// 18:00 in New York across the March DST switch.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start := time.Date(2024, time.March, 8, 18, 0, 0, 0, loc).UTC()

	svc := NewService(&fakeRepo{
		createSeriesFn: func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
			for i, ev := range events {
				local := ev.StartTime.In(loc)
				if local.Hour() != 18 {
					t.Fatalf("events[%d] local hour = %d, want 18", i, local.Hour())
				}
			}
			return series, events, nil
		},
	}, nil, nil)

	_, err = svc.Create(context.Background(), CreateInput{
		UserID:    "u1",
		Title:     "Evening run",
		StartTime: &start,
		Rule:      RuleInput{Frequency: "daily", Termination: "after_count", TerminationCount: 4, TimeZone: "America/New_York"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestServicePreview(t *testing.T) {
	svc := NewService(&fakeRepo{}, recurrence.NewExpander(5), nil)
	start := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	res, err := svc.Preview(context.Background(), start, RuleInput{Frequency: "daily"})
	if err != nil {
		t.Fatalf("Preview error: %v", err)
	}
	if len(res.Occurrences) != 5 {
		t.Fatalf("len = %d, want 5 (expander cap)", len(res.Occurrences))
	}
	if !strings.Contains(res.RRule, "COUNT=5") {
		t.Fatalf("rrule = %q", res.RRule)
	}

	res, err = svc.Preview(context.Background(), start, RuleInput{})
	if err != nil {
		t.Fatalf("Preview error: %v", err)
	}
	if len(res.Occurrences) != 1 || !res.Occurrences[0].Equal(start) || res.RRule != "" {
		t.Fatalf("preview none = %+v", res)
	}

	_, err = svc.Preview(context.Background(), time.Time{}, RuleInput{Frequency: "daily"})
	requireValidationError(t, err, "start_time is required")

	_, err = svc.Preview(context.Background(), start, RuleInput{Frequency: "yearly", Interval: math.MaxInt32})
	requireValidationError(t, err, "interval must be at most")
}

func TestServiceUpdate_AllScopeUpdatesSeries(t *testing.T) {
	seriesID := uuid.New()
	eventID := uuid.New()
	start := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	var gotFields domain.EventFields

	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, Title: "Old", CategoryID: "music", StartTime: &start, Kind: domain.EventKindEvent, SeriesID: &seriesID, SeriesIndex: ptr(0)}, nil
		},
		updateSeriesEventsFn: func(ctx context.Context, userID string, sid uuid.UUID, fields domain.EventFields) (int, error) {
			if sid != seriesID {
				t.Fatalf("series id = %v, want %v", sid, seriesID)
			}
			gotFields = fields
			return 3, nil
		},
		listSeriesEventsFn: func(ctx context.Context, userID string, sid uuid.UUID) ([]domain.Event, error) {
			return []domain.Event{{ID: eventID}, {ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}, nil, nil)

	res, err := svc.Update(context.Background(), UpdateInput{
		UserID:  "u1",
		EventID: eventID,
		Scope:   ScopeAll,
		Title:   mo.Some("New"),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(res.Events) != 3 {
		t.Fatalf("len(Events) = %d, want 3", len(res.Events))
	}
	if gotFields.Title != "New" || gotFields.CategoryID != "music" {
		t.Fatalf("fields = %+v, want title patched and category kept", gotFields)
	}

	_, err = svc.Update(context.Background(), UpdateInput{
		UserID:    "u1",
		EventID:   eventID,
		Scope:     ScopeAll,
		StartTime: mo.Some(&start),
	})
	requireValidationError(t, err, "cannot be changed for a whole series")
}

func TestServiceUpdate_ThisScopeDetaches(t *testing.T) {
	seriesID := uuid.New()
	start := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	var got domain.Event

	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, Title: "Old", CategoryID: "music", StartTime: &start, Kind: domain.EventKindEvent, SeriesID: &seriesID, SeriesIndex: ptr(2)}, nil
		},
		updateEventFn: func(ctx context.Context, ev domain.Event) (domain.Event, error) {
			got = ev
			return ev, nil
		},
	}, nil, nil)

	_, err := svc.Update(context.Background(), UpdateInput{
		UserID:     "u1",
		EventID:    uuid.New(),
		CategoryID: mo.Some(""),
		StartTime:  mo.Some[*time.Time](nil),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.InSeries() || got.SeriesIndex != nil {
		t.Fatalf("event still in series: %+v", got)
	}
	if got.StartTime != nil {
		t.Fatalf("start = %v, want nil", got.StartTime)
	}
	if got.CategoryID != domain.DefaultCategoryID {
		t.Fatalf("category = %q, want default", got.CategoryID)
	}
	if got.Title != "Old" {
		t.Fatalf("title = %q, want unchanged", got.Title)
	}
}

func TestServiceUpdate_ConvertsToSeries(t *testing.T) {
	eventID := uuid.New()
	start := time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC)

	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, Title: "Anniversary", CategoryID: "social", StartTime: &start, Kind: domain.EventKindEvent}, nil
		},
		convertToSeriesFn: func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
			if events[0].ID != eventID {
				t.Fatalf("events[0].ID = %v, want existing event", events[0].ID)
			}
			if len(events) != 3 {
				t.Fatalf("len(events) = %d, want 3", len(events))
			}
			if !events[1].StartTime.Equal(time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC)) {
				t.Fatalf("events[1].StartTime = %v, want clamped to Feb 28", events[1].StartTime)
			}
			return series, events, nil
		},
	}, nil, nil)

	res, err := svc.Update(context.Background(), UpdateInput{
		UserID:  "u1",
		EventID: eventID,
		Rule:    mo.Some(RuleInput{Frequency: "yearly", Termination: "after_count", TerminationCount: 3}),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Series == nil || res.Series.Frequency != recurrence.FrequencyYearly {
		t.Fatalf("series = %+v", res.Series)
	}
}

func TestServiceUpdate_NewRuleOnSeriesOccurrenceConvertsOnce(t *testing.T) {
	oldSeries := uuid.New()
	eventID := uuid.New()
	start := time.Date(2024, time.January, 8, 19, 0, 0, 0, time.UTC)
	calls := 0

	// UpdateEvent is left unconfigured: the detach happens inside ConvertToSeries.
	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, Title: "Rehearsal", CategoryID: "music", StartTime: &start, Kind: domain.EventKindEvent, SeriesID: &oldSeries, SeriesIndex: ptr(1)}, nil
		},
		convertToSeriesFn: func(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
			calls++
			if events[0].ID != eventID {
				t.Fatalf("events[0].ID = %v, want %v", events[0].ID, eventID)
			}
			if events[0].Title != "Sectional" {
				t.Fatalf("events[0].Title = %q, want patched title", events[0].Title)
			}
			if series.ID == oldSeries {
				t.Fatalf("new series reuses the old series id")
			}
			if len(events) != 2 {
				t.Fatalf("len(events) = %d, want 2", len(events))
			}
			return series, events, nil
		},
	}, nil, nil)

	res, err := svc.Update(context.Background(), UpdateInput{
		UserID:  "u1",
		EventID: eventID,
		Title:   mo.Some("Sectional"),
		Rule:    mo.Some(RuleInput{Frequency: "daily", Termination: "after_count", TerminationCount: 2}),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("ConvertToSeries calls = %d, want 1", calls)
	}
	if res.Series == nil || len(res.Events) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestServiceUpdate_RejectsTrashed(t *testing.T) {
	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, Title: "x", Kind: domain.EventKindTrash}, nil
		},
	}, nil, nil)

	_, err := svc.Update(context.Background(), UpdateInput{UserID: "u1", EventID: uuid.New(), Title: mo.Some("y")})
	requireValidationError(t, err, "trashed")
}

func TestServiceDelete_AllScopeCollectsSeries(t *testing.T) {
	seriesID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			return domain.Event{ID: id, UserID: userID, SeriesID: &seriesID}, nil
		},
		listSeriesEventsFn: func(ctx context.Context, userID string, sid uuid.UUID) ([]domain.Event, error) {
			return []domain.Event{{ID: ids[0]}, {ID: ids[1]}, {ID: ids[2]}}, nil
		},
		deleteEventsFn: func(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error) {
			if len(eventIDs) != 3 {
				t.Fatalf("len(ids) = %d, want 3", len(eventIDs))
			}
			return map[domain.DeleteOutcome]int{domain.DeleteOutcomeTrashed: 3}, nil
		},
	}, nil, nil)

	res, err := svc.Delete(context.Background(), "u1", ids[1], ScopeAll)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if res.Outcomes[domain.DeleteOutcomeTrashed] != 3 {
		t.Fatalf("outcomes = %v", res.Outcomes)
	}
}

func TestServiceDelete_ThisScopeAndNotFound(t *testing.T) {
	seriesID := uuid.New()
	target := uuid.New()

	svc := NewService(&fakeRepo{
		getEventFn: func(ctx context.Context, userID string, id uuid.UUID) (domain.Event, error) {
			if id != target {
				return domain.Event{}, store.ErrNotFound
			}
			return domain.Event{ID: id, UserID: userID, SeriesID: &seriesID}, nil
		},
		deleteEventsFn: func(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error) {
			if len(eventIDs) != 1 || eventIDs[0] != target {
				t.Fatalf("ids = %v, want only target", eventIDs)
			}
			return map[domain.DeleteOutcome]int{domain.DeleteOutcomeUnscheduled: 1}, nil
		},
	}, nil, nil)

	if _, err := svc.Delete(context.Background(), "u1", target, ScopeThis); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := svc.Delete(context.Background(), "u1", uuid.New(), ScopeThis); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestServiceRestore_Modes(t *testing.T) {
	var gotMode domain.RestoreMode
	svc := NewService(&fakeRepo{
		restoreEventFn: func(ctx context.Context, userID string, id uuid.UUID, mode domain.RestoreMode) (domain.Event, error) {
			gotMode = mode
			return domain.Event{ID: id}, nil
		},
	}, nil, nil)

	if _, err := svc.Restore(context.Background(), "u1", uuid.New(), ""); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if gotMode != domain.RestoreModeOriginal {
		t.Fatalf("mode = %q, want original", gotMode)
	}

	_, err := svc.Restore(context.Background(), "u1", uuid.New(), "somewhere")
	requireValidationError(t, err, "restore mode")
}

func TestServiceList_WindowValidation(t *testing.T) {
	svc := NewService(&fakeRepo{
		listEventsFn: func(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error) {
			return nil, nil
		},
	}, nil, nil)

	from := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.List(context.Background(), "u1", from, from)
	requireValidationError(t, err, "window_end must be after window_start")

	if _, err := svc.List(context.Background(), "u1", from, time.Time{}); err != nil {
		t.Fatalf("open-ended List error: %v", err)
	}
}

func TestServiceExportICS(t *testing.T) {
	start := time.Date(2024, time.January, 2, 19, 0, 0, 0, time.UTC)
	svc := NewService(&fakeRepo{
		listEventsFn: func(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error) {
			return []domain.Event{{ID: uuid.New(), UserID: userID, Title: "Choir", StartTime: &start, Kind: domain.EventKindEvent}}, nil
		},
	}, nil, nil)

	var sb strings.Builder
	if err := svc.ExportICS(context.Background(), &sb, "u1", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("ExportICS error: %v", err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParseCalendar error: %v", err)
	}
	evs := cal.Events()
	if len(evs) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(evs))
	}
	if p := evs[0].GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "Choir" {
		t.Fatalf("summary = %+v, want Choir", p)
	}
}

func TestServicePurgeTrash(t *testing.T) {
	now := time.Date(2024, time.June, 1, 3, 0, 0, 0, time.UTC)
	svc := NewService(&fakeRepo{
		purgeTrashFn: func(ctx context.Context, deletedBefore time.Time) (int, error) {
			if !deletedBefore.Equal(now.Add(-48 * time.Hour)) {
				t.Fatalf("cutoff = %v", deletedBefore)
			}
			return 4, nil
		},
	}, nil, metrics.New())
	svc.now = func() time.Time { return now }

	n, err := svc.PurgeTrash(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("PurgeTrash error: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}

	_, err = svc.PurgeTrash(context.Background(), -time.Hour)
	requireValidationError(t, err, "retention")
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeThis {
		t.Fatalf("ParseScope(\"\") = %q, %v", s, err)
	}
	if s, err := ParseScope("ALL"); err != nil || s != ScopeAll {
		t.Fatalf("ParseScope(ALL) = %q, %v", s, err)
	}
	if _, err := ParseScope("some"); err == nil {
		t.Fatalf("expected error")
	}
}
