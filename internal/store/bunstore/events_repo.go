package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"clubplanner/backend/internal/domain"
	"clubplanner/backend/internal/store"
)

// EventRepo implements store.EventRepository on top of bun. It works with
// both the PostgreSQL and the SQLite dialect.
type EventRepo struct {
	db *bun.DB
}

func NewEventRepo(db *bun.DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventTx struct {
	tx bun.Tx
}

var _ store.EventRepository = (*EventRepo)(nil)

func (r *EventRepo) CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	var out domain.Event
	err := r.InUserTransaction(ctx, ev.UserID, func(ctx context.Context, tx store.EventTx) error {
		if ev.ID != uuid.Nil {
			existing, err := tx.GetEvent(ctx, ev.UserID, ev.ID)
			switch {
			case err == nil:
				if !sameEvent(existing, ev) {
					return store.ErrIdempotencyConflict
				}
				out = existing
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		rows, err := tx.InsertEvents(ctx, []domain.Event{ev})
		if err != nil {
			return err
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return out, nil
}

func (r *EventRepo) CreateSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
	var (
		outSeries domain.Series
		outEvents []domain.Event
	)
	err := r.InUserTransaction(ctx, series.UserID, func(ctx context.Context, tx store.EventTx) error {
		if series.ID != uuid.Nil {
			existing, err := tx.GetSeries(ctx, series.UserID, series.ID)
			switch {
			case err == nil:
				if !sameSeries(existing, series) {
					return store.ErrIdempotencyConflict
				}
				evs, err := tx.ListSeriesEvents(ctx, series.UserID, series.ID)
				if err != nil {
					return err
				}
				outSeries, outEvents = existing, evs
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		s, err := tx.InsertSeries(ctx, series)
		if err != nil {
			return err
		}
		linkToSeries(s.ID, events, 0)

		evs, err := tx.InsertEvents(ctx, events)
		if err != nil {
			return err
		}
		outSeries, outEvents = s, evs
		return nil
	})
	if err != nil {
		return domain.Series{}, nil, err
	}
	return outSeries, outEvents, nil
}

func (r *EventRepo) ConvertToSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error) {
	if len(events) == 0 {
		return domain.Series{}, nil, store.Conflictf("series has no events")
	}

	var (
		outSeries domain.Series
		outEvents []domain.Event
	)
	err := r.InUserTransaction(ctx, series.UserID, func(ctx context.Context, tx store.EventTx) error {
		first, err := tx.GetEvent(ctx, series.UserID, events[0].ID)
		if err != nil {
			return err
		}
		if first.IsTrashed() {
			return store.Conflictf("event %s is in the trash", first.ID)
		}
		detached := first.InSeries()

		s, err := tx.InsertSeries(ctx, series)
		if err != nil {
			return err
		}
		linkToSeries(s.ID, events, 0)

		first.SetFields(events[0].Fields())
		first.StartTime = utcPtr(events[0].StartTime)
		first.SeriesID = events[0].SeriesID
		first.SeriesIndex = events[0].SeriesIndex
		if err := tx.UpdateEvent(ctx, first); err != nil {
			return err
		}

		rest, err := tx.InsertEvents(ctx, events[1:])
		if err != nil {
			return err
		}
		if detached {
			// The previous series may have lost its last event.
			if err := tx.DeleteOrphanSeries(ctx, series.UserID); err != nil {
				return err
			}
		}
		outSeries = s
		outEvents = append([]domain.Event{first}, rest...)
		return nil
	})
	if err != nil {
		return domain.Series{}, nil, err
	}
	return outSeries, outEvents, nil
}

func (r *EventRepo) GetEvent(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error) {
	return getEvent(ctx, r.db, userID, eventID)
}

func (r *EventRepo) GetSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error) {
	return getSeries(ctx, r.db, userID, seriesID)
}

// ListEvents returns the scheduled, non-trashed events whose start falls in
// [windowStart, windowEnd). A zero bound leaves that side open.
func (r *EventRepo) ListEvents(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error) {
	var rows []domain.Event
	q := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("kind = ?", domain.EventKindEvent).
		Where("start_time IS NOT NULL")
	if !windowStart.IsZero() {
		q = q.Where("start_time >= ?", windowStart.UTC())
	}
	if !windowEnd.IsZero() {
		q = q.Where("start_time < ?", windowEnd.UTC())
	}
	err := q.OrderExpr("start_time ASC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepo) ListUnallocated(ctx context.Context, userID string) ([]domain.Event, error) {
	var rows []domain.Event
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("kind = ?", domain.EventKindEvent).
		Where("start_time IS NULL").
		OrderExpr("created_at ASC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepo) ListTrash(ctx context.Context, userID string) ([]domain.Event, error) {
	var rows []domain.Event
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("kind = ?", domain.EventKindTrash).
		OrderExpr("deleted_at DESC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepo) ListSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error) {
	return listSeriesEvents(ctx, r.db, userID, seriesID)
}

func (r *EventRepo) UpdateEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	var out domain.Event
	err := r.InUserTransaction(ctx, ev.UserID, func(ctx context.Context, tx store.EventTx) error {
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		updated, err := tx.GetEvent(ctx, ev.UserID, ev.ID)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return out, nil
}

func (r *EventRepo) UpdateSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID, fields domain.EventFields) (int, error) {
	var n int
	err := r.InUserTransaction(ctx, userID, func(ctx context.Context, tx store.EventTx) error {
		rows, err := tx.ListSeriesEvents(ctx, userID, seriesID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return store.ErrNotFound
		}
		for _, ev := range rows {
			ev.SetFields(fields)
			if err := tx.UpdateEvent(ctx, ev); err != nil {
				return err
			}
		}
		n = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteEvents applies domain.DeleteOutcomeFor to every listed event. IDs that
// do not belong to the user are ignored; if none match, ErrNotFound.
func (r *EventRepo) DeleteEvents(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error) {
	out := make(map[domain.DeleteOutcome]int, 3)
	err := r.InUserTransaction(ctx, userID, func(ctx context.Context, tx store.EventTx) error {
		rows, err := tx.ListEventsByID(ctx, userID, eventIDs)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return store.ErrNotFound
		}

		now := time.Now().UTC()
		purged := false
		for _, ev := range rows {
			outcome := domain.DeleteOutcomeFor(ev)
			switch outcome {
			case domain.DeleteOutcomeUnscheduled:
				ev.StartTime = nil
				err = tx.UpdateEvent(ctx, ev)
			case domain.DeleteOutcomeTrashed:
				ev.Kind = domain.EventKindTrash
				ev.DeletedAt = &now
				err = tx.UpdateEvent(ctx, ev)
			case domain.DeleteOutcomePurged:
				purged = true
				err = tx.DeleteEvent(ctx, userID, ev.ID)
			}
			if err != nil {
				return err
			}
			out[outcome]++
		}

		if purged {
			return tx.DeleteOrphanSeries(ctx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EventRepo) RestoreEvent(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error) {
	var out domain.Event
	err := r.InUserTransaction(ctx, userID, func(ctx context.Context, tx store.EventTx) error {
		ev, err := tx.GetEvent(ctx, userID, eventID)
		if err != nil {
			return err
		}
		if !ev.IsTrashed() {
			return store.Conflictf("event %s is not in the trash", ev.ID)
		}

		ev.Kind = domain.EventKindEvent
		ev.DeletedAt = nil
		if mode == domain.RestoreModeUnallocated {
			ev.StartTime = nil
			ev.SeriesID = nil
			ev.SeriesIndex = nil
		}
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if mode == domain.RestoreModeUnallocated {
			if err := tx.DeleteOrphanSeries(ctx, userID); err != nil {
				return err
			}
		}
		out = ev
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return out, nil
}

// PurgeTrash permanently removes trashed events of every user deleted before
// the cutoff and returns how many were removed.
func (r *EventRepo) PurgeTrash(ctx context.Context, deletedBefore time.Time) (int, error) {
	var n int
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*domain.Event)(nil)).
			Where("kind = ?", domain.EventKindTrash).
			Where("deleted_at < ?", deletedBefore.UTC()).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		n = int(affected)
		if n == 0 {
			return nil
		}
		_, err = tx.NewDelete().
			Model((*domain.Series)(nil)).
			Where("id NOT IN (SELECT series_id FROM events WHERE series_id IS NOT NULL)").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *EventRepo) InUserTransaction(ctx context.Context, userID string, fn func(ctx context.Context, tx store.EventTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockUserCalendar(ctx, tx, userID); err != nil {
			return err
		}
		return fn(ctx, eventTx{tx: tx})
	})
}

// lockUserCalendar serializes writers per user on PostgreSQL. SQLite takes a
// database-wide write lock on its own.
func lockUserCalendar(ctx context.Context, tx bun.Tx, userID string) error {
	if tx.Dialect().Name() != dialect.PG {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", userID).Exec(ctx)
	return err
}

func (t eventTx) InsertEvents(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	rows := make([]domain.Event, len(events))
	for i, ev := range events {
		ev.StartTime = utcPtr(ev.StartTime)
		ev.DeletedAt = utcPtr(ev.DeletedAt)
		rows[i] = ev
	}

	if _, err := t.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return nil, mapWriteError(err)
	}
	return rows, nil
}

func (t eventTx) InsertSeries(ctx context.Context, series domain.Series) (domain.Series, error) {
	m := series
	m.DTStart = series.DTStart.UTC()
	m.TerminationDate = utcPtr(series.TerminationDate)

	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Series{}, mapWriteError(err)
	}
	return m, nil
}

func (t eventTx) GetEvent(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error) {
	return getEvent(ctx, t.tx, userID, eventID)
}

func (t eventTx) GetSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error) {
	return getSeries(ctx, t.tx, userID, seriesID)
}

func (t eventTx) ListEventsByID(ctx context.Context, userID string, eventIDs []uuid.UUID) ([]domain.Event, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	var rows []domain.Event
	err := t.tx.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(eventIDs)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t eventTx) ListSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error) {
	return listSeriesEvents(ctx, t.tx, userID, seriesID)
}

func (t eventTx) UpdateEvent(ctx context.Context, ev domain.Event) error {
	m := ev
	m.StartTime = utcPtr(ev.StartTime)
	m.DeletedAt = utcPtr(ev.DeletedAt)

	res, err := t.tx.NewUpdate().
		Model(&m).
		ExcludeColumn("created_at").
		WherePK().
		Where("user_id = ?", ev.UserID).
		Exec(ctx)
	if err != nil {
		return mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t eventTx) DeleteEvent(ctx context.Context, userID string, eventID uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.Event)(nil)).
		Where("user_id = ?", userID).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t eventTx) DeleteOrphanSeries(ctx context.Context, userID string) error {
	_, err := t.tx.NewDelete().
		Model((*domain.Series)(nil)).
		Where("user_id = ?", userID).
		Where("id NOT IN (SELECT series_id FROM events WHERE series_id IS NOT NULL)").
		Exec(ctx)
	return err
}

func getEvent(ctx context.Context, db bun.IDB, userID string, eventID uuid.UUID) (domain.Event, error) {
	var ev domain.Event
	err := db.NewSelect().
		Model(&ev).
		Where("user_id = ?", userID).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, store.ErrNotFound
		}
		return domain.Event{}, err
	}
	return ev, nil
}

func getSeries(ctx context.Context, db bun.IDB, userID string, seriesID uuid.UUID) (domain.Series, error) {
	var s domain.Series
	err := db.NewSelect().
		Model(&s).
		Where("user_id = ?", userID).
		Where("id = ?", seriesID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Series{}, store.ErrNotFound
		}
		return domain.Series{}, err
	}
	return s, nil
}

func listSeriesEvents(ctx context.Context, db bun.IDB, userID string, seriesID uuid.UUID) ([]domain.Event, error) {
	var rows []domain.Event
	err := db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Where("series_id = ?", seriesID).
		OrderExpr("series_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func linkToSeries(seriesID uuid.UUID, events []domain.Event, offset int) {
	for i := range events {
		id := seriesID
		idx := offset + i
		events[i].SeriesID = &id
		events[i].SeriesIndex = &idx
	}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrNotFound
		}
	}
	return err
}

func sameEvent(a, b domain.Event) bool {
	if a.UserID != b.UserID || a.Title != b.Title || a.Description != b.Description {
		return false
	}
	switch {
	case a.StartTime == nil && b.StartTime == nil:
		return true
	case a.StartTime == nil || b.StartTime == nil:
		return false
	default:
		return a.StartTime.Equal(*b.StartTime)
	}
}

func sameSeries(a, b domain.Series) bool {
	return a.UserID == b.UserID &&
		a.DTStart.Equal(b.DTStart) &&
		a.RRule == b.RRule &&
		a.Occurrences == b.Occurrences
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
