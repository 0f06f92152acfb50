package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clubplanner/backend/internal/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	// CreateSeries stores the series row and all of its events atomically.
	CreateSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error)
	// ConvertToSeries turns an existing event into the first occurrence of a
	// new series; events[0] must carry that event's ID. An event that already
	// belongs to a series leaves it in the same transaction. Trashed events
	// fail with ErrConflict.
	ConvertToSeries(ctx context.Context, series domain.Series, events []domain.Event) (domain.Series, []domain.Event, error)

	GetEvent(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error)
	GetSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error)
	ListEvents(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error)
	ListUnallocated(ctx context.Context, userID string) ([]domain.Event, error)
	ListTrash(ctx context.Context, userID string) ([]domain.Event, error)
	ListSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error)

	UpdateEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	UpdateSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID, fields domain.EventFields) (int, error)
	DeleteEvents(ctx context.Context, userID string, eventIDs []uuid.UUID) (map[domain.DeleteOutcome]int, error)
	RestoreEvent(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error)
	PurgeTrash(ctx context.Context, deletedBefore time.Time) (int, error)
}
