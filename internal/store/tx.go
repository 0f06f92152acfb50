package store

import (
	"context"

	"github.com/google/uuid"

	"clubplanner/backend/internal/domain"
)

// EventTx is the set of operations available inside a per-user transaction.
type EventTx interface {
	InsertEvents(ctx context.Context, events []domain.Event) ([]domain.Event, error)
	InsertSeries(ctx context.Context, series domain.Series) (domain.Series, error)
	GetEvent(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error)
	GetSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, error)
	ListEventsByID(ctx context.Context, userID string, eventIDs []uuid.UUID) ([]domain.Event, error)
	ListSeriesEvents(ctx context.Context, userID string, seriesID uuid.UUID) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, ev domain.Event) error
	DeleteEvent(ctx context.Context, userID string, eventID uuid.UUID) error
	// DeleteOrphanSeries drops series rows of the user that no event points at.
	DeleteOrphanSeries(ctx context.Context, userID string) error
}
