package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DefaultCategoryID = "uncategorized"

type EventKind string

const (
	EventKindEvent EventKind = "event"
	EventKindTrash EventKind = "trash"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID        string     `bun:"user_id,notnull"`
	Title         string     `bun:"title,notnull"`
	Description   string     `bun:"description,notnull"`
	Observation   string     `bun:"observation,notnull"`
	CategoryID    string     `bun:"category_id,notnull"`
	TagIDs        []string   `bun:"tag_ids"`
	IsRequirement bool       `bun:"is_requirement,notnull"`
	ObjectiveID   string     `bun:"objective_id,notnull"`
	StartTime     *time.Time `bun:"start_time"`
	Kind          EventKind  `bun:"kind,notnull"`
	DeletedAt     *time.Time `bun:"deleted_at"`
	SeriesID      *uuid.UUID `bun:"series_id,type:uuid"`
	SeriesIndex   *int       `bun:"series_index"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull"`
}

func (e *Event) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.Kind == "" {
			e.Kind = EventKindEvent
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

func (e Event) InSeries() bool {
	return e.SeriesID != nil && *e.SeriesID != uuid.Nil
}

func (e Event) IsTrashed() bool {
	return e.Kind == EventKindTrash
}

func (e Event) IsUnallocated() bool {
	return e.StartTime == nil
}

// EventFields is the subset of an event that can be edited in place, both
// for a single event and across a whole series.
type EventFields struct {
	Title         string
	Description   string
	Observation   string
	CategoryID    string
	TagIDs        []string
	IsRequirement bool
	ObjectiveID   string
}

func (e Event) Fields() EventFields {
	return EventFields{
		Title:         e.Title,
		Description:   e.Description,
		Observation:   e.Observation,
		CategoryID:    e.CategoryID,
		TagIDs:        e.TagIDs,
		IsRequirement: e.IsRequirement,
		ObjectiveID:   e.ObjectiveID,
	}
}

func (e *Event) SetFields(f EventFields) {
	e.Title = f.Title
	e.Description = f.Description
	e.Observation = f.Observation
	e.CategoryID = f.CategoryID
	e.TagIDs = f.TagIDs
	e.IsRequirement = f.IsRequirement
	e.ObjectiveID = f.ObjectiveID
}

// DeleteOutcome describes what deleting an event did to it.
type DeleteOutcome string

const (
	DeleteOutcomeUnscheduled DeleteOutcome = "unscheduled"
	DeleteOutcomeTrashed     DeleteOutcome = "trashed"
	DeleteOutcomePurged      DeleteOutcome = "purged"
)

// DeleteOutcomeFor applies the trash policy: requirements are only
// unscheduled, trashed events are removed for good, anything else goes to
// the trash.
func DeleteOutcomeFor(e Event) DeleteOutcome {
	switch {
	case e.IsTrashed():
		return DeleteOutcomePurged
	case e.IsRequirement:
		return DeleteOutcomeUnscheduled
	default:
		return DeleteOutcomeTrashed
	}
}

type RestoreMode string

const (
	RestoreModeOriginal    RestoreMode = "original"
	RestoreModeUnallocated RestoreMode = "unallocated"
)
