package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"clubplanner/backend/internal/domain"
)

// CreateSchema creates the tables and indexes from the bun models. PostgreSQL
// deployments use the goose migrations instead; this is for SQLite.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{
		(*domain.Series)(nil),
		(*domain.Event)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		columns []string
		unique  bool
	}{
		{name: "events_user_start_idx", model: (*domain.Event)(nil), columns: []string{"user_id", "kind", "start_time"}},
		{name: "events_series_index_key", model: (*domain.Event)(nil), columns: []string{"series_id", "series_index"}, unique: true},
		{name: "events_trash_idx", model: (*domain.Event)(nil), columns: []string{"kind", "deleted_at"}},
		{name: "event_series_user_idx", model: (*domain.Series)(nil), columns: []string{"user_id"}},
	}
	for _, idx := range indexes {
		q := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
