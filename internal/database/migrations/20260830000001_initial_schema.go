package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Warning)(nil),
			(*types.Mute)(nil),
			(*types.Note)(nil),
			(*types.Ban)(nil),
			(*types.ModeratorAction)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		// Every moderation read is keyed by the subject, and expiry purges
		// filter on expires_at; the stats query scans a rolling time window.
		indexes := []struct {
			model   any
			name    string
			columns []string
		}{
			{(*types.Warning)(nil), "warnings_user_id_idx", []string{"user_id"}},
			{(*types.Warning)(nil), "warnings_expires_at_idx", []string{"expires_at"}},
			{(*types.Mute)(nil), "mutes_user_id_idx", []string{"user_id"}},
			{(*types.Mute)(nil), "mutes_expires_at_idx", []string{"expires_at"}},
			{(*types.Note)(nil), "notes_user_id_idx", []string{"user_id"}},
			{(*types.Ban)(nil), "bans_user_id_idx", []string{"user_id"}},
			{(*types.ModeratorAction)(nil), "moderator_actions_created_at_idx", []string{"created_at"}},
		}

		for _, idx := range indexes {
			query := db.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				IfNotExists()

			for _, column := range idx.columns {
				query = query.Column(column)
			}

			if _, err := query.Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.ModeratorAction)(nil),
			(*types.Ban)(nil),
			(*types.Note)(nil),
			(*types.Mute)(nil),
			(*types.Warning)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
