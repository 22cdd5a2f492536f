package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wheresmywater/backend/internal/database/types"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			tables := []struct {
				model any
				name  string
			}{
				{(*types.Building)(nil), "buildings"},
				{(*types.Fountain)(nil), "fountains"},
				{(*types.Vote)(nil), "votes"},
			}

			for _, table := range tables {
				if _, err := tx.NewCreateTable().
					Model(table.model).
					IfNotExists().
					Exec(ctx); err != nil {
					return fmt.Errorf("failed to create %s table: %w", table.name, err)
				}
			}

			_, err := tx.NewRaw(`
				ALTER TABLE fountains
				ADD CONSTRAINT fk_fountains_building
				FOREIGN KEY (building_id) REFERENCES buildings (id) ON DELETE SET NULL;

				ALTER TABLE votes
				ADD CONSTRAINT fk_votes_fountain
				FOREIGN KEY (fountain_id) REFERENCES fountains (id) ON DELETE CASCADE;

				ALTER TABLE votes
				ADD CONSTRAINT chk_votes_rating
				CHECK (rating IN ('red', 'yellow', 'green'));

				ALTER TABLE fountains
				ADD CONSTRAINT chk_fountains_filter
				CHECK (filter IN ('unset', 'red', 'yellow', 'green'));
			`).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to add constraints: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`DROP TABLE IF EXISTS votes, fountains, buildings CASCADE`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
