package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Latest vote lookup for revote merging
			CREATE INDEX IF NOT EXISTS idx_votes_user_fountain_time
			ON votes (user_id, fountain_id, voted_at DESC);

			-- Live votes per fountain for consensus
			CREATE INDEX IF NOT EXISTS idx_votes_fountain_time
			ON votes (fountain_id, voted_at DESC);

			-- Retention purges
			CREATE INDEX IF NOT EXISTS idx_votes_time
			ON votes (voted_at);

			CREATE INDEX IF NOT EXISTS idx_fountains_building
			ON fountains (building_id)
			WHERE building_id IS NOT NULL;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_votes_user_fountain_time;
			DROP INDEX IF EXISTS idx_votes_fountain_time;
			DROP INDEX IF EXISTS idx_votes_time;
			DROP INDEX IF EXISTS idx_fountains_building;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
