package setup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"
	"github.com/wheresmywater/backend/internal/setup"
)

func TestCheckPendingMigrations(t *testing.T) {
	t.Parallel()

	applied := migrate.Migration{Name: "20250301000000", ID: 1, GroupID: 1}
	pending := migrate.Migration{Name: "20250301000001"}

	tests := []struct {
		name       string
		migrations migrate.MigrationSlice
		wantErr    string
	}{
		{
			name:       "no migrations",
			migrations: migrate.MigrationSlice{},
		},
		{
			name:       "all applied",
			migrations: migrate.MigrationSlice{applied},
		},
		{
			name:       "pending migration",
			migrations: migrate.MigrationSlice{applied, pending},
			wantErr:    "(1 pending, next 20250301000001)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := setup.CheckPendingMigrations(tt.migrations)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, setup.ErrPendingMigrations)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
