package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/wheresmywater/backend/internal/database/dbretry"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	"go.uber.org/zap"
)

// FountainModel handles database operations for fountains.
type FountainModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFountain creates a new fountain model.
func NewFountain(db *bun.DB, logger *zap.Logger) *FountainModel {
	return &FountainModel{
		db:     db,
		logger: logger.Named("db_fountain"),
	}
}

// GetFountainByID retrieves a fountain by its ID.
func (r *FountainModel) GetFountainByID(ctx context.Context, id uuid.UUID) (*types.Fountain, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Fountain, error) {
		fountain := new(types.Fountain)

		err := r.db.NewSelect().
			Model(fountain).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrFountainNotFound
			}
			return nil, fmt.Errorf("failed to get fountain: %w", err)
		}

		return fountain, nil
	})
}

// GetFountains retrieves every fountain.
func (r *FountainModel) GetFountains(ctx context.Context) ([]*types.Fountain, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Fountain, error) {
		fountains := make([]*types.Fountain, 0)

		err := r.db.NewSelect().
			Model(&fountains).
			Order("id").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get fountains: %w", err)
		}

		return fountains, nil
	})
}

// CompareAndSwapFilter sets the filter of a fountain only if it still holds the expected value.
// Returns false when another writer changed the filter first or the fountain no longer exists.
func (r *FountainModel) CompareAndSwapFilter(
	ctx context.Context, id uuid.UUID, expected, filter enum.Rating, at time.Time,
) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := r.db.NewUpdate().
			Model((*types.Fountain)(nil)).
			Set("filter = ?", filter).
			Set("last_update = ?", at).
			Where("id = ?", id).
			Where("filter = ?", expected).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to update fountain filter: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected == 1, nil
	})
}

// CreateFountain inserts a fountain. Linking it to a building is done
// separately through BuildingModel.LinkFountain.
func (r *FountainModel) CreateFountain(ctx context.Context, fountain *types.Fountain) error {
	if fountain.ID == uuid.Nil {
		fountain.ID = uuid.New()
	}
	if fountain.LastUpdate.IsZero() {
		fountain.LastUpdate = time.Now()
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := r.db.NewInsert().Model(fountain).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert fountain: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Created fountain",
		zap.String("fountainID", fountain.ID.String()),
		zap.String("building", fountain.Location.Building))

	return nil
}

// UpdateFountain applies a partial update. Location fields are merged into
// the stored location. Returns types.ErrFountainNotFound if no row matched.
func (r *FountainModel) UpdateFountain(ctx context.Context, id uuid.UUID, update types.FountainUpdate) error {
	if update.IsEmpty() {
		return types.ErrEmptyUpdate
	}

	patch := make(map[string]any, 3)
	if update.Building != nil {
		patch["building"] = *update.Building
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.SetCoordinates {
		patch["coordinates"] = update.Coordinates
	}

	var locationPatch string
	if len(patch) > 0 {
		raw, err := sonic.Marshal(patch)
		if err != nil {
			return fmt.Errorf("failed to encode location: %w", err)
		}
		locationPatch = string(raw)
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewUpdate().
			Model((*types.Fountain)(nil)).
			Where("id = ?", id)

		if locationPatch != "" {
			query = query.Set("location = location || ?::jsonb", locationPatch)
		}
		if update.Filter != nil {
			query = query.Set("filter = ?", *update.Filter)
		}
		if update.LastUpdate != nil {
			query = query.Set("last_update = ?", *update.LastUpdate)
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update fountain: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return types.ErrFountainNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Updated fountain", zap.String("fountainID", id.String()))
	return nil
}

// DeleteFountain removes a fountain. Its votes are removed by the
// foreign key cascade. Returns types.ErrFountainNotFound if no row matched.
func (r *FountainModel) DeleteFountain(ctx context.Context, id uuid.UUID) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewDelete().
			Model((*types.Fountain)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete fountain: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return types.ErrFountainNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Deleted fountain", zap.String("fountainID", id.String()))
	return nil
}
