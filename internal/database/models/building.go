package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/wheresmywater/backend/internal/database/dbretry"
	"github.com/wheresmywater/backend/internal/database/types"
	"go.uber.org/zap"
)

// BuildingModel handles database operations for buildings.
type BuildingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBuilding creates a new building model.
func NewBuilding(db *bun.DB, logger *zap.Logger) *BuildingModel {
	return &BuildingModel{
		db:     db,
		logger: logger.Named("db_building"),
	}
}

// GetBuildings retrieves every building ordered by name.
func (r *BuildingModel) GetBuildings(ctx context.Context) ([]*types.Building, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Building, error) {
		buildings := make([]*types.Building, 0)

		err := r.db.NewSelect().
			Model(&buildings).
			Order("name").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get buildings: %w", err)
		}

		return buildings, nil
	})
}

// GetBuildingByID retrieves a building by its ID.
func (r *BuildingModel) GetBuildingByID(ctx context.Context, id uuid.UUID) (*types.Building, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Building, error) {
		building := new(types.Building)

		err := r.db.NewSelect().
			Model(building).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrBuildingNotFound
			}
			return nil, fmt.Errorf("failed to get building: %w", err)
		}

		return building, nil
	})
}

// CreateBuilding inserts a new building.
func (r *BuildingModel) CreateBuilding(ctx context.Context, building *types.Building) error {
	if building.ID == uuid.Nil {
		building.ID = uuid.New()
	}
	if building.FountainIDs == nil {
		building.FountainIDs = []uuid.UUID{}
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(building).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert building: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Created building",
		zap.String("buildingID", building.ID.String()),
		zap.String("name", building.Name))

	return nil
}

// UpdateBuilding applies a partial update.
// Returns types.ErrBuildingNotFound if no row matched.
func (r *BuildingModel) UpdateBuilding(ctx context.Context, id uuid.UUID, update types.BuildingUpdate) error {
	if update.IsEmpty() {
		return types.ErrEmptyUpdate
	}

	var pinCoords string
	if update.PinCoords != nil {
		raw, err := sonic.Marshal(update.PinCoords)
		if err != nil {
			return fmt.Errorf("failed to encode pin coordinates: %w", err)
		}
		pinCoords = string(raw)
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewUpdate().
			Model((*types.Building)(nil)).
			Where("id = ?", id)

		if update.Name != nil {
			query = query.Set("name = ?", *update.Name)
		}
		if pinCoords != "" {
			query = query.Set("pin_coords = ?::jsonb", pinCoords)
		}
		if update.FountainIDs != nil {
			query = query.Set("fountain_ids = ?", pgdialect.Array(*update.FountainIDs))
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update building: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return types.ErrBuildingNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Updated building", zap.String("buildingID", id.String()))
	return nil
}

// DeleteBuilding removes a building. Its fountains stay and lose their
// building reference. Returns types.ErrBuildingNotFound if no row matched.
func (r *BuildingModel) DeleteBuilding(ctx context.Context, id uuid.UUID) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewDelete().
			Model((*types.Building)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete building: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return types.ErrBuildingNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Deleted building", zap.String("buildingID", id.String()))
	return nil
}

// LinkFountain attaches a fountain to a building. The fountain is removed
// from any other building so it is listed under exactly one.
func (r *BuildingModel) LinkFountain(ctx context.Context, buildingID, fountainID uuid.UUID) error {
	return dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*types.Building)(nil)).
			Set("fountain_ids = array_append(array_remove(fountain_ids, ?::uuid), ?::uuid)", fountainID, fountainID).
			Where("id = ?", buildingID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to link fountain to building: %w", err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return types.ErrBuildingNotFound
		}

		if _, err := tx.NewUpdate().
			Model((*types.Building)(nil)).
			Set("fountain_ids = array_remove(fountain_ids, ?::uuid)", fountainID).
			Where("?::uuid = ANY(fountain_ids)", fountainID).
			Where("id <> ?", buildingID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to unlink fountain from other buildings: %w", err)
		}

		result, err = tx.NewUpdate().
			Model((*types.Fountain)(nil)).
			Set("building_id = ?", buildingID).
			Where("id = ?", fountainID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set fountain building: %w", err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return types.ErrFountainNotFound
		}

		return nil
	})
}

// UnlinkFountain removes a fountain from every building listing it.
func (r *BuildingModel) UnlinkFountain(ctx context.Context, fountainID uuid.UUID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().
			Model((*types.Building)(nil)).
			Set("fountain_ids = array_remove(fountain_ids, ?::uuid)", fountainID).
			Where("?::uuid = ANY(fountain_ids)", fountainID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to unlink fountain: %w", err)
		}
		return nil
	})
}
