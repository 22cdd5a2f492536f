package database

import (
	"github.com/uptrace/bun"
	"github.com/wheresmywater/backend/internal/database/models"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	vote     *models.VoteModel
	fountain *models.FountainModel
	building *models.BuildingModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		vote:     models.NewVote(db, logger),
		fountain: models.NewFountain(db, logger),
		building: models.NewBuilding(db, logger),
	}
}

// Vote returns the vote model repository.
func (r *Repository) Vote() *models.VoteModel {
	return r.vote
}

// Fountain returns the fountain model repository.
func (r *Repository) Fountain() *models.FountainModel {
	return r.fountain
}

// Building returns the building model repository.
func (r *Repository) Building() *models.BuildingModel {
	return r.building
}
