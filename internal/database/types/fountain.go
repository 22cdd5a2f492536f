package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/database/types/enum"
)

var (
	ErrFountainNotFound  = errors.New("fountain not found")
	ErrInvalidFountainID = errors.New("invalid fountain ID")
	ErrEmptyUpdate       = errors.New("no fields to update")
)

// Coordinates is a point on the campus map.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FountainLocation describes where a fountain sits inside a building.
type FountainLocation struct {
	Building    string       `json:"building"`
	Description string       `json:"description"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Fountain is a water fountain whose filter status is crowdsourced.
type Fountain struct {
	ID         uuid.UUID        `bun:",pk,type:uuid"                          json:"_id"`
	BuildingID uuid.NullUUID    `bun:"type:uuid"                              json:"buildingId"`
	Location   FountainLocation `bun:"type:jsonb,notnull"                     json:"location"`
	Filter     enum.Rating      `bun:",notnull,type:varchar(16),default:'unset'" json:"filter"`
	LastUpdate time.Time        `bun:",notnull"                               json:"lastUpdate"`
}

// FountainUpdate lists the fountain fields to change. Nil fields are left alone.
type FountainUpdate struct {
	Building    *string
	Description *string
	// SetCoordinates replaces the coordinates with Coordinates, which may be nil.
	SetCoordinates bool
	Coordinates    *Coordinates
	Filter         *enum.Rating
	LastUpdate     *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (u FountainUpdate) IsEmpty() bool {
	return u.Building == nil && u.Description == nil && !u.SetCoordinates &&
		u.Filter == nil && u.LastUpdate == nil
}
