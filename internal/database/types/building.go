package types

import (
	"errors"

	"github.com/google/uuid"
)

var ErrBuildingNotFound = errors.New("building not found")

// Building is a campus building pinned on the map.
type Building struct {
	ID          uuid.UUID   `bun:",pk,type:uuid"           json:"_id"`
	Name        string      `bun:",notnull"                json:"name"`
	PinCoords   Coordinates `bun:"type:jsonb,notnull"      json:"pinCoords"`
	FountainIDs []uuid.UUID `bun:"type:uuid[],array"       json:"fountainIds"`
}

// BuildingUpdate lists the building fields to change. Nil fields are left alone.
type BuildingUpdate struct {
	Name        *string
	PinCoords   *Coordinates
	FountainIDs *[]uuid.UUID
}

// IsEmpty reports whether the update changes nothing.
func (u BuildingUpdate) IsEmpty() bool {
	return u.Name == nil && u.PinCoords == nil && u.FountainIDs == nil
}
