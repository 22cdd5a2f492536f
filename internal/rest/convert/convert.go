package convert

import (
	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	restTypes "github.com/wheresmywater/backend/internal/rest/types"
)

// FilterColor converts a stored rating to the color string shown to clients.
func FilterColor(rating enum.Rating) string {
	if rating == enum.RatingUnset {
		return restTypes.FilterColorUnset
	}
	return rating.String()
}

// ParseFilterColor converts a client filter color to a stored rating.
// Accepts "null" and the exact lowercase vote colors.
func ParseFilterColor(color string) (enum.Rating, bool) {
	if color == restTypes.FilterColorUnset {
		return enum.RatingUnset, true
	}

	rating, err := enum.RatingString(color)
	if err != nil || !rating.IsVoteRating() || rating.String() != color {
		return enum.RatingUnset, false
	}
	return rating, true
}

// Coordinates converts REST coordinates to their stored form.
func Coordinates(c *restTypes.Coordinates) *types.Coordinates {
	if c == nil {
		return nil
	}
	return &types.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// IDs parses a list of ids, dropping the malformed ones.
func IDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Fountain converts a database fountain to its REST form.
func Fountain(fountain *types.Fountain) *restTypes.Fountain {
	if fountain == nil {
		return nil
	}

	result := &restTypes.Fountain{
		ID: fountain.ID.String(),
		Location: restTypes.FountainLocation{
			Building:    fountain.Location.Building,
			Description: fountain.Location.Description,
		},
		Filter:     FilterColor(fountain.Filter),
		LastUpdate: fountain.LastUpdate,
	}

	if fountain.BuildingID.Valid {
		id := fountain.BuildingID.UUID.String()
		result.BuildingID = &id
	}

	if c := fountain.Location.Coordinates; c != nil {
		result.Location.Coordinates = &restTypes.Coordinates{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		}
	}

	return result
}

// Fountains converts a list of fountains. The result is never nil.
func Fountains(fountains []*types.Fountain) []*restTypes.Fountain {
	result := make([]*restTypes.Fountain, 0, len(fountains))
	for _, f := range fountains {
		result = append(result, Fountain(f))
	}
	return result
}

// Building converts a database building to its REST form.
func Building(building *types.Building) *restTypes.Building {
	if building == nil {
		return nil
	}

	fountainIDs := make([]string, 0, len(building.FountainIDs))
	for _, id := range building.FountainIDs {
		fountainIDs = append(fountainIDs, id.String())
	}

	return &restTypes.Building{
		ID:   building.ID.String(),
		Name: building.Name,
		PinCoords: restTypes.Coordinates{
			Latitude:  building.PinCoords.Latitude,
			Longitude: building.PinCoords.Longitude,
		},
		FountainIDs: fountainIDs,
	}
}

// Buildings converts a list of buildings. The result is never nil.
func Buildings(buildings []*types.Building) []*restTypes.Building {
	result := make([]*restTypes.Building, 0, len(buildings))
	for _, b := range buildings {
		result = append(result, Building(b))
	}
	return result
}
