package types

import (
	"time"

	"github.com/bytedance/sonic"
)

// FilterColorUnset is reported for fountains nobody has voted on yet.
const FilterColorUnset = "null"

// AddVoteRequest is the body of POST /api/votes/add.
type AddVoteRequest struct {
	FountainID string `json:"fountainId"`
	Rating     string `json:"rating"`
}

// VoteResponse is the result of casting a vote. Validation failures and
// filter sync failures reuse it with zero values.
type VoteResponse struct {
	Success        bool   `json:"success"`
	FilterChanged  bool   `json:"filterChanged"`
	NewFilterColor string `json:"newFilterColor"`
	Error          string `json:"error"`
}

// ErrorResponse is the generic failure body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// GetByIDRequest is the body of the */get endpoints.
type GetByIDRequest struct {
	ID string `json:"_id"`
}

// Coordinates is a point on the campus map.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FountainLocation describes where a fountain sits.
type FountainLocation struct {
	Building    string       `json:"building"`
	Description string       `json:"description"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Fountain is the public view of a fountain.
type Fountain struct {
	ID         string           `json:"_id"`
	BuildingID *string          `json:"buildingId"`
	Location   FountainLocation `json:"location"`
	Filter     string           `json:"filter"`
	LastUpdate time.Time        `json:"lastUpdate"`
}

// Building is the public view of a building.
type Building struct {
	ID          string      `json:"_id"`
	Name        string      `json:"name"`
	PinCoords   Coordinates `json:"pinCoords"`
	FountainIDs []string    `json:"fountainIds"`
}

// FountainListResponse is the body of GET /api/fountains/list.
type FountainListResponse struct {
	Fountains []*Fountain `json:"fountains"`
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
}

// FountainResponse is the body of POST /api/fountains/get.
type FountainResponse struct {
	Fountain *Fountain `json:"fountain"`
	Success  bool      `json:"success"`
	Error    string    `json:"error"`
}

// BuildingListResponse is the body of GET /api/buildings/list.
type BuildingListResponse struct {
	Buildings []*Building `json:"buildings"`
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
}

// BuildingResponse is the body of POST /api/buildings/get.
type BuildingResponse struct {
	Building *Building `json:"building"`
	Success  bool      `json:"success"`
	Error    string    `json:"error"`
}

// CreateResponse is the body of the */create endpoints. ID is null on failure.
type CreateResponse struct {
	ID      *string `json:"_id"`
	Success bool    `json:"success"`
	Error   string  `json:"error"`
}

// CreateFountainRequest is the body of POST /api/fountains/create.
type CreateFountainRequest struct {
	Location   FountainLocation `json:"location"`
	Filter     string           `json:"filter"`
	LastUpdate string           `json:"lastUpdate"`
	BuildingID string           `json:"buildingId"`
}

// UpdateFountainRequest is the body of POST /api/fountains/update.
// Absent fields are left unchanged.
type UpdateFountainRequest struct {
	ID         string                 `json:"_id"`
	Location   *FountainLocationPatch `json:"location"`
	Filter     *string                `json:"filter"`
	LastUpdate string                 `json:"lastUpdate"`
	BuildingID string                 `json:"buildingId"`
}

// FountainLocationPatch is a partial fountain location.
type FountainLocationPatch struct {
	Building    *string             `json:"building"`
	Description *string             `json:"description"`
	Coordinates OptionalCoordinates `json:"coordinates"`
}

// OptionalCoordinates tells an absent value apart from an explicit null.
type OptionalCoordinates struct {
	Set   bool
	Value *Coordinates
}

// UnmarshalJSON marks the coordinates as present.
func (o *OptionalCoordinates) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var c Coordinates
	if err := sonic.Unmarshal(data, &c); err != nil {
		return err
	}
	o.Value = &c
	return nil
}

// PinCoordsInput carries coordinates whose presence is checked.
type PinCoordsInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateBuildingRequest is the body of POST /api/buildings/create.
type CreateBuildingRequest struct {
	Name        string          `json:"name"`
	PinCoords   *PinCoordsInput `json:"pinCoords"`
	FountainIDs []string        `json:"fountainIds"`
}

// UpdateBuildingRequest is the body of POST /api/buildings/update.
type UpdateBuildingRequest struct {
	ID          string          `json:"_id"`
	Name        *string         `json:"name"`
	PinCoords   *PinCoordsInput `json:"pinCoords"`
	FountainIDs *[]string       `json:"fountainIds"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Success bool `json:"success"`
}
