package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/rest/convert"
	"github.com/wheresmywater/backend/internal/rest/render"
	restTypes "github.com/wheresmywater/backend/internal/rest/types"
	"go.uber.org/zap"
)

// BuildingStore reads and writes buildings.
type BuildingStore interface {
	BuildingLinker
	GetBuildings(ctx context.Context) ([]*types.Building, error)
	GetBuildingByID(ctx context.Context, id uuid.UUID) (*types.Building, error)
	CreateBuilding(ctx context.Context, building *types.Building) error
	UpdateBuilding(ctx context.Context, id uuid.UUID, update types.BuildingUpdate) error
	DeleteBuilding(ctx context.Context, id uuid.UUID) error
}

// BuildingHandler handles building endpoints.
type BuildingHandler struct {
	buildings BuildingStore
	logger    *zap.Logger
}

// NewBuildingHandler creates a new building handler.
func NewBuildingHandler(buildings BuildingStore, logger *zap.Logger) *BuildingHandler {
	return &BuildingHandler{
		buildings: buildings,
		logger:    logger.Named("building_handler"),
	}
}

// ListBuildings godoc
//
//	@Summary	List buildings
//	@Tags		buildings
//	@Produce	json
//	@Success	200	{object}	types.BuildingListResponse
//	@Failure	500	{object}	types.BuildingListResponse
//	@Router		/buildings/list [get]
func (h *BuildingHandler) ListBuildings(w http.ResponseWriter, req bunrouter.Request) error {
	buildings, err := h.buildings.GetBuildings(req.Context())
	if err != nil {
		h.logger.Error("Failed to list buildings", zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.BuildingListResponse{
			Buildings: []*restTypes.Building{},
			Error:     msgDatabaseError,
		})
	}

	return render.JSON(w, http.StatusOK, restTypes.BuildingListResponse{
		Buildings: convert.Buildings(buildings),
		Success:   true,
	})
}

// GetBuilding godoc
//
//	@Summary	Get a building
//	@Tags		buildings
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.GetByIDRequest	true	"Building id"
//	@Success	200		{object}	types.BuildingResponse
//	@Failure	400		{object}	types.BuildingResponse
//	@Failure	404		{object}	types.BuildingResponse
//	@Failure	500		{object}	types.BuildingResponse
//	@Router		/buildings/get [post]
func (h *BuildingHandler) GetBuilding(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := decodeID(req)
	if !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.BuildingResponse{Error: msgInvalidID})
	}

	building, err := h.buildings.GetBuildingByID(req.Context(), id)
	switch {
	case errors.Is(err, types.ErrBuildingNotFound):
		return render.JSON(w, http.StatusNotFound, restTypes.BuildingResponse{Error: msgNotFound})
	case err != nil:
		h.logger.Error("Failed to get building", zap.String("id", id.String()), zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.BuildingResponse{Error: msgDatabaseError})
	}

	return render.JSON(w, http.StatusOK, restTypes.BuildingResponse{
		Building: convert.Building(building),
		Success:  true,
	})
}

// CreateBuilding godoc
//
//	@Summary	Create a building
//	@Tags		buildings
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateBuildingRequest	true	"Building"
//	@Success	201		{object}	types.CreateResponse
//	@Failure	400		{object}	types.CreateResponse
//	@Failure	500		{object}	types.CreateResponse
//	@Security	BearerAuth
//	@Router		/buildings/create [post]
func (h *BuildingHandler) CreateBuilding(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.CreateBuildingRequest
	if err := render.Decode(req.Request, &body); err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.CreateResponse{Error: msgInvalidBody})
	}

	name := strings.TrimSpace(body.Name)
	coords, ok := pinCoords(body.PinCoords)
	if name == "" || !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.CreateResponse{Error: msgMissingFields})
	}

	building := &types.Building{
		Name:        name,
		PinCoords:   coords,
		FountainIDs: convert.IDs(body.FountainIDs),
	}
	if err := h.buildings.CreateBuilding(req.Context(), building); err != nil {
		h.logger.Error("Failed to create building", zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.CreateResponse{Error: msgDatabaseError})
	}

	id := building.ID.String()
	return render.JSON(w, http.StatusCreated, restTypes.CreateResponse{ID: &id, Success: true})
}

// UpdateBuilding godoc
//
//	@Summary	Update a building
//	@Tags		buildings
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.UpdateBuildingRequest	true	"Changed fields"
//	@Success	200		{object}	types.ErrorResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Security	BearerAuth
//	@Router		/buildings/update [post]
func (h *BuildingHandler) UpdateBuilding(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.UpdateBuildingRequest
	if err := render.Decode(req.Request, &body); err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	id, err := uuid.Parse(body.ID)
	if err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	var update types.BuildingUpdate
	if body.Name != nil {
		if name := strings.TrimSpace(*body.Name); name != "" {
			update.Name = &name
		}
	}
	if coords, ok := pinCoords(body.PinCoords); ok {
		update.PinCoords = &coords
	}
	if body.FountainIDs != nil {
		ids := convert.IDs(*body.FountainIDs)
		update.FountainIDs = &ids
	}

	if update.IsEmpty() {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgNoFieldsToUpdate})
	}

	err = h.buildings.UpdateBuilding(req.Context(), id, update)
	switch {
	case errors.Is(err, types.ErrBuildingNotFound):
		return render.JSON(w, http.StatusNotFound, restTypes.ErrorResponse{Error: msgNotFound})
	case err != nil:
		h.logger.Error("Failed to update building", zap.String("id", id.String()), zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.ErrorResponse{Error: msgDatabaseError})
	}

	return render.JSON(w, http.StatusOK, restTypes.ErrorResponse{Success: true})
}

// DeleteBuilding godoc
//
//	@Summary		Delete a building
//	@Description	Removes the building. Its fountains are kept without a building reference.
//	@Tags			buildings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.GetByIDRequest	true	"Building id"
//	@Success		200		{object}	types.ErrorResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Failure		500		{object}	types.ErrorResponse
//	@Security		BearerAuth
//	@Router			/buildings/delete [post]
func (h *BuildingHandler) DeleteBuilding(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := decodeID(req)
	if !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	err := h.buildings.DeleteBuilding(req.Context(), id)
	switch {
	case errors.Is(err, types.ErrBuildingNotFound):
		return render.JSON(w, http.StatusNotFound, restTypes.ErrorResponse{Error: msgNotFound})
	case err != nil:
		h.logger.Error("Failed to delete building", zap.String("id", id.String()), zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.ErrorResponse{Error: msgDatabaseError})
	}

	return render.JSON(w, http.StatusOK, restTypes.ErrorResponse{Success: true})
}

// pinCoords requires both coordinates to be present.
func pinCoords(in *restTypes.PinCoordsInput) (types.Coordinates, bool) {
	if in == nil || in.Latitude == nil || in.Longitude == nil {
		return types.Coordinates{}, false
	}
	return types.Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}, true
}
