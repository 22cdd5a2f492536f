package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/rest/convert"
	"github.com/wheresmywater/backend/internal/rest/render"
	restTypes "github.com/wheresmywater/backend/internal/rest/types"
	"go.uber.org/zap"
)

const (
	msgDatabaseError    = "Database error occurred"
	msgInvalidID        = "Invalid id"
	msgNotFound         = "Not found"
	msgMissingFields    = "Missing fields"
	msgNoFieldsToUpdate = "No valid fields to update"
	msgInvalidFilter    = "Invalid filter"
)

// FountainStore reads and writes fountains.
type FountainStore interface {
	GetFountains(ctx context.Context) ([]*types.Fountain, error)
	GetFountainByID(ctx context.Context, id uuid.UUID) (*types.Fountain, error)
	CreateFountain(ctx context.Context, fountain *types.Fountain) error
	UpdateFountain(ctx context.Context, id uuid.UUID, update types.FountainUpdate) error
	DeleteFountain(ctx context.Context, id uuid.UUID) error
}

// BuildingLinker keeps building fountain lists in step with fountains.
type BuildingLinker interface {
	LinkFountain(ctx context.Context, buildingID, fountainID uuid.UUID) error
	UnlinkFountain(ctx context.Context, fountainID uuid.UUID) error
}

// FountainHandler handles fountain endpoints.
type FountainHandler struct {
	fountains FountainStore
	buildings BuildingLinker
	logger    *zap.Logger
}

// NewFountainHandler creates a new fountain handler.
func NewFountainHandler(fountains FountainStore, buildings BuildingLinker, logger *zap.Logger) *FountainHandler {
	return &FountainHandler{
		fountains: fountains,
		buildings: buildings,
		logger:    logger.Named("fountain_handler"),
	}
}

// ListFountains godoc
//
//	@Summary	List fountains
//	@Tags		fountains
//	@Produce	json
//	@Success	200	{object}	types.FountainListResponse
//	@Failure	500	{object}	types.FountainListResponse
//	@Router		/fountains/list [get]
func (h *FountainHandler) ListFountains(w http.ResponseWriter, req bunrouter.Request) error {
	fountains, err := h.fountains.GetFountains(req.Context())
	if err != nil {
		h.logger.Error("Failed to list fountains", zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.FountainListResponse{
			Fountains: []*restTypes.Fountain{},
			Error:     msgDatabaseError,
		})
	}

	return render.JSON(w, http.StatusOK, restTypes.FountainListResponse{
		Fountains: convert.Fountains(fountains),
		Success:   true,
	})
}

// GetFountain godoc
//
//	@Summary	Get a fountain
//	@Tags		fountains
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.GetByIDRequest	true	"Fountain id"
//	@Success	200		{object}	types.FountainResponse
//	@Failure	400		{object}	types.FountainResponse
//	@Failure	404		{object}	types.FountainResponse
//	@Failure	500		{object}	types.FountainResponse
//	@Router		/fountains/get [post]
func (h *FountainHandler) GetFountain(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := decodeID(req)
	if !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.FountainResponse{Error: msgInvalidID})
	}

	fountain, err := h.fountains.GetFountainByID(req.Context(), id)
	switch {
	case errors.Is(err, types.ErrFountainNotFound):
		return render.JSON(w, http.StatusNotFound, restTypes.FountainResponse{Error: msgNotFound})
	case err != nil:
		h.logger.Error("Failed to get fountain", zap.String("id", id.String()), zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.FountainResponse{Error: msgDatabaseError})
	}

	return render.JSON(w, http.StatusOK, restTypes.FountainResponse{
		Fountain: convert.Fountain(fountain),
		Success:  true,
	})
}

// CreateFountain godoc
//
//	@Summary	Create a fountain
//	@Tags		fountains
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateFountainRequest	true	"Fountain"
//	@Success	201		{object}	types.CreateResponse
//	@Failure	400		{object}	types.CreateResponse
//	@Failure	500		{object}	types.CreateResponse
//	@Security	BearerAuth
//	@Router		/fountains/create [post]
func (h *FountainHandler) CreateFountain(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.CreateFountainRequest
	if err := render.Decode(req.Request, &body); err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.CreateResponse{Error: msgInvalidBody})
	}

	if body.Location.Building == "" || body.Filter == "" {
		return render.JSON(w, http.StatusBadRequest, restTypes.CreateResponse{Error: msgMissingFields})
	}

	filter, ok := convert.ParseFilterColor(body.Filter)
	if !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.CreateResponse{Error: msgInvalidFilter})
	}

	fountain := &types.Fountain{
		Location: types.FountainLocation{
			Building:    body.Location.Building,
			Description: body.Location.Description,
			Coordinates: convert.Coordinates(body.Location.Coordinates),
		},
		Filter: filter,
	}
	if at, ok := parseTime(body.LastUpdate); ok {
		fountain.LastUpdate = at
	}

	if err := h.fountains.CreateFountain(req.Context(), fountain); err != nil {
		h.logger.Error("Failed to create fountain", zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.CreateResponse{Error: msgDatabaseError})
	}

	if buildingID, err := uuid.Parse(body.BuildingID); err == nil {
		h.linkBuilding(req.Context(), buildingID, fountain.ID)
	}

	id := fountain.ID.String()
	return render.JSON(w, http.StatusCreated, restTypes.CreateResponse{ID: &id, Success: true})
}

// UpdateFountain godoc
//
//	@Summary	Update a fountain
//	@Tags		fountains
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.UpdateFountainRequest	true	"Changed fields"
//	@Success	200		{object}	types.ErrorResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Security	BearerAuth
//	@Router		/fountains/update [post]
func (h *FountainHandler) UpdateFountain(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.UpdateFountainRequest
	if err := render.Decode(req.Request, &body); err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	id, err := uuid.Parse(body.ID)
	if err != nil {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	var update types.FountainUpdate
	if loc := body.Location; loc != nil {
		if loc.Building != nil {
			if name := strings.TrimSpace(*loc.Building); name != "" {
				update.Building = &name
			}
		}
		update.Description = loc.Description
		if loc.Coordinates.Set {
			update.SetCoordinates = true
			update.Coordinates = convert.Coordinates(loc.Coordinates.Value)
		}
	}

	if body.Filter != nil {
		filter, ok := convert.ParseFilterColor(*body.Filter)
		if !ok {
			return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidFilter})
		}
		update.Filter = &filter
	}

	if at, ok := parseTime(body.LastUpdate); ok {
		update.LastUpdate = &at
	}

	buildingID, linkErr := uuid.Parse(body.BuildingID)
	link := linkErr == nil

	if update.IsEmpty() && !link {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgNoFieldsToUpdate})
	}

	if !update.IsEmpty() {
		err := h.fountains.UpdateFountain(req.Context(), id, update)
		switch {
		case errors.Is(err, types.ErrFountainNotFound):
			return render.JSON(w, http.StatusNotFound, restTypes.ErrorResponse{Error: msgNotFound})
		case err != nil:
			h.logger.Error("Failed to update fountain", zap.String("id", id.String()), zap.Error(err))
			return render.JSON(w, http.StatusInternalServerError, restTypes.ErrorResponse{Error: msgDatabaseError})
		}
	}

	if link {
		h.linkBuilding(req.Context(), buildingID, id)
	}

	return render.JSON(w, http.StatusOK, restTypes.ErrorResponse{Success: true})
}

// DeleteFountain godoc
//
//	@Summary		Delete a fountain
//	@Description	Removes the fountain and its votes and unlists it from buildings
//	@Tags			fountains
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.GetByIDRequest	true	"Fountain id"
//	@Success		200		{object}	types.ErrorResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		404		{object}	types.ErrorResponse
//	@Failure		500		{object}	types.ErrorResponse
//	@Security		BearerAuth
//	@Router			/fountains/delete [post]
func (h *FountainHandler) DeleteFountain(w http.ResponseWriter, req bunrouter.Request) error {
	id, ok := decodeID(req)
	if !ok {
		return render.JSON(w, http.StatusBadRequest, restTypes.ErrorResponse{Error: msgInvalidID})
	}

	err := h.fountains.DeleteFountain(req.Context(), id)
	switch {
	case errors.Is(err, types.ErrFountainNotFound):
		return render.JSON(w, http.StatusNotFound, restTypes.ErrorResponse{Error: msgNotFound})
	case err != nil:
		h.logger.Error("Failed to delete fountain", zap.String("id", id.String()), zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.ErrorResponse{Error: msgDatabaseError})
	}

	if err := h.buildings.UnlinkFountain(req.Context(), id); err != nil {
		h.logger.Warn("Failed to unlink deleted fountain from buildings",
			zap.String("fountainID", id.String()),
			zap.Error(err))
	}

	return render.JSON(w, http.StatusOK, restTypes.ErrorResponse{Success: true})
}

// linkBuilding attaches a fountain to a building. Failures are logged only.
func (h *FountainHandler) linkBuilding(ctx context.Context, buildingID, fountainID uuid.UUID) {
	if err := h.buildings.LinkFountain(ctx, buildingID, fountainID); err != nil {
		h.logger.Warn("Failed to link fountain to building",
			zap.String("fountainID", fountainID.String()),
			zap.String("buildingID", buildingID.String()),
			zap.Error(err))
	}
}

// parseTime reads an RFC 3339 timestamp or a plain date.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decodeID reads the {_id} body shared by the get endpoints.
func decodeID(req bunrouter.Request) (uuid.UUID, bool) {
	var body restTypes.GetByIDRequest
	if err := render.Decode(req.Request, &body); err != nil {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(body.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
