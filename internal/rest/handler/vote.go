package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/database/service"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	"github.com/wheresmywater/backend/internal/rest/convert"
	"github.com/wheresmywater/backend/internal/rest/middleware/auth"
	"github.com/wheresmywater/backend/internal/rest/render"
	restTypes "github.com/wheresmywater/backend/internal/rest/types"
	"go.uber.org/zap"
)

const (
	msgNoToken           = "No token provided"
	msgInvalidBody       = "Invalid request body"
	msgInvalidFountainID = "Invalid fountainId format"
	msgFilterSyncFailed  = "Error updating fountain filter"
	msgAddVoteFailed     = "Error adding user's vote"
)

// VoteCaster records votes and keeps fountain filters in sync.
type VoteCaster interface {
	CastVote(ctx context.Context, userID, fountainID uuid.UUID, rating enum.Rating) (*service.VoteOutcome, error)
}

// VoteHandler handles vote endpoints.
type VoteHandler struct {
	votes  VoteCaster
	logger *zap.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(votes VoteCaster, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		votes:  votes,
		logger: logger.Named("vote_handler"),
	}
}

// AddVote godoc
//
//	@Summary		Cast a filter vote
//	@Description	Records the caller's rating for a fountain and recomputes its filter color
//	@Tags			votes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.AddVoteRequest	true	"Vote"
//	@Success		200		{object}	types.VoteResponse
//	@Failure		400		{object}	types.VoteResponse
//	@Failure		401		{object}	types.ErrorResponse
//	@Failure		403		{object}	types.ErrorResponse
//	@Failure		500		{object}	types.VoteResponse
//	@Security		BearerAuth
//	@Router			/votes/add [post]
func (h *VoteHandler) AddVote(w http.ResponseWriter, req bunrouter.Request) error {
	identity, ok := auth.FromContext(req.Context())
	if !ok {
		return render.JSON(w, http.StatusUnauthorized, restTypes.ErrorResponse{Error: msgNoToken})
	}

	var body restTypes.AddVoteRequest
	if err := render.Decode(req.Request, &body); err != nil {
		h.logger.Debug("Malformed vote body", zap.Error(err))
		return render.JSON(w, http.StatusBadRequest, restTypes.VoteResponse{Error: msgInvalidBody})
	}

	var fountainID uuid.UUID
	if body.FountainID != "" {
		id, err := uuid.Parse(body.FountainID)
		if err != nil {
			return render.JSON(w, http.StatusBadRequest, restTypes.VoteResponse{Error: msgInvalidFountainID})
		}
		fountainID = id
	}

	if result := service.ValidateVote(body.FountainID, body.Rating); !result.Valid {
		return render.JSON(w, http.StatusBadRequest, restTypes.VoteResponse{Error: result.Error()})
	}
	rating, _ := service.ParseVoteRating(body.Rating)

	outcome, err := h.votes.CastVote(req.Context(), identity.UserID, fountainID, rating)
	switch {
	case errors.Is(err, service.ErrFilterSyncFailed):
		h.logger.Error("Vote stored but filter sync failed",
			zap.String("userID", identity.UserID.String()),
			zap.String("fountainID", fountainID.String()),
			zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.VoteResponse{Error: msgFilterSyncFailed})
	case err != nil:
		h.logger.Error("Failed to add vote",
			zap.String("userID", identity.UserID.String()),
			zap.String("fountainID", fountainID.String()),
			zap.Error(err))
		return render.JSON(w, http.StatusInternalServerError, restTypes.ErrorResponse{Error: msgAddVoteFailed})
	}

	h.logger.Debug("Vote cast",
		zap.String("fountainID", fountainID.String()),
		zap.Stringer("action", outcome.Action),
		zap.Bool("filterChanged", outcome.FilterChanged))

	return render.JSON(w, http.StatusOK, restTypes.VoteResponse{
		Success:        true,
		FilterChanged:  outcome.FilterChanged,
		NewFilterColor: convert.FilterColor(outcome.NewFilterColor),
	})
}
