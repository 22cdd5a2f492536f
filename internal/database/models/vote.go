package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/wheresmywater/backend/internal/database/dbretry"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	"go.uber.org/zap"
)

// VoteModel handles database operations for fountain votes.
type VoteModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewVote creates a new vote model.
func NewVote(db *bun.DB, logger *zap.Logger) *VoteModel {
	return &VoteModel{
		db:     db,
		logger: logger.Named("db_vote"),
	}
}

// GetLatestVote returns the most recent vote a user cast for a fountain.
// Returns types.ErrVoteNotFound if the user never voted for it.
func (r *VoteModel) GetLatestVote(ctx context.Context, userID, fountainID uuid.UUID) (*types.Vote, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Vote, error) {
		vote := new(types.Vote)

		err := r.db.NewSelect().
			Model(vote).
			Where("user_id = ?", userID).
			Where("fountain_id = ?", fountainID).
			Order("voted_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrVoteNotFound
			}
			return nil, fmt.Errorf("failed to get latest vote: %w", err)
		}

		return vote, nil
	})
}

// InsertVote stores a new vote record.
func (r *VoteModel) InsertVote(ctx context.Context, vote *types.Vote) error {
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(vote).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
		return nil
	})
}

// UpdateVoteRating overwrites the rating and timestamp of an existing vote.
func (r *VoteModel) UpdateVoteRating(ctx context.Context, voteID uuid.UUID, rating enum.Rating, at time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := r.db.NewUpdate().
			Model((*types.Vote)(nil)).
			Set("rating = ?", rating).
			Set("voted_at = ?", at).
			Where("id = ?", voteID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update vote: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrVoteNotFound
		}

		return nil
	})
}

// GetLiveFountainVotes returns the most recent vote of every user for a fountain,
// ignoring votes cast before the given cutoff.
func (r *VoteModel) GetLiveFountainVotes(
	ctx context.Context, fountainID uuid.UUID, since time.Time,
) ([]*types.Vote, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Vote, error) {
		var votes []*types.Vote

		err := r.db.NewSelect().
			Model(&votes).
			DistinctOn("user_id").
			Where("fountain_id = ?", fountainID).
			Where("voted_at > ?", since).
			OrderExpr("user_id, voted_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get fountain votes: %w", err)
		}

		return votes, nil
	})
}

// PurgeExpiredVotes deletes up to limit votes cast before the cutoff.
// Returns the number of deleted votes and the distinct fountains that lost votes.
func (r *VoteModel) PurgeExpiredVotes(ctx context.Context, cutoff time.Time, limit int) (int, []uuid.UUID, error) {
	fountainIDs, err := dbretry.Operation(ctx, func(ctx context.Context) ([]uuid.UUID, error) {
		expired := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Column("id").
			Where("voted_at < ?", cutoff).
			Order("voted_at ASC").
			Limit(limit)

		var ids []uuid.UUID

		_, err := r.db.NewDelete().
			Model((*types.Vote)(nil)).
			Where("id IN (?)", expired).
			Returning("fountain_id").
			Exec(ctx, &ids)
		if err != nil {
			return nil, fmt.Errorf("failed to purge expired votes: %w", err)
		}

		return ids, nil
	})
	if err != nil {
		return 0, nil, err
	}

	r.logger.Debug("Purged expired votes",
		zap.Int("count", len(fountainIDs)),
		zap.Time("cutoff", cutoff))

	return len(fountainIDs), uniqueIDs(fountainIDs), nil
}

// uniqueIDs returns the distinct IDs in first-seen order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	return result
}
