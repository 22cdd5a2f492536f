package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	"go.uber.org/zap"
)

// Default voting policy values.
const (
	DefaultRevoteWindow      = 2 * time.Hour
	DefaultVoteRetention     = 48 * time.Hour
	DefaultResyncConcurrency = 4

	maxSyncAttempts = 3
)

var (
	// ErrNoVotesObserved indicates that a fountain has no live votes to derive a filter from.
	ErrNoVotesObserved = errors.New("no votes observed for fountain")
	// ErrFilterContention indicates that concurrent writers kept changing the filter.
	ErrFilterContention = errors.New("fountain filter changed concurrently")
	// ErrFilterSyncFailed marks a vote that was stored but whose fountain could not be updated.
	ErrFilterSyncFailed = errors.New("failed to update fountain filter")
)

// VoteStore persists votes.
type VoteStore interface {
	GetLatestVote(ctx context.Context, userID, fountainID uuid.UUID) (*types.Vote, error)
	InsertVote(ctx context.Context, vote *types.Vote) error
	UpdateVoteRating(ctx context.Context, voteID uuid.UUID, rating enum.Rating, at time.Time) error
	GetLiveFountainVotes(ctx context.Context, fountainID uuid.UUID, since time.Time) ([]*types.Vote, error)
}

// FountainStore reads fountains and swaps their filter status.
type FountainStore interface {
	GetFountainByID(ctx context.Context, id uuid.UUID) (*types.Fountain, error)
	CompareAndSwapFilter(ctx context.Context, id uuid.UUID, expected, filter enum.Rating, at time.Time) (bool, error)
}

// VotePolicy controls how votes are merged and how long they count.
type VotePolicy struct {
	RevoteWindow      time.Duration
	Retention         time.Duration
	ResyncConcurrency int
}

// withDefaults fills unset values.
func (p VotePolicy) withDefaults() VotePolicy {
	if p.RevoteWindow <= 0 {
		p.RevoteWindow = DefaultRevoteWindow
	}
	if p.Retention <= 0 {
		p.Retention = DefaultVoteRetention
	}
	if p.ResyncConcurrency <= 0 {
		p.ResyncConcurrency = DefaultResyncConcurrency
	}
	return p
}

// UpsertResult tells whether a vote was inserted or merged into a recent one.
type UpsertResult int

const (
	UpsertAdded UpsertResult = iota
	UpsertUpdated
)

func (r UpsertResult) String() string {
	if r == UpsertUpdated {
		return "updated"
	}
	return "added"
}

// FilterUpdate is the result of recomputing a fountain's filter status.
type FilterUpdate struct {
	FilterChanged  bool
	NewFilterColor enum.Rating
}

// VoteOutcome summarizes a cast vote.
type VoteOutcome struct {
	Action UpsertResult
	FilterUpdate
}

// VoteService handles vote recording and filter consensus.
type VoteService struct {
	votes     VoteStore
	fountains FountainStore
	policy    VotePolicy
	now       func() time.Time
	logger    *zap.Logger
}

// NewVote creates a new vote service.
func NewVote(votes VoteStore, fountains FountainStore, policy VotePolicy, logger *zap.Logger) *VoteService {
	return &VoteService{
		votes:     votes,
		fountains: fountains,
		policy:    policy.withDefaults(),
		now:       time.Now,
		logger:    logger.Named("vote_service"),
	}
}

// Policy returns the effective voting policy.
func (s *VoteService) Policy() VotePolicy {
	return s.policy
}

// UpsertVote records a user's vote for a fountain. A vote cast within the
// revote window of the user's previous vote replaces its rating and
// timestamp instead of adding a new record.
func (s *VoteService) UpsertVote(
	ctx context.Context, userID, fountainID uuid.UUID, rating enum.Rating,
) (UpsertResult, error) {
	now := s.now()

	latest, err := s.votes.GetLatestVote(ctx, userID, fountainID)
	if err != nil && !errors.Is(err, types.ErrVoteNotFound) {
		return UpsertAdded, fmt.Errorf("failed to look up previous vote: %w", err)
	}

	if latest != nil && now.Sub(latest.Timestamp) < s.policy.RevoteWindow {
		if err := s.votes.UpdateVoteRating(ctx, latest.ID, rating, now); err != nil {
			return UpsertUpdated, fmt.Errorf("failed to update vote: %w", err)
		}

		s.logger.Debug("Updated recent vote",
			zap.String("userID", userID.String()),
			zap.String("fountainID", fountainID.String()),
			zap.String("rating", rating.String()))

		return UpsertUpdated, nil
	}

	vote := &types.Vote{
		ID:         uuid.New(),
		UserID:     userID,
		FountainID: fountainID,
		Rating:     rating,
		Timestamp:  now,
	}
	if err := s.votes.InsertVote(ctx, vote); err != nil {
		return UpsertAdded, fmt.Errorf("failed to insert vote: %w", err)
	}

	s.logger.Debug("Added vote",
		zap.String("userID", userID.String()),
		zap.String("fountainID", fountainID.String()),
		zap.String("rating", rating.String()))

	return UpsertAdded, nil
}

// UpdateFountainFilter recomputes the consensus rating of a fountain from its
// live votes and stores it when it differs from the current filter. The
// write only succeeds if the filter still holds the value that was read, so
// concurrent syncs cannot overwrite a newer consensus with a stale one.
func (s *VoteService) UpdateFountainFilter(ctx context.Context, fountainID uuid.UUID) (*FilterUpdate, error) {
	for attempt := range maxSyncAttempts {
		fountain, err := s.fountains.GetFountainByID(ctx, fountainID)
		if err != nil {
			return nil, err
		}

		now := s.now()

		votes, err := s.votes.GetLiveFountainVotes(ctx, fountainID, now.Add(-s.policy.Retention))
		if err != nil {
			return nil, fmt.Errorf("failed to get fountain votes: %w", err)
		}

		rating, err := FindModeRating(votes)
		if err != nil {
			return nil, err
		}

		if rating == enum.RatingUnset {
			return nil, fmt.Errorf("%w: %s", ErrNoVotesObserved, fountainID)
		}

		if rating == fountain.Filter {
			return &FilterUpdate{FilterChanged: false, NewFilterColor: rating}, nil
		}

		swapped, err := s.fountains.CompareAndSwapFilter(ctx, fountainID, fountain.Filter, rating, now)
		if err != nil {
			return nil, fmt.Errorf("failed to update fountain filter: %w", err)
		}

		if swapped {
			s.logger.Info("Fountain filter changed",
				zap.String("fountainID", fountainID.String()),
				zap.String("from", fountain.Filter.String()),
				zap.String("to", rating.String()),
				zap.Int("votes", len(votes)))

			return &FilterUpdate{FilterChanged: true, NewFilterColor: rating}, nil
		}

		s.logger.Debug("Fountain filter changed during sync, retrying",
			zap.String("fountainID", fountainID.String()),
			zap.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("%w: %s", ErrFilterContention, fountainID)
}

// CastVote records a vote and then synchronizes the fountain's filter.
// A returned error wrapping ErrFilterSyncFailed means the vote itself was stored.
func (s *VoteService) CastVote(
	ctx context.Context, userID, fountainID uuid.UUID, rating enum.Rating,
) (*VoteOutcome, error) {
	action, err := s.UpsertVote(ctx, userID, fountainID, rating)
	if err != nil {
		return nil, err
	}

	update, err := s.UpdateFountainFilter(ctx, fountainID)
	if err != nil {
		return &VoteOutcome{Action: action}, fmt.Errorf("%w: %w", ErrFilterSyncFailed, err)
	}

	return &VoteOutcome{Action: action, FilterUpdate: *update}, nil
}

// ResyncFountains recomputes the filter of each fountain concurrently and
// returns how many changed. Fountains without live votes or that no longer
// exist keep their current state.
func (s *VoteService) ResyncFountains(ctx context.Context, fountainIDs []uuid.UUID) (int, error) {
	var changed atomic.Int64

	p := pool.New().WithMaxGoroutines(s.policy.ResyncConcurrency).WithContext(ctx)
	for _, fountainID := range fountainIDs {
		p.Go(func(ctx context.Context) error {
			update, err := s.UpdateFountainFilter(ctx, fountainID)
			switch {
			case errors.Is(err, ErrNoVotesObserved), errors.Is(err, types.ErrFountainNotFound):
				return nil
			case err != nil:
				return fmt.Errorf("failed to resync fountain %s: %w", fountainID, err)
			}

			if update.FilterChanged {
				changed.Add(1)
			}
			return nil
		})
	}

	err := p.Wait()
	return int(changed.Load()), err
}
