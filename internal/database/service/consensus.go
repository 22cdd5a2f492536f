package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
)

// ErrInvalidVoteRating indicates a stored vote outside the votable enumeration.
var ErrInvalidVoteRating = errors.New("vote has an invalid rating")

// FindModeRating returns the most popular rating among the votes.
// Ties go to the rating whose latest vote is the most recent; on equal
// timestamps the earlier rating in VoteRatings order wins.
// Returns enum.RatingUnset when there are no votes.
func FindModeRating(votes []*types.Vote) (enum.Rating, error) {
	if len(votes) == 0 {
		return enum.RatingUnset, nil
	}

	var (
		counts [enum.RatingGreen + 1]int
		latest [enum.RatingGreen + 1]time.Time
	)

	for i, vote := range votes {
		if vote == nil || !vote.Rating.IsVoteRating() {
			return enum.RatingUnset, fmt.Errorf("%w: index %d", ErrInvalidVoteRating, i)
		}

		counts[vote.Rating]++
		if counts[vote.Rating] == 1 || vote.Timestamp.After(latest[vote.Rating]) {
			latest[vote.Rating] = vote.Timestamp
		}
	}

	maxCount := 0
	for _, rating := range enum.VoteRatings() {
		maxCount = max(maxCount, counts[rating])
	}

	winner := enum.RatingUnset
	for _, rating := range enum.VoteRatings() {
		if counts[rating] != maxCount {
			continue
		}

		if winner == enum.RatingUnset || latest[rating].After(latest[winner]) {
			winner = rating
		}
	}

	return winner, nil
}
