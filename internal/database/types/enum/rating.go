package enum

// Rating represents the filter color reported for a fountain.
//
//go:generate go tool enumer -type=Rating -trimprefix=Rating -transform=lower -json -sql
type Rating int

const (
	// RatingUnset marks a fountain that has not received any votes yet.
	// It is never a valid vote.
	RatingUnset Rating = iota
	// RatingRed means the filter needs replacing.
	RatingRed
	// RatingYellow means the filter is wearing out.
	RatingYellow
	// RatingGreen means the filter is good.
	RatingGreen
)

// VoteRatings returns the ratings a user may vote for, in tally order.
func VoteRatings() []Rating {
	return []Rating{RatingRed, RatingYellow, RatingGreen}
}

// IsVoteRating reports whether r belongs to the closed set of votable ratings.
func (r Rating) IsVoteRating() bool {
	return r == RatingRed || r == RatingYellow || r == RatingGreen
}
