package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wheresmywater/backend/internal/database/types/enum"
)

// Messages reported by ValidateVote.
const (
	MsgMissingFountainID = "Missing fountainId"
	MsgMissingRating     = "Missing rating"
	MsgInvalidRating     = "Rating must be either 'red', 'yellow', or 'green'"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // -

// voteInput carries the raw fields of a proposed vote.
type voteInput struct {
	FountainID string `validate:"required"`
	Rating     string `validate:"required"`
}

// ValidationResult lists every problem found with a proposed vote.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Error joins the collected messages.
func (r ValidationResult) Error() string {
	return strings.Join(r.Errors, "; ")
}

// ValidateVote checks a proposed vote. All rules are evaluated so the
// caller receives every message at once.
func ValidateVote(fountainID, rating string) ValidationResult {
	errs := make([]string, 0, 3)

	var fieldErrs validator.ValidationErrors
	if err := validate.Struct(voteInput{FountainID: fountainID, Rating: rating}); errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch fe.StructField() {
			case "FountainID":
				errs = append(errs, MsgMissingFountainID)
			case "Rating":
				errs = append(errs, MsgMissingRating)
			}
		}
	}

	if _, ok := ParseVoteRating(rating); !ok {
		errs = append(errs, MsgInvalidRating)
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

// ParseVoteRating converts the wire form of a rating into a votable rating.
// Only the exact lowercase names are accepted.
func ParseVoteRating(s string) (enum.Rating, bool) {
	rating, err := enum.RatingString(s)
	if err != nil || !rating.IsVoteRating() || rating.String() != s {
		return enum.RatingUnset, false
	}
	return rating, true
}
