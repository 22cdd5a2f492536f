package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/database/types/enum"
)

var ErrVoteNotFound = errors.New("vote not found")

// Vote is a single rating event cast by a user for a fountain.
// A revote inside the revote window overwrites Rating and Timestamp in place.
type Vote struct {
	ID         uuid.UUID   `bun:",pk,type:uuid"            json:"_id"`
	UserID     uuid.UUID   `bun:",notnull,type:uuid"       json:"userId"`
	FountainID uuid.UUID   `bun:",notnull,type:uuid"       json:"fountainId"`
	Rating     enum.Rating `bun:",notnull,type:varchar(16)" json:"rating"`
	Timestamp  time.Time   `bun:"voted_at,notnull"         json:"timestamp"`
}
