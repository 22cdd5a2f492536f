package rest_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/database/service"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
	"github.com/wheresmywater/backend/internal/rest"
	"github.com/wheresmywater/backend/internal/rest/middleware/auth"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

// memVotes keeps every vote record so revotes can be told apart from inserts.
type memVotes struct {
	mu    sync.Mutex
	votes []types.Vote
}

func (m *memVotes) GetLatestVote(_ context.Context, userID, fountainID uuid.UUID) (*types.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *types.Vote
	for i := range m.votes {
		v := m.votes[i]
		if v.UserID == userID && v.FountainID == fountainID &&
			(latest == nil || v.Timestamp.After(latest.Timestamp)) {
			latest = &v
		}
	}
	if latest == nil {
		return nil, types.ErrVoteNotFound
	}
	return latest, nil
}

func (m *memVotes) InsertVote(_ context.Context, vote *types.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.votes = append(m.votes, *vote)
	return nil
}

func (m *memVotes) UpdateVoteRating(_ context.Context, voteID uuid.UUID, rating enum.Rating, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.votes {
		if m.votes[i].ID == voteID {
			m.votes[i].Rating = rating
			m.votes[i].Timestamp = at
			return nil
		}
	}
	return types.ErrVoteNotFound
}

func (m *memVotes) GetLiveFountainVotes(_ context.Context, fountainID uuid.UUID, since time.Time) ([]*types.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[uuid.UUID]types.Vote)
	for _, v := range m.votes {
		if v.FountainID != fountainID || !v.Timestamp.After(since) {
			continue
		}
		if prev, ok := latest[v.UserID]; !ok || v.Timestamp.After(prev.Timestamp) {
			latest[v.UserID] = v
		}
	}

	result := make([]*types.Vote, 0, len(latest))
	for _, v := range latest {
		result = append(result, &v)
	}
	return result, nil
}

func (m *memVotes) records() []types.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]types.Vote(nil), m.votes...)
}

// memFountains serves one fountain to both the handlers and the vote service.
type memFountains struct {
	stubFountains
	mu       sync.Mutex
	fountain types.Fountain
}

func (m *memFountains) GetFountainByID(_ context.Context, id uuid.UUID) (*types.Fountain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != m.fountain.ID {
		return nil, types.ErrFountainNotFound
	}
	copied := m.fountain
	return &copied, nil
}

func (m *memFountains) CompareAndSwapFilter(
	_ context.Context, id uuid.UUID, expected, filter enum.Rating, at time.Time,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != m.fountain.ID || m.fountain.Filter != expected {
		return false, nil
	}
	m.fountain.Filter = filter
	m.fountain.LastUpdate = at
	return true, nil
}

func TestVotingScenario(t *testing.T) {
	t.Parallel()

	fountainID := uuid.New()
	votes := &memVotes{}
	fountains := &memFountains{fountain: types.Fountain{
		ID:       fountainID,
		Location: types.FountainLocation{Building: "Library"},
		Filter:   enum.RatingUnset,
	}}

	cfg := &config.APIConfig{
		Auth:      config.Auth{AccessTokenSecret: "test-secret"},
		RateLimit: config.RateLimit{RequestsPerSecond: 100, BurstSize: 100},
	}
	server, err := rest.New(rest.Dependencies{
		Votes:     service.NewVote(votes, fountains, service.VotePolicy{}, zap.NewNop()),
		Fountains: fountains,
		Buildings: stubBuildings{},
	}, zap.NewNop(), cfg)
	require.NoError(t, err)
	t.Cleanup(server.Close)

	tokenFor := func(userID uuid.UUID, name string) map[string]string {
		token, err := auth.Issue(&cfg.Auth, auth.Identity{UserID: userID, User: name}, time.Hour)
		require.NoError(t, err)
		return map[string]string{"Authorization": "Bearer " + token}
	}
	alice, bob := uuid.New(), uuid.New()
	aliceHeader, bobHeader := tokenFor(alice, "alice"), tokenFor(bob, "bob")

	vote := func(header map[string]string, rating string) string {
		t.Helper()
		body := `{"fountainId":"` + fountainID.String() + `","rating":"` + rating + `"}`
		rec := send(server, http.MethodPost, "/api/votes/add", body, header)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	assert.JSONEq(t,
		`{"success":true,"filterChanged":true,"newFilterColor":"green","error":""}`,
		vote(aliceHeader, "green"))

	// A revote inside the window replaces the earlier record
	assert.JSONEq(t,
		`{"success":true,"filterChanged":true,"newFilterColor":"red","error":""}`,
		vote(aliceHeader, "red"))
	records := votes.records()
	require.Len(t, records, 1)
	assert.Equal(t, enum.RatingRed, records[0].Rating)

	assert.JSONEq(t,
		`{"success":true,"filterChanged":false,"newFilterColor":"red","error":""}`,
		vote(bobHeader, "red"))
	assert.Len(t, votes.records(), 2)

	rec := send(server, http.MethodPost, "/api/fountains/get", `{"_id":"`+fountainID.String()+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filter":"red"`)
}
