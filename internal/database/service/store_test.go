package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wheresmywater/backend/internal/database/types"
	"github.com/wheresmywater/backend/internal/database/types/enum"
)

// memVoteStore keeps every vote record, including superseded ones.
type memVoteStore struct {
	mu    sync.Mutex
	votes []types.Vote
}

func (m *memVoteStore) GetLatestVote(_ context.Context, userID, fountainID uuid.UUID) (*types.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *types.Vote
	for i := range m.votes {
		v := m.votes[i]
		if v.UserID != userID || v.FountainID != fountainID {
			continue
		}
		if latest == nil || v.Timestamp.After(latest.Timestamp) {
			latest = &v
		}
	}

	if latest == nil {
		return nil, types.ErrVoteNotFound
	}
	return latest, nil
}

func (m *memVoteStore) InsertVote(_ context.Context, vote *types.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.votes = append(m.votes, *vote)
	return nil
}

func (m *memVoteStore) UpdateVoteRating(_ context.Context, voteID uuid.UUID, rating enum.Rating, at time.Time) error {
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

func (m *memVoteStore) GetLiveFountainVotes(
	_ context.Context, fountainID uuid.UUID, since time.Time,
) ([]*types.Vote, error) {
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
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID.String() < result[j].UserID.String()
	})
	return result, nil
}

// count returns the number of stored records for a user and fountain.
func (m *memVoteStore) count(userID, fountainID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, v := range m.votes {
		if v.UserID == userID && v.FountainID == fountainID {
			n++
		}
	}
	return n
}

// memFountainStore holds fountains and counts filter writes.
type memFountainStore struct {
	mu         sync.Mutex
	fountains  map[uuid.UUID]*types.Fountain
	writes     int
	beforeSwap func(id uuid.UUID)
}

func newMemFountainStore(fountains ...*types.Fountain) *memFountainStore {
	m := &memFountainStore{fountains: make(map[uuid.UUID]*types.Fountain)}
	for _, f := range fountains {
		m.fountains[f.ID] = f
	}
	return m
}

func (m *memFountainStore) GetFountainByID(_ context.Context, id uuid.UUID) (*types.Fountain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fountains[id]
	if !ok {
		return nil, types.ErrFountainNotFound
	}
	copied := *f
	return &copied, nil
}

func (m *memFountainStore) CompareAndSwapFilter(
	_ context.Context, id uuid.UUID, expected, filter enum.Rating, at time.Time,
) (bool, error) {
	if m.beforeSwap != nil {
		m.beforeSwap(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fountains[id]
	if !ok || f.Filter != expected {
		return false, nil
	}

	f.Filter = filter
	f.LastUpdate = at
	m.writes++
	return true, nil
}

// setFilter overwrites a fountain's filter outside the service.
func (m *memFountainStore) setFilter(id uuid.UUID, filter enum.Rating) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fountains[id].Filter = filter
}

func (m *memFountainStore) filter(id uuid.UUID) enum.Rating {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fountains[id].Filter
}

func (m *memFountainStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
