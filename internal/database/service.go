package database

import (
	"github.com/wheresmywater/backend/internal/database/service"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	vote *service.VoteService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, voting *config.Voting, logger *zap.Logger) *Service {
	policy := service.VotePolicy{}
	if voting != nil {
		policy = service.VotePolicy{
			RevoteWindow:      voting.RevoteWindow(),
			Retention:         voting.Retention(),
			ResyncConcurrency: voting.ResyncConcurrency,
		}
	}

	return &Service{
		vote: service.NewVote(repository.Vote(), repository.Fountain(), policy, logger),
	}
}

// Vote returns the vote service.
func (s *Service) Vote() *service.VoteService {
	return s.vote
}
