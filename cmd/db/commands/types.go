package commands

import (
	"errors"

	"github.com/uptrace/bun/migrate"
	"github.com/wheresmywater/backend/internal/database"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

var (
	ErrNameRequired     = errors.New("NAME argument required")
	ErrBuildingRequired = errors.New("--building is required")
	ErrUserIDRequired   = errors.New("USER_ID argument required")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB       database.Client
	Migrator *migrate.Migrator
	Config   *config.Config
	Logger   *zap.Logger
}
