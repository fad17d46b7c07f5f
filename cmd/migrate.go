package cmd

import (
	"fmt"

	"github.com/uday-dev/alderaan/db"
	"github.com/uday-dev/alderaan/internal/config"
	"github.com/uday-dev/alderaan/internal/log"
)

// runMigrate applies pending database migrations and exits. Useful for
// deploy pipelines that migrate before rolling new server instances.
func runMigrate(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger.Info("running database migrations",
		"host", cfg.PostgresHost,
		"database", cfg.PostgresDBName,
	)

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations complete")
	return nil
}
