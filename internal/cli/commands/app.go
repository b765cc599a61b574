package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/cli/ui"
	"github.com/habitnation/habitnation/internal/config"
	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/web/auth"
)

// errReported marks errors whose explanation was already printed
var errReported = errors.New("command failed")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// openDatabase connects to the configured database, printing a friendly
// explanation when that fails
func openDatabase(cmd *cobra.Command, cfg config.DatabaseConfig) (*store.DB, error) {
	db, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.DatabaseError(err.Error(), color.NoColor))
		return nil, reported(err)
	}
	return db, nil
}

// openMigratedDatabase opens the database and applies pending migrations so
// one-shot commands work against a fresh database
func openMigratedDatabase(cmd *cobra.Command, cfg config.DatabaseConfig) (*store.DB, error) {
	db, err := openDatabase(cmd, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := migrateLatest(cmd.Context(), db, zap.NewNop()); err != nil {
		db.Close()
		fmt.Fprint(cmd.ErrOrStderr(), ui.DatabaseError("migrate: "+err.Error(), color.NoColor))
		return nil, reported(err)
	}
	return db, nil
}

// migrateLatest applies pending migrations and returns how many ran
func migrateLatest(ctx context.Context, db *store.DB, logger *zap.Logger) (int, error) {
	return db.Migrator(logger).MigrateUp(ctx, store.Migrations(db.Dialect))
}

// offlineService builds a service without cache, realtime or jobs for
// one-shot administrative commands
func offlineService(cfg *config.Config, db *store.DB, logger *zap.Logger) *service.Service {
	return service.New(store.New(db), auth.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), service.WithLogger(logger))
}
