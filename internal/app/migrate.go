package app

import (
	"errors"
	"fmt"
	"os"

	"pizza-index-watcher/internal/config"
	"pizza-index-watcher/internal/storage"
)

// Migrate applies the embedded schema migrations to the configured database.
func (a *App) Migrate() error {
	if a.Config.Storage.Backend != config.BackendPostgres {
		return errors.New("migrations apply to the postgres backend only")
	}

	changed, err := storage.Migrate(a.Config.Storage.Database.DSN)
	if err != nil {
		return err
	}

	if changed {
		fmt.Fprintln(os.Stdout, "migrations applied")
	} else {
		fmt.Fprintln(os.Stdout, "database already up to date")
	}
	return nil
}
