// Package seed inserts a batch of country records into the store.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickcap/exploronomics/countries"
	"github.com/patrickcap/exploronomics/database"
	"github.com/patrickcap/exploronomics/logging"
)

// Options configures a seed run
type Options struct {
	DBPath     string
	Records    []countries.Country
	Backup     bool
	MaxBackups int
}

// Result describes a completed seed run
type Result struct {
	Inserted   int
	BackupPath string
	Duration   time.Duration
}

// Run inserts opts.Records into the countries table of the store at
// opts.DBPath as a single batch. The connection is released on every path.
func Run(ctx context.Context, opts Options) (Result, error) {
	var result Result
	timer := logging.GetLogger().StartTimer("seed", "insert")

	if opts.Backup {
		backupPath, err := database.Backup(opts.DBPath, opts.MaxBackups)
		if err != nil {
			return result, err
		}
		result.BackupPath = backupPath
	}

	err := database.WithDB(ctx, opts.DBPath, func(db *sql.DB) error {
		n, err := countries.InsertCountries(ctx, db, opts.Records)
		if err != nil {
			return err
		}
		result.Inserted = n
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("seed %s: %w", opts.DBPath, err)
	}

	result.Duration = timer.End(fmt.Sprintf("Seeded %d countries", result.Inserted))
	return result, nil
}
