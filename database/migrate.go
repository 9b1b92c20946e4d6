package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies numSteps pending migrations, or all of them when numSteps is 0.
// A database that is already up to date is not an error.
func MigrateUp(m Migrator, numSteps uint) error {
	var err error
	if numSteps == 0 {
		err = m.Up()
	} else {
		if numSteps > math.MaxInt {
			return fmt.Errorf("number of steps exceeds maximum allowed value")
		}
		err = m.Steps(int(numSteps)) // #nosec G115 -- overflow checked above
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateDown reverts numSteps migrations, or every migration when numSteps is 0.
func MigrateDown(m Migrator, numSteps uint) error {
	var err error
	if numSteps == 0 {
		err = m.Down()
	} else {
		if numSteps > math.MaxInt {
			return fmt.Errorf("number of steps exceeds maximum allowed value")
		}
		err = m.Steps(-1 * int(numSteps)) // #nosec G115 -- overflow checked above
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
