package kvstore

import (
	"context"
	"fmt"
)

// Drivers accepted by OpenBackend.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// OpenBackend opens the backend named by driver. path is used by sqlite,
// dsn by postgres.
func OpenBackend(ctx context.Context, driver, path, dsn string) (Backend, error) {
	switch driver {
	case "", DriverSQLite:
		return OpenSQLite(path)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	case DriverMemory:
		return NewMemory(0), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
