package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// Querier is the part of *sqlx.DB the probe uses.
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// aliveQuery is the statement every SQL check runs.
const aliveQuery = "SELECT 1"

// NewSQL returns a probe that runs SELECT 1 on db and expects 1 back.
// resource names the database in messages.
func NewSQL(db Querier, resource string, logger *slog.Logger) health.Probe {
	return newProbe(resource, logger, func(ctx context.Context) health.Outcome {
		var one int
		if err := db.GetContext(ctx, &one, aliveQuery); err != nil {
			return classify(err)
		}
		if one != 1 {
			return health.Failed(fmt.Errorf("%s returned %d", aliveQuery, one))
		}
		return health.Available()
	})
}

// sqlDrivers maps check types to database/sql driver names.
var sqlDrivers = map[string]string{
	config.TypePostgres: "postgres",
	config.TypeSQLite:   "sqlite",
}

// OpenSQL opens a small connection pool for health queries. It does not
// connect; the first query does.
func OpenSQL(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func newSQLChecker(c config.Check, logger *slog.Logger) (health.Probe, error) {
	driver := sqlDrivers[c.Type]
	db, err := OpenSQL(driver, c.ConnectionString)
	if err != nil {
		return nil, err
	}

	// The DSN may carry credentials, so messages name the database instead.
	resource := c.Database
	if resource == "" {
		resource = driver + "/" + c.Name
	}
	p := NewSQL(db, resource, logger).(*probe)
	p.close = db.Close
	return p, nil
}
