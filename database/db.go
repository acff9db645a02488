package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/pulse/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunArchiveTableSQL = "CREATE TABLE IF NOT EXISTS runarchive (id TEXT PRIMARY KEY, name TEXT, kind TEXT, status TEXT, createdon INTEGER, startedon INTEGER, endedon INTEGER, exitcode INTEGER, error TEXT, finalroi REAL)"
	persistRunSummarySQL     = "INSERT OR REPLACE INTO runarchive(id, name, kind, status, createdon, startedon, endedon, exitcode, error, finalroi) VALUES(?,?,?,?,?,?,?,?,?,?)"
)

// RunArchiver defines the requirements for archiving settled runs.
type RunArchiver interface {
	// ArchiveRun stores the provided settled run's summary to the database.
	ArchiveRun(ctx context.Context, run *shared.RunRecord, finalROI float64, hasROI bool) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunArchiver interface.
var _ RunArchiver = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunArchiveTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// unixMillisOrZero converts an optional time to unix milliseconds, zero when
// the time is unset.
func unixMillisOrZero(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}

	return ts.UnixMilli()
}

// ArchiveRun stores the provided settled run's summary to the database.
func (db *Database) ArchiveRun(ctx context.Context, run *shared.RunRecord, finalROI float64, hasROI bool) error {
	var exitCode int
	if run.ExitCode != nil {
		exitCode = *run.ExitCode
	}

	var roi any
	if hasROI {
		roi = finalROI
	}

	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistRunSummarySQL,
			PositionalParams: []any{run.ID, run.Name, run.Kind.String(), run.Status.String(),
				unixMillisOrZero(run.CreatedAt), unixMillisOrZero(run.StartedAt),
				unixMillisOrZero(run.EndedAt), exitCode, run.Error, roi},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", run.ID, err)
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("archiving run %s: %d -> %s", run.ID, idx, errStr)
	}

	db.cfg.Logger.Debug().Msgf("archived run summary: %s", spew.Sdump(run))

	return nil
}
