// Package catalogstore is the catalog's relational backing store: it
// implements C1 (Identifier & Status Registry), C2 (Metadata Store), C3
// (Commit Engine) and C4 (Warehouse & Secret Manager) against a SQL
// database, following the connection/retry/tracing shape the donor
// project's Dolt backend uses for its own storage engine.
package catalogstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/dolthub/driver" // embedded Dolt driver, registers as "dolt" (CGO)
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the connection to the relational backing store. The
// catalog supports the same two connection modes the donor's Dolt backend
// does: embedded (CGO, no server) and server mode (pure Go, multi-writer).
type Config struct {
	// ServerMode selects the go-sql-driver/mysql path; otherwise the
	// embedded dolthub/driver path is used.
	ServerMode bool

	// Embedded mode.
	Path     string // directory holding the embedded Dolt database
	Database string // database name (default "catalogd")

	// Server mode.
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string

	// MaxOpenConns/MaxIdleConns size the store's single connection pool,
	// which serves both read and write transactions (see Store).
	MaxOpenConns int
	MaxIdleConns int
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = "catalogd"
	}
	if c.ServerMode {
		if c.ServerHost == "" {
			c.ServerHost = "127.0.0.1"
		}
		if c.ServerPort == 0 {
			c.ServerPort = 3306
		}
		if c.ServerUser == "" {
			c.ServerUser = "root"
		}
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 16
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 4
	}
}

func (c *Config) dsn() (driver, dsn string) {
	if c.ServerMode {
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			c.ServerUser, c.ServerPassword, c.ServerHost, c.ServerPort, c.Database)
	}
	return "dolt", fmt.Sprintf("file://%s?commitname=catalogd&commitemail=catalogd@local&database=%s",
		c.Path, c.Database)
}

// Store owns the catalog's connection pools. Read and write are the same
// *sql.DB in this implementation (the driver's own pool already separates
// concurrent readers from a single writer via row/table locking); the
// distinction named in spec §5 is enforced at the call-site level: every
// mutating method runs inside a single transaction obtained from
// RunInWriteTx, and no read path ever takes a write lock.
type Store struct {
	db         *sql.DB
	serverMode bool
}

var tracer = otel.Tracer("github.com/icebase/catalogd/catalogstore")

// Open connects to the backing store and ensures the catalog schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.applyDefaults()
	driverName, dsn := cfg.dsn()

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalogstore: ping: %w", err)
	}

	s := &Store{db: db, serverMode: cfg.ServerMode}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// withRetry retries transient connection errors in server mode only; the
// embedded driver already retries internally (donor's dolt/store.go idiom).
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.serverMode {
		return op()
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func isRetryableError(err error) bool {
	s := strings.ToLower(err.Error())
	for _, substr := range []string{
		"driver: bad connection", "invalid connection", "broken pipe",
		"connection reset", "connection refused", "lost connection",
		"gone away", "i/o timeout",
	} {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func (s *Store) span(ctx context.Context, op, stmt string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "catalogstore."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", op),
			attribute.String("db.statement", truncate(stmt, 300)),
		))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
