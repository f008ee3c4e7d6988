package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink writes every event to a Postgres audit table. It is optional:
// the daemon enables it only when an audit DSN is configured, and the
// file spool remains the default.
type PGSink struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

const createAuditTable = `
CREATE TABLE IF NOT EXISTS routing_events (
	seq        BIGINT PRIMARY KEY,
	id         UUID NOT NULL,
	at         TIMESTAMPTZ NOT NULL,
	kind       TEXT NOT NULL,
	source     TEXT,
	sink       TEXT,
	connected  BOOLEAN,
	client     TEXT,
	profile    TEXT,
	service    TEXT,
	running    BOOLEAN
)`

// NewPGSink connects to the audit database and ensures the schema exists.
func NewPGSink(ctx context.Context, dsn string) (*PGSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if _, err := pool.Exec(ctx, createAuditTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &PGSink{pool: pool, timeout: 2 * time.Second}, nil
}

// Write implements Sink.
func (s *PGSink) Write(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO routing_events
			(seq, id, at, kind, source, sink, connected, client, profile, service, running)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (seq) DO NOTHING`,
		ev.Seq, ev.ID, ev.Time, string(ev.Kind),
		ev.Source, ev.Sink, ev.Connected, ev.Client, ev.Profile, ev.Service, ev.Running)
	return err
}

// Close releases the connection pool.
func (s *PGSink) Close() {
	s.pool.Close()
}
