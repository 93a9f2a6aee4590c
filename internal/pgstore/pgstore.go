// Package pgstore stores triples in PostgreSQL. Projects share one database
// and are kept apart by the graph column.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS triples (
		id BIGSERIAL PRIMARY KEY,
		graph TEXT NOT NULL,
		subject TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object TEXT NOT NULL,
		datatype TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (graph, subject, predicate, object, datatype)
	)`,
	`CREATE TABLE IF NOT EXISTS counters (
		graph TEXT NOT NULL,
		pattern TEXT NOT NULL,
		value BIGINT NOT NULL,
		PRIMARY KEY (graph, pattern)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_triples_graph_subject_predicate ON triples(graph, subject, predicate)`,
	`CREATE INDEX IF NOT EXISTS idx_triples_graph_predicate_object ON triples(graph, predicate, object)`,
}

// Pool is a connection pool with the triple schema in place.
type Pool struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect opens a pool for connStr, checks it answers and creates the schema.
func Connect(ctx context.Context, connStr string, log zerolog.Logger) (*Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	p := &Pool{pool: pool, log: log.With().Str("component", "postgres").Logger()}
	if err := p.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pool) initialize(ctx context.Context) error {
	done := metrics.TimeOp("pg_initialize")
	success := false
	defer func() { done(success) }()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, statement := range schema {
		if _, err := tx.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.log.Debug().Msg("schema ready")
	success = true
	return nil
}

// Store returns the triple store of one graph.
func (p *Pool) Store(graph string) (*Store, error) {
	if strings.TrimSpace(graph) == "" {
		return nil, errors.New("graph name cannot be empty")
	}
	return &Store{pool: p, graph: graph, db: p.pool}, nil
}

// Ping checks the database answers.
func (p *Pool) Ping(ctx context.Context) error {
	stat := p.pool.Stat()
	metrics.Default().ObservePoolStats(int(stat.AcquiredConns()), int(stat.IdleConns()))
	return p.pool.Ping(ctx)
}

// Close releases every connection.
func (p *Pool) Close() {
	p.pool.Close()
}

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the triple.Store of one graph.
type Store struct {
	pool  *Pool
	graph string
	db    dbtx
	tx    pgx.Tx
}

var (
	_ triple.Store      = (*Store)(nil)
	_ triple.Transactor = (*Store)(nil)
)

// Graph returns the graph the store writes to.
func (s *Store) Graph() string { return s.graph }

// InTx runs fn in a transaction; calls on a transactional store join it.
func (s *Store) InTx(ctx context.Context, fn func(triple.Store) error) error {
	return s.atomically(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) atomically(ctx context.Context, fn func(*Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.pool.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(&Store{pool: s.pool, graph: s.graph, db: tx, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const insertTriple = `INSERT INTO triples (graph, subject, predicate, object, datatype)
	VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`

func (s *Store) Insert(ctx context.Context, t triple.Triple) error {
	done := metrics.TimeOp("pg_insert")
	success := false
	defer func() { done(success) }()

	lexical, datatype := triple.Encode(t.Object)
	if _, err := s.db.Exec(ctx, insertTriple, s.graph, t.Subject, t.Predicate, lexical, datatype); err != nil {
		return fmt.Errorf("failed to insert triple %s: %w", t, err)
	}
	success = true
	return nil
}

func (s *Store) Replace(ctx context.Context, t triple.Triple) error {
	done := metrics.TimeOp("pg_replace")
	success := false
	defer func() { done(success) }()

	err := s.atomically(ctx, func(tx *Store) error {
		if _, err := tx.db.Exec(ctx, `DELETE FROM triples WHERE graph = $1 AND subject = $2 AND predicate = $3`,
			s.graph, t.Subject, t.Predicate); err != nil {
			return fmt.Errorf("failed to clear %s %s: %w", t.Subject, t.Predicate, err)
		}
		lexical, datatype := triple.Encode(t.Object)
		if _, err := tx.db.Exec(ctx, insertTriple, s.graph, t.Subject, t.Predicate, lexical, datatype); err != nil {
			return fmt.Errorf("failed to insert triple %s: %w", t, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	success = true
	return nil
}

func (s *Store) Delete(ctx context.Context, p triple.Pattern) error {
	done := metrics.TimeOp("pg_delete")
	success := false
	defer func() { done(success) }()

	where, args := wherePattern(s.graph, p)
	if _, err := s.db.Exec(ctx, "DELETE FROM triples"+where, args...); err != nil {
		return fmt.Errorf("failed to delete triples: %w", err)
	}
	success = true
	return nil
}

func (s *Store) Select(ctx context.Context, p triple.Pattern) ([]triple.Triple, error) {
	done := metrics.TimeOp("pg_select")
	success := false
	defer func() { done(success) }()

	where, args := wherePattern(s.graph, p)
	rows, err := s.db.Query(ctx, "SELECT subject, predicate, object, datatype FROM triples"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triples: %w", err)
	}
	defer rows.Close()

	out := make([]triple.Triple, 0)
	for rows.Next() {
		var t triple.Triple
		var lexical, datatype string
		if err := rows.Scan(&t.Subject, &t.Predicate, &lexical, &datatype); err != nil {
			return nil, fmt.Errorf("failed to scan triple: %w", err)
		}
		t.Object = triple.Decode(lexical, datatype)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	success = true
	return out, nil
}

func (s *Store) Value(ctx context.Context, subject, predicate string) ([]quad.Value, error) {
	done := metrics.TimeOp("pg_value")
	success := false
	defer func() { done(success) }()

	rows, err := s.db.Query(ctx, `SELECT object, datatype FROM triples
		WHERE graph = $1 AND subject = $2 AND predicate = $3 ORDER BY id`, s.graph, subject, predicate)
	if err != nil {
		return nil, fmt.Errorf("failed to query value: %w", err)
	}
	defer rows.Close()

	var out []quad.Value
	for rows.Next() {
		var lexical, datatype string
		if err := rows.Scan(&lexical, &datatype); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, triple.Decode(lexical, datatype))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	success = true
	return out, nil
}

// NextIndex bumps the counter row, which holds its row lock until commit, and
// lifts it past the distinct values already stored.
func (s *Store) NextIndex(ctx context.Context, p triple.Pattern, pos triple.Position) (int64, error) {
	done := metrics.TimeOp("pg_next_index")
	success := false
	defer func() { done(success) }()

	column, err := positionColumn(pos)
	if err != nil {
		return 0, err
	}
	key := triple.CounterKey(p, pos)

	var next int64
	err = s.atomically(ctx, func(tx *Store) error {
		if err := tx.db.QueryRow(ctx, `INSERT INTO counters (graph, pattern, value) VALUES ($1, $2, 1)
			ON CONFLICT (graph, pattern) DO UPDATE SET value = counters.value + 1 RETURNING value`,
			s.graph, key).Scan(&next); err != nil {
			return fmt.Errorf("failed to bump counter %s: %w", key, err)
		}

		where, args := wherePattern(s.graph, p)
		var existing int64
		if err := tx.db.QueryRow(ctx, "SELECT COUNT(DISTINCT "+column+") FROM triples"+where, args...).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count %s: %w", column, err)
		}
		if existing >= next {
			next = existing + 1
			if _, err := tx.db.Exec(ctx, `UPDATE counters SET value = $1 WHERE graph = $2 AND pattern = $3`,
				next, s.graph, key); err != nil {
				return fmt.Errorf("failed to set counter %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	success = true
	return next, nil
}

func positionColumn(pos triple.Position) (string, error) {
	switch pos {
	case triple.Subject:
		return "subject", nil
	case triple.Predicate:
		return "predicate", nil
	case triple.Object:
		return "object || '^^' || datatype", nil
	}
	return "", errors.New("unknown position " + pos.String())
}

// wherePattern renders the graph and the bound parts of p with numbered
// placeholders.
func wherePattern(graph string, p triple.Pattern) (string, []any) {
	conds := []string{"graph = $1"}
	args := []any{graph}
	add := func(column string, v any) {
		args = append(args, v)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if p.Subject != "" {
		add("subject", p.Subject)
	}
	if p.Predicate != "" {
		add("predicate", p.Predicate)
	}
	if p.Object != nil {
		lexical, datatype := triple.Encode(p.Object)
		add("object", lexical)
		add("datatype", datatype)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
