package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

const (
	insertTriple = "INSERT OR IGNORE INTO triples (subject, predicate, object, datatype) VALUES (?, ?, ?, ?)"
	selectValue  = "SELECT object, datatype FROM triples WHERE subject = ? AND predicate = ? ORDER BY id"
	clearValue   = "DELETE FROM triples WHERE subject = ? AND predicate = ?"

	bumpCounterReturning = `INSERT INTO counters (pattern, value) VALUES (?, 1)
        ON CONFLICT(pattern) DO UPDATE SET value = counters.value + 1 RETURNING value`
	bumpCounter = `INSERT INTO counters (pattern, value) VALUES (?, 1)
        ON CONFLICT(pattern) DO UPDATE SET value = counters.value + 1`
	readCounter = "SELECT value FROM counters WHERE pattern = ?"
	setCounter  = "UPDATE counters SET value = ? WHERE pattern = ?"
)

// Store is the triple.Store of one project database. A Store obtained from
// InTx runs every call inside that transaction.
type Store struct {
	dm      *DBManager
	project string
	db      *sql.DB
	tx      *sql.Tx
}

var (
	_ triple.Store      = (*Store)(nil)
	_ triple.Transactor = (*Store)(nil)
)

// Project returns the project the store belongs to.
func (s *Store) Project() string { return s.project }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// exec runs a fixed statement. Outside a transaction the statement comes
// from the per-project cache; inside one it runs on the transaction's
// connection directly.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	stmt, err := s.dm.getPreparedStmt(ctx, s.project, s.db, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.tx != nil {
		return s.tx.QueryContext(ctx, query, args...)
	}
	stmt, err := s.dm.getPreparedStmt(ctx, s.project, s.db, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// InTx runs fn in a transaction. Calls made on a transactional store join
// the running transaction.
func (s *Store) InTx(ctx context.Context, fn func(triple.Store) error) error {
	return s.atomically(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) atomically(ctx context.Context, fn func(*Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&Store{dm: s.dm, project: s.project, db: s.db, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, t triple.Triple) error {
	done := metrics.TimeOp("db_insert")
	success := false
	defer func() { done(success) }()

	lexical, datatype := triple.Encode(t.Object)
	if _, err := s.exec(ctx, insertTriple, t.Subject, t.Predicate, lexical, datatype); err != nil {
		return fmt.Errorf("failed to insert triple %s: %w", t, err)
	}
	success = true
	return nil
}

func (s *Store) Replace(ctx context.Context, t triple.Triple) error {
	done := metrics.TimeOp("db_replace")
	success := false
	defer func() { done(success) }()

	err := s.atomically(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx, clearValue, t.Subject, t.Predicate); err != nil {
			return fmt.Errorf("failed to clear %s %s: %w", t.Subject, t.Predicate, err)
		}
		lexical, datatype := triple.Encode(t.Object)
		if _, err := tx.exec(ctx, insertTriple, t.Subject, t.Predicate, lexical, datatype); err != nil {
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
	done := metrics.TimeOp("db_delete")
	success := false
	defer func() { done(success) }()

	where, args := wherePattern(p)
	if _, err := s.q().ExecContext(ctx, "DELETE FROM triples"+where, args...); err != nil {
		return fmt.Errorf("failed to delete triples: %w", err)
	}
	success = true
	return nil
}

func (s *Store) Select(ctx context.Context, p triple.Pattern) ([]triple.Triple, error) {
	done := metrics.TimeOp("db_select")
	success := false
	defer func() { done(success) }()

	where, args := wherePattern(p)
	rows, err := s.q().QueryContext(ctx, "SELECT subject, predicate, object, datatype FROM triples"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triples: %w", err)
	}
	defer rows.Close()

	var out []triple.Triple
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
	done := metrics.TimeOp("db_value")
	success := false
	defer func() { done(success) }()

	rows, err := s.query(ctx, selectValue, subject, predicate)
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

// NextIndex bumps the pattern's counter under the transaction's write lock,
// then raises it to the number of distinct values already stored if that is
// higher.
func (s *Store) NextIndex(ctx context.Context, p triple.Pattern, pos triple.Position) (int64, error) {
	done := metrics.TimeOp("db_next_index")
	success := false
	defer func() { done(success) }()

	column, err := positionColumn(pos)
	if err != nil {
		return 0, err
	}
	key := triple.CounterKey(p, pos)
	returning := s.dm.capabilities(s.project).returning

	var next int64
	err = s.atomically(ctx, func(tx *Store) error {
		var err error
		if returning {
			err = tx.q().QueryRowContext(ctx, bumpCounterReturning, key).Scan(&next)
		} else {
			if _, err = tx.q().ExecContext(ctx, bumpCounter, key); err == nil {
				err = tx.q().QueryRowContext(ctx, readCounter, key).Scan(&next)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to bump counter %s: %w", key, err)
		}

		where, args := wherePattern(p)
		var existing int64
		if err := tx.q().QueryRowContext(ctx, "SELECT COUNT(DISTINCT "+column+") FROM triples"+where, args...).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count %s: %w", column, err)
		}
		if existing >= next {
			next = existing + 1
			if _, err := tx.q().ExecContext(ctx, setCounter, next, key); err != nil {
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

// wherePattern renders the bound parts of p as a WHERE clause.
func wherePattern(p triple.Pattern) (string, []any) {
	var conds []string
	var args []any
	if p.Subject != "" {
		conds = append(conds, "subject = ?")
		args = append(args, p.Subject)
	}
	if p.Predicate != "" {
		conds = append(conds, "predicate = ?")
		args = append(args, p.Predicate)
	}
	if p.Object != nil {
		lexical, datatype := triple.Encode(p.Object)
		conds = append(conds, "object = ?", "datatype = ?")
		args = append(args, lexical, datatype)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
