package catalogstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx wraps a single SQL transaction. Every mutating catalog operation opens
// exactly one (spec §5, "one write transaction per mutating op"); no
// operation ever holds an ambient transaction across calls (spec §9,
// "Transactional handle").
type Tx struct {
	store *Store
	tx    *sql.Tx
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	_, span := t.store.span(ctx, "exec", query)
	var res sql.Result
	err := t.store.withRetry(ctx, func() error {
		var execErr error
		res, execErr = t.tx.ExecContext(ctx, query, args...)
		return execErr
	})
	endSpan(span, err)
	return res, err
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	_, span := t.store.span(ctx, "query", query)
	var rows *sql.Rows
	err := t.store.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = t.tx.QueryContext(ctx, query, args...)
		return queryErr
	})
	endSpan(span, err)
	return rows, err
}

func (t *Tx) queryRow(ctx context.Context, scan func(*sql.Row) error, query string, args ...any) error {
	_, span := t.store.span(ctx, "query_row", query)
	err := t.store.withRetry(ctx, func() error {
		return scan(t.tx.QueryRowContext(ctx, query, args...))
	})
	endSpan(span, err)
	return err
}

// RunInWriteTx runs fn inside a single write transaction: commit on a nil
// return, rollback otherwise (or on panic). The isolation level matches
// spec §5's "single serializable (or repeatable-read with explicit row
// checks)" requirement.
func (s *Store) RunInWriteTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("catalogstore: begin write tx: %w", err)
	}
	tx := &Tx{store: s, tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("catalogstore: commit: %w", err)
	}
	return nil
}

// RunInReadTx runs fn inside a read-committed transaction. Reads racing a
// concurrent commit are safe because the commit engine's optimistic
// concurrency checks — not isolation — are what guarantees correctness
// (spec §5).
func (s *Store) RunInReadTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("catalogstore: begin read tx: %w", err)
	}
	tx := &Tx{store: s, tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}
