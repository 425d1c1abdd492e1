// Package uow carries the unit-of-work contract: one transaction per
// mutating request, committed once or rolled back on any error.
package uow

import (
	"context"
	"database/sql"
)

// Runner runs fn inside a transaction. Stores called with txCtx join it.
// Calls nested inside an active unit of work reuse the outer transaction.
type Runner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type ctxKey struct{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Nop runs fn directly. Used by in-memory stores and tests.
func Nop() Runner { return nopRunner{} }

type nopRunner struct{}

func (nopRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
