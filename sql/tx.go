package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Compile-time interface check.
var _ driver.Tx = (*otelTx)(nil)

// otelTx wraps a driver.Tx with OpenTelemetry instrumentation.
type otelTx struct {
	tx driver.Tx
	ic *dbtrace.Interceptor

	// ctx is the context the transaction was started with. driver.Tx
	// methods take none, so COMMIT and ROLLBACK spans parent to it.
	ctx context.Context
}

// newOtelTx creates a new instrumented transaction.
func newOtelTx(ctx context.Context, tx driver.Tx, ic *dbtrace.Interceptor) *otelTx {
	return &otelTx{
		tx:  tx,
		ic:  ic,
		ctx: ctx,
	}
}

// Commit implements driver.Tx.
func (t *otelTx) Commit() error {
	return t.ic.Intercept(t.ctx, dbtrace.Call{
		Site:      dbtrace.CallExecute,
		Statement: dbtrace.Text("COMMIT"),
		Options:   dbtrace.CallOptions{Type: typeTxCommit},
	}, func(context.Context) error {
		return t.tx.Commit()
	})
}

// Rollback implements driver.Tx.
func (t *otelTx) Rollback() error {
	return t.ic.Intercept(t.ctx, dbtrace.Call{
		Site:      dbtrace.CallExecute,
		Statement: dbtrace.Text("ROLLBACK"),
		Options:   dbtrace.CallOptions{Type: typeTxAbort},
	}, func(context.Context) error {
		return t.tx.Rollback()
	})
}
