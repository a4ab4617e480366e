// Package sqlx provides an instrumented wrapper around jmoiron/sqlx.
// Every call runs through a dbtrace.Interceptor, which emits one client
// span per statement plus duration metrics.
//
// # Quick Start
//
//	import (
//	    "github.com/kroma-labs/sentinel-db/dbtrace"
//	    sentinelsqlx "github.com/kroma-labs/sentinel-db/sqlx"
//	)
//
//	db, err := sentinelsqlx.Open("postgres", "postgres://app@db:5432/orders",
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// db.system, db.name, db.user and net.peer.* are parsed from the DSN.
// Use NewDB to wrap an existing *sql.DB; its connection context then comes
// from the driver name and options.
//
// # Span Names
//
// Spans are named after the statement's leading SQL command. Row-returning
// calls (Get, Select, Query*) append the database name:
//
//	db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = $1", 1) // "SELECT orders"
//	db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", 1)      // "DELETE"
//
// When the command is not recognized the sqlx method name is used, e.g.
// "sqlx.Exec" or "sqlx.Stmt.Get".
//
// # Prepared Statements
//
// Stmt and NamedStmt carry the text they were prepared with, so calls on
// them report the same db.statement and db.operation as direct calls.
// NamedStmt reports the bound query sent to the database.
//
// # Transactions
//
//	tx, err := db.BeginTxx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_, err = tx.ExecContext(ctx, "UPDATE accounts SET balance = balance - $1", amount)
//	if err != nil {
//	    return err
//	}
//
//	return tx.Commit()
//
// BEGIN, COMMIT and ROLLBACK are traced; COMMIT and ROLLBACK spans share
// the parent of the BEGIN span.
//
// # Metrics
//
//   - db.client.operation.duration (histogram by db.operation and db.call_site)
//   - db.client.statement.obfuscations (counter by outcome)
//   - db.client.connections.* via RecordPoolMetrics
package sqlx
