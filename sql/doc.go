// Package sql provides an instrumented database/sql driver wrapper
// with automatic OpenTelemetry tracing and metrics.
//
// # Features
//
//   - One client span per statement, named by its SQL operation
//   - db.statement recorded as-is, obfuscated, or omitted (dbtrace.Policy)
//   - Connection attributes (db.system, db.name, net.peer.*) parsed from the DSN
//   - Prepared statements traced with the text they were prepared with
//   - Connection pool metrics
//   - Full compatibility with database/sql interface
//
// # Quick Start
//
// Open a database connection with instrumentation:
//
//	import sentinelsql "github.com/kroma-labs/sentinel-db/sql"
//
//	db, err := sentinelsql.Open("postgres", dsn,
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	    dbtrace.WithInstanceName("primary"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	// Use like standard *sql.DB
//	rows, err := db.QueryContext(ctx, "SELECT * FROM users WHERE id = 42")
//
// The query above produces a span named "SELECT mydb" carrying
// db.statement "SELECT * FROM users WHERE id = ?".
//
// # Driver Registration
//
// For more control, register a wrapped driver:
//
//	driver := sentinelsql.WrapDriver(pq.Driver{},
//	    dbtrace.WithDBSystem("postgres"),
//	)
//	sql.Register("postgres-instrumented", driver)
//
//	db, _ := sql.Open("postgres-instrumented", dsn)
//
// # Observability
//
// Traces:
//   - Span per Exec/Query (conn and prepared statement), BEGIN, COMMIT, ROLLBACK and PING
//   - Attributes: db.system, db.name, db.user, db.statement, db.operation,
//     db.prepared_statement_name, net.peer.name, net.peer.ip, net.peer.port,
//     net.transport, peer.service, db.instance
//
// Metrics:
//   - db.client.operation.duration (histogram by operation and call site)
//   - db.client.statement.obfuscations (counter by outcome)
//   - db.client.connections.* via RecordPoolMetrics
package sql
