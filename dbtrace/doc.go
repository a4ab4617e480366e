// Package dbtrace turns intercepted database calls into span names and
// attributes.
//
// For every call it:
//
//   - resolves prepared statements to their SQL text and name
//   - classifies the statement by its leading SQL command
//   - obfuscates literal values, depending on the statement policy
//   - normalizes the connection context (vendor, host, port, transport)
//   - assembles the span name and attribute set
//
// All of this is pure and never fails the intercepted call. The only
// shared state is the compiled obfuscation patterns, one per vendor,
// each built on first use.
//
// # Interception
//
// Host adapters (see the sql and sqlx packages) create one Interceptor per
// connection pool and forward each call through it:
//
//	interceptor := dbtrace.NewForDSN("postgres", dsn,
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	)
//
//	rows, err := dbtrace.Do(ctx, interceptor, dbtrace.Call{
//	    Site:      dbtrace.CallQuery,
//	    Statement: dbtrace.Text(query),
//	}, func(ctx context.Context) (driver.Rows, error) {
//	    return conn.QueryContext(ctx, query, args)
//	})
//
// # Statement policy
//
//	// Input:  "SELECT * FROM users WHERE id = 123 AND name = 'john'"
//	// include:   "SELECT * FROM users WHERE id = 123 AND name = 'john'"
//	// obfuscate: "SELECT * FROM users WHERE id = ? AND name = ?"
//	// omit:      (no db.statement attribute)
//
// The literals recognized depend on db.system: MySQL double quoted strings
// and # comments are redacted, PostgreSQL $$ bodies are redacted while its
// "quoted" identifiers and $1 parameters are kept. WithQuerySanitizer
// replaces the built-in redaction with a custom function.
//
// Statements over MaxObfuscationLength characters are recorded as
// OversizedSentinel, and statements whose obfuscated form still has
// unbalanced quotes as MalformedSentinel.
//
// # Attributes
//
//   - db.operation, db.prepared_statement_name, db.statement
//   - db.system, db.user, db.name, db.instance
//   - net.peer.name, net.peer.ip, net.peer.port, net.transport
//   - peer.service
//
// Attributes with no value are never emitted.
package dbtrace
