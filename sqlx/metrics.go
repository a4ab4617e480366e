package sqlx

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	sentinelsql "github.com/kroma-labs/sentinel-db/sql"
)

// RecordPoolMetrics registers connection pool metrics for a sqlx database.
// db.system, db.name and db.instance come from the DB's connection context;
// provided attributes are appended.
//
// Example:
//
//	db, _ := sentinelsqlx.Open("postgres", dsn,
//	    dbtrace.WithInstanceName("replica"),
//	)
//
//	err := sentinelsqlx.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if db.ic != nil {
		attrs = append(db.ic.MetricAttributes(), attrs...)
	}

	return sentinelsql.RecordPoolMetrics(db.DB.DB, meter, attrs...)
}
