package sqlx

import "github.com/kroma-labs/sentinel-db/dbtrace"

// queryCall describes a row-returning call. typ names the sqlx method and
// becomes the span name when the query has no recognized operation.
func queryCall(typ, query string) dbtrace.Call {
	return dbtrace.Call{
		Site:      dbtrace.CallQuery,
		Statement: dbtrace.Text(query),
		Options:   dbtrace.CallOptions{Type: typ},
	}
}

// execCall describes a call that returns no rows; its site follows the
// statement's operation.
func execCall(typ, query string) dbtrace.Call {
	return dbtrace.Call{
		Site:      dbtrace.SiteFor(dbtrace.Classify(query)),
		Statement: dbtrace.Text(query),
		Options:   dbtrace.CallOptions{Type: typ},
	}
}

// preparedCall describes a call on a prepared statement handle.
func preparedCall(site dbtrace.CallSite, typ string, src dbtrace.PreparedSource) dbtrace.Call {
	return dbtrace.Call{
		Site:      site,
		Statement: dbtrace.Statement{Handle: src},
		Options:   dbtrace.CallOptions{Type: typ},
		Prepared:  src,
	}
}
