package dbtrace

import (
	"strings"
)

// sqlCommands is the fixed vocabulary of recognized leading SQL keywords.
// A keyword outside this set is still extracted but never reported.
var sqlCommands = map[string]struct{}{
	"ABORT":      {},
	"ALTER":      {},
	"ANALYZE":    {},
	"BEGIN":      {},
	"CALL":       {},
	"CHECKPOINT": {},
	"CLOSE":      {},
	"CLUSTER":    {},
	"COMMENT":    {},
	"COMMIT":     {},
	"COPY":       {},
	"CREATE":     {},
	"DEALLOCATE": {},
	"DECLARE":    {},
	"DELETE":     {},
	"DESC":       {},
	"DESCRIBE":   {},
	"DISCARD":    {},
	"DO":         {},
	"DROP":       {},
	"END":        {},
	"EXECUTE":    {},
	"EXPLAIN":    {},
	"FETCH":      {},
	"GRANT":      {},
	"IMPORT":     {},
	"INSERT":     {},
	"LISTEN":     {},
	"LOAD":       {},
	"LOCK":       {},
	"MERGE":      {},
	"NOTIFY":     {},
	"PREPARE":    {},
	"REFRESH":    {},
	"REINDEX":    {},
	"RELEASE":    {},
	"REPLACE":    {},
	"RESET":      {},
	"REVOKE":     {},
	"ROLLBACK":   {},
	"SAVEPOINT":  {},
	"SECURITY":   {},
	"SELECT":     {},
	"SET":        {},
	"SHOW":       {},
	"START":      {},
	"TABLE":      {},
	"TRUNCATE":   {},
	"UNLISTEN":   {},
	"UPDATE":     {},
	"UPSERT":     {},
	"USE":        {},
	"VACUUM":     {},
	"VALUES":     {},
	"WITH":       {},
}

// Classification is the result of classifying a statement by its leading keyword.
type Classification struct {
	// Keyword is the upper-cased first token of the statement.
	// It is computed even when the statement is not recognized.
	Keyword string

	// Valid reports whether Keyword is a recognized SQL command.
	Valid bool
}

// Operation returns the keyword when it is valid, or an empty string.
// This is the value used for the db.operation attribute.
func (c Classification) Operation() string {
	if !c.Valid {
		return ""
	}
	return c.Keyword
}

// Classify extracts the SQL command (first word) of a statement and checks it
// against the recognized command vocabulary.
//
// Example:
//
//	Classify("select * from users") // {Keyword: "SELECT", Valid: true}
//	Classify("frobnicate users")    // {Keyword: "FROBNICATE", Valid: false}
//	Classify("   ")                 // {Keyword: "", Valid: false}
func Classify(text string) Classification {
	keyword := firstWord(text)
	if keyword == "" {
		return Classification{}
	}

	_, ok := sqlCommands[keyword]
	return Classification{Keyword: keyword, Valid: ok}
}

// firstWord returns the upper-cased first whitespace-separated token of text.
func firstWord(text string) string {
	for word := range strings.FieldsSeq(text) {
		return strings.ToUpper(word)
	}
	return ""
}

// IsSQLCommand reports whether keyword (case-insensitive) is in the
// recognized command vocabulary.
func IsSQLCommand(keyword string) bool {
	_, ok := sqlCommands[strings.ToUpper(keyword)]
	return ok
}
