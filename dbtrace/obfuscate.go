package dbtrace

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

const (
	// MaxObfuscationLength is the largest statement, in characters (runes),
	// that is run through the literal pattern. Larger statements are
	// replaced by OversizedSentinel.
	MaxObfuscationLength = 2000

	// OversizedSentinel replaces statements longer than MaxObfuscationLength.
	OversizedSentinel = "SQL query too large to remove sensitive data ..."

	// MalformedSentinel replaces statements whose obfuscated form still
	// contains unbalanced quote or comment delimiters.
	MalformedSentinel = "Failed to obfuscate SQL query - quote characters remained after obfuscation"

	placeholder = "?"
)

// Outcome describes what the obfuscator did to a statement.
type Outcome int

const (
	// OutcomeUnchanged means obfuscation did not run (policy is not obfuscate).
	OutcomeUnchanged Outcome = iota
	// OutcomeRedacted means literal values were replaced by placeholders.
	OutcomeRedacted
	// OutcomeOversized means the statement was replaced by OversizedSentinel.
	OutcomeOversized
	// OutcomeMalformed means the statement was replaced by MalformedSentinel.
	OutcomeMalformed
)

// String returns the outcome name used in metrics and logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeRedacted:
		return "redacted"
	case OutcomeOversized:
		return "oversized"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unchanged"
	}
}

// ObfuscationResult is the text to record and how it was produced.
type ObfuscationResult struct {
	Text    string
	Outcome Outcome
}

// literalComponent is one literal shape recognized by the obfuscator.
// keep marks shapes that are matched only so that no later component
// consumes part of them; they are written back verbatim.
//
// Patterns must not contain capturing groups.
type literalComponent struct {
	name    string
	pattern string
	keep    bool
}

var literalComponents = []literalComponent{
	// $1, $2 bind parameters are not literals.
	{name: "bind_parameters", pattern: `\$[0-9]+`, keep: true},
	// q'[text]', q'{text}', q'<text>', q'(text)'
	{name: "oracle_quoted_strings", pattern: `(?s:q'\[.*?\]'|q'\{.*?\}'|q'<.*?>'|q'\(.*?\)')`},
	// 'john', 'it''s', 'it\'s'
	{name: "single_quotes", pattern: `'(?:''|[^'\\]|\\.)*'`},
	// "john", "say ""hi"""
	{name: "double_quotes", pattern: `"(?:""|[^"\\]|\\.)*"`},
	// $$ body $$
	{name: "dollar_quotes", pattern: `(?s:\$\$.*?\$\$)`},
	// /* comment */
	{name: "multi_line_comments", pattern: `(?s:/\*.*?\*/)`},
	// -- comment
	{name: "comments", pattern: `--[^\r\n]*`},
	// # comment
	{name: "hash_comments", pattern: `#[^\r\n]*`},
	// {123e4567-e89b-12d3-a456-426614174000}
	{name: "uuids", pattern: `\{?(?:[0-9a-fA-F]-*){32}\}?`},
	// 0xDEADBEEF
	{name: "hexadecimal_literals", pattern: `0[xX][0-9a-fA-F]+`},
	// 123, -4.5, 1e10
	{name: "numeric_literals", pattern: `-?\b(?:[0-9]+\.)?[0-9]+(?:[eE][+-]?[0-9]+)?\b`},
	// TRUE, false, NULL
	{name: "boolean_literals", pattern: `(?i:\b(?:true|false|null)\b)`},
}

// dialect is the set of literal components recognized for one db.system
// value. Order is precedence: at a given position the first matching
// component wins.
type dialect struct {
	components []literalComponent

	// pattern holds the compiled alternation once built. It is published
	// with a plain store: concurrent first callers may each compile it, and
	// any of their results is a valid value to keep.
	pattern atomic.Pointer[regexp.Regexp]
}

func newDialect(names ...string) *dialect {
	d := &dialect{components: make([]literalComponent, 0, len(names))}
	for _, name := range names {
		d.components = append(d.components, componentNamed(name))
	}
	return d
}

func componentNamed(name string) literalComponent {
	for _, c := range literalComponents {
		if c.name == name {
			return c
		}
	}
	panic("dbtrace: unknown literal component " + name)
}

var (
	postgresDialect = newDialect(
		"bind_parameters", "single_quotes", "dollar_quotes", "multi_line_comments", "comments",
		"uuids", "hexadecimal_literals", "numeric_literals", "boolean_literals",
	)
	mysqlDialect = newDialect(
		"single_quotes", "double_quotes", "multi_line_comments", "comments", "hash_comments",
		"uuids", "hexadecimal_literals", "numeric_literals", "boolean_literals",
	)
	sqliteDialect = newDialect(
		"single_quotes", "multi_line_comments", "comments",
		"hexadecimal_literals", "numeric_literals", "boolean_literals",
	)
	oracleDialect = newDialect(
		"oracle_quoted_strings", "single_quotes", "multi_line_comments", "comments",
		"numeric_literals",
	)
	// fallbackDialect serves vendors without a dedicated set. It redacts
	// every quoting style, so quoted identifiers are replaced too.
	fallbackDialect = newDialect(
		"bind_parameters", "single_quotes", "double_quotes", "dollar_quotes", "multi_line_comments",
		"comments", "uuids", "hexadecimal_literals", "numeric_literals", "boolean_literals",
	)
)

var dialects = map[string]*dialect{
	"postgresql": postgresDialect,
	"mysql":      mysqlDialect,
	"sqlite":     sqliteDialect,
	"oracle":     oracleDialect,
}

// dialectFor returns the literal set for a db.system value.
func dialectFor(vendor string) *dialect {
	if d, ok := dialects[vendor]; ok {
		return d
	}
	return fallbackDialect
}

// compiled returns the dialect's pattern, compiling it on first use.
func (d *dialect) compiled() *regexp.Regexp {
	if re := d.pattern.Load(); re != nil {
		return re
	}
	re := compileLiteralPattern(d.components)
	d.pattern.Store(re)
	return re
}

// compileLiteralPattern joins the component patterns into one alternation
// with one group per component, in order.
func compileLiteralPattern(components []literalComponent) *regexp.Regexp {
	parts := make([]string, len(components))
	for i, c := range components {
		parts[i] = "(" + c.pattern + ")"
	}
	return regexp.MustCompile(strings.Join(parts, "|"))
}

// redact replaces every literal in text with the placeholder.
func (d *dialect) redact(text string) string {
	matches := d.compiled().FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		if d.matched(m).keep {
			b.WriteString(text[m[0]:m[1]])
		} else {
			b.WriteString(placeholder)
		}
		last = m[1]
	}
	b.WriteString(text[last:])

	return b.String()
}

// matched returns the component whose group took part in match m.
func (d *dialect) matched(m []int) literalComponent {
	for i, c := range d.components {
		if m[2+2*i] >= 0 {
			return c
		}
	}
	return literalComponent{}
}

// Warmup compiles the obfuscation patterns ahead of the first intercepted
// call. Calling it is optional.
func Warmup() {
	for _, d := range dialects {
		d.compiled()
	}
	fallbackDialect.compiled()
}

// Obfuscate applies the statement policy to text using the PostgreSQL
// literal set. Use ObfuscateFor when the database vendor is known.
//
// Only PolicyObfuscate modifies the text; every other policy returns it
// unchanged (whether it is recorded at all is decided by Assemble).
//
// Example:
//
//	Obfuscate("SELECT * FROM users WHERE id = 1", PolicyObfuscate)
//	// {Text: "SELECT * FROM users WHERE id = ?", Outcome: OutcomeRedacted}
//
//	Obfuscate("SELECT * FROM users WHERE name = 'O'Reilly'", PolicyObfuscate)
//	// {Text: MalformedSentinel, Outcome: OutcomeMalformed}
func Obfuscate(text string, policy Policy) ObfuscationResult {
	return obfuscateWith(postgresDialect.redact, text, policy)
}

// ObfuscateFor applies the statement policy to text using the literal set
// of vendor, a db.system value such as "postgresql" or "mysql". Vendors
// without a dedicated set get one that redacts every quoting style.
//
// Example:
//
//	ObfuscateFor("mysql", `SELECT * FROM users WHERE email = "a@b.c"`, PolicyObfuscate)
//	// {Text: "SELECT * FROM users WHERE email = ?", Outcome: OutcomeRedacted}
func ObfuscateFor(vendor, text string, policy Policy) ObfuscationResult {
	return obfuscateWith(dialectFor(vendor).redact, text, policy)
}

// obfuscateWith runs redact under the size and delimiter guards. The guards
// apply to custom sanitizers too.
func obfuscateWith(redact func(string) string, text string, policy Policy) ObfuscationResult {
	if policy != PolicyObfuscate {
		return ObfuscationResult{Text: text, Outcome: OutcomeUnchanged}
	}

	if isOversized(text) {
		return ObfuscationResult{Text: OversizedSentinel, Outcome: OutcomeOversized}
	}

	redacted := redact(text)
	if hasUnbalancedDelimiters(redacted) {
		return ObfuscationResult{Text: MalformedSentinel, Outcome: OutcomeMalformed}
	}

	return ObfuscationResult{Text: redacted, Outcome: OutcomeRedacted}
}

// isOversized reports whether text has more than MaxObfuscationLength
// characters. A string of at most that many bytes never does.
func isOversized(text string) bool {
	return len(text) > MaxObfuscationLength &&
		utf8.RuneCountInString(text) > MaxObfuscationLength
}

// hasUnbalancedDelimiters reports whether s still carries a fragment of a
// literal or comment the pattern failed to consume: an odd number of
// unescaped single or double quotes, or a stray comment or dollar-quote
// delimiter.
func hasUnbalancedDelimiters(s string) bool {
	var single, double int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			single++
		case '"':
			double++
		}
	}
	if single%2 != 0 || double%2 != 0 {
		return true
	}

	return strings.Contains(s, "/*") ||
		strings.Contains(s, "*/") ||
		strings.Contains(s, "$$")
}
