package dbtrace

import (
	"fmt"
	"strings"
)

// Policy controls whether statement text is recorded and whether it is
// obfuscated first.
type Policy int

const (
	// PolicyInclude records statement text as-is. This is the default.
	PolicyInclude Policy = iota

	// PolicyOmit never records statement text.
	PolicyOmit

	// PolicyObfuscate records statement text with literal values replaced by "?".
	PolicyObfuscate
)

// String returns the configuration form of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyOmit:
		return "omit"
	case PolicyObfuscate:
		return "obfuscate"
	default:
		return "include"
	}
}

// ParsePolicy parses a configuration value ("omit", "include", "obfuscate").
// Matching is case-insensitive and ignores surrounding whitespace.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "include", "":
		return PolicyInclude, nil
	case "omit":
		return PolicyOmit, nil
	case "obfuscate":
		return PolicyObfuscate, nil
	default:
		return PolicyInclude, fmt.Errorf("db_statement must be one of omit, include, obfuscate (got %q)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so a Policy can be
// decoded directly from YAML or environment values.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
