package dbtrace

import (
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys emitted on statement spans. They are stable for a given
// input shape so downstream systems can aggregate on them.
const (
	KeyOperation    = attribute.Key("db.operation")
	KeyPreparedName = attribute.Key("db.prepared_statement_name")
	KeyStatement    = attribute.Key("db.statement")
	KeySystem       = attribute.Key("db.system")
	KeyUser         = attribute.Key("db.user")
	KeyName         = attribute.Key("db.name")
	KeyInstance     = attribute.Key("db.instance")
	KeyPeerName     = attribute.Key("net.peer.name")
	KeyPeerIP       = attribute.Key("net.peer.ip")
	KeyPeerPort     = attribute.Key("net.peer.port")
	KeyTransport    = attribute.Key("net.transport")
	KeyPeerService  = attribute.Key("peer.service")
)

// Attributes is a set of string attributes keyed by attribute name.
// Keys with empty values are never present once built by Assemble.
type Attributes map[string]string

// set stores value under key unless the value is empty.
func (a Attributes) set(key attribute.Key, value string) {
	if value == "" {
		return
	}
	a[string(key)] = value
}

// Get returns the value stored under key.
func (a Attributes) Get(key attribute.Key) (string, bool) {
	v, ok := a[string(key)]
	return v, ok
}

// KeyValues converts the set into OpenTelemetry attributes, sorted by key.
func (a Attributes) KeyValues() []attribute.KeyValue {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, attribute.String(k, a[k]))
	}
	return kvs
}

// ConnectionAttributes returns the connection-level attributes of d.
// instance is the optional db.instance value.
func ConnectionAttributes(d Descriptor, instance string) Attributes {
	attrs := make(Attributes, 9)
	attrs.set(KeySystem, d.Vendor)
	attrs.set(KeyUser, d.User)
	attrs.set(KeyName, d.Database)
	attrs.set(KeyInstance, instance)
	attrs.set(KeyPeerName, d.Host)
	attrs.set(KeyTransport, string(d.Transport))
	if d.Transport != TransportUnix {
		attrs.set(KeyPeerIP, d.PeerAddr)
		attrs.set(KeyPeerPort, d.Port)
	}
	attrs.set(KeyPeerService, d.PeerService)
	return attrs
}

// AssembleInput carries the per-call outputs consumed by Assemble.
type AssembleInput struct {
	Classification Classification
	Obfuscation    ObfuscationResult
	Descriptor     Descriptor
	PreparedName   string
	Policy         Policy

	// Instance is the optional db.instance value.
	Instance string

	// AppendDatabase appends the database name to the span name.
	AppendDatabase bool
}

// Assemble builds the span name and attribute set of a call.
//
// The span name is the validated operation, followed by the database name
// when AppendDatabase is set. It is empty when neither is known.
//
// Statement text is attached only when the policy is not PolicyOmit. Base
// attributes (operation, prepared statement name, statement) take precedence
// over connection attributes.
//
// Example:
//
//	name, attrs := Assemble(AssembleInput{
//	    Classification: Classify(sql),
//	    Obfuscation:    Obfuscate(sql, PolicyObfuscate),
//	    Descriptor:     Resolve(info, ""),
//	    Policy:         PolicyObfuscate,
//	})
func Assemble(in AssembleInput) (string, Attributes) {
	operation := in.Classification.Operation()

	name := operation
	if in.AppendDatabase && in.Descriptor.Database != "" {
		if name == "" {
			name = in.Descriptor.Database
		} else {
			name += " " + in.Descriptor.Database
		}
	}

	attrs := ConnectionAttributes(in.Descriptor, in.Instance)
	attrs.set(KeyOperation, operation)
	attrs.set(KeyPreparedName, in.PreparedName)
	if in.Policy != PolicyOmit {
		attrs.set(KeyStatement, in.Obfuscation.Text)
	}

	return name, attrs
}
