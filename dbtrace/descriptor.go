package dbtrace

import (
	"net/netip"
	"strings"
)

// Transport identifies the connection medium used to reach the database.
type Transport string

const (
	// TransportTCP is a TCP/IP connection.
	TransportTCP Transport = "IP.TCP"
	// TransportUnix is a Unix domain socket connection.
	TransportUnix Transport = "Unix"
)

// DefaultVendor is reported when the driver scheme is unknown or missing.
const DefaultVendor = "other_sql"

// vendors maps raw driver/adapter schemes to canonical db.system values.
var vendors = map[string]string{
	"postgres":   "postgresql",
	"postgresql": "postgresql",
	"pg":         "postgresql",
	"pgx":        "postgresql",
	"pq":         "postgresql",
	"mysql":      "mysql",
	"mysql2":     "mysql",
	"mariadb":    "mysql",
	"trilogy":    "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"sqlserver":  "mssql",
	"mssql":      "mssql",
	"tinytds":    "mssql",
	"oracle":     "oracle",
	"oci8":       "oracle",
	"godror":     "oracle",
	"clickhouse": "clickhouse",
	"snowflake":  "snowflake",
	"sqlmock":    DefaultVendor,
}

// bridgingSchemes are generic drivers whose name says nothing about the
// database behind them. Their vendor comes from ConnInfo.DatabaseType.
var bridgingSchemes = map[string]struct{}{
	"odbc": {},
	"jdbc": {},
	"ado":  {},
}

// ConnInfo is the raw connection context of an intercepted call.
// Empty fields are treated as unknown.
type ConnInfo struct {
	// Scheme is the driver or adapter name, e.g. "postgres" or "mysql".
	Scheme string
	// DatabaseType is the database behind a bridging driver such as ODBC.
	DatabaseType string
	// Host is a host name, an IP address, or a Unix socket directory/path.
	Host string
	Port string
	// HostAddr is the numeric peer address, when known.
	HostAddr string
	Database string
	User     string
}

// Descriptor is the normalized connection metadata of a call.
//
// When Transport is TransportUnix, Port and PeerAddr are always empty.
type Descriptor struct {
	Vendor      string
	Host        string
	Port        string
	PeerAddr    string
	Database    string
	User        string
	Transport   Transport
	PeerService string
}

// Resolve normalizes a connection context into a Descriptor.
// peerService is the configured peer.service override and is ignored when empty.
//
// Example:
//
//	Resolve(ConnInfo{Scheme: "pgx", Host: "/var/run/postgresql"}, "")
//	// {Vendor: "postgresql", Host: "/var/run/postgresql", Transport: TransportUnix}
func Resolve(info ConnInfo, peerService string) Descriptor {
	d := Descriptor{
		Vendor:      resolveVendor(info.Scheme, info.DatabaseType),
		Host:        info.Host,
		Database:    info.Database,
		User:        info.User,
		PeerService: peerService,
	}

	if strings.HasPrefix(info.Host, "/") {
		d.Transport = TransportUnix
		return d
	}

	d.Transport = TransportTCP
	d.Port = info.Port
	d.PeerAddr = info.HostAddr
	if d.PeerAddr == "" {
		if addr, err := netip.ParseAddr(info.Host); err == nil {
			d.PeerAddr = addr.String()
		}
	}
	return d
}

// resolveVendor maps a scheme to its canonical vendor. Bridging schemes
// resolve through the underlying database type instead.
// Unknown values are returned as given.
func resolveVendor(scheme, databaseType string) string {
	raw := strings.TrimSpace(scheme)
	if _, ok := bridgingSchemes[strings.ToLower(raw)]; ok {
		raw = strings.TrimSpace(databaseType)
	}
	if raw == "" {
		return DefaultVendor
	}
	if v, ok := vendors[strings.ToLower(raw)]; ok {
		return v
	}
	return raw
}

// Vendor returns the canonical db.system value for a driver name.
func Vendor(driverName string) string {
	return resolveVendor(driverName, "")
}
