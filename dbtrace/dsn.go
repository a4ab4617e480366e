package dbtrace

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ParseDSN builds a connection context from a driver name and DSN.
//
// PostgreSQL DSNs (URL or key=value) are parsed with pgconn, MySQL DSNs with
// the go-sql-driver parser, and other URL-shaped DSNs with net/url. When
// driverName is empty the URL scheme of the DSN is used instead.
//
// On a parse error the returned ConnInfo still carries the scheme, so the
// vendor can be reported; the error is informational.
func ParseDSN(driverName, dsn string) (ConnInfo, error) {
	scheme := strings.TrimSpace(driverName)
	if scheme == "" {
		scheme = urlScheme(dsn)
	}

	info := ConnInfo{Scheme: scheme}
	if strings.TrimSpace(dsn) == "" {
		return info, nil
	}

	switch Vendor(scheme) {
	case "postgresql":
		return parsePostgresDSN(info, dsn)
	case "mysql":
		return parseMySQLDSN(info, dsn)
	}

	return parseURLDSN(info, dsn)
}

func parsePostgresDSN(info ConnInfo, dsn string) (ConnInfo, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return info, fmt.Errorf("parse postgres dsn: %w", err)
	}

	info.Host = cfg.Host
	if cfg.Port != 0 {
		info.Port = strconv.Itoa(int(cfg.Port))
	}
	info.Database = cfg.Database
	info.User = cfg.User
	return info, nil
}

func parseMySQLDSN(info ConnInfo, dsn string) (ConnInfo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return info, fmt.Errorf("parse mysql dsn: %w", err)
	}

	info.Database = cfg.DBName
	info.User = cfg.User

	if cfg.Net == "unix" {
		info.Host = cfg.Addr
		return info, nil
	}

	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		info.Host = cfg.Addr
		return info, nil
	}
	info.Host = host
	info.Port = port
	return info, nil
}

func parseURLDSN(info ConnInfo, dsn string) (ConnInfo, error) {
	if !strings.Contains(dsn, "://") {
		return info, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return info, fmt.Errorf("parse dsn url: %w", err)
	}

	info.Host = u.Hostname()
	info.Port = u.Port()
	info.Database = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		info.User = u.User.Username()
	}
	return info, nil
}

// urlScheme returns the scheme of a URL-shaped DSN, or "".
func urlScheme(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(scheme))
}

// merge overlays the non-empty fields of override onto info.
func (info ConnInfo) merge(override ConnInfo) ConnInfo {
	if override.Scheme != "" {
		info.Scheme = override.Scheme
	}
	if override.DatabaseType != "" {
		info.DatabaseType = override.DatabaseType
	}
	if override.Host != "" {
		info.Host = override.Host
	}
	if override.Port != "" {
		info.Port = override.Port
	}
	if override.HostAddr != "" {
		info.HostAddr = override.HostAddr
	}
	if override.Database != "" {
		info.Database = override.Database
	}
	if override.User != "" {
		info.User = override.User
	}
	return info
}
