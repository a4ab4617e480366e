package dbtrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	type args struct {
		info        ConnInfo
		peerService string
	}

	tests := []struct {
		name string
		args args
		want Descriptor
	}{
		{
			name: "given unix socket host, then uses unix transport without port or address",
			args: args{
				info: ConnInfo{
					Scheme:   "postgres",
					Host:     "/var/run/db.sock",
					Port:     "5432",
					HostAddr: "10.0.0.1",
					Database: "orders",
					User:     "app",
				},
			},
			want: Descriptor{
				Vendor:    "postgresql",
				Host:      "/var/run/db.sock",
				Database:  "orders",
				User:      "app",
				Transport: TransportUnix,
			},
		},
		{
			name: "given host name and port, then uses tcp transport with port",
			args: args{
				info: ConnInfo{Scheme: "mysql", Host: "db.example.com", Port: "3306"},
			},
			want: Descriptor{
				Vendor:    "mysql",
				Host:      "db.example.com",
				Port:      "3306",
				Transport: TransportTCP,
			},
		},
		{
			name: "given ip literal host, then derives numeric peer address",
			args: args{
				info: ConnInfo{Scheme: "pgx", Host: "10.1.2.3", Port: "5432"},
			},
			want: Descriptor{
				Vendor:    "postgresql",
				Host:      "10.1.2.3",
				Port:      "5432",
				PeerAddr:  "10.1.2.3",
				Transport: TransportTCP,
			},
		},
		{
			name: "given explicit host address, then keeps it",
			args: args{
				info: ConnInfo{Scheme: "postgres", Host: "db.internal", HostAddr: "192.168.1.5"},
			},
			want: Descriptor{
				Vendor:    "postgresql",
				Host:      "db.internal",
				PeerAddr:  "192.168.1.5",
				Transport: TransportTCP,
			},
		},
		{
			name: "given peer service override, then sets peer service",
			args: args{
				info:        ConnInfo{Scheme: "sqlite3"},
				peerService: "ledger",
			},
			want: Descriptor{
				Vendor:      "sqlite",
				Transport:   TransportTCP,
				PeerService: "ledger",
			},
		},
		{
			name: "given missing scheme, then uses default vendor",
			args: args{info: ConnInfo{}},
			want: Descriptor{Vendor: DefaultVendor, Transport: TransportTCP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.args.info, tt.args.peerService)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveVendor(t *testing.T) {
	type args struct {
		scheme       string
		databaseType string
	}

	tests := []struct {
		name string
		args args
		want string
	}{
		{name: "given postgres, then returns postgresql", args: args{scheme: "postgres"}, want: "postgresql"},
		{name: "given pgx, then returns postgresql", args: args{scheme: "pgx"}, want: "postgresql"},
		{name: "given mixed case mysql, then returns mysql", args: args{scheme: "MySQL"}, want: "mysql"},
		{name: "given sqlserver, then returns mssql", args: args{scheme: "sqlserver"}, want: "mssql"},
		{name: "given godror, then returns oracle", args: args{scheme: "godror"}, want: "oracle"},
		{name: "given unknown scheme, then passes it through", args: args{scheme: "CockroachX"}, want: "CockroachX"},
		{name: "given empty scheme, then returns default", args: args{scheme: ""}, want: DefaultVendor},
		{
			name: "given odbc bridge with database type, then resolves the database type",
			args: args{scheme: "odbc", databaseType: "sqlserver"},
			want: "mssql",
		},
		{
			name: "given jdbc bridge with unknown database type, then passes database type through",
			args: args{scheme: "jdbc", databaseType: "h2"},
			want: "h2",
		},
		{
			name: "given bridge without database type, then returns default",
			args: args{scheme: "ado"},
			want: DefaultVendor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveVendor(tt.args.scheme, tt.args.databaseType))
		})
	}
}
