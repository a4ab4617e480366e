package dbtrace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel-db.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    FileConfig
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given empty file, then returns defaults",
			content: "",
			want:    DefaultFileConfig(),
			wantErr: assert.NoError,
		},
		{
			name: "given full file, then decodes all fields",
			content: `enabled: false
db_statement: obfuscate
peer_service: orders-db
db_system: postgres
db_name: orders
instance_name: replica
`,
			want: FileConfig{
				Enabled:      false,
				DBStatement:  PolicyObfuscate,
				PeerService:  "orders-db",
				DBSystem:     "postgres",
				DBName:       "orders",
				InstanceName: "replica",
			},
			wantErr: assert.NoError,
		},
		{
			name:    "given env overrides, then env wins over file",
			content: "db_statement: include\npeer_service: from-file\n",
			env: map[string]string{
				EnvDBStatement: "omit",
				EnvPeerService: "from-env",
				EnvEnabled:     "false",
			},
			want: FileConfig{
				Enabled:     false,
				DBStatement: PolicyOmit,
				PeerService: "from-env",
			},
			wantErr: assert.NoError,
		},
		{
			name:    "given unknown policy, then returns error",
			content: "db_statement: redact\n",
			wantErr: assert.Error,
		},
		{
			name:    "given unknown field, then returns error",
			content: "db_statment: omit\n",
			wantErr: assert.Error,
		},
		{
			name:    "given invalid enabled env, then returns error",
			content: "",
			env:     map[string]string{EnvEnabled: "sometimes"},
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.content)

			got, err := LoadConfig(path)

			if !tt.wantErr(t, err) || err != nil {
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	got, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultFileConfig(), got)
}

func TestFileConfig_Options(t *testing.T) {
	fc := FileConfig{
		Enabled:      true,
		DBStatement:  PolicyObfuscate,
		PeerService:  "orders-db",
		DBSystem:     "pgx",
		DBName:       "orders",
		InstanceName: "primary",
	}

	cfg := newConfig(fc.Options()...)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, PolicyObfuscate, cfg.Policy)
	assert.Equal(t, "orders-db", cfg.PeerService)
	assert.Equal(t, "pgx", cfg.DBSystem)
	assert.Equal(t, "orders", cfg.DBName)
	assert.Equal(t, "primary", cfg.InstanceName)
}

func TestFileConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultFileConfig().Validate())
	assert.Error(t, FileConfig{DBStatement: Policy(9)}.Validate())
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Policy
		wantErr assert.ErrorAssertionFunc
	}{
		{name: "given omit, then returns PolicyOmit", in: "omit", want: PolicyOmit, wantErr: assert.NoError},
		{name: "given mixed case obfuscate, then returns PolicyObfuscate", in: " Obfuscate ", want: PolicyObfuscate, wantErr: assert.NoError},
		{name: "given empty, then returns default include", in: "", want: PolicyInclude, wantErr: assert.NoError},
		{name: "given unknown value, then returns error", in: "hide", want: PolicyInclude, wantErr: assert.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_String(t *testing.T) {
	for _, p := range []Policy{PolicyOmit, PolicyInclude, PolicyObfuscate} {
		parsed, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
}
