package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ossa/internal/lifetime"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindConfig(nested)
	if err != nil || !ok {
		t.Fatalf("FindConfig = %q, %t, %v", path, ok, err)
	}
	if path != filepath.Join(root, ConfigFile) {
		t.Errorf("path = %q", path)
	}
}

func TestLoadFromWithoutFile(t *testing.T) {
	cfg, path, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if cfg.Boundary() != lifetime.BoundaryAvailability {
		t.Errorf("boundary = %s", cfg.Boundary())
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    func(*Config)
		wantErr string
	}{
		{
			name: "overrides defaults",
			content: `
[completion]
boundary = "liveness"
verify = false

[driver]
jobs = 4

[trace]
level = "detail"
output = "trace.ndjson"
`,
			want: func(c *Config) {
				c.Completion.Boundary = "liveness"
				c.Completion.Verify = false
				c.Driver.Jobs = 4
				c.Trace.Level = "detail"
				c.Trace.Output = "trace.ndjson"
			},
		},
		{
			name:    "empty file keeps defaults",
			content: "",
			want:    func(*Config) {},
		},
		{
			name:    "unknown key",
			content: "[completion]\nboundry = \"liveness\"\n",
			wantErr: "unknown keys: completion.boundry",
		},
		{
			name:    "bad boundary",
			content: "[completion]\nboundary = \"lexical\"\n",
			wantErr: "[completion].boundary",
		},
		{
			name:    "negative jobs",
			content: "[driver]\njobs = -1\n",
			wantErr: "[driver].jobs",
		},
		{
			name:    "bad trace level",
			content: "[trace]\nlevel = \"loud\"\n",
			wantErr: "[trace].level",
		},
		{
			name:    "syntax error",
			content: "[completion\n",
			wantErr: "failed to parse TOML",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFile)
			writeFile(t, path, tt.content)
			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			want := Default()
			tt.want(&want)
			if diff := cmp.Diff(want, cfg); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
