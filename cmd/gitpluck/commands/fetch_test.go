package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantName  string
		wantRef   string
		wantErr   bool
	}{
		{
			name:      "simple repo",
			input:     "levinion/dotfiles",
			wantOwner: "levinion",
			wantName:  "dotfiles",
		},
		{
			name:      "repo with ref",
			input:     "golang/tools@master",
			wantOwner: "golang",
			wantName:  "tools",
			wantRef:   "master",
		},
		{
			name:    "missing name",
			input:   "justowner",
			wantErr: true,
		},
		{
			name:    "too many parts",
			input:   "a/b/c",
			wantErr: true,
		},
		{
			name:    "empty owner",
			input:   "/repo",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, name, ref, err := parseRepo(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Run("test_flags_only", func(t *testing.T) {
		cfg, err := buildConfig(context.Background(), "", "levinion/dotfiles@main", "nvim", "", 0, 0, nil)
		require.NoError(t, err, "building from flags should not error")
		assert.Equal(t, "levinion", cfg.Repository.Owner)
		assert.Equal(t, "main", cfg.Repository.Ref)
		assert.Equal(t, "nvim", cfg.Repository.Path)
		assert.Equal(t, "nvim", cfg.Destination, "destination defaults to the target's base name")
		assert.Equal(t, 4, cfg.Concurrency)
	})

	t.Run("test_flags_override_config_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pluck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
repository:
  owner: levinion
  name: dotfiles
  path: nvim
concurrency: 2
`), 0o644))

		cfg, err := buildConfig(context.Background(), path, "", "docs", "out", 8, 6, []string{"*.lock"})
		require.NoError(t, err)
		assert.Equal(t, "levinion", cfg.Repository.Owner, "file value survives")
		assert.Equal(t, "docs", cfg.Repository.Path, "flag wins over file")
		assert.Equal(t, "out", cfg.Destination)
		assert.Equal(t, 8, cfg.Concurrency)
		assert.Equal(t, 6, cfg.MaxAttempts)
		assert.Equal(t, []string{"*.lock"}, cfg.IgnorePatterns)
	})

	t.Run("test_missing_repo_rejected", func(t *testing.T) {
		_, err := buildConfig(context.Background(), "", "", "docs", "", 0, 0, nil)
		require.Error(t, err, "a repository must come from flags or a config file")
	})
}
