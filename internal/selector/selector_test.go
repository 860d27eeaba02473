package selector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	tests := []struct {
		path string
		want bool
	}{
		{"app/handlers.py", true},
		{"cmd/main.go", true},
		{"web/src/App.tsx", true},
		{"vendor/github.com/x/y.go", false},
		{"web/node_modules/lib/index.js", false},
		{"assets/logo.svg", false},
		{"web/bundle.min.js", false},
		{"api/service.pb.go", false},
		{"go.sum", false},
		{"yarn.lock", false},
		{"docs/diagram.png", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Reviewable(tt.path), tt.path)
	}
}

func TestPolicyInclude(t *testing.T) {
	p := &Policy{Include: []string{"*.go", "api/*"}}

	assert.True(t, p.Reviewable("cmd/main.go"))
	assert.True(t, p.Reviewable("api/routes.py"))
	assert.False(t, p.Reviewable("web/App.tsx"))
}

func TestPolicyFilter(t *testing.T) {
	p := Default()
	p.MaxFiles = 2

	got := p.Filter([]string{"a.py", "go.sum", "b.py", "c.py"})
	assert.Equal(t, []string{"a.py", "b.py"}, got, "cap applies after filtering")
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		p, err := Load(filepath.Join(t.TempDir(), PolicyFile))
		require.NoError(t, err)
		assert.False(t, p.Reviewable("vendor/x.go"))
		assert.Empty(t, p.Include)
	})

	t.Run("policy merges over defaults", func(t *testing.T) {
		dir := t.TempDir()
		fp := filepath.Join(dir, PolicyFile)
		err := os.WriteFile(fp, []byte("ignore:\n  - \"migrations/\"\nmax_files: 10\n"), 0o644)
		require.NoError(t, err)

		p, err := Load(fp)
		require.NoError(t, err)

		assert.False(t, p.Reviewable("db/migrations/0001.sql"))
		assert.False(t, p.Reviewable("vendor/x.go"), "built-in ignores retained")
		assert.Equal(t, 10, p.MaxFiles)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		fp := filepath.Join(t.TempDir(), PolicyFile)
		require.NoError(t, os.WriteFile(fp, []byte("ignore: [unclosed"), 0o644))

		_, err := Load(fp)
		assert.Error(t, err)
	})
}
