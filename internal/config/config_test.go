package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/types"
)

func writeTempYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "antec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FillsDefaultsForOmittedFields(t *testing.T) {
	path := writeTempYAML(t, "pointer_bits: 32\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.PointerBits)
	assert.Equal(t, types.I32, cfg.DefaultInt, "omitted default_int falls back to spec default")
	assert.Equal(t, types.F64, cfg.DefaultFloat)
	assert.Equal(t, []string{"."}, cfg.ModuleRoots)
}

func TestLoad_ParsesDeclaredKinds(t *testing.T) {
	path := writeTempYAML(t, `
default_int: i64
default_float: f32
effects: [IO, State]
module_roots: [src, vendor]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, types.I64, cfg.DefaultInt)
	assert.Equal(t, types.F32, cfg.DefaultFloat)
	assert.ElementsMatch(t, []string{"IO", "State"}, cfg.Effects)
	assert.ElementsMatch(t, []string{"src", "vendor"}, cfg.ModuleRoots)
}

func TestLoad_RejectsUnknownKind(t *testing.T) {
	path := writeTempYAML(t, "default_int: i128\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_AllowsEffect(t *testing.T) {
	open := Default()
	assert.True(t, open.AllowsEffect("Anything"), "empty allowlist accepts everything")

	closed := &Config{Effects: []string{"IO"}}
	assert.True(t, closed.AllowsEffect("IO"))
	assert.False(t, closed.AllowsEffect("FS"))
}
