package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/fiofix/pkg/batch"
	"github.com/shpitdev/fiofix/pkg/fio"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

var envVars = []string{
	"FIOFIX_MODE", "MAX_TABS", "DISPATCH_PACE", "MAX_RETRIES", "REQUEST_TIMEOUT",
	"NOOP_POLICY", "NAME_STYLE", "REVIEW_XLSX", "PORTAL_URL", "DEFAULT_CA_PATH", "LOG_LEVEL",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsWhenNothingIsPresent(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	mode, err := cfg.ChangeMode()
	require.NoError(t, err)
	assert.Equal(t, schema.ModeChangesInJSON, mode)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "fiofix.yaml", `
mode: direct_change
max_tabs: 3
pace: 750ms
noop_policy: record
review_xlsx: true
paths:
  roster: in/authors.json
portal:
  url: http://localhost:8080
  page_size: 50
`)
	t.Setenv("MAX_TABS", "8")
	t.Setenv("NAME_STYLE", "initials")

	cfg, err := Load(LoadOptions{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxTabs)
	assert.Equal(t, 750*time.Millisecond, cfg.Pace)
	assert.True(t, cfg.ReviewXLSX)
	assert.Equal(t, "in/authors.json", cfg.Paths.Roster)
	assert.Equal(t, "data/json/names.json", cfg.Paths.GivenNames)
	assert.Equal(t, "http://localhost:8080", cfg.Portal.URL)
	assert.Equal(t, 50, cfg.Portal.PageSize)

	mode, err := cfg.ChangeMode()
	require.NoError(t, err)
	assert.Equal(t, schema.ModeDirectChange, mode)
	style, err := cfg.Style()
	require.NoError(t, err)
	assert.Equal(t, fio.StyleInitials, style)
	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, batch.RecordNoOps, policy)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := writeFile(t, dir, "custom.env", "MAX_RETRIES=4\nREQUEST_TIMEOUT=5s\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("MAX_RETRIES")
		_ = os.Unsetenv("REQUEST_TIMEOUT")
	})

	cfg, err := Load(LoadOptions{ConfigPath: writeFile(t, dir, "c.yaml", "{}"), EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit config missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(LoadOptions{ConfigPath: filepath.Join(dir, "nope.yaml")})
		require.Error(t, err)
	})

	t.Run("explicit env file missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "nope.env")})
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(LoadOptions{ConfigPath: writeFile(t, dir, "bad.yaml", "max_tabs: [")})
		require.ErrorContains(t, err, "parse config")
	})

	t.Run("bad env value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAX_TABS", "many")
		_, err := Load(LoadOptions{ConfigPath: writeFile(t, dir, "ok.yaml", "{}")})
		require.ErrorContains(t, err, "MAX_TABS")
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.MaxTabs = 0
	cfg.Mode = "sideways"
	cfg.NameStyle = "long"
	cfg.RequestTimeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "max_tabs")
	assert.ErrorContains(t, err, "change mode")
	assert.ErrorContains(t, err, "request_timeout")
}
