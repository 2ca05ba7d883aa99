// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Defaults --

func TestDefault(t *testing.T) {
	cfg := Default()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 100, cfg.Scraper.MaxPaginationPages)
	assert.Equal(t, 30*time.Second, cfg.Scraper.LoginRedirect)
	assert.Equal(t, "https://webtop.smartschool.co.il/account/login", cfg.Portal.LoginURL)
	assert.Contains(t, cfg.Portal.HomeworkURL, "Student_Card/11")
}

func TestDefaultHasNoCredentials(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Portal.Username)
	assert.Empty(t, cfg.Portal.Password)
	assert.False(t, cfg.Portal.HasCredentials())
}

// -- Environment handling --

func TestLoadCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("WEBTOP_PORTAL_USERNAME", "student1")
	t.Setenv("WEBTOP_PORTAL_PASSWORD", "hunter2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "student1", cfg.Portal.Username)
	assert.Equal(t, "hunter2", cfg.Portal.Password)
	assert.True(t, cfg.Portal.HasCredentials())
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("WEBTOP_LOGGER_LEVEL", "debug")
	t.Setenv("WEBTOP_BROWSER_HEADLESS", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.False(t, cfg.Browser.Headless)
}

// -- Config file handling --

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: warn
scraper:
  max_pagination_pages: 7
  login_redirect: 12s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 7, cfg.Scraper.MaxPaginationPages)
	assert.Equal(t, 12*time.Second, cfg.Scraper.LoginRedirect)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Network.NetworkIdle)
}

func TestLoadMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHasCredentials(t *testing.T) {
	assert.False(t, PortalConfig{Username: "u"}.HasCredentials())
	assert.False(t, PortalConfig{Password: "p"}.HasCredentials())
	assert.True(t, PortalConfig{Username: "u", Password: "p"}.HasCredentials())
}
