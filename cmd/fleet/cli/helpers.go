package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/britebottle/fleet/internal/config"
	"github.com/britebottle/fleet/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// FLEET_DATA_DIR env var, or ~/.fleet as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("FLEET_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.fleet"
}

// loadConfig returns the effective configuration: the YAML file when one
// exists, defaults otherwise.
func loadConfig() (*config.YAMLConfig, error) {
	path := cfgFile
	if path == "" {
		path = "fleet.yaml"
	}
	if _, err := os.Stat(path); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		return config.DefaultYAMLConfig(), nil
	}
	return config.LoadYAMLConfig(path)
}

// openStore opens the document store at the configured path, seeding a
// fresh document on first boot.
func openStore(cfg *config.YAMLConfig) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		path = filepath.Join(resolveDataDir(), "fleet.json")
	}
	return store.Open(path, store.SeedOptions{
		AdminEmail:    cfg.Auth.SeedAdminEmail,
		AdminPassword: cfg.Auth.SeedAdminPassword,
		DemoData:      cfg.Store.SeedDemoData,
	})
}

// parseDurationOr parses a duration string, falling back when empty or
// malformed.
func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "fleet.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "fleet.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
