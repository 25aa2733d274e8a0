// Package config implements the table-engine configuration singleton,
// located the way the teacher's internal/config/config.go does: a
// package-level *viper.Viper, YAML config file discovery by walking up from
// the working directory, and TABLE_-prefixed environment variable
// overrides. Initialize must be called once at process startup (CLI
// commands and the daemon both do this in their root PersistentPreRun).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tablecore/engine/internal/awareness"
	"github.com/tablecore/engine/internal/logging"
)

var v *viper.Viper

var debugLog = logging.New("[CONFIG]")

// Initialize sets up the viper configuration singleton. Should be called
// once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD looking for .table/config.yaml, so subcommands
	//    run from any subdirectory of a project still pick it up.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".table", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}

	// 2. $XDG_CONFIG_HOME/tablecore/config.yaml
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(configDir, "tablecore", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	// 3. $HOME/.tablecore/config.yaml
	if !configFileSet {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".tablecore", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("TABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read config file: %w", err)
		}
		debugLog.Debugf("loaded config from %s", v.ConfigFileUsed())
	} else {
		debugLog.Debugf("no config.yaml found; using defaults and environment variables")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Identity / daemon (TABLE_ACTOR, TABLE_NO_DAEMON, TABLE_SOCKET)
	v.SetDefault("actor", "")
	v.SetDefault("no-daemon", false)
	v.SetDefault("socket", "")
	v.SetDefault("lock-timeout", "30s")

	// Awareness broadcast (C4, spec.md 4.4)
	v.SetDefault("awareness.broadcast-hz", awareness.DefaultBroadcastHz)
	v.SetDefault("awareness.gc-interval", awareness.DefaultGCInterval.String())
	v.SetDefault("awareness.stale-after", awareness.DefaultStaleAfter.String())

	// Animation defaults (C5, spec.md 4.5)
	v.SetDefault("animation.default-duration-ms", 150.0)

	// Persistence (§6.1)
	v.SetDefault("persistence.dir", "")
	v.SetDefault("persistence.flush-debounce", "2s")

	// Sync transport (§6.2)
	v.SetDefault("sync.room", "")
	v.SetDefault("sync.socket", "")
	v.SetDefault("sync.reconnect-backoff", "1s")
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat64 retrieves a float configuration value.
func GetFloat64(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, used by flags and tests.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every configuration setting as a map.
func AllSettings() map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return v.AllSettings()
}

// Reset discards the singleton, forcing the next Initialize call to
// rebuild it. Test-only.
func Reset() {
	v = nil
}
