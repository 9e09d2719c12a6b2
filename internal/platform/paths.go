// Package platform resolves per-OS locations for config, data, and logs.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "kanboard"

// Paths holds resolved application locations.
type Paths struct {
	ConfigPath   string
	DataDir      string
	DBPath       string // client preferences and credential
	ServerDBPath string // development board service store
	LogDir       string
}

// Options defines optional settings for path resolution.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths returns paths for DefaultAppName.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths for the running OS.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := appNameFor(opts)

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	switch runtime.GOOS {
	case "linux":
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{}
	for _, key := range []string{"XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_STATE_HOME", "APPDATA", "LOCALAPPDATA"} {
		env[key] = os.Getenv(key)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves paths from explicit inputs.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	stateBase := ""
	switch goos {
	case "linux":
		configBase = firstNonEmpty(env["XDG_CONFIG_HOME"], configBase)
		dataBase = firstNonEmpty(env["XDG_DATA_HOME"], dataBase)
		stateBase = env["XDG_STATE_HOME"]
	case "windows":
		configBase = firstNonEmpty(env["APPDATA"], configBase)
		dataBase = firstNonEmpty(env["LOCALAPPDATA"], dataBase)
	}

	appDataDir := filepath.Join(dataBase, appName)
	logDir := filepath.Join(appDataDir, "log")
	if stateBase != "" {
		logDir = filepath.Join(stateBase, appName, "log")
	}
	return Paths{
		ConfigPath:   filepath.Join(configBase, appName, "config.toml"),
		DataDir:      appDataDir,
		DBPath:       filepath.Join(appDataDir, appName+".db"),
		ServerDBPath: filepath.Join(appDataDir, appName+"-server.db"),
		LogDir:       logDir,
	}, nil
}

func appNameFor(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
