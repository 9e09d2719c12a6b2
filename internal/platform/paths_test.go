package platform

import (
	"path/filepath"
	"testing"
)

func TestPathsFor(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		config     string
		data       string
		wantConfig string
		wantDB     string
		wantLog    string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data", "XDG_STATE_HOME": "/xdg/state"},
			config:     "/fallback/config",
			data:       "/fallback/data",
			wantConfig: filepath.Join("/xdg/config", "kanboard", "config.toml"),
			wantDB:     filepath.Join("/xdg/data", "kanboard", "kanboard.db"),
			wantLog:    filepath.Join("/xdg/state", "kanboard", "log"),
		},
		{
			name:       "linux fallback",
			goos:       "linux",
			env:        map[string]string{},
			config:     "/home/me/.config",
			data:       "/home/me/.local/share",
			wantConfig: filepath.Join("/home/me/.config", "kanboard", "config.toml"),
			wantDB:     filepath.Join("/home/me/.local/share", "kanboard", "kanboard.db"),
			wantLog:    filepath.Join("/home/me/.local/share", "kanboard", "log"),
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			config:     `C:\fallback\config`,
			data:       `C:\fallback\data`,
			wantConfig: filepath.Join(`C:\Roaming`, "kanboard", "config.toml"),
			wantDB:     filepath.Join(`C:\Local`, "kanboard", "kanboard.db"),
			wantLog:    filepath.Join(`C:\Local`, "kanboard", "log"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_STATE_HOME": "/ignored"},
			config:     "/Users/me/Library/Application Support",
			data:       "/Users/me/Library/Application Support",
			wantConfig: filepath.Join("/Users/me/Library/Application Support", "kanboard", "config.toml"),
			wantDB:     filepath.Join("/Users/me/Library/Application Support", "kanboard", "kanboard.db"),
			wantLog:    filepath.Join("/Users/me/Library/Application Support", "kanboard", "log"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := PathsFor(tc.goos, tc.env, tc.config, tc.data, "kanboard")
			if err != nil {
				t.Fatalf("PathsFor() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig {
				t.Fatalf("unexpected config path %q", p.ConfigPath)
			}
			if p.DBPath != tc.wantDB {
				t.Fatalf("unexpected db path %q", p.DBPath)
			}
			if p.LogDir != tc.wantLog {
				t.Fatalf("unexpected log dir %q", p.LogDir)
			}
			if filepath.Base(p.ServerDBPath) != "kanboard-server.db" || filepath.Dir(p.ServerDBPath) != p.DataDir {
				t.Fatalf("unexpected server db path %q", p.ServerDBPath)
			}
		})
	}
}

func TestPathsForRejectsEmptyInputs(t *testing.T) {
	if _, err := PathsFor("darwin", nil, "", "/tmp/data", "kanboard"); err == nil {
		t.Fatal("expected error for empty dirs")
	}
	if _, err := PathsFor("linux", nil, "/c", "/d", "  "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "kanboard-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "kanboard-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}
