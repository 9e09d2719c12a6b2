package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultEndpoint = "http://127.0.0.1:8080/graphql"
	DefaultTimeout  = "30s"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Remote   RemoteConfig   `toml:"remote"`
	Board    BoardConfig    `toml:"board"`
	UI       UIConfig       `toml:"ui"`
	Keys     KeyConfig      `toml:"keys"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type RemoteConfig struct {
	Endpoint string `toml:"endpoint"`
	Timeout  string `toml:"timeout"` // Go duration; "0" disables
}

type BoardConfig struct {
	DefaultColumn string `toml:"default_column"`
}

type UIConfig struct {
	DarkMode    bool `toml:"dark_mode"`
	ShowSidebar bool `toml:"show_sidebar"`
}

type KeyConfig struct {
	CreateBoard   string `toml:"create_board"`
	AddTask       string `toml:"add_task"`
	Menu          string `toml:"menu"`
	Reload        string `toml:"reload"`
	ToggleSidebar string `toml:"toggle_sidebar"`
	ToggleTheme   string `toml:"toggle_theme"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	GraphQLPath string `toml:"graphql_path"`
	MCPPath     string `toml:"mcp_path"`
	JWTSecret   string `toml:"jwt_secret"`
	TokenTTL    string `toml:"token_ttl"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Remote: RemoteConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultTimeout,
		},
		Board: BoardConfig{
			DefaultColumn: "To Do",
		},
		UI: UIConfig{
			DarkMode:    false,
			ShowSidebar: true,
		},
		Keys: KeyConfig{
			CreateBoard:   "n",
			AddTask:       "a",
			Menu:          ".",
			Reload:        "r",
			ToggleSidebar: "b",
			ToggleTheme:   "t",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanboard/log",
			},
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			GraphQLPath: "/graphql",
			MCPPath:     "/mcp",
			TokenTTL:    "24h",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	endpoint := strings.TrimSpace(c.Remote.Endpoint)
	if endpoint == "" {
		return errors.New("remote.endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid remote.endpoint: %q", c.Remote.Endpoint)
	}
	if _, err := parseDuration("remote.timeout", c.Remote.Timeout); err != nil {
		return err
	}

	if strings.TrimSpace(c.Board.DefaultColumn) == "" {
		return errors.New("board.default_column is required")
	}

	seenKeys := map[string]string{}
	for name, binding := range map[string]string{
		"create_board":   c.Keys.CreateBoard,
		"add_task":       c.Keys.AddTask,
		"menu":           c.Keys.Menu,
		"reload":         c.Keys.Reload,
		"toggle_sidebar": c.Keys.ToggleSidebar,
		"toggle_theme":   c.Keys.ToggleTheme,
	} {
		binding = strings.TrimSpace(binding)
		if binding == "" {
			return fmt.Errorf("keys.%s is required", name)
		}
		if other, ok := seenKeys[binding]; ok {
			first, second := other, name
			if second < first {
				first, second = second, first
			}
			return fmt.Errorf("keys.%s and keys.%s share binding %q", first, second, binding)
		}
		seenKeys[binding] = name
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(strings.ToLower(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when enabled")
	}

	for name, path := range map[string]string{
		"server.graphql_path": c.Server.GraphQLPath,
		"server.mcp_path":     c.Server.MCPPath,
	} {
		if path = strings.TrimSpace(path); path != "" && !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /: %q", name, path)
		}
	}
	if strings.Trim(c.Server.GraphQLPath, "/ ") != "" && strings.Trim(c.Server.GraphQLPath, "/ ") == strings.Trim(c.Server.MCPPath, "/ ") {
		return errors.New("server.graphql_path and server.mcp_path must differ")
	}
	if ttl, err := parseDuration("server.token_ttl", c.Server.TokenTTL); err != nil {
		return err
	} else if ttl <= 0 {
		return errors.New("server.token_ttl must be positive")
	}

	return nil
}

// RemoteTimeout returns the per-request timeout; zero means none.
func (c Config) RemoteTimeout() time.Duration {
	d, _ := parseDuration("remote.timeout", c.Remote.Timeout)
	return d
}

// TokenTTL returns the lifetime of issued development-server tokens.
func (c Config) TokenTTL() time.Duration {
	d, _ := parseDuration("server.token_ttl", c.Server.TokenTTL)
	return d
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", field, raw)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
