package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/adapters/graphql"
	"github.com/hylla/kanboard/internal/adapters/server"
	"github.com/hylla/kanboard/internal/adapters/storage/sqlite"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/config"
	"github.com/hylla/kanboard/internal/platform"
	"github.com/hylla/kanboard/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the slice of *tea.Program the TUI flow needs.
type program interface {
	Run() (tea.Model, error)
	Send(tea.Msg)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the dev board service.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree against args. fang reports errors on stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
}

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	endpoint   string

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("KANBOARD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("KANBOARD_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:   "kanboard",
		Short: "Terminal kanban boards backed by a GraphQL board service",
		Long: `kanboard browses and edits task boards held by a remote GraphQL service.

Run without a subcommand to open the board browser. Use "kanboard serve" to
start a local development service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runTUI(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to the local sqlite preference store")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "GraphQL endpoint of the board service")

	root.AddCommand(
		newPathsCommand(opts),
		newLoginCommand(opts, false),
		newLoginCommand(opts, true),
		newLogoutCommand(opts),
		newBoardsCommand(opts),
		newCreateBoardCommand(opts),
		newAddTaskCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// commandEnv is the resolved configuration and logging state of one invocation.
type commandEnv struct {
	appName    string
	devMode    bool
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

// resolve loads paths, config, and the runtime logger. Callers must close the result.
func (o *rootOptions) resolve(command string) (*commandEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{AppName: o.appName, DevMode: o.devMode})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		configPath = firstNonEmptyEnv("KANBOARD_CONFIG", paths.ConfigPath)
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("KANBOARD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if endpoint := strings.TrimSpace(o.endpoint); endpoint != "" {
		cfg.Remote.Endpoint = endpoint
	} else if envEndpoint := strings.TrimSpace(os.Getenv("KANBOARD_ENDPOINT")); envEndpoint != "" {
		cfg.Remote.Endpoint = envEndpoint
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// Runtime logs stay in the dev-file sink while the board is on screen.
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}
	return &commandEnv{
		appName:    o.appName,
		devMode:    o.devMode,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (e *commandEnv) close(stderr io.Writer) {
	if err := e.logger.Close(); err != nil && e.logger.consoleActive() {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// clientStack is the client-side wiring shared by the TUI and the remote commands.
type clientStack struct {
	store   *sqlite.Repository
	session *app.Session
	client  *graphql.Client
	ctrl    *app.Controller
}

// openClient opens the preference store, restores the session, and builds the
// GraphQL client that reads its bearer token from that session.
func (e *commandEnv) openClient(ctx context.Context) (*clientStack, error) {
	e.logger.Debug("opening sqlite preference store", "db_path", e.cfg.Database.Path)
	store, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", e.cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	_, darkErr := store.GetPreference(ctx, app.DarkModeKey)
	session := app.NewSession(store, e.logger)
	if err := session.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init session: %w", err)
	}
	if errors.Is(darkErr, app.ErrNotFound) {
		session.SetDarkMode(e.cfg.UI.DarkMode)
	}

	client, err := graphql.NewClient(graphql.Config{
		Endpoint:   e.cfg.Remote.Endpoint,
		HTTPClient: &http.Client{Timeout: e.cfg.RemoteTimeout()},
		Logger:     e.logger,
	}, session)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure graphql client: %w", err)
	}
	ctrl := app.NewController(client, app.ControllerConfig{Logger: e.logger, IDGen: uuid.NewString})
	e.logger.Debug("board client ready", "endpoint", client.Endpoint(), "authenticated", session.Authenticated())
	return &clientStack{store: store, session: session, client: client, ctrl: ctrl}, nil
}

func (c *clientStack) close(logger *runtimeLogger) {
	c.session.Teardown()
	if err := c.store.Close(); err != nil {
		logger.Warn("sqlite close failed", "err", err)
	}
}

// runTUI launches the interactive board browser.
func (o *rootOptions) runTUI(ctx context.Context) error {
	env, err := o.resolve("tui")
	if err != nil {
		return err
	}
	defer env.close(o.stderr)

	stack, err := env.openClient(ctx)
	if err != nil {
		return err
	}
	defer stack.close(env.logger)

	modals := app.NewModals(stack.ctrl, app.ModalsConfig{
		DefaultColumn: env.cfg.Board.DefaultColumn,
		Logger:        env.logger,
	})
	m := tui.NewModel(stack.ctrl, modals, stack.session,
		tui.WithKeyConfig(toTUIKeyConfig(env.cfg.Keys)),
		tui.WithSidebar(env.cfg.UI.ShowSidebar),
		tui.WithAuthenticator(stack.client),
		tui.WithLogger(env.logger),
	)

	env.logger.Info("starting tui program loop", "endpoint", stack.client.Endpoint())
	p := programFactory(m)
	stack.ctrl.OnChange(tui.StateListener(p.Send))
	if _, err := p.Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

func toTUIKeyConfig(keys config.KeyConfig) tui.KeyConfig {
	return tui.KeyConfig{
		CreateBoard:   keys.CreateBoard,
		AddTask:       keys.AddTask,
		Menu:          keys.Menu,
		Reload:        keys.Reload,
		ToggleSidebar: keys.ToggleSidebar,
		ToggleTheme:   keys.ToggleTheme,
	}
}

// parseBoolEnv parses a boolean environment variable when it is set.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

func firstNonEmptyEnv(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}
