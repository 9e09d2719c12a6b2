package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/adapters/server"
	servercommon "github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/adapters/storage/sqlite"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/spf13/cobra"
)

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.resolve("paths")
			if err != nil {
				return err
			}
			defer env.close(opts.stderr)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", env.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", env.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", env.configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", env.paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", env.cfg.Database.Path)
			_, _ = fmt.Fprintf(out, "server_db: %s\n", env.paths.ServerDBPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", env.paths.LogDir)
			_, _ = fmt.Fprintf(out, "endpoint: %s\n", env.cfg.Remote.Endpoint)
			return nil
		},
	}
}

// newLoginCommand builds "login", or "register" when register is set. Both
// persist the issued token in the preference store.
func newLoginCommand(opts *rootOptions, register bool) *cobra.Command {
	var email, password string
	name, short := "login", "Sign in and store the issued credential"
	if register {
		name, short = "register", "Create an account and store the issued credential"
	}
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				read, err := readSecretLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = read
			}
			return opts.withClient(cmd.Context(), name, func(ctx context.Context, env *commandEnv, stack *clientStack) error {
				call := stack.session.Login
				verb := "signed in as"
				if register {
					call = stack.session.Register
					verb = "registered"
				}
				if err := call(ctx, stack.client, email, password); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, strings.TrimSpace(email))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when omitted)")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd.Context(), "logout", func(ctx context.Context, _ *commandEnv, stack *clientStack) error {
				if err := stack.session.Logout(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newBoardsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List boards with their columns and tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd.Context(), "boards", func(ctx context.Context, _ *commandEnv, stack *clientStack) error {
				if err := requireSignedIn(stack); err != nil {
					return err
				}
				if err := stack.ctrl.LoadBoards(ctx); err != nil {
					return err
				}
				boards := stack.ctrl.State().Boards
				if asJSON {
					return writeBoardsJSON(cmd.OutOrStdout(), boards)
				}
				writeBoardsText(cmd.OutOrStdout(), boards)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print boards as JSON")
	return cmd
}

func newCreateBoardCommand(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create-board NAME",
		Short: "Create a board seeded with the default column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd.Context(), "create-board", func(ctx context.Context, _ *commandEnv, stack *clientStack) error {
				if err := requireSignedIn(stack); err != nil {
					return err
				}
				board, err := stack.ctrl.CreateBoard(ctx, args[0], description)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created board %s (%s)\n", board.Name, board.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "board description (markdown)")
	return cmd
}

func newAddTaskCommand(opts *rootOptions) *cobra.Command {
	var title, description, column string
	cmd := &cobra.Command{
		Use:   "add-task BOARD_ID",
		Short: "Append a task to a board column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd.Context(), "add-task", func(ctx context.Context, env *commandEnv, stack *clientStack) error {
				if err := requireSignedIn(stack); err != nil {
					return err
				}
				if strings.TrimSpace(column) == "" {
					column = env.cfg.Board.DefaultColumn
				}
				if err := stack.ctrl.LoadBoards(ctx); err != nil {
					return err
				}
				if err := stack.ctrl.SelectBoard(args[0]); err != nil {
					return err
				}
				board, err := stack.ctrl.AddTaskToColumn(ctx, args[0], column, domain.Task{Title: title, Description: description})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %q to %s / %s\n", strings.TrimSpace(title), board.Name, column)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&column, "column", "", "target column (defaults to board.default_column)")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var bind, serverDB string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development board service (GraphQL + MCP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.resolve("serve")
			if err != nil {
				return err
			}
			defer env.close(opts.stderr)

			env.logger.Info("command flow start", "command", "serve")
			if err := runServe(cmd.Context(), env, bind, serverDB); err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP listen address (defaults to server.bind)")
	cmd.Flags().StringVar(&serverDB, "server-db", "", "path to the service sqlite database")
	return cmd
}

// runServe opens the service store and blocks in the HTTP server until ctx ends.
func runServe(ctx context.Context, env *commandEnv, bind, serverDB string) error {
	dbPath := strings.TrimSpace(serverDB)
	if dbPath == "" {
		dbPath = env.paths.ServerDBPath
	}
	env.logger.Info("opening sqlite repository", "db_path", dbPath)
	repo, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open service store: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			env.logger.Warn("sqlite close failed", "db_path", dbPath, "err", closeErr)
		}
	}()

	secret := strings.TrimSpace(env.cfg.Server.JWTSecret)
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		env.logger.Warn("server.jwt_secret is not set; tokens are invalidated on restart")
	}
	issuer, err := servercommon.NewTokenIssuer([]byte(secret), env.cfg.TokenTTL(), nil)
	if err != nil {
		return fmt.Errorf("configure token issuer: %w", err)
	}
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{})
	adapter := servercommon.NewAppServiceAdapter(svc, issuer)

	if strings.TrimSpace(bind) == "" {
		bind = env.cfg.Server.Bind
	}
	return serveCommandRunner(ctx, server.Config{
		HTTPBind:        bind,
		GraphQLEndpoint: env.cfg.Server.GraphQLPath,
		MCPEndpoint:     env.cfg.Server.MCPPath,
		ServerName:      env.appName,
		ServerVersion:   version,
	}, server.Dependencies{
		Boards:   adapter,
		Accounts: adapter,
		Auth:     issuer,
		Logger:   env.logger,
	})
}

// withClient resolves the environment, opens the client stack, and runs fn
// under the configured remote timeout.
func (o *rootOptions) withClient(ctx context.Context, command string, fn func(context.Context, *commandEnv, *clientStack) error) error {
	env, err := o.resolve(command)
	if err != nil {
		return err
	}
	defer env.close(o.stderr)

	stack, err := env.openClient(ctx)
	if err != nil {
		return err
	}
	defer stack.close(env.logger)

	if timeout := env.cfg.RemoteTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	env.logger.Info("command flow start", "command", command)
	if err := fn(ctx, env, stack); err != nil {
		env.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("%s: %w", command, err)
	}
	env.logger.Info("command flow complete", "command", command)
	return nil
}

func requireSignedIn(stack *clientStack) error {
	if !stack.session.Authenticated() {
		return fmt.Errorf("%w: run `kanboard login` first", app.ErrNotAuthenticated)
	}
	return nil
}

func writeBoardsJSON(w io.Writer, boards []domain.Board) error {
	if boards == nil {
		boards = []domain.Board{}
	}
	encoded, err := json.MarshalIndent(boards, "", "  ")
	if err != nil {
		return fmt.Errorf("encode boards json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

func writeBoardsText(w io.Writer, boards []domain.Board) {
	if len(boards) == 0 {
		_, _ = fmt.Fprintln(w, "no boards")
		return
	}
	for _, board := range boards {
		_, _ = fmt.Fprintf(w, "%s  %s  (%d tasks)\n", board.ID, board.Name, board.TaskCount())
		for _, column := range board.Columns {
			_, _ = fmt.Fprintf(w, "  %s (%d)\n", column.Name, len(column.Tasks))
			for _, task := range column.Tasks {
				_, _ = fmt.Fprintf(w, "    - %s\n", task.Title)
			}
		}
	}
}

// readSecretLine reads one line, trimming the line ending only.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
