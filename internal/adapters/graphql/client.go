// Package graphql adapts the remote board service's GraphQL API to the app ports.
package graphql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
	gql "github.com/machinebox/graphql"
)

// boardFields is the selection set shared by every board-returning operation.
const boardFields = `
      id
      name
      description
      columns {
        name
        tasks {
          title
          description
        }
      }`

// Operation documents sent to the service.
const (
	GetBoardsQuery = `query GetBoards {
    boards {` + boardFields + `
    }
  }`

	CreateBoardMutation = `mutation createBoard(
    $name: String!
    $description: String!
    $columns: [ColumnInput!]!
  ) {
    createBoard(name: $name, description: $description, columns: $columns) {` + boardFields + `
    }
  }`

	AddTaskToColumnMutation = `mutation addTaskToColumn(
    $boardId: ID!
    $columnName: String!
    $task: TaskInput!
  ) {
    addTaskToColumn(boardId: $boardId, columnName: $columnName, task: $task) {` + boardFields + `
    }
  }`

	LoginMutation = `mutation login($email: String!, $password: String!) {
    login(email: $email, password: $password) {
      token
    }
  }`

	RegisterMutation = `mutation register($email: String!, $password: String!) {
    register(email: $email, password: $password) {
      token
    }
  }`
)

// defaultTimeout bounds a single HTTP round trip when no client is supplied.
const defaultTimeout = 30 * time.Second

// TokenSource yields the current bearer credential; "" means anonymous.
type TokenSource interface {
	Token() string
}

// Config captures client configuration.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     app.Logger
}

// Client implements app.BoardService and app.Authenticator over GraphQL.
type Client struct {
	gql      *gql.Client
	tokens   TokenSource
	logger   app.Logger
	endpoint string
}

var (
	_ app.BoardService  = (*Client)(nil)
	_ app.Authenticator = (*Client)(nil)
)

// NewClient builds a client for cfg.Endpoint. tokens may be nil.
func NewClient(cfg Config, tokens TokenSource) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("graphql endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("graphql endpoint %q must be http(s)", endpoint)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	c := &Client{
		gql:      gql.NewClient(endpoint, gql.WithHTTPClient(httpClient)),
		tokens:   tokens,
		logger:   cfg.Logger,
		endpoint: endpoint,
	}
	if c.logger != nil {
		c.gql.Log = func(s string) { c.logger.Debug("graphql", "msg", s) }
	}
	return c, nil
}

// Endpoint returns the configured service URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type boardsResponse struct {
	Boards []domain.Board `json:"boards"`
}

type createBoardResponse struct {
	CreateBoard domain.Board `json:"createBoard"`
}

type addTaskResponse struct {
	AddTaskToColumn domain.Board `json:"addTaskToColumn"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Login *tokenPayload `json:"login"`
}

type registerResponse struct {
	Register *tokenPayload `json:"register"`
}

// ListBoards runs GetBoards.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var resp boardsResponse
	if err := c.run(ctx, c.request(GetBoardsQuery, nil), &resp); err != nil {
		return nil, fmt.Errorf("graphql GetBoards: %w", err)
	}
	if resp.Boards == nil {
		resp.Boards = []domain.Board{}
	}
	for idx := range resp.Boards {
		normalizeBoard(&resp.Boards[idx])
	}
	return resp.Boards, nil
}

// CreateBoard runs createBoard.
func (c *Client) CreateBoard(ctx context.Context, name, description string, columns []domain.Column) (domain.Board, error) {
	if columns == nil {
		columns = []domain.Column{}
	}
	req := c.request(CreateBoardMutation, map[string]any{
		"name":        name,
		"description": description,
		"columns":     columns,
	})
	var resp createBoardResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return domain.Board{}, fmt.Errorf("graphql createBoard: %w", err)
	}
	normalizeBoard(&resp.CreateBoard)
	return resp.CreateBoard, nil
}

// AddTaskToColumn runs addTaskToColumn.
func (c *Client) AddTaskToColumn(ctx context.Context, boardID, columnName string, task domain.Task) (domain.Board, error) {
	req := c.request(AddTaskToColumnMutation, map[string]any{
		"boardId":    boardID,
		"columnName": columnName,
		"task":       task,
	})
	var resp addTaskResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return domain.Board{}, fmt.Errorf("graphql addTaskToColumn: %w", err)
	}
	normalizeBoard(&resp.AddTaskToColumn)
	return resp.AddTaskToColumn, nil
}

// Login runs login and returns the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	req := c.request(LoginMutation, map[string]any{"email": email, "password": password})
	if err := c.run(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("graphql login: %w", err)
	}
	if resp.Login == nil || strings.TrimSpace(resp.Login.Token) == "" {
		return "", fmt.Errorf("graphql login: %w", app.ErrNotAuthenticated)
	}
	return resp.Login.Token, nil
}

// Register runs register and returns the issued token.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var resp registerResponse
	req := c.request(RegisterMutation, map[string]any{"email": email, "password": password})
	if err := c.run(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("graphql register: %w", err)
	}
	if resp.Register == nil || strings.TrimSpace(resp.Register.Token) == "" {
		return "", fmt.Errorf("graphql register: %w", app.ErrNotAuthenticated)
	}
	return resp.Register.Token, nil
}

// request builds one request with variables and the bearer header attached.
func (c *Client) request(document string, vars map[string]any) *gql.Request {
	req := gql.NewRequest(document)
	for key, value := range vars {
		req.Var(key, value)
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req
}

func (c *Client) run(ctx context.Context, req *gql.Request, resp any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.gql.Run(ctx, req, resp)
}

// normalizeBoard replaces null lists so value comparisons stay stable.
func normalizeBoard(b *domain.Board) {
	if b.Columns == nil {
		b.Columns = []domain.Column{}
	}
	for idx := range b.Columns {
		if b.Columns[idx].Tasks == nil {
			b.Columns[idx].Tasks = []domain.Task{}
		}
	}
}
