package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// AppServiceAdapter exposes the hosted app service through transport contracts.
type AppServiceAdapter struct {
	service *app.Service
	tokens  *TokenIssuer
}

var (
	_ BoardDirectory = (*AppServiceAdapter)(nil)
	_ AccountService = (*AppServiceAdapter)(nil)
)

// NewAppServiceAdapter constructs a new adapter.
func NewAppServiceAdapter(service *app.Service, tokens *TokenIssuer) *AppServiceAdapter {
	return &AppServiceAdapter{service: service, tokens: tokens}
}

// ListBoards lists the caller's boards.
func (a *AppServiceAdapter) ListBoards(ctx context.Context) ([]domain.Board, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	boards, err := a.service.ListBoards(ctx)
	if err != nil {
		return nil, mapAppError("list boards", err)
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	return boards, nil
}

// CreateBoard creates one board owned by the caller.
func (a *AppServiceAdapter) CreateBoard(ctx context.Context, in CreateBoardRequest) (domain.Board, error) {
	if err := a.ready(); err != nil {
		return domain.Board{}, err
	}
	board, err := a.service.CreateBoard(ctx, in.Name, in.Description, in.Columns)
	if err != nil {
		return domain.Board{}, mapAppError("create board", err)
	}
	return board, nil
}

// AddTaskToColumn appends one task and returns the stored board.
func (a *AppServiceAdapter) AddTaskToColumn(ctx context.Context, in AddTaskRequest) (domain.Board, error) {
	if err := a.ready(); err != nil {
		return domain.Board{}, err
	}
	if strings.TrimSpace(in.BoardID) == "" {
		return domain.Board{}, fmt.Errorf("board_id is required: %w", ErrInvalidRequest)
	}
	board, err := a.service.AddTaskToColumn(ctx, in.BoardID, in.ColumnName, in.Task)
	if err != nil {
		return domain.Board{}, mapAppError("add task to column", err)
	}
	return board, nil
}

// Login verifies credentials and issues a token.
func (a *AppServiceAdapter) Login(ctx context.Context, email, password string) (AuthSession, error) {
	if err := a.ready(); err != nil {
		return AuthSession{}, err
	}
	user, err := a.service.Authenticate(ctx, email, password)
	if err != nil {
		return AuthSession{}, mapAppError("login", err)
	}
	return a.session(user)
}

// Register creates an account and issues a token.
func (a *AppServiceAdapter) Register(ctx context.Context, email, password string) (AuthSession, error) {
	if err := a.ready(); err != nil {
		return AuthSession{}, err
	}
	user, err := a.service.Register(ctx, email, password)
	if err != nil {
		return AuthSession{}, mapAppError("register", err)
	}
	return a.session(user)
}

func (a *AppServiceAdapter) session(user domain.User) (AuthSession, error) {
	token, err := a.tokens.Issue(user)
	if err != nil {
		return AuthSession{}, err
	}
	return AuthSession{Token: token, UserID: user.ID, Email: user.Email}, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil || a.tokens == nil {
		return fmt.Errorf("app service adapter is not configured")
	}
	return nil
}

// mapAppError wraps app and domain failures with the matching transport sentinel.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotAuthenticated), errors.Is(err, app.ErrInvalidLogin):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUnauthorized, err))
	case errors.Is(err, app.ErrNotFound), errors.Is(err, domain.ErrColumnNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrEmailTaken):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidPassword),
		app.IsValidation(err):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
