package app

import (
	"context"

	"github.com/hylla/kanboard/internal/domain"
)

// BoardService is the remote source of truth for boards.
type BoardService interface {
	ListBoards(context.Context) ([]domain.Board, error)
	CreateBoard(ctx context.Context, name, description string, columns []domain.Column) (domain.Board, error)
	AddTaskToColumn(ctx context.Context, boardID, columnName string, task domain.Task) (domain.Board, error)
}

// Authenticator exchanges credentials for an opaque bearer token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) (string, error)
}

// CredentialStore persists small string preferences across runs.
// GetPreference returns ErrNotFound when the key was never set.
type CredentialStore interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

// Logger is the structured logging surface used by the core. *log.Logger from
// charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// IDGenerator returns unique identifiers for correlation ids.
type IDGenerator func() string

// nopLogger drops every record.
type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
