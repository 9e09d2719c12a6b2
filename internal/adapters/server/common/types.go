// Package common provides transport-agnostic server contracts used by the GraphQL and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/kanboard/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrUnauthorized reports a missing, expired, or rejected credential.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a write that collides with existing state.
var ErrConflict = errors.New("conflict")

// CreateBoardRequest captures one create-board call.
type CreateBoardRequest struct {
	Name        string
	Description string
	Columns     []domain.Column
}

// AddTaskRequest captures one add-task call.
type AddTaskRequest struct {
	BoardID    string
	ColumnName string
	Task       domain.Task
}

// AuthSession is returned by login and register.
type AuthSession struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// BoardDirectory serves board reads and writes for the actor carried in ctx.
type BoardDirectory interface {
	ListBoards(context.Context) ([]domain.Board, error)
	CreateBoard(context.Context, CreateBoardRequest) (domain.Board, error)
	AddTaskToColumn(context.Context, AddTaskRequest) (domain.Board, error)
}

// AccountService exchanges credentials for bearer tokens.
type AccountService interface {
	Login(ctx context.Context, email, password string) (AuthSession, error)
	Register(ctx context.Context, email, password string) (AuthSession, error)
}

// Authorizer resolves an Authorization header into an actor-bearing context.
// An empty header yields ctx unchanged.
type Authorizer interface {
	Authorize(ctx context.Context, header string) (context.Context, error)
}
