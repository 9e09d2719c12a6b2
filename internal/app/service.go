package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hylla/kanboard/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the persistence port of the hosted board service.
type Repository interface {
	CreateUser(context.Context, domain.User) error
	GetUserByEmail(context.Context, string) (domain.User, error)

	CreateBoard(ctx context.Context, ownerID string, board domain.Board, createdAt time.Time) error
	GetBoard(ctx context.Context, ownerID, boardID string) (domain.Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]domain.Board, error)
	UpdateBoardColumns(ctx context.Context, ownerID string, board domain.Board, updatedAt time.Time) error
}

// Clock returns the current time.
type Clock func() time.Time

// ErrEmailTaken and ErrInvalidLogin describe account failures.
var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidLogin = errors.New("invalid email or password")
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service is the hosted board service behind the development server. Board
// operations are scoped to the actor carried in the context and satisfy
// BoardService, so the same contract is served locally and remotely.
type Service struct {
	repo       Repository
	idGen      IDGenerator
	clock      Clock
	bcryptCost int

	// writeMu serializes read-modify-write cycles on board columns.
	writeMu sync.Mutex
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, idGen: idGen, clock: clock, bcryptCost: cfg.BcryptCost}
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password string) (domain.User, error) {
	if password == "" {
		return domain.User{}, domain.ErrInvalidPassword
	}
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, normalized); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := domain.NewUser(s.idGen(), normalized, hash, s.clock())
	if err != nil {
		return domain.User{}, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, ErrInvalidLogin
	}
	user, err := s.repo.GetUserByEmail(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		return domain.User{}, ErrInvalidLogin
	}
	if err != nil {
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return domain.User{}, ErrInvalidLogin
	}
	return user, nil
}

// ListBoards lists the actor's boards in creation order.
func (s *Service) ListBoards(ctx context.Context) ([]domain.Board, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBoards(ctx, actor.UserID)
}

// CreateBoard stores a new board. Missing columns fall back to the seed set.
func (s *Service) CreateBoard(ctx context.Context, name, description string, columns []domain.Column) (domain.Board, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	board, err := domain.NewBoard(name, description)
	if err != nil {
		return domain.Board{}, err
	}
	if len(columns) > 0 {
		board.Columns, err = normalizeColumns(columns)
		if err != nil {
			return domain.Board{}, err
		}
	}
	board.ID = s.idGen()
	if strings.TrimSpace(board.ID) == "" {
		return domain.Board{}, domain.ErrInvalidID
	}
	if err := s.repo.CreateBoard(ctx, actor.UserID, board, s.clock()); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// AddTaskToColumn appends task to the named column and returns the stored board.
func (s *Service) AddTaskToColumn(ctx context.Context, boardID, columnName string, task domain.Task) (domain.Board, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	task, err = domain.NewTask(task.Title, task.Description)
	if err != nil {
		return domain.Board{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	board, err := s.repo.GetBoard(ctx, actor.UserID, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	next, err := board.WithTask(columnName, task)
	if err != nil {
		return domain.Board{}, err
	}
	if err := s.repo.UpdateBoardColumns(ctx, actor.UserID, next, s.clock()); err != nil {
		return domain.Board{}, err
	}
	return next, nil
}

// normalizeColumns validates client-supplied columns.
func normalizeColumns(in []domain.Column) ([]domain.Column, error) {
	out := make([]domain.Column, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		column, err := domain.NewColumn(raw.Name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[column.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q", domain.ErrInvalidName, column.Name)
		}
		seen[column.Name] = struct{}{}
		for _, rawTask := range raw.Tasks {
			task, err := domain.NewTask(rawTask.Title, rawTask.Description)
			if err != nil {
				return nil, err
			}
			column.Tasks = append(column.Tasks, task)
		}
		out = append(out, column)
	}
	return out, nil
}

func requireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return Actor{}, ErrNotAuthenticated
	}
	return actor, nil
}
