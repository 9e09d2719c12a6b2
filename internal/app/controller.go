package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/hylla/kanboard/internal/domain"
)

// LoadPhase describes the lifecycle of the authoritative board list.
type LoadPhase string

// LoadPhaseIdle and related constants enumerate load phases.
const (
	LoadPhaseIdle    LoadPhase = "idle"
	LoadPhaseLoading LoadPhase = "loading"
	LoadPhaseReady   LoadPhase = "ready"
	LoadPhaseError   LoadPhase = "error"
)

// SelectionKind tags the selected-board reference.
type SelectionKind uint8

// SelectionNone and related constants enumerate selection kinds.
const (
	SelectionNone SelectionKind = iota
	SelectionConfirmed
	SelectionPending
)

// String returns a stable label.
func (k SelectionKind) String() string {
	switch k {
	case SelectionConfirmed:
		return "confirmed"
	case SelectionPending:
		return "pending"
	default:
		return "none"
	}
}

// Selection is the currently viewed board.
//
// A confirmed selection carries a board from the authoritative list in Board.
// A pending selection carries the optimistic projection in Board, the last
// authoritative copy in Base, and the correlation id of the add-task operation
// that produced the projection.
type Selection struct {
	Kind          SelectionKind
	Board         domain.Board
	Base          domain.Board
	CorrelationID string
}

// Current returns the board to render, if any.
func (s Selection) Current() (domain.Board, bool) {
	if s.Kind == SelectionNone {
		return domain.Board{}, false
	}
	return s.Board, true
}

func (s Selection) clone() Selection {
	out := s
	out.Board = s.Board.Clone()
	out.Base = s.Base.Clone()
	return out
}

// OperationKind keys in-flight asynchronous operations.
type OperationKind string

// OperationLoadBoards and related constants enumerate operation kinds.
const (
	OperationLoadBoards  OperationKind = "load_boards"
	OperationCreateBoard OperationKind = "create_board"
	OperationAddTask     OperationKind = "add_task"
)

// State is a deep-copied snapshot of controller state.
type State struct {
	Phase     LoadPhase
	Err       string
	Boards    []domain.Board
	Selection Selection
	Pending   []OperationKind
}

// ControllerConfig holds optional controller collaborators.
type ControllerConfig struct {
	Logger Logger
	IDGen  IDGenerator
}

type operation struct {
	id     string
	cancel context.CancelFunc
}

// Controller owns the authoritative board list and the selected-board projection.
type Controller struct {
	svc    BoardService
	logger Logger
	idGen  IDGenerator

	mu        sync.Mutex
	phase     LoadPhase
	errMsg    string
	boards    []domain.Board
	selection Selection
	ops       map[OperationKind]operation
	listeners []func(State)
}

// NewController constructs a controller backed by svc.
func NewController(svc BoardService, cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.IDGen == nil {
		cfg.IDGen = uuid.NewString
	}
	return &Controller{
		svc:    svc,
		logger: cfg.Logger,
		idGen:  cfg.IDGen,
		phase:  LoadPhaseIdle,
		ops:    map[OperationKind]operation{},
	}
}

// OnChange registers fn to receive a snapshot after every state transition.
// Listeners run outside the controller lock and must not block.
func (c *Controller) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Selected returns the board currently rendered, if any.
func (c *Controller) Selected() (domain.Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	board, ok := c.selection.Current()
	return board.Clone(), ok
}

// PendingOperations lists in-flight operation kinds in a stable order.
func (c *Controller) PendingOperations() []OperationKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

// LoadBoards replaces the authoritative list with the service response.
func (c *Controller) LoadBoards(ctx context.Context) error {
	c.mu.Lock()
	opCtx, opID := c.beginLocked(ctx, OperationLoadBoards)
	c.phase = LoadPhaseLoading
	c.errMsg = ""
	c.mu.Unlock()
	c.notify()

	boards, err := c.svc.ListBoards(opCtx)

	c.mu.Lock()
	if !c.finishLocked(OperationLoadBoards, opID) {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.phase = LoadPhaseError
		c.errMsg = err.Error()
		c.mu.Unlock()
		c.notify()
		c.logger.Error("load boards failed", "err", err)
		return fmt.Errorf("load boards: %w", err)
	}
	c.boards = domain.CloneBoards(boards)
	if c.boards == nil {
		c.boards = []domain.Board{}
	}
	c.phase = LoadPhaseReady
	c.repointSelectionLocked()
	count := len(c.boards)
	c.mu.Unlock()
	c.notify()
	c.logger.Debug("boards loaded", "count", count)
	return nil
}

// CreateBoard sends a create mutation seeded with the default column and
// refetches the list to confirm. The created board is never inserted locally.
func (c *Controller) CreateBoard(ctx context.Context, name, description string) (domain.Board, error) {
	draft, err := domain.NewBoard(name, description)
	if err != nil {
		return domain.Board{}, err
	}

	c.mu.Lock()
	opCtx, opID := c.beginLocked(ctx, OperationCreateBoard)
	c.mu.Unlock()
	c.notify()

	// The name is validated trimmed but sent as given.
	created, err := c.svc.CreateBoard(opCtx, name, description, draft.Columns)

	c.mu.Lock()
	current := c.finishLocked(OperationCreateBoard, opID)
	c.mu.Unlock()
	c.notify()
	if !current {
		return domain.Board{}, ErrSuperseded
	}
	if err != nil {
		c.logger.Error("create board failed", "name", name, "err", err)
		return domain.Board{}, fmt.Errorf("create board: %w", err)
	}
	c.logger.Info("board created", "id", created.ID, "name", created.Name)

	if err := c.LoadBoards(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		c.logger.Warn("refetch after create failed", "err", err)
	}
	return created, nil
}

// AddTaskToColumn stages the optimistic projection and commits it.
func (c *Controller) AddTaskToColumn(ctx context.Context, boardID, columnName string, task domain.Task) (domain.Board, error) {
	pending, err := c.StageTask(boardID, columnName, task)
	if err != nil {
		return domain.Board{}, err
	}
	return pending.Commit(ctx)
}

// PendingTask is an optimistic add-task projection awaiting its mutation.
type PendingTask struct {
	c             *Controller
	boardID       string
	columnName    string
	task          domain.Task
	projection    domain.Board
	correlationID string
}

// CorrelationID identifies the staged operation.
func (p *PendingTask) CorrelationID() string {
	return p.correlationID
}

// Projection returns the optimistic board shown while the mutation is in flight.
func (p *PendingTask) Projection() domain.Board {
	return p.projection.Clone()
}

// StageTask validates an add-task request and swaps the selection for an
// optimistic projection. It performs no I/O. A previously staged add-task that
// has not settled is superseded.
func (c *Controller) StageTask(boardID, columnName string, task domain.Task) (*PendingTask, error) {
	if _, err := domain.NewTask(task.Title, task.Description); err != nil {
		return nil, err
	}

	c.mu.Lock()
	current, ok := c.selection.Current()
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoBoardSelected
	}
	if current.ID != boardID {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: board %q is not selected", ErrNoBoardSelected, boardID)
	}
	projection, err := current.WithTask(columnName, task)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	base := current
	if c.selection.Kind == SelectionPending {
		base = c.selection.Base
	}
	_, opID := c.beginLocked(context.Background(), OperationAddTask)
	c.selection = Selection{
		Kind:          SelectionPending,
		Board:         projection,
		Base:          base.Clone(),
		CorrelationID: opID,
	}
	c.mu.Unlock()
	c.notify()
	c.logger.Debug("task staged", "board", boardID, "column", columnName, "correlation_id", opID)

	return &PendingTask{
		c:             c,
		boardID:       boardID,
		columnName:    columnName,
		task:          task,
		projection:    projection.Clone(),
		correlationID: opID,
	}, nil
}

// Commit sends the append mutation and reconciles the selection with the
// server's board. On failure the selection reverts to the last authoritative
// board.
func (p *PendingTask) Commit(ctx context.Context) (domain.Board, error) {
	c := p.c
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	op, ok := c.ops[OperationAddTask]
	if !ok || op.id != p.correlationID {
		c.mu.Unlock()
		return domain.Board{}, ErrSuperseded
	}
	if op.cancel != nil {
		op.cancel()
	}
	op.cancel = cancel
	c.ops[OperationAddTask] = op
	c.mu.Unlock()

	server, err := c.svc.AddTaskToColumn(opCtx, p.boardID, p.columnName, p.task)

	c.mu.Lock()
	if !c.finishLocked(OperationAddTask, p.correlationID) {
		c.mu.Unlock()
		c.logger.Debug("add task result discarded", "correlation_id", p.correlationID)
		return domain.Board{}, ErrSuperseded
	}
	owned := c.selection.Kind == SelectionPending && c.selection.CorrelationID == p.correlationID
	if err != nil {
		if owned {
			c.selection = Selection{Kind: SelectionConfirmed, Board: c.selection.Base.Clone()}
		}
		c.mu.Unlock()
		c.notify()
		c.logger.Error("add task failed, projection rolled back", "board", p.boardID, "column", p.columnName, "err", err)
		return domain.Board{}, fmt.Errorf("add task to column: %w", err)
	}
	if owned {
		c.selection = Selection{Kind: SelectionConfirmed, Board: server.Clone()}
	}
	c.upsertLocked(server)
	c.mu.Unlock()
	c.notify()

	if diffs := domain.DiffBoards(p.projection, server); len(diffs) > 0 {
		c.logger.Debug("server board differs from projection", "correlation_id", p.correlationID, "diffs", diffs)
	}
	return server.Clone(), nil
}

// SelectBoard selects a board from the authoritative list.
func (c *Controller) SelectBoard(id string) error {
	c.mu.Lock()
	idx := slices.IndexFunc(c.boards, func(b domain.Board) bool { return b.ID == id })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBoardNotFound, id)
	}
	c.selection = Selection{Kind: SelectionConfirmed, Board: c.boards[idx].Clone()}
	c.mu.Unlock()
	c.notify()
	return nil
}

// ClearSelection drops the selected board.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selection = Selection{}
	c.mu.Unlock()
	c.notify()
}

// beginLocked registers a new operation of kind, cancelling any prior one.
func (c *Controller) beginLocked(ctx context.Context, kind OperationKind) (context.Context, string) {
	if prev, ok := c.ops[kind]; ok && prev.cancel != nil {
		prev.cancel()
	}
	opCtx, cancel := context.WithCancel(ctx)
	id := c.idGen()
	c.ops[kind] = operation{id: id, cancel: cancel}
	return opCtx, id
}

// finishLocked retires the operation and reports whether it was still current.
func (c *Controller) finishLocked(kind OperationKind, id string) bool {
	op, ok := c.ops[kind]
	if !ok || op.id != id {
		return false
	}
	if op.cancel != nil {
		op.cancel()
	}
	delete(c.ops, kind)
	return true
}

// repointSelectionLocked keeps the selection consistent with a fresh list.
func (c *Controller) repointSelectionLocked() {
	switch c.selection.Kind {
	case SelectionConfirmed:
		fresh, ok := c.findLocked(c.selection.Board.ID)
		if !ok {
			c.selection = Selection{}
			return
		}
		c.selection.Board = fresh
	case SelectionPending:
		if fresh, ok := c.findLocked(c.selection.Base.ID); ok {
			c.selection.Base = fresh
		}
	}
}

func (c *Controller) findLocked(id string) (domain.Board, bool) {
	for _, board := range c.boards {
		if board.ID == id {
			return board.Clone(), true
		}
	}
	return domain.Board{}, false
}

func (c *Controller) upsertLocked(board domain.Board) {
	for idx := range c.boards {
		if c.boards[idx].ID == board.ID {
			c.boards[idx] = board.Clone()
			return
		}
	}
	c.boards = append(c.boards, board.Clone())
}

func (c *Controller) pendingLocked() []OperationKind {
	out := make([]OperationKind, 0, len(c.ops))
	for kind := range c.ops {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}

func (c *Controller) snapshotLocked() State {
	return State{
		Phase:     c.phase,
		Err:       c.errMsg,
		Boards:    domain.CloneBoards(c.boards),
		Selection: c.selection.clone(),
		Pending:   c.pendingLocked(),
	}
}

// notify delivers one snapshot to every listener.
func (c *Controller) notify() {
	c.mu.Lock()
	if len(c.listeners) == 0 {
		c.mu.Unlock()
		return
	}
	state := c.snapshotLocked()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}
