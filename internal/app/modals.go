package app

import (
	"context"
	"strings"
	"sync"

	"github.com/hylla/kanboard/internal/domain"
)

// CreateBoardForm holds the create-board modal draft.
type CreateBoardForm struct {
	Open        bool
	Name        string
	Description string
	Submitting  bool
	Err         error
}

// AddTaskForm holds the add-task modal draft.
type AddTaskForm struct {
	Open        bool
	Title       string
	Description string
	Column      string
	Submitting  bool
	Err         error
}

// ModalState is a snapshot of both forms.
type ModalState struct {
	CreateBoard CreateBoardForm
	AddTask     AddTaskForm
}

// CommitFunc finishes a staged submission.
type CommitFunc func(context.Context) error

// ModalsConfig holds optional modal settings.
type ModalsConfig struct {
	DefaultColumn string
	Logger        Logger
}

// Modals validates form input and delegates to the controller. The two forms
// are independent and may be open at the same time.
type Modals struct {
	ctrl          *Controller
	logger        Logger
	defaultColumn string

	mu          sync.Mutex
	createBoard CreateBoardForm
	addTask     AddTaskForm
}

// NewModals constructs the orchestrator.
func NewModals(ctrl *Controller, cfg ModalsConfig) *Modals {
	column := strings.TrimSpace(cfg.DefaultColumn)
	if column == "" {
		column = domain.DefaultColumnName
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Modals{
		ctrl:          ctrl,
		logger:        cfg.Logger,
		defaultColumn: column,
		addTask:       AddTaskForm{Column: column},
	}
}

// State returns a snapshot of both forms.
func (m *Modals) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ModalState{CreateBoard: m.createBoard, AddTask: m.addTask}
}

// ToggleCreateBoard flips the create-board modal.
func (m *Modals) ToggleCreateBoard() {
	m.mu.Lock()
	m.createBoard.Open = !m.createBoard.Open
	m.mu.Unlock()
}

// ToggleAddTask flips the add-task modal.
func (m *Modals) ToggleAddTask() {
	m.mu.Lock()
	m.addTask.Open = !m.addTask.Open
	m.mu.Unlock()
}

// SetBoardDraft replaces the create-board draft fields.
func (m *Modals) SetBoardDraft(name, description string) {
	m.mu.Lock()
	m.createBoard.Name = name
	m.createBoard.Description = description
	m.mu.Unlock()
}

// SetTaskDraft replaces the add-task draft fields. An empty column keeps the
// current target.
func (m *Modals) SetTaskDraft(title, description, column string) {
	m.mu.Lock()
	m.addTask.Title = title
	m.addTask.Description = description
	if strings.TrimSpace(column) != "" {
		m.addTask.Column = column
	}
	m.mu.Unlock()
}

// CancelCreateBoard closes the form and discards its drafts.
func (m *Modals) CancelCreateBoard() {
	m.mu.Lock()
	submitting := m.createBoard.Submitting
	m.createBoard = CreateBoardForm{Submitting: submitting}
	m.mu.Unlock()
}

// CancelAddTask closes the form and discards its drafts.
func (m *Modals) CancelAddTask() {
	m.mu.Lock()
	submitting := m.addTask.Submitting
	m.addTask = AddTaskForm{Column: m.defaultColumn, Submitting: submitting}
	m.mu.Unlock()
}

// SubmitCreateBoard validates the draft and creates the board. Drafts survive
// failures so the user can retry.
func (m *Modals) SubmitCreateBoard(ctx context.Context) error {
	m.mu.Lock()
	if m.createBoard.Submitting {
		m.mu.Unlock()
		return ErrSubmitInFlight
	}
	name, description := m.createBoard.Name, m.createBoard.Description
	if strings.TrimSpace(name) == "" {
		err := &ValidationError{Field: "name", Err: domain.ErrInvalidName}
		m.createBoard.Err = err
		m.mu.Unlock()
		return err
	}
	m.createBoard.Submitting = true
	m.createBoard.Err = nil
	m.mu.Unlock()

	_, err := m.ctrl.CreateBoard(ctx, name, description)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.createBoard.Submitting = false
	if err != nil {
		m.createBoard.Err = err
		return err
	}
	m.createBoard.Open = false
	m.createBoard.Err = nil
	if m.createBoard.Name == name && m.createBoard.Description == description {
		m.createBoard.Name = ""
		m.createBoard.Description = ""
	}
	return nil
}

// BeginAddTask validates the draft and stages the optimistic projection. The
// returned CommitFunc sends the mutation.
func (m *Modals) BeginAddTask() (CommitFunc, error) {
	m.mu.Lock()
	if m.addTask.Submitting {
		m.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	form := m.addTask
	var verr *ValidationError
	switch {
	case strings.TrimSpace(form.Title) == "":
		verr = &ValidationError{Field: "title", Err: domain.ErrInvalidTitle}
	case strings.TrimSpace(form.Description) == "":
		verr = &ValidationError{Field: "description", Err: domain.ErrInvalidDescription}
	}
	if verr != nil {
		m.addTask.Err = verr
		m.mu.Unlock()
		return nil, verr
	}
	m.addTask.Submitting = true
	m.addTask.Err = nil
	m.mu.Unlock()

	board, ok := m.ctrl.Selected()
	if !ok {
		return nil, m.failAddTask(&ValidationError{Field: "board", Err: ErrNoBoardSelected})
	}
	pending, err := m.ctrl.StageTask(board.ID, form.Column, domain.Task{Title: form.Title, Description: form.Description})
	if err != nil {
		return nil, m.failAddTask(err)
	}

	return func(ctx context.Context) error {
		_, err := pending.Commit(ctx)
		if err != nil {
			return m.failAddTask(err)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.addTask.Submitting = false
		m.addTask.Open = false
		m.addTask.Err = nil
		if m.addTask.Title == form.Title && m.addTask.Description == form.Description {
			m.addTask.Title = ""
			m.addTask.Description = ""
			m.addTask.Column = m.defaultColumn
		}
		return nil
	}, nil
}

// SubmitAddTask stages and commits the add-task draft.
func (m *Modals) SubmitAddTask(ctx context.Context) error {
	commit, err := m.BeginAddTask()
	if err != nil {
		return err
	}
	return commit(ctx)
}

func (m *Modals) failAddTask(err error) error {
	m.mu.Lock()
	m.addTask.Submitting = false
	m.addTask.Err = err
	m.mu.Unlock()
	m.logger.Debug("add task submission failed", "err", err)
	return err
}
