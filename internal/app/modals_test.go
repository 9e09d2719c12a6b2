package app

import (
	"context"
	"errors"
	"testing"

	"github.com/hylla/kanboard/internal/domain"
)

func newTestModals(t *testing.T, svc *fakeBoardService) (*Controller, *Modals) {
	t.Helper()
	ctrl := newTestController(t, svc)
	if err := ctrl.LoadBoards(context.Background()); err != nil {
		t.Fatalf("LoadBoards() error = %v", err)
	}
	return ctrl, NewModals(ctrl, ModalsConfig{})
}

// TestModalTogglesAreIndependent verifies both forms can be open at once.
func TestModalTogglesAreIndependent(t *testing.T) {
	_, modals := newTestModals(t, newFakeBoardService())
	modals.ToggleCreateBoard()
	modals.ToggleAddTask()
	state := modals.State()
	if !state.CreateBoard.Open || !state.AddTask.Open {
		t.Fatalf("expected both modals open, got %#v", state)
	}
	modals.ToggleCreateBoard()
	state = modals.State()
	if state.CreateBoard.Open || !state.AddTask.Open {
		t.Fatalf("expected only add-task open, got %#v", state)
	}
	if state.AddTask.Column != domain.DefaultColumnName {
		t.Fatalf("expected default column %q, got %q", domain.DefaultColumnName, state.AddTask.Column)
	}
}

// TestSubmitCreateBoardValidation verifies empty names never reach the service.
func TestSubmitCreateBoardValidation(t *testing.T) {
	svc := newFakeBoardService()
	_, modals := newTestModals(t, svc)
	modals.ToggleCreateBoard()
	modals.SetBoardDraft("  ", "keep me")

	err := modals.SubmitCreateBoard(context.Background())
	if !IsValidation(err) || !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected name validation error, got %v", err)
	}
	if _, create, _ := svc.calls(); create != 0 {
		t.Fatalf("expected no create call, got %d", create)
	}
	state := modals.State().CreateBoard
	if !state.Open || state.Description != "keep me" || state.Err == nil {
		t.Fatalf("expected open form with draft and error, got %#v", state)
	}
}

// TestSubmitCreateBoardFailureKeepsDrafts verifies drafts survive a service error.
func TestSubmitCreateBoardFailureKeepsDrafts(t *testing.T) {
	svc := newFakeBoardService()
	svc.createErr = errors.New("service unavailable")
	_, modals := newTestModals(t, svc)
	modals.ToggleCreateBoard()
	modals.SetBoardDraft("Roadmap", "Q1 plan")

	if err := modals.SubmitCreateBoard(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	state := modals.State().CreateBoard
	if !state.Open {
		t.Fatal("expected modal to remain open")
	}
	if state.Name != "Roadmap" || state.Description != "Q1 plan" {
		t.Fatalf("expected drafts retained, got %q/%q", state.Name, state.Description)
	}
	if state.Submitting {
		t.Fatal("expected submitting flag cleared")
	}

	svc.createErr = nil
	if err := modals.SubmitCreateBoard(context.Background()); err != nil {
		t.Fatalf("SubmitCreateBoard() retry error = %v", err)
	}
	state = modals.State().CreateBoard
	if state.Open || state.Name != "" || state.Description != "" || state.Err != nil {
		t.Fatalf("expected closed, cleared form after success, got %#v", state)
	}
}

// TestSubmitCreateBoardGuardsDoubleSubmit verifies the in-flight guard.
func TestSubmitCreateBoardGuardsDoubleSubmit(t *testing.T) {
	_, modals := newTestModals(t, newFakeBoardService())
	modals.SetBoardDraft("Roadmap", "")
	modals.mu.Lock()
	modals.createBoard.Submitting = true
	modals.mu.Unlock()

	if err := modals.SubmitCreateBoard(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
}

// TestBeginAddTaskStagesAndCommits verifies the optimistic add-task flow.
func TestBeginAddTaskStagesAndCommits(t *testing.T) {
	svc := newFakeBoardService(roadmapBoard())
	ctrl, modals := newTestModals(t, svc)
	if err := ctrl.SelectBoard("b1"); err != nil {
		t.Fatalf("SelectBoard() error = %v", err)
	}
	modals.ToggleAddTask()
	modals.SetTaskDraft("Design API", "Draft schema", "")

	commit, err := modals.BeginAddTask()
	if err != nil {
		t.Fatalf("BeginAddTask() error = %v", err)
	}
	if got := ctrl.State().Selection; got.Kind != SelectionPending || got.Board.TaskCount() != 1 {
		t.Fatalf("expected projection before commit, got %#v", got)
	}
	if _, err := modals.BeginAddTask(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight while staged, got %v", err)
	}
	if err := commit(context.Background()); err != nil {
		t.Fatalf("commit error = %v", err)
	}
	state := modals.State().AddTask
	if state.Open || state.Title != "" || state.Description != "" || state.Submitting {
		t.Fatalf("expected closed, cleared form, got %#v", state)
	}
	if got := ctrl.State().Selection; got.Kind != SelectionConfirmed || got.Board.TaskCount() != 1 {
		t.Fatalf("expected confirmed board with task, got %#v", got)
	}
}

// TestSubmitAddTaskValidationAndFailure verifies drafts survive validation and service errors.
func TestSubmitAddTaskValidationAndFailure(t *testing.T) {
	svc := newFakeBoardService(roadmapBoard())
	ctrl, modals := newTestModals(t, svc)
	modals.ToggleAddTask()

	modals.SetTaskDraft("Design API", "Draft schema", "")
	if err := modals.SubmitAddTask(context.Background()); !errors.Is(err, ErrNoBoardSelected) {
		t.Fatalf("expected ErrNoBoardSelected, got %v", err)
	}
	if err := ctrl.SelectBoard("b1"); err != nil {
		t.Fatalf("SelectBoard() error = %v", err)
	}

	modals.SetTaskDraft("", "Draft schema", "")
	if err := modals.SubmitAddTask(context.Background()); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, _, add := svc.calls(); add != 0 {
		t.Fatalf("expected no add calls, got %d", add)
	}

	svc.addErr = errors.New("mutation rejected")
	modals.SetTaskDraft("Design API", "Draft schema", "")
	if err := modals.SubmitAddTask(context.Background()); err == nil {
		t.Fatal("expected commit error")
	}
	state := modals.State().AddTask
	if !state.Open || state.Title != "Design API" || state.Description != "Draft schema" || state.Err == nil {
		t.Fatalf("expected drafts and error retained, got %#v", state)
	}
	if got := ctrl.State().Selection; got.Kind != SelectionConfirmed || got.Board.TaskCount() != 0 {
		t.Fatalf("expected rolled back selection, got %#v", got)
	}
}

// TestCancelClearsDrafts verifies explicit cancel discards drafts.
func TestCancelClearsDrafts(t *testing.T) {
	_, modals := newTestModals(t, newFakeBoardService())
	modals.ToggleCreateBoard()
	modals.SetBoardDraft("x", "y")
	modals.ToggleAddTask()
	modals.SetTaskDraft("t", "d", "Done")
	modals.CancelCreateBoard()
	modals.CancelAddTask()
	state := modals.State()
	if state.CreateBoard.Open || state.CreateBoard.Name != "" || state.CreateBoard.Description != "" {
		t.Fatalf("expected cleared create form, got %#v", state.CreateBoard)
	}
	if state.AddTask.Open || state.AddTask.Title != "" || state.AddTask.Column != domain.DefaultColumnName {
		t.Fatalf("expected cleared add form, got %#v", state.AddTask)
	}
}

// TestCancelCreateBoardDuringSubmitStillApplies verifies closing the form does
// not cancel an in-flight create.
func TestCancelCreateBoardDuringSubmitStillApplies(t *testing.T) {
	svc := newFakeBoardService()
	svc.createGate = make(chan struct{})
	svc.createStarted = make(chan struct{}, 1)
	ctrl, modals := newTestModals(t, svc)
	modals.ToggleCreateBoard()
	modals.SetBoardDraft("Roadmap", "Q1 plan")

	done := make(chan error, 1)
	go func() { done <- modals.SubmitCreateBoard(context.Background()) }()
	<-svc.createStarted

	modals.CancelCreateBoard()
	if state := modals.State().CreateBoard; state.Open || state.Name != "" || !state.Submitting {
		t.Fatalf("expected closed form with submit still in flight, got %#v", state)
	}
	close(svc.createGate)

	if err := <-done; err != nil {
		t.Fatalf("SubmitCreateBoard() error = %v", err)
	}
	boards := ctrl.State().Boards
	if len(boards) != 1 || boards[0].Name != "Roadmap" {
		t.Fatalf("expected created board after refetch, got %#v", boards)
	}
	if state := modals.State().CreateBoard; state.Open || state.Submitting || state.Err != nil {
		t.Fatalf("expected settled closed form, got %#v", state)
	}
}

// TestCancelAddTaskDuringCommitStillApplies verifies closing the form does not
// cancel an in-flight add-task and the server result is confirmed.
func TestCancelAddTaskDuringCommitStillApplies(t *testing.T) {
	svc := newFakeBoardService(roadmapBoard())
	svc.addGate = make(chan struct{})
	svc.addStarted = make(chan struct{}, 1)
	ctrl, modals := newTestModals(t, svc)
	if err := ctrl.SelectBoard("b1"); err != nil {
		t.Fatalf("SelectBoard() error = %v", err)
	}
	modals.ToggleAddTask()
	modals.SetTaskDraft("T", "D", "")

	done := make(chan error, 1)
	go func() { done <- modals.SubmitAddTask(context.Background()) }()
	<-svc.addStarted

	modals.CancelAddTask()
	if state := modals.State().AddTask; state.Open || state.Title != "" {
		t.Fatalf("expected closed, cleared form, got %#v", state)
	}
	close(svc.addGate)

	if err := <-done; err != nil {
		t.Fatalf("SubmitAddTask() error = %v", err)
	}
	got := ctrl.State().Selection
	if got.Kind != SelectionConfirmed {
		t.Fatalf("expected confirmed selection, got %s", got.Kind)
	}
	todo, _ := got.Board.Column(domain.DefaultColumnName)
	if len(todo.Tasks) != 1 || todo.Tasks[0] != (domain.Task{Title: "T", Description: "D"}) {
		t.Fatalf("expected committed task, got %#v", todo.Tasks)
	}
	if modals.State().AddTask.Submitting {
		t.Fatal("expected submitting flag cleared after commit")
	}
}
