package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

type fakeBoardService struct {
	mu          sync.Mutex
	boards      []domain.Board
	nextID      int
	listErr     error
	createErr   error
	addErr      error
	createCalls int
	addCalls    int
}

func (f *fakeBoardService) ListBoards(context.Context) ([]domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return domain.CloneBoards(f.boards), nil
}

func (f *fakeBoardService) CreateBoard(_ context.Context, name, description string, columns []domain.Column) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return domain.Board{}, f.createErr
	}
	f.nextID++
	board := domain.Board{ID: fmt.Sprintf("created-%d", f.nextID), Name: name, Description: description, Columns: columns}
	f.boards = append(f.boards, board.Clone())
	return board, nil
}

func (f *fakeBoardService) AddTaskToColumn(_ context.Context, boardID, columnName string, task domain.Task) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return domain.Board{}, f.addErr
	}
	for idx, board := range f.boards {
		if board.ID != boardID {
			continue
		}
		updated, err := board.WithTask(columnName, task)
		if err != nil {
			return domain.Board{}, err
		}
		f.boards[idx] = updated
		return updated.Clone(), nil
	}
	return domain.Board{}, app.ErrNotFound
}

type fakePreferenceStore struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *fakePreferenceStore) GetPreference(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", app.ErrNotFound
	}
	return value, nil
}

func (f *fakePreferenceStore) SetPreference(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakePreferenceStore) DeletePreference(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakePreferenceStore) get(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

type fakeAuthenticator struct {
	loginCalls    int
	registerCalls int
	err           error
}

func (f *fakeAuthenticator) Login(_ context.Context, email, _ string) (string, error) {
	f.loginCalls++
	if f.err != nil {
		return "", f.err
	}
	return "login-" + email, nil
}

func (f *fakeAuthenticator) Register(_ context.Context, email, _ string) (string, error) {
	f.registerCalls++
	if f.err != nil {
		return "", f.err
	}
	return "register-" + email, nil
}

// fixture wires the real controller, orchestrator, and session over fakes.
type fixture struct {
	svc     *fakeBoardService
	store   *fakePreferenceStore
	auth    *fakeAuthenticator
	ctrl    *app.Controller
	modals  *app.Modals
	session *app.Session
	copied  []string
}

func newFixture(t *testing.T, token string, boards ...domain.Board) *fixture {
	t.Helper()
	f := &fixture{
		svc:   &fakeBoardService{boards: domain.CloneBoards(boards)},
		store: &fakePreferenceStore{values: map[string]string{}},
		auth:  &fakeAuthenticator{},
	}
	if token != "" {
		f.store.values[app.CredentialKey] = token
	}
	n := 0
	f.ctrl = app.NewController(f.svc, app.ControllerConfig{IDGen: func() string {
		n++
		return fmt.Sprintf("op-%d", n)
	}})
	f.modals = app.NewModals(f.ctrl, app.ModalsConfig{})
	f.session = app.NewSession(f.store, nil)
	if err := f.session.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return f
}

func (f *fixture) model(opts ...Option) Model {
	base := []Option{
		WithAuthenticator(f.auth),
		WithClipboard(func(text string) error {
			f.copied = append(f.copied, text)
			return nil
		}),
	}
	return NewModel(f.ctrl, f.modals, f.session, append(base, opts...)...)
}

func sampleBoards() []domain.Board {
	return []domain.Board{
		{
			ID:          "b1",
			Name:        "Roadmap",
			Description: "Quarter plan",
			Columns: []domain.Column{
				{Name: "To Do", Tasks: []domain.Task{{Title: "Design API", Description: "Draft schema"}}},
				{Name: "Done", Tasks: []domain.Task{}},
			},
		},
		{ID: "b2", Name: "Ops", Columns: domain.SeedColumns()},
	}
}

// TestModelLoadRendersBoards verifies load, sidebar rendering, and opening a board.
func TestModelLoadRendersBoards(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())

	if m.state.Phase != app.LoadPhaseReady || len(m.state.Boards) != 2 {
		t.Fatalf("unexpected loaded state %#v", m.state)
	}
	view := viewText(m)
	for _, want := range []string{"ALL BOARDS (2)", "Roadmap", "Ops", placeholderBoardTitle, "Board not found"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	board, ok := m.state.Selection.Current()
	if !ok || board.ID != "b1" {
		t.Fatalf("expected b1 selected, got %#v", m.state.Selection)
	}
	view = viewText(m)
	for _, want := range []string{"TO DO (1)", "DONE (0)", "Design API", "Draft schema"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in board view:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Board not found") {
		t.Fatalf("did not expect not-found view:\n%s", view)
	}

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if board, _ := m.state.Selection.Current(); board.ID != "b2" {
		t.Fatalf("expected b2 selected, got %#v", board)
	}
}

// TestModelLoadFailureShowsError verifies the persistent error phase is rendered.
func TestModelLoadFailureShowsError(t *testing.T) {
	f := newFixture(t, "tok")
	f.svc.listErr = errors.New("boom")
	m := loadReadyModel(t, f.model())

	if m.state.Phase != app.LoadPhaseError {
		t.Fatalf("expected error phase, got %q", m.state.Phase)
	}
	if !strings.Contains(m.status, "load failed") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if view := viewText(m); !strings.Contains(view, "error: boom") {
		t.Fatalf("expected error in sidebar:\n%s", view)
	}

	f.svc.listErr = nil
	m = applyMsg(t, m, keyRune('r'))
	if m.state.Phase != app.LoadPhaseReady || m.status != "no boards yet, press n to create one" {
		t.Fatalf("expected recovery after reload, got phase=%q status=%q", m.state.Phase, m.status)
	}
}

// TestModelCreateBoardSubmit verifies the create-board modal submit path.
func TestModelCreateBoardSubmit(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())

	m = pressKey(t, m, keyRune('n'))
	if m.mode != modeCreateBoard || !f.modals.State().CreateBoard.Open {
		t.Fatalf("expected create-board form open, mode=%d", m.mode)
	}
	if view := viewText(m); !strings.Contains(view, "Create New Board") {
		t.Fatalf("expected form overlay:\n%s", view)
	}
	m = typeText(t, m, "Launch")
	if got := f.modals.State().CreateBoard.Name; got != "Launch" {
		t.Fatalf("expected draft to mirror input, got %q", got)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if f.svc.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", f.svc.createCalls)
	}
	if m.mode != modeNone || m.status != "board created" {
		t.Fatalf("expected closed form and created status, mode=%d status=%q", m.mode, m.status)
	}
	board, ok := m.state.Selection.Current()
	if !ok || board.Name != "Launch" || len(board.Columns) != 1 || board.Columns[0].Name != domain.DefaultColumnName {
		t.Fatalf("expected created board selected, got %#v", board)
	}
	if len(m.state.Boards) != 3 || m.boardCursor != 2 {
		t.Fatalf("expected refetched list with cursor on new board, got %d boards cursor=%d", len(m.state.Boards), m.boardCursor)
	}
	if form := f.modals.State().CreateBoard; form.Open || form.Name != "" {
		t.Fatalf("expected cleared form, got %#v", form)
	}
}

// TestModelCreateBoardValidationKeepsFormOpen verifies validation failures never reach the service.
func TestModelCreateBoardValidationKeepsFormOpen(t *testing.T) {
	f := newFixture(t, "tok")
	m := loadReadyModel(t, f.model())

	m = pressKey(t, m, keyRune('n'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if f.svc.createCalls != 0 {
		t.Fatalf("expected no service call, got %d", f.svc.createCalls)
	}
	if m.mode != modeCreateBoard || !strings.Contains(m.status, "create board failed") {
		t.Fatalf("expected open form with failure status, mode=%d status=%q", m.mode, m.status)
	}
	if !app.IsValidation(m.modals.CreateBoard.Err) {
		t.Fatalf("expected validation error on form, got %v", m.modals.CreateBoard.Err)
	}
}

// TestModelCancelFormDiscardsDraft verifies esc closes and clears the form.
func TestModelCancelFormDiscardsDraft(t *testing.T) {
	f := newFixture(t, "tok")
	m := loadReadyModel(t, f.model())

	m = pressKey(t, m, keyRune('n'))
	m = typeText(t, m, "Draft")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || m.status != "cancelled" {
		t.Fatalf("expected cancelled form, mode=%d status=%q", m.mode, m.status)
	}
	if form := f.modals.State().CreateBoard; form.Open || form.Name != "" {
		t.Fatalf("expected discarded draft, got %#v", form)
	}
}

// TestModelAddTaskOptimisticRender verifies the projection renders before the mutation settles.
func TestModelAddTaskOptimisticRender(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	m = pressKey(t, m, keyRune('a'))
	if m.mode != modeAddTask {
		t.Fatalf("expected add-task form, mode=%d", m.mode)
	}
	m = typeText(t, m, "Write docs")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "Usage guide")

	updated, commit := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	m = updated.(Model)
	if commit == nil {
		t.Fatal("expected commit command")
	}
	if m.mode != modeNone || m.state.Selection.Kind != app.SelectionPending {
		t.Fatalf("expected pending projection, mode=%d selection=%s", m.mode, m.state.Selection.Kind)
	}
	view := viewText(m)
	for _, want := range []string{"Write docs (saving)", "TO DO (2)", "syncing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in optimistic view:\n%s", want, view)
		}
	}
	if f.svc.addCalls != 0 {
		t.Fatalf("expected mutation to wait for the command, got %d calls", f.svc.addCalls)
	}

	m = applyCmd(t, m, commit)
	if m.state.Selection.Kind != app.SelectionConfirmed || m.status != "task added" {
		t.Fatalf("expected confirmed selection, got %s status=%q", m.state.Selection.Kind, m.status)
	}
	view = viewText(m)
	if !strings.Contains(view, "Write docs") || strings.Contains(view, "(saving)") {
		t.Fatalf("expected settled task in view:\n%s", view)
	}
	if form := f.modals.State().AddTask; form.Open || form.Title != "" {
		t.Fatalf("expected cleared add-task form, got %#v", form)
	}
}

// TestModelAddTaskFailureRollsBack verifies rollback and draft preservation on mutation failure.
func TestModelAddTaskFailureRollsBack(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	f.svc.addErr = errors.New("offline")
	m := loadReadyModel(t, f.model())
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	m = pressKey(t, m, keyRune('a'))
	m = typeText(t, m, "Lost")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "Gone")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if !strings.Contains(m.status, "add task failed") {
		t.Fatalf("unexpected status %q", m.status)
	}
	board, _ := m.state.Selection.Current()
	todo, _ := board.Column("To Do")
	if m.state.Selection.Kind != app.SelectionConfirmed || len(todo.Tasks) != 1 {
		t.Fatalf("expected rolled back board, got %#v", board)
	}
	if m.mode != modeAddTask || m.formValue(taskFieldTitle) != "Lost" || m.formValue(taskFieldDescription) != "Gone" {
		t.Fatalf("expected reopened form with drafts, mode=%d", m.mode)
	}
}

// TestModelAddTaskRequiresSelection verifies the add-task shortcut needs a board.
func TestModelAddTaskRequiresSelection(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())

	m = applyMsg(t, m, keyRune('a'))
	if m.mode != modeNone || m.status != "select a board first" {
		t.Fatalf("expected selection hint, mode=%d status=%q", m.mode, m.status)
	}
}

// TestModelAddTaskUnknownColumn verifies column validation against the selected board.
func TestModelAddTaskUnknownColumn(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	m = pressKey(t, m, keyRune('a'))
	m = typeText(t, m, "T")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "D")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	for range len(domain.DefaultColumnName) {
		m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyBackspace})
	}
	m = typeText(t, m, "Someday")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if m.mode != modeAddTask || !strings.Contains(m.status, "column not found") {
		t.Fatalf("expected column error, mode=%d status=%q", m.mode, m.status)
	}
	if f.svc.addCalls != 0 {
		t.Fatalf("expected no mutation, got %d", f.svc.addCalls)
	}
}

// TestModelSignInFlow verifies unauthenticated start, login, and the follow-up load.
func TestModelSignInFlow(t *testing.T) {
	f := newFixture(t, "", sampleBoards()...)
	m := loadReadyModel(t, f.model())

	if m.mode != modeSignIn {
		t.Fatalf("expected sign-in form, mode=%d", m.mode)
	}
	if view := viewText(m); !strings.Contains(view, "Sign In") {
		t.Fatalf("expected sign-in overlay:\n%s", view)
	}
	m = typeText(t, m, "ada@example.com")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "pw")
	if view := viewText(m); !strings.Contains(view, "••") {
		t.Fatalf("expected masked password:\n%s", view)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if f.auth.loginCalls != 1 || m.mode != modeNone || m.status != "ready" {
		t.Fatalf("expected login and load, calls=%d mode=%d status=%q", f.auth.loginCalls, m.mode, m.status)
	}
	if got := f.store.get(app.CredentialKey); got != "login-ada@example.com" {
		t.Fatalf("expected persisted token, got %q", got)
	}
	if len(m.state.Boards) != 2 {
		t.Fatalf("expected boards after login, got %d", len(m.state.Boards))
	}
}

// TestModelWithoutAuthenticatorStaysSignedOut verifies the shell degrades without a sign-in backend.
func TestModelWithoutAuthenticatorStaysSignedOut(t *testing.T) {
	f := newFixture(t, "")
	m := loadReadyModel(t, NewModel(f.ctrl, f.modals, f.session))

	if m.mode != modeNone || m.status != "not signed in" {
		t.Fatalf("expected signed-out status, mode=%d status=%q", m.mode, m.status)
	}
	if view := viewText(m); !strings.Contains(view, "signed out") {
		t.Fatalf("expected signed-out header marker:\n%s", view)
	}
	m = applyMsg(t, m, keyRune('L'))
	if m.mode != modeNone || m.status != "sign in unavailable" {
		t.Fatalf("expected sign in unavailable, mode=%d status=%q", m.mode, m.status)
	}
}

// TestModelRegisterFlow verifies ctrl+r switches the form to registration.
func TestModelRegisterFlow(t *testing.T) {
	f := newFixture(t, "")
	m := loadReadyModel(t, f.model())

	m = pressKey(t, m, tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	if !m.registering || !strings.Contains(viewText(m), "Create Account") {
		t.Fatal("expected register mode")
	}
	m = typeText(t, m, "bob@example.com")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "pw")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if f.auth.registerCalls != 1 || m.mode != modeNone {
		t.Fatalf("expected register call, calls=%d mode=%d", f.auth.registerCalls, m.mode)
	}
	if !f.session.Authenticated() {
		t.Fatal("expected authenticated session")
	}
}

// TestModelSignInFailureKeepsForm verifies login errors surface and the form stays open.
func TestModelSignInFailureKeepsForm(t *testing.T) {
	f := newFixture(t, "")
	f.auth.err = errors.New("invalid email or password")
	m := loadReadyModel(t, f.model())

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if f.auth.loginCalls != 0 || !strings.Contains(m.status, "credentials") {
		t.Fatalf("expected local validation failure, calls=%d status=%q", f.auth.loginCalls, m.status)
	}

	m = typeText(t, m, "ada@example.com")
	m = pressKey(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = typeText(t, m, "nope")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeSignIn || !strings.Contains(m.status, "invalid email or password") {
		t.Fatalf("expected failure status, mode=%d status=%q", m.mode, m.status)
	}
	if view := viewText(m); !strings.Contains(view, "sign in failed") {
		t.Fatalf("expected error in overlay:\n%s", view)
	}
}

// TestModelMenuActions verifies copy, theme toggle, and sign out.
func TestModelMenuActions(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model())

	m = applyMsg(t, m, keyRune('.'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.status != "no board selected" || len(f.copied) != 0 {
		t.Fatalf("expected copy refusal, status=%q", m.status)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = applyMsg(t, m, keyRune('.'))
	if view := viewText(m); !strings.Contains(view, "Copy board id") {
		t.Fatalf("expected menu overlay:\n%s", view)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(f.copied) != 1 || f.copied[0] != "b1" {
		t.Fatalf("expected board id copied, got %#v", f.copied)
	}

	m = applyMsg(t, m, keyRune('.'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if !m.darkMode || m.status != "dark mode" || f.store.get(app.DarkModeKey) != "true" {
		t.Fatalf("expected persisted dark mode, dark=%t status=%q", m.darkMode, m.status)
	}

	m = applyMsg(t, m, keyRune('.'))
	m = applyMsg(t, m, keyRune('k'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if f.session.Authenticated() || f.store.get(app.CredentialKey) != "" {
		t.Fatal("expected cleared credential")
	}
	if m.mode != modeSignIn {
		t.Fatalf("expected sign-in form after sign out, mode=%d", m.mode)
	}
	if _, ok := m.state.Selection.Current(); ok {
		t.Fatal("expected cleared selection after sign out")
	}
}

// TestModelClipboardFailure verifies copy errors are reported.
func TestModelClipboardFailure(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model(WithClipboard(func(string) error { return errors.New("no display") })))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = applyMsg(t, m, keyRune('.'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.status != "copy failed: no display" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

// TestModelSidebarThemeAndHelpToggles verifies display toggles.
func TestModelSidebarThemeAndHelpToggles(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	m := loadReadyModel(t, f.model(WithSidebar(false)))

	if strings.Contains(viewText(m), "ALL BOARDS") {
		t.Fatal("expected hidden sidebar")
	}
	m = applyMsg(t, m, keyRune('b'))
	if !m.showSidebar || !strings.Contains(viewText(m), "ALL BOARDS") {
		t.Fatal("expected visible sidebar")
	}

	m = applyMsg(t, m, keyRune('t'))
	m = applyMsg(t, m, keyRune('t'))
	if m.darkMode || f.store.get(app.DarkModeKey) != "false" {
		t.Fatalf("expected theme toggled twice, dark=%t", m.darkMode)
	}

	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll || !strings.Contains(viewText(m), "Keys") {
		t.Fatal("expected help overlay")
	}
}

// TestModelKeyConfigOverrides verifies configured bindings replace defaults.
func TestModelKeyConfigOverrides(t *testing.T) {
	f := newFixture(t, "tok")
	m := loadReadyModel(t, f.model(WithKeyConfig(KeyConfig{CreateBoard: "c"})))

	m = pressKey(t, m, keyRune('n'))
	if m.mode != modeNone {
		t.Fatalf("expected default key unbound, mode=%d", m.mode)
	}
	m = pressKey(t, m, keyRune('c'))
	if m.mode != modeCreateBoard {
		t.Fatalf("expected configured key to open form, mode=%d", m.mode)
	}
}

// TestModelQuitKey verifies quit returns tea.Quit.
func TestModelQuitKey(t *testing.T) {
	f := newFixture(t, "tok")
	m := loadReadyModel(t, f.model())
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

// TestStateListenerDeliversChanges verifies controller changes reach the program.
func TestStateListenerDeliversChanges(t *testing.T) {
	f := newFixture(t, "tok", sampleBoards()...)
	msgs := make(chan tea.Msg, 8)
	f.ctrl.OnChange(StateListener(func(msg tea.Msg) { msgs <- msg }))
	if err := f.ctrl.LoadBoards(context.Background()); err != nil {
		t.Fatalf("LoadBoards() error = %v", err)
	}

	select {
	case msg := <-msgs:
		m := f.model()
		updated, cmd := m.Update(msg)
		if cmd != nil {
			t.Fatal("expected no follow-up command")
		}
		if got := updated.(Model).state.Boards; len(got) != 2 {
			t.Fatalf("expected refreshed boards, got %d", len(got))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected state change message")
	}
}

// TestHelpersCoverage verifies small layout helpers.
func TestHelpersCoverage(t *testing.T) {
	if got := wrapIndex(0, -1, 4); got != 3 {
		t.Fatalf("wrapIndex(0,-1,4) = %d", got)
	}
	if got := wrapIndex(3, 1, 4); got != 0 {
		t.Fatalf("wrapIndex(3,1,4) = %d", got)
	}
	if got := wrapIndex(2, 1, 0); got != 0 {
		t.Fatalf("wrapIndex with no items = %d", got)
	}
	if got := clamp(5, 0, -1); got != 0 {
		t.Fatalf("clamp on empty range = %d", got)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("fitLines() = %q", got)
	}
	if got := columnWidthFor(300, 2); got != 40 {
		t.Fatalf("columnWidthFor(300,2) = %d", got)
	}
	if got := columnWidthFor(40, 4); got != 18 {
		t.Fatalf("columnWidthFor(40,4) = %d", got)
	}
	if got := pendingLabel([]app.OperationKind{app.OperationLoadBoards, app.OperationAddTask}); got != "load boards, add task" {
		t.Fatalf("pendingLabel() = %q", got)
	}
	known := map[string]struct{}{"b1": {}}
	if got := firstUnknownBoard(sampleBoards(), known); got != "b2" {
		t.Fatalf("firstUnknownBoard() = %q", got)
	}
	r := &markdownRenderer{}
	if got := r.render("  ", 80, true); got != "" {
		t.Fatalf("expected empty markdown render, got %q", got)
	}
	if got := ansi.Strip(r.render("**bold** plan", 80, false)); !strings.Contains(got, "bold plan") {
		t.Fatalf("unexpected markdown render %q", got)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

// pressKey applies one key and drops the returned command (cursor blink).
func pressKey(t *testing.T, m Model, msg tea.KeyPressMsg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return out
}

// typeText types s into the focused input.
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = pressKey(t, m, keyRune(r))
	}
	return m
}

func viewText(m Model) string {
	return ansi.Strip(fmt.Sprint(m.View().Content))
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
