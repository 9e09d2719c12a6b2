package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// BoardController is the board state surface rendered by the shell.
type BoardController interface {
	State() app.State
	LoadBoards(context.Context) error
	SelectBoard(id string) error
	ClearSelection()
}

// FormOrchestrator validates and submits the create-board and add-task forms.
type FormOrchestrator interface {
	State() app.ModalState
	ToggleCreateBoard()
	ToggleAddTask()
	SetBoardDraft(name, description string)
	SetTaskDraft(title, description, column string)
	CancelCreateBoard()
	CancelAddTask()
	SubmitCreateBoard(context.Context) error
	BeginAddTask() (app.CommitFunc, error)
}

// SessionState carries the credential and the display preference.
type SessionState interface {
	Authenticated() bool
	DarkMode() bool
	ToggleDarkMode(context.Context) (bool, error)
	Login(ctx context.Context, auth app.Authenticator, email, password string) error
	Register(ctx context.Context, auth app.Authenticator, email, password string) error
	Logout(context.Context) error
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeCreateBoard
	modeAddTask
	modeSignIn
	modeMenu
)

// form field labels in display order.
var (
	boardFormFields = []string{"name", "description"}
	taskFormFields  = []string{"title", "description", "column"}
	authFormFields  = []string{"email", "password"}
)

// board-form field indexes.
const (
	boardFieldName = iota
	boardFieldDescription
)

// task-form field indexes.
const (
	taskFieldTitle = iota
	taskFieldDescription
	taskFieldColumn
)

// sign-in field indexes.
const (
	authFieldEmail = iota
	authFieldPassword
)

// menuAction identifies one overflow menu entry.
type menuAction string

// menuCopyBoardID and related constants enumerate menu entries.
const (
	menuCopyBoardID menuAction = "copy_board_id"
	menuReload      menuAction = "reload"
	menuToggleTheme menuAction = "toggle_theme"
	menuSignOut     menuAction = "sign_out"
)

type menuItem struct {
	action menuAction
	label  string
}

var menuItems = []menuItem{
	{action: menuCopyBoardID, label: "Copy board id"},
	{action: menuReload, label: "Reload boards"},
	{action: menuToggleTheme, label: "Toggle theme"},
	{action: menuSignOut, label: "Sign out"},
}

// Model is the presentational shell over the board controller, the form
// orchestrator, and the session.
type Model struct {
	ctrl     BoardController
	forms    FormOrchestrator
	session  SessionState
	auth     app.Authenticator
	copyText func(string) error
	logger   app.Logger

	ready  bool
	width  int
	height int
	status string

	help help.Model
	keys keyMap

	state       app.State
	modals      app.ModalState
	darkMode    bool
	showSidebar bool
	boardCursor int

	mode        inputMode
	formInputs  []textinput.Model
	formFocus   int
	registering bool
	menuIndex   int

	markdown *markdownRenderer
}

// stateChangedMsg asks the model to re-read controller state.
type stateChangedMsg struct{}

// boardsLoadedMsg carries the outcome of one board list load.
type boardsLoadedMsg struct {
	err error
}

// boardCreatedMsg carries the outcome of the create-board form.
type boardCreatedMsg struct {
	boardID string
	err     error
}

// taskCommittedMsg carries the outcome of one staged add-task mutation.
type taskCommittedMsg struct {
	err error
}

// authRequiredMsg opens the sign-in form.
type authRequiredMsg struct{}

// authMsg carries the outcome of a login or register attempt.
type authMsg struct {
	registered bool
	err        error
}

// themeMsg carries the persisted display mode.
type themeMsg struct {
	dark bool
	err  error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	status    string
	err       error
	signedOut bool
}

// StateListener adapts send, usually (*tea.Program).Send, into a controller
// change listener. Delivery happens on a new goroutine so the controller and
// the update loop never wait on each other.
func StateListener(send func(tea.Msg)) func(app.State) {
	return func(app.State) {
		go send(stateChangedMsg{})
	}
}

// NewModel constructs the shell.
func NewModel(ctrl BoardController, forms FormOrchestrator, session SessionState, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		ctrl:        ctrl,
		forms:       forms,
		session:     session,
		copyText:    clipboard.WriteAll,
		logger:      charmLog.New(io.Discard),
		status:      "loading...",
		help:        h,
		keys:        newKeyMap(),
		showSidebar: true,
		markdown:    &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.syncState()
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	if !m.session.Authenticated() {
		return func() tea.Msg { return authRequiredMsg{} }
	}
	return m.loadBoards
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateChangedMsg:
		m.syncState()
		return m, nil

	case boardsLoadedMsg:
		m.syncState()
		switch {
		case errors.Is(msg.err, app.ErrSuperseded):
		case msg.err != nil:
			m.status = "load failed: " + msg.err.Error()
		case len(m.state.Boards) == 0:
			m.status = fmt.Sprintf("no boards yet, press %s to create one", m.keys.createBoard.Help().Key)
		default:
			m.status = "ready"
		}
		return m, nil

	case boardCreatedMsg:
		m.syncState()
		if msg.err != nil {
			if !errors.Is(msg.err, app.ErrSuperseded) {
				m.status = "create board failed: " + msg.err.Error()
			}
			return m, nil
		}
		if m.mode == modeCreateBoard {
			m.closeForm()
		}
		m.status = "board created"
		if msg.boardID != "" && m.ctrl.SelectBoard(msg.boardID) == nil {
			m.syncState()
			m.focusBoard(msg.boardID)
		}
		return m, nil

	case taskCommittedMsg:
		m.syncState()
		switch {
		case errors.Is(msg.err, app.ErrSuperseded):
			return m, nil
		case msg.err != nil:
			m.status = "add task failed: " + msg.err.Error()
			if m.mode == modeNone {
				return m, m.startTaskForm()
			}
			return m, nil
		default:
			m.status = "task added"
			return m, nil
		}

	case authRequiredMsg:
		if m.auth == nil {
			m.status = "not signed in"
			return m, nil
		}
		m.status = "sign in to continue"
		return m, m.startSignInForm()

	case authMsg:
		verb := "sign in"
		if msg.registered {
			verb = "register"
		}
		if msg.err != nil {
			m.status = verb + " failed: " + msg.err.Error()
			return m, nil
		}
		if m.mode == modeSignIn {
			m.closeForm()
		}
		m.status = "signed in"
		if msg.registered {
			m.status = "account created"
		}
		return m, m.loadBoards

	case themeMsg:
		m.darkMode = msg.dark
		if msg.err != nil {
			m.logger.Warn("persist display mode failed", "err", msg.err)
			m.status = "theme not saved: " + msg.err.Error()
			return m, nil
		}
		m.status = "light mode"
		if msg.dark {
			m.status = "dark mode"
		}
		return m, nil

	case actionMsg:
		m.syncState()
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.signedOut {
			return m, func() tea.Msg { return authRequiredMsg{} }
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// syncState copies controller, form, and session snapshots into the model.
func (m *Model) syncState() {
	m.state = m.ctrl.State()
	m.modals = m.forms.State()
	m.darkMode = m.session.DarkMode()
	m.boardCursor = clamp(m.boardCursor, 0, len(m.state.Boards)-1)
}

// focusBoard moves the sidebar cursor onto boardID.
func (m *Model) focusBoard(boardID string) {
	for idx, board := range m.state.Boards {
		if board.ID == boardID {
			m.boardCursor = idx
			return
		}
	}
}

// loadBoards reloads the authoritative board list.
func (m Model) loadBoards() tea.Msg {
	return boardsLoadedMsg{err: m.ctrl.LoadBoards(context.Background())}
}

// toggleTheme flips and persists dark mode.
func (m Model) toggleTheme() tea.Msg {
	dark, err := m.session.ToggleDarkMode(context.Background())
	return themeMsg{dark: dark, err: err}
}

// handleNormalModeKey handles board navigation and shortcuts.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.boardCursor = clamp(m.boardCursor-1, 0, len(m.state.Boards)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.boardCursor = clamp(m.boardCursor+1, 0, len(m.state.Boards)-1)
		return m, nil
	case key.Matches(msg, m.keys.openBoard):
		if len(m.state.Boards) == 0 {
			m.status = "no boards to open"
			return m, nil
		}
		board := m.state.Boards[m.boardCursor]
		if err := m.ctrl.SelectBoard(board.ID); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.syncState()
		m.status = "opened " + board.Name
		return m, nil
	case key.Matches(msg, m.keys.createBoard):
		return m, m.startBoardForm()
	case key.Matches(msg, m.keys.addTask):
		if _, ok := m.state.Selection.Current(); !ok {
			m.status = "select a board first"
			return m, nil
		}
		return m, m.startTaskForm()
	case key.Matches(msg, m.keys.menu):
		m.mode = modeMenu
		m.menuIndex = 0
		m.status = "menu"
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadBoards
	case key.Matches(msg, m.keys.toggleSidebar):
		m.showSidebar = !m.showSidebar
		return m, nil
	case key.Matches(msg, m.keys.toggleTheme):
		return m, m.toggleTheme
	case key.Matches(msg, m.keys.signIn):
		if m.auth == nil {
			m.status = "sign in unavailable"
			return m, nil
		}
		return m, m.startSignInForm()
	default:
		return m, nil
	}
}

// handleInputModeKey routes keys while a form or the menu is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeMenu {
		return m.handleMenuKey(msg)
	}

	switch {
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		return m.cancelForm()
	case m.mode == modeSignIn && msg.String() == "ctrl+r":
		m.registering = !m.registering
		return m, nil
	case msg.Code == tea.KeyTab || msg.String() == "tab" || msg.String() == "down":
		return m, m.focusFormField(m.formFocus + 1)
	case msg.String() == "shift+tab" || msg.String() == "up":
		return m, m.focusFormField(m.formFocus - 1)
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		return m.submitForm()
	default:
		if len(m.formInputs) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
		m.storeDrafts()
		return m, cmd
	}
}

// handleMenuKey moves through and runs overflow menu entries.
func (m Model) handleMenuKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEscape || msg.String() == "esc" || key.Matches(msg, m.keys.menu):
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case msg.String() == "j" || msg.String() == "down":
		m.menuIndex = wrapIndex(m.menuIndex, 1, len(menuItems))
		return m, nil
	case msg.String() == "k" || msg.String() == "up":
		m.menuIndex = wrapIndex(m.menuIndex, -1, len(menuItems))
		return m, nil
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		return m.runMenuAction(menuItems[clamp(m.menuIndex, 0, len(menuItems)-1)].action)
	default:
		return m, nil
	}
}

// runMenuAction executes one overflow menu entry.
func (m Model) runMenuAction(action menuAction) (tea.Model, tea.Cmd) {
	m.mode = modeNone
	switch action {
	case menuCopyBoardID:
		board, ok := m.state.Selection.Current()
		if !ok {
			m.status = "no board selected"
			return m, nil
		}
		if err := m.copyText(board.ID); err != nil {
			m.logger.Warn("copy board id failed", "board", board.ID, "err", err)
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied board id " + board.ID
		return m, nil
	case menuReload:
		m.status = "reloading..."
		return m, m.loadBoards
	case menuToggleTheme:
		return m, m.toggleTheme
	case menuSignOut:
		session, ctrl := m.session, m.ctrl
		return m, func() tea.Msg {
			if err := session.Logout(context.Background()); err != nil {
				return actionMsg{err: err}
			}
			ctrl.ClearSelection()
			return actionMsg{status: "signed out", signedOut: true}
		}
	default:
		return m, nil
	}
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// startBoardForm opens the create-board form over the orchestrator draft.
func (m *Model) startBoardForm() tea.Cmd {
	if !m.forms.State().CreateBoard.Open {
		m.forms.ToggleCreateBoard()
	}
	draft := m.forms.State().CreateBoard
	m.formInputs = []textinput.Model{
		newModalInput("", "board name", draft.Name, 120),
		newModalInput("", "markdown description (optional)", draft.Description, 500),
	}
	m.mode = modeCreateBoard
	m.status = "new board"
	m.syncState()
	return m.focusFormField(boardFieldName)
}

// startTaskForm opens the add-task form over the orchestrator draft.
func (m *Model) startTaskForm() tea.Cmd {
	if !m.forms.State().AddTask.Open {
		m.forms.ToggleAddTask()
	}
	draft := m.forms.State().AddTask
	m.formInputs = []textinput.Model{
		newModalInput("", "task title", draft.Title, 200),
		newModalInput("", "what needs doing", draft.Description, 500),
		newModalInput("", domain.DefaultColumnName, draft.Column, 80),
	}
	m.mode = modeAddTask
	m.status = "new task"
	m.syncState()
	return m.focusFormField(taskFieldTitle)
}

// startSignInForm opens the login/register form.
func (m *Model) startSignInForm() tea.Cmd {
	password := newModalInput("", "password", "", 128)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	m.formInputs = []textinput.Model{
		newModalInput("", "you@example.com", "", 254),
		password,
	}
	m.mode = modeSignIn
	return m.focusFormField(authFieldEmail)
}

// focusFormField focuses one input of the open form.
func (m *Model) focusFormField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	idx = clamp(idx, 0, len(m.formInputs)-1)
	m.formFocus = idx
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	return m.formInputs[idx].Focus()
}

// formValue returns one input value as typed, or "" when absent.
func (m Model) formValue(idx int) string {
	if idx < 0 || idx >= len(m.formInputs) {
		return ""
	}
	return m.formInputs[idx].Value()
}

// storeDrafts mirrors input values into the orchestrator drafts.
func (m *Model) storeDrafts() {
	switch m.mode {
	case modeCreateBoard:
		m.forms.SetBoardDraft(m.formValue(boardFieldName), m.formValue(boardFieldDescription))
	case modeAddTask:
		m.forms.SetTaskDraft(m.formValue(taskFieldTitle), m.formValue(taskFieldDescription), m.formValue(taskFieldColumn))
	default:
		return
	}
	m.modals = m.forms.State()
}

// closeForm returns to normal mode.
func (m *Model) closeForm() {
	m.mode = modeNone
	m.formInputs = nil
	m.formFocus = 0
	m.registering = false
}

// cancelForm discards the open form.
func (m Model) cancelForm() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCreateBoard:
		m.forms.CancelCreateBoard()
	case modeAddTask:
		m.forms.CancelAddTask()
	}
	m.closeForm()
	m.syncState()
	m.status = "cancelled"
	return m, nil
}

// submitForm validates and submits the open form.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCreateBoard:
		m.storeDrafts()
		known := make(map[string]struct{}, len(m.state.Boards))
		for _, board := range m.state.Boards {
			known[board.ID] = struct{}{}
		}
		forms, ctrl := m.forms, m.ctrl
		m.status = "creating board..."
		return m, func() tea.Msg {
			if err := forms.SubmitCreateBoard(context.Background()); err != nil {
				return boardCreatedMsg{err: err}
			}
			return boardCreatedMsg{boardID: firstUnknownBoard(ctrl.State().Boards, known)}
		}

	case modeAddTask:
		m.storeDrafts()
		commit, err := m.forms.BeginAddTask()
		m.syncState()
		if err != nil {
			m.status = "add task failed: " + err.Error()
			return m, nil
		}
		m.closeForm()
		m.status = "adding task..."
		return m, func() tea.Msg {
			return taskCommittedMsg{err: commit(context.Background())}
		}

	case modeSignIn:
		email := strings.TrimSpace(m.formValue(authFieldEmail))
		password := ""
		if len(m.formInputs) > authFieldPassword {
			password = m.formInputs[authFieldPassword].Value()
		}
		session, auth, register := m.session, m.auth, m.registering
		m.status = "signing in..."
		if register {
			m.status = "creating account..."
		}
		return m, func() tea.Msg {
			var err error
			if register {
				err = session.Register(context.Background(), auth, email, password)
			} else {
				err = session.Login(context.Background(), auth, email, password)
			}
			return authMsg{registered: register, err: err}
		}

	default:
		return m, nil
	}
}

// firstUnknownBoard returns the first board id missing from known.
func firstUnknownBoard(boards []domain.Board, known map[string]struct{}) string {
	for _, board := range boards {
		if _, ok := known[board.ID]; !ok {
			return board.ID
		}
	}
	return ""
}

// wrapIndex moves current by delta inside [0,total).
func wrapIndex(current, delta, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}
