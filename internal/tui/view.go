package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// placeholderBoardTitle is shown in the header when no board is selected.
const placeholderBoardTitle = "Platform Launch"

// sidebarWidth is the fixed outer width of the board list.
const sidebarWidth = 30

// palette holds the colors for one display mode.
type palette struct {
	accent color.Color
	text   color.Color
	muted  color.Color
	dim    color.Color
	danger color.Color
}

// paletteFor returns the dark or light palette.
func paletteFor(dark bool) palette {
	if dark {
		return palette{
			accent: lipgloss.Color("62"),
			text:   lipgloss.Color("252"),
			muted:  lipgloss.Color("241"),
			dim:    lipgloss.Color("239"),
			danger: lipgloss.Color("203"),
		}
	}
	return palette{
		accent: lipgloss.Color("25"),
		text:   lipgloss.Color("235"),
		muted:  lipgloss.Color("244"),
		dim:    lipgloss.Color("250"),
		danger: lipgloss.Color("160"),
	}
}

// View handles view.
func (m Model) View() tea.View {
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	p := paletteFor(m.darkMode)
	statusStyle := lipgloss.NewStyle().Foreground(p.dim)

	bodyHeight := max(4, m.height-6)
	var body string
	if m.showSidebar {
		sidebar := m.renderSidebar(p, bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.renderBoard(p, max(24, m.width-lipgloss.Width(sidebar)), bodyHeight))
	} else {
		body = m.renderBoard(p, m.width, bodyHeight)
	}

	sections := []string{m.renderHeader(p), "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(p.muted).
		BorderTop(true).
		BorderForeground(p.dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine

	overlay := m.renderModeOverlay(p, m.width-8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(p, m.width-8)
	}
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	v := tea.NewView(fullContent)
	v.AltScreen = true
	return v
}

// renderHeader renders the app title, the board name, and activity markers.
func (m Model) renderHeader(p palette) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.text)
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	markStyle := lipgloss.NewStyle().Foreground(p.dim)

	name := placeholderBoardTitle
	if board, ok := m.state.Selection.Current(); ok {
		name = board.Name
	}
	header := titleStyle.Render("kanboard") + "  " + nameStyle.Render(name)
	if m.state.Selection.Kind == app.SelectionPending {
		header += markStyle.Render("  syncing…")
	}
	if len(m.state.Pending) > 0 {
		header += markStyle.Render("  [" + pendingLabel(m.state.Pending) + "]")
	}
	if !m.session.Authenticated() {
		header += markStyle.Render("  signed out")
	}
	return header
}

// renderSidebar renders the board list.
func (m Model) renderSidebar(p palette, height int) string {
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(p.muted)
	itemStyle := lipgloss.NewStyle().Foreground(p.text)
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	hintStyle := lipgloss.NewStyle().Foreground(p.muted)
	innerWidth := sidebarWidth - 4

	lines := []string{headStyle.Render(fmt.Sprintf("ALL BOARDS (%d)", len(m.state.Boards))), ""}
	switch m.state.Phase {
	case app.LoadPhaseLoading:
		if len(m.state.Boards) == 0 {
			lines = append(lines, hintStyle.Render("loading boards..."))
		}
	case app.LoadPhaseError:
		lines = append(lines, lipgloss.NewStyle().Foreground(p.danger).Render(truncate("error: "+m.state.Err, innerWidth)))
	}

	selectedID := ""
	if board, ok := m.state.Selection.Current(); ok {
		selectedID = board.ID
	}
	for idx, board := range m.state.Boards {
		prefix := "  "
		if idx == m.boardCursor {
			prefix = "› "
		}
		label := prefix + truncate(board.Name, innerWidth-2)
		if board.ID == selectedID {
			lines = append(lines, activeStyle.Render(label))
			continue
		}
		lines = append(lines, itemStyle.Render(label))
	}
	lines = append(lines, "", hintStyle.Render(fmt.Sprintf("+ Create New Board (%s)", m.keys.createBoard.Help().Key)))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.dim).
		Padding(0, 1).
		Width(sidebarWidth).
		Render(fitLines(strings.Join(lines, "\n"), max(1, height-2)))
}

// renderBoard renders the selected board or the not-found view.
func (m Model) renderBoard(p palette, width, height int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.text)
	hintStyle := lipgloss.NewStyle().Foreground(p.muted)

	board, ok := m.state.Selection.Current()
	if !ok {
		lines := []string{
			titleStyle.Render("Board not found"),
			"",
			hintStyle.Render(fmt.Sprintf("Open a board with %s or press %s to create one.", m.keys.openBoard.Help().Key, m.keys.createBoard.Help().Key)),
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	sections := make([]string, 0, 2)
	if description := m.markdown.render(board.Description, width-4, m.darkMode); description != "" {
		sections = append(sections, description)
	}
	if len(board.Columns) == 0 {
		sections = append(sections, hintStyle.Render("(no columns)"))
	} else {
		sections = append(sections, m.renderColumns(p, board, width))
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(fitLines(strings.Join(sections, "\n\n"), height))
}

// renderColumns lays out columns side by side. Tasks that exist only in the
// optimistic projection render as saving.
func (m Model) renderColumns(p palette, board domain.Board, width int) string {
	colWidth := columnWidthFor(width, len(board.Columns))
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	taskStyle := lipgloss.NewStyle().Foreground(p.text)
	subStyle := lipgloss.NewStyle().Foreground(p.muted)
	pendingStyle := lipgloss.NewStyle().Foreground(p.muted).Italic(true)
	colStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.dim).
		Padding(0, 1).
		MarginRight(1).
		Width(colWidth)

	pending := m.state.Selection.Kind == app.SelectionPending
	views := make([]string, 0, len(board.Columns))
	for _, column := range board.Columns {
		confirmed := len(column.Tasks)
		if pending {
			base, _ := m.state.Selection.Base.Column(column.Name)
			confirmed = len(base.Tasks)
		}
		lines := []string{colTitle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(column.Name), len(column.Tasks))), ""}
		if len(column.Tasks) == 0 {
			lines = append(lines, subStyle.Render("(empty)"))
		}
		for idx, task := range column.Tasks {
			title := truncate(task.Title, colWidth-4)
			if idx >= confirmed {
				lines = append(lines, pendingStyle.Render(truncate(task.Title+" (saving)", colWidth-4)))
			} else {
				lines = append(lines, taskStyle.Render(title))
			}
			if description := strings.TrimSpace(task.Description); description != "" {
				lines = append(lines, subStyle.Render(truncate(description, colWidth-4)))
			}
			if idx < len(column.Tasks)-1 {
				lines = append(lines, "")
			}
		}
		views = append(views, colStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// renderModeOverlay renders the open form or menu.
func (m Model) renderModeOverlay(p palette, maxWidth int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(0, 1)
	if maxWidth > 0 {
		boxStyle = boxStyle.Width(clamp(maxWidth, 36, 72))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	hintStyle := lipgloss.NewStyle().Foreground(p.muted)
	errStyle := lipgloss.NewStyle().Foreground(p.danger)

	switch m.mode {
	case modeCreateBoard:
		lines := []string{titleStyle.Render("Create New Board")}
		lines = append(lines, m.renderFormFields(p, boardFormFields, maxWidth)...)
		if form := m.modals.CreateBoard; form.Submitting {
			lines = append(lines, hintStyle.Render("creating..."))
		} else if form.Err != nil {
			lines = append(lines, errStyle.Render(form.Err.Error()))
		}
		lines = append(lines, hintStyle.Render("enter create • tab next field • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeAddTask:
		target := ""
		if board, ok := m.state.Selection.Current(); ok {
			target = board.Name
		}
		lines := []string{titleStyle.Render("Add New Task"), hintStyle.Render("board: " + target)}
		lines = append(lines, m.renderFormFields(p, taskFormFields, maxWidth)...)
		if form := m.modals.AddTask; form.Err != nil {
			lines = append(lines, errStyle.Render(form.Err.Error()))
		}
		lines = append(lines, hintStyle.Render("enter add • tab next field • esc cancel"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeSignIn:
		title, other := "Sign In", "create an account"
		if m.registering {
			title, other = "Create Account", "sign in instead"
		}
		lines := []string{titleStyle.Render(title)}
		lines = append(lines, m.renderFormFields(p, authFormFields, maxWidth)...)
		if strings.Contains(m.status, "failed") {
			lines = append(lines, errStyle.Render(m.status))
		}
		lines = append(lines, hintStyle.Render("enter submit • ctrl+r "+other+" • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	case modeMenu:
		boxStyle = boxStyle.Width(32)
		lines := []string{titleStyle.Render("Menu")}
		for idx, item := range menuItems {
			if idx == m.menuIndex {
				lines = append(lines, titleStyle.Render("› "+item.label))
				continue
			}
			lines = append(lines, "  "+item.label)
		}
		lines = append(lines, hintStyle.Render("enter run • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))

	default:
		return ""
	}
}

// renderFormFields renders labelled inputs with the focused label highlighted.
func (m Model) renderFormFields(p palette, labels []string, maxWidth int) []string {
	fieldWidth := max(18, clamp(maxWidth, 36, 72)-16)
	lines := make([]string, 0, len(m.formInputs))
	for i, in := range m.formInputs {
		label := fmt.Sprintf("%d.", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		labelStyle := lipgloss.NewStyle().Foreground(p.muted)
		if i == m.formFocus {
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(p.accent)
		}
		in.SetWidth(fieldWidth)
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-12s", label+":"))+" "+in.View())
	}
	return lines
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(p palette, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 40, 90))
	}
	h := m.help
	h.ShowAll = true
	h.SetWidth(max(0, clamp(maxWidth, 40, 90)-4))
	title := lipgloss.NewStyle().Bold(true).Foreground(p.accent).Render("Keys")
	return style.Render(title + "\n" + h.View(m.keys))
}

// pendingLabel renders in-flight operation kinds for the header.
func pendingLabel(ops []app.OperationKind) string {
	labels := make([]string, 0, len(ops))
	for _, op := range ops {
		labels = append(labels, strings.ReplaceAll(string(op), "_", " "))
	}
	return strings.Join(labels, ", ")
}

// columnWidthFor splits width evenly across columns within readable bounds.
func columnWidthFor(width, columns int) int {
	if columns <= 0 {
		return max(18, width)
	}
	return clamp((width-2)/columns-1, 18, 40)
}

// clamp clamps v into [minV,maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay over base.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates s to max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
