package tui

import (
	"strings"
	"unicode"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user-configurable key overrides. Blank fields keep defaults.
type KeyConfig struct {
	CreateBoard   string
	AddTask       string
	Menu          string
	Reload        string
	ToggleSidebar string
	ToggleTheme   string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	toggleHelp    key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	openBoard     key.Binding
	createBoard   key.Binding
	addTask       key.Binding
	menu          key.Binding
	reload        key.Binding
	toggleSidebar key.Binding
	toggleTheme   key.Binding
	signIn        key.Binding
}

// newKeyMap constructs the default key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "board up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "board down")),
		openBoard:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open board")),
		createBoard:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new board")),
		addTask:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
		menu:          key.NewBinding(key.WithKeys("."), key.WithHelp(".", "menu")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleSidebar: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "sidebar")),
		toggleTheme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		signIn:        key.NewBinding(key.WithKeys("L", "shift+l"), key.WithHelp("L", "sign in")),
	}
}

// applyConfig rebinds configurable actions.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.createBoard, cfg.CreateBoard, "n", "new board")
	configureBinding(&k.addTask, cfg.AddTask, "a", "add task")
	configureBinding(&k.menu, cfg.Menu, ".", "menu")
	configureBinding(&k.reload, cfg.Reload, "r", "reload")
	configureBinding(&k.toggleSidebar, cfg.ToggleSidebar, "b", "sidebar")
	configureBinding(&k.toggleTheme, cfg.ToggleTheme, "t", "theme")
}

// configureBinding replaces the keys and help text of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, helpKey := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys turns one configured key into matcher keys and a help label.
// A single uppercase rune also matches its shift chord.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	runes := []rune(raw)
	if len(runes) == 1 {
		if unicode.IsUpper(runes[0]) {
			return []string{raw, "shift+" + string(unicode.ToLower(runes[0]))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.openBoard, k.createBoard, k.addTask, k.menu, k.toggleSidebar, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveUp, k.moveDown, k.openBoard, k.reload},
		{k.createBoard, k.addTask, k.menu},
		{k.toggleSidebar, k.toggleTheme, k.signIn, k.toggleHelp, k.quit},
	}
}
