package tui

import "github.com/hylla/kanboard/internal/app"

// Option configures a Model.
type Option func(*Model)

// WithKeyConfig applies configured key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithSidebar sets the initial sidebar visibility.
func WithSidebar(show bool) Option {
	return func(m *Model) {
		m.showSidebar = show
	}
}

// WithAuthenticator enables the sign-in form.
func WithAuthenticator(auth app.Authenticator) Option {
	return func(m *Model) {
		m.auth = auth
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithLogger routes TUI diagnostics to logger.
func WithLogger(logger app.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}
