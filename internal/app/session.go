package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CredentialKey and DarkModeKey are the fixed preference keys.
const (
	CredentialKey = "token"
	DarkModeKey   = "dark_mode"
)

// Session holds the authentication credential and the display-mode flag. It
// is constructed once at startup and passed to the components that need it.
type Session struct {
	store  CredentialStore
	logger Logger

	mu       sync.RWMutex
	token    string
	darkMode bool
}

// NewSession constructs an uninitialized session.
func NewSession(store CredentialStore, logger Logger) *Session {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Session{store: store, logger: logger}
}

// Init loads the persisted credential and display preference.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.readPreference(ctx, CredentialKey)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	rawDark, err := s.readPreference(ctx, DarkModeKey)
	if err != nil {
		return fmt.Errorf("load dark mode: %w", err)
	}
	dark := false
	if rawDark != "" {
		dark, err = strconv.ParseBool(rawDark)
		if err != nil {
			s.logger.Warn("ignoring malformed dark_mode preference", "value", rawDark)
			dark = false
		}
	}

	s.mu.Lock()
	s.token = token
	s.darkMode = dark
	s.mu.Unlock()
	s.logger.Debug("session initialized", "authenticated", token != "", "dark_mode", dark)
	return nil
}

// Teardown drops in-memory state. Persisted values are untouched.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.token = ""
	s.darkMode = false
	s.mu.Unlock()
}

// Token returns the current bearer credential, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// DarkMode reports the display-mode flag.
func (s *Session) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

// SetDarkMode overrides the display-mode flag without persisting it.
func (s *Session) SetDarkMode(on bool) {
	s.mu.Lock()
	s.darkMode = on
	s.mu.Unlock()
}

// ToggleDarkMode flips and persists the display-mode flag.
func (s *Session) ToggleDarkMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.darkMode = !s.darkMode
	next := s.darkMode
	s.mu.Unlock()
	if s.store == nil {
		return next, nil
	}
	if err := s.store.SetPreference(ctx, DarkModeKey, strconv.FormatBool(next)); err != nil {
		return next, fmt.Errorf("persist dark mode: %w", err)
	}
	return next, nil
}

// Login exchanges credentials for a token and persists it.
func (s *Session) Login(ctx context.Context, auth Authenticator, email, password string) error {
	return s.authenticate(ctx, "login", email, password, auth.Login)
}

// Register creates an account and persists the issued token.
func (s *Session) Register(ctx context.Context, auth Authenticator, email, password string) error {
	return s.authenticate(ctx, "register", email, password, auth.Register)
}

// Logout clears the credential in memory and in the store.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	if err := s.store.DeletePreference(ctx, CredentialKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear credential: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

func (s *Session) authenticate(ctx context.Context, op, email, password string, call func(context.Context, string, string) (string, error)) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &ValidationError{Field: "credentials", Err: ErrInvalidCredentials}
	}
	token, err := call(ctx, email, password)
	if err != nil {
		s.logger.Error(op+" failed", "email", email, "err", err)
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s: %w: no token received", op, ErrNotAuthenticated)
	}
	if s.store != nil {
		if err := s.store.SetPreference(ctx, CredentialKey, token); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.logger.Info(op+" succeeded", "email", email)
	return nil
}

func (s *Session) readPreference(ctx context.Context, key string) (string, error) {
	if s.store == nil {
		return "", nil
	}
	value, err := s.store.GetPreference(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
