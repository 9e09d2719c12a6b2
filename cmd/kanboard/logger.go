package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/kanboard/internal/config"
	"github.com/hylla/kanboard/internal/platform"
)

const defaultDevLogDir = ".kanboard/log"

// logSink is one destination of runtime events.
type logSink struct {
	*charmLog.Logger
	console bool
}

// runtimeLogger writes every event to a styled console sink and, in dev mode,
// to a logfmt file under the workspace.
type runtimeLogger struct {
	sinks       []logSink
	consoleMute bool
	file        *os.File
}

func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	l := &runtimeLogger{}
	l.sinks = append(l.sinks, logSink{
		Logger:  newSink(stderr, appName, level, charmLog.TextFormatter, time.Kitchen),
		console: true,
	})
	if !devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	if now == nil {
		now = time.Now
	}
	file, err := openDevLogFile(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, err
	}
	l.file = file
	l.sinks = append(l.sinks, logSink{
		Logger: newSink(file, appName, level, charmLog.LogfmtFormatter, time.RFC3339),
	})
	return l, nil
}

func newSink(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter, timeFormat string) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Formatter:       formatter,
	})
}

// openDevLogFile creates or appends to the day's dev log.
func openDevLogFile(dir, appName string, day time.Time) (*os.File, error) {
	path, err := devLogFilePath(dir, appName, day)
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	return file, nil
}

// DevLogPath returns the dev log file path, or "" when file logging is off.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *runtimeLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetConsoleEnabled mutes or restores the console sink. The file sink is unaffected.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l != nil {
		l.consoleMute = !enabled
	}
}

func (l *runtimeLogger) consoleActive() bool {
	return l != nil && !l.consoleMute
}

func (l *runtimeLogger) emit(level charmLog.Level, msg any, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if sink.console && l.consoleMute {
			continue
		}
		sink.Log(level, msg, keyvals...)
	}
}

func (l *runtimeLogger) Debug(msg any, keyvals ...any) { l.emit(charmLog.DebugLevel, msg, keyvals...) }
func (l *runtimeLogger) Info(msg any, keyvals ...any)  { l.emit(charmLog.InfoLevel, msg, keyvals...) }
func (l *runtimeLogger) Warn(msg any, keyvals ...any)  { l.emit(charmLog.WarnLevel, msg, keyvals...) }
func (l *runtimeLogger) Error(msg any, keyvals ...any) { l.emit(charmLog.ErrorLevel, msg, keyvals...) }

// devLogFilePath names the log file <app>-<yyyymmdd>.log. Relative dirs are
// anchored at the workspace root above the working directory.
func devLogFilePath(dir, appName string, day time.Time) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultDevLogDir
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		dir = filepath.Join(workspaceRootFrom(cwd), dir)
	}
	name := sanitizeLogFileStem(appName) + "-" + day.Format("20060102") + ".log"
	return filepath.Join(filepath.Clean(dir), name), nil
}

// workspaceRootFrom returns the closest ancestor of start holding go.mod or
// .git, or start itself when none does.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	for dir := start; ; dir = filepath.Dir(dir) {
		if isWorkspaceRoot(dir) {
			return dir
		}
		if filepath.Dir(dir) == dir {
			return start
		}
	}
}

func isWorkspaceRoot(dir string) bool {
	for _, marker := range [...]string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// sanitizeLogFileStem maps path separators and blanks to dashes.
func sanitizeLogFileStem(appName string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(appName))
	if stem = strings.Trim(stem, "-"); stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
