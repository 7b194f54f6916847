package tui

import (
	"io"
	"log/slog"
)

// Theme carries optional prefixes applied to messages the session prints.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the survey-backed driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints informational messages.
// It has no effect when a custom driver is supplied.
func WithOutput(out io.Writer) Option {
	return func(s *Session) {
		s.out = out
	}
}

// WithLogger routes session diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}
