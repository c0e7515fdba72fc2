package config

import (
	"fmt"
	"net"
	"strings"

	"proctord/internal/privacy"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every problem in the configuration at once.
// Errors are reported synchronously here, never surfaced mid-loop.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateJournal(&c.Journal)...)
	errs = append(errs, validateAddr("health.addr", c.Health.Enabled, c.Health.Addr)...)
	if c.Metrics.Addr != "" {
		errs = append(errs, validateAddr("metrics.addr", c.Metrics.Enabled, c.Metrics.Addr)...)
	}

	errs = append(errs, validateWatcher("defaults", c.Defaults)...)
	for domain, settings := range c.Watchers {
		merged := settings.Merged(c.Defaults)
		errs = append(errs, validateWatcher("watchers."+domain, merged)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr)", l.Output),
		})
	}

	return errs
}

func validateJournal(j *JournalConfig) ValidationErrors {
	var errs ValidationErrors

	if j.Enabled && j.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "journal.path",
			Message: "database path is required when the journal is enabled",
		})
	}
	if j.RetainDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "journal.retain_days",
			Message: "retention cannot be negative",
		})
	}

	return errs
}

func validateAddr(field string, enabled bool, addr string) ValidationErrors {
	var errs ValidationErrors

	if !enabled {
		return errs
	}
	if addr == "" {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "listen address is required when enabled",
		})
		return errs
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	return errs
}

func validateWatcher(prefix string, s WatcherSettings) ValidationErrors {
	var errs ValidationErrors

	if s.PollIntervalMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".poll_interval_ms",
			Message: "poll interval must be positive",
		})
	}
	if s.HeartbeatIntervalMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".heartbeat_interval_ms",
			Message: "heartbeat interval must be positive",
		})
	}
	if s.MinEventIntervalMs != nil && *s.MinEventIntervalMs < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".min_event_interval_ms",
			Message: "min event interval cannot be negative",
		})
	}
	if r := s.Thresholds.Recording; r != nil && (*r < 0 || *r > 1) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".thresholds.recording",
			Message: "threshold must be between 0.0 and 1.0",
		})
	}
	if o := s.Thresholds.Overlay; o != nil && (*o < 0 || *o > 1) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".thresholds.overlay",
			Message: "threshold must be between 0.0 and 1.0",
		})
	}
	if _, err := privacy.ParseMode(s.PrivacyMode); err != nil {
		errs = append(errs, ValidationError{
			Field:   prefix + ".privacy_mode",
			Message: fmt.Sprintf("invalid privacy mode: %s (valid: METADATA_ONLY, REDACTED, FULL)", s.PrivacyMode),
		})
	}
	if s.DedupTTLSec < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".dedup_ttl_sec",
			Message: "dedup TTL cannot be negative",
		})
	}
	if s.DedupMaxEntries < 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".dedup_max_entries",
			Message: "dedup cap cannot be negative",
		})
	}

	return errs
}
