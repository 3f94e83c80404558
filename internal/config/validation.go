package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateEventBus(&c.EventBus)...)
	errs = append(errs, validateScheduler(&c.Scheduler)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors
	if s.DataDir == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.data_dir",
			Message: "data directory is required",
		})
	}
	return errs
}

func validateEventBus(e *EventBusConfig) ValidationErrors {
	var errs ValidationErrors
	if e.Capacity < 1 {
		errs = append(errs, ValidationError{
			Field:   "event_bus.capacity",
			Message: "capacity must be at least 1",
		})
	}
	return errs
}

func validateScheduler(s *SchedulerConfig) ValidationErrors {
	var errs ValidationErrors
	if s.ShutdownPollMs < 10 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.shutdown_poll_ms",
			Message: "shutdown poll interval must be at least 10ms",
		})
	}
	return errs
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
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

// ErrInvalidConfig is a sentinel for an invalid configuration.
// ValidateConfig reports its failures as ValidationErrors and does not
// return or wrap this value.
var ErrInvalidConfig = errors.New("invalid configuration")
