package forecast

import (
	"errors"
	"fmt"
)

// ConfigurationError reports structural misconfiguration detected before
// the simulation loop starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// DataUnavailableError means the historical engagement series could not be
// built. Callers recover by running with an empty series.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("historical data unavailable: %s", e.Source)
	}
	return fmt.Sprintf("historical data unavailable: %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}
