package exceedance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRegionColumnNotFound means no header names a region axis
	ErrRegionColumnNotFound = errors.New("region column not found")
	// ErrStandardsUnavailable means aggregation was asked for without a standards table
	ErrStandardsUnavailable = errors.New("standards table unavailable")
	// ErrStandardsMalformed means the standards source lacks region, label or item columns
	ErrStandardsMalformed = errors.New("standards table malformed")
)

// ConfigError is a fatal configuration problem. The request cannot proceed
// and retrying with the same input will fail the same way.
type ConfigError struct {
	Op      string
	Err     error
	Columns []string
}

func (e *ConfigError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (columns: %s)", e.Op, e.Err, strings.Join(e.Columns, ", "))
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err carries a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
