package storage

import "fmt"

// ConfigError means the store could not be reached at all: no database configured,
// a bad path, or a schema that failed to apply. Query failures on a working store
// are plain errors.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage not configured: %v", e.Err)
	}
	return fmt.Sprintf("storage not configured (%s): %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
