package kernel

import (
	"fmt"
	"strings"
)

// ConfigError is one field-level problem found while validating static
// configuration. Bounds describes the accepted range when there is one.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
	Bounds  string `json:"bounds,omitempty"`
}

func (e ConfigError) String() string {
	var b strings.Builder
	b.WriteString(e.Field)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Value != nil {
		fmt.Fprintf(&b, " (got %v)", e.Value)
	}
	if e.Bounds != "" {
		fmt.Fprintf(&b, " [%s]", e.Bounds)
	}
	return b.String()
}

// ConfigValidationError carries every ConfigError from one initialization.
type ConfigValidationError struct {
	Errors []ConfigError
}

func (e *ConfigValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ce := range e.Errors {
		parts = append(parts, ce.String())
	}
	return fmt.Sprintf("config validation failed (%d): %s", len(e.Errors), strings.Join(parts, "; "))
}
