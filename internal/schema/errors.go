package schema

import "fmt"

// SchemaError reports a malformed or unsupported field configuration.
// It is fatal to whatever derivation detected it.
type SchemaError struct {
	Key    string // Offending field key (empty for schema-level problems)
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Key == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error: field %q: %s", e.Key, e.Reason)
}

func schemaErrorf(key, format string, args ...any) *SchemaError {
	return &SchemaError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
