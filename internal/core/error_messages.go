package core

// error_messages.go maps technical errors to user-facing messages with codes
// that users can quote to support.
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Invalid schema: a field configuration is malformed
//	         Action: Fix the named field in the entity's schema file
//	         Matches: *schema.SchemaError, "schema error", "invalid schema"
//
// # Header Errors (HDR001-HDR099)
//
//	HDR001 - Missing column: a required column is absent from the file
//	         Action: Download the template and keep its header row
//	         Matches: *importer.HeaderError, "missing required column"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date                 "invalid date"
//	VAL002 - Invalid number               "invalid number"
//	VAL003 - Required value is empty      "is required"
//	VAL004 - Value not in the allowed set "must be one of"
//	VAL005 - Invalid email address        "valid email"
//	VAL006 - Value out of range           "must be at least", "must be at most"
//	VAL007 - Invalid yes/no value         "must be yes/no"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large     "file too large"
//	FILE002 - Unreadable file    "unable to read file", "parse error", "zip: not a valid"
//	FILE003 - Unsupported format "unsupported format"
//	FILE004 - No file            "no file provided"
//	FILE005 - No valid data      "no valid data"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Import cancelled    "import cancelled", "context canceled"
//	IMP002 - System busy         ErrTooManyImports
//	IMP003 - Import not found    store.ErrImportNotFound, "invalid import id"
//	IMP004 - Request timed out   "context deadline exceeded"
//
// # Other
//
//	ENT001  - Unknown entity      ErrUnknownEntity
//	PERM001 - Not permitted       permission.ErrForbidden
//	OPT001  - Options unavailable *options.TransportError
//	DB001   - Database unreachable "connection refused", "connection reset"
//	DB002   - Duplicate record     "duplicate key"
//	RATE001 - Rate limited         "rate limit"
//	ERR000  - Anything else; check the logs for the technical error
//
// Typed errors are checked first with errors.Is/errors.As. Otherwise the
// error text is matched case-insensitively and the first pattern wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/importer"
	"github.com/JonMunkholm/gridkit/internal/options"
	"github.com/JonMunkholm/gridkit/internal/permission"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/JonMunkholm/gridkit/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

var (
	msgSchema = UserMessage{
		Message: "The entity configuration is invalid",
		Action:  "Fix the named field in the entity's schema file",
		Code:    "SCH001",
	}
	msgHeader = UserMessage{
		Message: "A required column is missing from the file",
		Action:  "Download the template and keep its header row",
		Code:    "HDR001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP002",
	}
	msgImportNotFound = UserMessage{
		Message: "Import not found",
		Action:  "Check the import id; it may already have been rolled back",
		Code:    "IMP003",
	}
	msgUnknownEntity = UserMessage{
		Message: "Unknown entity",
		Action:  "Verify the entity name is correct",
		Code:    "ENT001",
	}
	msgForbidden = UserMessage{
		Message: "You do not have permission for this action",
		Action:  "Ask an administrator to grant your role access",
		Code:    "PERM001",
	}
	msgOptions = UserMessage{
		Message: "Options could not be loaded",
		Action:  "Try again; if it persists the option source may be down",
		Code:    "OPT001",
	}
)

// errorPattern maps a lower-case substring to a message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// Order matters: specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Schema and header errors
	// =========================================================================
	{pattern: "schema error", msg: msgSchema},
	{pattern: "invalid schema", msg: msgSchema},
	{pattern: "missing required column", msg: msgHeader},

	// =========================================================================
	// Validation errors (VAL001-VAL007)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Remove currency symbols and use standard decimal format",
			Code:    "VAL002",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Use one of the option labels shown in the template",
			Code:    "VAL004",
		},
	},
	{
		pattern: "valid email",
		msg: UserMessage{
			Message: "Invalid email address",
			Action:  "Use an address like name@example.com",
			Code:    "VAL005",
		},
	},
	{
		pattern: "must be at least",
		msg: UserMessage{
			Message: "Value is out of range",
			Action:  "Check the allowed range for this field",
			Code:    "VAL006",
		},
	},
	{
		pattern: "must be at most",
		msg: UserMessage{
			Message: "Value is out of range",
			Action:  "Check the allowed range for this field",
			Code:    "VAL006",
		},
	},
	{
		pattern: "must be yes/no",
		msg: UserMessage{
			Message: "Invalid yes/no value",
			Action:  "Use yes/no, true/false or 1/0",
			Code:    "VAL007",
		},
	},

	// =========================================================================
	// File errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "File format is not supported",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "unable to read file",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Save the file as CSV (UTF-8) or XLSX and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "zip: not a valid",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Save the file as CSV (UTF-8) or XLSX and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or XLSX file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no valid data",
		msg: UserMessage{
			Message: "The file contains no data rows",
			Action:  "Add at least one row below the header",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Import errors (IMP001-IMP004)
	// =========================================================================
	{
		pattern: "import cancelled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Start a new import when ready",
			Code:    "IMP001",
		},
	},
	{pattern: "too many imports", msg: msgBusy},
	{pattern: "invalid import id", msg: msgImportNotFound},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "IMP004",
		},
	},

	// =========================================================================
	// Database and rate limiting
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Review your data for duplicates",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}
	return MapMessage(err.Error())
}

// MapMessage maps a plain message, such as an entry of importer.Result.Errors.
func MapMessage(text string) UserMessage {
	lower := strings.ToLower(text)
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		schemaErr    *schema.SchemaError
		headerErr    *importer.HeaderError
		transportErr *options.TransportError
	)
	switch {
	case errors.As(err, &schemaErr):
		return msgSchema, true
	case errors.As(err, &headerErr):
		return msgHeader, true
	case errors.As(err, &transportErr):
		return msgOptions, true
	case errors.Is(err, ErrUnknownEntity):
		return msgUnknownEntity, true
	case errors.Is(err, ErrTooManyImports):
		return msgBusy, true
	case errors.Is(err, store.ErrImportNotFound):
		return msgImportNotFound, true
	case errors.Is(err, permission.ErrForbidden):
		return msgForbidden, true
	}
	return UserMessage{}, false
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original error, for logs
	User      UserMessage // For display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
