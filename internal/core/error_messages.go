// error_messages.go maps technical errors to user-facing messages.
//
// User-facing errors carry a code so a user can quote it when asking for
// help. Codes are grouped by category:
//
// # Schema and Shape Errors (SCH, SHP)
//
//	SCH001 - Data does not match its labels
//	         Action: Give every row one value per column and one label per row
//	         Patterns: "schema error"
//
//	SHP001 - Labels have an inconsistent number of levels
//	         Action: Give every row and column label the same number of levels
//	         Patterns: "shape error"
//
// # Index Errors (IDX)
//
//	IDX001 - Column or level does not exist
//	         Action: Refresh the view and try again
//	         Patterns: "out of range"
//
//	IDX002 - Column selected twice
//	         Action: Select each column once
//	         Patterns: "selected more than once"
//
//	IDX003 - Unknown sort direction
//	         Action: Use asc, desc or none
//	         Patterns: "unknown sort direction"
//
// # Source Errors (SRC)
//
//	SRC001 - Unsupported file type
//	SRC002 - Empty CSV
//	SRC003 - Nested Parquet schema
//	SRC004 - File could not be parsed
//	SRC005 - File too large
//	SRC006 - Too many loads in progress
//	SRC007 - No file provided
//
// # Session Errors (SES)
//
//	SES001 - Session expired or unknown
//	SES002 - Too many open sessions
//	SES003 - Dataset not in the catalog
//	SES004 - Unknown intent
//
// # Database Errors (DB)
//
//	DB001 - Connection refused
//	DB002 - Table does not exist
//	DB003 - Table query has no table
//
// # Request Errors (REQ, RATE)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	REQ003 - Malformed request
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error,
// they carry the same request_id as the response.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so specific patterns come before general ones.

package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Schema and shape
	{
		pattern: "schema error",
		msg: UserMessage{
			Message: "The data does not match its labels",
			Action:  "Give every row one value per column and one label per row",
			Code:    "SCH001",
		},
	},
	{
		pattern: "shape error",
		msg: UserMessage{
			Message: "Labels have an inconsistent number of levels",
			Action:  "Give every row and column label the same number of levels",
			Code:    "SHP001",
		},
	},

	// Index
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "That column or level does not exist",
			Action:  "Refresh the view and try again",
			Code:    "IDX001",
		},
	},
	{
		pattern: "selected more than once",
		msg: UserMessage{
			Message: "A column was selected twice",
			Action:  "Select each column once",
			Code:    "IDX002",
		},
	},
	{
		pattern: "unknown sort direction",
		msg: UserMessage{
			Message: "Unknown sort direction",
			Action:  "Use asc, desc or none",
			Code:    "IDX003",
		},
	},

	// Sources
	{
		pattern: "unsupported source format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a CSV, TSV, JSON, YAML or Parquet file, optionally zstd compressed",
			Code:    "SRC001",
		},
	},
	{
		pattern: "csv has no header row",
		msg: UserMessage{
			Message: "The CSV file is empty",
			Action:  "Upload a file with a header row and data rows",
			Code:    "SRC002",
		},
	},
	{
		pattern: "parquet schema is not flat",
		msg: UserMessage{
			Message: "Nested Parquet columns are not supported",
			Action:  "Flatten the schema before uploading",
			Code:    "SRC003",
		},
	},
	{
		pattern: "decode json",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that the file is valid JSON",
			Code:    "SRC004",
		},
	},
	{
		pattern: "decode yaml",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that the file is valid YAML",
			Code:    "SRC004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "SRC005",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "SRC005",
		},
	},
	{
		pattern: "malformed source",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that the file matches its extension",
			Code:    "SRC004",
		},
	},
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "System is busy loading other files",
			Action:  "Please wait a moment and try again",
			Code:    "SRC006",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "SRC007",
		},
	},

	// Sessions
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "This view has expired",
			Action:  "Reopen the dataset from the catalog",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many open sessions",
		msg: UserMessage{
			Message: "Too many views are open",
			Action:  "Close unused views or try again later",
			Code:    "SES002",
		},
	},
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "Pick a dataset from the catalog",
			Code:    "SES003",
		},
	},
	{
		pattern: "unknown intent",
		msg: UserMessage{
			Message: "Unsupported action",
			Action:  "Reload the page and try again",
			Code:    "SES004",
		},
	},

	// Database
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Table does not exist",
			Action:  "Verify the table name is correct",
			Code:    "DB002",
		},
	},
	{
		pattern: "table query needs",
		msg: UserMessage{
			Message: "No table was named",
			Action:  "Name a table to load",
			Code:    "DB003",
		},
	},

	// Requests
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request parameters and body",
			Code:    "REQ003",
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

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
//
//	msg := MapError(&dataset.SchemaError{Reason: "row 3 has 2 values, columns has 4"})
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap returns the technical error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
