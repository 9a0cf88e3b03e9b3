package engine

import (
	"errors"
	"fmt"
	"strings"
)

// RunError represents an error detected during run execution.
//
// Most stage trouble (errors, timeouts, bad output) is absorbed by
// fallback substitution and never surfaces as a RunError. RunErrors are
// reserved for defects in the run itself:
//   - Invalid definition: the pipeline failed structural validation
//   - Missing input: the caller's inputs lack a required key
//   - Duplicate namespace: two stages tried to write the same namespace
//   - Routing exhausted: every conditional edge of a stage declined
//
// RunError includes structured fields for diagnostics.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, when one was started.
	RunID string

	// Stage identifies the stage involved, when one is.
	Stage string

	// Details contains additional context.
	Details map[string]string
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeInvalidDefinition indicates the pipeline definition failed
	// structural validation.
	ErrCodeInvalidDefinition RunErrorCode = "INVALID_DEFINITION"

	// ErrCodeMissingInput indicates the run inputs lack a required key.
	ErrCodeMissingInput RunErrorCode = "MISSING_INPUT"

	// ErrCodeDuplicateNamespace indicates a second write to an already
	// written namespace.
	ErrCodeDuplicateNamespace RunErrorCode = "DUPLICATE_NAMESPACE"

	// ErrCodeNamespaceNotReady indicates a read of a namespace no stage
	// has written yet.
	ErrCodeNamespaceNotReady RunErrorCode = "NAMESPACE_NOT_READY"

	// ErrCodeRoutingExhausted indicates every conditional edge of a
	// completed stage declined, leaving the run with no route forward.
	ErrCodeRoutingExhausted RunErrorCode = "ROUTING_EXHAUSTED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.RunID != "" && e.Stage != "" {
		return fmt.Sprintf("%s: %s (run=%s, stage=%s)", e.Code, e.Message, e.RunID, e.Stage)
	}
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err is (or wraps) a RunError with the given code.
func HasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRoutingExhausted reports whether err is a routing exhaustion error.
func IsRoutingExhausted(err error) bool {
	return HasCode(err, ErrCodeRoutingExhausted)
}

// IsDuplicateNamespace reports whether err is a duplicate namespace write.
func IsDuplicateNamespace(err error) bool {
	return HasCode(err, ErrCodeDuplicateNamespace)
}

// IsNamespaceNotReady reports whether err is a read of an unwritten namespace.
func IsNamespaceNotReady(err error) bool {
	return HasCode(err, ErrCodeNamespaceNotReady)
}

// NewDuplicateNamespaceError creates a RunError for a repeated namespace write.
func NewDuplicateNamespaceError(runID, namespace string) *RunError {
	return &RunError{
		Code:    ErrCodeDuplicateNamespace,
		Message: fmt.Sprintf("namespace %q already written", namespace),
		RunID:   runID,
		Stage:   namespace,
	}
}

// NewNotReadyError creates a RunError for a read of an unwritten namespace.
func NewNotReadyError(runID, namespace string) *RunError {
	return &RunError{
		Code:    ErrCodeNamespaceNotReady,
		Message: fmt.Sprintf("namespace %q has not been written", namespace),
		RunID:   runID,
		Stage:   namespace,
	}
}

// NewRoutingExhaustedError creates a RunError for a stage whose conditional
// edges all declined.
func NewRoutingExhaustedError(runID, stage string, labels []string) *RunError {
	return &RunError{
		Code:    ErrCodeRoutingExhausted,
		Message: "no conditional edge matched",
		RunID:   runID,
		Stage:   stage,
		Details: map[string]string{
			"evaluated": strings.Join(labels, ", "),
		},
	}
}

// NewMissingInputError creates a RunError for inputs lacking required keys.
func NewMissingInputError(runID string, missing []string) *RunError {
	return &RunError{
		Code:    ErrCodeMissingInput,
		Message: fmt.Sprintf("inputs missing required keys: %s", strings.Join(missing, ", ")),
		RunID:   runID,
	}
}
