package schema

import "fmt"

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// Issue codes reported by the content validator.
const (
	IssueSchema            = "SCHEMA"
	IssueField             = "FIELD"
	IssueDuplicateID       = "DUPLICATE_ID"
	IssueDuplicateStepID   = "DUPLICATE_STEP_ID"
	IssueEmptyLesson       = "EMPTY_LESSON"
	IssueUnknownStepType   = "UNKNOWN_STEP_TYPE"
	IssueMalformedStep     = "MALFORMED_STEP"
	IssueMissingField      = "MISSING_FIELD"
	IssueWiringSequence    = "WIRING_SEQUENCE"
	IssueAnnotationLine    = "ANNOTATION_LINE"
	IssueUnknownModule     = "UNKNOWN_MODULE"
	IssueUnknownBoard      = "UNKNOWN_BOARD"
	IssueUnresolvedNext    = "UNRESOLVED_NEXT_LESSON"
	IssueCompletionNotLast = "COMPLETION_NOT_LAST"
	IssueAmbiguousBoard    = "AMBIGUOUS_BOARD"
	IssueUnknownComponent  = "UNKNOWN_COMPONENT"
	IssueUnlockRule        = "UNLOCK_RULE"
)

// ValidationIssue is a single validation problem with location context.
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult aggregates all issues from the validation pipeline.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ToError converts the result to a VALIDATION_ERROR if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}

// All returns errors followed by warnings.
func (r *ValidationResult) All() []ValidationIssue {
	out := make([]ValidationIssue, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// HasIssue reports whether any issue at path carries the given code.
func (r *ValidationResult) HasIssue(path, code string) bool {
	for _, is := range r.All() {
		if is.Path == path && is.Code == code {
			return true
		}
	}
	return false
}

// Summary is a one-line count of errors and warnings.
func (r *ValidationResult) Summary() string {
	return fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
}
