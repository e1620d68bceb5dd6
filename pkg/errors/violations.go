package errors

import "strings"

// Violation names a single invalid field and why it was rejected.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations accumulates field failures so callers can report all of them at once.
type Violations []Violation

// Add records a violation.
func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Empty reports whether no violation was recorded.
func (v Violations) Empty() bool {
	return len(v) == 0
}

// Err returns nil when empty, otherwise a validation error listing every violation
// in the message and in the details.
func (v Violations) Err(prefix string) error {
	if v.Empty() {
		return nil
	}
	parts := make([]string, 0, len(v))
	for _, violation := range v {
		parts = append(parts, violation.Field+": "+violation.Message)
	}
	msg := strings.Join(parts, "; ")
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	details := make(Violations, len(v))
	copy(details, v)
	return New(CodeValidation, msg).WithDetails(details)
}
