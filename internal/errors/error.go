package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryTree     Category = "tree"
	CategoryBinding  Category = "binding"
	CategoryAction   Category = "action"
	CategoryDocument Category = "document"
	CategoryStorage  Category = "storage"
	CategoryConfig   Category = "config"
	CategoryAPI      Category = "api"
	CategoryCLI      Category = "cli"
)

// Location identifies where in a storefront document an error occurred.
type Location struct {
	StoreID string
	Kind    string
	Key     string
	NodeID  string
}

// String returns the location as "store/kind/key#node".
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	var parts []string
	for _, p := range []string{l.StoreID, l.Kind, l.Key} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	s := strings.Join(parts, "/")
	if l.NodeID != "" {
		s += "#" + l.NodeID
	}
	return s
}

// Violation is a single structural or schema problem found while validating
// a tree, a component definition, or an action payload.
type Violation struct {
	NodeID  string `json:"nodeId,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String returns a compact human-readable form.
func (v Violation) String() string {
	var b strings.Builder
	if v.NodeID != "" {
		b.WriteString(v.NodeID)
		b.WriteString(": ")
	}
	if v.Field != "" {
		b.WriteString(v.Field)
		b.WriteString(": ")
	}
	b.WriteString(v.Message)
	return b.String()
}

// StorefrontError is a structured error with a stable code, an optional
// document location, validation violations and a fix suggestion.
type StorefrontError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type (tree, document, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location points at the document and node involved, if any.
	Location *Location

	// Violations lists every problem found by a validation step.
	Violations []Violation

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *StorefrontError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StorefrontError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same error code. This lets callers
// compare against the package sentinels with errors.Is regardless of the
// detail attached at the failure site.
func (e *StorefrontError) Is(target error) bool {
	t, ok := target.(*StorefrontError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithLocation attaches a document location to the error.
func (e *StorefrontError) WithLocation(storeID, kind, key, nodeID string) *StorefrontError {
	e.Location = &Location{StoreID: storeID, Kind: kind, Key: key, NodeID: nodeID}
	return e
}

// WithNode attaches only a node id to the error.
func (e *StorefrontError) WithNode(nodeID string) *StorefrontError {
	if e.Location == nil {
		e.Location = &Location{}
	}
	e.Location.NodeID = nodeID
	return e
}

// WithViolations attaches validation violations.
func (e *StorefrontError) WithViolations(vs []Violation) *StorefrontError {
	e.Violations = append(e.Violations, vs...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *StorefrontError) WithSuggestion(s string) *StorefrontError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *StorefrontError) WithDetail(d string) *StorefrontError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *StorefrontError) WithDetailf(format string, args ...any) *StorefrontError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *StorefrontError) Wrap(err error) *StorefrontError {
	e.Wrapped = err
	return e
}

// New creates a StorefrontError from a registered error code.
func New(code string) *StorefrontError {
	template, ok := registry[code]
	if !ok {
		return &StorefrontError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &StorefrontError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new StorefrontError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *StorefrontError {
	return &StorefrontError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a StorefrontError.
func FromError(err error, code string) *StorefrontError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StorefrontError); ok {
		return se
	}
	return New(code).Wrap(err)
}

// As returns the first StorefrontError in err's chain.
func As(err error) (*StorefrontError, bool) {
	for err != nil {
		if se, ok := err.(*StorefrontError); ok {
			return se, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
