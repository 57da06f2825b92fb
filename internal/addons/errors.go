package addons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ConfigurationError reports an invalid add-on declaration. It is always
// raised before any collaborator is called.
type ConfigurationError struct {
	// Scope is the add-on (or "plan") the issues belong to.
	Scope string
	// Issues lists every problem found.
	Issues *multierror.Error
}

// NewConfigurationError builds a ConfigurationError with a single issue.
func NewConfigurationError(scope, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Scope:  scope,
		Issues: multierror.Append(nil, fmt.Errorf(format, args...)),
	}
}

func (e *ConfigurationError) Error() string {
	if e.Issues == nil || len(e.Issues.Errors) == 0 {
		return fmt.Sprintf("invalid configuration for %s", e.Scope)
	}
	msgs := make([]string, 0, len(e.Issues.Errors))
	for _, err := range e.Issues.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Scope, strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Unwrap() error {
	return e.Issues.ErrorOrNil()
}

// CycleError reports a dependency cycle. Chain lists the participants in
// order, with the first node repeated at the end.
type CycleError struct {
	Chain []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = string(id)
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(parts, " -> "))
}

// ExternalCallError wraps a failed collaborator call.
type ExternalCallError struct {
	// Provider names the collaborator, e.g. "control-plane" or "iam".
	Provider string
	// Operation is the call that failed, e.g. "attach-policy".
	Operation string
	// Cause is the underlying error.
	Cause error
}

// NewExternalCallError wraps cause, mapping deadline errors to TimeoutError.
func NewExternalCallError(provider, operation string, cause error) error {
	ext := ExternalCallError{Provider: provider, Operation: operation, Cause: cause}
	if IsDeadline(cause) {
		return &TimeoutError{ExternalCallError: ext}
	}
	return &ext
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Cause)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Cause
}

// TimeoutError is an ExternalCallError caused by a deadline. errors.As
// matches both *TimeoutError and *ExternalCallError.
type TimeoutError struct {
	ExternalCallError
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out: %v", e.Provider, e.Operation, e.Cause)
}

// As lets errors.As(err, **ExternalCallError) see through a TimeoutError.
func (e *TimeoutError) As(target any) bool {
	if t, ok := target.(**ExternalCallError); ok {
		*t = &e.ExternalCallError
		return true
	}
	return false
}

// IsDeadline reports whether err stems from an exceeded deadline.
func IsDeadline(err error) bool {
	if err == nil {
		return false
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
