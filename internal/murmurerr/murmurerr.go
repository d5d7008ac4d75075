// Package murmurerr centralizes the error-kind taxonomy shared by every
// subsystem: DAG engine, agent supervisor, worktree pool, and run store.
package murmurerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a murmur error.
type Kind int

const (
	// KindIo covers underlying I/O failures (read/write/spawn).
	KindIo Kind = iota
	// KindStorage covers database constraint or connection failures.
	KindStorage
	// KindNotFound covers a row or file expected but absent.
	KindNotFound
	// KindInvalidData covers a parse failure on a persisted row or ref string.
	KindInvalidData
	// KindAgent covers subprocess lifecycle failures (binary missing, workdir
	// missing, stdout capture failure).
	KindAgent
	// KindConfig covers invalid input configuration (branch conflict without
	// force, no branching point found, etc).
	KindConfig
	// KindInvalidDependencyRefs covers one or more textual refs that did not
	// conform to the dependency-reference grammar.
	KindInvalidDependencyRefs
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	case KindInvalidData:
		return "invalid_data"
	case KindAgent:
		return "agent"
	case KindConfig:
		return "config"
	case KindInvalidDependencyRefs:
		return "invalid_dependency_refs"
	default:
		return "unknown"
	}
}

// Error is the wrapper type returned by every exported function in this
// module that can fail. It carries a Kind, a human-readable message, the
// resource/id pair for NotFound, the bad refs for InvalidDependencyRefs, and
// an optional wrapped cause.
type Error struct {
	Kind     Kind
	Message  string
	Resource string   // set for KindNotFound
	ID       string   // set for KindNotFound
	Refs     []string // set for KindInvalidDependencyRefs
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindNotFound:
		fmt.Fprintf(&b, "%s not found: %s", e.Resource, e.ID)
	case KindInvalidDependencyRefs:
		fmt.Fprintf(&b, "invalid dependency refs: %s", strings.Join(e.Refs, ", "))
	default:
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, murmurerr.KindNotFound-shaped sentinel) style
// comparisons by kind: errors.Is(err, &Error{Kind: KindNotFound}) matches any
// *Error with the same Kind, ignoring other fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Io wraps a cause as an I/O error.
func Io(cause error) error {
	return &Error{Kind: KindIo, Message: "i/o error", Cause: cause}
}

// Storage wraps a cause as a storage error.
func Storage(message string, cause error) error {
	return &Error{Kind: KindStorage, Message: message, Cause: cause}
}

// NotFound builds a NotFound error for the given resource/id pair.
func NotFound(resource, id string) error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

// InvalidData builds an InvalidData error.
func InvalidData(message string) error {
	return &Error{Kind: KindInvalidData, Message: message}
}

// InvalidDataf builds an InvalidData error with a wrapped cause.
func InvalidDataf(message string, cause error) error {
	return &Error{Kind: KindInvalidData, Message: message, Cause: cause}
}

// Agent builds an Agent lifecycle error.
func Agent(message string) error {
	return &Error{Kind: KindAgent, Message: message}
}

// Agentf builds an Agent lifecycle error with a wrapped cause.
func Agentf(message string, cause error) error {
	return &Error{Kind: KindAgent, Message: message, Cause: cause}
}

// Config builds a Config error.
func Config(message string) error {
	return &Error{Kind: KindConfig, Message: message}
}

// Configf builds a Config error with a wrapped cause.
func Configf(message string, cause error) error {
	return &Error{Kind: KindConfig, Message: message, Cause: cause}
}

// InvalidDependencyRefs builds an error collecting every unparsable textual
// reference encountered during a single parse pass. Never partial: the DAG
// engine accumulates all bad refs before returning.
func InvalidDependencyRefs(refs []string) error {
	return &Error{Kind: KindInvalidDependencyRefs, Refs: refs}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from err, following the wrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
