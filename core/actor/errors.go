package actor

import (
	"errors"
	"fmt"
)

var (
	// Channel errors
	ErrSendFailed    = errors.New("the receiver has been dropped")
	ErrReceiveFailed = errors.New("the sender has been dropped")

	// Link errors, matched with errors.Is against a *LinkError
	ErrMissingPeer = errors.New("missing peer")
	ErrExcessPeer  = errors.New("excess peer")

	// Builder errors
	ErrAlreadyBuilt = errors.New("builder already consumed")

	ErrRuntimeClosed = errors.New("runtime closed")
)

// LinkError reports a wiring failure detected before any actor runs.
type LinkError struct {
	// Kind is either ErrMissingPeer or ErrExcessPeer.
	Kind error
	// Role names the peer slot, e.g. "response sink" or "http proxy".
	Role string
}

func MissingPeer(role string) *LinkError { return &LinkError{Kind: ErrMissingPeer, Role: role} }
func ExcessPeer(role string) *LinkError  { return &LinkError{Kind: ErrExcessPeer, Role: role} }

func (e *LinkError) Error() string {
	switch e.Kind {
	case ErrMissingPeer:
		return fmt.Sprintf("missing a connection to a peer actor: %s", e.Role)
	case ErrExcessPeer:
		return fmt.Sprintf("too many connections to a peer actor: %s", e.Role)
	default:
		return fmt.Sprintf("link error: %s", e.Role)
	}
}

func (e *LinkError) Unwrap() error { return e.Kind }

// RuntimeErrorKind classifies a RuntimeError.
type RuntimeErrorKind int

const (
	KindActorError RuntimeErrorKind = iota
	KindChannel
	KindCancellation
	KindPanic
	KindJoin
	KindLink
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case KindActorError:
		return "actor_error"
	case KindChannel:
		return "channel_error"
	case KindCancellation:
		return "cancellation"
	case KindPanic:
		return "panic"
	case KindJoin:
		return "join_error"
	case KindLink:
		return "link_error"
	default:
		return "unknown"
	}
}

// RuntimeError is reported by the Runtime for a task that did not end cleanly.
// The runtime never interprets Err beyond wrapping it.
type RuntimeError struct {
	Kind  RuntimeErrorKind
	Actor string
	Err   error
	// Stack is set for KindPanic.
	Stack []byte
}

func (e *RuntimeError) Error() string {
	switch e.Kind {
	case KindPanic:
		return fmt.Sprintf("actor %q panicked: %v", e.Actor, e.Err)
	case KindCancellation:
		return fmt.Sprintf("actor %q cancelled: %v", e.Actor, e.Err)
	case KindLink:
		return fmt.Sprintf("failed to link actor %q: %v", e.Actor, e.Err)
	case KindChannel:
		return fmt.Sprintf("runtime channel error for actor %q: %v", e.Actor, e.Err)
	case KindJoin:
		return fmt.Sprintf("failed to join actor %q: %v", e.Actor, e.Err)
	default:
		return fmt.Sprintf("actor %q failed: %v", e.Actor, e.Err)
	}
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsRuntimeError reports whether err carries a RuntimeError of the given kind.
func IsRuntimeError(err error, kind RuntimeErrorKind) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == kind
}

type panicError struct{ recovered any }

func (p panicError) Error() string { return fmt.Sprintf("%v", p.recovered) }
