package actor

import "github.com/codewandler/tedge-go/internal/reflector"

// MessageTyper lets a message choose the type name used in logs and metrics.
// Without it the short Go type name is used.
type MessageTyper interface{ MessageType() string }

func msgTypeOf(x any) string {
	if mt, ok := x.(MessageTyper); ok {
		return mt.MessageType()
	}
	return reflector.TypeInfoOf(x).Short
}

// RuntimeRequest is a control signal delivered on an actor's signal channel,
// separate from its input.
type RuntimeRequest int

const (
	// Shutdown asks an actor to stop as soon as it is done with the
	// message it is handling.
	Shutdown RuntimeRequest = iota + 1
)

func (r RuntimeRequest) String() string {
	switch r {
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// NoMessage is the message type of an actor that sends or receives nothing.
type NoMessage struct{}
