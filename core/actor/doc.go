// Package actor is a message-passing runtime for building an edge agent out
// of independently written components.
//
// Actors never share mutable state. Each one owns a [Mailbox] and talks to
// its peers only through [Sender] handles. Bounded channels push back on
// fast producers; a separate signal channel carries [Shutdown] so it is
// never stuck behind queued input.
//
// # Wiring
//
// A topology is wired before anything runs. Builders hand out senders and
// collect peers:
//
//	calc := actor.NewServerActorBuilder[Op, Update](NewCalculator(), actor.Options{MailboxSize: 10})
//	client, err := actor.NewClientMessageBox[Op, Update](calc)
//
// Wiring errors are [*LinkError] values ([ErrMissingPeer], [ErrExcessPeer])
// and are reported by TryBuild, so a half-wired topology never starts.
//
// # Running
//
//	rt := actor.NewRuntime(actor.RuntimeOptions{Logger: log})
//	if err := rt.SpawnBuilder(calc); err != nil {
//	    return err
//	}
//	upd, err := client.Await(ctx, Add(5))
//	...
//	err = rt.Shutdown(ctx)
//
// An actor stops when its input is exhausted (every sender closed) or when
// it sees Shutdown. Errors and panics are reported as [*RuntimeError] and
// never stop sibling actors unless [RuntimeOptions.ShutdownOnError] is set.
//
// # Ownership
//
// Every Sender handle must be closed by whoever holds it. A sender passed
// to Connect, ConnectSink, Add or a runtime Spawn method is owned by the
// callee from then on. Clone a sender to hand it to more than one owner.
package actor
