// Package app assembles an agent from actor builders and runs it until the
// actors stop or the agent is told to stop.
//
// # Basic Usage
//
//	calc := actor.NewServerActorBuilder[Op, Update](&Calculator{}, actor.Options{})
//	conv := actor.NewConvertingActorBuilder[Reading, Measurement](conv, actor.Options{})
//	resp := nats.NewResponderBuilder[Op, Update](nats.ResponderConfig{Subject: "calc"}, calc)
//
//	a, err := app.Run(app.Config{Context: ctx}, calc, conv, resp)
//	if err != nil {
//	    log.Fatal(err) // wiring errors: nothing was started
//	}
//	err = a.Wait() // returns after ctx is done and the actors shut down
//
// All builders are built before the first actor is spawned, so a missing or
// excess peer aborts the start as a whole.
//
// # Shutdown
//
// Cancelling Config.Context or calling Stop sends Shutdown to every actor.
// Actors still running after ShutdownTimeout are cancelled through their
// context.
package app
