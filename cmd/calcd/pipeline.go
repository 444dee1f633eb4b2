package main

import (
	"fmt"

	"github.com/codewandler/tedge-go/core/actor"
)

// measurementPipeline spreads readings over workers thermometers by device,
// so readings of one device stay in order. Every thermometer forwards to a
// clone of out; out itself is taken over by the pipeline.
func measurementPipeline(workers int, opts actor.Options, out actor.Sender[Measurement]) (actor.Sender[Reading], []actor.ActorBuilder, error) {
	defer out.Close()

	inputs := make(map[string]actor.Sender[Reading], workers)
	builders := make([]actor.ActorBuilder, 0, workers)
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("thermometer-%d", i)
		b := actor.NewConvertingActorBuilder[Reading, Measurement](thermometer{name: name}, opts)
		actor.ConnectSender(b, out.Clone())
		inputs[name] = b.Sender()
		builders = append(builders, b)
	}

	router, err := actor.RouterSender(func(r Reading) string { return r.Device }, "calcd", inputs)
	if err != nil {
		return nil, nil, err
	}
	return router, builders, nil
}
