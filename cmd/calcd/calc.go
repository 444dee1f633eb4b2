package main

import (
	"context"
	"fmt"
	"math"

	"github.com/codewandler/tedge-go/core/actor"
)

// === Calculator ===

type (
	// Operation changes the calculator state. Exactly one field is set.
	Operation struct {
		Add      *int `json:"add,omitempty"`
		Multiply *int `json:"multiply,omitempty"`
		Reset    bool `json:"reset,omitempty"`
	}

	// Update reports the state before and after an operation.
	Update struct {
		From  int    `json:"from"`
		To    int    `json:"to"`
		Error string `json:"error,omitempty"`
	}
)

func Add(n int) Operation      { return Operation{Add: &n} }
func Multiply(n int) Operation { return Operation{Multiply: &n} }

func (Operation) MessageType() string { return "calc.operation" }

// Calculator is a stateful server; it must be served sequentially.
type Calculator struct {
	state int
}

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Handle(_ context.Context, op Operation) Update {
	from := c.state
	switch {
	case op.Reset:
		c.state = 0
	case op.Add != nil:
		c.state += *op.Add
	case op.Multiply != nil:
		c.state *= *op.Multiply
	default:
		return Update{From: from, To: from, Error: "empty operation"}
	}
	return Update{From: from, To: c.state}
}

// === Temperature conversion ===

type (
	// Reading is a raw sensor value as published by the devices.
	Reading struct {
		Device  string  `json:"device"`
		Celsius float64 `json:"celsius"`
	}

	// Measurement is a converted reading.
	Measurement struct {
		Device     string  `json:"device"`
		Type       string  `json:"type"`
		Celsius    float64 `json:"celsius"`
		Fahrenheit float64 `json:"fahrenheit"`
	}

	// ConversionResult answers a conversion request.
	ConversionResult struct {
		Fahrenheit float64 `json:"fahrenheit"`
		Error      string  `json:"error,omitempty"`
	}
)

// absoluteZero is the lowest valid reading in celsius.
const absoluteZero = -273.15

func toFahrenheit(c float64) (float64, error) {
	if math.IsNaN(c) || c < absoluteZero {
		return 0, fmt.Errorf("invalid temperature %v", c)
	}
	return c*9/5 + 32, nil
}

// thermometer converts readings into measurements.
type thermometer struct {
	name string
}

func (t thermometer) Name() string { return t.name }

func (t thermometer) Convert(_ context.Context, r Reading) ([]Measurement, error) {
	f, err := toFahrenheit(r.Celsius)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", r.Device, err)
	}
	return []Measurement{{Device: r.Device, Type: "temperature", Celsius: r.Celsius, Fahrenheit: f}}, nil
}

// conversionServer answers one-off conversion requests. It is stateless,
// so requests are served concurrently.
type conversionServer struct{}

func (conversionServer) Name() string { return "conversion" }

func (conversionServer) Handle(_ context.Context, celsius float64) ConversionResult {
	f, err := toFahrenheit(celsius)
	if err != nil {
		return ConversionResult{Error: err.Error()}
	}
	return ConversionResult{Fahrenheit: f}
}

func (s conversionServer) Clone() actor.Server[float64, ConversionResult] { return s }
