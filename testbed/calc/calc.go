// Package calc is the demo module used by the kernel tests and the CLI.
//
//	calc.Adder              constructible, add(n), base property
//	calc.MathUtils          static square(n), precision, midpoint(a, b)
//	calc.Op                 enum ADD / SUB / MUL
//	calc.Calculator         static apply(op, a, b)
//	calc.Clock              static addDays(date, n)
//	calc.Geometry.Circle    nested type
//	calc.Relay              calls back into the kernel
package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wippyai/jsii-kernel/typesys"
	"github.com/wippyai/jsii-kernel/wire"
)

// Name is the module key the catalog registers calc under.
const Name = "calc"

// Define declares the calc types.
func Define(m *typesys.Module) {
	m.Type("Adder").Constructor(NewAdder)
	m.Type("MathUtils").
		StaticMethod("square", Square).
		StaticMethod("midpoint", Midpoint).
		StaticProperty("precision", Precision, SetPrecision)
	m.Type("Op").Enum(map[string]any{"ADD": OpAdd, "SUB": OpSub, "MUL": OpMul})
	m.Type("Calculator").StaticMethod("apply", Apply)
	m.Type("Clock").StaticMethod("addDays", AddDays)
	m.Type("Geometry.Circle").Constructor(NewCircle)
	m.Type("Relay").Constructor(NewRelay).StaticMethod("countdown", Countdown)
}

// Adder adds a fixed base to its argument.
type Adder struct {
	Base float64
}

func NewAdder(base float64) *Adder {
	return &Adder{Base: base}
}

func (a *Adder) Add(n float64) float64 {
	return a.Base + n
}

// Self returns the receiver, so clients can observe identity.
func (a *Adder) Self() *Adder {
	return a
}

func (a *Adder) Clone() *Adder {
	return &Adder{Base: a.Base}
}

func (a *Adder) Divide(n float64) (float64, error) {
	if n == 0 {
		return 0, errors.New("division by zero")
	}
	return a.Base / n, nil
}

func Square(n float64) float64 {
	return n * n
}

// Point is a value type; it crosses the boundary by copy.
type Point struct {
	X float64
	Y float64
}

func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

var (
	precision   = 2
	precisionMu sync.Mutex
)

func Precision() int {
	precisionMu.Lock()
	defer precisionMu.Unlock()
	return precision
}

func SetPrecision(p int) error {
	if p < 0 {
		return fmt.Errorf("precision must be non-negative, got %d", p)
	}
	precisionMu.Lock()
	defer precisionMu.Unlock()
	precision = p
	return nil
}

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
)

func Apply(op Op, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	}
	return 0, fmt.Errorf("unknown op %d", op)
}

func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

type Circle struct {
	Radius float64
}

func NewCircle(radius float64) *Circle {
	return &Circle{Radius: radius}
}

func (c *Circle) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

// Relay reaches back into the kernel from native code.
type Relay struct {
	Calls int
}

func NewRelay() *Relay {
	return &Relay{}
}

// SquareSum squares a and b through the kernel and adds the results.
func (r *Relay) SquareSum(ctx context.Context, a, b float64) (float64, error) {
	sa, err := r.square(ctx, a)
	if err != nil {
		return 0, err
	}
	sb, err := r.square(ctx, b)
	if err != nil {
		return 0, err
	}
	return sa + sb, nil
}

// AddThrough creates an Adder through the kernel and invokes it by
// handle.
func (r *Relay) AddThrough(ctx context.Context, base, n float64) (float64, error) {
	caller, ok := typesys.CallerFrom(ctx)
	if !ok {
		return 0, errNoCaller
	}
	r.Calls++
	created := caller.Call(ctx, wire.Request{API: wire.APICreate, FQN: "calc.Adder", Args: []any{base}})
	if err := created.Err(); err != nil {
		return 0, err
	}
	h, ok := wire.AsRef(created.Result)
	if !ok {
		return 0, fmt.Errorf("create returned %v", created.Result)
	}
	res := caller.Call(ctx, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "add", Args: []any{n}})
	if err := res.Err(); err != nil {
		return 0, err
	}
	sum, _ := res.Result.(float64)
	return sum, nil
}

// Countdown calls itself through the kernel until depth reaches zero and
// returns the number of nested frames.
func Countdown(ctx context.Context, depth int) (int, error) {
	if depth <= 0 {
		return 0, nil
	}
	caller, ok := typesys.CallerFrom(ctx)
	if !ok {
		return 0, errNoCaller
	}
	res := caller.Call(ctx, wire.Request{
		API:    wire.APIStaticInvoke,
		FQN:    "calc.Relay",
		Method: "countdown",
		Args:   []any{float64(depth - 1)},
	})
	if err := res.Err(); err != nil {
		return 0, err
	}
	inner, _ := res.Result.(float64)
	return int(inner) + 1, nil
}

var errNoCaller = errors.New("no kernel caller in context")

func (r *Relay) square(ctx context.Context, n float64) (float64, error) {
	caller, ok := typesys.CallerFrom(ctx)
	if !ok {
		return 0, errNoCaller
	}
	r.Calls++
	res := caller.Call(ctx, wire.Request{
		API:    wire.APIStaticInvoke,
		FQN:    "calc.MathUtils",
		Method: "square",
		Args:   []any{n},
	})
	if err := res.Err(); err != nil {
		return 0, err
	}
	v, ok := res.Result.(float64)
	if !ok {
		return 0, fmt.Errorf("square returned %T", res.Result)
	}
	return v, nil
}
