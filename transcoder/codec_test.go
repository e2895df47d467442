package transcoder

import (
	"context"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/loader"
	"github.com/wippyai/jsii-kernel/resource"
	"github.com/wippyai/jsii-kernel/testbed/calc"
	"github.com/wippyai/jsii-kernel/typesys"
	"github.com/wippyai/jsii-kernel/wire"
)

func newCodec(t *testing.T) (*Codec, *resource.Table) {
	t.Helper()
	cat := loader.NewCatalog()
	cat.Register(calc.Name, calc.Define)
	reg := linker.NewRegistry(cat)
	if err := reg.Load(context.Background(), "calc", calc.Name); err != nil {
		t.Fatalf("load calc: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	table := resource.NewTable()
	return New(table, linker.NewResolver(reg)), table
}

func TestRoundTrip(t *testing.T) {
	c, table := newCodec(t)

	values := []any{
		nil,
		true,
		3.5,
		"hello",
		[]any{1.0, "two", nil, []any{false}},
		map[string]any{"a": 1.0, "nested": map[string]any{"b": []any{"c"}}},
		wire.Date(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)),
		wire.Enum("calc.Op", "MUL"),
		map[string]any{"when": wire.Date(time.Unix(0, 5).UTC()), "op": wire.Enum("calc.Op", "ADD")},
	}
	for _, v := range values {
		native, err := c.Decode(v)
		if err != nil {
			t.Fatalf("Decode(%v): %v", v, err)
		}
		back, err := c.Encode(native)
		if err != nil {
			t.Fatalf("Encode(%v): %v", native, err)
		}
		if diff := cmp.Diff(v, back); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
	if table.Len() != 0 {
		t.Errorf("handle-free values must not intern, table has %d", table.Len())
	}
}

func TestDecode_Tags(t *testing.T) {
	c, table := newCodec(t)

	adder := calc.NewAdder(1)
	h, err := table.Intern("calc.Adder", adder)
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Decode(wire.Ref(string(h)))
	if err != nil || got != adder {
		t.Errorf("byref = %v, %v", got, err)
	}

	got, err = c.Decode(wire.Enum("calc.Op", "SUB"))
	if err != nil || got != calc.OpSub {
		t.Errorf("enum = %v, %v", got, err)
	}

	got, err = c.Decode(wire.Date(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil || !got.(time.Time).Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, %v", got, err)
	}
}

func TestDecode_Errors(t *testing.T) {
	c, table := newCodec(t)

	_, err := c.Decode([]any{wire.Ref("calc.Adder@nope")})
	if !stderrors.Is(err, errors.ErrUnknownHandle) {
		t.Errorf("unknown handle: %v", err)
	}

	_, err = c.Decode(wire.Enum("calc.Op", "DIV"))
	if !stderrors.Is(err, errors.ErrMemberNotFound) {
		t.Errorf("unknown enum member: %v", err)
	}

	_, err = c.Decode(map[string]any{wire.TokenDate: "yesterday"})
	if !stderrors.Is(err, errors.ErrProtocol) {
		t.Errorf("bad date: %v", err)
	}

	_, err = c.DecodeArgs([]any{1.0, wire.Ref("x@1")})
	var kerr *errors.Error
	if !stderrors.As(err, &kerr) || kerr.Kind != errors.KindUnknownHandle {
		t.Errorf("args: %v", err)
	}
	if table.Len() != 0 {
		t.Error("decoding must never intern")
	}
}

func TestEncode_Objects(t *testing.T) {
	c, table := newCodec(t)

	adder := calc.NewAdder(10)
	first, err := c.Encode(adder)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := wire.AsRef(first)
	if !ok {
		t.Fatalf("adder should encode by reference, got %v", first)
	}
	if got, _ := table.Resolve(resource.Handle(h)); got != adder {
		t.Error("handle should resolve to the same instance")
	}

	again, _ := c.Encode(adder)
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("same instance should reuse its handle:\n%s", diff)
	}

	clone, _ := c.Encode(adder.Clone())
	if cmp.Equal(first, clone) {
		t.Error("equal but distinct instances need distinct handles")
	}

	obj, _ := c.Encode(typesys.NewObject())
	if h, ok := wire.AsRef(obj); !ok || h[:len("Object@")] != "Object@" {
		t.Errorf("object = %v", obj)
	}

	if got, _ := c.Encode((*calc.Adder)(nil)); got != nil {
		t.Errorf("nil instance = %v", got)
	}
}

func TestEncode_Values(t *testing.T) {
	c, _ := newCodec(t)

	type inner struct {
		Tags []string
	}
	type sample struct {
		Count   int
		Ratio   float32
		Name    string `jsii:"label"`
		Skip    string `jsii:"-"`
		Inner   inner
		Ptr     *inner
		Counts  map[string]uint8
		Fixed   [2]int16
		private int
	}

	got, err := c.Encode(sample{
		Count:  3,
		Ratio:  0.5,
		Name:   "x",
		Skip:   "hidden",
		Inner:  inner{Tags: []string{"a"}},
		Counts: map[string]uint8{"k": 7},
		Fixed:  [2]int16{1, -1},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"count":  3.0,
		"ratio":  0.5,
		"label":  "x",
		"inner":  map[string]any{"tags": []any{"a"}},
		"ptr":    nil,
		"counts": map[string]any{"k": 7.0},
		"fixed":  []any{1.0, -1.0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("struct copy mismatch (-want +got):\n%s", diff)
	}

	p, _ := c.Encode(calc.Point{X: 1, Y: 2})
	if diff := cmp.Diff(map[string]any{"x": 1.0, "y": 2.0}, p); diff != "" {
		t.Errorf("point:\n%s", diff)
	}

	for _, v := range []any{[]int(nil), []any(nil), map[string]any(nil), map[string]int(nil), inner{}} {
		got, err := c.Encode(v)
		if err != nil {
			t.Fatalf("Encode(%T): %v", v, err)
		}
		if _, isStruct := v.(inner); isStruct {
			got = got.(map[string]any)["tags"]
		}
		if got != nil {
			t.Errorf("nil container %T = %#v, want null", v, got)
		}
	}
	if diff := cmp.Diff([]any{}, mustEncode(t, c, []string{})); diff != "" {
		t.Errorf("empty slice:\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{}, mustEncode(t, c, map[string]any{})); diff != "" {
		t.Errorf("empty map:\n%s", diff)
	}
}

func mustEncode(t *testing.T, c *Codec, v any) any {
	t.Helper()
	out, err := c.Encode(v)
	if err != nil {
		t.Fatalf("Encode(%T): %v", v, err)
	}
	return out
}

func TestEncode_Unsupported(t *testing.T) {
	c, table := newCodec(t)

	for _, v := range []any{
		make(chan int), func() {}, map[int]string{1: "x"}, complex(1, 2),
		math.Inf(1), math.NaN(), float32(math.Inf(-1)), []any{1.0, math.Inf(1)},
	} {
		_, err := c.Encode(v)
		var kerr *errors.Error
		if !stderrors.As(err, &kerr) || kerr.Kind != errors.KindUnsupported || kerr.Phase != errors.PhaseEncode {
			t.Errorf("Encode(%T) = %v", v, err)
		}
	}

	_, err := c.Encode(calc.Op(42))
	if err == nil {
		t.Error("unregistered enum value should fail")
	}

	known := calc.NewAdder(1)
	if _, err := c.Encode(known); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Encode([]any{known, calc.NewAdder(2), make(chan int)}); err == nil {
		t.Fatal("list with a channel should fail")
	}
	if table.Len() != 1 {
		t.Errorf("failed encode should withdraw only its own handles, table has %d", table.Len())
	}

	type node struct{ Next *node }
	loop := &node{}
	loop.Next = loop
	if _, err := c.Encode(loop); err == nil {
		t.Error("cyclic value should fail")
	}
}
