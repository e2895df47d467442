package engine

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/jsii-kernel/wire"
)

// DefaultMaxArgLen is the number of runes kept of a traced string.
const DefaultMaxArgLen = 40

// TraceOptions configures a Trace.
type TraceOptions struct {
	Enabled   bool
	MaxArgLen int
}

// Trace writes one line before and one after every kernel operation. It
// only observes: a disabled or nil Trace changes nothing.
type Trace struct {
	log  *zap.Logger
	opts TraceOptions
}

func NewTrace(log *zap.Logger, opts TraceOptions) *Trace {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxArgLen <= 0 {
		opts.MaxArgLen = DefaultMaxArgLen
	}
	return &Trace{log: log, opts: opts}
}

// Enabled reports whether lines are written.
func (t *Trace) Enabled() bool {
	return t != nil && t.opts.Enabled
}

// Before traces a request about to run at the given nesting depth.
func (t *Trace) Before(depth int, req wire.Request) {
	if !t.Enabled() {
		return
	}
	t.log.Info(indent(depth)+t.describe(req),
		zap.String("api", string(req.API)),
		zap.Int("depth", depth))
}

// After traces the outcome of req.
func (t *Trace) After(depth int, req wire.Request, resp wire.Response) {
	if !t.Enabled() {
		return
	}
	var line string
	if resp.Fault != nil {
		line = "!! " + resp.Fault.Name + ": " + resp.Fault.Message
	} else {
		line = "==> " + t.summarize(resp.Result, 0)
	}
	t.log.Info(indent(depth)+line,
		zap.String("api", string(req.API)),
		zap.Int("depth", depth))
}

func (t *Trace) describe(req wire.Request) string {
	var parts []string
	switch req.API {
	case wire.APILoad:
		parts = []string{req.Name, req.Locator}
	case wire.APICreate:
		parts = []string{req.FQN}
	case wire.APIInvoke:
		parts = []string{req.ObjRef, req.Method}
	case wire.APIStaticInvoke:
		parts = []string{req.FQN, req.Method}
	case wire.APIGet, wire.APISet:
		parts = []string{req.ObjRef, req.Property}
	case wire.APIStaticGet, wire.APIStaticSet:
		parts = []string{req.FQN, req.Property}
	case wire.APIDelete:
		parts = []string{req.ObjRef}
	}
	for _, a := range req.Args {
		parts = append(parts, t.summarize(a, 0))
	}
	if req.HasValue {
		parts = append(parts, t.summarize(req.Value, 0))
	}
	return string(req.API) + "(" + strings.Join(parts, ", ") + ")"
}

// summarize renders v on one line. Strings are cut to MaxArgLen runes and
// containers below the top level are elided.
func (t *Trace) summarize(v any, depth int) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(truncate(x, t.opts.MaxArgLen))
	case []any:
		if depth > 0 {
			return "[…" + strconv.Itoa(len(x)) + "]"
		}
		items := make([]string, len(x))
		for i, e := range x {
			items[i] = t.summarize(e, depth+1)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		if h, ok := wire.AsRef(x); ok {
			return h
		}
		if s, ok := wire.AsDate(x); ok {
			return "date(" + s + ")"
		}
		if s, ok := wire.AsEnum(x); ok {
			return s
		}
		if depth > 0 {
			return "{…}"
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + ": " + t.summarize(x[k], depth+1)
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	return "?"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
