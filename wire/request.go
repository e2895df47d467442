package wire

import (
	"fmt"

	"github.com/wippyai/jsii-kernel/errors"
)

// API names a request kind.
type API string

const (
	APILoad         API = "load"
	APICreate       API = "create"
	APIInvoke       API = "invoke"
	APIStaticInvoke API = "sinvoke"
	APIGet          API = "get"
	APIStaticGet    API = "sget"
	APISet          API = "set"
	APIStaticSet    API = "sset"
	APIDelete       API = "del"
)

// Request is one decoded kernel request. Args and Value are still wire
// values; the transcoder turns them into native values.
type Request struct {
	Value    any
	API      API
	Name     string
	Locator  string
	FQN      string
	ObjRef   string
	Method   string
	Property string
	Args     []any
	HasValue bool
}

// required lists the fields each api must carry. "args" is optional
// everywhere it appears.
var required = map[API][]string{
	APILoad:         {"name", "locator"},
	APICreate:       {"fqn"},
	APIInvoke:       {"objref", "method"},
	APIStaticInvoke: {"fqn", "method"},
	APIGet:          {"objref", "property"},
	APIStaticGet:    {"fqn", "property"},
	APISet:          {"objref", "property", "value"},
	APIStaticSet:    {"fqn", "property", "value"},
	APIDelete:       {"objref"},
}

// ParseRequest validates a decoded message and extracts its fields.
// Unknown apis and missing or mistyped fields fail with a ProtocolError.
func ParseRequest(m map[string]any) (Request, error) {
	var req Request

	api, ok := m["api"].(string)
	if !ok {
		return req, errors.FieldMissing("request", "api")
	}
	req.API = API(api)

	fields, ok := required[req.API]
	if !ok {
		return req, errors.Protocol("unknown api %q", api)
	}
	for _, f := range fields {
		if _, present := m[f]; !present {
			return req, errors.FieldMissing(api, f)
		}
	}

	var err error
	str := func(key string) string {
		if err != nil {
			return ""
		}
		v, present := m[key]
		if !present {
			return ""
		}
		s, ok := v.(string)
		if !ok {
			err = errors.Protocol("%s: field %q must be a string, got %T", api, key, v)
		}
		return s
	}

	req.Name = str("name")
	req.Locator = str("locator")
	req.FQN = str("fqn")
	req.Method = str("method")
	req.Property = str("property")
	if err != nil {
		return req, err
	}

	if raw, present := m["objref"]; present {
		ref, ok := AsRef(raw)
		if !ok {
			ref, ok = raw.(string)
		}
		if !ok {
			return req, errors.Protocol("%s: objref must be a handle, got %T", api, raw)
		}
		req.ObjRef = ref
	}

	if raw, present := m["args"]; present && raw != nil {
		args, ok := raw.([]any)
		if !ok {
			return req, errors.Protocol("%s: args must be a list, got %T", api, raw)
		}
		req.Args = args
	}

	req.Value, req.HasValue = m["value"]
	return req, nil
}

// Map renders the request as a message, the inverse of ParseRequest.
func (r Request) Map() map[string]any {
	m := map[string]any{"api": string(r.API)}
	set := func(key, v string) {
		if v != "" {
			m[key] = v
		}
	}
	set("name", r.Name)
	set("locator", r.Locator)
	set("fqn", r.FQN)
	set("method", r.Method)
	set("property", r.Property)
	if r.ObjRef != "" {
		m["objref"] = Ref(r.ObjRef)
	}
	if r.Args != nil {
		m["args"] = r.Args
	}
	if r.HasValue {
		m["value"] = r.Value
	}
	return m
}

// String summarizes the request for logs.
func (r Request) String() string {
	switch r.API {
	case APILoad:
		return fmt.Sprintf("load(%s, %s)", r.Name, r.Locator)
	case APICreate:
		return fmt.Sprintf("create(%s)", r.FQN)
	case APIInvoke:
		return fmt.Sprintf("invoke(%s, %s)", r.ObjRef, r.Method)
	case APIStaticInvoke:
		return fmt.Sprintf("sinvoke(%s, %s)", r.FQN, r.Method)
	case APIGet, APISet:
		return fmt.Sprintf("%s(%s, %s)", r.API, r.ObjRef, r.Property)
	case APIStaticGet, APIStaticSet:
		return fmt.Sprintf("%s(%s, %s)", r.API, r.FQN, r.Property)
	case APIDelete:
		return fmt.Sprintf("del(%s)", r.ObjRef)
	}
	return string(r.API)
}
