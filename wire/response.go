package wire

import (
	stderrors "errors"

	"github.com/wippyai/jsii-kernel/errors"
)

// Fault is the error descriptor of a failed response.
type Fault struct {
	Name    string
	Message string
	Stack   string
}

// Error implements error so a fault read back from the channel can be
// returned as-is.
func (f *Fault) Error() string {
	return f.Name + ": " + f.Message
}

// Response carries either a result wire value or a fault.
type Response struct {
	Result any
	Fault  *Fault
}

// OK wraps a result.
func OK(result any) Response {
	return Response{Result: result}
}

// Failure converts err into a fault response. Kernel errors keep their
// taxonomy name and native stack.
func Failure(err error) Response {
	f := &Fault{Name: "Error", Message: err.Error()}
	var kerr *errors.Error
	if stderrors.As(err, &kerr) {
		f.Name = kerr.Name()
		f.Stack = kerr.Stack
	}
	return Response{Fault: f}
}

// Err returns the fault as an error, or nil on success.
func (r Response) Err() error {
	if r.Fault == nil {
		return nil
	}
	return r.Fault
}

// Map renders the response as a message.
func (r Response) Map() map[string]any {
	if r.Fault == nil {
		return map[string]any{"result": r.Result}
	}
	e := map[string]any{
		"name":    r.Fault.Name,
		"message": r.Fault.Message,
	}
	if r.Fault.Stack != "" {
		e["stack"] = r.Fault.Stack
	}
	return map[string]any{"error": e}
}

// ParseResponse is the inverse of Map.
func ParseResponse(m map[string]any) (Response, error) {
	if raw, ok := m["error"]; ok {
		e, ok := raw.(map[string]any)
		if !ok {
			return Response{}, errors.Protocol("error must be an object, got %T", raw)
		}
		f := &Fault{}
		f.Name, _ = e["name"].(string)
		f.Message, _ = e["message"].(string)
		f.Stack, _ = e["stack"].(string)
		return Response{Fault: f}, nil
	}
	result, ok := m["result"]
	if !ok {
		return Response{}, errors.Protocol("response has neither result nor error")
	}
	return Response{Result: result}, nil
}

// Hello is the handshake message written when a server starts.
func Hello(version string) map[string]any {
	return map[string]any{"hello": version}
}
