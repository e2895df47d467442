package wire

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/jsii-kernel/errors"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// CBORFramer carries messages as a stream of CBOR data items. Decoded
// numbers are normalized to float64 so both framers yield the same trees.
type CBORFramer struct {
	dec *cbor.Decoder
	enc *cbor.Encoder
	mu  sync.Mutex
}

// NewCBORFramer creates a CBOR framer.
func NewCBORFramer(r io.Reader, w io.Writer) *CBORFramer {
	return &CBORFramer{
		dec: cborDecMode.NewDecoder(r),
		enc: cborEncMode.NewEncoder(w),
	}
}

// ReadMessage decodes the next item. A CBOR stream cannot resynchronize
// after a syntax error, so decode failures are returned as channel errors.
func (f *CBORFramer) ReadMessage() (map[string]any, error) {
	var raw any
	if err := f.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: decode cbor: %w", err)
	}

	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, errors.Protocol("message must be a map, got %T", raw)
	}
	return m, nil
}

// WriteMessage encodes m as one data item.
func (f *CBORFramer) WriteMessage(m map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(m)
}

func normalize(v any) any {
	switch x := v.(type) {
	case uint64:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	}
	return v
}
