package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/wippyai/jsii-kernel/errors"
)

// Framer reads and writes whole messages on a byte channel.
//
// ReadMessage returns io.EOF when the channel is exhausted. A message that
// cannot be decoded but leaves the channel usable is reported as a
// ProtocolError; any other error means the channel is broken.
type Framer interface {
	ReadMessage() (map[string]any, error)
	WriteMessage(map[string]any) error
}

// JSONFramer carries one JSON document per line.
type JSONFramer struct {
	r  *bufio.Reader
	w  io.Writer
	mu sync.Mutex
}

// NewJSONFramer creates a line-delimited JSON framer.
func NewJSONFramer(r io.Reader, w io.Writer) *JSONFramer {
	return &JSONFramer{
		r: bufio.NewReader(r),
		w: w,
	}
}

// ReadMessage reads the next non-blank line.
func (f *JSONFramer) ReadMessage() (map[string]any, error) {
	for {
		line, err := f.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}

		var m map[string]any
		if uerr := json.Unmarshal(line, &m); uerr != nil {
			return nil, errors.New(errors.PhaseProtocol, errors.KindProtocol).
				Detail("malformed message").
				Cause(uerr).
				Build()
		}
		if m == nil {
			return nil, errors.Protocol("message must be an object")
		}
		return m, nil
	}
}

// WriteMessage writes m followed by a newline.
func (f *JSONFramer) WriteMessage(m map[string]any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("marshal message").
			Cause(err).
			Build()
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	_, err = f.w.Write(data)
	return err
}
