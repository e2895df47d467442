package runtime

import (
	"context"
	stderrors "errors"
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/jsii-kernel/engine"
	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/wire"
)

// Server answers requests read from a framed channel, one at a time.
type Server struct {
	kernel  *engine.Kernel
	log     *zap.Logger
	version string
}

func NewServer(k *engine.Kernel, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{kernel: k, log: log, version: "jsii-kernel@" + Version}
}

// Serve writes the handshake, then reads requests and writes one response
// each until the channel reaches EOF or ctx is cancelled. Malformed
// messages get a ProtocolError response; a broken channel ends Serve with
// its error.
func (s *Server) Serve(ctx context.Context, f wire.Framer) error {
	if err := f.WriteMessage(wire.Hello(s.version)); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := f.ReadMessage()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				s.log.Debug("channel closed")
				return nil
			}
			if !stderrors.Is(err, errors.ErrProtocol) {
				return err
			}
			s.log.Warn("malformed message", zap.Error(err))
			if err := f.WriteMessage(wire.Failure(err).Map()); err != nil {
				return err
			}
			continue
		}

		var resp wire.Response
		req, err := wire.ParseRequest(msg)
		if err != nil {
			resp = wire.Failure(err)
		} else {
			resp = s.kernel.Handle(ctx, req)
		}
		if err := s.reply(f, resp); err != nil {
			return err
		}
	}
}

// reply writes resp. A response the framer cannot represent is replaced
// by a fault so the client still gets an answer.
func (s *Server) reply(f wire.Framer, resp wire.Response) error {
	err := f.WriteMessage(resp.Map())
	if err == nil || !stderrors.Is(err, errors.ErrUnsupported) {
		return err
	}
	s.log.Warn("unrepresentable response", zap.Error(err))
	return f.WriteMessage(wire.Failure(err).Map())
}
