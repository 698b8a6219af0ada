package signaling

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lumenrelay/sfu-core/internal/metrics"
)

var errPanicked = errors.New("internal error")

// Handler resolves one inbound frame into a response value to serialize
// back to the same connection. A nil response (with nil error) means the
// frame produced no reply — not currently used by any recognized request
// type, since every recognized type always answers, but kept for
// malformed-but-tolerable frames.
type Handler func(msgType string, raw []byte) (response any, err error)

// Dispatcher is the per-connection request loop: it owns strict FIFO
// processing of frames on its Conn, so requests and their side-effecting
// notifications on this connection are never reordered relative to each
// other, while other connections proceed independently.
type Dispatcher struct {
	conn    *Conn
	handler Handler
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewDispatcher(conn *Conn, handler Handler, limiter *rate.Limiter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{conn: conn, handler: handler, limiter: limiter, logger: logger}
}

// Run drives the connection's read pump, processing one frame at a time
// to completion (including any notifications the handler emits as a side
// effect) before reading the next. It returns once the connection closes.
func (d *Dispatcher) Run(onDisconnect func()) {
	d.conn.ReadPump(d.handleFrame, onDisconnect)
}

// handleFrame processes exactly one inbound frame to completion before the
// Conn's read pump reads the next one. A panic inside the handler (and
// anything it calls synchronously, including worker calls) is recovered
// here so one client's bad request can never take down another connection's
// goroutine, let alone the process.
func (d *Dispatcher) handleFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Malformed JSON is not fatal: respond with an error frame and
		// keep the connection open.
		d.conn.Send(ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	if d.limiter != nil && !d.limiter.Allow() {
		d.conn.Send(ErrorResponse{ReqID: env.ReqID, Error: "rate limit exceeded"})
		return
	}

	resp, err := d.dispatch(env, raw)
	if err != nil {
		d.conn.Send(ErrorResponse{ReqID: env.ReqID, Error: err.Error()})
		return
	}
	if resp != nil {
		d.conn.Send(resp)
	}
}

func (d *Dispatcher) dispatch(env Envelope, raw []byte) (resp any, err error) {
	start := time.Now()
	defer func() {
		metrics.RequestLatencyMs.WithLabelValues(env.Type).Observe(float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			d.logger.Error("recovered panic in request handler", zap.String("type", env.Type), zap.Any("panic", r))
			err = errPanicked
		}
	}()
	return d.handler(env.Type, raw)
}
