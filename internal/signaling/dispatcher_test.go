package signaling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// dispatch is exercised directly (this file lives in package signaling) since
// it never touches d.conn, only d.handler and d.logger.

func TestDispatch_ReturnsHandlerResult(t *testing.T) {
	d := NewDispatcher(nil, func(msgType string, raw []byte) (any, error) {
		return SuccessResponse{Type: msgType, Success: true}, nil
	}, nil, zap.NewNop())

	resp, err := d.dispatch(Envelope{Type: "ping"}, []byte(`{"type":"ping"}`))
	assert.NoError(t, err)
	assert.Equal(t, SuccessResponse{Type: "ping", Success: true}, resp)
}

func TestDispatch_PropagatesHandlerError(t *testing.T) {
	wantErr := errors.New("boom")
	d := NewDispatcher(nil, func(string, []byte) (any, error) {
		return nil, wantErr
	}, nil, zap.NewNop())

	_, err := d.dispatch(Envelope{Type: "joinRoom"}, nil)
	assert.Equal(t, wantErr, err)
}

func TestDispatch_RecoversPanicAndReturnsInternalError(t *testing.T) {
	d := NewDispatcher(nil, func(string, []byte) (any, error) {
		panic("handler exploded")
	}, nil, zap.NewNop())

	resp, err := d.dispatch(Envelope{Type: "produce"}, nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, errPanicked)
}
