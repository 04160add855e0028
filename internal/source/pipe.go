package source

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ukydev/aero-console/internal/models"
)

var errPipeClosed = errors.New("pipe closed")

// pipeConn is an in-process stream.Conn fed by a producer. Frames pushed by
// the producer are read by the stream manager; command envelopes written by
// the manager are handed to onWrite.
type pipeConn struct {
	frames  chan []byte
	done    chan struct{}
	onWrite func(models.CommandEnvelope)
	onClose func()

	mu     sync.Mutex
	err    error
	closed bool
}

func newPipe(onWrite func(models.CommandEnvelope), onClose func()) *pipeConn {
	return &pipeConn{
		frames:  make(chan []byte, 64),
		done:    make(chan struct{}),
		onWrite: onWrite,
		onClose: onClose,
	}
}

// push queues a frame. It reports false once the pipe has ended.
func (p *pipeConn) push(data []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.frames <- data:
		return true
	case <-p.done:
		return false
	}
}

// pushEnvelope marshals and queues env.
func (p *pipeConn) pushEnvelope(env any) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return true
	}
	return p.push(data)
}

// fail ends the pipe from the remote side. A nil err ends it with a normal
// closure.
func (p *pipeConn) fail(err error) {
	p.end(err, false)
}

func (p *pipeConn) end(err error, local bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.err = err
	close(p.done)
	p.mu.Unlock()
	if local && p.onClose != nil {
		p.onClose()
	}
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-p.frames:
		return websocket.TextMessage, data, nil
	case <-p.done:
	}
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err == nil {
		err = &websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "stream ended"}
	}
	return 0, nil, err
}

func (p *pipeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-p.done:
		return errPipeClosed
	default:
	}
	var env models.CommandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type == models.EnvelopeCommand && p.onWrite != nil {
		p.onWrite(env)
	}
	return nil
}

func (p *pipeConn) WriteControl(int, []byte, time.Time) error { return nil }

func (p *pipeConn) Close() error {
	p.end(nil, true)
	return nil
}
