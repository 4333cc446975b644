package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"spacesim/internal/engine"
	"spacesim/internal/protocol"
)

var ErrDisconnected = errors.New("agent host disconnected")

type result struct {
	resp engine.Response
	err  error
}

// RemoteAgent is an engine.Agent whose decisions come from a host process
// over a websocket. Every step carries a sequence number; answers to steps
// that already timed out are discarded.
type RemoteAgent struct {
	conn *Conn
	ship string
	log  zerolog.Logger
	seq  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan result
	logs    []string
}

// NewRemoteAgent binds conn to a ship. Call Serve to start reading.
func NewRemoteAgent(conn *Conn, ship string, log zerolog.Logger) *RemoteAgent {
	return &RemoteAgent{
		conn:    conn,
		ship:    ship,
		log:     log.With().Str("ship", ship).Logger(),
		pending: make(map[uint64]chan result),
	}
}

// Hello greets the host with its assignment
func (r *RemoteAgent) Hello(match, team string) error {
	raw, err := protocol.Encode(protocol.MsgHello, protocol.HelloMsg{Match: match, Ship: r.ship, Team: team})
	if err != nil {
		return err
	}
	if !r.conn.Send(raw) {
		return ErrDisconnected
	}
	return nil
}

// Serve runs the connection pumps and blocks until the host disconnects
func (r *RemoteAgent) Serve() {
	go r.conn.WritePump()
	r.conn.ReadPump(r.handle)
}

func (r *RemoteAgent) handle(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		r.log.Debug().Err(err).Msg("bad frame")
		return
	}
	switch env.T {
	case protocol.MsgDecision:
		var msg protocol.DecisionMsg
		if err := env.Payload(&msg); err != nil {
			r.log.Debug().Err(err).Msg("bad decision")
			return
		}
		r.deliver(msg.Seq, result{resp: msg.Response})
	case protocol.MsgError:
		var msg protocol.ErrorMsg
		if err := env.Payload(&msg); err != nil {
			return
		}
		if msg.Seq == 0 {
			r.log.Warn().Str("error", msg.Msg).Msg("agent host error")
			return
		}
		r.deliver(msg.Seq, result{err: fmt.Errorf("agent host: %s", msg.Msg)})
	case protocol.MsgLog:
		var msg protocol.LogMsg
		if err := env.Payload(&msg); err != nil {
			return
		}
		r.mu.Lock()
		r.logs = append(r.logs, msg.Lines...)
		r.mu.Unlock()
	}
}

func (r *RemoteAgent) deliver(seq uint64, res result) {
	r.mu.Lock()
	ch, ok := r.pending[seq]
	delete(r.pending, seq)
	r.mu.Unlock()
	if !ok {
		r.log.Debug().Uint64("seq", seq).Msg("stale answer")
		return
	}
	ch <- res
}

// Decide sends the context to the host and waits for its answer until ctx
// is done. Out-of-band log lines received since the last decision are
// prepended to the response logs.
func (r *RemoteAgent) Decide(ctx context.Context, in engine.AgentContext) (engine.Response, error) {
	seq := r.seq.Add(1)
	ch := make(chan result, 1)
	r.mu.Lock()
	r.pending[seq] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, seq)
		r.mu.Unlock()
	}()

	raw, err := protocol.Encode(protocol.MsgStep, protocol.StepMsg{Seq: seq, Context: in})
	if err != nil {
		return engine.Response{}, err
	}
	if !r.conn.Send(raw) {
		return engine.Response{}, ErrDisconnected
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return engine.Response{}, res.err
		}
		r.mu.Lock()
		if len(r.logs) > 0 {
			res.resp.Logs = append(r.logs, res.resp.Logs...)
			r.logs = nil
		}
		r.mu.Unlock()
		return res.resp, nil
	case <-r.conn.Done():
		return engine.Response{}, ErrDisconnected
	case <-ctx.Done():
		return engine.Response{}, ctx.Err()
	}
}

// End tells the host the match is over
func (r *RemoteAgent) End(msg protocol.EndMsg) {
	raw, err := protocol.Encode(protocol.MsgEnd, msg)
	if err != nil {
		return
	}
	r.conn.Send(raw)
}

// Close disconnects the host
func (r *RemoteAgent) Close() error {
	return r.conn.Close()
}

// Done is closed once the host is gone
func (r *RemoteAgent) Done() <-chan struct{} {
	return r.conn.Done()
}
