package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"spacesim/internal/engine"
	"spacesim/internal/protocol"
)

// Host flies one ship of a remote match with a local agent
type Host struct {
	Agent   engine.Agent
	Timeout time.Duration // per decision, zero means none
	Log     zerolog.Logger

	mu    sync.Mutex
	hello protocol.HelloMsg
	end   *protocol.EndMsg
}

// Dial opens an agent connection authenticated with a ship token
func Dial(ctx context.Context, rawURL, token string) (*websocket.Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return ws, err
}

// Run answers steps until the match ends, the server disconnects or ctx
// is done. It returns the end message when the match finished.
func (h *Host) Run(ctx context.Context, ws *websocket.Conn) (*protocol.EndMsg, error) {
	conn := NewConn(ws, ws.RemoteAddr().String(), h.Log)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go conn.WritePump()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-conn.Done():
		}
	}()
	conn.ReadPump(func(raw []byte) { h.handle(ctx, conn, raw) })

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.end != nil {
		return h.end, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrDisconnected
}

// Ship returns the assignment received in the server greeting
func (h *Host) Ship() protocol.HelloMsg {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hello
}

func (h *Host) handle(ctx context.Context, conn *Conn, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		h.Log.Debug().Err(err).Msg("bad frame")
		return
	}
	switch env.T {
	case protocol.MsgHello:
		var msg protocol.HelloMsg
		if err := env.Payload(&msg); err != nil {
			return
		}
		h.mu.Lock()
		h.hello = msg
		h.mu.Unlock()
		h.Log.Info().Str("match", msg.Match).Str("ship", msg.Ship).Msg("assigned")
	case protocol.MsgStep:
		var msg protocol.StepMsg
		if err := env.Payload(&msg); err != nil {
			h.Log.Debug().Err(err).Msg("bad step")
			return
		}
		go h.answer(ctx, conn, msg)
	case protocol.MsgEnd:
		var msg protocol.EndMsg
		if err := env.Payload(&msg); err == nil {
			h.mu.Lock()
			h.end = &msg
			h.mu.Unlock()
		}
		conn.Close()
	case protocol.MsgError:
		var msg protocol.ErrorMsg
		if err := env.Payload(&msg); err == nil {
			h.Log.Warn().Str("error", msg.Msg).Msg("server error")
		}
	}
}

func (h *Host) answer(ctx context.Context, conn *Conn, step protocol.StepMsg) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	resp, err := decideSafely(ctx, h.Agent, step.Context)

	var raw []byte
	if err != nil {
		raw, err = protocol.Encode(protocol.MsgError, protocol.ErrorMsg{Seq: step.Seq, Msg: err.Error()})
	} else {
		raw, err = protocol.Encode(protocol.MsgDecision, protocol.DecisionMsg{Seq: step.Seq, Response: resp})
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("encode answer")
		return
	}
	conn.Send(raw)
}

func decideSafely(ctx context.Context, a engine.Agent, in engine.AgentContext) (resp engine.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()
	return a.Decide(ctx, in)
}
