package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"spacesim/internal/engine"
)

// Server -> agent host message types
const (
	MsgHello = "hello"
	MsgStep  = "step"
	MsgEnd   = "end"
)

// Agent host -> server message types
const (
	MsgDecision = "decision"
	MsgLog      = "log"
)

// Server -> spectator message types
const (
	MsgState = "state"
	MsgEvent = "event"
)

// MsgError flows both ways
const MsgError = "error"

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; the payload is decoded lazily
type InEnvelope struct {
	T string             `json:"t"`
	D msgpack.RawMessage `json:"d,omitempty"`
}

// HelloMsg tells a host which ship it flies
type HelloMsg struct {
	Match string `json:"match"`
	Ship  string `json:"ship"`
	Team  string `json:"team"`
}

// StepMsg asks a host for a decision. Seq pairs it with the answer.
type StepMsg struct {
	Seq     uint64              `json:"seq"`
	Context engine.AgentContext `json:"ctx"`
}

// DecisionMsg answers the step with the same Seq
type DecisionMsg struct {
	Seq      uint64          `json:"seq"`
	Response engine.Response `json:"resp"`
}

// LogMsg carries out-of-band host log lines
type LogMsg struct {
	Lines []string `json:"lines"`
}

// ErrorMsg reports an error to the other side. A host sets Seq when it
// failed to answer that step.
type ErrorMsg struct {
	Seq uint64 `json:"seq,omitempty"`
	Msg string `json:"msg"`
}

// EndMsg tells hosts and spectators the match is over
type EndMsg struct {
	Tick    int64    `json:"tick"`
	Winners []string `json:"winners,omitempty"`
}

// Marshal encodes v with msgpack, keyed by the json tags
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack into v. Untyped numbers decode loosely to
// int64, uint64 or float64.
func Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

// Encode builds a typed envelope
func Encode(t string, data any) ([]byte, error) {
	b, err := Marshal(Envelope{T: t, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return b, nil
}

// Decode reads the envelope of an incoming message
func Decode(raw []byte) (InEnvelope, error) {
	var env InEnvelope
	if err := Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.T == "" {
		return env, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// Payload decodes the envelope's data into v
func (e InEnvelope) Payload(v any) error {
	if len(e.D) == 0 {
		return fmt.Errorf("%s: empty payload", e.T)
	}
	if err := Unmarshal(e.D, v); err != nil {
		return fmt.Errorf("%s payload: %w", e.T, err)
	}
	return nil
}
