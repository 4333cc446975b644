package protocol

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"spacesim/internal/engine"
)

// SnapshotVersion is bumped whenever SnapshotV1 changes incompatibly
const SnapshotVersion = 1

var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// SnapshotHeader identifies a snapshot without decoding the state
type SnapshotHeader struct {
	Version int    `json:"v"`
	Match   string `json:"match,omitempty"`
	Tick    int64  `json:"tick"`
}

// SnapshotV1 is a full engine state including the team channels
type SnapshotV1 struct {
	Header SnapshotHeader              `json:"header"`
	State  engine.State                `json:"state"`
	Comm   map[string][]engine.Message `json:"comm,omitempty"`
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// NewSnapshot captures a state
func NewSnapshot(match string, st engine.State) SnapshotV1 {
	snap := SnapshotV1{
		Header: SnapshotHeader{Version: SnapshotVersion, Match: match, Tick: st.TimeElapsed},
		State:  st,
	}
	if len(st.Comm) > 0 {
		snap.Comm = make(map[string][]engine.Message, len(st.Comm))
		for team, ch := range st.Comm {
			snap.Comm[team] = ch.History()
		}
	}
	return snap
}

// Restore rebuilds the engine state, channels included
func (s SnapshotV1) Restore() engine.State {
	st := s.State.Clone()
	if len(s.Comm) > 0 {
		st.Comm = make(map[string]*engine.Channel, len(s.Comm))
		for team, history := range s.Comm {
			st.Comm[team] = engine.RestoreChannel(team, history)
		}
	}
	return st
}

// EncodeSnapshot compresses the msgpack encoding of a snapshot
func EncodeSnapshot(snap SnapshotV1) ([]byte, error) {
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	raw, err := Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// DecodeSnapshot reverses EncodeSnapshot
func DecodeSnapshot(data []byte) (SnapshotV1, error) {
	var snap SnapshotV1
	_, dec, err := codec()
	if err != nil {
		return snap, fmt.Errorf("zstd: %w", err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return snap, fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Header.Version != SnapshotVersion {
		return snap, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Header.Version)
	}
	return snap, nil
}

// WriteSnapshot stores an encoded snapshot on disk
func WriteSnapshot(path string, snap SnapshotV1) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot
func ReadSnapshot(path string) (SnapshotV1, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	return DecodeSnapshot(data)
}
