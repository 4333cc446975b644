package protocol

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacesim/internal/engine"
)

func sampleState() engine.State {
	st := engine.State{
		Ships: []engine.Ship{
			{ID: "a", Team: "red", Position: engine.Position{Pos: engine.Point{X: 1, Y: 2}, Direction: 0.5, Speed: 1}},
			{ID: "b", Team: "blue", Destroyed: true},
		},
		Bullets: []engine.Bullet{
			{ID: "a0", Team: "red", Range: 400, Controller: &engine.Controller{Kind: engine.Homing, ArmedTime: 20}},
		},
		Size:        engine.Size{Width: 1000, Height: 800},
		Teams:       []string{"red", "blue"},
		TimeElapsed: 17,
		Comm:        map[string]*engine.Channel{},
	}
	red := engine.NewChannel("red")
	red.Send(3, "hello")
	red.Send(9, map[string]any{"x": 10.0})
	st.Comm["red"] = red
	st.Comm["blue"] = engine.NewChannel("blue")
	return st
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := NewSnapshot("m1", sampleState())
	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, got.Header.Version)
	assert.Equal(t, "m1", got.Header.Match)
	assert.Equal(t, int64(17), got.Header.Tick)

	st := got.Restore()
	require.Len(t, st.Ships, 2)
	assert.True(t, st.Ships[1].Destroyed)
	require.Len(t, st.Bullets, 1)
	require.NotNil(t, st.Bullets[0].Controller)
	assert.Equal(t, engine.Homing, st.Bullets[0].Controller.Kind)
	assert.Equal(t, 20, st.Bullets[0].Controller.ArmedTime)

	require.Contains(t, st.Comm, "red")
	msgs := st.Comm["red"].ReadSince(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(9), msgs[0].TimeSent)
	assert.Equal(t, 0, st.Comm["blue"].Len())
}

func TestSnapshotVersionMismatch(t *testing.T) {
	snap := NewSnapshot("m1", sampleState())
	snap.Header.Version = 99
	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	_, err = DecodeSnapshot(data)
	assert.ErrorIs(t, err, ErrSnapshotVersion)
}

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps", "final.zst")
	require.NoError(t, WriteSnapshot(path, NewSnapshot("m2", sampleState())))
	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "m2", got.Header.Match)
}

func TestDecodeSnapshotCorrupt(t *testing.T) {
	_, err := DecodeSnapshot([]byte("not zstd"))
	assert.Error(t, err)
}
