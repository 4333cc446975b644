package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	db := openTest(t)
	v, err := db.GetSetting("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetSetting("k", "1"))
	require.NoError(t, db.SetSetting("k", "2"))
	v, err = db.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestOperators(t *testing.T) {
	db := openTest(t)
	op, err := db.GetOperator("ann")
	require.NoError(t, err)
	assert.Nil(t, op)

	id, err := db.CreateOperator("ann", "hash")
	require.NoError(t, err)
	assert.Positive(t, id)
	_, err = db.CreateOperator("ann", "other")
	assert.Error(t, err, "usernames are unique")

	exists, err := db.OperatorExists("ann")
	require.NoError(t, err)
	assert.True(t, exists)

	op, err = db.GetOperator("ann")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, "hash", op.PassHash)
}

func TestMatchLifecycle(t *testing.T) {
	db := openTest(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.RecordMatch("m1", "duel", start))
	require.NoError(t, db.RecordMatch("m2", "skirmish", start.Add(time.Minute)))

	m, err := db.GetMatch("m1")
	require.NoError(t, err)
	assert.Equal(t, "duel", m.Scenario)
	assert.False(t, m.Finished())
	assert.True(t, m.StartedAt.Equal(start))

	require.NoError(t, db.FinishMatch("m1", 420, []string{"red"}, start.Add(30*time.Second)))
	m, err = db.GetMatch("m1")
	require.NoError(t, err)
	assert.True(t, m.Finished())
	assert.Equal(t, int64(420), m.Ticks)
	assert.Equal(t, []string{"red"}, m.Winners())

	_, err = db.GetMatch("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.FinishMatch("nope", 1, nil, start), ErrNotFound)

	list, err := db.ListMatches(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m2", list[0].ID)
	assert.Nil(t, list[0].Winners())
}

func TestSnapshots(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.RecordMatch("m1", "", time.Now()))

	_, _, err := db.LoadSnapshot("m1", -1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SaveSnapshot("m1", 0, []byte("a")))
	require.NoError(t, db.SaveSnapshot("m1", 10, []byte("b")))
	require.NoError(t, db.SaveSnapshot("m1", 10, []byte("c")))

	tick, data, err := db.LoadSnapshot("m1", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), tick)
	assert.Equal(t, []byte("c"), data)

	tick, data, err = db.LoadSnapshot("m1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tick)
	assert.Equal(t, []byte("a"), data)

	ticks, err := db.SnapshotTicks("m1")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 10}, ticks)

	assert.Error(t, db.SaveSnapshot("unknown", 0, []byte("x")), "foreign key")
}

func TestArchiverFlushesOnStop(t *testing.T) {
	db := openTest(t)
	require.NoError(t, db.RecordMatch("m1", "", time.Now()))

	a := NewArchiver(db, zerolog.Nop())
	for i := 0; i < 120; i++ {
		kind := "remove"
		if i%40 == 0 {
			kind = "explosion"
		}
		a.Track(EventRow{MatchID: "m1", Tick: int64(i), Kind: kind, ShipID: "s1", Data: `{"n":1}`})
	}
	a.Stop()
	a.Stop()
	a.Track(EventRow{MatchID: "m1", Tick: 999, Kind: "late"})

	all, err := db.Events("m1", "")
	require.NoError(t, err)
	assert.Len(t, all, 120)
	assert.Equal(t, int64(0), all[0].Tick)

	explosions, err := db.Events("m1", "explosion")
	require.NoError(t, err)
	assert.Len(t, explosions, 3)
	assert.Equal(t, `{"n":1}`, explosions[1].Data)
}
