package coresim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logWithEntries(entries ...LogEntry) *CoreLog {
	cl := CreateCoreLog("analysis", "basic")
	for _, le := range entries {
		cl.Add(le)
	}
	return cl
}

func entryBetween(src, dst Coordinate, created, finished int) LogEntry {
	return LogEntry{SourceX: src.X, SourceY: src.Y, DestX: dst.X, DestY: dst.Y,
		Created: created, Finished: finished,
		Cycles: map[string]int{"New": 1, "Sending": finished - created - 1}}
}

func TestCumulativeIO(t *testing.T) {
	a, b, c := Coordinate{0, 0}, Coordinate{1, 0}, Coordinate{0, 1}
	cl := logWithEntries(
		entryBetween(a, b, 0, 5),
		entryBetween(a, c, 0, 5),
		entryBetween(b, a, 0, 5),
		entryBetween(c, c, 0, 5),
	)

	counts := CumulativeIO(cl)
	expected := []LocationCount{
		{Coord: a, Count: 3},
		{Coord: c, Count: 3},
		{Coord: b, Count: 2},
	}
	assert.Equal(t, expected, counts)

	text := FormatCumulativeIO(counts, 2)
	assert.Equal(t, cumulativeIODesc+"\n(0,0): 3\t(0,1): 3\n(1,0): 2", text)

	assert.Empty(t, CumulativeIO(logWithEntries()))
}

func TestSummarizeDurations(t *testing.T) {
	a, b := Coordinate{0, 0}, Coordinate{1, 0}
	cl := logWithEntries(
		entryBetween(a, b, 0, 4),
		entryBetween(a, b, 10, 16),
		entryBetween(b, a, 3, 11),
	)

	ds := SummarizeDurations(cl)
	assert.Equal(t, 3, ds.Tasks)
	assert.InDelta(t, 6.0, ds.Mean, 1e-9)
	assert.InDelta(t, 2.0, ds.StdDev, 1e-9)
	assert.Equal(t, 4.0, ds.Min)
	assert.Equal(t, 6.0, ds.Median)
	assert.Equal(t, 8.0, ds.Max)
	assert.InDelta(t, 1.0, ds.MeanCycles["New"], 1e-9)
	assert.InDelta(t, 5.0, ds.MeanCycles["Sending"], 1e-9)
	assert.InDelta(t, 0.0, ds.MeanCycles["Teardown"], 1e-9)
	assert.Contains(t, ds.String(), "Tasks: 3 duration mean: 6.00")

	empty := SummarizeDurations(logWithEntries())
	assert.Equal(t, 0, empty.Tasks)
	assert.Equal(t, 0.0, empty.Mean)
	assert.NotContains(t, empty.String(), "Mean cycles")
}

func TestCreateLogEntry(t *testing.T) {
	topo := newTestTopo(t, 2, 2, 2)
	task, err := topo.CreateTask(0, 3, 1, 4)
	require.NoError(t, err)
	require.NoError(t, task.Promote())
	require.NoError(t, task.Promote())
	for !task.Done() {
		require.NoError(t, task.AdvanceOneCycle())
	}

	le := CreateLogEntry(task, topo)
	assert.Equal(t, Coordinate{0, 0}, le.SourceCoord())
	assert.Equal(t, Coordinate{1, 1}, le.DestCoord())
	assert.Equal(t, 4, le.Created)
	assert.Equal(t, 7, le.Finished)
	assert.Equal(t, 3, le.Duration())
	assert.Equal(t, 2, le.BitsSent)
	assert.Len(t, le.Cycles, 7)
	assert.Equal(t, 2, le.Cycles["Sending"])
	assert.Equal(t, 1, le.Cycles["Teardown"])

	assert.False(t, le.DestUnknown)

	// a destination outside the topology is flagged and logged at the source
	outside, err := topo.CreateTask(3, 99, 1, 0)
	require.NoError(t, err)
	unknown := CreateLogEntry(outside, topo)
	assert.True(t, unknown.DestUnknown)
	assert.Equal(t, Coordinate{1, 1}, unknown.DestCoord())

	// and only its source takes part in the IO ranking
	counts := CumulativeIO(logWithEntries(le, unknown))
	assert.Equal(t, []LocationCount{
		{Coord: Coordinate{1, 1}, Count: 2},
		{Coord: Coordinate{0, 0}, Count: 1},
	}, counts)
}
