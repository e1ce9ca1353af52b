package coresim

import (
	"path/filepath"
	"testing"

	"github.com/iti/evt/vrtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceManager_Inactive(t *testing.T) {
	tm := CreateTraceManager("off", false)
	tm.AddName(1, "core-1", "node")
	tm.AddTransition(vrtime.SecondsToTime(0.0), Transition{TaskID: 1, At: 0, From: New, To: Requesting})
	assert.Empty(t, tm.NameByID)
	assert.Empty(t, tm.Traces)

	written, err := tm.WriteToFile(filepath.Join(t.TempDir(), "trace.yaml"), false)
	require.NoError(t, err)
	assert.False(t, written)

	var missing *TraceManager
	assert.False(t, missing.Active())
}

func TestTraceManager_DuplicateNamePanics(t *testing.T) {
	tm := CreateTraceManager("on", true)
	tm.AddName(1, "core-1", "node")
	assert.Panics(t, func() { tm.AddName(1, "again", "node") })
}

func TestTraceManager_WriteToFile(t *testing.T) {
	tm := CreateTraceManager("on", true)
	tm.AddName(0, "core-0", "node")
	tm.AddTransition(vrtime.SecondsToTime(0.0), Transition{TaskID: 2, At: 3, From: Approved, To: Sending})
	tm.AddTransition(vrtime.SecondsToTime(0.0), Transition{TaskID: 1, At: 1, From: New, To: Requesting})
	tm.AddTransition(vrtime.SecondsToTime(0.0), Transition{TaskID: 2, At: 3, From: Sending, To: Teardown})

	for _, globalOrder := range []bool{false, true} {
		for _, name := range []string{"trace.yaml", "trace.json"} {
			filename := filepath.Join(t.TempDir(), name)
			written, err := tm.WriteToFile(filename, globalOrder)
			require.NoError(t, err)
			require.True(t, written)

			read := TraceManager{}
			require.NoError(t, readDesc(filename, isYAML(filename), []byte{}, &read))
			assert.Equal(t, "on", read.ExpName)
			assert.Equal(t, "core-0", read.NameByID[0].Name)

			if !globalOrder {
				assert.Len(t, read.Traces[1], 1)
				assert.Len(t, read.Traces[2], 2)
				continue
			}
			merged := read.Traces[0]
			require.Len(t, merged, 3)
			assert.Equal(t, 1, merged[0].TaskID)
			assert.Equal(t, "Sending", merged[1].To)
			assert.Equal(t, "Teardown", merged[2].To)
		}
	}
}
