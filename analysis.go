package coresim

// analysis.go holds post-run analysis of a CoreLog: which locations on the chip
// take part in the most transfers, and how long the transfers took

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LocationCount is the number of transfers a location took part in
type LocationCount struct {
	Coord Coordinate `json:"coord" yaml:"coord"`
	Count int        `json:"count" yaml:"count"`
}

const cumulativeIODesc = "Cores that are communicating the most (combined IO operations)"

// CumulativeIO counts, for every location, the transfers that had it as source
// or as destination.  A destination outside the topology is not counted.
// The result is ordered by decreasing count, ties by location.
func CumulativeIO(cl *CoreLog) []LocationCount {
	counts := make(map[Coordinate]int)
	for idx := range cl.Entries {
		entry := &cl.Entries[idx]
		if !entry.DestUnknown {
			counts[entry.DestCoord()] += 1
		}
		counts[entry.SourceCoord()] += 1
	}

	rtn := make([]LocationCount, 0, len(counts))
	for coord, count := range counts {
		rtn = append(rtn, LocationCount{Coord: coord, Count: count})
	}
	slices.SortFunc(rtn, func(a, b LocationCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Coord.X != b.Coord.X {
			return a.Coord.X - b.Coord.X
		}
		return a.Coord.Y - b.Coord.Y
	})
	return rtn
}

// FormatCumulativeIO renders the result of CumulativeIO, entriesPerRow to a line
func FormatCumulativeIO(counts []LocationCount, entriesPerRow int) string {
	if entriesPerRow < 1 {
		entriesPerRow = 2
	}
	var sb strings.Builder
	sb.WriteString(cumulativeIODesc)
	for idx, lc := range counts {
		if idx%entriesPerRow == 0 {
			sb.WriteString("\n")
		} else {
			sb.WriteString("\t")
		}
		fmt.Fprintf(&sb, "%s: %d", lc.Coord, lc.Count)
	}
	return sb.String()
}

// DurationSummary describes the spread of task durations in a log
type DurationSummary struct {
	Tasks  int     `json:"tasks" yaml:"tasks"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Median float64 `json:"median" yaml:"median"`
	Max    float64 `json:"max" yaml:"max"`

	// mean cycles spent per state, indexed by state name
	MeanCycles map[string]float64 `json:"meancycles" yaml:"meancycles"`
}

// SummarizeDurations computes a DurationSummary.  An empty log gives a zero summary.
func SummarizeDurations(cl *CoreLog) DurationSummary {
	ds := DurationSummary{Tasks: len(cl.Entries), MeanCycles: make(map[string]float64)}
	if len(cl.Entries) == 0 {
		return ds
	}

	durations := make([]float64, len(cl.Entries))
	for idx := range cl.Entries {
		durations[idx] = float64(cl.Entries[idx].Duration())
	}
	ds.Mean = stat.Mean(durations, nil)
	if len(durations) > 1 {
		ds.StdDev = stat.StdDev(durations, nil)
	}
	ds.Min = floats.Min(durations)
	ds.Max = floats.Max(durations)

	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)
	ds.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	perState := make([]float64, len(cl.Entries))
	for _, state := range AllTaskStates() {
		for idx := range cl.Entries {
			perState[idx] = float64(cl.Entries[idx].Cycles[state.String()])
		}
		ds.MeanCycles[state.String()] = stat.Mean(perState, nil)
	}
	return ds
}

func (ds DurationSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tasks: %d duration mean: %.2f stddev: %.2f min: %.0f median: %.0f max: %.0f",
		ds.Tasks, ds.Mean, ds.StdDev, ds.Min, ds.Median, ds.Max)
	if ds.Tasks > 0 {
		sb.WriteString("\nMean cycles,")
		for _, state := range []TaskState{New, Requesting, Sending, Teardown} {
			fmt.Fprintf(&sb, " %s: %.2f", strings.ToLower(state.String()), ds.MeanCycles[state.String()])
		}
	}
	return sb.String()
}
