package coresim

import (
	"sort"
	"strconv"
	"sync"

	"github.com/iti/evt/vrtime"
)

// TraceInst is one recorded change of state of a task
type TraceInst struct {
	TraceTime string `json:"tracetime" yaml:"tracetime"`
	Cycle     int    `json:"cycle" yaml:"cycle"`
	TaskID    int    `json:"taskid" yaml:"taskid"`
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
}

// NameType is a an entry in a dictionary created for a trace
// that maps node numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers the state changes of every task of a simulation run
type TraceManager struct {
	mu sync.Mutex

	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each node number
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, indexed by task id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if !tm.Active() {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, present := tm.NameByID[id]
	if present {
		panic("duplicated id in AddName")
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
}

// AddTransition records a task's change of state at the virtual time vrt
func (tm *TraceManager) AddTransition(vrt vrtime.Time, tr Transition) {
	if !tm.Active() {
		return
	}
	trace := TraceInst{TraceTime: strconv.FormatFloat(vrt.Seconds(), 'f', -1, 64),
		Cycle: tr.At, TaskID: tr.TaskID, From: tr.From.String(), To: tr.To.String()}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.Traces[tr.TaskID] = append(tm.Traces[tr.TaskID], trace)
}

// TaskTrace returns the recorded changes of one task, in the order they happened
func (tm *TraceManager) TaskTrace(taskID int) []TraceInst {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	rtn := make([]TraceInst, len(tm.Traces[taskID]))
	copy(rtn, tm.Traces[taskID])
	return rtn
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// With globalOrder set every record is merged into one list ordered by cycle.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) (bool, error) {
	if !tm.Active() {
		return false, nil
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()

	ntm := TraceManager{InUse: tm.InUse, ExpName: tm.ExpName}
	ntm.NameByID = make(map[int]NameType)
	for key, value := range tm.NameByID {
		ntm.NameByID[key] = value
	}
	ntm.Traces = make(map[int][]TraceInst)

	if !globalOrder {
		for key, valueList := range tm.Traces {
			ntm.Traces[key] = valueList
		}
	} else {
		merged := make([]TraceInst, 0)
		for _, valueList := range tm.Traces {
			merged = append(merged, valueList...)
		}
		// stable on task id so that same-cycle changes of one task keep their order
		sort.SliceStable(merged, func(i, j int) bool {
			if merged[i].Cycle != merged[j].Cycle {
				return merged[i].Cycle < merged[j].Cycle
			}
			return merged[i].TaskID < merged[j].TaskID
		})
		ntm.Traces[0] = merged
	}

	if err := writeDesc(filename, &ntm); err != nil {
		return false, err
	}
	return true, nil
}
