package coresim

// flow.go holds the workload: traffic flows that inject tasks from a source
// node at random cycles, and one-shot tasks injected at a fixed cycle

import (
	"fmt"
	"sort"

	"github.com/iti/rngstream"
)

// FlowDesc describes a stream of tasks leaving one source node
type FlowDesc struct {
	Name string `json:"name" yaml:"name"`
	Src  int    `json:"src" yaml:"src"`

	// destinations are drawn uniformly from this list
	Dsts []int `json:"dsts" yaml:"dsts"`

	// probability that the flow injects a task on any one cycle
	Rate float64 `json:"rate" yaml:"rate"`

	// flit sizes are drawn uniformly from [MinFlits, MaxFlits]
	MinFlits int `json:"minflits" yaml:"minflits"`
	MaxFlits int `json:"maxflits" yaml:"maxflits"`

	// number of tasks to inject, and the cycle the flow starts on
	Count int `json:"count" yaml:"count"`
	Start int `json:"start" yaml:"start"`
}

// TaskDesc describes a single task injected at a given cycle
type TaskDesc struct {
	Src      int `json:"src" yaml:"src"`
	Dst      int `json:"dst" yaml:"dst"`
	FlitSize int `json:"flitsize" yaml:"flitsize"`
	Cycle    int `json:"cycle" yaml:"cycle"`
}

// WorkloadCfg holds every flow and one-shot task of an experiment
type WorkloadCfg struct {
	Name  string     `json:"name" yaml:"name"`
	Flows []FlowDesc `json:"flows" yaml:"flows"`
	Tasks []TaskDesc `json:"tasks" yaml:"tasks"`
}

// CreateWorkloadCfg is a constructor
func CreateWorkloadCfg(name string) *WorkloadCfg {
	return &WorkloadCfg{Name: name, Flows: make([]FlowDesc, 0), Tasks: make([]TaskDesc, 0)}
}

// AddFlow includes a flow description
func (wc *WorkloadCfg) AddFlow(fd FlowDesc) {
	wc.Flows = append(wc.Flows, fd)
}

// AddTask includes a one-shot task description
func (wc *WorkloadCfg) AddTask(src, dst, flitSize, cycle int) {
	wc.Tasks = append(wc.Tasks, TaskDesc{Src: src, Dst: dst, FlitSize: flitSize, Cycle: cycle})
}

// WriteToFile stores the WorkloadCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (wc *WorkloadCfg) WriteToFile(filename string) error {
	return writeDesc(filename, *wc)
}

// ReadWorkloadCfg deserializes a byte slice holding a representation of a WorkloadCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadWorkloadCfg(filename string, useYAML bool, dict []byte) (*WorkloadCfg, error) {
	example := WorkloadCfg{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// Flow is the running form of a FlowDesc
type Flow struct {
	FlowDesc
	injected int
	rngstrm  *rngstream.RngStream
}

// CreateFlow is a constructor.  Each flow draws from its own random stream.
func CreateFlow(fd FlowDesc) (*Flow, error) {
	if len(fd.Dsts) == 0 {
		return nil, fmt.Errorf("flow %s has no destinations", fd.Name)
	}
	if !(fd.Rate > 0.0) || fd.Rate > 1.0 {
		return nil, fmt.Errorf("flow %s: rate %v must lie in (0,1]", fd.Name, fd.Rate)
	}
	if fd.Count < 0 {
		return nil, fmt.Errorf("flow %s: negative task count %d", fd.Name, fd.Count)
	}
	if fd.MinFlits < 1 || fd.MaxFlits < fd.MinFlits {
		return nil, fmt.Errorf("flow %s: flit range [%d,%d] is empty or not positive",
			fd.Name, fd.MinFlits, fd.MaxFlits)
	}
	name := fd.Name
	if len(name) == 0 {
		name = fmt.Sprintf("flow-%d", fd.Src)
	}
	return &Flow{FlowDesc: fd, rngstrm: rngstream.New(name)}, nil
}

// Injected returns the number of tasks the flow has created
func (flow *Flow) Injected() int {
	return flow.injected
}

// Exhausted is true once the flow has injected all its tasks
func (flow *Flow) Exhausted() bool {
	return flow.injected >= flow.Count
}

// inject gives the flow its chance to create a task on the given cycle
func (flow *Flow) inject(cycle int, topo *Topology) (*Task, error) {
	if cycle < flow.Start || flow.Exhausted() {
		return nil, nil
	}
	u01 := flow.rngstrm.RandU01()
	if !(u01 < flow.Rate) {
		return nil, nil
	}
	dst := flow.Dsts[flow.rngstrm.RandInt(0, len(flow.Dsts)-1)]
	flits := flow.rngstrm.RandInt(flow.MinFlits, flow.MaxFlits)

	task, err := topo.CreateTask(flow.Src, dst, flits, cycle)
	if err != nil {
		return nil, err
	}
	flow.injected += 1
	return task, nil
}

// Workload produces the tasks that enter the simulation on each cycle
type Workload struct {
	Name    string
	flows   []*Flow
	pending []TaskDesc // one-shot tasks not yet created, ordered by cycle
}

// CreateWorkload builds the running form of a WorkloadCfg
func CreateWorkload(wc *WorkloadCfg) (*Workload, error) {
	wl := &Workload{Name: wc.Name}
	wl.flows = make([]*Flow, 0, len(wc.Flows))
	for _, fd := range wc.Flows {
		flow, err := CreateFlow(fd)
		if err != nil {
			return nil, err
		}
		wl.flows = append(wl.flows, flow)
	}

	wl.pending = make([]TaskDesc, len(wc.Tasks))
	copy(wl.pending, wc.Tasks)
	sort.SliceStable(wl.pending, func(i, j int) bool { return wl.pending[i].Cycle < wl.pending[j].Cycle })
	return wl, nil
}

// LoadWorkload reads a workload description file and builds the workload from it
func LoadWorkload(workloadFile string) (*Workload, error) {
	wc, err := ReadWorkloadCfg(workloadFile, isYAML(workloadFile), []byte{})
	if err != nil {
		return nil, err
	}
	return CreateWorkload(wc)
}

// Flows returns the running flows
func (wl *Workload) Flows() []*Flow {
	return wl.flows
}

// Generate returns the tasks created on the given cycle
func (wl *Workload) Generate(cycle int, topo *Topology) ([]*Task, error) {
	tasks := make([]*Task, 0)

	for len(wl.pending) > 0 && wl.pending[0].Cycle <= cycle {
		td := wl.pending[0]
		wl.pending = wl.pending[1:]

		// a task naming a cycle already gone by is created now
		task, err := topo.CreateTask(td.Src, td.Dst, td.FlitSize, cycle)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	for _, flow := range wl.flows {
		task, err := flow.inject(cycle, topo)
		if err != nil {
			return nil, err
		}
		if task != nil {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// Exhausted is true when no further task will ever be generated
func (wl *Workload) Exhausted() bool {
	if len(wl.pending) > 0 {
		return false
	}
	for _, flow := range wl.flows {
		if !flow.Exhausted() {
			return false
		}
	}
	return true
}
