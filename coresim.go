package coresim

// coresim.go has code that builds an experiment from its description files
// and runs it to completion

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// ExpCfg names the description files of an experiment and the settings of its run
type ExpCfg struct {
	Name         string `json:"expname" yaml:"expname"`
	ArchFile     string `json:"archfile" yaml:"archfile"`
	TopoFile     string `json:"topofile" yaml:"topofile"`
	WorkloadFile string `json:"workloadfile" yaml:"workloadfile"`

	// output files; empty means not written
	LogFile   string `json:"logfile" yaml:"logfile"`
	TraceFile string `json:"tracefile" yaml:"tracefile"`

	Arbiter   string `json:"arbiter" yaml:"arbiter"`
	MaxCycles int    `json:"maxcycles" yaml:"maxcycles"`
	Workers   int    `json:"workers" yaml:"workers"`
}

// WriteToFile stores the ExpCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (ec *ExpCfg) WriteToFile(filename string) error {
	return writeDesc(filename, *ec)
}

// ReadExpCfg deserializes a byte slice holding a representation of an ExpCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  File names inside are taken relative to the directory of filename.
func ReadExpCfg(filename string, useYAML bool, dict []byte) (*ExpCfg, error) {
	example := ExpCfg{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	dir := filepath.Dir(filename)
	for _, fileRef := range []*string{&example.ArchFile, &example.TopoFile, &example.WorkloadFile,
		&example.LogFile, &example.TraceFile} {
		if len(*fileRef) > 0 && !filepath.IsAbs(*fileRef) {
			*fileRef = filepath.Join(dir, *fileRef)
		}
	}
	return &example, nil
}

// LoadExpCfg reads an experiment description file, choosing the format from its extension
func LoadExpCfg(expFile string) (*ExpCfg, error) {
	return ReadExpCfg(expFile, isYAML(expFile), []byte{})
}

// Experiment is everything needed to run a simulation
type Experiment struct {
	Cfg       ExpCfg
	Arch      *BasicArch
	Topo      *Topology
	Workload  *Workload
	Scheduler *CycleScheduler
	TraceMgr  *TraceManager
}

// BuildExperiment loads the files an ExpCfg names and assembles the scheduler
func BuildExperiment(ec *ExpCfg) (*Experiment, error) {
	exp := &Experiment{Cfg: *ec}

	var err error
	exp.Arch, err = LoadArch(ec.ArchFile)
	if err != nil {
		return nil, errors.Wrapf(err, "loading architecture %s", ec.ArchFile)
	}
	exp.Topo, err = LoadTopo(ec.TopoFile, exp.Arch)
	if err != nil {
		return nil, errors.Wrapf(err, "loading topology %s", ec.TopoFile)
	}
	if len(ec.WorkloadFile) > 0 {
		exp.Workload, err = LoadWorkload(ec.WorkloadFile)
		if err != nil {
			return nil, errors.Wrapf(err, "loading workload %s", ec.WorkloadFile)
		}
	}
	arbiter, err := ArbiterByName(ec.Arbiter)
	if err != nil {
		return nil, err
	}

	exp.Scheduler = CreateCycleScheduler(exp.Topo, exp.Workload, arbiter)
	if ec.MaxCycles > 0 {
		exp.Scheduler.MaxCycles = ec.MaxCycles
	}
	if ec.Workers > 0 {
		exp.Scheduler.Workers = ec.Workers
	}
	exp.Scheduler.CoreLog().ExpName = ec.Name

	exp.TraceMgr = CreateTraceManager(ec.Name, len(ec.TraceFile) > 0)
	exp.Scheduler.SetTraceManager(exp.TraceMgr)
	return exp, nil
}

// Run runs the experiment and writes whichever output files it names.  The
// log is written even when the run fails, holding the tasks that did complete.
func (exp *Experiment) Run() error {
	runErr := exp.Scheduler.Run()

	if len(exp.Cfg.LogFile) > 0 {
		if err := exp.Scheduler.CoreLog().WriteToFile(exp.Cfg.LogFile); err != nil {
			return errors.Wrapf(err, "writing log %s", exp.Cfg.LogFile)
		}
	}
	if len(exp.Cfg.TraceFile) > 0 {
		if _, err := exp.TraceMgr.WriteToFile(exp.Cfg.TraceFile, true); err != nil {
			return errors.Wrapf(err, "writing trace %s", exp.Cfg.TraceFile)
		}
	}
	return runErr
}

// RunExperiment reads an experiment description file, then builds and runs it
func RunExperiment(expFile string) (*Experiment, error) {
	ec, err := LoadExpCfg(expFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading experiment %s", expFile)
	}
	exp, err := BuildExperiment(ec)
	if err != nil {
		return nil, err
	}
	return exp, exp.Run()
}
