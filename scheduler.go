package coresim

// scheduler.go holds the cycle scheduler that drives every live task one
// cycle at a time, and the arbiters that admit New and Requesting tasks.

// Each cycle is an event on the event manager, at virtual time cycle*CycleSeconds.
// Handling it injects the tasks the workload creates on that cycle, lets the
// arbiter promote tasks, advances every live task exactly once, and retires the
// tasks that completed.  The next cycle is scheduled only while work remains, so
// the event list drains and the run ends when every task is Complete.

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrCycleLimit is returned by Run when tasks are still live at the cycle limit
var ErrCycleLimit = errors.New("cycle limit reached")

var defaultMaxCycles int = 1000000

// Arbiter decides which New and Requesting tasks move on.  It is called once a
// cycle, before the live tasks are advanced, and acts through Task.Promote.
type Arbiter interface {
	Arbitrate(cycle int, live []*Task) error
}

// StepArbiter promotes a New or Requesting task once it has spent a cycle
// in its current state, so every task requests for exactly one cycle
type StepArbiter struct{}

func (StepArbiter) Arbitrate(cycle int, live []*Task) error {
	for _, task := range live {
		state := task.State()
		if (state == New || state == Requesting) && task.CyclesIn(state) > 0 {
			if err := task.Promote(); err != nil {
				return err
			}
		}
	}
	return nil
}

// PortArbiter lets each source node transmit one task at a time.  Tasks move
// from New to Requesting as StepArbiter moves them; a Requesting task is approved
// only when no other task from its node is Approved, Sending or in Teardown,
// oldest task first.
type PortArbiter struct{}

func (PortArbiter) Arbitrate(cycle int, live []*Task) error {
	busy := make(map[int]bool)
	for _, task := range live {
		switch task.State() {
		case Approved, Sending, Teardown:
			busy[task.SourceNum()] = true
		}
	}

	// live is kept in task id order, which is creation order
	for _, task := range live {
		state := task.State()
		if state == New && task.CyclesIn(New) > 0 {
			if err := task.Promote(); err != nil {
				return err
			}
			continue
		}
		if state == Requesting && task.CyclesIn(Requesting) > 0 && !busy[task.SourceNum()] {
			if err := task.Promote(); err != nil {
				return err
			}
			busy[task.SourceNum()] = true
		}
	}
	return nil
}

// ArbiterByName maps the names accepted in experiment descriptions to arbiters.
// "none" gives no arbiter; tasks then only move if already Approved.
func ArbiterByName(name string) (Arbiter, error) {
	switch name {
	case "", "step":
		return StepArbiter{}, nil
	case "port":
		return PortArbiter{}, nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unrecognized arbiter %q", name)
}

// CycleScheduler holds the live tasks of a run and advances them
type CycleScheduler struct {
	topo     *Topology
	workload *Workload // may be nil
	arbiter  Arbiter   // may be nil

	live     []*Task
	retired  []*Task
	cycle    int
	coreLog  *CoreLog
	traceMgr *TraceManager

	// MaxCycles bounds the run; Workers > 1 advances tasks in parallel,
	// partitioned by source node
	MaxCycles    int
	Workers      int
	CycleSeconds float64

	err error
}

// CreateCycleScheduler is a constructor.  Either of workload and arbiter may be nil.
func CreateCycleScheduler(topo *Topology, workload *Workload, arbiter Arbiter) *CycleScheduler {
	cs := new(CycleScheduler)
	cs.topo = topo
	cs.workload = workload
	cs.arbiter = arbiter
	cs.live = make([]*Task, 0)
	cs.retired = make([]*Task, 0)
	cs.MaxCycles = defaultMaxCycles
	cs.Workers = 1
	cs.CycleSeconds = defaultCycleSeconds

	archName := ""
	if ba, ok := topo.Arch().(*BasicArch); ok {
		cs.CycleSeconds = ba.CycleSeconds()
		archName = ba.Name()
	}
	cs.coreLog = CreateCoreLog(topo.Name, archName)
	return cs
}

// SetTraceManager makes the scheduler record every task's changes of state
func (cs *CycleScheduler) SetTraceManager(tm *TraceManager) {
	cs.traceMgr = tm
	for _, node := range cs.topo.Nodes() {
		tm.AddName(node.Number(), node.Name(), "node")
	}
}

// AddTask puts a task among the live ones, to be advanced from the next Step on.
// Its changes of state are traced only if SetTraceManager came first.
func (cs *CycleScheduler) AddTask(task *Task) {
	if cs.traceMgr.Active() {
		tm := cs.traceMgr
		cycleSeconds := cs.CycleSeconds
		task.SetObserver(func(tr Transition) {
			tm.AddTransition(vrtime.SecondsToTime(float64(tr.At)*cycleSeconds), tr)
		})
	}
	cs.live = append(cs.live, task)
}

// Cycle returns the number of the next cycle to be run
func (cs *CycleScheduler) Cycle() int {
	return cs.cycle
}

// Live returns the tasks not yet complete
func (cs *CycleScheduler) Live() []*Task {
	return cs.live
}

// Retired returns the completed tasks, in order of completion
func (cs *CycleScheduler) Retired() []*Task {
	return cs.retired
}

// CoreLog returns the log of completed tasks
func (cs *CycleScheduler) CoreLog() *CoreLog {
	return cs.coreLog
}

// Run drives cycles until no task is live and the workload has nothing more
// to give.  A contract violation stops the run at once and is returned.
func (cs *CycleScheduler) Run() error {
	if cs.MaxCycles < 1 {
		cs.MaxCycles = defaultMaxCycles
	}
	if !(cs.CycleSeconds > 0.0) {
		cs.CycleSeconds = defaultCycleSeconds
	}
	if cs.CycleSeconds < minCycleSeconds {
		return fmt.Errorf("cycle of %g seconds is shorter than one virtual time tick (%g)",
			cs.CycleSeconds, minCycleSeconds)
	}
	logger.WithFields(logrus.Fields{
		"topology":  cs.topo.Name,
		"nodes":     len(cs.topo.Nodes()),
		"maxcycles": cs.MaxCycles,
		"workers":   cs.Workers,
	}).Info("simulation starting")

	evtMgr := evtm.New()
	evtMgr.Schedule(cs, nil, cycleTick, vrtime.SecondsToTime(0.0))

	// the handler stops rescheduling itself, the limit is a backstop
	evtMgr.Run(float64(cs.MaxCycles+2) * cs.CycleSeconds)

	if cs.err != nil {
		logger.WithError(cs.err).WithField("cycle", cs.cycle).Error("simulation aborted")
		return cs.err
	}
	if len(cs.live) > 0 || (cs.workload != nil && !cs.workload.Exhausted()) {
		return errors.Wrapf(ErrCycleLimit, "%d tasks live after %d cycles", len(cs.live), cs.cycle)
	}
	logger.WithFields(logrus.Fields{
		"cycles":    cs.cycle,
		"completed": len(cs.retired),
	}).Info("simulation finished")
	return nil
}

// cycleTick is the event handler for one cycle
func cycleTick(evtMgr *evtm.EventManager, context any, data any) any {
	cs := context.(*CycleScheduler)

	if err := cs.Step(); err != nil {
		cs.err = err
		return nil
	}
	if cs.finished() {
		return nil
	}
	evtMgr.Schedule(cs, nil, cycleTick, vrtime.SecondsToTime(cs.CycleSeconds))
	return nil
}

func (cs *CycleScheduler) finished() bool {
	if cs.cycle >= cs.MaxCycles {
		return true
	}
	return len(cs.live) == 0 && (cs.workload == nil || cs.workload.Exhausted())
}

// Step runs one cycle
func (cs *CycleScheduler) Step() error {
	if cs.workload != nil {
		tasks, err := cs.workload.Generate(cs.cycle, cs.topo)
		if err != nil {
			return errors.WithMessagef(err, "generating tasks for cycle %d", cs.cycle)
		}
		for _, task := range tasks {
			cs.AddTask(task)
		}
	}

	if cs.arbiter != nil {
		if err := cs.arbiter.Arbitrate(cs.cycle, cs.live); err != nil {
			return errors.WithMessagef(err, "arbitrating cycle %d", cs.cycle)
		}
	}

	var err error
	if cs.Workers > 1 {
		err = cs.advanceParallel()
	} else {
		err = advanceAll(cs.live)
	}
	if err != nil {
		return errors.WithMessagef(err, "advancing cycle %d", cs.cycle)
	}

	cs.retire()
	logger.WithFields(logrus.Fields{"cycle": cs.cycle, "live": len(cs.live)}).Debug("cycle advanced")
	cs.cycle += 1
	return nil
}

func advanceAll(tasks []*Task) error {
	for _, task := range tasks {
		if err := task.AdvanceOneCycle(); err != nil {
			return err
		}
	}
	return nil
}

// advanceParallel gives each worker whole source nodes, so that a node's
// connections are only ever touched by one goroutine in a cycle
func (cs *CycleScheduler) advanceParallel() error {
	byNode := make(map[int][]*Task)
	for _, task := range cs.live {
		byNode[task.SourceNum()] = append(byNode[task.SourceNum()], task)
	}
	nodeNums := make([]int, 0, len(byNode))
	for num := range byNode {
		nodeNums = append(nodeNums, num)
	}
	sort.Ints(nodeNums)

	workers := min(cs.Workers, len(nodeNums))
	parts := make([][]*Task, workers)
	for idx, num := range nodeNums {
		parts[idx%workers] = append(parts[idx%workers], byNode[num]...)
	}

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for idx := range parts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = advanceAll(parts[idx])
		}(idx)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// retire moves completed tasks out of the live list and into the log
func (cs *CycleScheduler) retire() {
	stillLive := cs.live[:0]
	for _, task := range cs.live {
		if !task.Done() {
			stillLive = append(stillLive, task)
			continue
		}
		cs.retired = append(cs.retired, task)
		cs.coreLog.Add(CreateLogEntry(task, cs.topo))
		logger.WithFields(logrus.Fields{"task": task.ID(), "cycle": task.FinishCycle()}).Debug("task complete")
	}
	// drop references held past the new length
	for idx := len(stillLive); idx < len(cs.live); idx++ {
		cs.live[idx] = nil
	}
	cs.live = stillLive
}
