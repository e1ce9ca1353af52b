package coresim

// task.go holds the state machine of a single transfer across the network.
// A task is created in state New, promoted by an arbiter to Requesting and then
// Approved, and from there drives itself through Sending and Teardown to Complete,
// one call of AdvanceOneCycle per simulated cycle.

import (
	"fmt"
	"strings"
)

// TaskState is the lifecycle state of a Task
type TaskState int

const (
	New TaskState = iota
	Requesting
	Approved
	Denied
	Sending
	Teardown
	Complete
	numTaskStates
)

var stateToStr = map[TaskState]string{
	New:        "New",
	Requesting: "Requesting",
	Approved:   "Approved",
	Denied:     "Denied",
	Sending:    "Sending",
	Teardown:   "Teardown",
	Complete:   "Complete",
}

var strToState = map[string]TaskState{}

func init() {
	for state, str := range stateToStr {
		strToState[strings.ToLower(str)] = state
	}
}

func (ts TaskState) String() string {
	str, present := stateToStr[ts]
	if !present {
		return fmt.Sprintf("TaskState(%d)", int(ts))
	}
	return str
}

// ParseTaskState recovers a TaskState from its name, ignoring case
func ParseTaskState(name string) (TaskState, error) {
	state, present := strToState[strings.ToLower(name)]
	if !present {
		return New, fmt.Errorf("unrecognized task state %q", name)
	}
	return state, nil
}

// AllTaskStates lists every state in lifecycle order
func AllTaskStates() []TaskState {
	states := make([]TaskState, 0, numTaskStates)
	for state := New; state < numTaskStates; state++ {
		states = append(states, state)
	}
	return states
}

// Direction describes where the destination lies relative to the source.
// It is set by the topology and plays no part in the state machine.
type Direction int

const (
	Undetermined Direction = iota
	North
	East
	South
	West
	Local
)

var dirToStr = map[Direction]string{
	Undetermined: "Undetermined",
	North:        "North",
	East:         "East",
	South:        "South",
	West:         "West",
	Local:        "Local",
}

func (dir Direction) String() string {
	str, present := dirToStr[dir]
	if !present {
		return fmt.Sprintf("Direction(%d)", int(dir))
	}
	return str
}

// Transition records one change of state, for tracing
type Transition struct {
	TaskID int
	At     int // simulation cycle the change happened on
	From   TaskState
	To     TaskState
}

// Task is one transfer of flitSize flits from a source node to a destination
type Task struct {
	id            int
	src           *Node // not owned; the node outlives the task
	dstNum        int
	flitSize      int
	creationCycle int
	arch          Architecture

	state     TaskState
	direction Direction
	bitsSent  int

	// cycles spent in each state; they sum to totalCycles
	cycles      [numTaskStates]int
	totalCycles int

	observer func(Transition)
}

// CreateTask is a constructor.  The task starts in state New.
func CreateTask(id int, src *Node, dstNum, flitSize, creationCycle int, arch Architecture) *Task {
	task := new(Task)
	task.id = id
	task.src = src
	task.dstNum = dstNum
	task.flitSize = flitSize
	task.creationCycle = creationCycle
	task.arch = arch
	task.state = New
	task.direction = Undetermined
	return task
}

// AdvanceOneCycle moves the task forward by one simulated cycle.
// An error is returned only for a contract violation (advancing a Denied or
// Complete task, or a connection the source node refuses); in that case
// the task is left exactly as it was.
func (task *Task) AdvanceOneCycle() error {
	switch task.state {
	case New, Requesting:
		// promotion out of these states is the arbiter's business
		task.countCycle()

	case Approved:
		if err := task.src.Establish(task); err != nil {
			return err
		}
		task.setState(Sending)
		task.countCycle()
		if task.sendData() {
			task.setState(Teardown)
		}

	case Denied:
		return violation(InvalidStateAdvance, task, "denials are not possible in this architecture")

	case Sending:
		task.countCycle()
		if task.sendData() {
			task.setState(Teardown)
		}

	case Teardown:
		if err := task.src.Release(task); err != nil {
			return err
		}
		task.countCycle()
		task.setState(Complete)

	case Complete:
		return violation(InvalidStateAdvance, task, "task is already complete")

	default:
		return violation(InvalidStateAdvance, task, "state is not a defined TaskState")
	}
	return nil
}

// Promote is the hook through which an arbiter admits a task, moving it
// from New to Requesting or from Requesting to Approved
func (task *Task) Promote() error {
	switch task.state {
	case New:
		task.setState(Requesting)
	case Requesting:
		task.setState(Approved)
	default:
		return violation(InvalidStatePromotion, task, "only New and Requesting tasks can be promoted")
	}
	return nil
}

// sendData moves one bit, if any is owed, and reports whether the whole
// payload has gone.  bitsSent never passes TotalBits, even for an empty payload.
func (task *Task) sendData() bool {
	if task.BitsToSend() > 0 {
		task.bitsSent += 1
	}
	return task.BitsToSend() <= 0
}

func (task *Task) countCycle() {
	task.cycles[task.state] += 1
	task.totalCycles += 1
}

func (task *Task) setState(to TaskState) {
	from := task.state
	task.state = to
	if task.observer != nil {
		task.observer(Transition{TaskID: task.id, At: task.creationCycle + task.totalCycles, From: from, To: to})
	}
}

// SetObserver registers a function called on every change of state
func (task *Task) SetObserver(observer func(Transition)) {
	task.observer = observer
}

// SetDirection tags the task with the direction of its destination
func (task *Task) SetDirection(dir Direction) {
	task.direction = dir
}

func (task *Task) ID() int {
	return task.id
}

func (task *Task) State() TaskState {
	return task.state
}

func (task *Task) Direction() Direction {
	return task.direction
}

// Source returns the node the task originates from
func (task *Task) Source() *Node {
	return task.src
}

func (task *Task) SourceNum() int {
	return task.src.Number()
}

func (task *Task) DestinationNum() int {
	return task.dstNum
}

// FlitSize returns the number of flits the task carries
func (task *Task) FlitSize() int {
	return task.flitSize
}

func (task *Task) BitsSent() int {
	return task.bitsSent
}

// TotalBits is the size of the payload in bits
func (task *Task) TotalBits() int {
	return task.flitSize * task.arch.BitsPerFlit()
}

// BitsToSend is what remains of the payload
func (task *Task) BitsToSend() int {
	return task.TotalBits() - task.bitsSent
}

func (task *Task) CreationCycle() int {
	return task.creationCycle
}

// FinishCycle is the cycle the task completed on, or the cycle it has reached so far
func (task *Task) FinishCycle() int {
	return task.creationCycle + task.totalCycles
}

// TotalCycles returns the number of cycles the task has been advanced
func (task *Task) TotalCycles() int {
	return task.totalCycles
}

// CyclesIn returns the number of cycles counted against the given state
func (task *Task) CyclesIn(state TaskState) int {
	if state < New || state >= numTaskStates {
		return 0
	}
	return task.cycles[state]
}

func (task *Task) NewCycles() int        { return task.cycles[New] }
func (task *Task) RequestingCycles() int { return task.cycles[Requesting] }
func (task *Task) ApprovedCycles() int   { return task.cycles[Approved] }
func (task *Task) DeniedCycles() int     { return task.cycles[Denied] }
func (task *Task) SendingCycles() int    { return task.cycles[Sending] }
func (task *Task) TeardownCycles() int   { return task.cycles[Teardown] }
func (task *Task) CompleteCycles() int   { return task.cycles[Complete] }

// Done reports whether the task has reached Complete
func (task *Task) Done() bool {
	return task.state == Complete
}

// String summarizes the task.  Only the New, Requesting, Sending and Teardown
// counters are reported.
func (task *Task) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task created at: %d", task.creationCycle)
	fmt.Fprintf(&sb, " Task finished at: %d", task.FinishCycle())
	fmt.Fprintf(&sb, " Task duration Time: %d", task.totalCycles)
	fmt.Fprintf(&sb, " Task direction: %s", task.direction)
	fmt.Fprintf(&sb, " Task source: %d", task.SourceNum())
	fmt.Fprintf(&sb, " Task destination: %d", task.dstNum)
	fmt.Fprintf(&sb, " Flit size: %d", task.flitSize)

	fmt.Fprintf(&sb, "\nTime analysis, new: %d", task.cycles[New])
	fmt.Fprintf(&sb, " requesting: %d", task.cycles[Requesting])
	fmt.Fprintf(&sb, " sending: %d", task.cycles[Sending])
	fmt.Fprintf(&sb, " teardown: %d", task.cycles[Teardown])
	return sb.String()
}
