package coresim

// corelog.go holds the record of completed tasks that the analysis
// functions work from

// LogEntry is the record of one completed task
type LogEntry struct {
	TaskID  int `json:"taskid" yaml:"taskid"`
	Source  int `json:"source" yaml:"source"`
	Dest    int `json:"dest" yaml:"dest"`
	SourceX int `json:"sourcex" yaml:"sourcex"`
	SourceY int `json:"sourcey" yaml:"sourcey"`
	DestX   int `json:"destx" yaml:"destx"`
	DestY   int `json:"desty" yaml:"desty"`

	// the topology had no node for Dest; DestX and DestY are meaningless
	DestUnknown bool `json:"destunknown,omitempty" yaml:"destunknown,omitempty"`

	Direction string `json:"direction" yaml:"direction"`
	FlitSize  int    `json:"flitsize" yaml:"flitsize"`
	BitsSent  int    `json:"bitssent" yaml:"bitssent"`
	Created   int    `json:"created" yaml:"created"`
	Finished  int    `json:"finished" yaml:"finished"`

	// cycles counted in each state, indexed by state name
	Cycles map[string]int `json:"cycles" yaml:"cycles"`
}

// Duration is the number of cycles the task was live
func (le *LogEntry) Duration() int {
	return le.Finished - le.Created
}

func (le *LogEntry) SourceCoord() Coordinate {
	return Coordinate{X: le.SourceX, Y: le.SourceY}
}

func (le *LogEntry) DestCoord() Coordinate {
	return Coordinate{X: le.DestX, Y: le.DestY}
}

// CoreLog holds the entries of the tasks completed during a run, in order of completion
type CoreLog struct {
	ExpName string     `json:"expname" yaml:"expname"`
	Arch    string     `json:"arch" yaml:"arch"`
	Entries []LogEntry `json:"entries" yaml:"entries"`
}

// CreateCoreLog is a constructor
func CreateCoreLog(expName, arch string) *CoreLog {
	return &CoreLog{ExpName: expName, Arch: arch, Entries: make([]LogEntry, 0)}
}

// CreateLogEntry captures a task.  The topology supplies coordinates; a
// destination it does not know is marked DestUnknown and placed at the source.
func CreateLogEntry(task *Task, topo *Topology) LogEntry {
	le := LogEntry{TaskID: task.ID(), Source: task.SourceNum(), Dest: task.DestinationNum(),
		Direction: task.Direction().String(), FlitSize: task.FlitSize(), BitsSent: task.BitsSent(),
		Created: task.CreationCycle(), Finished: task.FinishCycle()}

	srcCoord := task.Source().Coord()
	dstCoord := srcCoord
	le.DestUnknown = true
	if topo != nil {
		if coord, present := topo.Coord(task.DestinationNum()); present {
			dstCoord = coord
			le.DestUnknown = false
		}
	}
	le.SourceX, le.SourceY = srcCoord.X, srcCoord.Y
	le.DestX, le.DestY = dstCoord.X, dstCoord.Y

	le.Cycles = make(map[string]int)
	for _, state := range AllTaskStates() {
		le.Cycles[state.String()] = task.CyclesIn(state)
	}
	return le
}

// Add appends the entry of a completed task
func (cl *CoreLog) Add(le LogEntry) {
	cl.Entries = append(cl.Entries, le)
}

// Size returns the number of entries
func (cl *CoreLog) Size() int {
	return len(cl.Entries)
}

// Entry returns the i-th entry
func (cl *CoreLog) Entry(i int) *LogEntry {
	return &cl.Entries[i]
}

// WriteToFile stores the CoreLog struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cl *CoreLog) WriteToFile(filename string) error {
	return writeDesc(filename, *cl)
}

// ReadCoreLog deserializes a byte slice holding a representation of a CoreLog struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadCoreLog(filename string, useYAML bool, dict []byte) (*CoreLog, error) {
	example := CoreLog{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// LoadCoreLog reads a log file, choosing the format from its extension
func LoadCoreLog(logFile string) (*CoreLog, error) {
	return ReadCoreLog(logFile, isYAML(logFile), []byte{})
}
