package coresim

// node.go holds the cores of the simulated network and the connections
// (tunnels) they open to destinations on behalf of the tasks they originate

import (
	"fmt"
	"sort"
	"sync"
)

// Coordinate places a node on the chip
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Connection is an exclusive channel from a node to a destination, held
// for one task while it transmits
type Connection struct {
	TaskID  int // id of the task the connection serves
	SrcNode int // number of the node owning the connection
	DstNode int // number of the destination node
}

// Node is one core of the network.  It owns the connections it has open;
// tasks only refer to them.
type Node struct {
	number int
	name   string
	coord  Coordinate

	// mu serializes access to conns when tasks are advanced in parallel
	mu    sync.Mutex
	conns map[*Task]*Connection

	established int // number of connections ever opened
	peak        int // largest number open at once
}

// CreateNode is a constructor
func CreateNode(number int, name string, coord Coordinate) *Node {
	if len(name) == 0 {
		name = fmt.Sprintf("core-%d", number)
	}
	node := &Node{number: number, name: name, coord: coord}
	node.conns = make(map[*Task]*Connection)
	return node
}

// Number returns the node's numeric identifier
func (node *Node) Number() int {
	return node.number
}

func (node *Node) Name() string {
	return node.name
}

func (node *Node) Coord() Coordinate {
	return node.coord
}

// Establish opens a connection from the node to the task's destination.
// Connections are keyed by the task itself, not its id, and it is an error
// for the task to already hold one.
func (node *Node) Establish(task *Task) error {
	node.mu.Lock()
	defer node.mu.Unlock()

	_, present := node.conns[task]
	if present {
		return violation(ResourceDisciplineViolation, task,
			fmt.Sprintf("node %d already holds a connection for this task", node.number))
	}
	node.conns[task] = &Connection{TaskID: task.ID(), SrcNode: node.number, DstNode: task.DestinationNum()}
	node.established += 1
	if len(node.conns) > node.peak {
		node.peak = len(node.conns)
	}
	return nil
}

// Release closes the connection held for the task.
// It is an error for there to be none.
func (node *Node) Release(task *Task) error {
	node.mu.Lock()
	defer node.mu.Unlock()

	_, present := node.conns[task]
	if !present {
		return violation(ResourceDisciplineViolation, task,
			fmt.Sprintf("node %d holds no connection for this task", node.number))
	}
	delete(node.conns, task)
	return nil
}

// Connection returns the open connection serving the task, if any
func (node *Node) Connection(task *Task) (Connection, bool) {
	node.mu.Lock()
	defer node.mu.Unlock()

	conn, present := node.conns[task]
	if !present {
		return Connection{}, false
	}
	return *conn, true
}

// Connections returns copies of all open connections, ordered by task id then destination
func (node *Node) Connections() []Connection {
	node.mu.Lock()
	defer node.mu.Unlock()

	rtn := make([]Connection, 0, len(node.conns))
	for _, conn := range node.conns {
		rtn = append(rtn, *conn)
	}
	sort.Slice(rtn, func(i, j int) bool {
		if rtn[i].TaskID != rtn[j].TaskID {
			return rtn[i].TaskID < rtn[j].TaskID
		}
		return rtn[i].DstNode < rtn[j].DstNode
	})
	return rtn
}

// OpenConnections returns the number of connections currently open
func (node *Node) OpenConnections() int {
	node.mu.Lock()
	defer node.mu.Unlock()
	return len(node.conns)
}

// ConnectionStats reports how many connections the node ever opened and
// the most it held at once
func (node *Node) ConnectionStats() (established, peak int) {
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.established, node.peak
}
