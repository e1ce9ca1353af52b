package coresim

// file desc-topo.go holds structs, methods, and data structures supporting
// the description of the cores of the network and the construction of the
// Topology that creates tasks on them

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

// NodeDesc describes one core
type NodeDesc struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name" yaml:"name"`
	X      int    `json:"x" yaml:"x"`
	Y      int    `json:"y" yaml:"y"`
}

// TopoCfg holds the descriptions of all cores of a network
type TopoCfg struct {
	Name  string     `json:"name" yaml:"name"`
	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
}

// CreateTopoCfg is a constructor
func CreateTopoCfg(name string) *TopoCfg {
	return &TopoCfg{Name: name, Nodes: make([]NodeDesc, 0)}
}

// AddNode includes a core description, refusing duplicated numbers
func (tc *TopoCfg) AddNode(number int, name string, x, y int) error {
	if slices.ContainsFunc(tc.Nodes, func(nd NodeDesc) bool { return nd.Number == number }) {
		return fmt.Errorf("topology %s already has a node numbered %d", tc.Name, number)
	}
	tc.Nodes = append(tc.Nodes, NodeDesc{Number: number, Name: name, X: x, Y: y})
	return nil
}

// CreateMeshTopoCfg describes a width x height grid of cores, numbered row by row
func CreateMeshTopoCfg(name string, width, height int) *TopoCfg {
	tc := CreateTopoCfg(name)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			number := y*width + x
			tc.Nodes = append(tc.Nodes, NodeDesc{Number: number, Name: fmt.Sprintf("core-%d", number), X: x, Y: y})
		}
	}
	return tc
}

// WriteToFile stores the TopoCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tc *TopoCfg) WriteToFile(filename string) error {
	return writeDesc(filename, *tc)
}

// ReadTopoCfg deserializes a byte slice holding a representation of a TopoCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadTopoCfg(filename string, useYAML bool, dict []byte) (*TopoCfg, error) {
	example := TopoCfg{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// Topology holds the nodes of a simulated network and hands out tasks on them
type Topology struct {
	Name      string
	arch      Architecture
	nodeByNum map[int]*Node
	nodes     []*Node
	nxtTaskID int
}

// CreateTopology builds the nodes a TopoCfg describes
func CreateTopology(tc *TopoCfg, arch Architecture) (*Topology, error) {
	if arch == nil {
		return nil, fmt.Errorf("topology %s needs an architecture", tc.Name)
	}
	topo := &Topology{Name: tc.Name, arch: arch}
	topo.nodeByNum = make(map[int]*Node)
	topo.nodes = make([]*Node, 0, len(tc.Nodes))

	for _, nd := range tc.Nodes {
		_, present := topo.nodeByNum[nd.Number]
		if present {
			return nil, fmt.Errorf("topology %s has duplicated node number %d", tc.Name, nd.Number)
		}
		node := CreateNode(nd.Number, nd.Name, Coordinate{X: nd.X, Y: nd.Y})
		topo.nodeByNum[nd.Number] = node
		topo.nodes = append(topo.nodes, node)
	}
	sort.Slice(topo.nodes, func(i, j int) bool { return topo.nodes[i].Number() < topo.nodes[j].Number() })
	return topo, nil
}

// LoadTopo reads a topology description file and builds the topology from it
func LoadTopo(topoFile string, arch Architecture) (*Topology, error) {
	tc, err := ReadTopoCfg(topoFile, isYAML(topoFile), []byte{})
	if err != nil {
		return nil, err
	}
	return CreateTopology(tc, arch)
}

func (topo *Topology) Arch() Architecture {
	return topo.arch
}

// Node returns the node with the given number
func (topo *Topology) Node(number int) (*Node, bool) {
	node, present := topo.nodeByNum[number]
	return node, present
}

// Nodes returns every node, ordered by number
func (topo *Topology) Nodes() []*Node {
	return topo.nodes
}

// CreateTask builds a task from node srcNum to node dstNum, created at the given
// cycle, and tags it with the direction of the destination
func (topo *Topology) CreateTask(srcNum, dstNum, flitSize, creationCycle int) (*Task, error) {
	src, present := topo.nodeByNum[srcNum]
	if !present {
		return nil, fmt.Errorf("topology %s has no source node %d", topo.Name, srcNum)
	}
	if flitSize < 1 {
		return nil, fmt.Errorf("task from node %d to node %d: flit size must be positive, got %d", srcNum, dstNum, flitSize)
	}
	if creationCycle < 0 {
		return nil, fmt.Errorf("task from node %d to node %d: negative creation cycle %d", srcNum, dstNum, creationCycle)
	}

	topo.nxtTaskID += 1
	task := CreateTask(topo.nxtTaskID, src, dstNum, flitSize, creationCycle, topo.arch)

	dst, present := topo.nodeByNum[dstNum]
	if present {
		task.SetDirection(directionOf(src.Coord(), dst.Coord()))
	}
	return task, nil
}

// Coord returns the coordinate of a node number; unknown numbers report false
func (topo *Topology) Coord(number int) (Coordinate, bool) {
	node, present := topo.nodeByNum[number]
	if !present {
		return Coordinate{}, false
	}
	return node.Coord(), true
}

// directionOf picks the dominant axis of travel from src to dst
func directionOf(src, dst Coordinate) Direction {
	dx := dst.X - src.X
	dy := dst.Y - src.Y
	if dx == 0 && dy == 0 {
		return Local
	}
	if abs(dx) >= abs(dy) {
		if dx > 0 {
			return East
		}
		return West
	}
	if dy > 0 {
		return North
	}
	return South
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
