package coresim

// arch.go holds the description of the simulated hardware and the
// read-only view of it that tasks consult every cycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Architecture is what a task needs to know about the hardware it runs on
type Architecture interface {
	// number of bits carried by one flit
	BitsPerFlit() int
}

// ArchDesc is the serializable description of an architecture
type ArchDesc struct {
	// Name is a label for the architecture, carried into logs
	Name string `json:"name" yaml:"name"`

	// BitsPerFlit is the number of bits in one unit of payload
	BitsPerFlit int `json:"bitsperflit" yaml:"bitsperflit"`

	// CycleSeconds is the length of one clock cycle in seconds, used to stamp virtual time
	CycleSeconds float64 `json:"cycleseconds" yaml:"cycleseconds"`

	// SupportsDenial asks for an architecture that can reject requests.  The basic
	// architecture cannot, so a description with this set is refused.
	SupportsDenial bool `json:"supportsdenial" yaml:"supportsdenial"`
}

// BasicArch is the architecture of the basic core simulator.  Nothing in it
// changes after CreateBasicArch returns.
type BasicArch struct {
	name         string
	bitsPerFlit  int
	cycleSeconds float64
}

var defaultCycleSeconds float64 = 1e-9

// minCycleSeconds is one tick of virtual time; shorter cycles would all be
// stamped with the same time
var minCycleSeconds float64 = 1e-10

// CreateBasicArch is a constructor
func CreateBasicArch(name string, bitsPerFlit int, cycleSeconds float64) (*BasicArch, error) {
	if bitsPerFlit < 1 {
		return nil, fmt.Errorf("architecture %s: bits per flit must be positive, got %d", name, bitsPerFlit)
	}
	if !(cycleSeconds > 0.0) {
		cycleSeconds = defaultCycleSeconds
	}
	if cycleSeconds < minCycleSeconds {
		return nil, fmt.Errorf("architecture %s: cycle of %g seconds is shorter than one virtual time tick (%g)",
			name, cycleSeconds, minCycleSeconds)
	}
	return &BasicArch{name: name, bitsPerFlit: bitsPerFlit, cycleSeconds: cycleSeconds}, nil
}

// BitsPerFlit returns the number of bits in one flit
func (ba *BasicArch) BitsPerFlit() int {
	return ba.bitsPerFlit
}

func (ba *BasicArch) Name() string {
	return ba.name
}

// CycleSeconds returns the simulated length of a cycle
func (ba *BasicArch) CycleSeconds() float64 {
	return ba.cycleSeconds
}

// Build turns the description into the architecture it describes
func (ad *ArchDesc) Build() (*BasicArch, error) {
	if ad.SupportsDenial {
		return nil, fmt.Errorf("architecture %s: denial is not supported by the basic architecture", ad.Name)
	}
	return CreateBasicArch(ad.Name, ad.BitsPerFlit, ad.CycleSeconds)
}

// WriteToFile stores the ArchDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (ad *ArchDesc) WriteToFile(filename string) error {
	return writeDesc(filename, *ad)
}

// ReadArchDesc deserializes a byte slice holding a representation of an ArchDesc struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadArchDesc(filename string, useYAML bool, dict []byte) (*ArchDesc, error) {
	example := ArchDesc{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// LoadArch reads an architecture description file and builds the architecture
func LoadArch(archFile string) (*BasicArch, error) {
	ad, err := ReadArchDesc(archFile, isYAML(archFile), []byte{})
	if err != nil {
		return nil, err
	}
	return ad.Build()
}

func isYAML(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

// writeDesc serializes desc to yaml or json, chosen by the extension of filename
func writeDesc(filename string, desc any) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if isYAML(filename) {
		bytes, merr = yaml.Marshal(desc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(desc, "", "\t")
	} else {
		return fmt.Errorf("unrecognized description file extension %q", pathExt)
	}
	if merr != nil {
		return merr
	}

	return os.WriteFile(filename, bytes, 0o644)
}

// readDesc fills desc from dict, or from the named file when dict is empty
func readDesc(filename string, useYAML bool, dict []byte, desc any) error {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}

	if useYAML {
		return yaml.Unmarshal(dict, desc)
	}
	return json.Unmarshal(dict, desc)
}
