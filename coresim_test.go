package coresim

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	SetLogger(quiet)
	os.Exit(m.Run())
}

// writeExperiment lays out a complete set of description files in dir
func writeExperiment(t *testing.T, dir string) string {
	ad := &ArchDesc{Name: "basic", BitsPerFlit: 4, CycleSeconds: 1e-9}
	require.NoError(t, ad.WriteToFile(filepath.Join(dir, "arch.yaml")))
	require.NoError(t, CreateMeshTopoCfg("mesh", 3, 3).WriteToFile(filepath.Join(dir, "topo.json")))

	wc := CreateWorkloadCfg("mixed")
	wc.AddTask(0, 8, 2, 0)
	wc.AddTask(4, 4, 1, 3)
	wc.AddFlow(FlowDesc{Name: "corner", Src: 2, Dsts: []int{0, 6, 8}, Rate: 0.5,
		MinFlits: 1, MaxFlits: 3, Count: 6})
	require.NoError(t, wc.WriteToFile(filepath.Join(dir, "workload.yaml")))

	ec := &ExpCfg{Name: "exp", ArchFile: "arch.yaml", TopoFile: "topo.json",
		WorkloadFile: "workload.yaml", LogFile: "log.yaml", TraceFile: "trace.json",
		Arbiter: "port", MaxCycles: 10000, Workers: 2}
	expFile := filepath.Join(dir, "exp.yaml")
	require.NoError(t, ec.WriteToFile(expFile))
	return expFile
}

func TestRunExperiment(t *testing.T) {
	dir := t.TempDir()
	expFile := writeExperiment(t, dir)

	exp, err := RunExperiment(expFile)
	require.NoError(t, err)
	assert.Equal(t, 4, exp.Arch.BitsPerFlit())
	assert.Equal(t, 2, exp.Scheduler.Workers)
	assert.Len(t, exp.Scheduler.Retired(), 8)

	cl, err := LoadCoreLog(filepath.Join(dir, "log.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "exp", cl.ExpName)
	assert.Equal(t, "basic", cl.Arch)
	require.Equal(t, 8, cl.Size())
	for idx := range cl.Entries {
		entry := cl.Entry(idx)
		assert.Equal(t, entry.FlitSize*4, entry.BitsSent)
		sum := 0
		for _, cycles := range entry.Cycles {
			sum += cycles
		}
		assert.Equal(t, entry.Duration(), sum)
	}

	_, err = os.Stat(filepath.Join(dir, "trace.json"))
	assert.NoError(t, err)

	counts := CumulativeIO(cl)
	total := 0
	for _, lc := range counts {
		total += lc.Count
	}
	assert.Equal(t, 16, total)
}

func TestReadExpCfg_RelativePaths(t *testing.T) {
	ec, err := ReadExpCfg("/data/exps/exp.yaml", true, []byte(`
expname: rel
archfile: arch.yaml
topofile: /abs/topo.yaml
`))
	require.NoError(t, err)
	assert.Equal(t, "/data/exps/arch.yaml", ec.ArchFile)
	assert.Equal(t, "/abs/topo.yaml", ec.TopoFile)
	assert.Empty(t, ec.WorkloadFile)
}

func TestBuildExperiment_Errors(t *testing.T) {
	dir := t.TempDir()
	expFile := writeExperiment(t, dir)
	ec, err := LoadExpCfg(expFile)
	require.NoError(t, err)

	bad := *ec
	bad.ArchFile = filepath.Join(dir, "missing.yaml")
	_, err = BuildExperiment(&bad)
	assert.ErrorContains(t, err, "loading architecture")

	bad = *ec
	bad.Arbiter = "lottery"
	_, err = BuildExperiment(&bad)
	assert.Error(t, err)
}
