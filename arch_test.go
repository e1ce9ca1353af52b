package coresim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBasicArch(t *testing.T) {
	arch, err := CreateBasicArch("basic", 16, 2e-9)
	require.NoError(t, err)
	assert.Equal(t, 16, arch.BitsPerFlit())
	assert.Equal(t, "basic", arch.Name())
	assert.Equal(t, 2e-9, arch.CycleSeconds())

	arch, err = CreateBasicArch("defaulted", 1, 0.0)
	require.NoError(t, err)
	assert.Equal(t, defaultCycleSeconds, arch.CycleSeconds())

	_, err = CreateBasicArch("bad", 0, 1e-9)
	assert.Error(t, err)

	arch, err = CreateBasicArch("onetick", 1, minCycleSeconds)
	require.NoError(t, err)
	assert.Equal(t, minCycleSeconds, arch.CycleSeconds())

	_, err = CreateBasicArch("subtick", 1, 5e-11)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "virtual time tick")
}

func TestArchDesc_Build(t *testing.T) {
	ad := ArchDesc{Name: "basic", BitsPerFlit: 8}
	arch, err := ad.Build()
	require.NoError(t, err)
	assert.Equal(t, 8, arch.BitsPerFlit())

	ad.SupportsDenial = true
	_, err = ad.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denial")
}

func TestLoadArch(t *testing.T) {
	ad := &ArchDesc{Name: "basic", BitsPerFlit: 32, CycleSeconds: 1e-9}
	for _, name := range []string{"arch.yaml", "arch.yml", "arch.json"} {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), name)
			require.NoError(t, ad.WriteToFile(filename))
			arch, err := LoadArch(filename)
			require.NoError(t, err)
			assert.Equal(t, 32, arch.BitsPerFlit())
			assert.Equal(t, "basic", arch.Name())
		})
	}

	_, err := LoadArch(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReadArchDesc_FromBytes(t *testing.T) {
	ad, err := ReadArchDesc("", false, []byte(`{"name":"j","bitsperflit":4}`))
	require.NoError(t, err)
	assert.Equal(t, 4, ad.BitsPerFlit)

	_, err = ReadArchDesc("", true, []byte("bitsperflit: [unclosed"))
	assert.Error(t, err)
}
