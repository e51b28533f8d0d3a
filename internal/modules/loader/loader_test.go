package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const manifestYAML = `
name: twap
version: 1.0.0
dataSources:
  - kind: ethereum/contract
    name: Factory
    source:
      address: "0x9deb29c9a4c7a88a3c0257393b7f3335338d9a9d"
      abi: Factory
      startBlock: 100
    mapping:
      eventHandlers:
        - event: PairCreated(indexed address,indexed address,address,uint256)
          handler: handlePairCreated
context:
  factory: "0x9deb29c9a4c7a88a3c0257393b7f3335338d9a9d"
`

func TestParseManifest(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	manifest, err := l.ParseManifest([]byte(manifestYAML))
	require.NoError(t, err)
	require.Equal(t, "twap", manifest.Name)
	require.Len(t, manifest.DataSources, 1)

	ds := manifest.DataSources[0]
	require.Equal(t, "ethereum/contract", ds.Kind)
	require.Equal(t, uint64(100), *ds.Source.StartBlock)
	// Defaults fill in what the manifest leaves out.
	require.Equal(t, "mainnet", ds.Network)
	require.Equal(t, "ethereum/events", ds.Mapping.Kind)

	require.Equal(t, "0x9deb29c9a4c7a88a3c0257393b7f3335338d9a9d", manifest.Context["factory"])
}

func TestParseManifestRejectsMissingFields(t *testing.T) {
	l := NewManifestLoader(zerolog.Nop())

	_, err := l.ParseManifest([]byte("name: incomplete"))
	require.Error(t, err)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "twap.yaml"), []byte(manifestYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	l := NewManifestLoader(zerolog.Nop())
	manifests, err := l.LoadFromDirectory(dir)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	require.Equal(t, "twap", manifests[0].Name)
}
