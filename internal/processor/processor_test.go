package processor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/twapstream/indexer/internal/config"
	"github.com/twapstream/indexer/internal/database"
	"github.com/twapstream/indexer/internal/modules/core"
)

var testTopic = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000aa")

type fakeSource struct {
	latest uint64
	logs   []types.Log
}

func (f *fakeSource) BlockNumber(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= q.FromBlock.Uint64() && log.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, log)
		}
	}
	return out, nil
}

type fakeModule struct {
	manifest *core.Manifest
	seen     []string
	cursor   uint64
	failOn   string
}

func newFakeModule() *fakeModule {
	return &fakeModule{
		manifest: &core.Manifest{
			Name:    "fake",
			Version: "0.0.1",
			DataSources: []core.DataSource{{
				Kind:   "ethereum/contract",
				Name:   "Fake",
				Source: core.DataSourceSource{ABI: "Fake"},
				Mapping: core.DataSourceMapping{
					EventHandlers: []core.EventHandler{{Event: "Fake()", Handler: "handleFake"}},
				},
			}},
		},
	}
}

func logKey(log *types.Log) string {
	return fmt.Sprintf("%d-%d-%d", log.BlockNumber, log.TxIndex, log.Index)
}

func (m *fakeModule) Name() string                                              { return m.manifest.Name }
func (m *fakeModule) Version() string                                           { return m.manifest.Version }
func (m *fakeModule) Manifest() *core.Manifest                                  { return m.manifest }
func (m *fakeModule) Initialize(ctx context.Context, db *database.Database) error { return nil }
func (m *fakeModule) GetEventFilters() []core.EventFilter {
	return []core.EventFilter{{Topic0: testTopic.Hex()}}
}
func (m *fakeModule) GetStartBlock() uint64 { return 1 }
func (m *fakeModule) GetSyncState(ctx context.Context) (uint64, error) {
	return m.cursor, nil
}
func (m *fakeModule) UpdateSyncState(ctx context.Context, blockNumber uint64) error {
	m.cursor = blockNumber
	return nil
}
func (m *fakeModule) HandleEvent(ctx context.Context, log *types.Log) error {
	key := logKey(log)
	if key == m.failOn {
		return fmt.Errorf("boom")
	}
	m.seen = append(m.seen, key)
	return nil
}

func testLog(block uint64, txIndex, logIndex uint) types.Log {
	return types.Log{
		Address:     common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		Topics:      []common.Hash{testTopic},
		BlockNumber: block,
		TxIndex:     txIndex,
		Index:       logIndex,
	}
}

func newTestProcessor(t *testing.T, source *fakeSource, module *fakeModule) (*Processor, *core.ModuleRegistry) {
	t.Helper()

	registry := core.NewModuleRegistry(nil, zerolog.Nop())
	require.NoError(t, registry.RegisterModule(module))
	require.NoError(t, registry.Start())

	cfg := &config.Config{
		Chain:     config.ChainConfig{BlockTime: 10 * time.Millisecond},
		Processor: config.ProcessorConfig{BatchSize: 100},
	}
	return NewProcessor(cfg, source, registry, zerolog.Nop()), registry
}

func TestProcessRangeDispatchesInChainOrder(t *testing.T) {
	module := newFakeModule()
	source := &fakeSource{
		latest: 3,
		logs: []types.Log{
			testLog(3, 0, 0),
			testLog(1, 1, 2),
			testLog(1, 0, 1),
			testLog(2, 2, 0),
			testLog(1, 1, 0),
		},
	}
	p, _ := newTestProcessor(t, source, module)

	require.NoError(t, p.processRange(context.Background(), 1, 3))

	require.Equal(t, []string{"1-0-1", "1-1-0", "1-1-2", "2-2-0", "3-0-0"}, module.seen)
	require.Equal(t, uint64(3), module.cursor)
}

func TestProcessRangeSkipsRemovedLogs(t *testing.T) {
	module := newFakeModule()
	removed := testLog(1, 0, 0)
	removed.Removed = true
	source := &fakeSource{latest: 1, logs: []types.Log{removed, testLog(1, 0, 1)}}
	p, _ := newTestProcessor(t, source, module)

	require.NoError(t, p.processRange(context.Background(), 1, 1))
	require.Equal(t, []string{"1-0-1"}, module.seen)
}

func TestFailingEventDoesNotHaltStream(t *testing.T) {
	module := newFakeModule()
	module.failOn = "1-0-1"
	source := &fakeSource{
		latest: 2,
		logs:   []types.Log{testLog(1, 0, 0), testLog(1, 0, 1), testLog(2, 0, 0)},
	}
	p, _ := newTestProcessor(t, source, module)

	require.NoError(t, p.processRange(context.Background(), 1, 2))
	require.Equal(t, []string{"1-0-0", "2-0-0"}, module.seen)
	require.Equal(t, uint64(2), module.cursor)
}

func TestStartBlockResumesFromCursor(t *testing.T) {
	module := newFakeModule()
	module.cursor = 41
	registry := core.NewModuleRegistry(nil, zerolog.Nop())
	require.NoError(t, registry.RegisterModule(module))

	start, err := registry.StartBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), start)
}
