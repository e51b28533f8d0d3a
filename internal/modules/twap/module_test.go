package twap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/twapstream/indexer/internal/chain"
	"github.com/twapstream/indexer/internal/entity"
	"github.com/twapstream/indexer/internal/modules/core"
	"github.com/twapstream/indexer/internal/store"
)

const (
	testFactory      = "0x00000000000000000000000000000000000000f1"
	testReader       = "0x00000000000000000000000000000000000000f2"
	testUniV2Factory = "0x00000000000000000000000000000000000000f3"
	testUniV3Factory = "0x00000000000000000000000000000000000000f4"
	testUsdc         = "0x00000000000000000000000000000000000000a1"
	testWeth         = "0x00000000000000000000000000000000000000b1"
	testRefPair      = "0x00000000000000000000000000000000000000c1"
	testUser         = "0x00000000000000000000000000000000000000d1"
	testFeeTo        = "0x00000000000000000000000000000000000000d2"

	testTimestamp = uint64(1_700_000_000)
	testBlock     = uint64(100)
)

type fakeReader struct {
	params     map[common.Address]*chain.PairParameters
	pairs      map[string]common.Address
	v2Reserves map[common.Address]*chain.V2Reserves
	v3Pools    map[string]common.Address
	v3States   map[common.Address]*chain.V3PoolState
	balances   map[common.Address]*big.Int
	metadata   map[common.Address]*chain.TokenMetadata
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		params:     make(map[common.Address]*chain.PairParameters),
		pairs:      make(map[string]common.Address),
		v2Reserves: make(map[common.Address]*chain.V2Reserves),
		v3Pools:    make(map[string]common.Address),
		v3States:   make(map[common.Address]*chain.V3PoolState),
		balances:   make(map[common.Address]*big.Int),
		metadata:   make(map[common.Address]*chain.TokenMetadata),
	}
}

func pairKey(factory, a, b common.Address) string {
	return strings.ToLower(factory.Hex() + a.Hex() + b.Hex())
}

func (f *fakeReader) PairParameters(ctx context.Context, reader, pair common.Address) (*chain.PairParameters, error) {
	params, ok := f.params[pair]
	if !ok {
		return nil, fmt.Errorf("no parameters for pair %s", pair.Hex())
	}
	return params, nil
}

func (f *fakeReader) FactoryPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	return f.pairs[pairKey(factory, tokenA, tokenB)], nil
}

func (f *fakeReader) V2Reserves(ctx context.Context, pair common.Address) (*chain.V2Reserves, error) {
	reserves, ok := f.v2Reserves[pair]
	if !ok {
		return nil, fmt.Errorf("no v2 pool %s", pair.Hex())
	}
	return reserves, nil
}

func (f *fakeReader) V3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error) {
	return f.v3Pools[pairKey(factory, tokenA, tokenB)], nil
}

func (f *fakeReader) V3PoolState(ctx context.Context, pool common.Address) (*chain.V3PoolState, error) {
	state, ok := f.v3States[pool]
	if !ok {
		return nil, fmt.Errorf("no v3 pool %s", pool.Hex())
	}
	return state, nil
}

func (f *fakeReader) TokenMetadata(ctx context.Context, token common.Address) (*chain.TokenMetadata, error) {
	metadata, ok := f.metadata[token]
	if !ok {
		return nil, fmt.Errorf("no metadata for token %s", token.Hex())
	}
	return metadata, nil
}

func (f *fakeReader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if balance, ok := f.balances[owner]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

type fakeHeaders struct {
	time uint64
}

func (f *fakeHeaders) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: number, Time: f.time}, nil
}

func newTestModule(t *testing.T) (*Module, *store.Memory, *fakeReader) {
	t.Helper()

	manifest := &core.Manifest{
		Name:    "twap",
		Version: "0.1.0",
		DataSources: []core.DataSource{{
			Kind:   "ethereum/contract",
			Name:   "Factory",
			Source: core.DataSourceSource{ABI: "Factory"},
			Mapping: core.DataSourceMapping{
				EventHandlers: []core.EventHandler{{
					Event:   "PairCreated(indexed address,indexed address,address,uint256)",
					Handler: "handlePairCreated",
				}},
			},
		}},
		Context: map[string]interface{}{
			"factory":          testFactory,
			"reader":           testReader,
			"weth":             testWeth,
			"usdc":             testUsdc,
			"wethUsdcPair":     testRefPair,
			"whitelist":        []interface{}{testUsdc, testWeth},
			"uniswapV2Factory": testUniV2Factory,
			"uniswapV3Factory": testUniV3Factory,
			"staticTokens": []interface{}{
				map[string]interface{}{"address": testUsdc, "symbol": "USDC", "name": "USD Coin", "decimals": 6},
				map[string]interface{}{"address": testWeth, "symbol": "WETH", "name": "Wrapped Ether", "decimals": 18},
			},
		},
	}

	m, err := NewModuleFromManifest(manifest, zerolog.Nop())
	require.NoError(t, err)

	st := store.NewMemory()
	reader := newFakeReader()
	m.SetStore(st)
	m.SetChainReader(reader)
	m.SetHeaderSource(&fakeHeaders{time: testTimestamp})

	return m, st, reader
}

// seedMarket installs the USDC/WETH reference pool with 2,000,000 USDC
// against 1000 WETH, quoting 1 ETH = 2000 USDC.
func seedMarket(t *testing.T, s store.Store, reader *fakeReader) {
	t.Helper()
	ctx := context.Background()

	usdc := entity.NewToken(testUsdc, "USDC", "USD Coin", 6, decimal.Zero)
	weth := entity.NewToken(testWeth, "WETH", "Wrapped Ether", 18, decimal.Zero)
	require.NoError(t, s.SaveToken(ctx, usdc))
	require.NoError(t, s.SaveToken(ctx, weth))

	pair := entity.NewPair(testRefPair, testUsdc, testWeth, testTimestamp, testBlock)
	require.NoError(t, s.SavePair(ctx, pair))

	reserve0, _ := new(big.Int).SetString("2000000000000", 10)        // 2,000,000 USDC at 6 decimals
	reserve1, _ := new(big.Int).SetString("1000000000000000000000", 10) // 1000 WETH at 18 decimals
	price, _ := new(big.Int).SetString("500000000000000", 10)           // 0.0005 WETH per USDC at 18 decimals

	reader.params[common.HexToAddress(testRefPair)] = &chain.PairParameters{
		Reserve0: reserve0,
		Reserve1: reserve1,
		Price:    price,
	}
	reader.pairs[pairKey(common.HexToAddress(testFactory), common.HexToAddress(testWeth), common.HexToAddress(testUsdc))] = common.HexToAddress(testRefPair)
}

func transferEvent(txHash string, logIndex uint, from, to string, value *big.Int) *core.ParsedEvent {
	return &core.ParsedEvent{
		EventName: "Transfer",
		Address:   common.HexToAddress(testRefPair),
		Args: map[string]interface{}{
			"from":  common.HexToAddress(from),
			"to":    common.HexToAddress(to),
			"value": value,
		},
		TransactionHash: common.HexToHash(txHash),
		BlockNumber:     testBlock,
		LogIndex:        logIndex,
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}
}

func TestConfigNormalization(t *testing.T) {
	m, _, _ := newTestModule(t)

	require.Equal(t, testFactory, m.config.Factory)
	require.Equal(t, int64(3000), m.config.V3Fee)
	require.True(t, m.whitelist[testUsdc])
	require.True(t, m.whitelist[testWeth])
	require.NotNil(t, m.staticToken(testUsdc))
	require.Nil(t, m.staticToken(testUser))
}

func TestHandleEventPairCreated(t *testing.T) {
	m, st, _ := newTestModule(t)
	ctx := context.Background()

	factoryABI, err := abi.JSON(strings.NewReader(FactoryEventsABI))
	require.NoError(t, err)
	eventID := factoryABI.Events["PairCreated"].ID

	data := append(
		common.LeftPadBytes(common.HexToAddress(testRefPair).Bytes(), 32),
		common.LeftPadBytes(big.NewInt(1).Bytes(), 32)...,
	)

	log := &types.Log{
		Address: common.HexToAddress(testFactory),
		Topics: []common.Hash{
			eventID,
			common.HexToHash(testUsdc),
			common.HexToHash(testWeth),
		},
		Data:        data,
		BlockNumber: testBlock,
		TxHash:      common.HexToHash("0xaa01"),
		Index:       0,
	}

	require.NoError(t, m.HandleEvent(ctx, log))

	pair, err := st.LoadPair(ctx, testRefPair)
	require.NoError(t, err)
	require.Equal(t, testUsdc, pair.Token0)
	require.Equal(t, testWeth, pair.Token1)
	require.Equal(t, testTimestamp, pair.CreatedAtTimestamp)

	factory, err := st.LoadFactory(ctx, testFactory)
	require.NoError(t, err)
	require.Equal(t, int64(1), factory.PairCount)

	usdc, err := st.LoadToken(ctx, testUsdc)
	require.NoError(t, err)
	require.Equal(t, "USDC", usdc.Symbol)
	require.Equal(t, 6, usdc.Decimals)
}

func TestPairCreatedSkipsUnreadableToken(t *testing.T) {
	m, st, _ := newTestModule(t)
	ctx := context.Background()

	unknownToken := "0x00000000000000000000000000000000000000e9"
	ev := &core.ParsedEvent{
		EventName: "PairCreated",
		Address:   common.HexToAddress(testFactory),
		Args: map[string]interface{}{
			"token0": common.HexToAddress(unknownToken),
			"token1": common.HexToAddress(testWeth),
			"pair":   common.HexToAddress(testRefPair),
		},
		TransactionHash: common.HexToHash("0xaa02"),
		BlockNumber:     testBlock,
		Timestamp:       new(big.Int).SetUint64(testTimestamp),
	}

	require.NoError(t, m.handlePairCreated(ctx, st, ev))

	_, err := st.LoadPair(ctx, testRefPair)
	require.True(t, store.IsNotFound(err))

	// A skipped pair leaves the counter alone, so PairCount stays equal
	// to the number of pair records.
	factory, err := st.LoadFactory(ctx, testFactory)
	require.NoError(t, err)
	require.Equal(t, int64(0), factory.PairCount)
}

func TestUnknownEventIgnored(t *testing.T) {
	m, _, _ := newTestModule(t)

	log := &types.Log{
		Address: common.HexToAddress(testRefPair),
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
	}
	require.NoError(t, m.HandleEvent(context.Background(), log))
}
