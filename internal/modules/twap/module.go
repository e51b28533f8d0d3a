package twap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/twapstream/indexer/internal/chain"
	"github.com/twapstream/indexer/internal/database"
	"github.com/twapstream/indexer/internal/modules/core"
	"github.com/twapstream/indexer/internal/modules/loader"
	"github.com/twapstream/indexer/internal/store"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Module maintains derived market state for the constant-product pools
// of one factory: pairs, tokens, per-transaction mint/burn/swap records,
// liquidity positions and the day and hour rollups.
type Module struct {
	db       *database.Database
	store    store.Store
	chain    chain.Reader
	manifest *core.Manifest
	logger   zerolog.Logger
	parser   *core.EventParser
	config   *Config

	handlers map[common.Hash]handlerFunc

	headers   headerSource
	publisher pairPublisher

	whitelist map[string]bool

	tsMu    sync.Mutex
	tsCache map[uint64]uint64
}

type handlerFunc func(ctx context.Context, s store.Store, ev *core.ParsedEvent) error

// headerSource yields block headers for timestamp lookups. Satisfied by
// *ethclient.Client.
type headerSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// pairPublisher receives change notifications for downstream fanout.
type pairPublisher interface {
	EnqueuePairChanged(address string)
}

// Config is the module configuration parsed from the manifest context.
// All addresses are normalized to lowercase hex.
type Config struct {
	Factory          string        `yaml:"factory"`
	Reader           string        `yaml:"reader"`
	Weth             string        `yaml:"weth"`
	Usdc             string        `yaml:"usdc"`
	WethUsdcPair     string        `yaml:"wethUsdcPair"`
	Whitelist        []string      `yaml:"whitelist"`
	UniswapV2Factory string        `yaml:"uniswapV2Factory"`
	UniswapV3Factory string        `yaml:"uniswapV3Factory"`
	V3Fee            int64         `yaml:"v3Fee"`
	RPCEndpoint      string        `yaml:"rpcEndpoint"`
	StaticTokens     []StaticToken `yaml:"staticTokens"`
}

// StaticToken pins the metadata of a well-known token so pair creation
// does not depend on contract calls for it.
type StaticToken struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals int    `yaml:"decimals"`
}

// NewModule loads the module manifest from the default location.
func NewModule(logger zerolog.Logger) (*Module, error) {
	manifestLoader := loader.NewManifestLoader(logger)
	manifest, err := manifestLoader.LoadFromFile("manifests/twap.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return NewModuleFromManifest(manifest, logger)
}

// NewModuleFromManifest builds a module around an already parsed
// manifest.
func NewModuleFromManifest(manifest *core.Manifest, logger zerolog.Logger) (*Module, error) {
	var config Config
	if manifest.Context != nil {
		contextBytes, _ := yaml.Marshal(manifest.Context)
		if err := yaml.Unmarshal(contextBytes, &config); err != nil {
			return nil, fmt.Errorf("failed to parse module config: %w", err)
		}
	}
	config.normalize()

	if config.Factory == "" {
		return nil, fmt.Errorf("module config requires a factory address")
	}
	if config.Reader == "" {
		return nil, fmt.Errorf("module config requires a reader address")
	}

	m := &Module{
		manifest:  manifest,
		logger:    logger.With().Str("module", manifest.Name).Logger(),
		parser:    core.NewEventParser(),
		config:    &config,
		handlers:  make(map[common.Hash]handlerFunc),
		whitelist: make(map[string]bool),
		tsCache:   make(map[uint64]uint64),
	}

	for _, address := range config.Whitelist {
		m.whitelist[address] = true
	}

	if err := m.registerEventHandlers(); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	return m, nil
}

func (c *Config) normalize() {
	c.Factory = strings.ToLower(c.Factory)
	c.Reader = strings.ToLower(c.Reader)
	c.Weth = strings.ToLower(c.Weth)
	c.Usdc = strings.ToLower(c.Usdc)
	c.WethUsdcPair = strings.ToLower(c.WethUsdcPair)
	c.UniswapV2Factory = strings.ToLower(c.UniswapV2Factory)
	c.UniswapV3Factory = strings.ToLower(c.UniswapV3Factory)
	for i := range c.Whitelist {
		c.Whitelist[i] = strings.ToLower(c.Whitelist[i])
	}
	for i := range c.StaticTokens {
		c.StaticTokens[i].Address = strings.ToLower(c.StaticTokens[i].Address)
	}
	if c.V3Fee == 0 {
		c.V3Fee = 3000
	}
}

func (m *Module) registerEventHandlers() error {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryEventsABI))
	if err != nil {
		return fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairEventsABI))
	if err != nil {
		return fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	m.parser.AddContract(common.HexToAddress(m.config.Factory), &factoryABI)
	m.parser.AddContract(common.Address{}, &pairABI)

	byName := map[string]handlerFunc{
		"PairCreated": m.handlePairCreated,
		"Transfer":    m.handleTransfer,
		"Mint":        m.handleMint,
		"Burn":        m.handleBurn,
		"Swap":        m.handleSwap,
	}

	for name, handler := range byName {
		event, ok := factoryABI.Events[name]
		if !ok {
			event, ok = pairABI.Events[name]
		}
		if !ok {
			return fmt.Errorf("event %s not found in module ABIs", name)
		}
		m.handlers[event.ID] = handler
	}

	return nil
}

// Name returns the module name
func (m *Module) Name() string {
	return m.manifest.Name
}

// Version returns the module version
func (m *Module) Version() string {
	return m.manifest.Version
}

// Manifest returns the module manifest
func (m *Module) Manifest() *core.Manifest {
	return m.manifest
}

// SetStore overrides the persistence backend. Used by tests and by
// callers that share a store across modules.
func (m *Module) SetStore(s store.Store) {
	m.store = s
}

// SetChainReader overrides the contract query client.
func (m *Module) SetChainReader(r chain.Reader) {
	m.chain = r
}

// SetHeaderSource overrides the block header lookup.
func (m *Module) SetHeaderSource(h headerSource) {
	m.headers = h
}

// SetPublisher wires the realtime change feed.
func (m *Module) SetPublisher(p pairPublisher) {
	m.publisher = p
}

// Initialize sets up the module with database connection
func (m *Module) Initialize(ctx context.Context, db *database.Database) error {
	m.db = db

	if m.store == nil {
		m.store = store.NewPostgres(db, m.logger)
	}

	if m.config.RPCEndpoint != "" && (m.chain == nil || m.headers == nil) {
		client, err := ethclient.Dial(m.config.RPCEndpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to RPC: %w", err)
		}
		if m.chain == nil {
			reader, err := chain.NewClient(client)
			if err != nil {
				return fmt.Errorf("failed to build chain client: %w", err)
			}
			m.chain = reader
		}
		if m.headers == nil {
			m.headers = client
		}
	}

	if m.chain == nil {
		return fmt.Errorf("module requires a chain reader; configure rpcEndpoint or inject one")
	}

	m.logger.Info().
		Str("factory", m.config.Factory).
		Str("reader", m.config.Reader).
		Int("whitelist", len(m.whitelist)).
		Msg("Module initialized")

	return nil
}

// HandleEvent decodes a log and runs the matching handler inside one
// atomic store unit. A handler error rolls the unit back and is
// returned to the caller; the event stream itself is not interrupted.
func (m *Module) HandleEvent(ctx context.Context, log *types.Log) error {
	if len(log.Topics) == 0 {
		return nil
	}

	handler, exists := m.handlers[log.Topics[0]]
	if !exists {
		return nil
	}

	parsedEvent, err := m.parser.ParseEvent(log)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	timestamp, err := m.blockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return fmt.Errorf("failed to resolve block timestamp: %w", err)
	}
	parsedEvent.Timestamp = new(big.Int).SetUint64(timestamp)

	err = m.store.Atomic(ctx, func(s store.Store) error {
		return handler(ctx, s, parsedEvent)
	})
	if err != nil {
		return fmt.Errorf("handler %s failed: %w", parsedEvent.EventName, err)
	}

	if m.publisher != nil && parsedEvent.EventName != "PairCreated" {
		m.publisher.EnqueuePairChanged(addressID(log.Address))
	}

	m.logger.Debug().
		Str("event", parsedEvent.EventName).
		Str("address", addressID(log.Address)).
		Uint64("block", log.BlockNumber).
		Msg("Processed event")

	return nil
}

// blockTimestamp resolves a block's timestamp via the header source,
// memoizing per block so a burst of logs from one block costs one call.
func (m *Module) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	m.tsMu.Lock()
	if ts, ok := m.tsCache[blockNumber]; ok {
		m.tsMu.Unlock()
		return ts, nil
	}
	m.tsMu.Unlock()

	if m.headers == nil {
		return 0, fmt.Errorf("no header source configured")
	}

	header, err := m.headers.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, err
	}

	m.tsMu.Lock()
	if len(m.tsCache) > 1024 {
		m.tsCache = make(map[uint64]uint64)
	}
	m.tsCache[blockNumber] = header.Time
	m.tsMu.Unlock()

	return header.Time, nil
}

// GetEventFilters returns the event filters this module is interested in
func (m *Module) GetEventFilters() []core.EventFilter {
	filters := []core.EventFilter{
		{Address: m.config.Factory},
	}

	for topic := range m.handlers {
		filters = append(filters, core.EventFilter{Topic0: topic.Hex()})
	}

	return filters
}

// GetStartBlock returns the block number to start indexing from
func (m *Module) GetStartBlock() uint64 {
	if len(m.manifest.DataSources) > 0 && m.manifest.DataSources[0].Source.StartBlock != nil {
		return *m.manifest.DataSources[0].Source.StartBlock
	}
	return 0
}

// GetSyncState returns the last processed block for this module
func (m *Module) GetSyncState(ctx context.Context) (uint64, error) {
	return m.db.GetModuleCursor(ctx, m.Name())
}

// UpdateSyncState updates the last processed block for this module
func (m *Module) UpdateSyncState(ctx context.Context, blockNumber uint64) error {
	return m.db.SetModuleCursor(ctx, m.Name(), blockNumber)
}

// addressID is the canonical entity id form of an address.
func addressID(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func argAddress(args map[string]interface{}, name string) (common.Address, bool) {
	v, ok := args[name].(common.Address)
	return v, ok
}

func argBigInt(args map[string]interface{}, name string) *big.Int {
	if v, ok := args[name].(*big.Int); ok {
		return v
	}
	return new(big.Int)
}
