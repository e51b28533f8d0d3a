package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/twapstream/indexer/internal/database"
)

// ModuleRegistry manages the lifecycle of indexer modules and routes
// incoming logs to the modules whose filters match.
type ModuleRegistry struct {
	modules map[string]Module
	db      *database.Database
	logger  zerolog.Logger

	// Event routing
	eventFilters   map[string][]string // topic0 -> module names
	addressFilters map[string][]string // address -> module names

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewModuleRegistry(db *database.Database, logger zerolog.Logger) *ModuleRegistry {
	ctx, cancel := context.WithCancel(context.Background())

	return &ModuleRegistry{
		modules:        make(map[string]Module),
		db:             db,
		logger:         logger.With().Str("component", "module_registry").Logger(),
		eventFilters:   make(map[string][]string),
		addressFilters: make(map[string][]string),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// RegisterModule validates, initializes and registers a module.
func (r *ModuleRegistry) RegisterModule(module Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := module.Name()

	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}

	manifest := module.Manifest()
	if manifest == nil {
		return fmt.Errorf("module %s has no manifest", name)
	}

	if err := manifest.ValidateManifest(); err != nil {
		return fmt.Errorf("module %s has invalid manifest: %w", name, err)
	}

	if err := module.Initialize(r.ctx, r.db); err != nil {
		return fmt.Errorf("failed to initialize module %s: %w", name, err)
	}

	filters := module.GetEventFilters()
	for _, filter := range filters {
		if filter.Topic0 != "" {
			lowerTopic := strings.ToLower(filter.Topic0)
			r.eventFilters[lowerTopic] = append(r.eventFilters[lowerTopic], name)
		}
		if filter.Address != "" {
			lowerAddr := strings.ToLower(filter.Address)
			r.addressFilters[lowerAddr] = append(r.addressFilters[lowerAddr], name)
		}
	}

	r.modules[name] = module

	r.logger.Info().
		Str("module", name).
		Str("version", module.Version()).
		Int("filters", len(filters)).
		Msg("Module registered successfully")

	return nil
}

// ProcessEvent routes an event to interested modules. A module's
// failure is logged and does not stop delivery to other modules or to
// later events.
func (r *ModuleRegistry) ProcessEvent(ctx context.Context, log *types.Log) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return nil
	}

	interested := r.findInterestedModules(log)
	if len(interested) == 0 {
		return nil
	}

	for _, moduleName := range interested {
		module, exists := r.modules[moduleName]
		if !exists {
			continue
		}

		if err := module.HandleEvent(ctx, log); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", moduleName).
				Uint64("block", log.BlockNumber).
				Str("tx_hash", log.TxHash.Hex()).
				Msg("Module failed to process event")
		}
	}

	return nil
}

func (r *ModuleRegistry) findInterestedModules(log *types.Log) []string {
	var interested []string
	seen := make(map[string]bool)

	if len(log.Topics) > 0 {
		topic0 := strings.ToLower(log.Topics[0].Hex())
		for _, name := range r.eventFilters[topic0] {
			if !seen[name] {
				interested = append(interested, name)
				seen[name] = true
			}
		}
	}

	address := strings.ToLower(log.Address.Hex())
	for _, name := range r.addressFilters[address] {
		if !seen[name] {
			interested = append(interested, name)
			seen[name] = true
		}
	}

	return interested
}

func (r *ModuleRegistry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("module registry is already running")
	}

	r.running = true
	r.logger.Info().Int("modules", len(r.modules)).Msg("Module registry started")

	return nil
}

func (r *ModuleRegistry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	r.running = false
	r.cancel()

	r.logger.Info().Msg("Module registry stopped")
	return nil
}

// GetModule returns a registered module by name
func (r *ModuleRegistry) GetModule(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, exists := r.modules[name]
	return module, exists
}

// ListModules returns all registered module names
func (r *ModuleRegistry) ListModules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}

	return names
}

// CommitBlock advances every module's persisted cursor to blockNumber.
func (r *ModuleRegistry) CommitBlock(ctx context.Context, blockNumber uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, module := range r.modules {
		if err := module.UpdateSyncState(ctx, blockNumber); err != nil {
			return fmt.Errorf("failed to update sync state for %s: %w", name, err)
		}
	}
	return nil
}

// StartBlock returns the lowest start block across registered modules,
// taking each module's persisted cursor into account.
func (r *ModuleRegistry) StartBlock(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var start uint64
	first := true
	for name, module := range r.modules {
		cursor, err := module.GetSyncState(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to get sync state for %s: %w", name, err)
		}
		from := module.GetStartBlock()
		if cursor+1 > from {
			from = cursor + 1
		}
		if first || from < start {
			start = from
			first = false
		}
	}

	return start, nil
}
