package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// PairParameters is the reader contract's view of a pool: raw reserves
// and the raw token0-in-token1 price.
type PairParameters struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	Price    *big.Int
}

// V2Reserves describes an external constant-product pool.
type V2Reserves struct {
	Token0   common.Address
	Token1   common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// V3PoolState describes an external concentrated-liquidity pool.
type V3PoolState struct {
	Token0       common.Address
	Token1       common.Address
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
}

// TokenMetadata is the ERC20 identity of a token. Name and Symbol fall
// back to "unknown"; a token whose decimals or totalSupply cannot be
// read is reported as an error.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply *big.Int
}

// Reader is the set of outbound contract queries the engine consumes.
type Reader interface {
	PairParameters(ctx context.Context, reader, pair common.Address) (*PairParameters, error)
	FactoryPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	V2Reserves(ctx context.Context, pair common.Address) (*V2Reserves, error)
	V3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error)
	V3PoolState(ctx context.Context, pool common.Address) (*V3PoolState, error)
	TokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Client implements Reader against a JSON-RPC backend.
type Client struct {
	backend    bind.ContractBackend
	readerABI  abi.ABI
	factoryABI abi.ABI
	v2PairABI  abi.ABI
	v3FactABI  abi.ABI
	v3PoolABI  abi.ABI
	erc20ABI   abi.ABI
}

func NewClient(backend bind.ContractBackend) (*Client, error) {
	c := &Client{backend: backend}

	for _, item := range []struct {
		dst *abi.ABI
		src string
	}{
		{&c.readerABI, ReaderABI},
		{&c.factoryABI, FactoryABI},
		{&c.v2PairABI, UniswapV2PairABI},
		{&c.v3FactABI, UniswapV3FactoryABI},
		{&c.v3PoolABI, UniswapV3PoolABI},
		{&c.erc20ABI, ERC20ABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(item.src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI: %w", err)
		}
		*item.dst = parsed
	}

	return c, nil
}

func (c *Client) contract(address common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, parsed, c.backend, c.backend, c.backend)
}

func (c *Client) PairParameters(ctx context.Context, reader, pair common.Address) (*PairParameters, error) {
	contract := c.contract(reader, c.readerABI)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPairParameters", pair); err != nil {
		return nil, fmt.Errorf("getPairParameters %s: %w", pair.Hex(), err)
	}

	return &PairParameters{
		Reserve0: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		Reserve1: *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		Price:    *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
	}, nil
}

func (c *Client) FactoryPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	contract := c.contract(factory, c.factoryABI)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPair", tokenA, tokenB); err != nil {
		return common.Address{}, fmt.Errorf("getPair: %w", err)
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) V2Reserves(ctx context.Context, pair common.Address) (*V2Reserves, error) {
	contract := c.contract(pair, c.v2PairABI)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := contract.Call(opts, &out, "getReserves"); err != nil {
		return nil, fmt.Errorf("getReserves %s: %w", pair.Hex(), err)
	}
	reserves := &V2Reserves{
		Reserve0: *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Reserve1: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
	}

	out = nil
	if err := contract.Call(opts, &out, "token0"); err != nil {
		return nil, fmt.Errorf("token0 %s: %w", pair.Hex(), err)
	}
	reserves.Token0 = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	out = nil
	if err := contract.Call(opts, &out, "token1"); err != nil {
		return nil, fmt.Errorf("token1 %s: %w", pair.Hex(), err)
	}
	reserves.Token1 = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	return reserves, nil
}

func (c *Client) V3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error) {
	contract := c.contract(factory, c.v3FactABI)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPool", tokenA, tokenB, fee); err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) V3PoolState(ctx context.Context, pool common.Address) (*V3PoolState, error) {
	contract := c.contract(pool, c.v3PoolABI)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := contract.Call(opts, &out, "slot0"); err != nil {
		return nil, fmt.Errorf("slot0 %s: %w", pool.Hex(), err)
	}
	state := &V3PoolState{
		SqrtPriceX96: *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
	}

	out = nil
	if err := contract.Call(opts, &out, "liquidity"); err != nil {
		return nil, fmt.Errorf("liquidity %s: %w", pool.Hex(), err)
	}
	state.Liquidity = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	out = nil
	if err := contract.Call(opts, &out, "token0"); err != nil {
		return nil, fmt.Errorf("token0 %s: %w", pool.Hex(), err)
	}
	state.Token0 = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	out = nil
	if err := contract.Call(opts, &out, "token1"); err != nil {
		return nil, fmt.Errorf("token1 %s: %w", pool.Hex(), err)
	}
	state.Token1 = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	return state, nil
}

func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	contract := c.contract(token, c.erc20ABI)
	opts := &bind.CallOpts{Context: ctx}

	metadata := &TokenMetadata{Name: "unknown", Symbol: "unknown"}

	var out []interface{}
	if err := contract.Call(opts, &out, "name"); err == nil {
		if name := *abi.ConvertType(out[0], new(string)).(*string); name != "" {
			metadata.Name = name
		}
	}

	out = nil
	if err := contract.Call(opts, &out, "symbol"); err == nil {
		if symbol := *abi.ConvertType(out[0], new(string)).(*string); symbol != "" {
			metadata.Symbol = symbol
		}
	}

	out = nil
	if err := contract.Call(opts, &out, "decimals"); err != nil {
		return nil, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}
	metadata.Decimals = int(*abi.ConvertType(out[0], new(uint8)).(*uint8))

	out = nil
	if err := contract.Call(opts, &out, "totalSupply"); err != nil {
		return nil, fmt.Errorf("totalSupply %s: %w", token.Hex(), err)
	}
	metadata.TotalSupply = *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	return metadata, nil
}

func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	contract := c.contract(token, c.erc20ABI)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
