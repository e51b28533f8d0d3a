package chain

// Minimal ABIs with only the views the indexer calls.

const ReaderABI = `[
  {
    "constant": true,
    "inputs": [{"internalType": "address", "name": "pair", "type": "address"}],
    "name": "getPairParameters",
    "outputs": [
      {"internalType": "bool",    "name": "parametersSet", "type": "bool"},
      {"internalType": "uint112", "name": "reserve0",      "type": "uint112"},
      {"internalType": "uint112", "name": "reserve1",      "type": "uint112"},
      {"internalType": "uint256", "name": "price",         "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const FactoryABI = `[
  {
    "constant": true,
    "inputs": [
      {"internalType": "address", "name": "tokenA", "type": "address"},
      {"internalType": "address", "name": "tokenB", "type": "address"}
    ],
    "name": "getPair",
    "outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const UniswapV2PairABI = `[
  {
    "constant": true,
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint112", "name": "reserve0",           "type": "uint112"},
      {"internalType": "uint112", "name": "reserve1",           "type": "uint112"},
      {"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "token0",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "token1",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const UniswapV3FactoryABI = `[
  {
    "constant": true,
    "inputs": [
      {"internalType": "address", "name": "tokenA", "type": "address"},
      {"internalType": "address", "name": "tokenB", "type": "address"},
      {"internalType": "uint24",  "name": "fee",    "type": "uint24"}
    ],
    "name": "getPool",
    "outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const UniswapV3PoolABI = `[
  {
    "constant": true,
    "inputs": [],
    "name": "slot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96",               "type": "uint160"},
      {"internalType": "int24",   "name": "tick",                       "type": "int24"},
      {"internalType": "uint16",  "name": "observationIndex",           "type": "uint16"},
      {"internalType": "uint16",  "name": "observationCardinality",     "type": "uint16"},
      {"internalType": "uint16",  "name": "observationCardinalityNext", "type": "uint16"},
      {"internalType": "uint8",   "name": "feeProtocol",                "type": "uint8"},
      {"internalType": "bool",    "name": "unlocked",                   "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "liquidity",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "token0",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "constant": true,
    "inputs": [],
    "name": "token1",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const ERC20ABI = `[
  {"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`
