package twap

// FactoryEventsABI covers the pool factory's PairCreated event.
const FactoryEventsABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "token0", "type": "address"},
			{"indexed": true, "name": "token1", "type": "address"},
			{"indexed": false, "name": "pair", "type": "address"},
			{"indexed": false, "name": "allPairsLength", "type": "uint256"}
		],
		"name": "PairCreated",
		"type": "event"
	}
]`

// PairEventsABI covers the pool contract's liquidity token Transfer and
// the Mint, Burn and Swap events.
const PairEventsABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "sender", "type": "address"},
			{"indexed": false, "name": "amount0", "type": "uint256"},
			{"indexed": false, "name": "amount1", "type": "uint256"}
		],
		"name": "Mint",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "sender", "type": "address"},
			{"indexed": false, "name": "amount0", "type": "uint256"},
			{"indexed": false, "name": "amount1", "type": "uint256"},
			{"indexed": true, "name": "to", "type": "address"}
		],
		"name": "Burn",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "sender", "type": "address"},
			{"indexed": false, "name": "amount0In", "type": "uint256"},
			{"indexed": false, "name": "amount1In", "type": "uint256"},
			{"indexed": false, "name": "amount0Out", "type": "uint256"},
			{"indexed": false, "name": "amount1Out", "type": "uint256"},
			{"indexed": true, "name": "to", "type": "address"}
		],
		"name": "Swap",
		"type": "event"
	}
]`
