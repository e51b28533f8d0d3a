package core

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventHandlerFunc is the function signature for event handlers
type EventHandlerFunc func(ctx context.Context, event *ParsedEvent) error

// ParsedEvent represents a decoded event log
type ParsedEvent struct {
	// Raw log data
	Log *types.Log

	// Event information
	EventName string
	Address   common.Address

	// Parsed event data
	Args map[string]interface{}

	// Transaction context
	TransactionHash  common.Hash
	TransactionIndex uint
	BlockNumber      uint64
	BlockHash        common.Hash
	LogIndex         uint

	// Additional context
	Timestamp *big.Int
}

// EventParser handles parsing of event logs using ABI definitions
type EventParser struct {
	contracts map[common.Address]*abi.ABI
	events    map[common.Hash]*abi.Event // topic0 -> event
}

func NewEventParser() *EventParser {
	return &EventParser{
		contracts: make(map[common.Address]*abi.ABI),
		events:    make(map[common.Hash]*abi.Event),
	}
}

// AddContract adds a contract ABI for parsing
func (p *EventParser) AddContract(address common.Address, contractABI *abi.ABI) {
	p.contracts[address] = contractABI

	for _, event := range contractABI.Events {
		p.events[event.ID] = &event
	}
}

// ParseEvent parses a log into a ParsedEvent
func (p *EventParser) ParseEvent(log *types.Log) (*ParsedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrInvalidEvent{Reason: "no topics in log"}
	}

	eventABI, exists := p.events[log.Topics[0]]
	if !exists {
		return nil, ErrUnknownEvent{Topic: log.Topics[0].Hex()}
	}

	args := make(map[string]interface{})

	// Indexed parameters come from topics[1:]
	topicIndex := 1
	for _, input := range eventABI.Inputs {
		if input.Indexed && topicIndex < len(log.Topics) {
			args[input.Name] = p.parseIndexedArg(log.Topics[topicIndex], input.Type)
			topicIndex++
		}
	}

	// Non-indexed parameters come from the data field
	if len(log.Data) > 0 {
		nonIndexedInputs := make(abi.Arguments, 0)
		for _, input := range eventABI.Inputs {
			if !input.Indexed {
				nonIndexedInputs = append(nonIndexedInputs, input)
			}
		}

		if len(nonIndexedInputs) > 0 {
			nonIndexedArgs, err := nonIndexedInputs.Unpack(log.Data)
			if err != nil {
				return nil, ErrEventParsing{Event: eventABI.Name, Err: err}
			}

			for i, input := range nonIndexedInputs {
				if i < len(nonIndexedArgs) {
					args[input.Name] = nonIndexedArgs[i]
				}
			}
		}
	}

	return &ParsedEvent{
		Log:              log,
		EventName:        eventABI.Name,
		Address:          log.Address,
		Args:             args,
		TransactionHash:  log.TxHash,
		TransactionIndex: log.TxIndex,
		BlockNumber:      log.BlockNumber,
		BlockHash:        log.BlockHash,
		LogIndex:         log.Index,
	}, nil
}

// parseIndexedArg converts a topic hash to the appropriate Go type
func (p *EventParser) parseIndexedArg(topic common.Hash, argType abi.Type) interface{} {
	switch argType.T {
	case abi.AddressTy:
		return common.HexToAddress(topic.Hex())
	case abi.IntTy, abi.UintTy:
		return new(big.Int).SetBytes(topic.Bytes())
	case abi.BoolTy:
		return topic.Big().Cmp(common.Big0) != 0
	case abi.BytesTy, abi.FixedBytesTy:
		return topic.Bytes()
	default:
		return topic.Hex()
	}
}

// ParseEventSignature parses a manifest event signature string, e.g.
// "Transfer(indexed address,indexed address,uint256)". The resulting
// event's ID is the topic0 hash of the canonical signature.
func ParseEventSignature(sig string) (*abi.Event, error) {
	parenIdx := strings.Index(sig, "(")
	if parenIdx == -1 || !strings.HasSuffix(sig, ")") {
		return nil, ErrInvalidEventSignature{Signature: sig}
	}

	name := sig[:parenIdx]
	params := sig[parenIdx+1 : len(sig)-1]

	var inputs abi.Arguments
	if params != "" {
		for i, param := range strings.Split(params, ",") {
			param = strings.TrimSpace(param)

			indexed := false
			if strings.HasPrefix(param, "indexed ") {
				indexed = true
				param = strings.TrimPrefix(param, "indexed ")
			}

			argType, err := abi.NewType(param, "", nil)
			if err != nil {
				return nil, ErrInvalidEventSignature{Signature: sig}
			}

			inputs = append(inputs, abi.Argument{
				Name:    "arg" + string(rune('0'+i)),
				Type:    argType,
				Indexed: indexed,
			})
		}
	}

	event := abi.NewEvent(name, name, false, inputs)
	return &event, nil
}

// Error types
type ErrInvalidEvent struct {
	Reason string
}

func (e ErrInvalidEvent) Error() string {
	return "invalid event: " + e.Reason
}

type ErrUnknownEvent struct {
	Topic string
}

func (e ErrUnknownEvent) Error() string {
	return "unknown event topic: " + e.Topic
}

type ErrEventParsing struct {
	Event string
	Err   error
}

func (e ErrEventParsing) Error() string {
	return "failed to parse event " + e.Event + ": " + e.Err.Error()
}

type ErrInvalidEventSignature struct {
	Signature string
}

func (e ErrInvalidEventSignature) Error() string {
	return "invalid event signature: " + e.Signature
}
