package order

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel address denoting the chain's native asset
// (ETH on mainnet, MATIC on polygon) in order records.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Family distinguishes the two order products, which are indexed and
// polled independently.
type Family uint8

const (
	FamilyLimit Family = iota
	FamilyDCA
)

func (f Family) String() string {
	switch f {
	case FamilyLimit:
		return "limit"
	case FamilyDCA:
		return "dca"
	default:
		return "unknown"
	}
}

// Status is the order lifecycle state. It only moves forward:
// AwaitingExecution -> Executed | Cancelled, never back.
type Status uint8

const (
	StatusAwaitingExecution Status = iota
	StatusExecuted
	StatusCancelled
)

// Wire strings match the indexer's vocabulary.
const (
	statusAwaitingWire  = "awaitingExec"
	statusExecutedWire  = "executed"
	statusCancelledWire = "cancelled"
)

func (s Status) String() string {
	switch s {
	case StatusAwaitingExecution:
		return statusAwaitingWire
	case StatusExecuted:
		return statusExecutedWire
	case StatusCancelled:
		return statusCancelledWire
	default:
		return "unknown"
	}
}

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusCancelled
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case statusAwaitingWire, "open":
		return StatusAwaitingExecution, nil
	case statusExecutedWire:
		return StatusExecuted, nil
	case statusCancelledWire:
		return StatusCancelled, nil
	default:
		return 0, fmt.Errorf("unknown order status %q", s)
	}
}

// Source tags where a record was observed. Assigned during reconciliation,
// never persisted.
type Source uint8

const (
	SourceLocal Source = iota
	SourceRemote
)

func (s Source) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "local"
}

// SwapKind classifies the token pair of an order. Dispatch on it is
// always an exhaustive switch.
type SwapKind uint8

const (
	NativeToToken SwapKind = iota
	TokenToNative
	TokenToToken
)

// ClassifySwap returns the swap kind for a pair, rejecting native-to-native.
func ClassifySwap(input, output common.Address) (SwapKind, error) {
	inNative := input == NativeToken
	outNative := output == NativeToken
	switch {
	case inNative && outNative:
		return 0, fmt.Errorf("native to native swap is not a valid order")
	case inNative:
		return NativeToToken, nil
	case outNative:
		return TokenToNative, nil
	default:
		return TokenToToken, nil
	}
}

// Order is the central entity. Witness is the primary key: globally unique
// per (owner, chain) across local and remote sources. Amounts are exact
// smallest-unit integers.
type Order struct {
	Witness string
	Owner   common.Address
	ChainID uint64

	InputToken  common.Address
	OutputToken common.Address

	// InputAmount is the full input for limit orders and the per-trade
	// amount for DCA sub-orders.
	InputAmount *big.Int

	// Limit order economic terms.
	MinReturn *big.Int

	// DCA sequencing terms. Exactly one sub-order of a batch has
	// Index == TradesLeft: the next executable trade.
	NumTrades  int64
	Index      int64
	TradesLeft int64

	// CycleID is the on-chain id of the DCA cycle, assigned at
	// submission and learned from the indexer. Required to cancel.
	CycleID string

	Status Status
	Source Source // not persisted

	SubmissionHash string
	ExecutionHash  string
	CancelledHash  string

	SubmissionDate         int64 // unix seconds
	EstimatedExecutionDate int64
	ExecutionDate          int64
}

// Open reports whether the order is still awaiting execution.
func (o *Order) Open() bool { return o.Status == StatusAwaitingExecution }

// NextExecutable reports whether this DCA sub-order is the one the
// executor will run next. Cancellation is only offered here.
func (o *Order) NextExecutable() bool {
	return o.NumTrades > 0 && o.Index == o.TradesLeft
}

type orderJSON struct {
	Witness                string `json:"witness"`
	Owner                  string `json:"owner"`
	ChainID                uint64 `json:"chainId"`
	InputToken             string `json:"inputToken"`
	OutputToken            string `json:"outputToken"`
	InputAmount            string `json:"inputAmount"`
	MinReturn              string `json:"minReturn,omitempty"`
	NumTrades              int64  `json:"numTrades,omitempty"`
	Index                  int64  `json:"index,omitempty"`
	TradesLeft             int64  `json:"nTradesLeft,omitempty"`
	CycleID                string `json:"cycleId,omitempty"`
	Status                 string `json:"status"`
	SubmissionHash         string `json:"submissionHash,omitempty"`
	ExecutionHash          string `json:"executionHash,omitempty"`
	CancelledHash          string `json:"cancelledHash,omitempty"`
	SubmissionDate         int64  `json:"submissionDate,omitempty"`
	EstimatedExecutionDate int64  `json:"estExecutionDate,omitempty"`
	ExecutionDate          int64  `json:"executionDate,omitempty"`
}

// MarshalJSON carries amounts as decimal strings so 256-bit values
// survive parsers that truncate large JSON numbers.
func (o Order) MarshalJSON() ([]byte, error) {
	j := orderJSON{
		Witness:                o.Witness,
		Owner:                  strings.ToLower(o.Owner.Hex()),
		ChainID:                o.ChainID,
		InputToken:             strings.ToLower(o.InputToken.Hex()),
		OutputToken:            strings.ToLower(o.OutputToken.Hex()),
		NumTrades:              o.NumTrades,
		Index:                  o.Index,
		TradesLeft:             o.TradesLeft,
		CycleID:                o.CycleID,
		Status:                 o.Status.String(),
		SubmissionHash:         o.SubmissionHash,
		ExecutionHash:          o.ExecutionHash,
		CancelledHash:          o.CancelledHash,
		SubmissionDate:         o.SubmissionDate,
		EstimatedExecutionDate: o.EstimatedExecutionDate,
		ExecutionDate:          o.ExecutionDate,
	}
	if o.InputAmount != nil {
		j.InputAmount = o.InputAmount.String()
	}
	if o.MinReturn != nil {
		j.MinReturn = o.MinReturn.String()
	}
	return json.Marshal(j)
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var j orderJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	status, err := ParseStatus(j.Status)
	if err != nil {
		return err
	}
	o.Witness = j.Witness
	o.Owner = common.HexToAddress(j.Owner)
	o.ChainID = j.ChainID
	o.InputToken = common.HexToAddress(j.InputToken)
	o.OutputToken = common.HexToAddress(j.OutputToken)
	o.NumTrades = j.NumTrades
	o.Index = j.Index
	o.TradesLeft = j.TradesLeft
	o.CycleID = j.CycleID
	o.Status = status
	o.SubmissionHash = j.SubmissionHash
	o.ExecutionHash = j.ExecutionHash
	o.CancelledHash = j.CancelledHash
	o.SubmissionDate = j.SubmissionDate
	o.EstimatedExecutionDate = j.EstimatedExecutionDate
	o.ExecutionDate = j.ExecutionDate
	o.InputAmount = nil
	if j.InputAmount != "" {
		v, ok := new(big.Int).SetString(j.InputAmount, 10)
		if !ok {
			return fmt.Errorf("invalid inputAmount %q", j.InputAmount)
		}
		o.InputAmount = v
	}
	o.MinReturn = nil
	if j.MinReturn != "" {
		v, ok := new(big.Int).SetString(j.MinReturn, 10)
		if !ok {
			return fmt.Errorf("invalid minReturn %q", j.MinReturn)
		}
		o.MinReturn = v
	}
	return nil
}
