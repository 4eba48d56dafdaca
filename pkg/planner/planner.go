// Package planner turns one split-order intent (total amount, trade count,
// interval) into the N sub-order records that share a single on-chain
// submission.
package planner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/ratemath"
	"github.com/pinefi/orderkeeper/pkg/witness"
)

// Request describes a split-order intent. PerNetworkFloor is the
// executor's minimum viable sub-trade size for the input token; nil
// disables the check (unknown token quote).
type Request struct {
	Owner           common.Address
	ChainID         uint64
	InputToken      common.Address
	OutputToken     common.Address
	TotalInput      *big.Int
	NumTrades       int64
	IntervalSeconds int64
	SubmissionTime  int64
	SubmissionHash  string
	PerNetworkFloor *big.Int
}

// Batch is a planned submission: N sub-orders sharing one transaction and
// one witness secret. The commitment's secret must not outlive the
// submission call.
type Batch struct {
	Commitment     witness.Commitment
	SwapKind       order.SwapKind
	AmountPerTrade *big.Int
	Orders         []order.Order
}

// Plan validates the intent and produces the sub-order records.
//
// AmountPerTrade is TotalInput / NumTrades with truncating division: the
// remainder (at most NumTrades-1 smallest units) stays in the owner's
// balance and is never silently redistributed across trades.
func Plan(req Request) (Batch, error) {
	kind, err := order.ClassifySwap(req.InputToken, req.OutputToken)
	if err != nil {
		return Batch{}, err
	}
	if req.TotalInput == nil || req.TotalInput.Sign() <= 0 {
		return Batch{}, fmt.Errorf("total input must be positive")
	}
	if req.IntervalSeconds <= 0 {
		return Batch{}, fmt.Errorf("interval must be positive")
	}
	if err := ratemath.MinViableSubTradeSize(req.TotalInput, req.NumTrades, req.PerNetworkFloor); err != nil {
		return Batch{}, err
	}

	com, err := witness.Generate()
	if err != nil {
		return Batch{}, err
	}

	amountPerTrade := new(big.Int).Div(req.TotalInput, big.NewInt(req.NumTrades))

	orders := make([]order.Order, 0, req.NumTrades)
	for i := int64(0); i < req.NumTrades; i++ {
		orders = append(orders, order.Order{
			Witness:                witness.SubWitness(com.Witness, int(i)),
			Owner:                  req.Owner,
			ChainID:                req.ChainID,
			InputToken:             req.InputToken,
			OutputToken:            req.OutputToken,
			InputAmount:            new(big.Int).Set(amountPerTrade),
			NumTrades:              req.NumTrades,
			Index:                  req.NumTrades - i,
			TradesLeft:             req.NumTrades - i,
			Status:                 order.StatusAwaitingExecution,
			Source:                 order.SourceLocal,
			SubmissionHash:         req.SubmissionHash,
			SubmissionDate:         req.SubmissionTime,
			EstimatedExecutionDate: req.SubmissionTime + req.IntervalSeconds*i,
		})
	}

	return Batch{
		Commitment:     com,
		SwapKind:       kind,
		AmountPerTrade: amountPerTrade,
		Orders:         orders,
	}, nil
}
