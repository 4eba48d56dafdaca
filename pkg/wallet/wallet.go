// Package wallet holds the signing/session collaborator boundary: the
// interfaces the core consumes, and the calldata builders that embed a
// witness into the on-chain submission payload.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxSender broadcasts an already-authorized transaction. The call returns
// a hash synchronously; confirmation happens later and is observed through
// the receipt side of the collaborator.
type TxSender interface {
	SendTransaction(ctx context.Context, to common.Address, data []byte, value, gasPrice *big.Int) (common.Hash, error)
	EstimateGas(ctx context.Context, to common.Address, data []byte, value *big.Int) (uint64, error)
}

// CalculateGasMargin pads a gas estimate by margin basis points (of 10000).
func CalculateGasMargin(value *big.Int, marginBps int64) *big.Int {
	offset := new(big.Int).Mul(value, big.NewInt(marginBps))
	offset.Div(offset, big.NewInt(10000))
	return new(big.Int).Add(value, offset)
}
