package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ABI fragments for the two order modules. Only the entrypoints
// the keeper calls are declared.
const dcaModuleABI = `[
  {
    "name": "submit",
    "type": "function",
    "inputs": [
      {
        "name": "order",
        "type": "tuple",
        "components": [
          {"name": "inToken", "type": "address"},
          {"name": "outToken", "type": "address"},
          {"name": "amountPerTrade", "type": "uint256"},
          {"name": "numTrades", "type": "uint256"},
          {"name": "minSlippage", "type": "uint256"},
          {"name": "maxSlippage", "type": "uint256"},
          {"name": "delay", "type": "uint256"},
          {"name": "platformWallet", "type": "address"},
          {"name": "platformFeeBps", "type": "uint256"}
        ]
      },
      {"name": "submitAndExec", "type": "bool"},
      {"name": "witness", "type": "address"}
    ],
    "outputs": []
  },
  {
    "name": "cancel",
    "type": "function",
    "inputs": [
      {"name": "id", "type": "uint256"},
      {"name": "witness", "type": "address"}
    ],
    "outputs": []
  }
]`

const limitOrderModuleABI = `[
  {
    "name": "cancelOrder",
    "type": "function",
    "inputs": [
      {"name": "module", "type": "address"},
      {"name": "inputToken", "type": "address"},
      {"name": "owner", "type": "address"},
      {"name": "witness", "type": "address"},
      {"name": "data", "type": "bytes"}
    ],
    "outputs": []
  }
]`

var (
	dcaABI   abi.ABI
	limitABI abi.ABI

	// auxDataArgs encodes the limit-order economic terms disclosed on
	// cancellation: (outputToken, minReturn).
	auxDataArgs abi.Arguments
)

func init() {
	var err error
	if dcaABI, err = abi.JSON(strings.NewReader(dcaModuleABI)); err != nil {
		panic(fmt.Errorf("parse dca module abi: %w", err))
	}
	if limitABI, err = abi.JSON(strings.NewReader(limitOrderModuleABI)); err != nil {
		panic(fmt.Errorf("parse limit order module abi: %w", err))
	}
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	auxDataArgs = abi.Arguments{
		{Name: "outputToken", Type: addressTy},
		{Name: "minReturn", Type: uint256Ty},
	}
}

// DCASubmission mirrors the on-chain submit tuple. Field order matters:
// it must match the ABI components.
type DCASubmission struct {
	InToken        common.Address
	OutToken       common.Address
	AmountPerTrade *big.Int
	NumTrades      *big.Int
	MinSlippage    *big.Int
	MaxSlippage    *big.Int
	Delay          *big.Int
	PlatformWallet common.Address
	PlatformFeeBps *big.Int
}

// SubmitDCACalldata builds the submit payload with the batch witness
// embedded as a public field. The witness is committed here; its secret
// is only disclosed later, on cancellation.
func SubmitDCACalldata(sub DCASubmission, witness common.Address) ([]byte, error) {
	data, err := dcaABI.Pack("submit", sub, false, witness)
	if err != nil {
		return nil, fmt.Errorf("pack submit: %w", err)
	}
	return data, nil
}

// CancelDCACalldata builds the cancel payload for a running cycle.
func CancelDCACalldata(cycleID *big.Int, witness common.Address) ([]byte, error) {
	data, err := dcaABI.Pack("cancel", cycleID, witness)
	if err != nil {
		return nil, fmt.Errorf("pack cancel: %w", err)
	}
	return data, nil
}

// CancelLimitOrderCalldata builds the limit-order cancellation payload.
// Reproducing the original order terms (module, tokens, minReturn, owner,
// witness) is what authorizes the cancel.
func CancelLimitOrderCalldata(module, inputToken, outputToken, owner common.Address, minReturn *big.Int, witness common.Address) ([]byte, error) {
	aux, err := auxDataArgs.Pack(outputToken, minReturn)
	if err != nil {
		return nil, fmt.Errorf("pack order terms: %w", err)
	}
	data, err := limitABI.Pack("cancelOrder", module, inputToken, owner, witness, aux)
	if err != nil {
		return nil, fmt.Errorf("pack cancelOrder: %w", err)
	}
	return data, nil
}
