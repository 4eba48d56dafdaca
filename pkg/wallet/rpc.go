package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pinefi/orderkeeper/pkg/pending"
)

// RPCClient is the JSON-RPC backed implementation of the signing/session
// collaborator for headless operation. Browser-wallet deployments inject
// their own TxSender instead and only use the receipt side.
type RPCClient struct {
	c       *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// Dial connects to an RPC endpoint. privateKeyHex may be empty, which
// yields a receipt-only client that cannot send.
func Dial(ctx context.Context, rawURL, privateKeyHex string) (*RPCClient, error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	rc := &RPCClient{c: c, chainID: chainID}
	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		rc.key = key
		rc.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return rc, nil
}

func (r *RPCClient) Close() { r.c.Close() }

// Address returns the sending account, zero if receipt-only.
func (r *RPCClient) Address() common.Address { return r.from }

func (r *RPCClient) SendTransaction(ctx context.Context, to common.Address, data []byte, value, gasPrice *big.Int) (common.Hash, error) {
	if r.key == nil {
		return common.Hash{}, fmt.Errorf("client has no signing key")
	}
	nonce, err := r.c.PendingNonceAt(ctx, r.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("query nonce: %w", err)
	}
	if gasPrice == nil {
		if gasPrice, err = r.c.SuggestGasPrice(ctx); err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
		}
	}
	gasLimit, err := r.EstimateGas(ctx, to, data, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := r.c.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast tx: %w", err)
	}
	return signed.Hash(), nil
}

func (r *RPCClient) EstimateGas(ctx context.Context, to common.Address, data []byte, value *big.Int) (uint64, error) {
	gas, err := r.c.EstimateGas(ctx, ethereum.CallMsg{
		From:  r.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return 0, err
	}
	return CalculateGasMargin(new(big.Int).SetUint64(gas), 1000).Uint64(), nil
}

// ReceiptStatus reports the fate of a broadcast transaction for the
// pending tracker. A transaction the node has not mined yet is pending,
// never an error.
func (r *RPCClient) ReceiptStatus(ctx context.Context, txHash string) (pending.ReceiptState, error) {
	receipt, err := r.c.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err == ethereum.NotFound {
		return pending.ReceiptPending, nil
	}
	if err != nil {
		return pending.ReceiptPending, fmt.Errorf("query receipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return pending.ReceiptReverted, nil
	}
	return pending.ReceiptConfirmed, nil
}

var _ TxSender = (*RPCClient)(nil)
var _ pending.ReceiptSource = (*RPCClient)(nil)
