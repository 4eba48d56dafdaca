// Package submit orchestrates the submission and cancellation flows:
// build calldata with the witness embedded, broadcast through the wallet
// collaborator, persist the optimistic local records, and register the
// pending transaction. The local write must complete before success is
// reported, otherwise the next reconciliation pass races a broadcast
// order it has never seen.
package submit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pinefi/orderkeeper/pkg/gas"
	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/pending"
	"github.com/pinefi/orderkeeper/pkg/planner"
	"github.com/pinefi/orderkeeper/pkg/store"
	"github.com/pinefi/orderkeeper/pkg/util"
	"github.com/pinefi/orderkeeper/pkg/wallet"
	"github.com/pinefi/orderkeeper/pkg/witness"
)

// Contracts holds the per-network module addresses and platform terms.
type Contracts struct {
	DCAModule      common.Address
	LimitOrderCore common.Address
	LimitModule    common.Address
	PlatformWallet common.Address
	PlatformFeeBps int64
	MinSlippageBps int64
	MaxSlippageBps int64
}

type Service struct {
	sender    wallet.TxSender
	store     *store.Store
	tracker   *pending.Tracker
	gas       *gas.Oracle
	clock     util.Clock
	contracts Contracts
	log       *zap.SugaredLogger
}

func NewService(sender wallet.TxSender, st *store.Store, tracker *pending.Tracker, oracle *gas.Oracle, clock util.Clock, contracts Contracts, log *zap.SugaredLogger) *Service {
	return &Service{
		sender:    sender,
		store:     st,
		tracker:   tracker,
		gas:       oracle,
		clock:     clock,
		contracts: contracts,
		log:       log,
	}
}

// PlaceDCA validates, broadcasts and locally persists a split-order batch.
// The returned orders are exactly what was written to the local store.
func (s *Service) PlaceDCA(ctx context.Context, req planner.Request) (string, []order.Order, error) {
	if s.sender == nil {
		return "", nil, fmt.Errorf("no wallet collaborator configured")
	}
	req.SubmissionTime = s.clock.Now().Unix()

	batch, err := planner.Plan(req)
	if err != nil {
		return "", nil, err
	}

	sub := wallet.DCASubmission{
		InToken:        req.InputToken,
		OutToken:       req.OutputToken,
		AmountPerTrade: batch.AmountPerTrade,
		NumTrades:      big.NewInt(req.NumTrades),
		MinSlippage:    big.NewInt(s.contracts.MinSlippageBps),
		MaxSlippage:    big.NewInt(s.contracts.MaxSlippageBps),
		Delay:          big.NewInt(req.IntervalSeconds),
		PlatformWallet: s.contracts.PlatformWallet,
		PlatformFeeBps: big.NewInt(s.contracts.PlatformFeeBps),
	}
	data, err := wallet.SubmitDCACalldata(sub, common.HexToAddress(batch.Commitment.Witness))
	if err != nil {
		return "", nil, err
	}

	// Native input is escrowed with the submission itself.
	value := big.NewInt(0)
	switch batch.SwapKind {
	case order.NativeToToken:
		value = new(big.Int).Mul(batch.AmountPerTrade, big.NewInt(req.NumTrades))
	case order.TokenToNative, order.TokenToToken:
	}

	gasPrice, _ := s.gas.Price()
	txHash, err := s.sender.SendTransaction(ctx, s.contracts.DCAModule, data, value, gasPrice)
	if err != nil {
		return "", nil, fmt.Errorf("broadcast submission: %w", err)
	}
	hash := txHash.Hex()

	witnesses := make([]string, len(batch.Orders))
	for i := range batch.Orders {
		batch.Orders[i].SubmissionHash = hash
		witnesses[i] = batch.Orders[i].Witness
	}

	// All N or none; a failure here is fatal to the flow, not ignorable.
	if err := s.store.AppendBatch(order.FamilyDCA, batch.Orders); err != nil {
		return "", nil, fmt.Errorf("persist submitted batch: %w", err)
	}

	s.tracker.Track(pending.Intent{
		Kind:      pending.IntentPlaceOrder,
		TxHash:    hash,
		Owner:     req.Owner,
		ChainID:   req.ChainID,
		Witnesses: witnesses,
	})
	s.log.Infow("dca_batch_submitted",
		"owner", req.Owner.Hex(), "tx", hash,
		"trades", req.NumTrades, "per_trade", batch.AmountPerTrade.String())

	return hash, batch.Orders, nil
}

// CancelDCA broadcasts a cancellation for a running cycle and marks the
// next-executable sub-order cancelled optimistically. The indexer
// confirms on a later poll.
func (s *Service) CancelDCA(ctx context.Context, owner common.Address, chainID uint64, cycleID *big.Int, witnessID string) (string, error) {
	if s.sender == nil {
		return "", fmt.Errorf("no wallet collaborator configured")
	}
	// The stored identity is a sub-witness (base address + decimal
	// suffix); the contract knows only the base commitment.
	data, err := wallet.CancelDCACalldata(cycleID, common.HexToAddress(witness.Base(witnessID)))
	if err != nil {
		return "", err
	}
	gasPrice, _ := s.gas.Price()
	txHash, err := s.sender.SendTransaction(ctx, s.contracts.DCAModule, data, big.NewInt(0), gasPrice)
	if err != nil {
		return "", fmt.Errorf("broadcast cancellation: %w", err)
	}
	hash := txHash.Hex()

	if err := s.store.MarkCancelled(order.FamilyDCA, owner, chainID, witnessID, hash); err != nil {
		s.log.Warnw("optimistic_cancel_not_recorded", "witness", witnessID, "err", err)
	}
	s.tracker.Track(pending.Intent{
		Kind:      pending.IntentCancelOrder,
		TxHash:    hash,
		Owner:     owner,
		ChainID:   chainID,
		Witnesses: []string{witnessID},
	})
	return hash, nil
}

// CancelLimit broadcasts a limit-order cancellation.
func (s *Service) CancelLimit(ctx context.Context, o order.Order) (string, error) {
	if s.sender == nil {
		return "", fmt.Errorf("no wallet collaborator configured")
	}
	data, err := wallet.CancelLimitOrderCalldata(
		s.contracts.LimitModule, o.InputToken, o.OutputToken, o.Owner, o.MinReturn,
		common.HexToAddress(o.Witness))
	if err != nil {
		return "", err
	}
	gasPrice, _ := s.gas.Price()
	txHash, err := s.sender.SendTransaction(ctx, s.contracts.LimitOrderCore, data, big.NewInt(0), gasPrice)
	if err != nil {
		return "", fmt.Errorf("broadcast cancellation: %w", err)
	}
	hash := txHash.Hex()

	if err := s.store.MarkCancelled(order.FamilyLimit, o.Owner, o.ChainID, o.Witness, hash); err != nil {
		s.log.Warnw("optimistic_cancel_not_recorded", "witness", o.Witness, "err", err)
	}
	s.tracker.Track(pending.Intent{
		Kind:      pending.IntentCancelOrder,
		TxHash:    hash,
		Owner:     o.Owner,
		ChainID:   o.ChainID,
		Witnesses: []string{o.Witness},
	})
	return hash, nil
}
