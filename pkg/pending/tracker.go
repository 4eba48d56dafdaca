// Package pending tracks wallet-submitted transactions that have not yet
// confirmed, tagged with the order intent they carry. The reconciliation
// engine uses it to answer two questions: which witnesses have an
// in-flight cancellation, and whether a submission is known to have
// reverted (evidence for abandoning a local-only order).
package pending

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pinefi/orderkeeper/pkg/util"
)

// IntentKind classifies what a tracked transaction is trying to do.
type IntentKind uint8

const (
	IntentPlaceOrder IntentKind = iota
	IntentCancelOrder
)

func (k IntentKind) String() string {
	if k == IntentCancelOrder {
		return "cancel"
	}
	return "place"
}

// Intent is one tracked transaction and the witnesses it affects.
type Intent struct {
	Kind      IntentKind
	TxHash    string
	Owner     common.Address
	ChainID   uint64
	Witnesses []string
}

// ReceiptState is the observed fate of a tracked transaction.
type ReceiptState uint8

const (
	ReceiptPending ReceiptState = iota
	ReceiptConfirmed
	ReceiptReverted
)

// ReceiptSource is the signing/session collaborator's view of a
// transaction's fate.
type ReceiptSource interface {
	ReceiptStatus(ctx context.Context, txHash string) (ReceiptState, error)
}

type Tracker struct {
	mu       sync.RWMutex
	pending  map[string]Intent       // txHash → intent
	settled  map[string]ReceiptState // txHash → confirmed/reverted
	receipts ReceiptSource
	clock    util.Clock
	log      *zap.SugaredLogger
}

func NewTracker(receipts ReceiptSource, clock util.Clock, log *zap.SugaredLogger) *Tracker {
	return &Tracker{
		pending:  make(map[string]Intent),
		settled:  make(map[string]ReceiptState),
		receipts: receipts,
		clock:    clock,
		log:      log,
	}
}

// Track registers a freshly broadcast transaction.
func (t *Tracker) Track(in Intent) {
	in.TxHash = strings.ToLower(in.TxHash)
	t.mu.Lock()
	t.pending[in.TxHash] = in
	t.mu.Unlock()
	t.log.Infow("tracking_tx", "hash", in.TxHash, "intent", in.Kind.String(), "witnesses", len(in.Witnesses))
}

// PendingFor returns the unconfirmed intents for an account.
func (t *Tracker) PendingFor(owner common.Address, chainID uint64) []Intent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Intent
	for _, in := range t.pending {
		if in.Owner == owner && in.ChainID == chainID {
			out = append(out, in)
		}
	}
	return out
}

// CancellingWitnesses returns the witnesses with an in-flight cancellation,
// so consumers can render "Cancelling…" before the indexer confirms.
func (t *Tracker) CancellingWitnesses(owner common.Address, chainID uint64) map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]bool)
	for _, in := range t.pending {
		if in.Kind != IntentCancelOrder || in.Owner != owner || in.ChainID != chainID {
			continue
		}
		for _, w := range in.Witnesses {
			out[w] = true
		}
	}
	return out
}

// Reverted reports whether a transaction is known to have reverted.
// An unknown or still-pending hash is not evidence of anything.
func (t *Tracker) Reverted(txHash string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settled[strings.ToLower(txHash)] == ReceiptReverted
}

// settle moves a transaction out of the pending set.
func (t *Tracker) settle(txHash string, state ReceiptState) {
	t.mu.Lock()
	in, ok := t.pending[txHash]
	if ok {
		delete(t.pending, txHash)
		t.settled[txHash] = state
	}
	t.mu.Unlock()
	if ok {
		if state == ReceiptReverted {
			t.log.Warnw("tx_reverted", "hash", txHash, "intent", in.Kind.String())
		} else {
			t.log.Infow("tx_confirmed", "hash", txHash, "intent", in.Kind.String())
		}
	}
}

// Watch polls receipts for every pending transaction until ctx ends.
// Receipt checks that fail are retried on the next pass; a transaction
// stays pending until a receipt proves otherwise.
func (t *Tracker) Watch(ctx context.Context, interval time.Duration) {
	if t.receipts == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(interval):
		}

		t.mu.RLock()
		hashes := make([]string, 0, len(t.pending))
		for h := range t.pending {
			hashes = append(hashes, h)
		}
		t.mu.RUnlock()

		for _, h := range hashes {
			state, err := t.receipts.ReceiptStatus(ctx, h)
			if err != nil {
				continue
			}
			if state != ReceiptPending {
				t.settle(h, state)
			}
		}
	}
}
