package pending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pinefi/orderkeeper/pkg/util"
)

var (
	trkOwner = common.HexToAddress("0xAA00000000000000000000000000000000000001")
	other    = common.HexToAddress("0xBB00000000000000000000000000000000000002")
)

type fakeReceipts struct {
	mu     sync.Mutex
	states map[string]ReceiptState
}

func (f *fakeReceipts) ReceiptStatus(ctx context.Context, txHash string) (ReceiptState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[txHash], nil
}

func (f *fakeReceipts) set(hash string, state ReceiptState) {
	f.mu.Lock()
	f.states[hash] = state
	f.mu.Unlock()
}

func newTestTracker(receipts ReceiptSource) *Tracker {
	return NewTracker(receipts, util.NewFakeClock(time.Unix(1700000000, 0)), zap.NewNop().Sugar())
}

func TestTrackAndPendingFor(t *testing.T) {
	tr := newTestTracker(nil)

	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0xAAA", Owner: trkOwner, ChainID: 1, Witnesses: []string{"0xw1"}})
	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0xbbb", Owner: other, ChainID: 1})
	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0xccc", Owner: trkOwner, ChainID: 137})

	got := tr.PendingFor(trkOwner, 1)
	if len(got) != 1 {
		t.Fatalf("pending = %d, want 1", len(got))
	}
	// hashes are canonicalized to lowercase on entry
	if got[0].TxHash != "0xaaa" {
		t.Errorf("hash = %s", got[0].TxHash)
	}
}

func TestCancellingWitnesses(t *testing.T) {
	tr := newTestTracker(nil)

	tr.Track(Intent{Kind: IntentCancelOrder, TxHash: "0x1", Owner: trkOwner, ChainID: 1, Witnesses: []string{"0xw1", "0xw2"}})
	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0x2", Owner: trkOwner, ChainID: 1, Witnesses: []string{"0xw3"}})
	tr.Track(Intent{Kind: IntentCancelOrder, TxHash: "0x3", Owner: other, ChainID: 1, Witnesses: []string{"0xw4"}})

	got := tr.CancellingWitnesses(trkOwner, 1)
	if !got["0xw1"] || !got["0xw2"] {
		t.Errorf("cancelling = %v", got)
	}
	if got["0xw3"] {
		t.Error("placement witness shown as cancelling")
	}
	if got["0xw4"] {
		t.Error("other account's witness leaked")
	}
}

func TestSettleMovesOutOfPending(t *testing.T) {
	tr := newTestTracker(nil)
	tr.Track(Intent{Kind: IntentCancelOrder, TxHash: "0xaaa", Owner: trkOwner, ChainID: 1, Witnesses: []string{"0xw1"}})

	tr.settle("0xaaa", ReceiptReverted)

	if len(tr.PendingFor(trkOwner, 1)) != 0 {
		t.Error("settled tx still pending")
	}
	if tr.CancellingWitnesses(trkOwner, 1)["0xw1"] {
		t.Error("settled cancel still shown in flight")
	}
	if !tr.Reverted("0xAAA") {
		t.Error("reverted lookup must be case-insensitive")
	}
	if tr.Reverted("0xunknown") {
		t.Error("unknown hash reported reverted")
	}
}

func TestConfirmedIsNotReverted(t *testing.T) {
	tr := newTestTracker(nil)
	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0xaaa", Owner: trkOwner, ChainID: 1})
	tr.settle("0xaaa", ReceiptConfirmed)
	if tr.Reverted("0xaaa") {
		t.Error("confirmed tx reported reverted")
	}
}

func TestWatchSettlesOnReceipt(t *testing.T) {
	receipts := &fakeReceipts{states: map[string]ReceiptState{"0xaaa": ReceiptPending}}
	clock := util.NewFakeClock(time.Unix(1700000000, 0))
	tr := NewTracker(receipts, clock, zap.NewNop().Sugar())
	tr.Track(Intent{Kind: IntentPlaceOrder, TxHash: "0xaaa", Owner: trkOwner, ChainID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tr.Watch(ctx, 15*time.Second)

	receipts.set("0xaaa", ReceiptReverted)

	deadline := time.After(2 * time.Second)
	for !tr.Reverted("0xaaa") {
		clock.Advance(15 * time.Second)
		select {
		case <-deadline:
			t.Fatal("watch never settled the transaction")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if len(tr.PendingFor(trkOwner, 1)) != 0 {
		t.Error("settled tx still pending")
	}
}

func TestWatchWithoutReceiptSourceReturns(t *testing.T) {
	tr := newTestTracker(nil)
	done := make(chan struct{})
	go func() {
		tr.Watch(context.Background(), time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch without a receipt source must return immediately")
	}
}
