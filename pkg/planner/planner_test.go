package planner

import (
	"errors"
	"math/big"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/ratemath"
)

var (
	planOwner = common.HexToAddress("0xAA00000000000000000000000000000000000001")
	outToken  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func baseRequest() Request {
	return Request{
		Owner:           planOwner,
		ChainID:         1,
		InputToken:      order.NativeToken,
		OutputToken:     outToken,
		TotalInput:      big.NewInt(1000),
		NumTrades:       4,
		IntervalSeconds: 3600,
		SubmissionTime:  1700000000,
		SubmissionHash:  "0xsub",
	}
}

func TestPlanBuildsBatch(t *testing.T) {
	batch, err := Plan(baseRequest())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if batch.SwapKind != order.NativeToToken {
		t.Errorf("kind = %v, want native->token", batch.SwapKind)
	}
	if batch.AmountPerTrade.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("per trade = %s, want 250", batch.AmountPerTrade)
	}
	if len(batch.Orders) != 4 {
		t.Fatalf("len = %d, want 4", len(batch.Orders))
	}
	if batch.Commitment.Witness == "" || batch.Commitment.SecretHex == "" {
		t.Fatal("batch has no witness commitment")
	}

	for i, o := range batch.Orders {
		wantWitness := batch.Commitment.Witness + strconv.Itoa(i)
		if o.Witness != wantWitness {
			t.Errorf("order %d witness = %s, want %s", i, o.Witness, wantWitness)
		}
		if o.InputAmount.Cmp(batch.AmountPerTrade) != 0 {
			t.Errorf("order %d amount = %s", i, o.InputAmount)
		}
		if o.Status != order.StatusAwaitingExecution || o.Source != order.SourceLocal {
			t.Errorf("order %d status/source = %v/%v", i, o.Status, o.Source)
		}
		wantEst := int64(1700000000 + 3600*i)
		if o.EstimatedExecutionDate != wantEst {
			t.Errorf("order %d est exec = %d, want %d", i, o.EstimatedExecutionDate, wantEst)
		}
		wantSeq := int64(4 - i)
		if o.Index != wantSeq || o.TradesLeft != wantSeq {
			t.Errorf("order %d index/tradesLeft = %d/%d, want %d", i, o.Index, o.TradesLeft, wantSeq)
		}
	}

	// at plan time every sub-order satisfies index == tradesLeft, so all
	// of them report next executable; only the indexer's nTradesLeft
	// decrements break the tie as trades execute
	execs := 0
	for i := range batch.Orders {
		if batch.Orders[i].NextExecutable() {
			execs++
		}
	}
	if execs != 4 {
		t.Errorf("next-executable count = %d", execs)
	}
}

func TestPlanTruncatesRemainder(t *testing.T) {
	req := baseRequest()
	req.TotalInput = big.NewInt(1001)
	req.NumTrades = 3

	batch, err := Plan(req)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if batch.AmountPerTrade.Cmp(big.NewInt(333)) != 0 {
		t.Errorf("per trade = %s, want 333", batch.AmountPerTrade)
	}

	// the remainder stays with the owner: sum of trades < total,
	// shortfall strictly below numTrades
	total := new(big.Int)
	for _, o := range batch.Orders {
		total.Add(total, o.InputAmount)
	}
	shortfall := new(big.Int).Sub(req.TotalInput, total)
	if shortfall.Sign() < 0 {
		t.Fatalf("planned more than the total: %s > %s", total, req.TotalInput)
	}
	if shortfall.Cmp(big.NewInt(req.NumTrades)) >= 0 {
		t.Errorf("shortfall %s >= numTrades", shortfall)
	}
}

func TestPlanValidation(t *testing.T) {
	t.Run("native to native", func(t *testing.T) {
		req := baseRequest()
		req.OutputToken = order.NativeToken
		if _, err := Plan(req); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("zero total", func(t *testing.T) {
		req := baseRequest()
		req.TotalInput = big.NewInt(0)
		if _, err := Plan(req); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("zero trades", func(t *testing.T) {
		req := baseRequest()
		req.NumTrades = 0
		if _, err := Plan(req); !errors.Is(err, ratemath.ErrZeroTrades) {
			t.Errorf("err = %v, want ErrZeroTrades", err)
		}
	})

	t.Run("zero interval", func(t *testing.T) {
		req := baseRequest()
		req.IntervalSeconds = 0
		if _, err := Plan(req); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("below floor", func(t *testing.T) {
		req := baseRequest()
		req.TotalInput = big.NewInt(100)
		req.NumTrades = 50
		req.PerNetworkFloor = big.NewInt(3)
		if _, err := Plan(req); !errors.Is(err, ratemath.ErrBelowMinimum) {
			t.Errorf("err = %v, want ErrBelowMinimum", err)
		}
	})
}

func TestPlanFreshWitnessPerBatch(t *testing.T) {
	a, err := Plan(baseRequest())
	if err != nil {
		t.Fatalf("plan a: %v", err)
	}
	b, err := Plan(baseRequest())
	if err != nil {
		t.Fatalf("plan b: %v", err)
	}
	if a.Commitment.Witness == b.Commitment.Witness {
		t.Error("two batches shared a witness")
	}
}
