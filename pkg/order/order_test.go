package order

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		wire    string
		want    Status
		wantErr bool
	}{
		{wire: "awaitingExec", want: StatusAwaitingExecution},
		{wire: "open", want: StatusAwaitingExecution}, // legacy indexer vocabulary
		{wire: "executed", want: StatusExecuted},
		{wire: "cancelled", want: StatusCancelled},
		{wire: "canceled", wantErr: true},
		{wire: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.wire)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error", tt.wire)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", tt.wire, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.wire, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusAwaitingExecution.Terminal() {
		t.Error("awaiting must not be terminal")
	}
	if !StatusExecuted.Terminal() || !StatusCancelled.Terminal() {
		t.Error("executed and cancelled must be terminal")
	}
}

func TestClassifySwap(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")

	if k, err := ClassifySwap(NativeToken, token); err != nil || k != NativeToToken {
		t.Errorf("native->token: kind=%v err=%v", k, err)
	}
	if k, err := ClassifySwap(token, NativeToken); err != nil || k != TokenToNative {
		t.Errorf("token->native: kind=%v err=%v", k, err)
	}
	if k, err := ClassifySwap(token, other); err != nil || k != TokenToToken {
		t.Errorf("token->token: kind=%v err=%v", k, err)
	}
	if _, err := ClassifySwap(NativeToken, NativeToken); err == nil {
		t.Error("native->native must be rejected")
	}
}

func TestNextExecutable(t *testing.T) {
	o := Order{NumTrades: 5, Index: 3, TradesLeft: 3}
	if !o.NextExecutable() {
		t.Error("index == tradesLeft must be next executable")
	}
	o.Index = 4
	if o.NextExecutable() {
		t.Error("index != tradesLeft must not be next executable")
	}
	limit := Order{NumTrades: 0}
	if limit.NextExecutable() {
		t.Error("limit orders have no next-executable slot")
	}
}

func TestOrderJSONRoundTrip(t *testing.T) {
	// amounts beyond float64 precision must survive the trip
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	in := Order{
		Witness:                "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef3",
		Owner:                  common.HexToAddress("0xAA00000000000000000000000000000000000001"),
		ChainID:                1,
		InputToken:             NativeToken,
		OutputToken:            common.HexToAddress("0x2222222222222222222222222222222222222222"),
		InputAmount:            amount,
		NumTrades:              5,
		Index:                  3,
		TradesLeft:             3,
		CycleID:                "42",
		Status:                 StatusAwaitingExecution,
		Source:                 SourceLocal,
		SubmissionHash:         "0xabc",
		SubmissionDate:         1700000000,
		EstimatedExecutionDate: 1700003600,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Order
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.Witness != in.Witness || out.Owner != in.Owner || out.ChainID != in.ChainID {
		t.Errorf("identity fields drifted: %+v", out)
	}
	if out.InputAmount.Cmp(amount) != 0 {
		t.Errorf("amount = %s, want %s", out.InputAmount, amount)
	}
	if out.Status != StatusAwaitingExecution {
		t.Errorf("status = %v", out.Status)
	}
	if out.Index != 3 || out.TradesLeft != 3 || out.NumTrades != 5 {
		t.Errorf("sequencing fields drifted: %+v", out)
	}
	if out.CycleID != "42" {
		t.Errorf("cycle id = %q", out.CycleID)
	}
	if out.MinReturn != nil {
		t.Errorf("absent minReturn decoded as %s", out.MinReturn)
	}
}

func TestOrderJSONRejectsBadAmount(t *testing.T) {
	blob := `{"witness":"0xw0","owner":"0xaa00000000000000000000000000000000000001","status":"awaitingExec","inputAmount":"not-a-number"}`
	var o Order
	if err := json.Unmarshal([]byte(blob), &o); err == nil {
		t.Error("expected error for non-decimal amount")
	}
}
