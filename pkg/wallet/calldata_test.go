package wallet

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	inToken  = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	outTok   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	ownerAdr = common.HexToAddress("0xAA00000000000000000000000000000000000001")
	witAddr  = common.HexToAddress("0xCC00000000000000000000000000000000000003")
)

func testSubmission() DCASubmission {
	return DCASubmission{
		InToken:        inToken,
		OutToken:       outTok,
		AmountPerTrade: big.NewInt(250),
		NumTrades:      big.NewInt(4),
		MinSlippage:    big.NewInt(50),
		MaxSlippage:    big.NewInt(1000),
		Delay:          big.NewInt(3600),
		PlatformWallet: ownerAdr,
		PlatformFeeBps: big.NewInt(50),
	}
}

func TestSubmitDCACalldata(t *testing.T) {
	data, err := SubmitDCACalldata(testSubmission(), witAddr)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	if !bytes.Equal(data[:4], dcaABI.Methods["submit"].ID) {
		t.Errorf("selector = %x", data[:4])
	}

	vals, err := dcaABI.Methods["submit"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(vals) != 3 {
		t.Fatalf("args = %d, want 3", len(vals))
	}
	if exec, ok := vals[1].(bool); !ok || exec {
		t.Errorf("submitAndExec = %v, want false", vals[1])
	}
	if got, ok := vals[2].(common.Address); !ok || got != witAddr {
		t.Errorf("witness = %v, want %s", vals[2], witAddr.Hex())
	}
}

func TestCancelDCACalldata(t *testing.T) {
	data, err := CancelDCACalldata(big.NewInt(7), witAddr)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(data[:4], dcaABI.Methods["cancel"].ID) {
		t.Errorf("selector = %x", data[:4])
	}

	vals, err := dcaABI.Methods["cancel"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if id := vals[0].(*big.Int); id.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("cycle id = %s", id)
	}
	if got := vals[1].(common.Address); got != witAddr {
		t.Errorf("witness = %s", got.Hex())
	}
}

func TestCancelLimitOrderCalldata(t *testing.T) {
	module := common.HexToAddress("0xDD00000000000000000000000000000000000004")
	minReturn := big.NewInt(123456)

	data, err := CancelLimitOrderCalldata(module, inToken, outTok, ownerAdr, minReturn, witAddr)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(data[:4], limitABI.Methods["cancelOrder"].ID) {
		t.Errorf("selector = %x", data[:4])
	}

	vals, err := limitABI.Methods["cancelOrder"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got := vals[0].(common.Address); got != module {
		t.Errorf("module = %s", got.Hex())
	}
	if got := vals[1].(common.Address); got != inToken {
		t.Errorf("input token = %s", got.Hex())
	}
	if got := vals[2].(common.Address); got != ownerAdr {
		t.Errorf("owner = %s", got.Hex())
	}
	if got := vals[3].(common.Address); got != witAddr {
		t.Errorf("witness = %s", got.Hex())
	}

	// the aux bytes carry the disclosed terms (outputToken, minReturn)
	aux, err := auxDataArgs.Unpack(vals[4].([]byte))
	if err != nil {
		t.Fatalf("unpack aux: %v", err)
	}
	if got := aux[0].(common.Address); got != outTok {
		t.Errorf("aux output token = %s", got.Hex())
	}
	if got := aux[1].(*big.Int); got.Cmp(minReturn) != 0 {
		t.Errorf("aux min return = %s", got)
	}
}

func TestCalculateGasMargin(t *testing.T) {
	// 10% pad
	got := CalculateGasMargin(big.NewInt(100000), 1000)
	if got.Cmp(big.NewInt(110000)) != 0 {
		t.Errorf("margin = %s, want 110000", got)
	}
	if got := CalculateGasMargin(big.NewInt(100000), 0); got.Cmp(big.NewInt(100000)) != 0 {
		t.Errorf("zero margin = %s", got)
	}
}
