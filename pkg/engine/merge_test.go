package engine

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
)

func ord(witness string, status order.Status, submitted int64) order.Order {
	return order.Order{
		Witness:        witness,
		Owner:          common.HexToAddress("0xAA00000000000000000000000000000000000001"),
		ChainID:        1,
		Status:         status,
		SubmissionDate: submitted,
	}
}

func witnesses(orders []order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.Witness
	}
	return out
}

func TestMergeRemoteWins(t *testing.T) {
	remote := []order.Order{
		ord("0xw1", order.StatusAwaitingExecution, 100),
		ord("0xw2", order.StatusExecuted, 90),
	}
	local := []order.Order{
		ord("0xw1", order.StatusAwaitingExecution, 100), // remote knows it
		ord("0xw2", order.StatusAwaitingExecution, 90),  // stale local copy of a closed order
		ord("0xw3", order.StatusAwaitingExecution, 110), // remote has never seen it
	}

	open, history := Merge(remote, local)

	if len(open) != 2 {
		t.Fatalf("open = %v", witnesses(open))
	}
	// newest first: local-only 0xw3 (110) then remote 0xw1 (100)
	if open[0].Witness != "0xw3" || open[1].Witness != "0xw1" {
		t.Errorf("open order wrong: %v", witnesses(open))
	}
	if open[0].Source != order.SourceLocal {
		t.Errorf("0xw3 source = %v, want local", open[0].Source)
	}
	if open[1].Source != order.SourceRemote {
		t.Errorf("0xw1 source = %v, want remote", open[1].Source)
	}

	if len(history) != 1 || history[0].Witness != "0xw2" {
		t.Errorf("history = %v", witnesses(history))
	}
}

func TestMergeLocalNeverShadowsRemoteTerminal(t *testing.T) {
	// the local record still says open; the remote closed it
	remote := []order.Order{ord("0xw1", order.StatusCancelled, 100)}
	local := []order.Order{ord("0xw1", order.StatusAwaitingExecution, 100)}

	open, history := Merge(remote, local)
	if len(open) != 0 {
		t.Errorf("cancelled order resurfaced in open: %v", witnesses(open))
	}
	if len(history) != 1 || history[0].Status != order.StatusCancelled {
		t.Errorf("history = %+v", history)
	}
}

func TestMergeDedupesIndexerDuplicates(t *testing.T) {
	remote := []order.Order{
		ord("0xw1", order.StatusAwaitingExecution, 100),
		ord("0xw1", order.StatusAwaitingExecution, 100),
	}
	open, _ := Merge(remote, nil)
	if len(open) != 1 {
		t.Errorf("open = %v", witnesses(open))
	}
}

func TestMergeClosedLocalExcluded(t *testing.T) {
	// optimistically cancelled local record, remote still unaware:
	// it leaves the open view and must not pollute remote history
	local := []order.Order{ord("0xw1", order.StatusCancelled, 100)}
	open, history := Merge(nil, local)
	if len(open) != 0 || len(history) != 0 {
		t.Errorf("open=%v history=%v", witnesses(open), witnesses(history))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	remote := []order.Order{
		ord("0xw2", order.StatusAwaitingExecution, 50),
		ord("0xw1", order.StatusExecuted, 100),
		ord("0xw4", order.StatusAwaitingExecution, 50), // same date as 0xw2
	}
	local := []order.Order{ord("0xw3", order.StatusAwaitingExecution, 70)}

	open1, hist1 := Merge(remote, local)
	open2, hist2 := Merge(remote, local)

	if len(open1) != len(open2) || len(hist1) != len(hist2) {
		t.Fatal("repeated merge changed cardinality")
	}
	for i := range open1 {
		if open1[i].Witness != open2[i].Witness {
			t.Errorf("open drifted at %d: %s vs %s", i, open1[i].Witness, open2[i].Witness)
		}
	}

	// equal submission dates break ties on witness, deterministically
	if open1[1].Witness != "0xw2" || open1[2].Witness != "0xw4" {
		t.Errorf("tie-break wrong: %v", witnesses(open1))
	}
}

func TestMergeHistorySortedNewestFirst(t *testing.T) {
	remote := []order.Order{
		ord("0xw1", order.StatusExecuted, 50),
		ord("0xw2", order.StatusCancelled, 150),
		ord("0xw3", order.StatusExecuted, 100),
	}
	_, history := Merge(remote, nil)
	want := []string{"0xw2", "0xw3", "0xw1"}
	for i, w := range want {
		if history[i].Witness != w {
			t.Fatalf("history = %v, want %v", witnesses(history), want)
		}
	}
}
