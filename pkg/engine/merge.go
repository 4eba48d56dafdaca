package engine

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
)

// Snapshot is one reconciled view of an account's orders. Consumers must
// treat it as replace-not-patch: a full snapshot, never a diff.
type Snapshot struct {
	Owner   common.Address `json:"owner"`
	ChainID uint64         `json:"chainId"`
	Family  order.Family   `json:"-"`
	TakenAt int64          `json:"takenAt"`
	Stale   bool           `json:"stale"` // remote fetch failed; remote half is the previous tick's
	Open    []order.Order  `json:"open"`
	History []order.Order  `json:"history"`
}

// Merge combines the authoritative-but-laggy remote snapshot with the
// optimistic local records:
//
//   open    = remote open ∪ (local open whose witness the remote has
//             never seen), deduplicated by witness, remote wins
//   history = remote closed, newest submission first
//
// A local record is never authoritative once the remote knows the same
// witness. The merge is idempotent and deterministic: equal inputs give
// identical output, including order.
func Merge(remote, local []order.Order) (open, history []order.Order) {
	remoteWitness := make(map[string]bool, len(remote))
	for _, o := range remote {
		remoteWitness[o.Witness] = true
	}

	seen := make(map[string]bool)
	for _, o := range remote {
		if seen[o.Witness] {
			continue // indexer duplicate
		}
		seen[o.Witness] = true
		o.Source = order.SourceRemote
		if o.Open() {
			open = append(open, o)
		} else {
			history = append(history, o)
		}
	}

	for _, o := range local {
		if !o.Open() || remoteWitness[o.Witness] || seen[o.Witness] {
			continue
		}
		seen[o.Witness] = true
		o.Source = order.SourceLocal
		open = append(open, o)
	}

	sortOrders(open)
	sortOrders(history)
	return open, history
}

// sortOrders orders by submission date descending with the witness as a
// deterministic tie-break, so repeated merges never drift.
func sortOrders(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].SubmissionDate != orders[j].SubmissionDate {
			return orders[i].SubmissionDate > orders[j].SubmissionDate
		}
		return orders[i].Witness < orders[j].Witness
	})
}
