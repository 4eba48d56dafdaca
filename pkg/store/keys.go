package store

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
)

// Key schema:
//
//   ord:<family>:<chainID>:<owner>:<witness> → Order (JSON)
//
// Family and chain come first so one account's limit and DCA records on
// different networks never share a prefix scan.

const prefixOrder = "ord:"

func orderKey(family order.Family, chainID uint64, owner common.Address, witness string) []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%s:%s", prefixOrder, family, chainID, strings.ToLower(owner.Hex()), witness))
}

func orderPrefix(family order.Family, chainID uint64, owner common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%s:", prefixOrder, family, chainID, strings.ToLower(owner.Hex())))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
