// Package store is the durable per-account, per-network record of orders
// this client has submitted. Records are written optimistically at
// submission time, before confirmation, and are keyed by witness.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pinefi/orderkeeper/pkg/order"
)

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Append writes one order unless its witness is already present.
// Appends are additive: a concurrent writer's record is never overwritten.
func (s *Store) Append(family order.Family, o order.Order) error {
	key := orderKey(family, o.ChainID, o.Owner, o.Witness)
	_, closer, err := s.db.Get(key)
	if err == nil {
		closer.Close()
		return nil // already present
	}
	if err != pebble.ErrNotFound {
		return fmt.Errorf("read order %s: %w", o.Witness, err)
	}
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", o.Witness, err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("save order %s: %w", o.Witness, err)
	}
	return nil
}

// AppendBatch persists a split-order batch atomically: either every
// sub-order lands or none does. A half-persisted batch after a confirmed
// submission is a correctness bug, not a degraded state.
func (s *Store) AppendBatch(family order.Family, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, o := range orders {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal order %s: %w", o.Witness, err)
		}
		if err := batch.Set(orderKey(family, o.ChainID, o.Owner, o.Witness), data, nil); err != nil {
			return fmt.Errorf("stage order %s: %w", o.Witness, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit order batch: %w", err)
	}
	return nil
}

// ReadAll returns every stored order for (family, owner, chain), tagged
// with local provenance.
func (s *Store) ReadAll(family order.Family, owner common.Address, chainID uint64) ([]order.Order, error) {
	prefix := orderPrefix(family, chainID, owner)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	defer iter.Close()

	var orders []order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o order.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue // skip records written by older versions
		}
		o.Source = order.SourceLocal
		orders = append(orders, o)
	}
	return orders, nil
}

// MarkCancelled optimistically records a broadcast cancellation. The
// indexer confirms (or contradicts) it on a later poll; remote wins then.
func (s *Store) MarkCancelled(family order.Family, owner common.Address, chainID uint64, witness, txHash string) error {
	key := orderKey(family, chainID, owner, witness)
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil // remote-only order, nothing local to update
	}
	if err != nil {
		return fmt.Errorf("read order %s: %w", witness, err)
	}
	var o order.Order
	uerr := json.Unmarshal(data, &o)
	closer.Close()
	if uerr != nil {
		return fmt.Errorf("decode order %s: %w", witness, uerr)
	}
	if o.Status.Terminal() {
		return nil // forward-only
	}
	o.Status = order.StatusCancelled
	o.CancelledHash = txHash
	out, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", witness, err)
	}
	if err := s.db.Set(key, out, pebble.Sync); err != nil {
		return fmt.Errorf("save order %s: %w", witness, err)
	}
	return nil
}

// Remove deletes a record. Used only when a local-only order is aged out
// as abandoned.
func (s *Store) Remove(family order.Family, owner common.Address, chainID uint64, witness string) error {
	if err := s.db.Delete(orderKey(family, chainID, owner, witness), pebble.Sync); err != nil {
		return fmt.Errorf("delete order %s: %w", witness, err)
	}
	return nil
}
