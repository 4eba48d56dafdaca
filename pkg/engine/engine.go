// Package engine reconciles the three order sources — the optimistic
// local store, the remote indexer, and the wallet's pending-transaction
// set — into open and history views on a fixed polling cadence.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pinefi/orderkeeper/pkg/order"
	"github.com/pinefi/orderkeeper/pkg/util"
)

// RemoteSource is one order family's indexer.
type RemoteSource interface {
	FetchAll(ctx context.Context, owner common.Address) ([]order.Order, error)
	Family() order.Family
}

// LocalStore is the client's own optimistic record of submissions.
type LocalStore interface {
	ReadAll(family order.Family, owner common.Address, chainID uint64) ([]order.Order, error)
	Remove(family order.Family, owner common.Address, chainID uint64, witness string) error
}

// RevertedSource answers whether a submission transaction is known to
// have reverted.
type RevertedSource interface {
	Reverted(txHash string) bool
}

// abandonAfterMisses is how many consecutive remote polls a local-only
// order must be absent from, with its submission confirmed reverted,
// before it is aged out of the open view. One miss is normal indexer lag;
// two with a reverted submission means the order will never appear.
const abandonAfterMisses = 2

// Engine polls one (owner, chain, family) tuple. The two order families
// poll independently; run one Engine per family.
type Engine struct {
	remote   RemoteSource
	local    LocalStore
	reverted RevertedSource
	clock    util.Clock
	interval time.Duration
	owner    common.Address
	chainID  uint64
	log      *zap.SugaredLogger

	trigger chan struct{}

	mu         sync.RWMutex
	lastRemote []order.Order
	misses     map[string]int
	terminal   map[string]order.Status
	latest     Snapshot
	haveSnap   bool
	subs       []func(Snapshot)
}

func New(remote RemoteSource, local LocalStore, reverted RevertedSource, clock util.Clock, interval time.Duration, owner common.Address, chainID uint64, log *zap.SugaredLogger) *Engine {
	return &Engine{
		remote:   remote,
		local:    local,
		reverted: reverted,
		clock:    clock,
		interval: interval,
		owner:    owner,
		chainID:  chainID,
		log:      log,
		trigger:  make(chan struct{}, 1),
		misses:   make(map[string]int),
		terminal: make(map[string]order.Status),
	}
}

// Subscribe registers a snapshot consumer. Callbacks run on the engine
// goroutine and must not block.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.mu.Lock()
	e.subs = append(e.subs, fn)
	e.mu.Unlock()
}

// Latest returns the most recent snapshot, if any tick has completed.
func (e *Engine) Latest() (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest, e.haveSnap
}

// Trigger requests an eager tick, e.g. right after a submission. If a
// tick is already in flight the request is dropped, not queued.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run polls until ctx ends. Ticks are strictly serial: the loop is the
// only place a tick starts, so two ticks for the same tuple can never
// interleave.
func (e *Engine) Run(ctx context.Context) {
	e.tick(ctx) // eager first pass
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(e.interval):
			e.tick(ctx)
		case <-e.trigger:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	// A fetch that outlives the polling interval is abandoned for this
	// tick and retried on the next one.
	fetchCtx, cancel := context.WithTimeout(ctx, e.interval)
	remote, err := e.remote.FetchAll(fetchCtx, e.owner)
	cancel()

	remoteFresh := err == nil
	if remoteFresh {
		e.mu.Lock()
		e.lastRemote = remote
		e.mu.Unlock()
	} else {
		// Keep the previous snapshot rather than blanking the view on a
		// transient failure.
		e.mu.RLock()
		remote = e.lastRemote
		e.mu.RUnlock()
		e.log.Warnw("remote_fetch_failed",
			"family", e.remote.Family().String(), "owner", e.owner.Hex(), "err", err)
	}

	local, err := e.local.ReadAll(e.remote.Family(), e.owner, e.chainID)
	if err != nil {
		e.log.Warnw("local_read_failed", "family", e.remote.Family().String(), "err", err)
		local = nil
	}

	if remoteFresh {
		local = e.ageOutAbandoned(remote, local)
	}

	open, history := Merge(remote, local)
	open = e.enforceMonotonic(open, history)

	snap := Snapshot{
		Owner:   e.owner,
		ChainID: e.chainID,
		Family:  e.remote.Family(),
		TakenAt: e.clock.Now().Unix(),
		Stale:   !remoteFresh,
		Open:    open,
		History: history,
	}

	e.mu.Lock()
	e.latest = snap
	e.haveSnap = true
	subs := make([]func(Snapshot), len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// ageOutAbandoned counts, per witness, consecutive fresh remote polls a
// local-only open order has been absent from. Once the threshold is hit
// and the submission is confirmed reverted, the record is dropped from
// the store and from this tick's local set. History is not scrubbed.
func (e *Engine) ageOutAbandoned(remote, local []order.Order) []order.Order {
	remoteWitness := make(map[string]bool, len(remote))
	for _, o := range remote {
		remoteWitness[o.Witness] = true
	}

	kept := local[:0]
	for _, o := range local {
		if !o.Open() || remoteWitness[o.Witness] {
			e.mu.Lock()
			delete(e.misses, o.Witness)
			e.mu.Unlock()
			kept = append(kept, o)
			continue
		}

		e.mu.Lock()
		e.misses[o.Witness]++
		missed := e.misses[o.Witness]
		e.mu.Unlock()

		if missed >= abandonAfterMisses && o.SubmissionHash != "" && e.reverted != nil && e.reverted.Reverted(o.SubmissionHash) {
			e.log.Infow("abandoning_local_order",
				"witness", o.Witness, "tx", o.SubmissionHash, "misses", missed)
			if err := e.local.Remove(e.remote.Family(), e.owner, e.chainID, o.Witness); err != nil {
				e.log.Warnw("abandon_remove_failed", "witness", o.Witness, "err", err)
			}
			e.mu.Lock()
			delete(e.misses, o.Witness)
			e.mu.Unlock()
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// enforceMonotonic guarantees a witness observed in a terminal status is
// never re-promoted to the open view by a lagging snapshot.
func (e *Engine) enforceMonotonic(open, history []order.Order) []order.Order {
	e.mu.Lock()
	for _, o := range history {
		if o.Status.Terminal() {
			e.terminal[o.Witness] = o.Status
		}
	}
	filtered := open[:0]
	for _, o := range open {
		if _, wasTerminal := e.terminal[o.Witness]; wasTerminal {
			continue
		}
		filtered = append(filtered, o)
	}
	e.mu.Unlock()
	return filtered
}
