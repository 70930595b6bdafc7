// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/genesis"
	"github.com/vechain/dpos/health"
	"github.com/vechain/dpos/kv"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/storage"
	"github.com/vechain/dpos/thor"
)

var logger = log.WithContext("pkg", "node")

type Options struct {
	BlockInterval time.Duration
	Health        *health.Health // optional
}

// eventLog is the part of the log db the node writes through.
type eventLog interface {
	Write(events []*logdb.Event) error
	Truncate(from uint32) error
	FilterEvents(ctx context.Context, filter *logdb.EventFilter) ([]*logdb.Event, error)
}

// Node drives the staker block by block. It is the single sequencing point:
// block production and every state mutation hold its lock.
type Node struct {
	mu       sync.Mutex
	routines sync.WaitGroup
	options  Options

	staker *staker.Staker
	ledger *balance.Ledger
	logDB  eventLog

	authors *roundRobin
	sets    *setRecorder

	eventFeed event.Feed
	pending   []*staker.Event

	// next log index within indexBlock
	indexBlock uint32
	nextIndex  uint32
}

// New opens a node over the given stores. An uninitialized store is bootstrapped
// with the genesis.
func New(store kv.Store, logDB *logdb.LogDB, gene *genesis.Genesis, options Options) (*Node, error) {
	if err := gene.Validate(); err != nil {
		return nil, errors.WithMessage(err, "genesis")
	}
	if options.BlockInterval <= 0 {
		options.BlockInterval = time.Duration(thor.BlockInterval) * time.Second
	}

	sctx := storage.NewContext(store)
	n := &Node{
		options: options,
		ledger:  balance.New(sctx),
		logDB:   logDB,
		sets:    &setRecorder{},
	}
	n.authors = &roundRobin{}

	s, err := staker.New(sctx, n.ledger, n.authors, n.sets, staker.EventSinkFunc(n.onEvent), gene.Config())
	if err != nil {
		return nil, err
	}
	n.staker = s
	n.authors.elected = s.Elected
	n.sets.block = s.BlockNumber

	initialized, err := s.Initialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		// events of a previous run on a fresh main db are stale
		if err := logDB.Truncate(0); err != nil {
			return nil, errors.Wrap(err, "reset log db")
		}
		if err := gene.Build(s); err != nil {
			return nil, errors.WithMessage(err, "build genesis")
		}
		logger.Info("staker initialized from genesis", "name", gene.Name, "validators", len(gene.Validators))
	} else {
		if err := n.restore(); err != nil {
			return nil, err
		}
	}
	if err := n.flush(); err != nil {
		return nil, err
	}
	return n, nil
}

// restore reconciles the log db with the staker state after a restart.
func (n *Node) restore() error {
	best := n.staker.BlockNumber()
	if err := n.logDB.Truncate(best + 1); err != nil {
		return errors.Wrap(err, "truncate log db")
	}
	events, err := n.logDB.FilterEvents(context.Background(), &logdb.EventFilter{Range: &logdb.Range{From: best, To: best}})
	if err != nil {
		return err
	}
	n.indexBlock, n.nextIndex = best, uint32(len(events))

	elected, err := n.staker.Elected()
	if err != nil {
		return err
	}
	n.sets.Accept(elected)
	logger.Info("node restored", "block", best, "elected", len(elected))
	return nil
}

func (n *Node) onEvent(ev *staker.Event) {
	n.pending = append(n.pending, ev)
}

// flush persists the events committed since the last flush and publishes them.
func (n *Node) flush() error {
	if len(n.pending) == 0 {
		return nil
	}
	indexBlock, nextIndex := n.indexBlock, n.nextIndex
	events := make([]*logdb.Event, 0, len(n.pending))
	for _, ev := range n.pending {
		if ev.Block != indexBlock {
			indexBlock, nextIndex = ev.Block, 0
		}
		events = append(events, newLogEvent(ev, nextIndex))
		nextIndex++
	}

	// unwritten events stay pending for the next flush
	if err := n.logDB.Write(events); err != nil {
		metricEventsWriteFailures().Add(1)
		return errors.Wrap(err, "write events")
	}
	n.pending = nil
	n.indexBlock, n.nextIndex = indexBlock, nextIndex
	for _, ev := range events {
		n.eventFeed.Send(ev)
	}
	return nil
}

func newLogEvent(ev *staker.Event, index uint32) *logdb.Event {
	return &logdb.Event{
		BlockNumber: ev.Block,
		Index:       index,
		Name:        string(ev.Name),
		Validator:   ev.Validator,
		Account:     ev.Account,
		Amount:      ev.Amount,
		Validators:  ev.Validators,
	}
}

// SubscribeEvents delivers every persisted event to ch. The node blocks until ch
// accepts, so subscribers must keep draining it.
func (n *Node) SubscribeEvents(ch chan *logdb.Event) event.Subscription {
	return n.eventFeed.Subscribe(ch)
}

// View runs fn with read access to the staker and ledger.
func (n *Node) View(fn func(s *staker.Staker, l *balance.Ledger) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return fn(n.staker, n.ledger)
}

// Submit runs a state changing call against the staker between blocks.
func (n *Node) Submit(fn func(s *staker.Staker) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := fn(n.staker)
	if ferr := n.flush(); ferr != nil {
		logger.Error("failed to flush events", "err", ferr)
		if err == nil {
			err = ferr
		}
	}
	return err
}

// ProduceBlocks produces count blocks back to back.
func (n *Node) ProduceBlocks(count int) error {
	for i := 0; i < count; i++ {
		if err := n.produceBlock(); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) produceBlock() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	num := n.staker.BlockNumber() + 1

	status := "produced"
	if err := n.staker.OnInitialize(num); err != nil {
		var be *staker.BoundaryError
		if !errors.As(err, &be) {
			metricBlocksCount().AddWithLabel(1, map[string]string{"status": "failed"})
			return errors.WithMessagef(err, "initialize block %d", num)
		}
		// failed steps are already reported by the staker
		logger.Warn("epoch boundary completed with failures", "block", num, "failed", len(be.Steps))
		status = "degraded"
	}

	n.authors.block = num
	if err := n.staker.OnFinalize(num); err != nil {
		logger.Warn("failed to finalize block", "block", num, "err", err)
		status = "degraded"
	}
	if err := n.flush(); err != nil {
		return err
	}

	if n.options.Health != nil {
		n.options.Health.NewBestBlock(num)
	}
	metricBlocksCount().AddWithLabel(1, map[string]string{"status": status})
	metricBlockDuration().Observe(time.Since(start).Milliseconds())
	logger.Debug("📦 produced block", "number", num, "elapsed", time.Since(start))
	return nil
}

// Run produces a block every block interval until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	defer n.routines.Wait()

	logger.Info("prepared to produce blocks", "interval", n.options.BlockInterval)
	n.routines.Go(func() { n.produceLoop(ctx) })
	return nil
}

func (n *Node) produceLoop(ctx context.Context) {
	ticker := time.NewTicker(n.options.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping block production")
			return
		case <-ticker.C:
			if err := n.produceBlock(); err != nil {
				logger.Error("failed to produce block", "err", err)
			}
		}
	}
}

// Status is a snapshot of the node progress.
type Status struct {
	BestBlock     uint32
	Epoch         uint32
	EpochLength   uint32
	Elected       []thor.Address
	LastSetUpdate uint32
	SetUpdates    uint64
	Validators    int
}

func (n *Node) Status() (*Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	stakes, err := n.staker.Stakes()
	if err != nil {
		return nil, err
	}
	set, at, updates := n.sets.last()
	return &Status{
		BestBlock:     n.staker.BlockNumber(),
		Epoch:         n.staker.CurrentEpoch(),
		EpochLength:   n.staker.Config().EpochLength,
		Elected:       set,
		LastSetUpdate: at,
		SetUpdates:    updates,
		Validators:    len(stakes),
	}, nil
}
