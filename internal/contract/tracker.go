package contract

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/interfaces"
	"github.com/misterplus/btdex/internal/repositories/ledger"
	"go.uber.org/atomic"
)

const historySize = 32

// FreeContracts holds the single reusable instance per contract type, nil
// where none qualifies. The tracker publishes a whole snapshot at once so
// readers never see one pointer updated and the others stale.
type FreeContracts struct {
	Sell          *Instance
	SellNoDeposit *Instance
	Buy           *Instance
}

func (f *FreeContracts) ByType(t escrow.ContractType) *Instance {
	switch t {
	case escrow.TypeSell:
		return f.Sell
	case escrow.TypeSellNoDeposit:
		return f.SellNoDeposit
	case escrow.TypeBuy:
		return f.Buy
	default:
		return nil
	}
}

// CycleSummary describes one finished synchronization cycle, kept in a
// bounded history for the status endpoint.
type CycleSummary struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	NoNewBlock bool          `json:"noNewBlock"`
	Discovered int           `json:"discovered"`
	Instances  int           `json:"instances"`
	Error      string        `json:"error,omitempty"`
}

// Tracker runs the background synchronization loop: discover new instances,
// reconcile every cached instance against confirmed and pending
// transactions, and republish the free-contract snapshot. A failed cycle is
// logged and skipped, and the published snapshot is withdrawn: without a
// node the free signal is unknown, never a stale positive.
type Tracker struct {
	// config
	interval   time.Duration
	operator   escrow.AccountID
	minVersion int32

	// deps
	client    ledger.Client
	registry  *Registry
	mediators *MediatorSelector
	log       interfaces.ILogger

	// state
	loading     *atomic.Bool
	free        *atomic.Pointer[FreeContracts]
	lastBlockID *atomic.Uint64

	historyMu sync.Mutex
	history   *deque.Deque[CycleSummary]
}

func NewTracker(client ledger.Client, registry *Registry, mediators *MediatorSelector, operator escrow.AccountID, minVersion int32, interval time.Duration, log interfaces.ILogger) *Tracker {
	return &Tracker{
		interval:    interval,
		operator:    operator,
		minVersion:  minVersion,
		client:      client,
		registry:    registry,
		mediators:   mediators,
		log:         log,
		loading:     atomic.NewBool(true),
		free:        atomic.NewPointer[FreeContracts](nil),
		lastBlockID: atomic.NewUint64(0),
		history:     deque.New[CycleSummary](historySize),
	}
}

// Run drives synchronization cycles at a fixed cadence until the context is
// cancelled. Intended to run under a lib.Task so callers can detect loop
// death.
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Infof("contract tracker started, interval %s", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		summary := t.runCycle(ctx)
		if summary.Error != "" {
			t.log.Warnf("sync cycle %s failed, skipping: %s", summary.ID, summary.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Loading is true until the first full cycle completes, letting dependents
// distinguish "no free contract discovered yet" from "none exists".
func (t *Tracker) Loading() bool {
	return t.loading.Load()
}

// Free returns the current free-contract snapshot. Nil means unknown: no
// cycle succeeded yet, or the last one failed.
func (t *Tracker) Free() *FreeContracts {
	return t.free.Load()
}

func (t *Tracker) FreeByType(typ escrow.ContractType) *Instance {
	free := t.free.Load()
	if free == nil {
		return nil
	}
	return free.ByType(typ)
}

func (t *Tracker) History() []CycleSummary {
	t.historyMu.Lock()
	defer t.historyMu.Unlock()

	out := make([]CycleSummary, 0, t.history.Len())
	for i := 0; i < t.history.Len(); i++ {
		out = append(out, t.history.At(i))
	}
	return out
}

func (t *Tracker) runCycle(ctx context.Context) CycleSummary {
	summary := CycleSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}

	err := t.cycle(ctx, &summary)
	if err != nil {
		summary.Error = err.Error()
		// the ledger is unreachable, so whether an instance is still free
		// is unknown: withdraw the snapshot rather than serve a stale one
		t.free.Store(nil)
	} else {
		t.loading.Store(false)
	}
	summary.Duration = time.Since(summary.StartedAt)

	t.pushHistory(summary)
	return summary
}

func (t *Tracker) cycle(ctx context.Context, summary *CycleSummary) error {
	added, err := t.registry.DiscoverSince(ctx)
	if err != nil {
		return err
	}
	summary.Discovered = len(added)
	for _, instance := range added {
		t.log.Infof("discovered %s instance %d (version %d, trusted %t)", instance.Type(), instance.Address(), instance.Version(), instance.Trusted())
	}

	block, err := t.client.GetLatestBlock(ctx)
	if err != nil {
		return err
	}
	noNewBlock := block.ID == t.lastBlockID.Load()
	summary.NoNewBlock = noNewBlock

	utxs, err := t.client.GetUnconfirmedTransactions(ctx, t.operator)
	if err != nil {
		return err
	}

	var free FreeContracts
	instances := t.registry.All()
	summary.Instances = len(instances)

	for _, instance := range instances {
		if !noNewBlock {
			data, err := t.client.GetInstance(ctx, instance.Address())
			if err != nil {
				return err
			}
			instance.Refresh(data)
		}
		instance.ApplyPending(utxs)

		if instance.freeEligible(t.operator, t.minVersion) &&
			t.mediators.IsAccepted(instance.Arbitrator1(), instance.Arbitrator2()) {
			// the last qualifying instance per type wins
			switch instance.Type() {
			case escrow.TypeSell:
				free.Sell = instance
			case escrow.TypeSellNoDeposit:
				free.SellNoDeposit = instance
			case escrow.TypeBuy:
				free.Buy = instance
			}
		}
	}

	// all three pointers swap together
	t.free.Store(&free)
	t.lastBlockID.Store(block.ID)
	return nil
}

func (t *Tracker) pushHistory(summary CycleSummary) {
	t.historyMu.Lock()
	defer t.historyMu.Unlock()
	if t.history.Len() == historySize {
		t.history.PopFront()
	}
	t.history.PushBack(summary)
}
