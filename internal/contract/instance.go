package contract

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/repositories/ledger"
)

// Instance is the locally cached state of one deployed escrow contract.
// It is created on first discovery, mutated only by the tracker replaying
// ledger-observed effects, and never removed for the process lifetime.
type Instance struct {
	// immutable after discovery
	address        escrow.AccountID
	typ            escrow.ContractType
	creator        escrow.AccountID
	feeAccount     escrow.AccountID
	arbitrator1    escrow.AccountID
	arbitrator2    escrow.AccountID
	version        int32
	trusted        bool
	takeMethodHash []byte

	mu             sync.RWMutex
	stage          escrow.Stage
	stateKnown     bool
	creatorDispute bool
	takerDispute   bool
	rate           int64
	security       int64
	amount         int64
	nonce          int64
	balance        int64
	taker          escrow.AccountID
	pauseTimeoutAt time.Time
	hasPending     bool
	pendingTake    bool
}

func NewInstance(template *Template, data ledger.DeployedInstance, trusted bool) *Instance {
	i := &Instance{
		address:        data.Address,
		typ:            template.Type,
		creator:        data.Creator,
		feeAccount:     data.FeeAccount(),
		arbitrator1:    data.Arbitrator1(),
		arbitrator2:    data.Arbitrator2(),
		version:        data.Version,
		trusted:        trusted,
		takeMethodHash: template.TakeMethodHashBytes(),
	}
	i.Refresh(data)
	return i
}

// ID keys the instance in the registry collection
func (i *Instance) ID() string {
	return strconv.FormatUint(uint64(i.address), 10)
}

func (i *Instance) Address() escrow.AccountID     { return i.address }
func (i *Instance) Type() escrow.ContractType     { return i.typ }
func (i *Instance) Creator() escrow.AccountID     { return i.creator }
func (i *Instance) FeeAccount() escrow.AccountID  { return i.feeAccount }
func (i *Instance) Arbitrator1() escrow.AccountID { return i.arbitrator1 }
func (i *Instance) Arbitrator2() escrow.AccountID { return i.arbitrator2 }
func (i *Instance) Version() int32                { return i.version }
func (i *Instance) Trusted() bool                 { return i.trusted }

// Refresh overwrites the cached machine state from a fresh on-chain view.
// Called when a new block was observed; the cheap pending-only path is
// ApplyPending.
func (i *Instance) Refresh(data ledger.DeployedInstance) {
	stage, creatorDispute, takerDispute, ok := escrow.DecodeState(data.StateCode)

	i.mu.Lock()
	defer i.mu.Unlock()

	i.stage = stage
	i.stateKnown = ok
	i.creatorDispute = creatorDispute
	i.takerDispute = takerDispute
	i.rate = data.Rate
	i.security = data.Security
	i.amount = data.Amount
	i.nonce = data.Nonce
	i.balance = data.Balance
	i.taker = data.Taker
	i.pauseTimeoutAt = data.PauseTimeoutAt
}

// ApplyPending rescans the unconfirmed transaction set. A pending
// transaction addressed to this instance sets hasPending; one whose payload
// starts with the take method hash provisionally marks the offer as taken.
func (i *Instance) ApplyPending(utxs []ledger.Transaction) {
	hasPending := false
	pendingTake := false
	for _, tx := range utxs {
		if tx.Recipient != i.address {
			continue
		}
		hasPending = true
		if len(tx.Attachment) >= len(i.takeMethodHash) && bytes.Equal(tx.Attachment[:len(i.takeMethodHash)], i.takeMethodHash) {
			pendingTake = true
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.hasPending = hasPending
	i.pendingTake = pendingTake
}

func (i *Instance) Stage() escrow.Stage {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stage
}

// EffectiveStage folds in pending effects: an open offer with an
// unconfirmed take in flight is shown as taken already
func (i *Instance) EffectiveStage() escrow.Stage {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.pendingTake && i.stage == escrow.StageOpen {
		return escrow.StageTaken
	}
	return i.stage
}

func (i *Instance) Disputed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.creatorDispute || i.takerDispute
}

func (i *Instance) HasPending() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.hasPending
}

// Snapshot is a read-consistent copy of the mutable state for API consumers
type Snapshot struct {
	Address        escrow.AccountID
	Type           escrow.ContractType
	Creator        escrow.AccountID
	FeeAccount     escrow.AccountID
	Arbitrator1    escrow.AccountID
	Arbitrator2    escrow.AccountID
	Version        int32
	Trusted        bool
	Stage          escrow.Stage
	StateKnown     bool
	CreatorDispute bool
	TakerDispute   bool
	Rate           int64
	Security       int64
	Amount         int64
	Nonce          int64
	Balance        int64
	Taker          escrow.AccountID
	PauseTimeoutAt time.Time
	HasPending     bool
	PendingTake    bool
}

func (i *Instance) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Snapshot{
		Address:        i.address,
		Type:           i.typ,
		Creator:        i.creator,
		FeeAccount:     i.feeAccount,
		Arbitrator1:    i.arbitrator1,
		Arbitrator2:    i.arbitrator2,
		Version:        i.version,
		Trusted:        i.trusted,
		Stage:          i.stage,
		StateKnown:     i.stateKnown,
		CreatorDispute: i.creatorDispute,
		TakerDispute:   i.takerDispute,
		Rate:           i.rate,
		Security:       i.security,
		Amount:         i.amount,
		Nonce:          i.nonce,
		Balance:        i.balance,
		Taker:          i.taker,
		PauseTimeoutAt: i.pauseTimeoutAt,
		HasPending:     i.hasPending,
		PendingTake:    i.pendingTake,
	}
}

// freeEligible is the free-pool predicate evaluated by the tracker each
// cycle. minVersion excludes legacy templates.
func (i *Instance) freeEligible(operator escrow.AccountID, minVersion int32) bool {
	if !i.trusted || i.creator != operator || i.version < minVersion {
		return false
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stateKnown &&
		i.stage == escrow.StageFinished &&
		!i.creatorDispute && !i.takerDispute &&
		!i.hasPending
}
