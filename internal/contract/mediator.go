package contract

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/misterplus/btdex/internal/escrow"
	"golang.org/x/exp/slices"
)

var ErrRosterTooSmall = errors.New("arbitrator roster needs at least two entries")

// MediatorSelector maintains the roster of accepted arbitrators. The roster
// can change at runtime: an instance accepted at creation may later lose
// eligibility when one of its arbitrators is delisted.
type MediatorSelector struct {
	mu     sync.RWMutex
	roster []escrow.AccountID
}

func NewMediatorSelector(roster []escrow.AccountID) *MediatorSelector {
	return &MediatorSelector{
		roster: slices.Clone(roster),
	}
}

// PickTwo draws two distinct arbitrators for a new contract deployment
func (m *MediatorSelector) PickTwo() (escrow.AccountID, escrow.AccountID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.roster) < 2 {
		return 0, 0, ErrRosterTooSmall
	}

	first := rand.Intn(len(m.roster))
	second := rand.Intn(len(m.roster) - 1)
	if second >= first {
		second++
	}
	return m.roster[first], m.roster[second], nil
}

// IsAccepted reports whether both of an instance's arbitrators are on the
// current roster.
func (m *MediatorSelector) IsAccepted(arbitrator1, arbitrator2 escrow.AccountID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.roster, arbitrator1) && slices.Contains(m.roster, arbitrator2)
}

func (m *MediatorSelector) SetRoster(roster []escrow.AccountID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = slices.Clone(roster)
}

func (m *MediatorSelector) Roster() []escrow.AccountID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.roster)
}

// NewContractData builds the three-long creation payload for deploying a
// new escrow instance: the fee account followed by two randomly chosen
// arbitrators.
func NewContractData(feeAccount escrow.AccountID, mediators *MediatorSelector) ([3]int64, error) {
	arbitrator1, arbitrator2, err := mediators.PickTwo()
	if err != nil {
		return [3]int64{}, err
	}
	return [3]int64{int64(feeAccount), int64(arbitrator1), int64(arbitrator2)}, nil
}
