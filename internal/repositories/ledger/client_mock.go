package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/misterplus/btdex/internal/escrow"
)

var ErrMockUnavailable = errors.New("node unavailable")

// ClientMock is an in-memory ledger used by tracker tests. Instances are
// registered per code hash in deployment order.
type ClientMock struct {
	mu sync.Mutex

	latestBlock Block
	instances   map[uint64][]DeployedInstance
	utxs        []Transaction
	broadcasted [][]byte

	// Unavailable makes every call fail, simulating connectivity loss
	Unavailable bool

	nextTxID uint64
}

func NewClientMock() *ClientMock {
	return &ClientMock{
		instances: make(map[uint64][]DeployedInstance),
		nextTxID:  1,
	}
}

func (m *ClientMock) SetLatestBlock(block Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestBlock = block
}

func (m *ClientMock) Deploy(codeHashID uint64, instance DeployedInstance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[codeHashID] = append(m.instances[codeHashID], instance)
}

// UpdateInstance replaces the stored on-chain view of an instance
func (m *ClientMock) UpdateInstance(instance DeployedInstance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hashID, list := range m.instances {
		for i := range list {
			if list[i].Address == instance.Address {
				m.instances[hashID][i] = instance
				return
			}
		}
	}
}

func (m *ClientMock) SetUnconfirmed(txs ...Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.utxs = txs
}

func (m *ClientMock) Broadcasted() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasted
}

func (m *ClientMock) GetLatestBlock(ctx context.Context) (Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return Block{}, ErrMockUnavailable
	}
	return m.latestBlock, nil
}

func (m *ClientMock) GetUnconfirmedTransactions(ctx context.Context, account escrow.AccountID) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, ErrMockUnavailable
	}
	return append([]Transaction{}, m.utxs...), nil
}

func (m *ClientMock) GetDeployedInstances(ctx context.Context, codeHashID uint64, since Cursor) ([]DeployedInstance, Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, since, ErrMockUnavailable
	}

	list := m.instances[codeHashID]
	start := 0
	for i, instance := range list {
		if uint64(instance.Address) == uint64(since) {
			start = i + 1
		}
	}

	fresh := append([]DeployedInstance{}, list[start:]...)
	newCursor := since
	if len(fresh) > 0 {
		newCursor = Cursor(fresh[len(fresh)-1].Address)
	}
	return fresh, newCursor, nil
}

func (m *ClientMock) GetInstance(ctx context.Context, address escrow.AccountID) (DeployedInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return DeployedInstance{}, ErrMockUnavailable
	}
	for _, list := range m.instances {
		for _, instance := range list {
			if instance.Address == address {
				return instance, nil
			}
		}
	}
	return DeployedInstance{}, errors.New("unknown instance")
}

func (m *ClientMock) BroadcastTransaction(ctx context.Context, signedBytes []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return 0, ErrMockUnavailable
	}
	m.broadcasted = append(m.broadcasted, signedBytes)
	id := m.nextTxID
	m.nextTxID++
	return id, nil
}
