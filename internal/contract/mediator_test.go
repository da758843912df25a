package contract

import (
	"testing"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickTwoDistinct(t *testing.T) {
	roster := []escrow.AccountID{10, 20, 30, 40}
	selector := NewMediatorSelector(roster)

	for i := 0; i < 100; i++ {
		a, b, err := selector.PickTwo()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
		assert.Contains(t, roster, a)
		assert.Contains(t, roster, b)
	}
}

func TestPickTwoRosterTooSmall(t *testing.T) {
	selector := NewMediatorSelector([]escrow.AccountID{10})
	_, _, err := selector.PickTwo()
	assert.ErrorIs(t, err, ErrRosterTooSmall)
}

func TestIsAccepted(t *testing.T) {
	selector := NewMediatorSelector([]escrow.AccountID{10, 20, 30})

	assert.True(t, selector.IsAccepted(10, 30))
	assert.False(t, selector.IsAccepted(10, 40))
	assert.False(t, selector.IsAccepted(40, 50))

	// delisting an arbitrator demotes instances that reference it
	selector.SetRoster([]escrow.AccountID{10, 20})
	assert.False(t, selector.IsAccepted(10, 30))
	assert.True(t, selector.IsAccepted(10, 20))
}

func TestNewContractData(t *testing.T) {
	selector := NewMediatorSelector([]escrow.AccountID{10, 20})

	data, err := NewContractData(7007, selector)
	require.NoError(t, err)
	assert.Equal(t, int64(7007), data[0])
	assert.ElementsMatch(t, []int64{10, 20}, []int64{data[1], data[2]})
}
