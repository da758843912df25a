package escrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creator        AccountID = 1001
	taker          AccountID = 2002
	arbitrator     AccountID = 3003
	arbitrator2Acc AccountID = 3004
	feeAccount     AccountID = 4004
	stranger       AccountID = 5005
)

func newTestMachine(t ContractType) *Machine {
	return NewMachine(Params{
		Type:        t,
		Creator:     creator,
		FeeAccount:  feeAccount,
		Arbitrator1: arbitrator,
		Arbitrator2: arbitrator2Acc,
	})
}

func at(minute int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
}

func openOffer(t *testing.T, m *Machine, funded, security int64) {
	t.Helper()
	out := m.Update(Call{Sender: creator, Sent: funded, Now: at(0)}, 100, security, 60)
	require.Equal(t, OutcomeApplied, out.Kind)
	require.Equal(t, StageOpen, m.Stage())
}

func TestUpdateOpensOffer(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	assert.Equal(t, int64(10000), m.Amount())
	assert.Equal(t, int64(1000), m.Security())
	assert.Equal(t, int64(100), m.Rate())
	assert.Equal(t, int64(1), m.Nonce())
	assert.Equal(t, m.Balance()-m.Security(), m.Amount())
}

func TestUpdateZeroPauseStaysPaused(t *testing.T) {
	m := newTestMachine(TypeSell)
	out := m.Update(Call{Sender: creator, Sent: 11000, Now: at(0)}, 100, 1000, 0)
	require.Equal(t, OutcomeApplied, out.Kind)
	assert.Equal(t, StagePaused, m.Stage())
	assert.Equal(t, int64(10000), m.Amount())
}

func TestUpdateWithdraw(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.Update(Call{Sender: creator, Now: at(1)}, 100, 0, 60)
	require.Equal(t, OutcomeApplied, out.Kind)
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, Transfer{To: creator, Amount: 11000}, out.Transfers[0])
	assert.Equal(t, StagePaused, m.Stage())
	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, int64(0), m.Balance())
	assert.Equal(t, int64(2), m.Nonce())
}

func TestUpdateNotCreatorIgnored(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.Update(Call{Sender: stranger, Now: at(1)}, 1, 1, 1)
	assert.Equal(t, OutcomeIgnored, out.Kind)
	assert.Equal(t, StageOpen, m.Stage())
	assert.Equal(t, int64(100), m.Rate())
}

func TestUpdateAfterTakenIgnored(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)
	require.Equal(t, StageWaitingPayment, m.Stage())

	out := m.Update(Call{Sender: creator, Now: at(2)}, 100, 0, 0)
	assert.Equal(t, OutcomeIgnored, out.Kind)
	assert.Equal(t, StageWaitingPayment, m.Stage())
}

func TestTakeMismatchRefunds(t *testing.T) {
	cases := []struct {
		name                   string
		rate, security, amount int64
	}{
		{"rate", 99, 1000, 10000},
		{"security", 100, 999, 10000},
		{"amount", 100, 1000, 9999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMachine(TypeSell)
			openOffer(t, m, 11000, 1000)

			out := m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, tc.rate, tc.security, tc.amount)
			require.Equal(t, OutcomeRefunded, out.Kind)
			require.Len(t, out.Transfers, 1)
			assert.Equal(t, Transfer{To: taker, Amount: 1000}, out.Transfers[0])
			assert.Equal(t, StageOpen, m.Stage())
			assert.Equal(t, AccountID(0), m.Taker())
		})
	}
}

func TestTakeAfterTimeoutPausesAndRefunds(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.Take(Call{Sender: taker, Sent: 1000, Now: at(61)}, 100, 1000, 10000)
	require.Equal(t, OutcomeRefunded, out.Kind)
	// the timeout-induced pause sticks even though the take was refused
	assert.Equal(t, StagePaused, m.Stage())
}

func TestTakeInsufficientDepositRefunds(t *testing.T) {
	m := newTestMachine(TypeSell)
	out := m.Update(Call{Sender: creator, Sent: ActivationFee * 4, Now: at(0)}, 100, ActivationFee*3, 60)
	require.Equal(t, OutcomeApplied, out.Kind)
	amount := m.Amount()

	// sent + activation fee falls short of the required security
	out = m.Take(Call{Sender: taker, Sent: ActivationFee, Now: at(1)}, 100, ActivationFee*3, amount)
	require.Equal(t, OutcomeRefunded, out.Kind)
	assert.Equal(t, StageOpen, m.Stage())

	// exactly covering it is enough
	out = m.Take(Call{Sender: taker, Sent: ActivationFee * 2, Now: at(2)}, 100, ActivationFee*3, amount)
	require.Equal(t, OutcomeApplied, out.Kind)
	assert.Equal(t, StageWaitingPayment, m.Stage())
	assert.Equal(t, taker, m.Taker())
}

func TestRoundTrip(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)
	require.Equal(t, OutcomeApplied, out.Kind)
	require.Equal(t, StageWaitingPayment, m.Stage())
	require.Equal(t, taker, m.Taker())

	out = m.ReportComplete(Call{Sender: creator, Now: at(2)})
	require.Equal(t, OutcomeApplied, out.Kind)
	require.Len(t, out.Transfers, 3)

	assert.Equal(t, Transfer{To: creator, Amount: 1000}, out.Transfers[0])
	assert.Equal(t, Transfer{To: taker, Amount: 10000 + 1000 - 10000/400}, out.Transfers[1])
	assert.Equal(t, Transfer{To: feeAccount, Amount: 10000 / 400}, out.Transfers[2])

	assert.Equal(t, StageFinished, m.Stage())
	assert.Equal(t, AccountID(0), m.Taker())
	assert.Equal(t, int64(0), m.Balance())
}

func TestReportCompleteByTakerIgnored(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)

	out := m.ReportComplete(Call{Sender: taker, Now: at(2)})
	assert.Equal(t, OutcomeIgnored, out.Kind)
	assert.Equal(t, StageWaitingPayment, m.Stage())
}

func TestOpenDisputeIdempotent(t *testing.T) {
	sequences := [][]AccountID{
		{creator},
		{creator, creator},
	}

	var settled []Outcome
	for _, seq := range sequences {
		m := newTestMachine(TypeSell)
		openOffer(t, m, 11000, 1000)
		m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)

		for i, sender := range seq {
			out := m.OpenDispute(Call{Sender: sender, Now: at(2 + i)})
			if i == 0 {
				require.Equal(t, OutcomeApplied, out.Kind)
			} else {
				require.Equal(t, OutcomeIgnored, out.Kind)
			}
		}

		settled = append(settled, m.CloseDispute(Call{Sender: arbitrator, Now: at(10)}, 6000, 5000))
	}

	// closing after a repeated open behaves exactly as after a single open
	assert.Equal(t, settled[0], settled[1])
}

func TestOpenDisputeBothParties(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)

	require.Equal(t, OutcomeApplied, m.OpenDispute(Call{Sender: creator, Now: at(2)}).Kind)
	require.Equal(t, OutcomeApplied, m.OpenDispute(Call{Sender: taker, Now: at(3)}).Kind)
	assert.True(t, m.CreatorDispute())
	assert.True(t, m.TakerDispute())

	out := m.OpenDispute(Call{Sender: stranger, Now: at(4)})
	assert.Equal(t, OutcomeIgnored, out.Kind)
}

func TestOpenDisputeBeforeTakenIgnored(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.OpenDispute(Call{Sender: creator, Now: at(1)})
	assert.Equal(t, OutcomeIgnored, out.Kind)
	assert.False(t, m.Disputed())
}

func TestCloseDispute(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)
	m.OpenDispute(Call{Sender: taker, Now: at(2)})

	// not an arbitrator
	out := m.CloseDispute(Call{Sender: stranger, Now: at(3)}, 6000, 6000)
	require.Equal(t, OutcomeIgnored, out.Kind)

	out = m.CloseDispute(Call{Sender: arbitrator2Acc, Now: at(4)}, 6000, 5000)
	require.Equal(t, OutcomeApplied, out.Kind)
	require.Len(t, out.Transfers, 3)
	assert.Equal(t, Transfer{To: creator, Amount: 6000}, out.Transfers[0])
	assert.Equal(t, Transfer{To: taker, Amount: 5000}, out.Transfers[1])
	// the remainder is swept to the fee account
	assert.Equal(t, Transfer{To: feeAccount, Amount: 1000}, out.Transfers[2])

	assert.Equal(t, StageFinished, m.Stage())
	assert.False(t, m.Disputed())
	assert.Equal(t, AccountID(0), m.Taker())
}

func TestCloseDisputeWithoutDisputeIgnored(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)

	out := m.CloseDispute(Call{Sender: arbitrator, Now: at(2)}, 6000, 6000)
	assert.Equal(t, OutcomeIgnored, out.Kind)
	assert.Equal(t, StageWaitingPayment, m.Stage())
}

func TestUnknownCallRefunds(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)

	out := m.UnknownCall(Call{Sender: stranger, Sent: 777, Now: at(1)})
	require.Equal(t, OutcomeRefunded, out.Kind)
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, Transfer{To: stranger, Amount: 777}, out.Transfers[0])
	assert.Equal(t, int64(11000), m.Balance())
}

func TestNoDepositTakeRequiresNoCollateral(t *testing.T) {
	m := newTestMachine(TypeSellNoDeposit)
	openOffer(t, m, 11000, 1000)

	out := m.Take(Call{Sender: taker, Sent: 0, Now: at(1)}, 100, 1000, 10000)
	require.Equal(t, OutcomeApplied, out.Kind)
	assert.Equal(t, StageWaitingPayment, m.Stage())
}

func TestBuyTakeRequiresAmountAndCollateral(t *testing.T) {
	m := newTestMachine(TypeBuy)
	out := m.Update(Call{Sender: creator, Sent: ActivationFee * 3, Now: at(0)}, 100, ActivationFee*2, 60)
	require.Equal(t, OutcomeApplied, out.Kind)
	amount := m.Amount()
	require.Equal(t, ActivationFee, amount)

	// covering only the collateral is not enough for a buy offer
	out = m.Take(Call{Sender: taker, Sent: ActivationFee, Now: at(1)}, 100, ActivationFee*2, amount)
	require.Equal(t, OutcomeRefunded, out.Kind)

	out = m.Take(Call{Sender: taker, Sent: ActivationFee * 2, Now: at(2)}, 100, ActivationFee*2, amount)
	require.Equal(t, OutcomeApplied, out.Kind)
}

func TestStateCodeRoundTrip(t *testing.T) {
	m := newTestMachine(TypeSell)
	openOffer(t, m, 11000, 1000)
	m.Take(Call{Sender: taker, Sent: 1000, Now: at(1)}, 100, 1000, 10000)
	m.OpenDispute(Call{Sender: creator, Now: at(2)})
	m.OpenDispute(Call{Sender: taker, Now: at(3)})

	stage, creatorDispute, takerDispute, ok := DecodeState(m.StateCode())
	require.True(t, ok)
	assert.Equal(t, StageWaitingPayment, stage)
	assert.True(t, creatorDispute)
	assert.True(t, takerDispute)
}

func TestDecodeStateUnknown(t *testing.T) {
	_, _, _, ok := DecodeState(0x03)
	assert.False(t, ok)

	stage, creatorDispute, takerDispute, ok := DecodeState(0x220)
	require.True(t, ok)
	assert.Equal(t, StageWaitingPayment, stage)
	assert.True(t, creatorDispute)
	assert.False(t, takerDispute)
}
