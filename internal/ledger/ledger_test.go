package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestNew_SplitsCapitalEvenly(t *testing.T) {
	l := New([]string{"SIM_A", "SIM_B"}, 1000.0)

	for _, v := range []string{"SIM_A", "SIM_B"} {
		bal := l.Balance(v)
		assert.Equal(t, 500.0, bal.USD)
		assert.Equal(t, 0.0, bal.XRP)
	}
}

func TestLedger_Buy(t *testing.T) {
	t.Run("exact accounting when funded", func(t *testing.T) {
		l := New([]string{"A", "B"}, 1000.0)

		got := l.Buy("A", 100.0, 1.30, 0.0015)

		require.InDelta(t, 100.0/1.30, got, tolerance)
		bal := l.Balance("A")
		assert.InDelta(t, 500.0-100.0*1.0015, bal.USD, tolerance)
		assert.InDelta(t, 100.0/1.30, bal.XRP, tolerance)
	})

	t.Run("clamps so spend plus fee consumes the balance exactly", func(t *testing.T) {
		l := New([]string{"A", "B"}, 100.0) // 50 USD per venue

		got := l.Buy("A", 100.0, 1.0, 0.01)

		wantSpend := 50.0 / 1.01
		require.InDelta(t, wantSpend, got, tolerance)
		bal := l.Balance("A")
		assert.InDelta(t, 0.0, bal.USD, tolerance)
		assert.GreaterOrEqual(t, bal.USD, -tolerance)
		assert.InDelta(t, wantSpend, bal.XRP, tolerance)
	})

	t.Run("non-positive spend is a no-op", func(t *testing.T) {
		l := New([]string{"A", "B"}, 1000.0)

		assert.Zero(t, l.Buy("A", 0, 1.30, 0.0015))
		assert.Zero(t, l.Buy("A", -5, 1.30, 0.0015))
		assert.Equal(t, 500.0, l.Balance("A").USD)
	})
}

func TestLedger_Sell(t *testing.T) {
	t.Run("exact accounting when holding enough", func(t *testing.T) {
		l := New([]string{"A", "B"}, 1000.0)
		l.CreditAsset("B", 80.0)

		got := l.Sell("B", 50.0, 1.306, 0.0015)

		gross := 50.0 * 1.306
		require.InDelta(t, gross*(1-0.0015), got, tolerance)
		bal := l.Balance("B")
		assert.InDelta(t, 30.0, bal.XRP, tolerance)
		assert.InDelta(t, 500.0+gross*(1-0.0015), bal.USD, tolerance)
	})

	t.Run("clamps to held quantity", func(t *testing.T) {
		l := New([]string{"A", "B"}, 1000.0)
		l.CreditAsset("B", 10.0)

		got := l.Sell("B", 25.0, 2.0, 0.0)

		require.InDelta(t, 20.0, got, tolerance)
		bal := l.Balance("B")
		assert.InDelta(t, 0.0, bal.XRP, tolerance)
		assert.GreaterOrEqual(t, bal.XRP, -tolerance)
	})

	t.Run("non-positive quantity is a no-op", func(t *testing.T) {
		l := New([]string{"A", "B"}, 1000.0)
		l.CreditAsset("B", 10.0)

		assert.Zero(t, l.Sell("B", 0, 2.0, 0.0015))
		assert.Zero(t, l.Sell("B", -1, 2.0, 0.0015))
		assert.Equal(t, 10.0, l.Balance("B").XRP)
	})
}

func TestLedger_CreditAsset(t *testing.T) {
	l := New([]string{"A", "B"}, 1000.0)

	l.CreditAsset("B", 12.5)
	l.CreditAsset("B", 0)
	l.CreditAsset("B", -3)

	assert.Equal(t, 12.5, l.Balance("B").XRP)
	assert.Equal(t, 500.0, l.Balance("B").USD)
}

func TestLedger_BalancesReturnsCopy(t *testing.T) {
	l := New([]string{"A", "B"}, 1000.0)

	snap := l.Balances()
	entry := snap["A"]
	entry.USD = 0
	snap["A"] = entry

	assert.Equal(t, 500.0, l.Balance("A").USD)
}
