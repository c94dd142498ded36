package betscript

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompileRequiresBetFunction(t *testing.T) {
	_, err := Compile(`var x = 1`, 1)
	assert.ErrorIs(t, err, ErrNoBetFunc)

	_, err = Compile(`var bet = 5`, 1)
	assert.Error(t, err)

	_, err = Compile(`function bet( {`, 1)
	assert.Error(t, err)
}

func TestBetSpreadRamp(t *testing.T) {
	script, err := Compile(`
		function bet(s) {
			if (s.truecount < 2) return s.basebet
			return s.basebet * Math.floor(s.truecount)
		}
	`, 1)
	require.NoError(t, err)

	got, err := script.Bet(State{Balance: 1000, BaseBet: 10, TrueCount: 0})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(got), "got %s", got)

	got, err = script.Bet(State{Balance: 1000, BaseBet: 10, TrueCount: 4.6})
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(got), "got %s", got)
}

func TestBetClampsToBalance(t *testing.T) {
	script, err := Compile(`function bet(s) { return s.balance * 5 }`, 1)
	require.NoError(t, err)
	got, err := script.Bet(State{Balance: 250, BaseBet: 10})
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(got))

	script, err = Compile(`function bet(s) { return -3 }`, 1)
	require.NoError(t, err)
	got, err = script.Bet(State{Balance: 250, BaseBet: 10})
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(got))
}

func TestBetUsesKelly(t *testing.T) {
	script, err := Compile(`function bet(s) { return kelly(s.balance, s.truecount, s.basebet) }`, 1)
	require.NoError(t, err)
	got, err := script.Bet(State{Balance: 6172.5, BaseBet: 10, TrueCount: 5})
	require.NoError(t, err)
	assert.True(t, dec("123.45").Equal(got), "got %s", got)
}

func TestBetRejectsNonNumbers(t *testing.T) {
	script, err := Compile(`function bet(s) { return "lots" }`, 1)
	require.NoError(t, err)
	_, err = script.Bet(State{Balance: 100})
	assert.Error(t, err)

	script, err = Compile(`function bet(s) { throw new Error("boom") }`, 1)
	require.NoError(t, err)
	_, err = script.Bet(State{Balance: 100})
	assert.Error(t, err)
}

func TestSandboxBlocksGlobals(t *testing.T) {
	script, err := Compile(`function bet(s) { return typeof require === "undefined" && typeof eval === "undefined" ? 1 : 0 }`, 1)
	require.NoError(t, err)
	got, err := script.Bet(State{Balance: 100})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(got))
}

func TestRunawayScriptTimesOut(t *testing.T) {
	_, err := Compile(`while (true) {}`, 1)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestRunawayBetDisablesScript(t *testing.T) {
	script, err := Compile(`function bet(s) { log("round", s.round); while (true) {} }`, 1)
	require.NoError(t, err)

	_, err = script.Bet(State{Balance: 100, BaseBet: 10, Round: 1})
	require.ErrorIs(t, err, ErrTimedOut)

	assert.Equal(t, []string{"round 1"}, script.Logs())

	start := time.Now()
	_, err = script.Bet(State{Balance: 100, BaseBet: 10, Round: 2})
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRandomIsSeeded(t *testing.T) {
	src := `function bet(s) { return Math.floor(random() * 100) }`
	a, err := Compile(src, 99)
	require.NoError(t, err)
	b, err := Compile(src, 99)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		x, err := a.Bet(State{Balance: 1000})
		require.NoError(t, err)
		y, err := b.Bet(State{Balance: 1000})
		require.NoError(t, err)
		assert.True(t, x.Equal(y))
	}
}

func TestLogs(t *testing.T) {
	script, err := Compile(`console.log("ready"); function bet(s) { log("tc", s.truecount); return 1 }`, 1)
	require.NoError(t, err)
	_, err = script.Bet(State{Balance: 10, TrueCount: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"ready", "tc 2"}, script.Logs())
}

func TestPlan(t *testing.T) {
	script, err := Compile(`function bet(s) { return s.truecount > 1 ? s.basebet * 2 : s.basebet }`, 1)
	require.NoError(t, err)
	plan, err := script.Plan(1000, 10, []float64{0, 2, 3, -1})
	require.NoError(t, err)

	require.Len(t, plan.Bets, 4)
	assert.Equal(t, 4, plan.Stats.Bets)
	assert.True(t, dec("60").Equal(plan.Stats.Wagered))
	assert.True(t, dec("20").Equal(plan.Stats.HighestBet))
	assert.True(t, dec("10").Equal(plan.Stats.LowestBet))
	assert.True(t, dec("15").Equal(plan.Stats.AverageBet))

	empty, err := script.Plan(1000, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Stats.Bets)
}
