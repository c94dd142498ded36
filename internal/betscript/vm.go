// Package betscript evaluates user-supplied JavaScript bet ramps in a
// sandboxed goja runtime. A script defines bet(state) and returns the wager
// for the next round; the Kelly sizer is available to it as kelly().
package betscript

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/shopspring/decimal"

	"github.com/MJE43/blackjack-advisor-go/internal/counting"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
)

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxLogs           = 200
)

var (
	// ErrNoBetFunc is returned when a script does not define bet().
	ErrNoBetFunc = errors.New("bet() function is not defined")
	// ErrTimedOut is returned by a call that ran past its deadline, and by
	// every later call on the same Script.
	ErrTimedOut = errors.New("script timed out")
)

// State is what a script sees on every call.
type State struct {
	Balance      float64 `json:"balance"`
	BaseBet      float64 `json:"basebet"`
	TrueCount    float64 `json:"truecount"`
	RunningCount int     `json:"runningcount"`
	Round        int     `json:"round"`
}

// Script is a compiled bet ramp. A Script is safe for concurrent use; calls
// are serialised because a goja runtime is single-threaded.
type Script struct {
	runtime *goja.Runtime
	bet     goja.Callable
	mu      sync.Mutex
	dead    atomic.Bool

	logMu sync.Mutex
	logs  []string
}

// Compile runs source once in a fresh sandbox and binds its bet() function.
// seed feeds the random() global so a ramp replays identically.
func Compile(source string, seed uint32) (*Script, error) {
	s := &Script{runtime: goja.New()}
	s.injectGlobals(seed)

	err := s.runWithTimeout(scriptInitTimeout, func() error {
		if _, err := s.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fn := s.runtime.Get("bet")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, ErrNoBetFunc
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("bet is not a function")
	}
	s.bet = callable
	return s, nil
}

func (s *Script) injectGlobals(seed uint32) {
	rt := s.runtime

	rt.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		s.logMu.Lock()
		if len(s.logs) >= maxLogs {
			s.logs = s.logs[1:]
		}
		s.logs = append(s.logs, strings.Join(parts, " "))
		s.logMu.Unlock()
		return goja.Undefined()
	})
	console := rt.NewObject()
	console.Set("log", rt.Get("log"))
	rt.Set("console", console)

	rng := engine.NewMulberry32(seed)
	rt.Set("random", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(rng.Float64())
	})

	rt.Set("kelly", func(call goja.FunctionCall) goja.Value {
		balance := call.Argument(0).ToFloat()
		trueCount := call.Argument(1).ToFloat()
		base := counting.DefaultBaseBet
		if len(call.Arguments) > 2 {
			base = call.Argument(2).ToFloat()
		}
		return rt.ToValue(counting.OptimalBet(balance, trueCount, base))
	})

	rt.Set("require", goja.Undefined())
	rt.Set("fetch", goja.Undefined())
	rt.Set("XMLHttpRequest", goja.Undefined())
	rt.Set("eval", goja.Undefined())
	rt.Set("Function", goja.Undefined())
}

// Bet calls bet(state) and returns the wager in cents, clamped to
// [0, balance]. Non-numeric or non-finite results are errors.
func (s *Script) Bet(state State) (decimal.Decimal, error) {
	if s.dead.Load() {
		return decimal.Zero, ErrTimedOut
	}
	var amount float64
	err := s.runWithTimeout(scriptCallTimeout, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		arg := s.runtime.ToValue(map[string]interface{}{
			"balance":      state.Balance,
			"basebet":      state.BaseBet,
			"truecount":    state.TrueCount,
			"runningcount": state.RunningCount,
			"round":        state.Round,
		})
		out, err := s.bet(goja.Undefined(), arg)
		if err != nil {
			return fmt.Errorf("bet() error: %w", err)
		}
		amount = out.ToFloat()
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("bet() returned %s, want a finite number", out.String())
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	amount = math.Max(0, math.Min(amount, state.Balance))
	return decimal.NewFromFloat(amount).Round(2), nil
}

// Logs returns a copy of the script's log buffer.
func (s *Script) Logs() []string {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Script) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// The runtime stays interrupted; the Script is unusable from here on.
		s.dead.Store(true)
		s.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTimedOut, err)
			}
			return ErrTimedOut
		case <-time.After(200 * time.Millisecond):
			return ErrTimedOut
		}
	}
}
