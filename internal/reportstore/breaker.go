package reportstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
)

// ErrCircuitOpen is returned without touching Redis while the breaker is open.
var ErrCircuitOpen = errors.New("report store circuit open")

// CircuitState is the state of a Breaker.
type CircuitState int32

const (
	// StateClosed lets every save through.
	StateClosed CircuitState = iota
	// StateOpen rejects saves until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero fields take the defaults below.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 1
	DefaultOpenTimeout      = 30 * time.Second
)

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	return c
}

// Saver persists a report and returns its key.
type Saver interface {
	Save(ctx context.Context, report domain.Report) (string, error)
}

// Breaker opens after FailureThreshold consecutive store failures and
// rejects saves with ErrCircuitOpen until OpenTimeout elapses. It then lets
// one probe through; SuccessThreshold successful probes close it again.
type Breaker struct {
	next   Saver
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	state    atomic.Int32
	failures atomic.Int32
	success  atomic.Int32
	openedAt atomic.Int64
	probing  atomic.Bool
}

// NewBreaker guards next with a circuit breaker.
func NewBreaker(next Saver, cfg BreakerConfig) *Breaker {
	b := &Breaker{
		next:   next,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: slog.Default().With("component", "reportstore_breaker"),
	}
	b.state.Store(int32(StateClosed))
	return b
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState { return CircuitState(b.state.Load()) }

// Save forwards to the guarded store unless the circuit is open.
func (b *Breaker) Save(ctx context.Context, report domain.Report) (string, error) {
	probe, err := b.allow()
	if err != nil {
		return "", err
	}
	if probe {
		defer b.probing.Store(false)
	}

	key, err := b.next.Save(ctx, report)
	if err != nil {
		// A cancelled caller or a report with no JSON form says nothing
		// about store health.
		if ctx.Err() == nil && !errors.Is(err, domain.ErrUnencodableReport) {
			b.recordFailure()
		}
		return "", err
	}
	b.recordSuccess()
	return key, nil
}

func (b *Breaker) allow() (probe bool, err error) {
	switch b.State() {
	case StateClosed:
		return false, nil
	case StateOpen:
		opened := time.Unix(0, b.openedAt.Load())
		if b.now().Sub(opened) < b.cfg.OpenTimeout {
			return false, ErrCircuitOpen
		}
		b.transition(StateOpen, StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if !b.probing.CompareAndSwap(false, true) {
			return false, fmt.Errorf("%w: probe in flight", ErrCircuitOpen)
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown circuit state %d", b.state.Load())
	}
}

func (b *Breaker) recordSuccess() {
	switch b.State() {
	case StateClosed:
		b.failures.Store(0)
	case StateHalfOpen:
		if int(b.success.Add(1)) >= b.cfg.SuccessThreshold {
			b.transition(StateHalfOpen, StateClosed)
		}
	}
}

func (b *Breaker) recordFailure() {
	switch b.State() {
	case StateClosed:
		if int(b.failures.Add(1)) >= b.cfg.FailureThreshold {
			b.transition(StateClosed, StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateHalfOpen, StateOpen)
	}
}

// transition moves from one state to another; a lost race is a no-op.
// openedAt is written before the state so a reader that sees StateOpen
// never pairs it with a stale open time.
func (b *Breaker) transition(from, to CircuitState) {
	if to == StateOpen {
		b.openedAt.Store(b.now().UnixNano())
	}
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return
	}
	b.failures.Store(0)
	b.success.Store(0)
	b.logger.Info("circuit breaker state transition", "from", from.String(), "to", to.String())
}
