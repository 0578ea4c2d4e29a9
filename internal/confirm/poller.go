// Package confirm implements the asynchronous payment confirmation flow:
// after the customer reports "I've sent payment", the poller repeatedly
// checks the order's payment status until the backend reports paid or a
// ceiling duration elapses.
package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/savourly/orderflow/internal/domain/order"
)

// State is the poller's lifecycle state.
type State string

const (
	// StateInitial is the resting state before the customer confirms they
	// have sent payment.
	StateInitial State = "initial"
	// StateConfirming means status checks are running.
	StateConfirming State = "confirming"
	// StateSuccess is terminal: the backend reported paid.
	StateSuccess State = "success"
	// StateTimeout means the ceiling elapsed without a paid status. The
	// customer may re-enter confirming or fall back to manual tracking.
	StateTimeout State = "timeout"
)

var (
	// ErrConfirmInProgress is returned by Close when a confirmation run is
	// active and force was not set: abandoning it may leave payment
	// verification incomplete, so the caller must confirm the close.
	ErrConfirmInProgress = errors.New("confirmation in progress")
	// ErrAlreadyConfirming is returned by Confirm while a run is active.
	ErrAlreadyConfirming = errors.New("already confirming")
	// ErrAlreadyConfirmed is returned by Confirm after a success.
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
)

// StatusFunc fetches the authoritative payment status for the order being
// confirmed.
type StatusFunc func(ctx context.Context) (order.PaymentStatus, error)

// Config tunes the polling schedule and registers display callbacks. The
// zero value gets production defaults.
type Config struct {
	// InitialDelay precedes the first status check, giving the backend time
	// to durably persist the order.
	InitialDelay time.Duration
	// Interval separates subsequent status checks.
	Interval time.Duration
	// Ceiling bounds the total confirmation time before StateTimeout.
	Ceiling time.Duration
	// SuccessDelay separates the paid observation from the OnSuccess
	// callback so the caller can show the success state before navigating.
	SuccessDelay time.Duration

	// OnElapsed receives the running elapsed-seconds counter, display only.
	OnElapsed func(seconds int)
	// OnSuccess fires exactly once when paid is observed.
	OnSuccess func()
	// OnTimeout fires when the ceiling elapses without a paid status.
	OnTimeout func()
	// OnCheckError receives non-fatal status check failures; polling
	// continues.
	OnCheckError func(err error)
}

func (c *Config) applyDefaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 3 * time.Second
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.Ceiling <= 0 {
		c.Ceiling = 5 * time.Minute
	}
	if c.SuccessDelay < 0 {
		c.SuccessDelay = 0
	}
}

// Poller drives the confirmation state machine. At most one polling run is
// active at any moment: the run's context cancel func is the single owned
// scheduler handle, released on every exit transition.
type Poller struct {
	cfg   Config
	check StatusFunc

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	inFlight bool
	elapsed  int
}

// New creates a Poller in StateInitial.
func New(cfg Config, check StatusFunc) *Poller {
	cfg.applyDefaults()
	return &Poller{
		cfg:   cfg,
		check: check,
		state: StateInitial,
	}
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Elapsed returns the running elapsed-seconds counter of the current run.
func (p *Poller) Elapsed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed
}

// Confirm starts a confirmation run. It is the initial -> confirming
// transition, and also timeout -> confirming for "keep waiting": the elapsed
// counter resets and a fresh schedule replaces any previous one.
func (p *Poller) Confirm(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateConfirming:
		p.mu.Unlock()
		return ErrAlreadyConfirming
	case StateSuccess:
		p.mu.Unlock()
		return ErrAlreadyConfirmed
	}
	// Release any stale handle before creating the new schedule, so exactly
	// one run owns timers at all times.
	if p.cancel != nil {
		p.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StateConfirming
	p.elapsed = 0
	p.inFlight = false
	p.mu.Unlock()

	go p.run(runCtx)
	return nil
}

// Close tears the poller down. While confirming, force must be set: closing
// then abandons an in-progress verification. In any other state Close is
// unconditional. All timers are released either way.
func (p *Poller) Close(force bool) error {
	p.mu.Lock()
	if p.state == StateConfirming && !force {
		p.mu.Unlock()
		return ErrConfirmInProgress
	}
	cancel := p.cancel
	p.cancel = nil
	if p.state == StateConfirming {
		p.state = StateInitial
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// run owns every timer of one confirmation attempt. It exits when the run
// context is cancelled or the ceiling fires.
func (p *Poller) run(ctx context.Context) {
	seconds := time.NewTicker(time.Second)
	defer seconds.Stop()

	first := time.NewTimer(p.cfg.InitialDelay)
	defer first.Stop()

	interval := time.NewTicker(p.cfg.Interval)
	defer interval.Stop()

	ceiling := time.NewTimer(p.cfg.Ceiling)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-seconds.C:
			p.tickElapsed()
		case <-first.C:
			p.startCheck(ctx)
			interval.Reset(p.cfg.Interval)
		case <-interval.C:
			p.startCheck(ctx)
		case <-ceiling.C:
			p.toTimeout()
			return
		}
	}
}

func (p *Poller) tickElapsed() {
	p.mu.Lock()
	if p.state != StateConfirming {
		p.mu.Unlock()
		return
	}
	p.elapsed++
	elapsed := p.elapsed
	p.mu.Unlock()

	if p.cfg.OnElapsed != nil {
		p.cfg.OnElapsed(elapsed)
	}
}

// startCheck launches one status check. Checks are serialized: while a prior
// check is outstanding the tick is skipped, so a slow response can never be
// applied out of order.
func (p *Poller) startCheck(ctx context.Context) {
	p.mu.Lock()
	if p.inFlight || p.state != StateConfirming {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	go func() {
		status, err := p.check(ctx)

		p.mu.Lock()
		p.inFlight = false
		if p.state != StateConfirming {
			// A terminal transition happened while this check was in
			// flight; its result must not overwrite it.
			p.mu.Unlock()
			return
		}
		if err != nil {
			p.mu.Unlock()
			if p.cfg.OnCheckError != nil && !errors.Is(err, context.Canceled) {
				p.cfg.OnCheckError(err)
			}
			return
		}
		if status != order.PaymentPaid {
			p.mu.Unlock()
			return
		}

		p.state = StateSuccess
		cancel := p.cancel
		p.cancel = nil
		p.mu.Unlock()

		// Timers are released exactly once, before the callback runs.
		if cancel != nil {
			cancel()
		}
		if p.cfg.SuccessDelay > 0 {
			time.Sleep(p.cfg.SuccessDelay)
		}
		if p.cfg.OnSuccess != nil {
			p.cfg.OnSuccess()
		}
	}()
}

func (p *Poller) toTimeout() {
	p.mu.Lock()
	if p.state != StateConfirming {
		p.mu.Unlock()
		return
	}
	p.state = StateTimeout
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p.cfg.OnTimeout != nil {
		p.cfg.OnTimeout()
	}
}
