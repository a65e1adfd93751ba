// Package session tracks an authenticated session over time: it watches the
// token's remaining lifetime, warns subscribers before expiry, and forces a
// logout when the token runs out. The token's absolute expiry is
// authoritative; UI activity never extends it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SushanParlapally/trawells-authcore/internal/audit"
	"github.com/SushanParlapally/trawells-authcore/internal/ids"
	"github.com/SushanParlapally/trawells-authcore/internal/obs"
	"github.com/SushanParlapally/trawells-authcore/internal/token"
)

// ErrExtensionFailed means ExtendSession could not prove the session still
// has lifetime. The Warning state persists and the countdown keeps running.
var ErrExtensionFailed = errors.New("session: extension failed")

// State is the scheduler's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateActive
	StateWarning
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Auth is the slice of the auth service the scheduler relies on. The
// scheduler never mutates credentials itself; it only signals the service.
type Auth interface {
	MinutesUntilExpiry() int
	Logout(ctx context.Context)
}

// Renewer proves liveness for a session extension, typically by
// re-authenticating. The backend issues no refresh tokens, so without a
// Renewer an extension can only succeed while the current token still has
// genuine headroom.
type Renewer func(ctx context.Context) error

const (
	defaultCheckInterval    = time.Minute
	defaultWarningThreshold = 5 // minutes
)

// Scheduler runs one recurring expiry check per active session. Every start
// opens a new generation; timers from older generations are no-ops.
type Scheduler struct {
	auth      Auth
	interval  time.Duration
	threshold int
	now       func() time.Time
	log       *zap.Logger
	renew     Renewer

	mu           sync.Mutex
	state        State
	generation   uint64
	sessionID    string
	lastActivity time.Time
	timeoutFired bool
	cancel       context.CancelFunc

	nextSub     int
	warnSubs    map[int]func(minutesLeft int)
	timeoutSubs map[int]func()
}

// Option configures Scheduler behavior.
type Option func(*Scheduler)

// WithCheckInterval overrides how often the expiry check runs.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWarningThreshold sets the remaining-minutes value at which subscribers
// are first warned.
func WithWarningThreshold(minutes int) Option {
	return func(s *Scheduler) {
		if minutes > 0 {
			s.threshold = minutes
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger overrides the scheduler logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRenewer installs the external liveness hook used by ExtendSession.
func WithRenewer(r Renewer) Option {
	return func(s *Scheduler) { s.renew = r }
}

// New constructs a scheduler in the Idle state.
func New(auth Auth, opts ...Option) (*Scheduler, error) {
	if auth == nil {
		return nil, errors.New("session: auth service is required")
	}
	s := &Scheduler{
		auth:        auth,
		interval:    defaultCheckInterval,
		threshold:   defaultWarningThreshold,
		now:         time.Now,
		log:         obs.Logger(),
		warnSubs:    make(map[int]func(int)),
		timeoutSubs: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start opens a new session generation and arms the recurring expiry check.
// Starting over an already-running session first ends it, so there is never
// a duplicate timer.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	gen := s.generation
	s.state = StateActive
	s.timeoutFired = false
	s.lastActivity = s.now()
	s.sessionID = ids.New()
	sid := s.sessionID
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	obs.SetSchedulerState(1)
	s.log.Info("session started", zap.String("session_id", sid))
	go s.run(ctx, gen)
}

// End cancels the recurring check and returns to Idle. Safe from any state
// and safe to call repeatedly, including on unmount.
func (s *Scheduler) End() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = StateIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	obs.SetSchedulerState(0)
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns the newest recorded interaction timestamp.
func (s *Scheduler) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// UpdateActivity records a qualifying user interaction. Updates are
// commutative and last-write-wins: a stale event delivered out of order
// never regresses the timestamp.
func (s *Scheduler) UpdateActivity(ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	if ts.After(s.lastActivity) {
		s.lastActivity = ts
	}
}

// ExtendSession attempts to keep the session alive past the warning. With a
// Renewer it delegates the proof of liveness; without one it succeeds only
// while the token genuinely has lifetime left, so a real expiry is never
// masked. On success the state returns to Active and the next tick re-arms
// the countdown from the (possibly renewed) token.
func (s *Scheduler) ExtendSession(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		obs.RecordExtension(obs.ResultFailure)
		return fmt.Errorf("%w: no active session", ErrExtensionFailed)
	}
	s.mu.Unlock()

	if s.renew != nil {
		if err := s.renew(ctx); err != nil {
			obs.RecordExtension(obs.ResultFailure)
			return fmt.Errorf("%w: %s", ErrExtensionFailed, err)
		}
	}
	if mins := s.auth.MinutesUntilExpiry(); mins <= 0 {
		obs.RecordExtension(obs.ResultFailure)
		return fmt.Errorf("%w: token has no remaining lifetime", ErrExtensionFailed)
	}

	s.mu.Lock()
	if s.state == StateWarning || s.state == StateActive {
		s.state = StateActive
		s.lastActivity = s.now()
	}
	s.mu.Unlock()

	obs.RecordExtension(obs.ResultSuccess)
	obs.SetSchedulerState(1)
	s.log.Info("session extended")
	return nil
}

// OnWarning registers a callback invoked with the remaining minutes on every
// check that finds the session inside the warning window. Returns the
// subscriber handle for OffWarning.
func (s *Scheduler) OnWarning(fn func(minutesLeft int)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	s.warnSubs[s.nextSub] = fn
	return s.nextSub
}

// OffWarning removes a warning subscriber.
func (s *Scheduler) OffWarning(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.warnSubs, id)
}

// OnTimeout registers a callback invoked exactly once per session generation
// when the token expires. Returns the subscriber handle for OffTimeout.
func (s *Scheduler) OnTimeout(fn func()) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	s.timeoutSubs[s.nextSub] = fn
	return s.nextSub
}

// OffTimeout removes a timeout subscriber.
func (s *Scheduler) OffTimeout(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timeoutSubs, id)
}

func (s *Scheduler) run(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(gen)
		}
	}
}

// tick is the single recurring expiry check. A tick carrying a stale
// generation is a no-op, which makes late fires after End or a restart
// provably harmless.
func (s *Scheduler) tick(gen uint64) {
	mins := s.auth.MinutesUntilExpiry()

	s.mu.Lock()
	if gen != s.generation || s.state == StateIdle {
		s.mu.Unlock()
		return
	}

	switch {
	case mins == token.MinutesUnknown || mins <= 0:
		// Missing or undecodable tokens read as already expired.
		if s.timeoutFired {
			s.mu.Unlock()
			return
		}
		s.timeoutFired = true
		s.state = StateExpired
		subs := make([]func(), 0, len(s.timeoutSubs))
		for _, fn := range s.timeoutSubs {
			subs = append(subs, fn)
		}
		sid := s.sessionID
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()

		obs.RecordSessionTimeout()
		s.log.Info("session expired", zap.String("session_id", sid))
		for _, fn := range subs {
			fn()
		}
		actx := audit.WithSessionID(context.Background(), sid)
		s.auth.Logout(actx)
		_ = audit.LogEvent(actx, "session_timeout", nil)
		if cancel != nil {
			cancel()
		}

		s.mu.Lock()
		if gen == s.generation {
			s.state = StateIdle
		}
		s.mu.Unlock()
		obs.SetSchedulerState(0)

	case mins <= s.threshold:
		s.state = StateWarning
		subs := make([]func(int), 0, len(s.warnSubs))
		for _, fn := range s.warnSubs {
			subs = append(subs, fn)
		}
		sid := s.sessionID
		s.mu.Unlock()

		obs.RecordSessionWarning()
		obs.SetSchedulerState(2)
		s.log.Info("session expiring soon",
			zap.String("session_id", sid),
			zap.Int("minutes_left", mins),
		)
		for _, fn := range subs {
			fn(mins)
		}

	default:
		s.state = StateActive
		s.mu.Unlock()
		obs.SetSchedulerState(1)
	}
}
