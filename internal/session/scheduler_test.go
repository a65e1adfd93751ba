package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SushanParlapally/trawells-authcore/internal/token"
)

// fakeAuth scripts the remaining-lifetime reading and counts forced logouts.
type fakeAuth struct {
	mu      sync.Mutex
	minutes int
	logouts int
}

func (f *fakeAuth) MinutesUntilExpiry() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minutes
}

func (f *fakeAuth) Logout(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
}

func (f *fakeAuth) setMinutes(m int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minutes = m
}

func (f *fakeAuth) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

// newTestScheduler uses an hour-long check interval so the background ticker
// never fires during a test; ticks are driven directly.
func newTestScheduler(t *testing.T, fa *fakeAuth, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{
		WithCheckInterval(time.Hour),
		WithLogger(zap.NewNop()),
	}, opts...)
	s, err := New(fa, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.End)
	return s
}

func currentGen(s *Scheduler) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func TestNewRequiresAuth(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil auth")
	}
}

func TestTickKeepsActiveOutsideWarningWindow(t *testing.T) {
	fa := &fakeAuth{minutes: 30}
	s := newTestScheduler(t, fa)

	s.Start()
	s.tick(currentGen(s))

	if got := s.State(); got != StateActive {
		t.Fatalf("expected active, got %s", got)
	}
	if fa.logoutCount() != 0 {
		t.Fatal("no logout expected while the token is live")
	}
}

func TestWarningRenotifiesWithDecreasingMinutes(t *testing.T) {
	fa := &fakeAuth{minutes: 5}
	s := newTestScheduler(t, fa)

	var got []int
	s.OnWarning(func(minutesLeft int) { got = append(got, minutesLeft) })

	s.Start()
	gen := currentGen(s)

	s.tick(gen)
	if s.State() != StateWarning {
		t.Fatalf("expected warning at the threshold, got %s", s.State())
	}
	fa.setMinutes(4)
	s.tick(gen)

	if len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Fatalf("unexpected warning sequence: %v", got)
	}
}

func TestTimeoutFiresExactlyOnce(t *testing.T) {
	fa := &fakeAuth{minutes: 0}
	s := newTestScheduler(t, fa)

	fired := 0
	s.OnTimeout(func() { fired++ })

	s.Start()
	gen := currentGen(s)

	s.tick(gen)
	s.tick(gen)

	if fired != 1 {
		t.Fatalf("timeout fired %d times, want 1", fired)
	}
	if fa.logoutCount() != 1 {
		t.Fatalf("logout called %d times, want 1", fa.logoutCount())
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle after timeout, got %s", s.State())
	}
}

func TestMissingTokenReadsAsExpired(t *testing.T) {
	fa := &fakeAuth{minutes: token.MinutesUnknown}
	s := newTestScheduler(t, fa)

	s.Start()
	s.tick(currentGen(s))

	if fa.logoutCount() != 1 {
		t.Fatal("an unreadable token must force a logout")
	}
}

func TestStaleGenerationTickIsNoOp(t *testing.T) {
	fa := &fakeAuth{minutes: 0}
	s := newTestScheduler(t, fa)

	s.Start()
	stale := currentGen(s)
	s.Start() // restart opens a new generation

	s.tick(stale)

	if fa.logoutCount() != 0 {
		t.Fatal("a stale tick must not force a logout")
	}
	if s.State() != StateActive {
		t.Fatalf("expected the new generation untouched, got %s", s.State())
	}
}

func TestEndIsIdempotent(t *testing.T) {
	fa := &fakeAuth{minutes: 0}
	s := newTestScheduler(t, fa)

	s.Start()
	gen := currentGen(s)
	s.End()
	s.End()

	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}
	// A late tick after End must change nothing.
	s.tick(gen)
	if fa.logoutCount() != 0 {
		t.Fatal("tick after End must not force a logout")
	}
}

func TestUpdateActivityNeverRegresses(t *testing.T) {
	fa := &fakeAuth{minutes: 30}
	s := newTestScheduler(t, fa)

	s.Start()
	later := s.LastActivity().Add(time.Minute)
	s.UpdateActivity(later)
	if !s.LastActivity().Equal(later) {
		t.Fatal("newer activity must advance the timestamp")
	}
	s.UpdateActivity(later.Add(-time.Hour))
	if !s.LastActivity().Equal(later) {
		t.Fatal("stale activity must not regress the timestamp")
	}

	s.End()
	s.UpdateActivity(later.Add(time.Hour))
	if !s.LastActivity().Equal(later) {
		t.Fatal("activity while idle must be ignored")
	}
}

func TestExtendSessionWithoutRenewer(t *testing.T) {
	fa := &fakeAuth{minutes: 4}
	s := newTestScheduler(t, fa)

	s.Start()
	gen := currentGen(s)
	s.tick(gen)
	if s.State() != StateWarning {
		t.Fatalf("expected warning, got %s", s.State())
	}

	if err := s.ExtendSession(context.Background()); err != nil {
		t.Fatalf("ExtendSession: %v", err)
	}
	if s.State() != StateActive {
		t.Fatalf("expected active after extension, got %s", s.State())
	}

	// Without headroom the extension must not mask a real expiry.
	fa.setMinutes(0)
	if err := s.ExtendSession(context.Background()); !errors.Is(err, ErrExtensionFailed) {
		t.Fatalf("expected ErrExtensionFailed, got %v", err)
	}
}

func TestExtendSessionWithRenewer(t *testing.T) {
	fa := &fakeAuth{minutes: 10}
	renewErr := errors.New("backend unreachable")
	fail := true
	s := newTestScheduler(t, fa, WithRenewer(func(ctx context.Context) error {
		if fail {
			return renewErr
		}
		return nil
	}))

	s.Start()

	if err := s.ExtendSession(context.Background()); !errors.Is(err, ErrExtensionFailed) {
		t.Fatalf("expected ErrExtensionFailed, got %v", err)
	}
	fail = false
	if err := s.ExtendSession(context.Background()); err != nil {
		t.Fatalf("ExtendSession after renewal: %v", err)
	}
}

func TestExtendSessionIdleFails(t *testing.T) {
	fa := &fakeAuth{minutes: 10}
	s := newTestScheduler(t, fa)

	if err := s.ExtendSession(context.Background()); !errors.Is(err, ErrExtensionFailed) {
		t.Fatalf("expected ErrExtensionFailed while idle, got %v", err)
	}
}

func TestOffWarningStopsNotifications(t *testing.T) {
	fa := &fakeAuth{minutes: 3}
	s := newTestScheduler(t, fa)

	calls := 0
	id := s.OnWarning(func(int) { calls++ })

	s.Start()
	gen := currentGen(s)
	s.tick(gen)
	s.OffWarning(id)
	s.tick(gen)

	if calls != 1 {
		t.Fatalf("expected one notification, got %d", calls)
	}
}
