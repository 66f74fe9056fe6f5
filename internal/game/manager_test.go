package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/royale/internal/payment"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind()
	}
	return out
}

func (p *recordingPublisher) ofKind(kind string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fakePayer struct {
	mu    sync.Mutex
	calls []string
	err   error
	gate  chan struct{}
}

func (f *fakePayer) RequestPayout(ctx context.Context, gameID, winner string) (*payment.Receipt, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, gameID+":"+winner)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Receipt{Winner: winner, Amount: 69, Signature: "sig-" + gameID}, nil
}

func (f *fakePayer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecorder struct {
	mu      sync.Mutex
	matches []SessionSnapshot
	payouts []PayoutOutcome
}

func (r *fakeRecorder) RecordMatch(ctx context.Context, snap SessionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, snap)
	return nil
}

func (r *fakeRecorder) RecordPayout(ctx context.Context, o PayoutOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = append(r.payouts, o)
	return nil
}

type denyGuard struct{ err error }

func (g denyGuard) AllowJoin(ctx context.Context, wallet string) (bool, error) {
	return g.err != nil, g.err
}

// onceGuard admits each wallet a single time.
type onceGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (g *onceGuard) AllowJoin(ctx context.Context, wallet string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[wallet] {
		return false, nil
	}
	g.seen[wallet] = true
	return true, nil
}

// startedSession fills the queue to quota and returns the new session ID.
func startedSession(t *testing.T, m *Manager, pub *recordingPublisher, players ...string) string {
	t.Helper()
	for _, p := range players {
		if _, err := m.JoinQueue(context.Background(), p); err != nil {
			t.Fatalf("JoinQueue(%s): %v", p, err)
		}
	}
	starts := pub.ofKind(EventStartMatch)
	if len(starts) == 0 {
		t.Fatal("no START_MATCH published")
	}
	return starts[len(starts)-1].(StartMatch).GameID
}

func TestJoinQueueStartsMatchAtQuota(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 3, Publisher: pub})

	id := startedSession(t, m, pub, "A", "B", "C")

	want := []string{EventQueueUpdate, EventQueueUpdate, EventQueueUpdate, EventStartMatch}
	if fmt.Sprint(pub.kinds()) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", pub.kinds(), want)
	}

	start := pub.ofKind(EventStartMatch)[0].(StartMatch)
	if fmt.Sprint(start.Players) != "[A B C]" {
		t.Errorf("roster = %v", start.Players)
	}
	if m.QueueSize() != 0 || m.ActiveGames() != 1 {
		t.Errorf("queue=%d active=%d", m.QueueSize(), m.ActiveGames())
	}
	if snap, ok := m.Session(id); !ok || snap.Status != StatusActive || snap.Remaining != 3 {
		t.Errorf("session = %+v, %v", snap, ok)
	}
}

func TestJoinQueueValidation(t *testing.T) {
	m := NewManager(Options{Quota: 5})
	if _, err := m.JoinQueue(context.Background(), "  "); !errors.Is(err, ErrWalletRequired) {
		t.Errorf("blank wallet err = %v", err)
	}
	m.JoinQueue(context.Background(), "w1")
	if _, err := m.JoinQueue(context.Background(), "w1"); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("duplicate err = %v", err)
	}
}

func TestJoinQueueGuard(t *testing.T) {
	m := NewManager(Options{Quota: 5, Guard: denyGuard{}})
	if _, err := m.JoinQueue(context.Background(), "w1"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}

	m = NewManager(Options{Quota: 5, Guard: denyGuard{err: errors.New("redis down")}})
	if _, err := m.JoinQueue(context.Background(), "w1"); err != nil {
		t.Errorf("guard failure should allow join, got %v", err)
	}
}

func TestDuplicateJoinReportedBeforeGuard(t *testing.T) {
	m := NewManager(Options{Quota: 5, Guard: &onceGuard{}})
	if _, err := m.JoinQueue(context.Background(), "A"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := m.JoinQueue(context.Background(), "A"); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("duplicate err = %v, want ErrAlreadyQueued", err)
	}
	if _, err := m.JoinQueue(context.Background(), "B"); err != nil {
		t.Errorf("other wallet: %v", err)
	}
}

func TestWalletIdentityIsExact(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 2, Publisher: pub})

	id := startedSession(t, m, pub, "A", " A")
	start := pub.ofKind(EventStartMatch)[0].(StartMatch)
	if len(start.Players) != 2 || start.Players[1] != " A" {
		t.Fatalf("roster = %q", start.Players)
	}

	if remaining, _ := m.ReportElimination(context.Background(), id, "A "); remaining != 2 {
		t.Errorf("padded report eliminated a player, remaining = %d", remaining)
	}
	if remaining, _ := m.ReportElimination(context.Background(), id, " A"); remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
	if snap, _ := m.Session(id); snap.Winner != "A" {
		t.Errorf("winner = %q, want A", snap.Winner)
	}
}

func TestQuotaClampedToTwo(t *testing.T) {
	m := NewManager(Options{Quota: 1})
	if m.Quota() != 2 {
		t.Errorf("Quota = %d, want 2", m.Quota())
	}
}

func TestConcurrentJoinsStartExactlyOneMatch(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 10, Publisher: pub})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.JoinQueue(context.Background(), fmt.Sprintf("w%d", i))
		}(i)
	}
	wg.Wait()

	starts := pub.ofKind(EventStartMatch)
	if len(starts) != 1 {
		t.Fatalf("START_MATCH published %d times, want 1", len(starts))
	}
	if n := len(starts[0].(StartMatch).Players); n != 10 {
		t.Errorf("roster size = %d", n)
	}
	if m.QueueSize() != 0 {
		t.Errorf("QueueSize = %d", m.QueueSize())
	}
}

func TestEliminationFlowPaysWinner(t *testing.T) {
	pub := &recordingPublisher{}
	payer := &fakePayer{}
	rec := &fakeRecorder{}
	m := NewManager(Options{Quota: 4, Publisher: pub, Payer: payer, Recorder: rec, Retention: time.Minute})
	defer m.Close()

	id := startedSession(t, m, pub, "A", "B", "C", "D")
	ctx := context.Background()

	for _, p := range []string{"B", "D", "A"} {
		if _, err := m.ReportElimination(ctx, id, p); err != nil {
			t.Fatalf("ReportElimination(%s): %v", p, err)
		}
	}
	m.Wait()

	elims := pub.ofKind(EventPlayerEliminated)
	if len(elims) != 3 {
		t.Fatalf("got %d PLAYER_ELIMINATED", len(elims))
	}
	for i, want := range []int{3, 2, 1} {
		if got := elims[i].(PlayerEliminated).RemainingPlayers; got != want {
			t.Errorf("elimination %d remaining = %d, want %d", i, got, want)
		}
	}

	ends := pub.ofKind(EventGameEnd)
	if len(ends) != 1 || ends[0].(GameEnd).Winner != "C" || ends[0].(GameEnd).Duration < 0 {
		t.Errorf("GAME_END = %v", ends)
	}

	success := pub.ofKind(EventWinnerPayoutSuccess)
	if len(success) != 1 {
		t.Fatalf("got %d payout successes", len(success))
	}
	if ev := success[0].(WinnerPayoutSuccess); ev.Winner != "C" || ev.Amount != 69 || ev.Signature != "sig-"+id {
		t.Errorf("payout event = %+v", ev)
	}

	if len(rec.matches) != 1 || rec.matches[0].Winner != "C" {
		t.Errorf("recorded matches = %+v", rec.matches)
	}
	if len(rec.payouts) != 1 || rec.payouts[0].Signature != "sig-"+id {
		t.Errorf("recorded payouts = %+v", rec.payouts)
	}
}

func TestEliminationEventsPrecedeGameEnd(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 2, Publisher: pub, Retention: time.Minute})
	defer m.Close()

	id := startedSession(t, m, pub, "A", "B")
	m.ReportElimination(context.Background(), id, "A")

	kinds := pub.kinds()
	tail := kinds[len(kinds)-2:]
	if fmt.Sprint(tail) != fmt.Sprint([]string{EventPlayerEliminated, EventGameEnd}) {
		t.Errorf("event tail = %v", tail)
	}
}

func TestReportEliminationUnknownSession(t *testing.T) {
	m := NewManager(Options{})
	if _, err := m.ReportElimination(context.Background(), "game_missing", "A"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestInvalidEliminationsPublishNothing(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 3, Publisher: pub})
	id := startedSession(t, m, pub, "A", "B", "C")
	before := len(pub.kinds())

	m.ReportElimination(context.Background(), id, "A")
	m.ReportElimination(context.Background(), id, "A")
	m.ReportElimination(context.Background(), id, "Z")

	if got := len(pub.kinds()) - before; got != 1 {
		t.Errorf("published %d events, want 1", got)
	}
}

func TestPayoutFailureKeepsWinner(t *testing.T) {
	pub := &recordingPublisher{}
	payer := &fakePayer{err: payment.ErrInsufficientFunds}
	m := NewManager(Options{Quota: 2, Publisher: pub, Payer: payer, Retention: time.Minute})
	defer m.Close()

	id := startedSession(t, m, pub, "A", "B")
	m.ReportElimination(context.Background(), id, "B")
	m.Wait()

	failed := pub.ofKind(EventWinnerPayoutFailed)
	if len(failed) != 1 || failed[0].(WinnerPayoutFailed).Winner != "A" {
		t.Fatalf("payout failures = %v", failed)
	}
	if len(pub.ofKind(EventWinnerPayoutSuccess)) != 0 {
		t.Error("unexpected payout success")
	}

	snap, _ := m.Session(id)
	if snap.Status != StatusFinished || snap.Winner != "A" {
		t.Errorf("session after failed payout = %+v", snap)
	}
}

func TestPayoutResultPublishedAfterSessionRemoved(t *testing.T) {
	pub := &recordingPublisher{}
	payer := &fakePayer{gate: make(chan struct{})}
	m := NewManager(Options{Quota: 2, Publisher: pub, Payer: payer, Retention: time.Millisecond})

	id := startedSession(t, m, pub, "A", "B")
	m.ReportElimination(context.Background(), id, "A")

	deadline := time.Now().Add(2 * time.Second)
	for m.ActiveGames() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.ActiveGames() != 0 {
		t.Fatal("session not removed")
	}

	close(payer.gate)
	m.Wait()

	if len(pub.ofKind(EventWinnerPayoutSuccess)) != 1 {
		t.Error("payout result not published after removal")
	}
}

func TestPayoutIssuedOnce(t *testing.T) {
	pub := &recordingPublisher{}
	payer := &fakePayer{}
	m := NewManager(Options{Quota: 2, Publisher: pub, Payer: payer, Retention: time.Minute})
	defer m.Close()

	id := startedSession(t, m, pub, "A", "B")
	m.ReportElimination(context.Background(), id, "A")
	m.Wait()

	if payer.count() != 1 {
		t.Errorf("payer called %d times, want 1", payer.count())
	}
	if _, err := m.ReportElimination(context.Background(), id, "B"); err != nil {
		t.Errorf("report after finish: %v", err)
	}
	m.Wait()
	if payer.count() != 1 {
		t.Errorf("payer called again after finish")
	}
}

func TestDeclareWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		m := NewManager(Options{Payer: &fakePayer{}})
		if err := m.DeclareWinner(ctx, "game_x", "A"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("lenient accepts conflicting winner", func(t *testing.T) {
		pub := &recordingPublisher{}
		payer := &fakePayer{}
		m := NewManager(Options{Quota: 3, Publisher: pub, Payer: payer})
		id := startedSession(t, m, pub, "A", "B", "C")

		if err := m.DeclareWinner(ctx, id, "B"); err != nil {
			t.Fatalf("DeclareWinner: %v", err)
		}
		m.Wait()
		if payer.count() != 1 || len(pub.ofKind(EventWinnerPayoutSuccess)) != 1 {
			t.Errorf("payer calls=%d", payer.count())
		}

		if err := m.DeclareWinner(ctx, id, "B"); !errors.Is(err, ErrPayoutAlreadyRequested) {
			t.Errorf("second declaration err = %v", err)
		}
	})

	t.Run("strict rejects conflicting winner", func(t *testing.T) {
		pub := &recordingPublisher{}
		payer := &fakePayer{}
		m := NewManager(Options{Quota: 3, Publisher: pub, Payer: payer, StrictWinnerDeclaration: true, Retention: time.Minute})
		defer m.Close()
		id := startedSession(t, m, pub, "A", "B", "C")

		if err := m.DeclareWinner(ctx, id, "Z"); !errors.Is(err, ErrWinnerMismatch) {
			t.Errorf("non-member err = %v", err)
		}
		if err := m.DeclareWinner(ctx, id, "A"); !errors.Is(err, ErrWinnerMismatch) {
			t.Errorf("active game err = %v", err)
		}

		m.ReportElimination(ctx, id, "A")
		if err := m.DeclareWinner(ctx, id, "A"); !errors.Is(err, ErrWinnerMismatch) {
			t.Errorf("eliminated player err = %v", err)
		}
		if payer.count() != 0 {
			t.Errorf("payer called %d times", payer.count())
		}
	})

	t.Run("declaration after automatic payout", func(t *testing.T) {
		pub := &recordingPublisher{}
		payer := &fakePayer{}
		m := NewManager(Options{Quota: 2, Publisher: pub, Payer: payer, StrictWinnerDeclaration: true, Retention: time.Minute})
		defer m.Close()
		id := startedSession(t, m, pub, "A", "B")

		m.ReportElimination(ctx, id, "A")
		if err := m.DeclareWinner(ctx, id, "B"); !errors.Is(err, ErrPayoutAlreadyRequested) {
			t.Errorf("err = %v, want ErrPayoutAlreadyRequested", err)
		}
		m.Wait()
		if payer.count() != 1 {
			t.Errorf("payer called %d times, want 1", payer.count())
		}
	})

	t.Run("no payer", func(t *testing.T) {
		pub := &recordingPublisher{}
		m := NewManager(Options{Quota: 2, Publisher: pub})
		id := startedSession(t, m, pub, "A", "B")
		if err := m.DeclareWinner(ctx, id, "A"); !errors.Is(err, ErrPayoutUnavailable) {
			t.Errorf("err = %v, want ErrPayoutUnavailable", err)
		}
		if len(pub.ofKind(EventWinnerPayoutFailed))+len(pub.ofKind(EventWinnerPayoutSuccess)) != 0 {
			t.Error("payout event published without a payer")
		}
	})
}

func TestCloseRefusesNewPayouts(t *testing.T) {
	pub := &recordingPublisher{}
	payer := &fakePayer{}
	rec := &fakeRecorder{}
	m := NewManager(Options{Quota: 2, Publisher: pub, Payer: payer, Recorder: rec})
	id := startedSession(t, m, pub, "A", "B")

	m.Close()

	if err := m.DeclareWinner(context.Background(), id, "A"); !errors.Is(err, ErrPayoutUnavailable) {
		t.Errorf("DeclareWinner after Close err = %v", err)
	}
	if remaining, err := m.ReportElimination(context.Background(), id, "B"); err != nil || remaining != 1 {
		t.Errorf("ReportElimination after Close = %d, %v", remaining, err)
	}
	m.Close()

	if payer.count() != 0 {
		t.Errorf("payer called %d times after Close", payer.count())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.matches) != 0 || len(rec.payouts) != 0 {
		t.Errorf("recorded %d matches %d payouts after Close", len(rec.matches), len(rec.payouts))
	}
}

func TestSessionsListing(t *testing.T) {
	pub := &recordingPublisher{}
	now := time.UnixMilli(1700000000000)
	m := NewManager(Options{Quota: 2, Publisher: pub, Now: func() time.Time { return now }})
	startedSession(t, m, pub, "A", "B")

	list := m.Sessions()
	if len(list) != 1 || list[0].PlayerCount != 2 || list[0].StartTime != now.UnixMilli() || list[0].Status != StatusActive {
		t.Errorf("Sessions = %+v", list)
	}
}

func TestFourPlayerEliminationOrder(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewManager(Options{Quota: 4, Publisher: pub, Retention: 20 * time.Millisecond})
	defer m.Close()

	id := startedSession(t, m, pub, "A", "B", "C", "D")
	ctx := context.Background()

	for i, p := range []string{"B", "C", "A"} {
		remaining, err := m.ReportElimination(ctx, id, p)
		if err != nil || remaining != 3-i {
			t.Fatalf("eliminate %s: remaining=%d err=%v", p, remaining, err)
		}
	}

	first := pub.ofKind(EventPlayerEliminated)[0].(PlayerEliminated)
	if first.Player != "B" || first.RemainingPlayers != 3 {
		t.Errorf("first elimination = %+v", first)
	}
	ends := pub.ofKind(EventGameEnd)
	if len(ends) != 1 || ends[0].(GameEnd).Winner != "D" {
		t.Fatalf("GAME_END = %v", ends)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.ActiveGames() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := m.Session(id); ok {
		t.Error("finished session still registered after retention window")
	}
	if _, err := m.ReportElimination(ctx, id, "D"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("report after removal err = %v", err)
	}
}
