package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/settlement"
)

type fakeStore struct {
	hasActive   bool
	createErr   error
	created     []struct{ opensAt, closesAt, settleAfter time.Time }
	closedCalls int
	due         []string
	reviewed    map[string]string
}

func (f *fakeStore) HasActiveRound(context.Context) (bool, error) { return f.hasActive, nil }

func (f *fakeStore) CreateRound(_ context.Context, opensAt, closesAt, settleAfter time.Time) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, struct{ opensAt, closesAt, settleAfter time.Time }{opensAt, closesAt, settleAfter})
	f.hasActive = true
	return "r-new", nil
}

func (f *fakeStore) CloseDueRounds(context.Context, time.Time) (int64, error) {
	f.closedCalls++
	return 0, nil
}

func (f *fakeStore) DueForSettlement(context.Context, time.Time) ([]string, error) {
	return f.due, nil
}

func (f *fakeStore) MarkNeedsReview(_ context.Context, roundID, reason string) error {
	if f.reviewed == nil {
		f.reviewed = make(map[string]string)
	}
	f.reviewed[roundID] = reason
	// rodada sai da fila de liquidação
	out := f.due[:0]
	for _, id := range f.due {
		if id != roundID {
			out = append(out, id)
		}
	}
	f.due = out
	return nil
}

type fakeSettler struct {
	errs  map[string]error
	calls map[string]int
}

func (f *fakeSettler) SettleSystem(_ context.Context, roundID string) error {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[roundID]++
	return f.errs[roundID]
}

func newTestScheduler(store *fakeStore, settler *fakeSettler, maxRetries int) *Scheduler {
	s := New(zap.NewNop(), store, settler, 25*time.Second, 5*time.Second, time.Second, maxRetries)
	s.nowFn = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestTickOpensRoundWhenNoneActive(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, &fakeSettler{}, 5)

	s.Tick(context.Background())

	if len(store.created) != 1 {
		t.Fatalf("rodadas criadas = %d", len(store.created))
	}
	c := store.created[0]
	now := s.nowFn()
	if !c.opensAt.Equal(now) || !c.closesAt.Equal(now.Add(25*time.Second)) {
		t.Fatalf("janela = %v..%v", c.opensAt, c.closesAt)
	}
	if !c.settleAfter.Equal(c.closesAt.Add(5 * time.Second)) {
		t.Fatalf("settleAfter = %v", c.settleAfter)
	}

	// próxima passada não abre outra
	s.Tick(context.Background())
	if len(store.created) != 1 {
		t.Fatalf("rodadas criadas = %d", len(store.created))
	}
}

func TestTickSwallowsActiveRoundRace(t *testing.T) {
	// outra instância criou entre o HasActiveRound e o INSERT
	store := &fakeStore{createErr: repo.ErrActiveRoundExists}
	s := newTestScheduler(store, &fakeSettler{}, 5)

	s.Tick(context.Background()) // não pode entrar em pânico nem retentar no mesmo tick

	if len(store.created) != 0 {
		t.Fatalf("rodadas criadas = %d", len(store.created))
	}
}

func TestTickAlwaysClosesBeforeSettling(t *testing.T) {
	store := &fakeStore{hasActive: true}
	s := newTestScheduler(store, &fakeSettler{}, 5)

	s.Tick(context.Background())
	s.Tick(context.Background())

	if store.closedCalls != 2 {
		t.Fatalf("CloseDueRounds chamado %d vezes", store.closedCalls)
	}
}

func TestSettleSuccessClearsRetryCount(t *testing.T) {
	store := &fakeStore{hasActive: true, due: []string{"r1"}}
	settler := &fakeSettler{errs: map[string]error{"r1": errors.New("db timeout")}}
	s := newTestScheduler(store, settler, 5)

	s.Tick(context.Background())
	s.Tick(context.Background())
	if s.retries["r1"] != 2 {
		t.Fatalf("retries = %d", s.retries["r1"])
	}

	settler.errs = nil
	s.Tick(context.Background())
	if _, ok := s.retries["r1"]; ok {
		t.Fatal("contador de retentativa deveria ter sido limpo")
	}
}

func TestSettleRetriesExhaustedFlagsReview(t *testing.T) {
	store := &fakeStore{hasActive: true, due: []string{"r1"}}
	settler := &fakeSettler{errs: map[string]error{"r1": errors.New("db timeout")}}
	s := newTestScheduler(store, settler, 3)

	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}

	if store.reviewed["r1"] == "" {
		t.Fatal("rodada deveria estar marcada para revisão")
	}
	if _, ok := s.retries["r1"]; ok {
		t.Fatal("contador deveria ter sido limpo após marcar revisão")
	}

	// fora da fila, a rodada não é mais tocada
	s.Tick(context.Background())
	if settler.calls["r1"] != 3 {
		t.Fatalf("liquidação chamada %d vezes", settler.calls["r1"])
	}
}

func TestSettleAlreadySettledIsTerminal(t *testing.T) {
	// outra instância liquidou primeiro: não conta como falha
	store := &fakeStore{hasActive: true, due: []string{"r1"}}
	settler := &fakeSettler{errs: map[string]error{"r1": repo.ErrAlreadySettled}}
	s := newTestScheduler(store, settler, 3)

	s.Tick(context.Background())

	if _, ok := s.retries["r1"]; ok {
		t.Fatal("ErrAlreadySettled não deveria incrementar retentativa")
	}
	if len(store.reviewed) != 0 {
		t.Fatalf("reviewed = %v", store.reviewed)
	}
}

func TestInvariantViolationDoesNotRetry(t *testing.T) {
	// a engine já marcou NEEDS_REVIEW; o scheduler só desiste
	for _, settleErr := range []error{settlement.ErrPayoutExceedsPool, settlement.ErrPoolMismatch} {
		store := &fakeStore{hasActive: true, due: []string{"r1"}}
		settler := &fakeSettler{errs: map[string]error{"r1": settleErr}}
		s := newTestScheduler(store, settler, 3)

		s.Tick(context.Background())

		if _, ok := s.retries["r1"]; ok {
			t.Fatalf("%v não deveria entrar no ciclo de retentativa", settleErr)
		}
		if len(store.reviewed) != 0 {
			t.Fatalf("scheduler não deveria marcar revisão por conta própria: %v", store.reviewed)
		}
	}
}
