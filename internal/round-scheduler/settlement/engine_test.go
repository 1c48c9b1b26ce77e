package settlement

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/pkg/contracts/events"
)

// fakeStore guarda o estado da rodada em memória, reproduzindo a semântica
// do repositório: INSERT único do registro e CAS de fase no MarkSettled.
type fakeStore struct {
	round        repo.Round
	active       []string
	bids         []repo.RoundBid
	pools        map[string]int64
	rec          *repo.SettlementRecord
	reviewReason string
}

func (f *fakeStore) GetRound(_ context.Context, roundID string) (repo.Round, error) {
	if roundID != f.round.ID {
		return repo.Round{}, repo.ErrRoundNotFound
	}
	return f.round, nil
}

func (f *fakeStore) ActiveSelectionIDs(context.Context) ([]string, error) { return f.active, nil }

func (f *fakeStore) RoundBids(context.Context, string) ([]repo.RoundBid, error) { return f.bids, nil }

func (f *fakeStore) SelectionPools(context.Context, string) (map[string]int64, error) {
	return f.pools, nil
}

func (f *fakeStore) InsertSettlement(_ context.Context, rec repo.SettlementRecord) (bool, error) {
	if f.rec != nil {
		return false, nil
	}
	f.rec = &rec
	return true, nil
}

func (f *fakeStore) GetSettlement(_ context.Context, roundID string) (repo.SettlementRecord, error) {
	if f.rec == nil || f.rec.RoundID != roundID {
		return repo.SettlementRecord{}, repo.ErrRoundNotFound
	}
	return *f.rec, nil
}

func (f *fakeStore) MarkSettled(_ context.Context, _, winningSelectionID string, payoutCents int64, _, _ string) (bool, error) {
	if f.round.Phase != repo.PhaseAwaitingSettlement && f.round.Phase != repo.PhaseNeedsReview {
		return false, nil
	}
	f.round.Phase = repo.PhaseSettled
	f.round.WinningSelectionID = winningSelectionID
	f.round.PayoutCents = payoutCents
	return true, nil
}

func (f *fakeStore) MarkNeedsReview(_ context.Context, _, reason string) error {
	f.round.Phase = repo.PhaseNeedsReview
	f.reviewReason = reason
	return nil
}

// fakeLedger honra a chave de idempotência como o índice único do banco.
type fakeLedger struct {
	applied map[string]int64 // categoria|idemKey → valor
	failFor map[string]error // userID → erro forçado
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{applied: make(map[string]int64), failFor: make(map[string]error)}
}

func (f *fakeLedger) Credit(_ context.Context, userID, _ string, amount int64, _, category, _, idemKey string) (int64, error) {
	if err := f.failFor[userID]; err != nil {
		return 0, err
	}
	key := category + "|" + idemKey
	if v, ok := f.applied[key]; ok {
		return v, nil // repetição: não aplica de novo
	}
	f.applied[key] = amount
	return amount, nil
}

type fakePublisher struct {
	events []events.RoundSettled
}

func (f *fakePublisher) PublishRoundSettled(_ context.Context, ev events.RoundSettled) error {
	f.events = append(f.events, ev)
	return nil
}

func newTestEngine(store *fakeStore, ledger *fakeLedger, publ *fakePublisher) *Engine {
	e := NewEngine(zap.NewNop(), store, ledger, publ, Split{HousePct: 10, ReferrerPct: 5, WinnerPct: 85})
	e.randFn = func(int) int { return 0 } // determinístico: sempre a primeira ativa
	return e
}

func pendingRound(pool int64) repo.Round {
	return repo.Round{ID: "r1", Phase: repo.PhaseAwaitingSettlement, PoolCents: pool}
}

func TestSettleSystemHappyPath(t *testing.T) {
	store := &fakeStore{
		round:  pendingRound(1000),
		active: []string{"card-hearts", "card-clubs"},
		bids: []repo.RoundBid{
			{UserID: "u1", SelectionID: "card-hearts", AmountCents: 100},
			{UserID: "u2", SelectionID: "card-hearts", AmountCents: 100},
			{UserID: "u3", SelectionID: "card-hearts", AmountCents: 100},
			{UserID: "u4", SelectionID: "card-clubs", AmountCents: 700},
		},
		pools: map[string]int64{"card-hearts": 300, "card-clubs": 700},
	}
	ledger := newFakeLedger()
	publ := &fakePublisher{}

	if err := newTestEngine(store, ledger, publ).SettleSystem(context.Background(), "r1"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	rec := store.rec
	if rec == nil {
		t.Fatal("registro de liquidação não foi criado")
	}
	if rec.WinningSelectionID != "card-hearts" {
		t.Fatalf("vencedora = %s", rec.WinningSelectionID)
	}
	if rec.TotalPayoutCents != 849 || rec.WinnersCount != 3 {
		t.Fatalf("payout = %d winners = %d", rec.TotalPayoutCents, rec.WinnersCount)
	}
	// dust do rateio (1 centavo) acaba na casa: 100 + 1
	if rec.HouseCutCents != 101 || rec.ReferrerCutCents != 50 {
		t.Fatalf("house = %d referrer = %d", rec.HouseCutCents, rec.ReferrerCutCents)
	}
	if rec.WinnerPoolCents != 300 || rec.LoserPoolCents != 700 {
		t.Fatalf("winnerPool = %d loserPool = %d", rec.WinnerPoolCents, rec.LoserPoolCents)
	}

	// 3 vencedores + comissão de indicação
	if len(ledger.applied) != 4 {
		t.Fatalf("lançamentos = %d", len(ledger.applied))
	}
	if store.round.Phase != repo.PhaseSettled {
		t.Fatalf("fase = %s", store.round.Phase)
	}
	if len(publ.events) != 1 {
		t.Fatalf("eventos publicados = %d", len(publ.events))
	}
	if publ.events[0].TotalPayoutCents != 849 {
		t.Fatalf("evento = %+v", publ.events[0])
	}
}

func TestSettleTwiceCreditsAndPublishesOnce(t *testing.T) {
	store := &fakeStore{
		round:  pendingRound(1000),
		active: []string{"card-hearts"},
		bids:   []repo.RoundBid{{UserID: "u1", SelectionID: "card-hearts", AmountCents: 1000}},
		pools:  map[string]int64{"card-hearts": 1000},
	}
	ledger := newFakeLedger()
	publ := &fakePublisher{}
	engine := newTestEngine(store, ledger, publ)

	if err := engine.SettleSystem(context.Background(), "r1"); err != nil {
		t.Fatalf("primeira liquidação: %v", err)
	}
	if err := engine.SettleSystem(context.Background(), "r1"); !errors.Is(err, repo.ErrAlreadySettled) {
		t.Fatalf("segunda liquidação deveria retornar ErrAlreadySettled, veio %v", err)
	}

	if len(ledger.applied) != 2 { // vencedor + indicação, uma vez cada
		t.Fatalf("lançamentos = %d", len(ledger.applied))
	}
	if len(publ.events) != 1 {
		t.Fatalf("eventos = %d", len(publ.events))
	}
}

func TestSettleZeroPoolRound(t *testing.T) {
	// rodada sem apostas liquida normalmente, sem crédito algum
	store := &fakeStore{
		round:  pendingRound(0),
		active: []string{"card-hearts"},
		pools:  map[string]int64{},
	}
	ledger := newFakeLedger()
	publ := &fakePublisher{}

	if err := newTestEngine(store, ledger, publ).SettleSystem(context.Background(), "r1"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(ledger.applied) != 0 {
		t.Fatalf("rodada vazia não deveria creditar ninguém: %d", len(ledger.applied))
	}
	if store.rec.WinnersCount != 0 {
		t.Fatalf("winners = %d", store.rec.WinnersCount)
	}
	if store.round.Phase != repo.PhaseSettled {
		t.Fatalf("fase = %s", store.round.Phase)
	}
}

func TestSettleAdminRejectsInactiveSelection(t *testing.T) {
	store := &fakeStore{
		round:  pendingRound(500),
		active: []string{"card-hearts"},
		pools:  map[string]int64{},
	}
	engine := newTestEngine(store, newFakeLedger(), &fakePublisher{})

	err := engine.SettleAdmin(context.Background(), "r1", "card-spades", "admin-1")
	if !errors.Is(err, ErrSelectionInactive) {
		t.Fatalf("esperava ErrSelectionInactive, veio %v", err)
	}
	if store.round.Phase != repo.PhaseAwaitingSettlement {
		t.Fatalf("fase = %s", store.round.Phase)
	}
}

func TestSettleAdminUnlocksNeedsReview(t *testing.T) {
	store := &fakeStore{
		round:  repo.Round{ID: "r1", Phase: repo.PhaseNeedsReview, PoolCents: 1000},
		active: []string{"card-hearts"},
		bids:   []repo.RoundBid{{UserID: "u1", SelectionID: "card-hearts", AmountCents: 1000}},
		pools:  map[string]int64{"card-hearts": 1000},
	}
	ledger := newFakeLedger()
	engine := newTestEngine(store, ledger, &fakePublisher{})

	// caminho automático não destrava revisão manual
	if err := engine.SettleSystem(context.Background(), "r1"); !errors.Is(err, ErrRoundNotSettleable) {
		t.Fatalf("esperava ErrRoundNotSettleable, veio %v", err)
	}

	if err := engine.SettleAdmin(context.Background(), "r1", "card-hearts", "admin-1"); err != nil {
		t.Fatalf("admin settle: %v", err)
	}
	if store.round.Phase != repo.PhaseSettled {
		t.Fatalf("fase = %s", store.round.Phase)
	}
}

func TestSettleAbortsOnPoolDivergence(t *testing.T) {
	// pool_cents da rodada e acumuladores por seleção são gravados pela
	// mesma transação; divergência em qualquer direção tem que abortar
	// antes de qualquer crédito e marcar a rodada para revisão
	cases := []struct {
		name  string
		pools map[string]int64
	}{
		{"acumuladores abaixo do pool", map[string]int64{"card-hearts": 400}},
		{"acumuladores acima do pool", map[string]int64{"card-hearts": 1600}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{
				round:  pendingRound(1000),
				active: []string{"card-hearts"},
				bids:   []repo.RoundBid{{UserID: "u1", SelectionID: "card-hearts", AmountCents: 1000}},
				pools:  tc.pools,
			}
			ledger := newFakeLedger()
			publ := &fakePublisher{}
			engine := newTestEngine(store, ledger, publ)

			err := engine.SettleSystem(context.Background(), "r1")
			if !errors.Is(err, ErrPoolMismatch) {
				t.Fatalf("esperava ErrPoolMismatch, veio %v", err)
			}
			if len(ledger.applied) != 0 {
				t.Fatalf("abortou mas creditou: %d lançamentos", len(ledger.applied))
			}
			if store.round.Phase != repo.PhaseNeedsReview || store.reviewReason == "" {
				t.Fatalf("fase = %s reason = %q", store.round.Phase, store.reviewReason)
			}
			if len(publ.events) != 0 {
				t.Fatalf("eventos = %d", len(publ.events))
			}
		})
	}
}

func TestSettleRetryAfterPartialCreditFailure(t *testing.T) {
	store := &fakeStore{
		round:  pendingRound(1000),
		active: []string{"card-hearts"},
		bids: []repo.RoundBid{
			{UserID: "u1", SelectionID: "card-hearts", AmountCents: 500},
			{UserID: "u2", SelectionID: "card-hearts", AmountCents: 500},
		},
		pools: map[string]int64{"card-hearts": 1000},
	}
	ledger := newFakeLedger()
	ledger.failFor["u2"] = errors.New("wallet unavailable")
	publ := &fakePublisher{}
	engine := newTestEngine(store, ledger, publ)

	err := engine.SettleSystem(context.Background(), "r1")
	if !errors.Is(err, ErrCreditIncomplete) {
		t.Fatalf("esperava ErrCreditIncomplete, veio %v", err)
	}
	// rodada pendente e nada publicado; crédito de u1 já aplicado
	if store.round.Phase != repo.PhaseAwaitingSettlement {
		t.Fatalf("fase = %s", store.round.Phase)
	}
	if len(publ.events) != 0 {
		t.Fatalf("eventos = %d", len(publ.events))
	}
	if len(ledger.applied) != 2 { // u1 + comissão já aplicados
		t.Fatalf("lançamentos após falha parcial = %d", len(ledger.applied))
	}

	// próximo tick: carteira voltou; u1 não pode ser creditado de novo
	delete(ledger.failFor, "u2")
	if err := engine.SettleSystem(context.Background(), "r1"); err != nil {
		t.Fatalf("retentativa: %v", err)
	}
	if store.round.Phase != repo.PhaseSettled {
		t.Fatalf("fase = %s", store.round.Phase)
	}
	if len(publ.events) != 1 {
		t.Fatalf("eventos = %d", len(publ.events))
	}
	if len(ledger.applied) != 3 { // entra só u2; u1 e comissão seguem únicos
		t.Fatalf("lançamentos = %d", len(ledger.applied))
	}
}

func TestSystemSettleWithNoActiveSelections(t *testing.T) {
	store := &fakeStore{round: pendingRound(1000), active: nil, pools: map[string]int64{}}
	engine := newTestEngine(store, newFakeLedger(), &fakePublisher{})

	if err := engine.SettleSystem(context.Background(), "r1"); !errors.Is(err, ErrSelectionInactive) {
		t.Fatalf("esperava ErrSelectionInactive, veio %v", err)
	}
}
