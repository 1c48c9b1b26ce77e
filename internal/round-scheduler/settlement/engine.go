package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	wrepo "github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
	"github.com/radieske/card-bid-platform-poc/pkg/contracts/events"
)

var (
	ErrRoundNotSettleable = errors.New("round not awaiting settlement")
	ErrSelectionInactive  = errors.New("winning selection inactive")
	ErrCreditIncomplete   = errors.New("some winner credits failed")
	ErrPoolMismatch       = errors.New("selection pools diverge from round pool")
)

// conta interna que acumula a comissão de indicação da rodada;
// a atribuição por indicador é feita fora deste fluxo
const referrerPoolAccount = "referrer-pool"

// Store é o que a liquidação precisa da persistência de rodadas
type Store interface {
	GetRound(ctx context.Context, roundID string) (repo.Round, error)
	ActiveSelectionIDs(ctx context.Context) ([]string, error)
	RoundBids(ctx context.Context, roundID string) ([]repo.RoundBid, error)
	SelectionPools(ctx context.Context, roundID string) (map[string]int64, error)
	InsertSettlement(ctx context.Context, rec repo.SettlementRecord) (bool, error)
	GetSettlement(ctx context.Context, roundID string) (repo.SettlementRecord, error)
	MarkSettled(ctx context.Context, roundID, winningSelectionID string, payoutCents int64, settledBy, mode string) (bool, error)
	MarkNeedsReview(ctx context.Context, roundID, reason string) error
}

// Ledger é a fatia da carteira usada pelos créditos de prêmio
type Ledger interface {
	Credit(ctx context.Context, userID, sub string, amount int64, actor, category, note, idemKey string) (int64, error)
}

type Publisher interface {
	PublishRoundSettled(ctx context.Context, ev events.RoundSettled) error
}

// Split são os percentuais de repartição vindos da configuração
type Split struct {
	HousePct    int64
	ReferrerPct int64
	WinnerPct   int64
}

// Engine liquida rodadas: escolhe o vencedor, reparte o pool, credita os
// ganhadores exatamente uma vez e congela o registro financeiro.
//
// Pode ser chamada mais de uma vez para a mesma rodada (timer e admin
// correm entre si): o INSERT do registro decide quem computa, as chaves
// de idempotência protegem os créditos e o CAS de fase garante evento
// único de round_settled.
type Engine struct {
	log    *zap.Logger
	store  Store
	ledger Ledger
	publ   Publisher
	split  Split
	randFn func(n int) int // injetável nos testes
}

func NewEngine(log *zap.Logger, store Store, ledger Ledger, publ Publisher, split Split) *Engine {
	return &Engine{log: log, store: store, ledger: ledger, publ: publ, split: split, randFn: rand.Intn}
}

// SettleSystem liquida com vencedor sorteado uniformemente entre as
// seleções ativas (caminho do timer)
func (e *Engine) SettleSystem(ctx context.Context, roundID string) error {
	return e.settle(ctx, roundID, "", "system", repo.ModeSystem)
}

// SettleAdmin liquida com vencedor declarado pelo administrador
func (e *Engine) SettleAdmin(ctx context.Context, roundID, selectionID, adminID string) error {
	if selectionID == "" {
		return ErrSelectionInactive
	}
	return e.settle(ctx, roundID, selectionID, adminID, repo.ModeAdmin)
}

func (e *Engine) settle(ctx context.Context, roundID, selectionID, settledBy, mode string) error {
	round, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return err
	}

	switch round.Phase {
	case repo.PhaseSettled:
		return repo.ErrAlreadySettled
	case repo.PhaseAwaitingSettlement:
		// segue
	case repo.PhaseNeedsReview:
		// só admin destrava rodada marcada para revisão
		if mode != repo.ModeAdmin {
			return ErrRoundNotSettleable
		}
	default:
		return ErrRoundNotSettleable
	}

	rec, err := e.loadOrComputeRecord(ctx, round, selectionID, mode)
	if err != nil {
		return err
	}

	if err := e.creditWinners(ctx, rec); err != nil {
		// rodada permanece pendente; próximo tick tenta de novo,
		// créditos já aplicados ficam protegidos pela idem_key
		return err
	}

	flipped, err := e.store.MarkSettled(ctx, roundID, rec.WinningSelectionID,
		rec.TotalPayoutCents, settledBy, rec.SettleMode)
	if err != nil {
		return err
	}
	if !flipped {
		return repo.ErrAlreadySettled
	}

	// evento dispara uma única vez, só por quem venceu o CAS e depois do
	// registro estar durável
	ev := events.RoundSettled{
		RoundID:            rec.RoundID,
		WinningSelectionID: rec.WinningSelectionID,
		SettleMode:         rec.SettleMode,
		TotalPoolCents:     rec.TotalPoolCents,
		TotalPayoutCents:   rec.TotalPayoutCents,
		WinnersCount:       rec.WinnersCount,
		Ts:                 time.Now(),
	}
	for attempt := 0; attempt < 3; attempt++ {
		if err := e.publ.PublishRoundSettled(ctx, ev); err == nil {
			return nil
		}
		time.Sleep(time.Duration(100*(attempt+1)) * time.Millisecond)
	}
	e.log.Error("round_settled publish failed after retries", zap.String("roundId", roundID))
	return nil
}

// loadOrComputeRecord retorna o registro persistido, computando e
// inserindo um novo quando é a primeira liquidação da rodada
func (e *Engine) loadOrComputeRecord(ctx context.Context, round repo.Round, selectionID, mode string) (repo.SettlementRecord, error) {
	if rec, err := e.store.GetSettlement(ctx, round.ID); err == nil {
		return rec, nil
	} else if !errors.Is(err, repo.ErrRoundNotFound) {
		return repo.SettlementRecord{}, err
	}

	rec, err := e.compute(ctx, round, selectionID, mode)
	if err != nil {
		return repo.SettlementRecord{}, err
	}

	inserted, err := e.store.InsertSettlement(ctx, rec)
	if err != nil {
		return repo.SettlementRecord{}, err
	}
	if !inserted {
		// concorrente computou primeiro; o registro dele é o oficial
		return e.store.GetSettlement(ctx, round.ID)
	}
	return rec, nil
}

// compute executa os passos puros da liquidação: vencedor, repartição,
// rateio e invariante. Nenhum efeito colateral até aqui.
func (e *Engine) compute(ctx context.Context, round repo.Round, selectionID, mode string) (repo.SettlementRecord, error) {
	active, err := e.store.ActiveSelectionIDs(ctx)
	if err != nil {
		return repo.SettlementRecord{}, err
	}

	winner := selectionID
	if mode == repo.ModeAdmin {
		if !contains(active, winner) {
			return repo.SettlementRecord{}, ErrSelectionInactive
		}
	} else {
		// sorteio uniforme entre seleções ativas; sem viés pelo pool
		if len(active) == 0 {
			return repo.SettlementRecord{}, ErrSelectionInactive
		}
		winner = active[e.randFn(len(active))]
	}

	pools, err := e.store.SelectionPools(ctx, round.ID)
	if err != nil {
		return repo.SettlementRecord{}, err
	}
	bids, err := e.store.RoundBids(ctx, round.ID)
	if err != nil {
		return repo.SettlementRecord{}, err
	}

	// os acumuladores por seleção e rounds.pool_cents são gravados pela
	// mesma transação de aposta; qualquer divergência, em qualquer
	// direção, é corrupção e aborta sem creditar ninguém
	var collected int64
	for _, v := range pools {
		collected += v
	}
	if collected != round.PoolCents {
		if mrErr := e.store.MarkNeedsReview(ctx, round.ID, "selection pools diverge from round pool"); mrErr != nil {
			e.log.Error("mark needs review", zap.String("roundId", round.ID), zap.Error(mrErr))
		}
		return repo.SettlementRecord{}, ErrPoolMismatch
	}

	split := SplitPool(round.PoolCents, e.split.HousePct, e.split.ReferrerPct, e.split.WinnerPct)
	stakes := WinnerStakes(bids, winner)
	payouts, totalPayout := ProRata(split.WinnerPoolCents, stakes)

	if err := CheckConservation(round.PoolCents, split.HouseCents, split.ReferrerCents, totalPayout); err != nil {
		if mrErr := e.store.MarkNeedsReview(ctx, round.ID, "payout exceeds pool"); mrErr != nil {
			e.log.Error("mark needs review", zap.String("roundId", round.ID), zap.Error(mrErr))
		}
		return repo.SettlementRecord{}, err
	}

	// sobra não distribuída (dust do rateio, pool sem vencedores) fica com a casa
	house := round.PoolCents - split.ReferrerCents - totalPayout

	winnerPool := pools[winner]
	return repo.SettlementRecord{
		RoundID:            round.ID,
		WinningSelectionID: winner,
		SettleMode:         mode,
		TotalPoolCents:     round.PoolCents,
		WinnerPoolCents:    winnerPool,
		LoserPoolCents:     round.PoolCents - winnerPool,
		HouseCutCents:      house,
		ReferrerCutCents:   split.ReferrerCents,
		TotalPayoutCents:   totalPayout,
		WinnersCount:       len(payouts),
		Payouts:            payouts,
	}, nil
}

// creditWinners aplica os créditos de prêmio e a comissão de indicação
// Cada crédito usa idem_key (categoria, rodada:usuário): re-execução não
// credita duas vezes. Falha individual não bloqueia os demais vencedores.
func (e *Engine) creditWinners(ctx context.Context, rec repo.SettlementRecord) error {
	var failed int
	for _, pl := range rec.Payouts {
		if pl.PayoutCents <= 0 {
			continue
		}
		key := rec.RoundID + ":" + pl.UserID
		_, err := e.ledger.Credit(ctx, pl.UserID, wrepo.SubPrimary, pl.PayoutCents,
			"system", wrepo.CategoryRoundWinCredit, "round-win:"+rec.RoundID, key)
		if err != nil {
			failed++
			e.log.Error("winner credit failed",
				zap.String("roundId", rec.RoundID), zap.String("userId", pl.UserID), zap.Error(err))
		}
	}

	if rec.ReferrerCutCents > 0 {
		if _, err := e.ledger.Credit(ctx, referrerPoolAccount, wrepo.SubPrimary, rec.ReferrerCutCents,
			"system", wrepo.CategoryReferrerCredit, "referrer-cut:"+rec.RoundID, "referrer:"+rec.RoundID); err != nil {
			failed++
			e.log.Error("referrer credit failed", zap.String("roundId", rec.RoundID), zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d pending", ErrCreditIncomplete, failed)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
