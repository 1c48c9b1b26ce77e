package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/settlement"
)

// Store é o que o loop precisa da persistência de rodadas
type Store interface {
	HasActiveRound(ctx context.Context) (bool, error)
	CreateRound(ctx context.Context, opensAt, closesAt, settleAfter time.Time) (string, error)
	CloseDueRounds(ctx context.Context, now time.Time) (int64, error)
	DueForSettlement(ctx context.Context, now time.Time) ([]string, error)
	MarkNeedsReview(ctx context.Context, roundID, reason string) error
}

// Settler dispara a liquidação automática de uma rodada
type Settler interface {
	SettleSystem(ctx context.Context, roundID string) error
}

// Scheduler mantém a única rodada ativa e dirige as fases no relógio:
// cria rodada quando não há ativa, fecha apostas no deadline e dispara a
// liquidação depois da carência. Falha transitória de liquidação é
// retentada a cada tick; esgotadas as tentativas, a rodada vai para
// NEEDS_REVIEW e fica visível até intervenção manual.
type Scheduler struct {
	log     *zap.Logger
	store   Store
	settler Settler

	biddingDuration time.Duration
	graceDuration   time.Duration
	tick            time.Duration
	maxRetries      int

	retries map[string]int
	nowFn   func() time.Time // injetável nos testes
}

func New(log *zap.Logger, store Store, settler Settler, bidding, grace, tick time.Duration, maxRetries int) *Scheduler {
	return &Scheduler{
		log:             log,
		store:           store,
		settler:         settler,
		biddingDuration: bidding,
		graceDuration:   grace,
		tick:            tick,
		maxRetries:      maxRetries,
		retries:         make(map[string]int),
		nowFn:           time.Now,
	}
}

// Run roda o loop até o contexto encerrar
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick executa uma passada: fechar → liquidar → criar
// Fechar antes de liquidar garante a barreira de duas fases (nenhuma
// aposta entra depois que o pool é lido); criar por último mantém no
// máximo uma rodada ativa
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.nowFn()

	if n, err := s.store.CloseDueRounds(ctx, now); err != nil {
		s.log.Warn("close due rounds", zap.Error(err))
	} else if n > 0 {
		s.log.Info("bidding closed", zap.Int64("rounds", n))
	}

	s.settleDue(ctx, now)
	s.ensureActiveRound(ctx, now)
}

func (s *Scheduler) settleDue(ctx context.Context, now time.Time) {
	due, err := s.store.DueForSettlement(ctx, now)
	if err != nil {
		s.log.Warn("query due rounds", zap.Error(err))
		return
	}

	for _, roundID := range due {
		err := s.settler.SettleSystem(ctx, roundID)
		switch {
		case err == nil, errors.Is(err, repo.ErrAlreadySettled):
			delete(s.retries, roundID)
			s.log.Info("round settled", zap.String("roundId", roundID))
		case errors.Is(err, settlement.ErrPayoutExceedsPool), errors.Is(err, settlement.ErrPoolMismatch):
			// engine já marcou NEEDS_REVIEW; nada a retentar
			delete(s.retries, roundID)
			s.log.Error("settlement aborted, round flagged for review", zap.String("roundId", roundID))
		default:
			s.retries[roundID]++
			s.log.Warn("settlement failed, will retry",
				zap.String("roundId", roundID), zap.Int("attempt", s.retries[roundID]), zap.Error(err))
			if s.retries[roundID] >= s.maxRetries {
				if mrErr := s.store.MarkNeedsReview(ctx, roundID, "settlement retries exhausted"); mrErr != nil {
					s.log.Error("mark needs review", zap.String("roundId", roundID), zap.Error(mrErr))
					continue
				}
				delete(s.retries, roundID)
				s.log.Error("settlement retries exhausted, round flagged for review",
					zap.String("roundId", roundID))
			}
		}
	}
}

func (s *Scheduler) ensureActiveRound(ctx context.Context, now time.Time) {
	active, err := s.store.HasActiveRound(ctx)
	if err != nil {
		s.log.Warn("check active round", zap.Error(err))
		return
	}
	if active {
		return
	}

	closesAt := now.Add(s.biddingDuration)
	settleAfter := closesAt.Add(s.graceDuration)
	id, err := s.store.CreateRound(ctx, now, closesAt, settleAfter)
	if err != nil {
		// outra instância criou no mesmo tick; o índice único decidiu
		if errors.Is(err, repo.ErrActiveRoundExists) {
			return
		}
		s.log.Warn("create round", zap.Error(err))
		return
	}
	s.log.Info("round opened",
		zap.String("roundId", id),
		zap.Time("closesAt", closesAt),
		zap.Time("settleAfter", settleAfter))
}
