package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implementa a persistência de rodadas e registros de liquidação
// A exclusividade de rodada ativa é garantida por índice único parcial em
// rounds(phase IN ('OPEN','AWAITING_SETTLEMENT')); as viradas de fase são
// UPDATEs condicionais (compare-and-set), nunca overwrite cego.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrActiveRoundExists = errors.New("active round already exists")
	ErrAlreadySettled    = errors.New("round already settled")
)

const uniqueViolation = "23505"

// CreateRound insere a próxima rodada em OPEN
// No-op (erro ErrActiveRoundExists) se já houver rodada ativa: o índice
// único parcial decide a corrida entre instâncias do scheduler
func (p *Postgres) CreateRound(ctx context.Context, opensAt, closesAt, settleAfter time.Time) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds(id, opens_at, closes_at, settle_after, phase, pool_cents, payout_cents)
		VALUES($1,$2,$3,$4,$5,0,0)`,
		id, opensAt, closesAt, settleAfter, PhaseOpen)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return "", ErrActiveRoundExists
		}
		return "", err
	}
	return id, nil
}

// HasActiveRound diz se existe rodada em OPEN ou AWAITING_SETTLEMENT
func (p *Postgres) HasActiveRound(ctx context.Context) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM rounds WHERE phase = ANY($1))`,
		pq.Array([]string{PhaseOpen, PhaseAwaitingSettlement})).Scan(&exists)
	return exists, err
}

// CloseDueRounds vira OPEN → AWAITING_SETTLEMENT nas rodadas cujo deadline passou
// O UPDATE espera os locks de apostas em andamento: depois do commit,
// nenhuma aposta nova entra e o pool está congelado
func (p *Postgres) CloseDueRounds(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET phase=$1 WHERE phase=$2 AND closes_at <= $3`,
		PhaseAwaitingSettlement, PhaseOpen, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DueForSettlement lista rodadas aguardando liquidação com carência vencida
func (p *Postgres) DueForSettlement(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id FROM rounds WHERE phase=$1 AND settle_after <= $2 ORDER BY settle_after`,
		PhaseAwaitingSettlement, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetRound retorna uma rodada pelo id
func (p *Postgres) GetRound(ctx context.Context, roundID string) (Round, error) {
	return p.scanRound(p.db.QueryRowContext(ctx, `
		SELECT id, opens_at, closes_at, settle_after, phase, pool_cents, payout_cents,
		       COALESCE(winning_selection_id,''), COALESCE(settled_at,'epoch'::timestamptz),
		       COALESCE(settled_by,''), COALESCE(settle_mode,''), created_at
		FROM rounds WHERE id=$1`, roundID))
}

// GetActiveRound retorna a rodada em OPEN ou AWAITING_SETTLEMENT, se houver
func (p *Postgres) GetActiveRound(ctx context.Context) (Round, error) {
	return p.scanRound(p.db.QueryRowContext(ctx, `
		SELECT id, opens_at, closes_at, settle_after, phase, pool_cents, payout_cents,
		       COALESCE(winning_selection_id,''), COALESCE(settled_at,'epoch'::timestamptz),
		       COALESCE(settled_by,''), COALESCE(settle_mode,''), created_at
		FROM rounds WHERE phase = ANY($1)
		ORDER BY created_at DESC LIMIT 1`,
		pq.Array([]string{PhaseOpen, PhaseAwaitingSettlement})))
}

func (p *Postgres) scanRound(row *sql.Row) (Round, error) {
	var r Round
	err := row.Scan(&r.ID, &r.OpensAt, &r.ClosesAt, &r.SettleAfter, &r.Phase,
		&r.PoolCents, &r.PayoutCents, &r.WinningSelectionID, &r.SettledAt,
		&r.SettledBy, &r.SettleMode, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Round{}, ErrRoundNotFound
	}
	return r, err
}

// RoundBids retorna a projeção das apostas usada pela liquidação
func (p *Postgres) RoundBids(ctx context.Context, roundID string) ([]RoundBid, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, selection_id, amount_cents FROM bids WHERE round_id=$1`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundBid
	for rows.Next() {
		var b RoundBid
		if err := rows.Scan(&b.UserID, &b.SelectionID, &b.AmountCents); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SelectionPools retorna o pool acumulado por seleção na rodada
func (p *Postgres) SelectionPools(ctx context.Context, roundID string) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT selection_id, pool_cents FROM round_selection_pools WHERE round_id=$1`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var pool int64
		if err := rows.Scan(&id, &pool); err != nil {
			return nil, err
		}
		out[id] = pool
	}
	return out, rows.Err()
}

// ActiveSelectionIDs retorna as seleções ativas do catálogo
func (p *Postgres) ActiveSelectionIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id FROM selections WHERE active ORDER BY display_rank, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InsertSettlement persiste o registro de liquidação e o rateio por vencedor
// ON CONFLICT DO NOTHING no round_id: a primeira computação que chegar vence,
// a concorrente carrega o registro existente e segue só com os créditos
func (p *Postgres) InsertSettlement(ctx context.Context, rec SettlementRecord) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO round_settlements(round_id, winning_selection_id, settle_mode,
			total_pool_cents, winner_pool_cents, loser_pool_cents,
			house_cut_cents, referrer_cut_cents, total_payout_cents, winners_count)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (round_id) DO NOTHING`,
		rec.RoundID, rec.WinningSelectionID, rec.SettleMode,
		rec.TotalPoolCents, rec.WinnerPoolCents, rec.LoserPoolCents,
		rec.HouseCutCents, rec.ReferrerCutCents, rec.TotalPayoutCents, rec.WinnersCount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil // já liquidado por outro caminho
	}

	for _, pl := range rec.Payouts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO round_settlement_payouts(round_id, user_id, bid_cents, payout_cents)
			VALUES($1,$2,$3,$4)`,
			rec.RoundID, pl.UserID, pl.BidCents, pl.PayoutCents); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// GetSettlement carrega o registro de liquidação com o rateio
func (p *Postgres) GetSettlement(ctx context.Context, roundID string) (SettlementRecord, error) {
	var rec SettlementRecord
	err := p.db.QueryRowContext(ctx, `
		SELECT round_id, winning_selection_id, settle_mode, total_pool_cents,
		       winner_pool_cents, loser_pool_cents, house_cut_cents,
		       referrer_cut_cents, total_payout_cents, winners_count, created_at
		FROM round_settlements WHERE round_id=$1`, roundID).
		Scan(&rec.RoundID, &rec.WinningSelectionID, &rec.SettleMode, &rec.TotalPoolCents,
			&rec.WinnerPoolCents, &rec.LoserPoolCents, &rec.HouseCutCents,
			&rec.ReferrerCutCents, &rec.TotalPayoutCents, &rec.WinnersCount, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrRoundNotFound
	}
	if err != nil {
		return rec, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, bid_cents, payout_cents FROM round_settlement_payouts WHERE round_id=$1`, roundID)
	if err != nil {
		return rec, err
	}
	defer rows.Close()

	for rows.Next() {
		var pl PayoutLine
		if err := rows.Scan(&pl.UserID, &pl.BidCents, &pl.PayoutCents); err != nil {
			return rec, err
		}
		rec.Payouts = append(rec.Payouts, pl)
	}
	return rec, rows.Err()
}

// MarkSettled faz o compare-and-set final para SETTLED
// Retorna flipped=false se outro caminho (timer vs admin) já liquidou;
// winning_selection_id e settled_at são gravados juntos, uma única vez
func (p *Postgres) MarkSettled(ctx context.Context, roundID, winningSelectionID string, payoutCents int64, settledBy, mode string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds
		SET phase=$1, winning_selection_id=$2, payout_cents=$3,
		    settled_at=NOW(), settled_by=$4, settle_mode=$5
		WHERE id=$6 AND phase = ANY($7)`,
		PhaseSettled, winningSelectionID, payoutCents, settledBy, mode,
		roundID, pq.Array([]string{PhaseAwaitingSettlement, PhaseNeedsReview}))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkNeedsReview sinaliza a rodada para intervenção manual
// A rodada nunca some: fica visível como pendente até alguém resolver
func (p *Postgres) MarkNeedsReview(ctx context.Context, roundID, reason string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET phase=$1, review_reason=$2 WHERE id=$3 AND phase=$4`,
		PhaseNeedsReview, reason, roundID, PhaseAwaitingSettlement)
	return err
}
