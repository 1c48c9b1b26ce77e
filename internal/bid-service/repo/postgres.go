package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	wrepo "github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
)

// Postgres implementa o ledger de apostas e os acumuladores de pool
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PlaceBid aceita uma aposta em transação única: valida a janela da
// rodada, valida seleções e limites, debita a carteira, grava as linhas
// de aposta e incrementa os pools. Qualquer falha desfaz tudo.
//
// O FOR UPDATE na linha da rodada serializa a aposta contra o fechamento
// de fase do scheduler: depois que OPEN → AWAITING_SETTLEMENT commitar,
// nenhuma aposta entra, e a liquidação lê um pool congelado.
func (p *Postgres) PlaceBid(ctx context.Context, userID, roundID string, items []BidItem, minBid, maxBid int64) (*PlaceBidResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var phase string
	var closesAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT phase, closes_at FROM rounds WHERE id=$1 FOR UPDATE`, roundID).Scan(&phase, &closesAt)
	if err == sql.ErrNoRows {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !BidWindowOpen(phase, closesAt, now) {
		return nil, ErrRoundNotOpen
	}

	selections, err := selectionsByIDTx(ctx, tx, itemIDs(items))
	if err != nil {
		return nil, err
	}

	lines, total, err := ComputeLines(items, selections)
	if err != nil {
		return nil, err
	}
	if err := CheckBounds(total, minBid, maxBid); err != nil {
		return nil, err
	}

	// débito único pela soma; saldo insuficiente aborta a transação inteira
	_, newBalance, err := wrepo.DebitTx(ctx, tx, userID, wrepo.SubPrimary, total,
		userID, wrepo.CategoryBidDebit, "bid:"+roundID)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].RoundID = roundID
		lines[i].UserID = userID
		lines[i].CreatedAt = now
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bids(id, round_id, selection_id, user_id, quantity, unit_price_cents, amount_cents, created_at)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			lines[i].ID, roundID, lines[i].SelectionID, userID,
			lines[i].Quantity, lines[i].UnitPriceCents, lines[i].AmountCents, now); err != nil {
			return nil, err
		}

		// pool por seleção da rodada: incremento atômico, nunca overwrite
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO round_selection_pools(round_id, selection_id, pool_cents, bids_count)
			VALUES($1,$2,$3,1)
			ON CONFLICT (round_id, selection_id)
			DO UPDATE SET pool_cents = round_selection_pools.pool_cents + EXCLUDED.pool_cents,
			              bids_count = round_selection_pools.bids_count + 1`,
			roundID, lines[i].SelectionID, lines[i].AmountCents); err != nil {
			return nil, err
		}

		if _, err = tx.ExecContext(ctx, `
			UPDATE selections
			SET lifetime_bids = lifetime_bids + 1,
			    lifetime_amount_cents = lifetime_amount_cents + $1
			WHERE id=$2`,
			lines[i].AmountCents, lines[i].SelectionID); err != nil {
			return nil, err
		}
	}

	var newPool int64
	if err = tx.QueryRowContext(ctx,
		`UPDATE rounds SET pool_cents = pool_cents + $1 WHERE id=$2 RETURNING pool_cents`,
		total, roundID).Scan(&newPool); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &PlaceBidResult{Bids: lines, RoundPoolCents: newPool, NewBalanceCents: newBalance}, nil
}

func itemIDs(items []BidItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.SelectionID)
	}
	return ids
}

func selectionsByIDTx(ctx context.Context, tx *sql.Tx, ids []string) (map[string]Selection, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, display_rank, active, unit_price_cents
		FROM selections
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Selection, len(ids))
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.ID, &s.Name, &s.DisplayRank, &s.Active, &s.UnitPriceCents); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// ListSelections retorna o catálogo completo ordenado por rank de exibição
func (p *Postgres) ListSelections(ctx context.Context) ([]Selection, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, display_rank, active, unit_price_cents, lifetime_bids, lifetime_amount_cents
		FROM selections
		ORDER BY display_rank, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.ID, &s.Name, &s.DisplayRank, &s.Active, &s.UnitPriceCents,
			&s.LifetimeBids, &s.LifetimeAmountCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
