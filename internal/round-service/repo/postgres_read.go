package repo

import (
	"context"
	"database/sql"
	"time"
)

// ReadRepo concentra as consultas de dashboard do round-service e as
// mutações administrativas do catálogo de seleções
type ReadRepo struct {
	DB *sql.DB
}

type Bid struct {
	ID             string
	UserID         string
	SelectionID    string
	Quantity       int64
	UnitPriceCents int64
	AmountCents    int64
	CreatedAt      time.Time
}

// ListBids retorna todas as apostas de uma rodada, em ordem de chegada
func (r *ReadRepo) ListBids(ctx context.Context, roundID string) ([]Bid, error) {
	const q = `
		SELECT id, user_id, selection_id, quantity, unit_price_cents, amount_cents, created_at
		FROM bids
		WHERE round_id = $1
		ORDER BY created_at, id;
	`
	rows, err := r.DB.QueryContext(ctx, q, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.UserID, &b.SelectionID, &b.Quantity,
			&b.UnitPriceCents, &b.AmountCents, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateSelectionPrice muda o preço unitário de uma seleção
// Vale só para rodadas futuras: apostas já gravadas carregam o preço antigo
func (r *ReadRepo) UpdateSelectionPrice(ctx context.Context, selectionID string, priceCents int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE selections SET unit_price_cents=$1 WHERE id=$2`, priceCents, selectionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSelectionActive liga/desliga uma seleção do catálogo
func (r *ReadRepo) SetSelectionActive(ctx context.Context, selectionID string, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE selections SET active=$1 WHERE id=$2`, active, selectionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
