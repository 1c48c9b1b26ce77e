package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// RequestWithdrawal debita o saldo primário (hold) e registra a solicitação PENDING
// Saldo insuficiente rejeita tudo sem efeito colateral
func (p *Postgres) RequestWithdrawal(ctx context.Context, userID string, amount int64) (withdrawalID string, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	withdrawalID = uuid.New().String()

	_, newBalance, err = DebitTx(ctx, tx, userID, SubPrimary, amount, userID,
		CategoryWithdrawalHold, "withdrawal-hold:"+withdrawalID)
	if err != nil {
		return "", 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO withdrawal_requests(id, user_id, amount_cents, status) VALUES($1,$2,$3,$4)`,
		withdrawalID, userID, amount, WithdrawalPending); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return withdrawalID, newBalance, nil
}

// ApproveWithdrawal marca a solicitação como APPROVED
// Idempotente: aprovar de novo não faz nada; rejeitada não pode mais ser aprovada
func (p *Postgres) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM withdrawal_requests WHERE id=$1 FOR UPDATE`, withdrawalID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	switch status {
	case WithdrawalApproved:
		return nil // idempotente
	case WithdrawalRejected:
		return ErrWithdrawalClosed
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status=$1, decided_by=$2, decided_at=NOW() WHERE id=$3`,
		WithdrawalApproved, adminID, withdrawalID); err != nil {
		return err
	}

	return tx.Commit()
}

// RejectWithdrawal marca como REJECTED e devolve o valor retido ao saldo primário
// A devolução usa idem_key por solicitação: re-executar não credita duas vezes
func (p *Postgres) RejectWithdrawal(ctx context.Context, withdrawalID, adminID, reason string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var userID, status string
	var amount int64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, amount_cents, status FROM withdrawal_requests WHERE id=$1 FOR UPDATE`,
		withdrawalID).Scan(&userID, &amount, &status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	switch status {
	case WithdrawalRejected:
		return nil // idempotente
	case WithdrawalApproved:
		return ErrWithdrawalClosed
	}

	if _, _, _, err = CreditTx(ctx, tx, userID, SubPrimary, amount, adminID,
		CategoryWithdrawalRelease, "withdrawal-release:"+reason, "withdrawal:"+withdrawalID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status=$1, reason=$2, decided_by=$3, decided_at=NOW() WHERE id=$4`,
		WithdrawalRejected, reason, adminID, withdrawalID); err != nil {
		return err
	}

	return tx.Commit()
}

// ListWithdrawals retorna as solicitações de saque de um usuário
func (p *Postgres) ListWithdrawals(ctx context.Context, userID string, limit int) ([]Withdrawal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, status, COALESCE(reason,''), created_at,
		       COALESCE(decided_at, 'epoch'::timestamptz), COALESCE(decided_by,'')
		FROM withdrawal_requests
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		var wd Withdrawal
		if err := rows.Scan(&wd.ID, &wd.UserID, &wd.AmountCents, &wd.Status, &wd.Reason,
			&wd.CreatedAt, &wd.DecidedAt, &wd.DecidedBy); err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, rows.Err()
}
