package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Postgres implementa o ledger de carteira em banco
// Todo movimento de saldo passa por aqui: débito de aposta, crédito de
// prêmio, recarga, saque. Saldo nunca fica negativo e cada mutação gera
// exatamente um lançamento em wallet_ledger.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrWithdrawalClosed  = errors.New("withdrawal already decided")
)

// GetOrCreateWallet retorna o walletId e saldos de um usuário, criando a carteira se não existir
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance, bonus int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, 0, err
	}
	defer tx.Rollback()

	walletID, balance, bonus, err = getOrCreateWalletTx(ctx, tx, userID)
	if err != nil {
		return "", 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, 0, err
	}
	return walletID, balance, bonus, nil
}

func getOrCreateWalletTx(ctx context.Context, tx *sql.Tx, userID string) (string, int64, int64, error) {
	var id string
	var bal, bon int64
	err := tx.QueryRowContext(ctx,
		`SELECT id, balance_cents, bonus_balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&id, &bal, &bon)
	if err == sql.ErrNoRows {
		id = uuid.New().String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance_cents, bonus_balance_cents, version) VALUES($1,$2,0,0,1)`,
			id, userID); err != nil {
			return "", 0, 0, err
		}
		return id, 0, 0, nil
	}
	if err != nil {
		return "", 0, 0, err
	}
	return id, bal, bon, nil
}

func balanceColumn(sub string) string {
	if sub == SubBonus {
		return "bonus_balance_cents"
	}
	return "balance_cents"
}

// DebitTx debita um sub-saldo dentro de uma transação já aberta
// Lock pessimista na linha da carteira; checagem de saldo e débito são
// atômicos, e é isso que mantém o saldo não-negativo sob concorrência.
// amount é positivo; o lançamento no ledger sai negativo.
func DebitTx(ctx context.Context, tx *sql.Tx, userID, sub string, amount int64, actor, category, note string) (walletID string, newBalance int64, err error) {
	col := balanceColumn(sub)

	var bal int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, `+col+` FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID, &bal)
	if err == sql.ErrNoRows {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}

	if bal < amount {
		return "", 0, ErrInsufficientFunds
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET `+col+` = `+col+` - $1, version = version + 1 WHERE id=$2 RETURNING `+col,
		amount, walletID).Scan(&newBalance); err != nil {
		return "", 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(id, wallet_id, actor, sub_balance, category, amount_cents, note)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		uuid.New().String(), walletID, actor, sub, category, -amount, note); err != nil {
		return "", 0, err
	}

	return walletID, newBalance, nil
}

// CreditTx credita um sub-saldo dentro de uma transação já aberta
// Se idemKey for informado e já existir lançamento com a mesma
// (category, idem_key), não mexe no saldo: é o que torna seguro
// re-executar a liquidação da mesma rodada.
func CreditTx(ctx context.Context, tx *sql.Tx, userID, sub string, amount int64, actor, category, note, idemKey string) (walletID string, newBalance int64, applied bool, err error) {
	col := balanceColumn(sub)

	var bal int64
	walletID, bal, _, err = getOrCreateWalletTx(ctx, tx, userID)
	if err != nil {
		return "", 0, false, err
	}

	// trava a linha antes de decidir sobre idempotência
	if err = tx.QueryRowContext(ctx,
		`SELECT `+col+` FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&bal); err != nil {
		return "", 0, false, err
	}

	if idemKey != "" {
		var existing string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM wallet_ledger WHERE category=$1 AND idem_key=$2`, category, idemKey).Scan(&existing)
		if err == nil {
			return walletID, bal, false, nil // já aplicado
		}
		if err != sql.ErrNoRows {
			return "", 0, false, err
		}
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET `+col+` = `+col+` + $1, version = version + 1 WHERE id=$2 RETURNING `+col,
		amount, walletID).Scan(&newBalance); err != nil {
		return "", 0, false, err
	}

	var key any
	if idemKey != "" {
		key = idemKey
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(id, wallet_id, actor, sub_balance, category, amount_cents, note, idem_key)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		uuid.New().String(), walletID, actor, sub, category, amount, note, key); err != nil {
		return "", 0, false, err
	}

	return walletID, newBalance, true, nil
}

// Debit debita o sub-saldo do usuário em transação própria
func (p *Postgres) Debit(ctx context.Context, userID, sub string, amount int64, actor, category, note string) (newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, newBalance, err = DebitTx(ctx, tx, userID, sub, amount, actor, category, note)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Credit credita o sub-saldo do usuário em transação própria
func (p *Postgres) Credit(ctx context.Context, userID, sub string, amount int64, actor, category, note, idemKey string) (newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, newBalance, _, err = CreditTx(ctx, tx, userID, sub, amount, actor, category, note, idemKey)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ListTransactions retorna o extrato do usuário, mais recente primeiro
func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT l.id, l.wallet_id, l.actor, l.sub_balance, l.category, l.amount_cents, l.note, COALESCE(l.idem_key,''), l.created_at
		FROM wallet_ledger l
		JOIN wallets w ON w.id = l.wallet_id
		WHERE w.user_id=$1
		ORDER BY l.created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Actor, &t.SubBalance, &t.Category, &t.AmountCents, &t.Note, &t.IdemKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Reconcile recalcula os saldos a partir do ledger e compara com o armazenado
// Uso em verificação de integridade, fora do caminho quente
func (p *Postgres) Reconcile(ctx context.Context, userID string) (ReconcileResult, error) {
	var r ReconcileResult
	err := p.db.QueryRowContext(ctx, `
		SELECT w.balance_cents,
		       w.bonus_balance_cents,
		       COALESCE(SUM(l.amount_cents) FILTER (WHERE l.sub_balance=$2), 0),
		       COALESCE(SUM(l.amount_cents) FILTER (WHERE l.sub_balance=$3), 0)
		FROM wallets w
		LEFT JOIN wallet_ledger l ON l.wallet_id = w.id
		WHERE w.user_id=$1
		GROUP BY w.id`, userID, SubPrimary, SubBonus).
		Scan(&r.PrimaryBalance, &r.BonusBalance, &r.PrimaryJournal, &r.BonusJournal)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	return r, err
}
