package repo

import "time"

// Sub-saldos da carteira
const (
	SubPrimary = "PRIMARY"
	SubBonus   = "BONUS"
)

// Categorias de lançamento no ledger
const (
	CategoryBidDebit          = "BID_DEBIT"
	CategoryRoundWinCredit    = "ROUND_WIN_CREDIT"
	CategoryReferrerCredit    = "REFERRER_CREDIT"
	CategoryAdminRecharge     = "ADMIN_RECHARGE"
	CategoryAdminDebit        = "ADMIN_DEBIT"
	CategoryWithdrawalHold    = "WITHDRAWAL_HOLD"
	CategoryWithdrawalRelease = "WITHDRAWAL_RELEASE"
	CategoryRefund            = "REFUND"
)

// Status de solicitação de saque
const (
	WithdrawalPending  = "PENDING"
	WithdrawalApproved = "APPROVED"
	WithdrawalRejected = "REJECTED"
)

// Transaction é um lançamento imutável do ledger da carteira.
// AmountCents é assinado: débito negativo, crédito positivo.
type Transaction struct {
	ID          string
	WalletID    string
	Actor       string // quem originou: userID, adminID ou "system"
	SubBalance  string
	Category    string
	AmountCents int64
	Note        string
	IdemKey     string // vazio quando o lançamento não é idempotente
	CreatedAt   time.Time
}

// Withdrawal é uma solicitação de saque do usuário.
type Withdrawal struct {
	ID          string
	UserID      string
	AmountCents int64
	Status      string
	Reason      string
	CreatedAt   time.Time
	DecidedAt   time.Time
	DecidedBy   string
}

// ReconcileResult compara saldo armazenado com a soma do ledger.
type ReconcileResult struct {
	PrimaryBalance int64
	PrimaryJournal int64
	BonusBalance   int64
	BonusJournal   int64
}

// Consistent indica se os saldos batem com o ledger.
func (r ReconcileResult) Consistent() bool {
	return r.PrimaryBalance == r.PrimaryJournal && r.BonusBalance == r.BonusJournal
}
