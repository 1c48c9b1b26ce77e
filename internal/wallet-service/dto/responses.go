package dto

import "time"

type WalletResponse struct {
	UserID            string `json:"userId"`
	WalletID          string `json:"walletId"`
	BalanceCents      int64  `json:"balance_cents"`
	BonusBalanceCents int64  `json:"bonus_balance_cents"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	SubBalance  string    `json:"sub_balance"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type WithdrawalResponse struct {
	WithdrawalID string `json:"withdrawal_id"`
	Status       string `json:"status"`
	BalanceCents int64  `json:"balance_cents,omitempty"`
}

type WithdrawalRow struct {
	WithdrawalID string    `json:"withdrawal_id"`
	AmountCents  int64     `json:"amount_cents"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	DecidedBy    string    `json:"decided_by,omitempty"`
}

type ReconcileResponse struct {
	UserID         string `json:"userId"`
	Consistent     bool   `json:"consistent"`
	PrimaryBalance int64  `json:"primary_balance_cents"`
	PrimaryJournal int64  `json:"primary_journal_cents"`
	BonusBalance   int64  `json:"bonus_balance_cents"`
	BonusJournal   int64  `json:"bonus_journal_cents"`
}
