package dto

type RechargeRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	AdminID     string `json:"adminId"`
	Note        string `json:"note,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência
}

type AdminDebitRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	AdminID     string `json:"adminId"`
	Note        string `json:"note,omitempty"`
}

type WithdrawalRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
}

type WithdrawalDecisionRequest struct {
	WithdrawalID string `json:"withdrawal_id"`
	AdminID      string `json:"adminId"`
	Reason       string `json:"reason,omitempty"` // só usado na rejeição
}
