package dto

import "time"

type RoundResponse struct {
	RoundID            string     `json:"round_id"`
	Phase              string     `json:"phase"`
	OpensAt            time.Time  `json:"opens_at"`
	ClosesAt           time.Time  `json:"closes_at"`
	SettleAfter        time.Time  `json:"settle_after"`
	PoolCents          int64      `json:"pool_cents"`
	PayoutCents        int64      `json:"payout_cents"`
	WinningSelectionID string     `json:"winning_selection_id,omitempty"`
	SettledAt          *time.Time `json:"settled_at,omitempty"`
	SettleMode         string     `json:"settle_mode,omitempty"`
}

type BidRow struct {
	BidID          string    `json:"bid_id"`
	UserID         string    `json:"userId"`
	SelectionID    string    `json:"selection_id"`
	Quantity       int64     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	AmountCents    int64     `json:"amount_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type PayoutRow struct {
	UserID      string `json:"userId"`
	BidCents    int64  `json:"bid_cents"`
	PayoutCents int64  `json:"payout_cents"`
}

type SettlementResponse struct {
	RoundID            string      `json:"round_id"`
	WinningSelectionID string      `json:"winning_selection_id"`
	SettleMode         string      `json:"settle_mode"`
	TotalPoolCents     int64       `json:"total_pool_cents"`
	WinnerPoolCents    int64       `json:"winner_pool_cents"`
	LoserPoolCents     int64       `json:"loser_pool_cents"`
	HouseCutCents      int64       `json:"house_cut_cents"`
	ReferrerCutCents   int64       `json:"referrer_cut_cents"`
	TotalPayoutCents   int64       `json:"total_payout_cents"`
	WinnersCount       int         `json:"winners_count"`
	Payouts            []PayoutRow `json:"payouts"`
}

type AdminSettleRequest struct {
	SelectionID string `json:"selection_id"`
	AdminID     string `json:"adminId"`
}

type SelectionPriceRequest struct {
	UnitPriceCents int64  `json:"unit_price_cents"`
	AdminID        string `json:"adminId"`
}

type SelectionActiveRequest struct {
	Active  bool   `json:"active"`
	AdminID string `json:"adminId"`
}
