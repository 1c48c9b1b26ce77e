package dto

import "time"

type BidResponse struct {
	BidID          string    `json:"bid_id"`
	SelectionID    string    `json:"selection_id"`
	Quantity       int64     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	AmountCents    int64     `json:"amount_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type PlaceBidResponse struct {
	RoundID        string        `json:"round_id"`
	Bids           []BidResponse `json:"bids"`
	RoundPoolCents int64         `json:"round_pool_cents"`
	BalanceCents   int64         `json:"balance_cents"`
}

type SelectionResponse struct {
	SelectionID    string `json:"selection_id"`
	Name           string `json:"name"`
	DisplayRank    int    `json:"display_rank"`
	Active         bool   `json:"active"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}
