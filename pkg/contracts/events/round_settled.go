package events

import "time"

// Evento emitido exatamente uma vez por rodada liquidada, depois do
// registro de liquidação estar persistido.
type RoundSettled struct {
	RoundID            string    `json:"round_id"`
	WinningSelectionID string    `json:"winning_selection_id"`
	SettleMode         string    `json:"settle_mode"` // "SYSTEM" | "ADMIN"
	TotalPoolCents     int64     `json:"total_pool_cents"`
	TotalPayoutCents   int64     `json:"total_payout_cents"`
	WinnersCount       int       `json:"winners_count"`
	Ts                 time.Time `json:"ts"`
}
