package ws

// ClientMsg é o envelope das mensagens enviadas pelo cliente
type ClientMsg struct {
	Type string `json:"type"` // "ping"
}

// RoundUpdate é o payload empurrado para os clientes conectados
// Espelha o evento round_settled vindo do Kafka via Redis Pub/Sub
type RoundUpdate struct {
	Type               string `json:"type"` // "round_settled"
	RoundID            string `json:"round_id"`
	WinningSelectionID string `json:"winning_selection_id"`
	SettleMode         string `json:"settle_mode"`
	TotalPoolCents     int64  `json:"total_pool_cents"`
	TotalPayoutCents   int64  `json:"total_payout_cents"`
	WinnersCount       int    `json:"winners_count"`
}
