package events

// Evento publicado no tópico "bid_placed" após o commit de uma aposta.
// Uma mensagem por par (selection, quantity) confirmado na rodada.
type BidPlaced struct {
	BidID          string `json:"bid_id"`
	RoundID        string `json:"round_id"`
	UserID         string `json:"user_id"`
	SelectionID    string `json:"selection_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	AmountCents    int64  `json:"amount_cents"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
