package topics

const (
	// Apostas (bids)
	BidPlaced = "bid_placed"

	// Rodadas
	RoundSettled = "round_settled"

	// DLQs
	BidPlacedDLQ    = "bid_placed_dlq"
	RoundSettledDLQ = "round_settled_dlq"
)
