package dto

type PlaceBidItem struct {
	SelectionID string `json:"selection_id"`
	Quantity    int64  `json:"quantity"`
}

type PlaceBidRequest struct {
	UserID  string         `json:"userId"`
	RoundID string         `json:"round_id"`
	Items   []PlaceBidItem `json:"items"`
}
