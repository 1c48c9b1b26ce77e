package repo

import "time"

// Selection é uma carta apostável do catálogo.
type Selection struct {
	ID             string
	Name           string
	DisplayRank    int
	Active         bool
	UnitPriceCents int64
	// acumulados de vida inteira, só para dashboards
	LifetimeBids        int64
	LifetimeAmountCents int64
}

// Bid é o modelo persistido no Postgres. Imutável depois de gravado;
// o preço unitário é capturado no momento da aposta.
type Bid struct {
	ID             string
	RoundID        string
	SelectionID    string
	UserID         string
	Quantity       int64
	UnitPriceCents int64
	AmountCents    int64
	CreatedAt      time.Time
}

// BidItem é um par (seleção, quantidade) de uma requisição de aposta.
type BidItem struct {
	SelectionID string
	Quantity    int64
}

// PlaceBidResult é o retorno de uma aposta aceita.
type PlaceBidResult struct {
	Bids            []Bid
	RoundPoolCents  int64
	NewBalanceCents int64
}
