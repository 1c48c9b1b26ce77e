package repo

import (
	"errors"
	"math"
	"time"
)

var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundNotOpen      = errors.New("round not open for bids")
	ErrSelectionInactive = errors.New("selection inactive")
	ErrInvalidAmount     = errors.New("bid amount out of bounds")
)

// BidWindowOpen diz se a rodada ainda aceita apostas.
// O deadline é estrito: aposta no instante exato do fechamento já é rejeitada.
func BidWindowOpen(phase string, closesAt, now time.Time) bool {
	return phase == "OPEN" && now.Before(closesAt)
}

// ComputeLines valida os itens contra o catálogo e calcula os valores
// com o preço unitário vigente. Não toca banco: é a parte pura do PlaceBid.
func ComputeLines(items []BidItem, selections map[string]Selection) (lines []Bid, total int64, err error) {
	if len(items) == 0 {
		return nil, 0, ErrInvalidAmount
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, 0, ErrInvalidAmount
		}
		sel, ok := selections[it.SelectionID]
		if !ok || !sel.Active {
			return nil, 0, ErrSelectionInactive
		}
		// quantidade grande demais faria o valor dar a volta no int64 e
		// entrar negativo no pool; rejeita antes de multiplicar
		if sel.UnitPriceCents <= 0 || it.Quantity > math.MaxInt64/sel.UnitPriceCents {
			return nil, 0, ErrInvalidAmount
		}
		amount := it.Quantity * sel.UnitPriceCents
		if total > math.MaxInt64-amount {
			return nil, 0, ErrInvalidAmount
		}
		lines = append(lines, Bid{
			SelectionID:    it.SelectionID,
			Quantity:       it.Quantity,
			UnitPriceCents: sel.UnitPriceCents,
			AmountCents:    amount,
		})
		total += amount
	}
	return lines, total, nil
}

// CheckBounds aplica os limites min/max do total apostado em uma chamada.
func CheckBounds(total, min, max int64) error {
	if total < min || total > max {
		return ErrInvalidAmount
	}
	return nil
}
