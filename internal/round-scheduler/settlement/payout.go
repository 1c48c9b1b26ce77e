package settlement

import (
	"errors"
	"sort"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
)

var ErrPayoutExceedsPool = errors.New("computed payout exceeds collected pool")

// PoolSplit é a repartição do pool total em centavos.
type PoolSplit struct {
	HouseCents      int64
	ReferrerCents   int64
	WinnerPoolCents int64
}

// SplitPool reparte o pool pelos percentuais configurados (somam 100).
// Aritmética inteira em centavos; o resto do arredondamento fica com a casa.
func SplitPool(totalCents, housePct, referrerPct, winnerPct int64) PoolSplit {
	s := PoolSplit{
		HouseCents:      totalCents * housePct / 100,
		ReferrerCents:   totalCents * referrerPct / 100,
		WinnerPoolCents: totalCents * winnerPct / 100,
	}
	s.HouseCents += totalCents - s.HouseCents - s.ReferrerCents - s.WinnerPoolCents
	return s
}

// WinnerStakes agrega por usuário as apostas na seleção vencedora.
// Ordenado por userID para o rateio ser determinístico.
func WinnerStakes(bids []repo.RoundBid, winningSelectionID string) []repo.PayoutLine {
	byUser := make(map[string]int64)
	for _, b := range bids {
		if b.SelectionID == winningSelectionID {
			byUser[b.UserID] += b.AmountCents
		}
	}

	out := make([]repo.PayoutLine, 0, len(byUser))
	for userID, stake := range byUser {
		out = append(out, repo.PayoutLine{UserID: userID, BidCents: stake})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ProRata distribui o pool dos vencedores proporcionalmente à aposta de
// cada um (rateio parimutuel). Divisão inteira com arredondamento para
// baixo: a sobra de centavos não é distribuída e acaba com a casa.
func ProRata(winnerPoolCents int64, stakes []repo.PayoutLine) (lines []repo.PayoutLine, total int64) {
	var totalStake int64
	for _, s := range stakes {
		totalStake += s.BidCents
	}
	if totalStake == 0 {
		return nil, 0
	}

	lines = make([]repo.PayoutLine, len(stakes))
	for i, s := range stakes {
		payout := winnerPoolCents * s.BidCents / totalStake
		lines[i] = repo.PayoutLine{UserID: s.UserID, BidCents: s.BidCents, PayoutCents: payout}
		total += payout
	}
	return lines, total
}

// CheckConservation é o invariante de segurança da liquidação:
// comissões + rateio nunca podem passar do pool coletado.
// Violado, a liquidação aborta sem creditar ninguém.
func CheckConservation(totalPoolCents, houseCents, referrerCents, totalPayoutCents int64) error {
	if houseCents+referrerCents+totalPayoutCents > totalPoolCents {
		return ErrPayoutExceedsPool
	}
	return nil
}
