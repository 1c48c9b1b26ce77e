package settlement

import (
	"testing"

	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
)

func TestSplitPool(t *testing.T) {
	s := SplitPool(1000, 10, 5, 85)
	if s.HouseCents != 100 || s.ReferrerCents != 50 || s.WinnerPoolCents != 850 {
		t.Fatalf("split = %+v", s)
	}
}

func TestSplitPoolRoundingGoesToHouse(t *testing.T) {
	// 999 não divide exato; a sobra tem que ficar com a casa e a soma fechar
	s := SplitPool(999, 10, 5, 85)
	if s.HouseCents+s.ReferrerCents+s.WinnerPoolCents != 999 {
		t.Fatalf("split não conserva o total: %+v", s)
	}
	if s.ReferrerCents != 49 || s.WinnerPoolCents != 849 {
		t.Fatalf("split = %+v", s)
	}
	if s.HouseCents != 101 {
		t.Fatalf("sobra deveria ir para a casa, house = %d", s.HouseCents)
	}
}

func TestSplitPoolZero(t *testing.T) {
	s := SplitPool(0, 10, 5, 85)
	if s.HouseCents != 0 || s.ReferrerCents != 0 || s.WinnerPoolCents != 0 {
		t.Fatalf("split de pool zero = %+v", s)
	}
}

func TestWinnerStakesAggregatesAndSorts(t *testing.T) {
	bids := []repo.RoundBid{
		{UserID: "u2", SelectionID: "card-hearts", AmountCents: 300},
		{UserID: "u1", SelectionID: "card-hearts", AmountCents: 100},
		{UserID: "u1", SelectionID: "card-hearts", AmountCents: 150},
		{UserID: "u3", SelectionID: "card-clubs", AmountCents: 999}, // perdedor
	}

	stakes := WinnerStakes(bids, "card-hearts")
	if len(stakes) != 2 {
		t.Fatalf("esperava 2 vencedores, veio %d", len(stakes))
	}
	if stakes[0].UserID != "u1" || stakes[0].BidCents != 250 {
		t.Fatalf("stakes[0] = %+v", stakes[0])
	}
	if stakes[1].UserID != "u2" || stakes[1].BidCents != 300 {
		t.Fatalf("stakes[1] = %+v", stakes[1])
	}
}

func TestProRataEqualStakes(t *testing.T) {
	// pool 1000, repartição 10/5/85 → pool dos vencedores 850;
	// três apostas iguais de 100 → 850*100/300 = 283 cada, dust de 1 centavo
	stakes := []repo.PayoutLine{
		{UserID: "u1", BidCents: 100},
		{UserID: "u2", BidCents: 100},
		{UserID: "u3", BidCents: 100},
	}
	lines, total := ProRata(850, stakes)
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	for _, l := range lines {
		if l.PayoutCents != 283 {
			t.Fatalf("payout de %s = %d, esperava 283", l.UserID, l.PayoutCents)
		}
	}
	if total != 849 {
		t.Fatalf("total = %d, esperava 849", total)
	}
}

func TestProRataProportional(t *testing.T) {
	stakes := []repo.PayoutLine{
		{UserID: "u1", BidCents: 100},
		{UserID: "u2", BidCents: 300},
	}
	lines, total := ProRata(800, stakes)
	if lines[0].PayoutCents != 200 || lines[1].PayoutCents != 600 {
		t.Fatalf("lines = %+v", lines)
	}
	if total != 800 {
		t.Fatalf("total = %d", total)
	}
}

func TestProRataNoWinners(t *testing.T) {
	lines, total := ProRata(850, nil)
	if lines != nil || total != 0 {
		t.Fatalf("sem vencedores deveria distribuir zero: %+v / %d", lines, total)
	}
}

func TestProRataNeverExceedsPool(t *testing.T) {
	stakes := []repo.PayoutLine{
		{UserID: "u1", BidCents: 7},
		{UserID: "u2", BidCents: 11},
		{UserID: "u3", BidCents: 13},
	}
	_, total := ProRata(997, stakes)
	if total > 997 {
		t.Fatalf("rateio estourou o pool: %d", total)
	}
}

func TestCheckConservation(t *testing.T) {
	if err := CheckConservation(1000, 100, 50, 849); err != nil {
		t.Fatalf("soma dentro do pool não deveria falhar: %v", err)
	}
	if err := CheckConservation(1000, 100, 50, 851); err != ErrPayoutExceedsPool {
		t.Fatalf("esperava ErrPayoutExceedsPool, veio %v", err)
	}
}
