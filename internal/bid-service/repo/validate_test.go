package repo

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestBidWindowOpen(t *testing.T) {
	closesAt := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)

	cases := []struct {
		name  string
		phase string
		now   time.Time
		want  bool
	}{
		{"aberta antes do deadline", "OPEN", closesAt.Add(-time.Second), true},
		{"no instante exato fecha", "OPEN", closesAt, false},
		{"depois do deadline", "OPEN", closesAt.Add(time.Millisecond), false},
		{"fase errada", "AWAITING_SETTLEMENT", closesAt.Add(-time.Minute), false},
		{"liquidada", "SETTLED", closesAt.Add(-time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BidWindowOpen(tc.phase, closesAt, tc.now); got != tc.want {
				t.Fatalf("BidWindowOpen = %v, esperava %v", got, tc.want)
			}
		})
	}
}

func TestComputeLines(t *testing.T) {
	catalog := map[string]Selection{
		"card-hearts": {ID: "card-hearts", Active: true, UnitPriceCents: 1000},
		"card-clubs":  {ID: "card-clubs", Active: true, UnitPriceCents: 1500},
		"card-spades": {ID: "card-spades", Active: false, UnitPriceCents: 1000},
	}

	lines, total, err := ComputeLines([]BidItem{
		{SelectionID: "card-hearts", Quantity: 2},
		{SelectionID: "card-clubs", Quantity: 1},
	}, catalog)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if total != 3500 {
		t.Fatalf("total = %d", total)
	}
	if len(lines) != 2 || lines[0].AmountCents != 2000 || lines[1].AmountCents != 1500 {
		t.Fatalf("lines = %+v", lines)
	}
	// preço unitário capturado no momento
	if lines[0].UnitPriceCents != 1000 || lines[1].UnitPriceCents != 1500 {
		t.Fatalf("preços capturados = %+v", lines)
	}
}

func TestComputeLinesRejectsInactive(t *testing.T) {
	catalog := map[string]Selection{
		"card-spades": {ID: "card-spades", Active: false, UnitPriceCents: 1000},
	}
	_, _, err := ComputeLines([]BidItem{{SelectionID: "card-spades", Quantity: 1}}, catalog)
	if !errors.Is(err, ErrSelectionInactive) {
		t.Fatalf("esperava ErrSelectionInactive, veio %v", err)
	}
}

func TestComputeLinesRejectsUnknownSelection(t *testing.T) {
	_, _, err := ComputeLines([]BidItem{{SelectionID: "card-joker", Quantity: 1}}, map[string]Selection{})
	if !errors.Is(err, ErrSelectionInactive) {
		t.Fatalf("esperava ErrSelectionInactive, veio %v", err)
	}
}

func TestComputeLinesRejectsBadQuantity(t *testing.T) {
	catalog := map[string]Selection{
		"card-hearts": {ID: "card-hearts", Active: true, UnitPriceCents: 1000},
	}
	for _, q := range []int64{0, -1} {
		_, _, err := ComputeLines([]BidItem{{SelectionID: "card-hearts", Quantity: q}}, catalog)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("quantity %d: esperava ErrInvalidAmount, veio %v", q, err)
		}
	}
}

func TestComputeLinesRejectsOverflowingQuantity(t *testing.T) {
	catalog := map[string]Selection{
		"card-hearts": {ID: "card-hearts", Active: true, UnitPriceCents: 1000},
	}
	// 9223372036854776 * 1000 estoura o int64 e viraria valor negativo;
	// o total ainda cairia dentro dos limites e a aposta passaria
	items := []BidItem{
		{SelectionID: "card-hearts", Quantity: 9223372036854776},
		{SelectionID: "card-hearts", Quantity: 9223372036854776},
		{SelectionID: "card-hearts", Quantity: 1},
	}
	lines, total, err := ComputeLines(items, catalog)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("esperava ErrInvalidAmount, veio %v (total=%d lines=%+v)", err, total, lines)
	}
	for _, l := range lines {
		if l.AmountCents < 0 {
			t.Fatalf("linha com valor negativo: %+v", l)
		}
	}
}

func TestComputeLinesRejectsOverflowingTotal(t *testing.T) {
	catalog := map[string]Selection{
		"card-hearts": {ID: "card-hearts", Active: true, UnitPriceCents: 1000},
	}
	// cada linha cabe no int64, mas a soma das duas dá a volta
	perLine := int64(math.MaxInt64 / 1000)
	items := []BidItem{
		{SelectionID: "card-hearts", Quantity: perLine},
		{SelectionID: "card-hearts", Quantity: perLine},
	}
	_, total, err := ComputeLines(items, catalog)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("esperava ErrInvalidAmount, veio %v (total=%d)", err, total)
	}
}

func TestComputeLinesRejectsEmpty(t *testing.T) {
	_, _, err := ComputeLines(nil, map[string]Selection{})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("esperava ErrInvalidAmount, veio %v", err)
	}
}

func TestCheckBounds(t *testing.T) {
	if err := CheckBounds(1000, 1000, 50000); err != nil {
		t.Fatalf("mínimo exato deveria passar: %v", err)
	}
	if err := CheckBounds(50000, 1000, 50000); err != nil {
		t.Fatalf("máximo exato deveria passar: %v", err)
	}
	if err := CheckBounds(999, 1000, 50000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("abaixo do mínimo: %v", err)
	}
	if err := CheckBounds(50001, 1000, 50000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("acima do máximo: %v", err)
	}
}
