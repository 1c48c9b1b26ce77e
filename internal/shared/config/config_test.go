package config

import "testing"

func TestValidateSplit(t *testing.T) {
	ok := Config{HouseCommissionPct: 10, ReferrerCommissionPct: 5, WinnerPayoutPct: 85}
	if err := ok.ValidateSplit(); err != nil {
		t.Fatalf("10/5/85 deveria passar: %v", err)
	}

	bad := Config{HouseCommissionPct: 10, ReferrerCommissionPct: 10, WinnerPayoutPct: 85}
	if err := bad.ValidateSplit(); err == nil {
		t.Fatal("soma 105 deveria falhar")
	}

	neg := Config{HouseCommissionPct: -5, ReferrerCommissionPct: 20, WinnerPayoutPct: 85}
	if err := neg.ValidateSplit(); err == nil {
		t.Fatal("percentual negativo deveria falhar")
	}
}
