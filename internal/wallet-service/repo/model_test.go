package repo

import "testing"

func TestReconcileConsistent(t *testing.T) {
	ok := ReconcileResult{PrimaryBalance: 5000, PrimaryJournal: 5000, BonusBalance: 200, BonusJournal: 200}
	if !ok.Consistent() {
		t.Fatal("saldos iguais ao ledger deveriam ser consistentes")
	}

	drift := ReconcileResult{PrimaryBalance: 5000, PrimaryJournal: 4900, BonusBalance: 200, BonusJournal: 200}
	if drift.Consistent() {
		t.Fatal("divergência no saldo principal deveria acusar inconsistência")
	}

	bonusDrift := ReconcileResult{PrimaryBalance: 5000, PrimaryJournal: 5000, BonusBalance: 200, BonusJournal: 0}
	if bonusDrift.Consistent() {
		t.Fatal("divergência no bônus deveria acusar inconsistência")
	}
}
