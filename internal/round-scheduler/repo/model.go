package repo

import "time"

// Fases da rodada. Transições são monotônicas:
// OPEN → AWAITING_SETTLEMENT → SETTLED; NEEDS_REVIEW é o desvio para
// intervenção manual quando a liquidação não pode concluir sozinha.
const (
	PhaseOpen               = "OPEN"
	PhaseAwaitingSettlement = "AWAITING_SETTLEMENT"
	PhaseSettled            = "SETTLED"
	PhaseNeedsReview        = "NEEDS_REVIEW"
)

// Modo de escolha do vencedor na liquidação
const (
	ModeSystem = "SYSTEM"
	ModeAdmin  = "ADMIN"
)

// Round é uma janela de apostas com um único desfecho.
type Round struct {
	ID                 string
	OpensAt            time.Time
	ClosesAt           time.Time // deadline de apostas (estrito)
	SettleAfter        time.Time // fim da carência, quando a liquidação dispara
	Phase              string
	PoolCents          int64
	PayoutCents        int64
	WinningSelectionID string // vazio até liquidar; imutável depois
	SettledAt          time.Time
	SettledBy          string
	SettleMode         string
	CreatedAt          time.Time
}

// RoundBid é a projeção de uma aposta usada pela liquidação.
type RoundBid struct {
	UserID      string
	SelectionID string
	AmountCents int64
}

// PayoutLine é a parcela de um vencedor no rateio da rodada.
type PayoutLine struct {
	UserID      string
	BidCents    int64
	PayoutCents int64
}

// SettlementRecord é o desfecho financeiro congelado de uma rodada.
// Criado exatamente uma vez; nunca atualizado.
type SettlementRecord struct {
	RoundID            string
	WinningSelectionID string
	SettleMode         string
	TotalPoolCents     int64
	WinnerPoolCents    int64
	LoserPoolCents     int64
	HouseCutCents      int64
	ReferrerCutCents   int64
	TotalPayoutCents   int64
	WinnersCount       int
	CreatedAt          time.Time
	Payouts            []PayoutLine
}
