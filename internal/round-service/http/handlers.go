package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	schedrepo "github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/settlement"
	"github.com/radieske/card-bid-platform-poc/internal/round-service/dto"
	"github.com/radieske/card-bid-platform-poc/internal/round-service/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-service/ws"

	bidcatalog "github.com/radieske/card-bid-platform-poc/internal/bid-service/catalog"
)

// API expõe os endpoints REST de rodadas e o endpoint administrativo de
// liquidação manual. Leitura vem do Postgres; a declaração de vencedor
// delega para a mesma engine usada pelo scheduler.
type API struct {
	Log       *zap.Logger
	Rounds    *schedrepo.Postgres
	ReadRepo  *repo.ReadRepo
	Engine    *settlement.Engine
	Hub       *ws.Hub
	Redis     *redis.Client // invalidação do cache de catálogo
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/rounds/active", a.getActiveRound)            // Rodada em andamento
	r.Get("/v1/rounds/{id}", a.getRound)                    // Rodada por id
	r.Get("/v1/rounds/{id}/bids", a.listBids)               // Apostas da rodada
	r.Get("/v1/rounds/{id}/settlement", a.getSettlement)    // Desfecho financeiro
	r.Post("/v1/admin/rounds/{id}/settle", a.adminSettle)   // Declaração manual de vencedor
	r.Post("/v1/admin/selections/{id}/price", a.setPrice)   // Preço unitário (prospectivo)
	r.Post("/v1/admin/selections/{id}/active", a.setActive) // Liga/desliga seleção
	r.Get("/ws", a.Hub.HandleWS)                            // Push de liquidações
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func roundResponse(r schedrepo.Round) dto.RoundResponse {
	out := dto.RoundResponse{
		RoundID:            r.ID,
		Phase:              r.Phase,
		OpensAt:            r.OpensAt,
		ClosesAt:           r.ClosesAt,
		SettleAfter:        r.SettleAfter,
		PoolCents:          r.PoolCents,
		PayoutCents:        r.PayoutCents,
		WinningSelectionID: r.WinningSelectionID,
		SettleMode:         r.SettleMode,
	}
	if r.Phase == schedrepo.PhaseSettled {
		t := r.SettledAt
		out.SettledAt = &t
	}
	return out
}

// getActiveRound retorna a rodada em OPEN ou AWAITING_SETTLEMENT
func (a *API) getActiveRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.Rounds.GetActiveRound(r.Context())
	if err != nil {
		if errors.Is(err, schedrepo.ErrRoundNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active round"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, roundResponse(round))
}

// getRound retorna uma rodada pelo id, inclusive em NEEDS_REVIEW
func (a *API) getRound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	round, err := a.Rounds.GetRound(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedrepo.ErrRoundNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, roundResponse(round))
}

// listBids retorna as apostas de uma rodada para dashboards
func (a *API) listBids(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bids, err := a.ReadRepo.ListBids(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]dto.BidRow, 0, len(bids))
	for _, b := range bids {
		out = append(out, dto.BidRow{
			BidID: b.ID, UserID: b.UserID, SelectionID: b.SelectionID,
			Quantity: b.Quantity, UnitPriceCents: b.UnitPriceCents,
			AmountCents: b.AmountCents, CreatedAt: b.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// getSettlement retorna o registro congelado da liquidação
func (a *API) getSettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Rounds.GetSettlement(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedrepo.ErrRoundNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not settled"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := dto.SettlementResponse{
		RoundID:            rec.RoundID,
		WinningSelectionID: rec.WinningSelectionID,
		SettleMode:         rec.SettleMode,
		TotalPoolCents:     rec.TotalPoolCents,
		WinnerPoolCents:    rec.WinnerPoolCents,
		LoserPoolCents:     rec.LoserPoolCents,
		HouseCutCents:      rec.HouseCutCents,
		ReferrerCutCents:   rec.ReferrerCutCents,
		TotalPayoutCents:   rec.TotalPayoutCents,
		WinnersCount:       rec.WinnersCount,
		Payouts:            make([]dto.PayoutRow, 0, len(rec.Payouts)),
	}
	for _, pl := range rec.Payouts {
		out.Payouts = append(out.Payouts, dto.PayoutRow{
			UserID: pl.UserID, BidCents: pl.BidCents, PayoutCents: pl.PayoutCents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// adminSettle declara o vencedor manualmente durante a carência
// Chamada duplicada (corrida com o timer) responde ALREADY_SETTLED, não erro
func (a *API) adminSettle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.AdminSettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.SelectionID == "" || req.AdminID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "selection_id and adminId required"})
		return
	}

	err := a.Engine.SettleAdmin(r.Context(), id, req.SelectionID, req.AdminID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"round_id": id, "status": "SETTLED"})
	case errors.Is(err, schedrepo.ErrAlreadySettled):
		writeJSON(w, http.StatusOK, map[string]string{"round_id": id, "status": "ALREADY_SETTLED"})
	case errors.Is(err, schedrepo.ErrRoundNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "round not found"})
	case errors.Is(err, settlement.ErrRoundNotSettleable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "round not awaiting settlement"})
	case errors.Is(err, settlement.ErrSelectionInactive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "selection inactive"})
	case errors.Is(err, settlement.ErrPayoutExceedsPool):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "payout exceeds pool; round flagged for review"})
	case errors.Is(err, settlement.ErrPoolMismatch):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "pool accumulators diverge; round flagged for review"})
	case errors.Is(err, settlement.ErrCreditIncomplete):
		// créditos pendentes serão retentados pelo scheduler
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "settlement incomplete, retry scheduled"})
	default:
		a.Log.Error("admin settle", zap.String("roundId", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// setPrice muda o preço unitário de uma seleção (vale para rodadas futuras)
func (a *API) setPrice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.SelectionPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.AdminID == "" || req.UnitPriceCents <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := a.ReadRepo.UpdateSelectionPrice(r.Context(), id, req.UnitPriceCents); err != nil {
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "selection not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	a.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, map[string]string{"selection_id": id, "status": "UPDATED"})
}

// setActive liga/desliga uma seleção do catálogo
func (a *API) setActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.SelectionActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.AdminID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "adminId required"})
		return
	}
	if err := a.ReadRepo.SetSelectionActive(r.Context(), id, req.Active); err != nil {
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "selection not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	a.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, map[string]string{"selection_id": id, "status": "UPDATED"})
}

func (a *API) invalidateCatalog(r *http.Request) {
	if err := a.Redis.Del(r.Context(), bidcatalog.CacheKey).Err(); err != nil {
		a.Log.Warn("catalog cache invalidation", zap.Error(err))
	}
}
