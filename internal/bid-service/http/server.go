package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/bid-service/catalog"
	"github.com/radieske/card-bid-platform-poc/internal/bid-service/dto"
	"github.com/radieske/card-bid-platform-poc/internal/bid-service/repo"
	wrepo "github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
	"github.com/radieske/card-bid-platform-poc/pkg/contracts/events"
)

type Server struct {
	log     *zap.Logger
	repo    *repo.Postgres
	catalog *catalog.Cache
	publ    interface {
		PublishBidsPlaced(context.Context, []events.BidPlaced) error
	}
	minBid, maxBid int64
}

func NewServer(log *zap.Logger, r *repo.Postgres, c *catalog.Cache, p interface {
	PublishBidsPlaced(context.Context, []events.BidPlaced) error
}, minBid, maxBid int64) *Server {
	return &Server{log: log, repo: r, catalog: c, publ: p, minBid: minBid, maxBid: maxBid}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bids", s.placeBid)            // POST
	mux.HandleFunc("/selections", s.listSelections) // GET
	return mux
}

func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.RoundID == "" || len(req.Items) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	items := make([]repo.BidItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, repo.BidItem{SelectionID: it.SelectionID, Quantity: it.Quantity})
	}

	res, err := s.repo.PlaceBid(r.Context(), req.UserID, req.RoundID, items, s.minBid, s.maxBid)
	if err != nil {
		s.writeBidErr(w, req, err)
		return
	}

	// evento é best-effort: a aposta já está commitada
	evs := make([]events.BidPlaced, 0, len(res.Bids))
	for _, b := range res.Bids {
		evs = append(evs, events.BidPlaced{
			BidID: b.ID, RoundID: b.RoundID, UserID: b.UserID, SelectionID: b.SelectionID,
			Quantity: b.Quantity, UnitPriceCents: b.UnitPriceCents, AmountCents: b.AmountCents,
		})
	}
	if err := s.publ.PublishBidsPlaced(r.Context(), evs); err != nil {
		s.log.Warn("publish bid_placed", zap.String("roundId", req.RoundID), zap.Error(err))
	}

	out := dto.PlaceBidResponse{
		RoundID:        req.RoundID,
		RoundPoolCents: res.RoundPoolCents,
		BalanceCents:   res.NewBalanceCents,
	}
	for _, b := range res.Bids {
		out.Bids = append(out.Bids, dto.BidResponse{
			BidID: b.ID, SelectionID: b.SelectionID, Quantity: b.Quantity,
			UnitPriceCents: b.UnitPriceCents, AmountCents: b.AmountCents, CreatedAt: b.CreatedAt,
		})
	}
	writeJSON(w, out)
}

func (s *Server) writeBidErr(w http.ResponseWriter, req dto.PlaceBidRequest, err error) {
	switch {
	case errors.Is(err, repo.ErrRoundNotFound):
		http.Error(w, "round not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrRoundNotOpen):
		http.Error(w, "round not open", http.StatusConflict)
	case errors.Is(err, repo.ErrSelectionInactive):
		http.Error(w, "selection inactive", http.StatusConflict)
	case errors.Is(err, repo.ErrInvalidAmount):
		http.Error(w, "amount out of bounds", http.StatusBadRequest)
	case errors.Is(err, wrepo.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusConflict)
	case errors.Is(err, wrepo.ErrNotFound):
		http.Error(w, "wallet not found", http.StatusNotFound)
	default:
		s.log.Error("place bid", zap.String("userId", req.UserID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// listSelections serve o catálogo (com cache Redis) para os clients
func (s *Server) listSelections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sels, err := s.catalog.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.SelectionResponse, 0, len(sels))
	for _, sl := range sels {
		out = append(out, dto.SelectionResponse{
			SelectionID: sl.ID, Name: sl.Name, DisplayRank: sl.DisplayRank,
			Active: sl.Active, UnitPriceCents: sl.UnitPriceCents,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
