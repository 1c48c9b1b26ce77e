package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/wallet-service/dto"
	"github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance, bonus int64, err error)
	Debit(ctx context.Context, userID, sub string, amount int64, actor, category, note string) (int64, error)
	Credit(ctx context.Context, userID, sub string, amount int64, actor, category, note, idemKey string) (int64, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]repo.Transaction, error)
	Reconcile(ctx context.Context, userID string) (repo.ReconcileResult, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64) (string, int64, error)
	ApproveWithdrawal(ctx context.Context, withdrawalID, adminID string) error
	RejectWithdrawal(ctx context.Context, withdrawalID, adminID, reason string) error
	ListWithdrawals(ctx context.Context, userID string, limit int) ([]repo.Withdrawal, error)
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log              *zap.Logger
	repo             Repo
	minRechargeCents int64
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, r Repo, minRechargeCents int64) *Server {
	return &Server{log: log, repo: r, minRechargeCents: minRechargeCents}
}

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getWallet)                           // GET ?userId=...
	mux.HandleFunc("/wallet/transactions", s.listTransactions)       // GET ?userId=...
	mux.HandleFunc("/wallet/reconcile", s.reconcile)                 // GET ?userId=...
	mux.HandleFunc("/wallet/recharge", s.recharge)                   // POST (admin)
	mux.HandleFunc("/wallet/debit", s.adminDebit)                    // POST (admin)
	mux.HandleFunc("/wallet/withdrawals", s.withdrawals)             // POST cria, GET ?userId=... lista
	mux.HandleFunc("/wallet/withdrawals/approve", s.decideApprove)   // POST (admin)
	mux.HandleFunc("/wallet/withdrawals/reject", s.decideReject)     // POST (admin)
	return mux
}

// getWallet retorna (ou cria) a carteira e saldos do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	walletID, bal, bonus, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: bal, BonusBalanceCents: bonus})
}

// listTransactions retorna o extrato do usuário
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	txs, err := s.repo.ListTransactions(r.Context(), userID, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, dto.TransactionResponse{
			ID: t.ID, SubBalance: t.SubBalance, Category: t.Category,
			AmountCents: t.AmountCents, Note: t.Note, CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// reconcile confere saldo armazenado contra a soma do ledger
func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	res, err := s.repo.Reconcile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "wallet not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.ReconcileResponse{
		UserID: userID, Consistent: res.Consistent(),
		PrimaryBalance: res.PrimaryBalance, PrimaryJournal: res.PrimaryJournal,
		BonusBalance: res.BonusBalance, BonusJournal: res.BonusJournal,
	})
}

// recharge adiciona saldo à carteira do usuário (ação administrativa)
func (s *Server) recharge(w http.ResponseWriter, r *http.Request) {
	var req dto.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AdminID == "" || req.AmountCents < s.minRechargeCents {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	idemKey := ""
	if req.ExternalRef != "" {
		idemKey = "recharge:" + req.ExternalRef
	}
	bal, err := s.repo.Credit(r.Context(), req.UserID, repo.SubPrimary, req.AmountCents,
		req.AdminID, repo.CategoryAdminRecharge, req.Note, idemKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, BalanceCents: bal})
}

// adminDebit remove saldo da carteira do usuário (ação administrativa)
func (s *Server) adminDebit(w http.ResponseWriter, r *http.Request) {
	var req dto.AdminDebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AdminID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bal, err := s.repo.Debit(r.Context(), req.UserID, repo.SubPrimary, req.AmountCents,
		req.AdminID, repo.CategoryAdminDebit, req.Note)
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			http.Error(w, "insufficient funds", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, BalanceCents: bal})
}

func (s *Server) withdrawals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listWithdrawals(w, r)
	case http.MethodPost:
		s.requestWithdrawal(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// listWithdrawals retorna as solicitações de saque do usuário
func (s *Server) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	wds, err := s.repo.ListWithdrawals(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.WithdrawalRow, 0, len(wds))
	for _, wd := range wds {
		out = append(out, dto.WithdrawalRow{
			WithdrawalID: wd.ID, AmountCents: wd.AmountCents, Status: wd.Status,
			Reason: wd.Reason, CreatedAt: wd.CreatedAt, DecidedBy: wd.DecidedBy,
		})
	}
	writeJSON(w, out)
}

// requestWithdrawal retém o valor e cria a solicitação de saque
func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id, bal, err := s.repo.RequestWithdrawal(r.Context(), req.UserID, req.AmountCents)
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			http.Error(w, "insufficient funds", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WithdrawalResponse{WithdrawalID: id, Status: repo.WithdrawalPending, BalanceCents: bal})
}

// decideApprove aprova a solicitação de saque
func (s *Server) decideApprove(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.WithdrawalID == "" || req.AdminID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.ApproveWithdrawal(r.Context(), req.WithdrawalID, req.AdminID); err != nil {
		s.writeDecisionErr(w, err)
		return
	}
	writeJSON(w, dto.WithdrawalResponse{WithdrawalID: req.WithdrawalID, Status: repo.WithdrawalApproved})
}

// decideReject rejeita a solicitação e devolve o valor retido
func (s *Server) decideReject(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.WithdrawalID == "" || req.AdminID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.RejectWithdrawal(r.Context(), req.WithdrawalID, req.AdminID, req.Reason); err != nil {
		s.writeDecisionErr(w, err)
		return
	}
	writeJSON(w, dto.WithdrawalResponse{WithdrawalID: req.WithdrawalID, Status: repo.WithdrawalRejected})
}

func (s *Server) writeDecisionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "withdrawal not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrWithdrawalClosed):
		http.Error(w, "withdrawal already decided", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
