package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"custody-capital-go/internal/amount"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"github.com/go-chi/chi/v5"
)

const (
	// CallerHeader carries the authenticated account making the call.
	CallerHeader = "X-Caller-Account"
	// BudgetHeader carries the compute budget attached to a call.
	BudgetHeader = "X-Compute-Budget"
)

// maxLockDurationMs is the longest lock a time.Duration can hold.
const maxLockDurationMs = math.MaxInt64 / int64(time.Millisecond)

type nativeDepositRequest struct {
	ExternalId amount.Amount `json:"external_id"`
	Amount     amount.Amount `json:"amount"`
}

type ledgerWithdrawRequest struct {
	ExternalId amount.Amount  `json:"external_id"`
	Account    string         `json:"account"`
	Amount     *amount.Amount `json:"amount,omitempty"`
}

type createAllocationRequest struct {
	Owner       string        `json:"owner"`
	EntryAmount amount.Amount `json:"entry_amount"`
	EntryAsset  string        `json:"entry_asset,omitempty"`
}

type withdrawAllocationRequest struct {
	ComputeBudget uint64 `json:"compute_budget,omitempty"`
}

type settleRequest struct {
	ExitAmount amount.Amount `json:"exit_amount"`
	ExitAsset  string        `json:"exit_asset,omitempty"`
}

type settingRequest struct {
	Operator       string `json:"operator,omitempty"`
	Agent          string `json:"agent,omitempty"`
	LockDurationMs *int64 `json:"lock_duration_ms,omitempty"`
}

type settingsResponse struct {
	Operator       string `json:"operator"`
	Agent          string `json:"agent"`
	LockDurationMs int64  `json:"lock_duration_ms"`
}

// Routes mounts the custody API on r.
func (s *LedgerService) Routes(r chi.Router) {
	r.Get("/settings", s.GetSettings)
	r.Put("/settings/operator", s.PutOperator)
	r.Put("/settings/agent", s.PutAgent)
	r.Put("/settings/lock-duration", s.PutLockDuration)

	r.Get("/entries", s.ListEntries)
	r.Get("/balances/{namespace}/{account}/{externalId}", s.GetBalance)
	r.Post("/deposits/native", s.PostNativeDeposit)
	r.Post("/withdrawals/native", s.PostNativeWithdrawal)
	r.Post("/withdrawals/stable", s.PostStableWithdrawal)

	r.Post("/transfers/inbound", s.PostInboundTransfer)
	r.Post("/transfers/results", s.PostTransferResult)

	r.Get("/allocations", s.ListAllocations)
	r.Post("/allocations", s.PostAllocation)
	r.Get("/allocations/matured", s.ListMaturedAllocations)
	r.Get("/allocations/{id}", s.GetAllocationHandler)
	r.Get("/allocations/{id}/summary", s.GetAllocationSummary)
	r.Get("/allocations/{id}/withdraw-cost", s.GetWithdrawCost)
	r.Post("/allocations/{id}/withdraw", s.PostAllocationWithdrawal)
	r.Post("/allocations/{id}/settle", s.PostSettlement)

	r.Get("/leaderboard", s.GetLeaderboard)
}

// Health handles GET /health
func (s *LedgerService) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "custody-capital"})
}

func caller(r *http.Request) string {
	return r.Header.Get(CallerHeader)
}

// decode reads a JSON body. An empty body is accepted when optional.
func decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathId(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

// GetSettings handles GET /settings
func (s *LedgerService) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.Settings()
	writeJSON(w, http.StatusOK, settingsResponse{
		Operator:       settings.Operator,
		Agent:          settings.Agent,
		LockDurationMs: settings.LockDuration.Milliseconds(),
	})
}

func (s *LedgerService) PutOperator(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.SetOperator(r.Context(), caller(r), req.Operator); err != nil {
		writeError(w, err)
		return
	}
	s.GetSettings(w, r)
}

func (s *LedgerService) PutAgent(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if err := s.SetAgent(r.Context(), caller(r), req.Agent); err != nil {
		writeError(w, err)
		return
	}
	s.GetSettings(w, r)
}

func (s *LedgerService) PutLockDuration(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decode(r, &req, false); err != nil || req.LockDurationMs == nil {
		writeBadRequest(w, "lock_duration_ms is required")
		return
	}
	if *req.LockDurationMs > maxLockDurationMs {
		writeBadRequest(w, "lock_duration_ms is out of range")
		return
	}
	lock := time.Duration(*req.LockDurationMs) * time.Millisecond
	if err := s.SetLockDuration(r.Context(), caller(r), lock); err != nil {
		writeError(w, err)
		return
	}
	s.GetSettings(w, r)
}

// ListEntries handles GET /entries?account=
func (s *LedgerService) ListEntries(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	entries := []models.LedgerEntry{}
	for _, e := range s.Entries() {
		if account == "" || e.Key.Account == account {
			entries = append(entries, e)
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetBalance handles GET /balances/{namespace}/{account}/{externalId}
func (s *LedgerService) GetBalance(w http.ResponseWriter, r *http.Request) {
	ns := models.Namespace(chi.URLParam(r, "namespace"))
	if !ns.Valid() {
		writeBadRequest(w, "namespace must be native or stable")
		return
	}
	externalId, err := amount.Parse(chi.URLParam(r, "externalId"))
	if err != nil {
		writeBadRequest(w, "invalid external id")
		return
	}
	key := models.DepositKey{ExternalId: externalId, Account: chi.URLParam(r, "account")}

	balance, err := s.Balance(key, ns)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BalanceResponse{
		ExternalId: key.ExternalId,
		Account:    key.Account,
		Namespace:  ns,
		Balance:    balance,
	})
}

// PostNativeDeposit handles POST /deposits/native
func (s *LedgerService) PostNativeDeposit(w http.ResponseWriter, r *http.Request) {
	var req nativeDepositRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	balance, err := s.DepositNative(r.Context(), caller(r), req.ExternalId, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.InboundResult{Action: models.ActionDepositNative, NewBalance: &balance})
}

// PostNativeWithdrawal handles POST /withdrawals/native
func (s *LedgerService) PostNativeWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req ledgerWithdrawRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	result, err := s.WithdrawNative(r.Context(), caller(r), models.DepositKey{ExternalId: req.ExternalId, Account: req.Account})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostStableWithdrawal handles POST /withdrawals/stable
func (s *LedgerService) PostStableWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req ledgerWithdrawRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	result, err := s.WithdrawStable(r.Context(), caller(r), models.DepositKey{ExternalId: req.ExternalId, Account: req.Account}, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostInboundTransfer handles POST /transfers/inbound. The authenticated
// caller is the token contract delivering the funds; a body token naming any
// other account is rejected.
func (s *LedgerService) PostInboundTransfer(w http.ResponseWriter, r *http.Request) {
	token := caller(r)
	if token == "" {
		writeError(w, fmt.Errorf("%w: %s header is required", store.ErrUnauthorized, CallerHeader))
		return
	}
	var req models.InboundTransfer
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Token != "" && req.Token != token {
		writeError(w, fmt.Errorf("%w: caller %s may not deliver %s", store.ErrUnauthorized, token, req.Token))
		return
	}
	req.Token = token
	result, err := s.OnTransfer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostTransferResult handles POST /transfers/results
func (s *LedgerService) PostTransferResult(w http.ResponseWriter, r *http.Request) {
	var req models.TransferResult
	if err := decode(r, &req, false); err != nil || req.TransferId == "" {
		writeBadRequest(w, "transfer_id is required")
		return
	}
	if err := s.ConfirmTransfer(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAllocations handles GET /allocations
func (s *LedgerService) ListAllocations(w http.ResponseWriter, r *http.Request) {
	allocations := s.Allocations()
	if allocations == nil {
		allocations = []models.CapitalAllocation{}
	}
	writeJSON(w, http.StatusOK, allocations)
}

// PostAllocation handles POST /allocations
func (s *LedgerService) PostAllocation(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	id, err := s.CreateAllocation(r.Context(), caller(r), req.Owner, req.EntryAmount, req.EntryAsset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"allocation_id": id})
}

// ListMaturedAllocations handles GET /allocations/matured
func (s *LedgerService) ListMaturedAllocations(w http.ResponseWriter, r *http.Request) {
	ids := s.MaturedAllocations(r.Context())
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetAllocationHandler handles GET /allocations/{id}
func (s *LedgerService) GetAllocationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, "invalid allocation id")
		return
	}
	allocation, err := s.GetAllocation(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, allocation)
}

// GetAllocationSummary handles GET /allocations/{id}/summary
func (s *LedgerService) GetAllocationSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, "invalid allocation id")
		return
	}
	summary, err := s.AllocationSummary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetWithdrawCost handles GET /allocations/{id}/withdraw-cost
func (s *LedgerService) GetWithdrawCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, "invalid allocation id")
		return
	}
	cost, err := s.WithdrawCost(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"compute_budget": cost})
}

// PostAllocationWithdrawal handles POST /allocations/{id}/withdraw. The
// budget comes from the header, then the body, then the default.
func (s *LedgerService) PostAllocationWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, "invalid allocation id")
		return
	}
	var req withdrawAllocationRequest
	if err := decode(r, &req, true); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	budget := req.ComputeBudget
	if header := r.Header.Get(BudgetHeader); header != "" {
		budget, err = strconv.ParseUint(header, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid "+BudgetHeader+" header")
			return
		}
	}

	result, err := s.WithdrawAllocation(r.Context(), caller(r), id, budget)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostSettlement handles POST /allocations/{id}/settle
func (s *LedgerService) PostSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		writeBadRequest(w, "invalid allocation id")
		return
	}
	var req settleRequest
	if err := decode(r, &req, false); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	result, err := s.SettleAllocation(r.Context(), caller(r), id, req.ExitAmount, req.ExitAsset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetLeaderboard handles GET /leaderboard
func (s *LedgerService) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Leaderboard())
}
