package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vistora/pkg/types"
)

// balance godoc
// @Summary      Credit balance
// @Tags         credits
// @Produce      json
// @Param        user  path      string  true  "user id"
// @Success      200   {object}  types.Balance
// @Router       /api/v1/credits/{user} [get]
func (s *server) balance(w http.ResponseWriter, r *http.Request) {
	if s.Credits == nil {
		unavailable(w, "credits")
		return
	}
	user := chi.URLParam(r, "user")
	bal, err := s.Credits.Balance(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Balance{UserID: user, Balance: bal})
}

// topup godoc
// @Summary      Add credits
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        user     path      string              true  "user id"
// @Param        request  body      types.TopupRequest  true  "amount"
// @Success      200      {object}  types.TopupResponse
// @Failure      400      {object}  types.ErrorResponse
// @Router       /api/v1/credits/{user}/topup [post]
func (s *server) topup(w http.ResponseWriter, r *http.Request) {
	if s.Credits == nil {
		unavailable(w, "credits")
		return
	}
	var req types.TopupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = "manual_topup"
	}
	user := chi.URLParam(r, "user")
	bal, err := s.Credits.Topup(r.Context(), user, req.Amount, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.TopupResponse{OK: true, Balance: types.Balance{UserID: user, Balance: bal}})
}

// transactions godoc
// @Summary      Ledger entries in append order
// @Tags         credits
// @Produce      json
// @Param        user  path      string  true  "user id"
// @Success      200   {object}  types.TransactionList
// @Router       /api/v1/credits/{user}/transactions [get]
func (s *server) transactions(w http.ResponseWriter, r *http.Request) {
	if s.Credits == nil {
		unavailable(w, "credits")
		return
	}
	entries, err := s.Credits.Transactions(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := types.TransactionList{Transactions: make([]types.Transaction, 0, len(entries))}
	for _, e := range entries {
		out.Transactions = append(out.Transactions, e.View())
	}
	writeJSON(w, http.StatusOK, out)
}
