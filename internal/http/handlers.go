package http

import (
	"context"
	"net/http"
	"strconv"

	"finanzas/internal/log"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
		writeErrorStatus(w, http.StatusServiceUnavailable, "store_unavailable", "store not reachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRegisterIncome(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	income, savings, err := req.parse()
	if err != nil {
		writeError(w, r, log.OpRegisterIncome, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	rec, err := s.ledger.RegisterIncome(ctx, userID, income, savings)
	if err != nil {
		writeError(w, r, log.OpRegisterIncome, err)
		return
	}
	writeJSON(w, http.StatusOK, newIncomeResponse(rec))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	amount, err := req.Amount.amount()
	if err != nil {
		writeError(w, r, log.OpAddExpense, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	rec, err := s.ledger.AddExpense(ctx, userID, sanitizeInput(req.Description), amount)
	if err != nil {
		writeError(w, r, log.OpAddExpense, err)
		return
	}
	w.Header().Set("Location", "/v1/users/"+strconv.FormatInt(userID, 10)+"/summary")
	writeJSON(w, http.StatusCreated, newExpenseResponse(rec))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	sum, err := s.ledger.Summary(ctx, userID)
	if err != nil {
		writeError(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	if err := s.ledger.DeleteUser(ctx, userID); err != nil {
		writeError(w, r, log.OpDeleteUser, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommand is the webhook entry for a chat front end. The command
// handler applies its own timeout and rate limit.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeErrorStatus(w, http.StatusNotFound, "not_found", "commands are not enabled")
		return
	}
	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.UserID == nil {
		writeErrorStatus(w, http.StatusBadRequest, "bad_request", "user_id is required")
		return
	}
	reply := s.commands.Handle(r.Context(), *req.UserID, sanitizeInput(req.Text))
	writeJSON(w, http.StatusOK, commandResponse{Reply: reply, ParseMode: "Markdown"})
}
