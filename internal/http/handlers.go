package http

import (
	"net/http"
	"time"

	"smartspend/internal/budget"
	"smartspend/internal/engine"
	"smartspend/internal/ledger"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	snap := eng.Current()
	writeJSON(w, http.StatusOK, toExpenseListJSON(snap.Expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := eng.CreateExpense(r.Context(), draftFromRequest(req)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := eng.UpdateExpense(r.Context(), r.PathValue("id"), draftFromRequest(req)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	if err := eng.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func draftFromRequest(req expenseRequest) ledger.Draft {
	d := ledger.Draft{
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount.String(),
		Category:    req.Category,
	}
	if req.Date != "" {
		d.Date = req.Date
	}
	return d
}

type summaryResponse struct {
	Summary     summaryJSON `json:"summary"`
	Plan        *planJSON   `json:"plan,omitempty"`
	GeneratedAt string      `json:"generatedAt"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	snap := eng.Current()
	_, hasCfg := eng.Budget()

	resp := summaryResponse{
		Summary:     toSummaryJSON(snap.Summary),
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
	}
	if hasCfg {
		plan := toPlanJSON(snap.Plan)
		resp.Plan = &plan
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	cfg, ok := eng.Budget()
	writeJSON(w, http.StatusOK, budgetResponse{Configured: ok, Config: cfg})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	var cfg budget.Config
	if err := decodeBody(r, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := eng.SetBudget(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	saved, ok := eng.Budget()
	writeJSON(w, http.StatusOK, budgetResponse{Configured: ok, Config: saved})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	a := eng.Alerts()
	writeJSON(w, http.StatusOK, toAlertsJSON(a.Alerts(), a.Unread()))
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	if !eng.Alerts().MarkRead(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown alert"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	eng.Alerts().MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdviceChat(w http.ResponseWriter, r *http.Request, eng *engine.Engine) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if sanitizeInput(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply := s.advisor.Chat(r.Context(), req.Message, req.History, eng.Current().Expenses)
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleEndSession tears down the caller's engine. The next request with the
// same identity starts from a fresh subscription.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, _ *engine.Engine) {
	s.manager.Drop(userID(r))
	w.WriteHeader(http.StatusNoContent)
}
