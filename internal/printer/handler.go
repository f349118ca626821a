// Package printer is the kitchen ticket relay: it accepts print jobs from the
// worker and simulates the latency of a thermal receipt printer.
package printer

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

type TicketLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type printRequest struct {
	OrderID      string       `json:"order_id"`
	TrackingCode string       `json:"tracking_code"`
	TableNumber  int          `json:"table_number"`
	Lines        []TicketLine `json:"lines"`
}

type printResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandlePrint(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || len(req.Lines) == 0 {
		h.writeError(w, http.StatusBadRequest, "order_id and lines are required")
		return
	}

	delay := time.Duration(50+rand.Intn(151)) * time.Millisecond
	time.Sleep(delay)

	h.logger.Info("kitchen ticket printed",
		"order_id", req.OrderID,
		"tracking_code", req.TrackingCode,
		"table_number", req.TableNumber,
		"lines", len(req.Lines),
	)

	h.writeJSON(w, http.StatusOK, printResponse{Status: "printed"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
