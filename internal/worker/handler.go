// Package worker bridges order events to the kitchen: every created order
// becomes a ticket on the restaurant's printer.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/menuqr/tableside/internal/domain"
)

type TicketHandler struct {
	printerServiceURL string
	httpClient        *http.Client
	logger            *slog.Logger
}

func NewTicketHandler(printerServiceURL string, client *http.Client, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		printerServiceURL: printerServiceURL,
		httpClient:        client,
		logger:            logger,
	}
}

type ticketLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type ticket struct {
	OrderID      string       `json:"order_id"`
	TrackingCode string       `json:"tracking_code"`
	TableNumber  int          `json:"table_number"`
	Lines        []ticketLine `json:"lines"`
}

// Handle processes one order.created event. Returning an error leaves the
// message uncommitted so the broker redelivers it.
func (h *TicketHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("printing kitchen ticket", "order_id", event.OrderID, "tracking_code", event.TrackingCode)

	job := ticket{
		OrderID:      event.OrderID,
		TrackingCode: event.TrackingCode,
		TableNumber:  event.TableNumber,
	}
	for _, line := range event.Lines {
		job.Lines = append(job.Lines, ticketLine{Name: line.Name, Quantity: line.Quantity})
	}

	if err := h.print(ctx, job); err != nil {
		h.logger.Error("failed to print ticket", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("print ticket: %w", err)
	}

	h.logger.Info("kitchen ticket sent", "order_id", event.OrderID)
	return nil
}

func (h *TicketHandler) print(ctx context.Context, job ticket) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.printerServiceURL+"/print", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("printer service returned status %d", resp.StatusCode)
	}

	return nil
}
