package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	apiProxy *ServiceProxy
	logger   *slog.Logger
}

func NewHandler(apiProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		apiProxy: apiProxy,
		logger:   logger,
	}
}

// HandleAPI forwards /api/* to the backend with the prefix stripped.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	h.proxyRequest(w, r, path)
}

// HandleTrackShortlink serves the short URLs embedded in printed tickets and
// QR codes: /t/{code} resolves to the tracking endpoint.
func (h *Handler) HandleTrackShortlink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing tracking code")
		return
	}
	h.proxyRequest(w, r, "/track/"+code)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, path string) {
	resp, err := h.apiProxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
