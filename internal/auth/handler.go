package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/menuqr/tableside/internal/httpx"
)

type Handler struct {
	sessions SessionStore
	accounts AccountStore
	logger   *slog.Logger
}

func NewHandler(sessions SessionStore, accounts AccountStore, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		accounts: accounts,
		logger:   logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleLogin verifies the credential and issues a session token. Bad email
// and bad password are reported identically.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "email and password are required")
		return
	}

	account, err := h.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to load account", "error", err)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if account == nil || !account.Active {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := newToken()
	if err != nil {
		h.logger.Error("failed to generate session token", "error", err)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	session := Session{
		AccountID:    account.ID,
		Role:         account.Role,
		RestaurantID: account.RestaurantID,
	}
	if err := h.sessions.Put(r.Context(), token, session, SessionTTL); err != nil {
		h.logger.Error("failed to store session", "error", err)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("session created", "account_id", account.ID, "role", account.Role)
	httpx.WriteJSON(w, h.logger, http.StatusOK, loginResponse{Token: token})
}

// HandleLogout drops the session. Idempotent: an unknown token still gets 204.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := httpx.BearerToken(r)
	if token == "" {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.sessions.Delete(r.Context(), token); err != nil {
		h.logger.Error("failed to delete session", "error", err)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
