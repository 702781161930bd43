package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kartobot/internal/auth"
	"kartobot/internal/quota"
)

type AdminHandler struct {
	JWT          *auth.JWT
	PasswordHash string
	Quota        *quota.Store
	Limit        int
}

func (h *AdminHandler) limit() int {
	if h.Limit > 0 {
		return h.Limit
	}
	return quota.DefaultDailyLimit
}

type loginReq struct {
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Password == "" || !auth.ComparePassword(h.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.JWT.Sign()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"token": token})
}

func (h *AdminHandler) UserQuota(w http.ResponseWriter, r *http.Request) {
	id64, err := strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	u, err := h.Quota.Get(r.Context(), id64)
	if errors.Is(err, quota.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// A count stored under a previous date is logically zero.
	count := u.GenerationCount
	if !quota.DateOnly(u.LastGenerationDate).Equal(quota.DateOnly(time.Now())) {
		count = 0
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"telegram_id":          u.TelegramID,
		"username":             u.Username,
		"generation_count":     count,
		"last_generation_date": quota.DateOnly(u.LastGenerationDate).Format("2006-01-02"),
		"remaining":            max(0, h.limit()-count),
	})
}
