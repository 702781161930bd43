package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kartobot/internal/auth"
	"kartobot/internal/quota"
)

func newAdminRouter(t *testing.T) (*chi.Mux, *quota.Store) {
	t.Helper()
	gdb := newTestDB(t)
	store := &quota.Store{DB: gdb, Limit: 3}

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	h := &AdminHandler{
		JWT:          auth.NewJWT("test-secret"),
		PasswordHash: hash,
		Quota:        store,
		Limit:        3,
	}

	r := chi.NewRouter()
	r.Post("/admin/login", h.Login)
	r.With(auth.RequireAdmin(h.JWT)).Get("/admin/users/{telegramID}/quota", h.UserQuota)
	return r, store
}

func adminLogin(t *testing.T, r http.Handler, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"password":%q}`, password)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminLogin(t *testing.T) {
	r, _ := newAdminRouter(t)

	t.Run("wrong password", func(t *testing.T) {
		w := adminLogin(t, r, "guess")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty password", func(t *testing.T) {
		w := adminLogin(t, r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("right password", func(t *testing.T) {
		w := adminLogin(t, r, "s3cret")
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["token"])
	})
}

func TestAdminUserQuotaRequiresToken(t *testing.T) {
	r, _ := newAdminRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/users/42/quota", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUserQuota(t *testing.T) {
	r, store := newAdminRouter(t)

	today := quota.DateOnly(time.Now())
	_, _, err := store.CheckAndReset(context.Background(), quota.Identity{TelegramID: 42, Username: "ivan"}, today)
	require.NoError(t, err)
	require.NoError(t, store.RecordSuccess(context.Background(), 42, today))

	login := adminLogin(t, r, "s3cret")
	require.Equal(t, http.StatusOK, login.Code)
	var tok map[string]string
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tok))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok["token"])
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("known user", func(t *testing.T) {
		w := get("/admin/users/42/quota")
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(42), resp["telegram_id"])
		assert.Equal(t, "ivan", resp["username"])
		assert.Equal(t, float64(1), resp["generation_count"])
		assert.Equal(t, float64(2), resp["remaining"])
		assert.Equal(t, today.Format("2006-01-02"), resp["last_generation_date"])
	})

	t.Run("unknown user", func(t *testing.T) {
		w := get("/admin/users/7/quota")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := get("/admin/users/abc/quota")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
