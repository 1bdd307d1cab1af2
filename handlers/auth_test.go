package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trade-invoices/middleware"
	"github.com/yourusername/trade-invoices/models"
)

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)

	admin := models.User{Email: "ops@example.com", Name: "Ops", PasswordHash: "x", Role: "admin", IsActive: true}
	require.NoError(t, api.db.Create(&admin).Error)
	inactive := models.User{Email: "gone@example.com", Name: "Gone", PasswordHash: "x", Role: "finance", IsActive: true}
	require.NoError(t, api.db.Create(&inactive).Error)
	require.NoError(t, api.db.Model(&inactive).Update("is_active", false).Error)
	stranger := models.User{Email: "who@example.com", Name: "Who", PasswordHash: "x", Role: "auditor", IsActive: true}
	require.NoError(t, api.db.Create(&stranger).Error)

	refreshFor := func(userID uint, secret string) string {
		token, err := middleware.GenerateToken(userID, "", "viewer", secret, time.Hour)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"Valid Refresh Token", refreshFor(admin.ID, api.cfg.JWTRefreshSecret), http.StatusOK},
		{"Access Token Rejected", refreshFor(admin.ID, api.cfg.JWTSecret), http.StatusUnauthorized},
		{"Unknown User", refreshFor(999, api.cfg.JWTRefreshSecret), http.StatusUnauthorized},
		{"Inactive User", refreshFor(inactive.ID, api.cfg.JWTRefreshSecret), http.StatusForbidden},
		{"Role Without Capabilities", refreshFor(stranger.ID, api.cfg.JWTRefreshSecret), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/v1/auth/refresh", "", RefreshTokenRequest{RefreshToken: tt.token})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("Role Comes From User Record", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/v1/auth/refresh", "", RefreshTokenRequest{RefreshToken: refreshFor(admin.ID, api.cfg.JWTRefreshSecret)})
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		claims, err := middleware.ParseToken(body["access_token"].(string), api.cfg.JWTSecret)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "ops@example.com", claims.Email)
	})

	t.Run("Missing Body", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/v1/auth/refresh", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
