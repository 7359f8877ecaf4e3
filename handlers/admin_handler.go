package handlers

import (
	"net/http"

	"filenet-backend/repository"
	"filenet-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles HTTP requests for the admin console
type AdminHandler struct {
	authService  *service.AuthService
	settingsRepo repository.SettingsRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, settingsRepo repository.SettingsRepository) *AdminHandler {
	return &AdminHandler{
		authService:  authService,
		settingsRepo: settingsRepo,
	}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, users)
}

// ToggleAdmin handles POST /api/admin/users/:id/toggle-admin. Admins
// cannot toggle their own flag.
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID format")
		return
	}

	user, err := h.authService.ToggleAdmin(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// GetSettings handles GET /api/admin/settings. Defaults are created on
// first read.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsRepo.Get(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, settings)
}

// UpdateSettingsRequest allows partial updates; absent fields keep their
// stored value.
type UpdateSettingsRequest struct {
	SessionTimeoutMinutes *int    `json:"session_timeout"`
	PrimaryColor          *string `json:"primary_color"`
	SecondaryColor        *string `json:"secondary_color"`
	AccentColor           *string `json:"accent_color"`
	LogoPath              *string `json:"logo_path"`
	LogoHeight            *int    `json:"logo_height"`
}

// UpdateSettings handles PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	settings, err := h.settingsRepo.Get(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.SessionTimeoutMinutes != nil {
		if *req.SessionTimeoutMinutes < 1 {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "session_timeout must be at least 1 minute")
			return
		}
		settings.SessionTimeoutMinutes = *req.SessionTimeoutMinutes
	}
	if req.PrimaryColor != nil {
		settings.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		settings.SecondaryColor = *req.SecondaryColor
	}
	if req.AccentColor != nil {
		settings.AccentColor = *req.AccentColor
	}
	if req.LogoPath != nil {
		settings.LogoPath = *req.LogoPath
	}
	if req.LogoHeight != nil {
		settings.LogoHeight = *req.LogoHeight
	}
	adminID := CurrentUser(c).ID
	settings.UpdatedBy = &adminID

	if err := h.settingsRepo.Update(c.Request.Context(), settings); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, settings)
}
