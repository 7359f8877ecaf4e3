package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminSettings is the single configurable application settings record.
type AdminSettings struct {
	SessionTimeoutMinutes int        `json:"session_timeout"`
	PrimaryColor          string     `json:"primary_color"`
	SecondaryColor        string     `json:"secondary_color"`
	AccentColor           string     `json:"accent_color"`
	LogoPath              string     `json:"logo_path"`
	LogoHeight            int        `json:"logo_height"`
	UpdatedAt             time.Time  `json:"updated_at"`
	UpdatedBy             *uuid.UUID `json:"updated_by,omitempty"`
}

// DefaultAdminSettings returns the settings written on first access.
func DefaultAdminSettings() AdminSettings {
	return AdminSettings{
		SessionTimeoutMinutes: 15,
		PrimaryColor:          "#0075BE",
		SecondaryColor:        "#8CC6FF",
		AccentColor:           "#0A8F1A",
		LogoPath:              "img/logo.svg",
		LogoHeight:            50,
	}
}
