package repository

import (
	"context"
	"errors"

	"filenet-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository persists the single application settings record.
type SettingsRepository interface {
	// Get returns the current settings, writing the defaults on first use.
	Get(ctx context.Context) (*models.AdminSettings, error)
	Update(ctx context.Context, settings *models.AdminSettings) error
}

type postgresSettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a Postgres-backed settings repository.
func NewSettingsRepository(db *pgxpool.Pool) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

const settingsKey = "app_settings"

func (r *postgresSettingsRepository) Get(ctx context.Context) (*models.AdminSettings, error) {
	settings := &models.AdminSettings{}
	err := r.db.QueryRow(ctx, `
		SELECT session_timeout, primary_color, secondary_color, accent_color,
			logo_path, logo_height, updated_at, updated_by
		FROM settings WHERE key = $1`,
		settingsKey,
	).Scan(
		&settings.SessionTimeoutMinutes,
		&settings.PrimaryColor,
		&settings.SecondaryColor,
		&settings.AccentColor,
		&settings.LogoPath,
		&settings.LogoHeight,
		&settings.UpdatedAt,
		&settings.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			defaults := models.DefaultAdminSettings()
			if err := r.Update(ctx, &defaults); err != nil {
				return nil, err
			}
			return &defaults, nil
		}
		return nil, err
	}
	return settings, nil
}

func (r *postgresSettingsRepository) Update(ctx context.Context, settings *models.AdminSettings) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO settings (key, session_timeout, primary_color, secondary_color,
			accent_color, logo_path, logo_height, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
		ON CONFLICT (key) DO UPDATE SET
			session_timeout = EXCLUDED.session_timeout,
			primary_color = EXCLUDED.primary_color,
			secondary_color = EXCLUDED.secondary_color,
			accent_color = EXCLUDED.accent_color,
			logo_path = EXCLUDED.logo_path,
			logo_height = EXCLUDED.logo_height,
			updated_at = NOW(),
			updated_by = EXCLUDED.updated_by
		RETURNING updated_at`,
		settingsKey,
		settings.SessionTimeoutMinutes,
		settings.PrimaryColor,
		settings.SecondaryColor,
		settings.AccentColor,
		settings.LogoPath,
		settings.LogoHeight,
		settings.UpdatedBy,
	).Scan(&settings.UpdatedAt)
}
