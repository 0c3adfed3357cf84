package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

const (
	maintenanceCacheKey = "cache:settings:maintenance"
	settingsCacheKey    = "cache:settings:site"
)

// SettingsService serves the singleton maintenance and site settings rows. Reads go
// through a process-local cache, then Redis, then the database; concurrent misses for
// the same key share one database read.
type SettingsService struct {
	db             *gorm.DB
	local          *utils.LocalCache
	ttl            time.Duration
	group          singleflight.Group
	defaultAllowed models.RoleSet
	siteName       string
}

// NewSettingsService wires the caches. local may be nil to skip the in-process layer.
// defaultAllowed seeds the maintenance row the first time it is created.
func NewSettingsService(db *gorm.DB, local *utils.LocalCache, ttl time.Duration, defaultAllowed []models.Role, siteName string) *SettingsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SettingsService{
		db:             db,
		local:          local,
		ttl:            ttl,
		defaultAllowed: models.RoleSet(defaultAllowed),
		siteName:       siteName,
	}
}

// readThrough returns the cached row for key or loads it once via load.
func readThrough[T any](ctx context.Context, s *SettingsService, key string, load func(*gorm.DB) (*T, error)) (*T, error) {
	if b, ok := s.local.Get(key); ok {
		var v T
		if json.Unmarshal(b, &v) == nil {
			return &v, nil
		}
	}
	if b, ok := utils.CacheGetBytes(key); ok {
		var v T
		if json.Unmarshal(b, &v) == nil {
			s.local.Set(key, b)
			return &v, nil
		}
	}

	res, err, _ := s.group.Do(key, func() (interface{}, error) {
		v, err := load(s.db.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(v); err == nil {
			s.local.Set(key, b)
			utils.CacheSetBytes(key, b, s.ttl)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers may mutate the result; hand each its own copy.
	out := *res.(*T)
	return &out, nil
}

func (s *SettingsService) invalidate(key string) {
	s.local.Delete(key)
	utils.CacheDelete(key)
}

func (s *SettingsService) loadMaintenance(db *gorm.DB) (*models.MaintenanceMode, error) {
	var row models.MaintenanceMode
	err := db.Where(models.MaintenanceMode{ID: models.SingletonID}).
		Attrs(models.MaintenanceMode{AllowedRoles: s.defaultAllowed}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *SettingsService) loadSettings(db *gorm.DB) (*models.Settings, error) {
	var row models.Settings
	err := db.Where(models.Settings{ID: models.SingletonID}).
		Attrs(models.Settings{SiteName: s.siteName, AllowRegistration: true, PostsPerPage: defaultPageSize}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Maintenance returns the maintenance row, creating it on first read.
func (s *SettingsService) Maintenance(ctx context.Context) (*models.MaintenanceMode, error) {
	return readThrough(ctx, s, maintenanceCacheKey, s.loadMaintenance)
}

// AllowedDuringMaintenance returns the roles that bypass the gate. An empty stored set
// falls back to the configured default.
func (s *SettingsService) AllowedDuringMaintenance(m *models.MaintenanceMode) []models.Role {
	if len(m.AllowedRoles) > 0 {
		return m.AllowedRoles
	}
	return s.defaultAllowed
}

// MaintenanceInput carries a partial update; nil fields are left alone.
type MaintenanceInput struct {
	Enabled      *bool    `json:"enabled"`
	Message      *string  `json:"message"`
	AllowedRoles []string `json:"allowed_roles"`
}

// SetMaintenance updates the maintenance row and drops both cache layers.
func (s *SettingsService) SetMaintenance(ctx context.Context, adminID uint, in MaintenanceInput) (*models.MaintenanceMode, error) {
	updates := map[string]interface{}{"updated_by_id": adminID}
	if in.Enabled != nil {
		updates["enabled"] = *in.Enabled
	}
	if in.Message != nil {
		updates["message"] = utils.SanitizeText(*in.Message)
	}
	if in.AllowedRoles != nil {
		roles := models.RoleSet(utils.ParseRoles(in.AllowedRoles))
		if len(roles) != len(in.AllowedRoles) {
			return nil, utils.NewValidationError("unknown role in allowed_roles: %s", strings.Join(in.AllowedRoles, ","))
		}
		updates["allowed_roles"] = roles
	}

	var row *models.MaintenanceMode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if row, err = s.loadMaintenance(tx); err != nil {
			return err
		}
		if err := tx.Model(&models.MaintenanceMode{}).Where("id = ?", models.SingletonID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(row, models.SingletonID).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(maintenanceCacheKey)
	utils.L(ctx).Infow("maintenance updated", "admin_id", adminID, "enabled", row.Enabled)
	return row, nil
}

// Settings returns the site settings row, creating it on first read.
func (s *SettingsService) Settings(ctx context.Context) (*models.Settings, error) {
	return readThrough(ctx, s, settingsCacheKey, s.loadSettings)
}

// SettingsInput carries a partial settings update.
type SettingsInput struct {
	SiteName              *string `json:"site_name"`
	AllowRegistration     *bool   `json:"allow_registration"`
	PostsPerPage          *int    `json:"posts_per_page"`
	MinReputationToReport *int    `json:"min_reputation_to_report"`
}

// UpdateSettings applies in and drops both cache layers.
func (s *SettingsService) UpdateSettings(ctx context.Context, adminID uint, in SettingsInput) (*models.Settings, error) {
	updates := map[string]interface{}{"updated_by_id": adminID}
	if in.SiteName != nil {
		name := utils.SanitizeText(*in.SiteName)
		if name == "" {
			return nil, utils.NewValidationError("site_name cannot be empty")
		}
		updates["site_name"] = name
	}
	if in.AllowRegistration != nil {
		updates["allow_registration"] = *in.AllowRegistration
	}
	if in.PostsPerPage != nil {
		if *in.PostsPerPage < 1 || *in.PostsPerPage > maxPageSize {
			return nil, utils.NewValidationError("posts_per_page must be between 1 and %d", maxPageSize)
		}
		updates["posts_per_page"] = *in.PostsPerPage
	}
	if in.MinReputationToReport != nil {
		if *in.MinReputationToReport < 0 {
			return nil, utils.NewValidationError("min_reputation_to_report cannot be negative")
		}
		updates["min_reputation_to_report"] = *in.MinReputationToReport
	}

	var row *models.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if row, err = s.loadSettings(tx); err != nil {
			return err
		}
		if err := tx.Model(&models.Settings{}).Where("id = ?", models.SingletonID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(row, models.SingletonID).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(settingsCacheKey)
	return row, nil
}
