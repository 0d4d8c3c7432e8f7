package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/stash/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	columnExternalID = "external_id"
	queryExternalID  = columnExternalID + " = ?"
)

// ServiceConfig describes the dependencies required for user management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service manages user records and maps external identities onto internal user ids.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ids.Provider
	logger     *zap.Logger
	cache      sync.Map
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		cache:      sync.Map{},
	}, nil
}

// Upsert updates the profile of the user bound to externalID, creating the user on first login.
// It returns the internal user id either way.
func (s *Service) Upsert(ctx context.Context, externalID string, profile Profile) (string, error) {
	externalID = normalize(externalID)
	if externalID == "" {
		return "", ErrInvalidIdentity
	}

	newID, err := s.idProvider.NewID()
	if err != nil {
		return "", err
	}
	nowMs := s.now().UTC().UnixMilli()
	candidate := User{
		ID:            newID,
		ExternalID:    externalID,
		Name:          normalize(profile.Name),
		Email:         normalize(profile.Email),
		ImageURL:      normalizeOptional(profile.ImageURL),
		Plan:          PlanFree,
		BookmarkCount: 0,
		CreatedAtMs:   nowMs,
		UpdatedAtMs:   nowMs,
	}

	var stored User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: columnExternalID}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "image_url", "updated_at_ms"}),
		}).Create(&candidate)
		if upsert.Error != nil {
			return upsert.Error
		}
		return tx.Where(queryExternalID, externalID).Take(&stored).Error
	})
	if err != nil {
		s.logger.Error("user upsert failed", zap.String("external_id", externalID), zap.Error(err))
		return "", err
	}

	s.cache.Store(externalID, stored.ID)
	return stored.ID, nil
}

// GetCurrent returns the user bound to externalID, or nil when none exists.
func (s *Service) GetCurrent(ctx context.Context, externalID string) (*User, error) {
	externalID = normalize(externalID)
	if externalID == "" {
		return nil, nil
	}
	var user User
	err := s.db.WithContext(ctx).Where(queryExternalID, externalID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveUserID maps an external identity onto the internal user id.
// It returns ErrUserNotFound when the identity has never been upserted.
func (s *Service) ResolveUserID(ctx context.Context, externalID string) (string, error) {
	externalID = normalize(externalID)
	if externalID == "" {
		return "", ErrUserNotFound
	}

	if cachedIdentifier, ok := s.cache.Load(externalID); ok {
		userID, ok := cachedIdentifier.(string)
		if ok {
			return userID, nil
		}
	}

	var user User
	err := s.db.WithContext(ctx).
		Select("id").
		Where(queryExternalID, externalID).
		Take(&user).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	s.cache.Store(externalID, user.ID)
	return user.ID, nil
}
