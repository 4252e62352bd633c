package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/pkg/hash"
)

// ModerationStore maintains the privilege set and the suppression list.
type ModerationStore interface {
	SetVIP(ctx context.Context, userID string, enabled bool) error
	SetShadowBan(ctx context.Context, userID string, enabled, unhideOld bool) ([]string, error)
}

// AdminService gates moderation behind the configured admin identity.
type AdminService struct {
	store     ModerationStore
	cache     *CacheService
	adminHash string
}

// NewAdminService takes the hashed admin user id. An empty hash disables
// every admin operation.
func NewAdminService(store ModerationStore, cache *CacheService, adminHash string) *AdminService {
	return &AdminService{store: store, cache: cache, adminHash: adminHash}
}

func (s *AdminService) authorize(rawAdminID string) error {
	if s.adminHash == "" || rawAdminID == "" {
		return model.ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(hash.HashUserID(rawAdminID)), []byte(s.adminHash)) != 1 {
		return model.ErrForbidden
	}
	return nil
}

// SetShadowBan suppresses userID's submissions. Lifting a ban only restores
// visibility of existing segments when unhideOld is set.
func (s *AdminService) SetShadowBan(ctx context.Context, rawAdminID, userID string, enabled, unhideOld bool) error {
	if err := s.authorize(rawAdminID); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("%w: userID is required", model.ErrInvalidInput)
	}

	videoIDs, err := s.store.SetShadowBan(ctx, userID, enabled, unhideOld)
	if err != nil {
		return err
	}
	if err := s.cache.InvalidateSegments(ctx, videoIDs...); err != nil {
		log.Warn().Err(err).Str("component", "admin").Msg("cache invalidate failed")
	}
	log.Info().Str("component", "admin").Str("user_id", userID).Bool("enabled", enabled).
		Int("videos", len(videoIDs)).Msg("shadow ban updated")
	return nil
}

// SetVIP grants or revokes privileged voting for userID.
func (s *AdminService) SetVIP(ctx context.Context, rawAdminID, userID string, enabled bool) error {
	if err := s.authorize(rawAdminID); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("%w: userID is required", model.ErrInvalidInput)
	}
	if err := s.store.SetVIP(ctx, userID, enabled); err != nil {
		return err
	}
	log.Info().Str("component", "admin").Str("user_id", userID).Bool("enabled", enabled).Msg("vip updated")
	return nil
}
