// Package alerts owns the price-alert management surface: create, list,
// update, delete, all scoped to the owning user.
package alerts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/binderbay/backend/internal/models"
)

// Service-level error kinds. Handlers map ErrNotOwner to the same HTTP body
// as ErrNotFound so callers cannot probe for existence, but logs and callers
// inside the process can tell them apart.
var (
	ErrNotFound   = errors.New("alert not found")
	ErrNotOwner   = errors.New("alert not owned by caller")
	ErrValidation = errors.New("invalid alert input")
)

const defaultPageSize = 50

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With().Str("component", "alerts").Logger(),
	}
}

// Create validates and persists a new alert for the user
func (s *Service) Create(ctx context.Context, userID string, req models.CreateAlertRequest) (*models.PriceAlert, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	alert := models.PriceAlert{
		UserID:         userID,
		CardID:         req.CardID,
		Language:       req.Language,
		ThresholdCents: req.ThresholdCents,
		Direction:      req.Direction,
		Active:         true,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return &alert, nil
}

// List returns the user's alerts newest-first with cursor pagination. The
// returned cursor is empty when there are no further pages.
func (s *Service) List(ctx context.Context, userID, cursor string, limit int) ([]models.PriceAlert, string, error) {
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor != "" {
		createdAt, id, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad cursor", ErrValidation)
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var alerts []models.PriceAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, "", fmt.Errorf("failed to list alerts: %w", err)
	}

	next := ""
	if len(alerts) > limit {
		alerts = alerts[:limit]
		last := alerts[len(alerts)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	return alerts, next, nil
}

// Update applies a subset of {active, threshold_cents} to an owned alert.
// Re-activating a triggered alert clears its trigger stamp.
func (s *Service) Update(ctx context.Context, userID, alertID string, req models.UpdateAlertRequest) (*models.PriceAlert, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	alert, err := s.owned(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ThresholdCents != nil {
		updates["threshold_cents"] = *req.ThresholdCents
	}
	if req.Active != nil {
		updates["active"] = *req.Active
		if *req.Active {
			updates["triggered_at"] = nil
		}
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return alert, nil
}

// Delete removes an owned alert
func (s *Service) Delete(ctx context.Context, userID, alertID string) error {
	alert, err := s.owned(ctx, userID, alertID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(alert).Error; err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

// owned loads an alert and checks ownership. Not-found and not-owner are
// distinct errors.
func (s *Service) owned(ctx context.Context, userID, alertID string) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	err := s.db.WithContext(ctx).Where("id = ?", alertID).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	if alert.UserID != userID {
		s.log.Warn().Str("alert", alertID).Str("caller", userID).Msg("Alert access denied")
		return nil, ErrNotOwner
	}
	return &alert, nil
}

func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return createdAt, parts[1], nil
}
