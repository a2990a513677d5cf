package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/oathkit/pkg/logger"
)

// Manager turns credential lifecycle transitions into user notifications.
//
// Delivery is fire-and-forget: a failing deliverer is logged and never
// surfaces to the caller, so a notification problem cannot fail or roll back
// the credential change that triggered it.
type Manager struct {
	deliverer Deliverer
	logger    *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = log
	}
}

// NewManager creates a new notification manager.
func NewManager(deliverer Deliverer, opts ...ManagerOption) *Manager {
	if deliverer == nil {
		deliverer = &NoOpDeliverer{}
	}

	m := &Manager{
		deliverer: deliverer,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NotifyEnabled tells the user a second factor is now protecting their account.
// Fired exactly once per transition from "no credential" to "one enabled".
func (m *Manager) NotifyEnabled(ctx context.Context, user string) {
	m.send(ctx, Notification{
		ID:        uuid.New().String(),
		UserID:    user,
		Kind:      KindEnabled,
		CreatedAt: time.Now(),
	})
}

// NotifyDisabled tells the user their second factor was removed.
// selfInitiated distinguishes the user's own action from an administrative one.
func (m *Manager) NotifyDisabled(ctx context.Context, user string, selfInitiated bool) {
	m.send(ctx, Notification{
		ID:            uuid.New().String(),
		UserID:        user,
		Kind:          KindDisabled,
		SelfInitiated: selfInitiated,
		CreatedAt:     time.Now(),
	})
}

func (m *Manager) send(ctx context.Context, notif Notification) {
	if err := m.deliverer.Deliver(ctx, notif); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to deliver second-factor notification",
			slog.String("notification_id", notif.ID),
			slog.String("kind", string(notif.Kind)),
			logger.UserID(notif.UserID),
			logger.Error(err),
		)
	}
}
