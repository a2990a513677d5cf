package notify

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/oathkit/pkg/logger"
)

// Deliverer sends a notification to the user through a specific channel
// (email, in-app inbox, webhook).
type Deliverer interface {
	Deliver(ctx context.Context, notif Notification) error
}

// MultiDeliverer fans one notification out to multiple delivery channels.
type MultiDeliverer struct {
	deliverers []Deliverer
	logger     *slog.Logger
}

// MultiDelivererOption configures a MultiDeliverer.
type MultiDelivererOption func(*MultiDeliverer)

// WithMultiDelivererLogger sets the logger for the MultiDeliverer.
func WithMultiDelivererLogger(log *slog.Logger) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		m.logger = log
	}
}

// NewMultiDeliverer creates a new multi-channel deliverer.
func NewMultiDeliverer(deliverers []Deliverer, opts ...MultiDelivererOption) *MultiDeliverer {
	m := &MultiDeliverer{
		deliverers: deliverers,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Deliver sends the notification through all configured channels.
// A failing channel is logged and skipped - best effort delivery.
func (m *MultiDeliverer) Deliver(ctx context.Context, notif Notification) error {
	for i, d := range m.deliverers {
		if err := d.Deliver(ctx, notif); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "Failed to deliver notification",
				slog.String("notification_id", notif.ID),
				logger.UserID(notif.UserID),
				slog.Int("deliverer_index", i),
				logger.Error(err),
			)
			continue
		}
	}
	return nil
}

// NoOpDeliverer is a deliverer that does nothing.
// Useful for testing or when delivery is not configured.
type NoOpDeliverer struct{}

// Deliver does nothing and returns nil.
func (n *NoOpDeliverer) Deliver(ctx context.Context, notif Notification) error {
	return nil
}

// MemoryDeliverer records delivered notifications in memory for inspection
// in tests.
type MemoryDeliverer struct {
	delivered []Notification
}

// NewMemoryDeliverer creates an empty in-memory deliverer.
func NewMemoryDeliverer() *MemoryDeliverer {
	return &MemoryDeliverer{}
}

// Deliver records the notification.
func (d *MemoryDeliverer) Deliver(ctx context.Context, notif Notification) error {
	d.delivered = append(d.delivered, notif)
	return nil
}

// Delivered returns the notifications recorded so far.
func (d *MemoryDeliverer) Delivered() []Notification {
	return append([]Notification(nil), d.delivered...)
}
