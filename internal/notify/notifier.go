// Package notify dispatches per-user notifications produced by the
// lifecycle engine (payment reminders, late alerts, turn announcements).
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

// Notifier delivers a notification to its recipient. Delivery channels
// (in-app, SMS, email) are implementation details behind this interface.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// Ensure StoreNotifier implements Notifier
var _ Notifier = (*StoreNotifier)(nil)

// StoreNotifier persists notifications for in-app delivery and logs them.
type StoreNotifier struct {
	store storage.Store
}

// NewStoreNotifier creates a store-backed notifier.
func NewStoreNotifier(store storage.Store) *StoreNotifier {
	return &StoreNotifier{store: store}
}

// Notify persists the notification.
func (sn *StoreNotifier) Notify(ctx context.Context, n *models.Notification) error {
	if err := sn.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	slog.Info("Notification delivered",
		"user_id", n.UserID,
		"kind", n.Kind,
	)
	return nil
}
