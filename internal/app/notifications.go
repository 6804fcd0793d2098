package app

import (
	"fmt"

	"challengehub/pkg/domain"
)

// MyNotifications lists the actor's notifications, newest first.
func (a *App) MyNotifications(actor domain.User) ([]domain.Notification, error) {
	list, err := a.store.ListNotificationsByRecipient(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkNotificationRead flips the read flag, recipient only.
func (a *App) MarkNotificationRead(actor domain.User, id uint) (domain.Notification, error) {
	notification, ok, err := a.store.GetNotification(id)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("fetch notification: %w", err)
	}
	if !ok {
		return domain.Notification{}, fmt.Errorf("notification not found: %w", ErrNotFound)
	}
	if notification.RecipientID != actor.ID {
		return domain.Notification{}, fmt.Errorf("not the notification recipient: %w", ErrForbidden)
	}
	if err := a.store.MarkNotificationRead(id); err != nil {
		return domain.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	notification.IsRead = true
	return notification, nil
}
