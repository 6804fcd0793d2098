package app

import (
	"errors"
	"testing"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

func seedNotification(t *testing.T, mem *store.MemoryStore, recipient, actor domain.User, title string) domain.Notification {
	t.Helper()
	n := domain.Notification{
		RecipientID: recipient.ID,
		ActorID:     actor.ID,
		EntityType:  domain.EntityChallenge,
		EntityTitle: title,
		Action:      domain.ActionUpdated,
		CreatedAt:   time.Now().UTC(),
	}
	if err := mem.SaveNotification(&n); err != nil {
		t.Fatalf("save notification: %v", err)
	}
	return n
}

func TestMyNotificationsScopedToRecipient(t *testing.T) {
	a, mem := newTestApp(t)
	alice := seedUser(t, mem, "alice", domain.RoleUser)
	bob := seedUser(t, mem, "bob", domain.RoleUser)
	admin := seedUser(t, mem, "admin", domain.RoleAdmin)
	seedNotification(t, mem, alice, admin, "for alice")
	seedNotification(t, mem, bob, admin, "for bob")

	list, err := a.MyNotifications(alice)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one notification, got %d", len(list))
	}
	if list[0].EntityTitle != "for alice" || list[0].RecipientID != alice.ID {
		t.Fatalf("wrong notification returned: %+v", list[0])
	}

	empty, err := a.MyNotifications(admin)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no notifications for admin, got %d", len(empty))
	}
}

func TestMarkNotificationRead(t *testing.T) {
	a, mem := newTestApp(t)
	alice := seedUser(t, mem, "alice", domain.RoleUser)
	bob := seedUser(t, mem, "bob", domain.RoleUser)
	n := seedNotification(t, mem, alice, bob, "hello")

	if _, err := a.MarkNotificationRead(bob, n.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-recipient, got: %v", err)
	}
	if _, err := a.MarkNotificationRead(alice, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}

	updated, err := a.MarkNotificationRead(alice, n.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !updated.IsRead {
		t.Fatalf("notification not marked read")
	}
	list, err := a.MyNotifications(alice)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 || !list[0].IsRead {
		t.Fatalf("read flag not persisted: %+v", list)
	}
}
