package app

import (
	"testing"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

const testPassword = "Str0ngPass!"

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789abcdef", time.Minute, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := New(Config{
		Store:         mem,
		Sessions:      sessions,
		RefreshTokens: store.NewMemoryRefreshTokenStore(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, mem
}

func seedUser(t *testing.T, mem *store.MemoryStore, nickname string, role domain.UserRole) domain.User {
	t.Helper()
	u := domain.User{
		Nickname:  nickname,
		Email:     nickname + "@example.com",
		Role:      role,
		Grade:     domain.GradeNormal,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := mem.SaveUser(&u); err != nil {
		t.Fatalf("seed user %s: %v", nickname, err)
	}
	return u
}

func seedAcceptedChallenge(t *testing.T, mem *store.MemoryStore, owner domain.User, maxParticipants int) domain.Challenge {
	t.Helper()
	c := domain.Challenge{
		OwnerID:         owner.ID,
		Title:           "seeded challenge",
		Field:           "backend",
		DocType:         "ARTICLE",
		DocURL:          "https://example.com/source-doc",
		Deadline:        time.Now().UTC().Add(30 * 24 * time.Hour),
		MaxParticipants: maxParticipants,
		Status:          domain.StatusAccepted,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := mem.SaveChallenge(&c); err != nil {
		t.Fatalf("seed challenge: %v", err)
	}
	return c
}

func joinSeeded(t *testing.T, a *App, user domain.User, challengeID uint) {
	t.Helper()
	if _, err := a.JoinChallenge(user, challengeID); err != nil {
		t.Fatalf("join challenge: %v", err)
	}
}

func pendingEvents(t *testing.T, mem *store.MemoryStore) []domain.OutboxEvent {
	t.Helper()
	events, err := mem.ListPendingOutbox(100)
	if err != nil {
		t.Fatalf("list pending outbox: %v", err)
	}
	return events
}
