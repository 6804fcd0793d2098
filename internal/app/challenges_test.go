package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"challengehub/pkg/domain"
)

func TestListChallengesOnlyAccepted(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)

	seedAcceptedChallenge(t, mem, owner, 5)
	waiting := seedAcceptedChallenge(t, mem, owner, 5)
	waiting.Status = domain.StatusWaiting
	if err := mem.SaveChallenge(&waiting); err != nil {
		t.Fatalf("save waiting: %v", err)
	}

	list, meta, err := a.ListChallenges(ChallengeListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if meta.TotalCount != 1 || len(list) != 1 {
		t.Fatalf("expected only the accepted challenge, got %d", meta.TotalCount)
	}
	if list[0].Writer.Nickname != "owner" {
		t.Fatalf("writer = %q", list[0].Writer.Nickname)
	}
}

func TestGetChallengeVisibility(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	stranger := seedUser(t, mem, "stranger", domain.RoleUser)
	admin := seedUser(t, mem, "admin", domain.RoleAdmin)

	c := seedAcceptedChallenge(t, mem, owner, 5)
	c.Status = domain.StatusWaiting
	if err := mem.SaveChallenge(&c); err != nil {
		t.Fatalf("save waiting: %v", err)
	}

	if _, err := a.GetChallenge(stranger, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected hidden from stranger, got: %v", err)
	}
	if _, err := a.GetChallenge(owner, c.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := a.GetChallenge(admin, c.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if _, err := a.GetChallenge(admin, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}

	url, err := a.GetChallengeURL(owner, c.ID)
	if err != nil {
		t.Fatalf("get url: %v", err)
	}
	if url != c.DocURL {
		t.Fatalf("url = %q, want %q", url, c.DocURL)
	}
}

func TestJoinChallengeCapacity(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	u1 := seedUser(t, mem, "u1", domain.RoleUser)
	u2 := seedUser(t, mem, "u2", domain.RoleUser)
	u3 := seedUser(t, mem, "u3", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 2)

	joined, err := a.JoinChallenge(u1, c.ID)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if joined.Participants != 1 {
		t.Fatalf("participants = %d, want 1", joined.Participants)
	}
	if _, err := a.JoinChallenge(u2, c.ID); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if _, err := a.JoinChallenge(u3, c.ID); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got: %v", err)
	}

	got, ok, _ := mem.GetChallenge(c.ID)
	if !ok || got.Participants != 2 {
		t.Fatalf("participants = %d, want 2", got.Participants)
	}

	// Each join notifies the joining user.
	events := pendingEvents(t, mem)
	if len(events) != 2 {
		t.Fatalf("expected two join events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Action != domain.ActionJoined {
			t.Fatalf("unexpected action %q", ev.Action)
		}
		if len(ev.RecipientIDs) != 1 || ev.RecipientIDs[0] != ev.ActorID {
			t.Fatalf("join event should notify the joining user: %+v", ev)
		}
	}
}

func TestJoinChallengeRejectsDuplicateAndClosed(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	user := seedUser(t, mem, "user", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)

	if _, err := a.JoinChallenge(user, c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := a.JoinChallenge(user, c.ID); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected already joined, got: %v", err)
	}

	closed := seedAcceptedChallenge(t, mem, owner, 5)
	closed.Progress = true
	if err := mem.SaveChallenge(&closed); err != nil {
		t.Fatalf("save closed: %v", err)
	}
	if _, err := a.JoinChallenge(user, closed.ID); !errors.Is(err, ErrChallengeClosed) {
		t.Fatalf("expected closed error, got: %v", err)
	}

	waiting := seedAcceptedChallenge(t, mem, owner, 5)
	waiting.Status = domain.StatusWaiting
	if err := mem.SaveChallenge(&waiting); err != nil {
		t.Fatalf("save waiting: %v", err)
	}
	if _, err := a.JoinChallenge(user, waiting.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unpublished challenge, got: %v", err)
	}
}

func TestUpdateChallenge(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	member := seedUser(t, mem, "member", domain.RoleUser)
	admin := seedUser(t, mem, "admin", domain.RoleAdmin)
	c := seedAcceptedChallenge(t, mem, owner, 3)
	joinSeeded(t, a, member, c.ID)

	if _, err := a.UpdateChallenge(owner, c.ID, ChallengeUpdate{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got: %v", err)
	}

	title := "renamed"
	progress := true
	updated, err := a.UpdateChallenge(admin, c.ID, ChallengeUpdate{Title: &title, Progress: &progress})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" || !updated.Progress {
		t.Fatalf("unexpected updated challenge: %+v", updated.Challenge)
	}

	tooSmall := 0
	if _, err := a.UpdateChallenge(admin, c.ID, ChallengeUpdate{MaxParticipants: &tooSmall}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation for zero capacity, got: %v", err)
	}
	belowCurrent := 0
	got, _, _ := mem.GetChallenge(c.ID)
	belowCurrent = got.Participants - 1
	if belowCurrent >= 1 {
		if _, err := a.UpdateChallenge(admin, c.ID, ChallengeUpdate{MaxParticipants: &belowCurrent}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation below current participants, got: %v", err)
		}
	}

	// Owner and participants are notified of the change.
	var updateEvent *domain.OutboxEvent
	for _, ev := range pendingEvents(t, mem) {
		if ev.Action == domain.ActionUpdated {
			copied := ev
			updateEvent = &copied
		}
	}
	if updateEvent == nil {
		t.Fatalf("expected update event")
	}
	recipients := map[uint]bool{}
	for _, id := range updateEvent.RecipientIDs {
		recipients[id] = true
	}
	if !recipients[owner.ID] || !recipients[member.ID] {
		t.Fatalf("update recipients = %v", updateEvent.RecipientIDs)
	}
}

func TestMyOngoingAndCompletedChallenges(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	user := seedUser(t, mem, "user", domain.RoleUser)

	open := seedAcceptedChallenge(t, mem, owner, 5)
	done := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, user, open.ID)
	joinSeeded(t, a, user, done.ID)
	done, _, _ = mem.GetChallenge(done.ID)
	done.Progress = true
	if err := mem.SaveChallenge(&done); err != nil {
		t.Fatalf("close challenge: %v", err)
	}

	ongoing, meta, err := a.MyOngoingChallenges(user, 1, 10)
	if err != nil {
		t.Fatalf("ongoing: %v", err)
	}
	if meta.TotalCount != 1 || ongoing[0].ID != open.ID {
		t.Fatalf("unexpected ongoing list: %+v", ongoing)
	}

	completed, meta, err := a.MyCompletedChallenges(user, 1, 10)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if meta.TotalCount != 1 || completed[0].ID != done.ID {
		t.Fatalf("unexpected completed list: %+v", completed)
	}
}

func TestJoinChallengeConcurrentAdmitsExactlyCapacity(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	const capacity = 3
	const attempts = 10
	c := seedAcceptedChallenge(t, mem, owner, capacity)

	users := make([]domain.User, attempts)
	for i := range users {
		users[i] = seedUser(t, mem, fmt.Sprintf("joiner%d", i), domain.RoleUser)
	}

	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u domain.User) {
			defer wg.Done()
			_, err := a.JoinChallenge(u, c.ID)
			errs <- err
		}(u)
	}
	wg.Wait()
	close(errs)

	admitted, blocked := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrCapacity):
			blocked++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if admitted != capacity || blocked != attempts-capacity {
		t.Fatalf("admitted=%d blocked=%d, want %d and %d", admitted, blocked, capacity, attempts-capacity)
	}

	got, _, err := mem.GetChallenge(c.ID)
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if got.Participants != capacity {
		t.Fatalf("participants = %d, want %d", got.Participants, capacity)
	}
	ids, err := mem.ListParticipantIDs(c.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(ids) != capacity {
		t.Fatalf("participation rows = %d, want %d", len(ids), capacity)
	}
}
