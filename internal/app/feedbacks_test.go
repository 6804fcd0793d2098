package app

import (
	"errors"
	"fmt"
	"testing"

	"challengehub/pkg/domain"
)

func TestCreateFeedbackAndReply(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	commenter := seedUser(t, mem, "commenter", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	joinSeeded(t, a, commenter, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}

	top, err := a.CreateFeedback(commenter, work.ID, "great idea", nil)
	if err != nil {
		t.Fatalf("create feedback: %v", err)
	}
	if top.RepliesToID != nil {
		t.Fatalf("top-level feedback should have no parent")
	}

	reply, err := a.CreateFeedback(author, work.ID, "thanks", &top.ID)
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if reply.RepliesToID == nil || *reply.RepliesToID != top.ID {
		t.Fatalf("reply not linked to parent")
	}

	// One level deep only.
	if _, err := a.CreateFeedback(commenter, work.ID, "nested", &reply.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected nested reply rejection, got: %v", err)
	}
	missing := uint(999)
	if _, err := a.CreateFeedback(commenter, work.ID, "orphan", &missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing parent rejection, got: %v", err)
	}
	if _, err := a.CreateFeedback(commenter, work.ID, " ", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected empty content rejection, got: %v", err)
	}

	// Commenter's feedback notifies the work author; the author's own
	// reply does not.
	count := 0
	for _, ev := range pendingEvents(t, mem) {
		if ev.EntityType == domain.EntityFeedback {
			count++
			if len(ev.RecipientIDs) != 1 || ev.RecipientIDs[0] != author.ID {
				t.Fatalf("unexpected recipients: %v", ev.RecipientIDs)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected one feedback event, got %d", count)
	}
}

func TestCreateFeedbackClosedChallengeConflicts(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}

	c, _, _ = mem.GetChallenge(c.ID)
	c.Progress = true
	if err := mem.SaveChallenge(&c); err != nil {
		t.Fatalf("close challenge: %v", err)
	}
	if _, err := a.CreateFeedback(owner, work.ID, "late", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on closed challenge, got: %v", err)
	}
}

func TestListFeedbackPaginationRoundTrip(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}

	const total = 7
	for i := 0; i < total; i++ {
		if _, err := a.CreateFeedback(owner, work.ID, fmt.Sprintf("fb %d", i), nil); err != nil {
			t.Fatalf("create feedback %d: %v", i, err)
		}
	}

	// Walking pages with the returned cursor visits every row exactly once.
	for _, limit := range []int{1, 2, 3, total, total + 1} {
		seen := make(map[uint]bool, total)
		cursor := uint(0)
		for {
			page, err := a.ListFeedback(owner, work.ID, cursor, limit)
			if err != nil {
				t.Fatalf("limit %d cursor %d: %v", limit, cursor, err)
			}
			if len(page.List) > limit {
				t.Fatalf("limit %d returned %d rows", limit, len(page.List))
			}
			for _, item := range page.List {
				if seen[item.ID] {
					t.Fatalf("limit %d returned %d twice", limit, item.ID)
				}
				seen[item.ID] = true
			}
			if !page.Meta.HasNext {
				if page.Meta.NextCursor != nil {
					t.Fatalf("nextCursor set without hasNext")
				}
				break
			}
			if page.Meta.NextCursor == nil {
				t.Fatalf("hasNext without nextCursor")
			}
			cursor = *page.Meta.NextCursor
		}
		if len(seen) != total {
			t.Fatalf("limit %d visited %d rows, want %d", limit, len(seen), total)
		}
	}

	if _, err := a.ListFeedback(owner, work.ID, 9999, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale cursor rejection, got: %v", err)
	}
}

func TestListFeedbackEmbedsReplyPreview(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}

	top, err := a.CreateFeedback(owner, work.ID, "thread root", nil)
	if err != nil {
		t.Fatalf("create feedback: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := a.CreateFeedback(author, work.ID, fmt.Sprintf("reply %d", i), &top.ID); err != nil {
			t.Fatalf("create reply %d: %v", i, err)
		}
	}

	page, err := a.ListFeedback(owner, work.ID, 0, 10)
	if err != nil {
		t.Fatalf("list feedback: %v", err)
	}
	if len(page.List) != 1 {
		t.Fatalf("expected one top-level item, got %d", len(page.List))
	}
	replies := page.List[0].Replies
	if replies == nil {
		t.Fatalf("expected embedded replies")
	}
	if len(replies.List) != embeddedReplyLimit {
		t.Fatalf("embedded replies = %d, want %d", len(replies.List), embeddedReplyLimit)
	}
	if !replies.Meta.HasNext || replies.Meta.NextCursor == nil {
		t.Fatalf("expected more replies to be flagged")
	}

	rest, err := a.ListReplies(owner, top.ID, *replies.Meta.NextCursor, 10)
	if err != nil {
		t.Fatalf("list replies: %v", err)
	}
	if len(rest.List) != 2 || rest.Meta.HasNext {
		t.Fatalf("expected final two replies, got %d (hasNext=%v)", len(rest.List), rest.Meta.HasNext)
	}
}

func TestFeedbackEditabilityAndNotifications(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	commenter := seedUser(t, mem, "commenter", domain.RoleUser)
	admin := seedUser(t, mem, "admin", domain.RoleAdmin)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	joinSeeded(t, a, commenter, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}
	fb, err := a.CreateFeedback(commenter, work.ID, "v1", nil)
	if err != nil {
		t.Fatalf("create feedback: %v", err)
	}

	if _, err := a.UpdateFeedback(author, fb.ID, "hijacked"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-author, got: %v", err)
	}
	if _, err := a.UpdateFeedback(commenter, fb.ID, "v2"); err != nil {
		t.Fatalf("author update: %v", err)
	}

	// Admin edit of someone else's feedback notifies the feedback
	// author and the work author independently.
	if _, err := a.UpdateFeedback(admin, fb.ID, "moderated"); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	recipients := map[uint]int{}
	for _, ev := range pendingEvents(t, mem) {
		if ev.EntityType == domain.EntityFeedback && ev.Action == domain.ActionUpdated && ev.ActorID == admin.ID {
			for _, id := range ev.RecipientIDs {
				recipients[id]++
			}
		}
	}
	if recipients[commenter.ID] != 1 || recipients[author.ID] != 1 {
		t.Fatalf("unexpected admin-edit recipients: %v", recipients)
	}

	if err := a.DeleteFeedback(author, fb.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden delete, got: %v", err)
	}
	if err := a.DeleteFeedback(commenter, fb.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := a.DeleteFeedback(commenter, fb.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got: %v", err)
	}
}

func TestFeedbackIsEditableFlag(t *testing.T) {
	a, mem := newTestApp(t)
	owner := seedUser(t, mem, "owner", domain.RoleUser)
	author := seedUser(t, mem, "author", domain.RoleUser)
	commenter := seedUser(t, mem, "commenter", domain.RoleUser)
	c := seedAcceptedChallenge(t, mem, owner, 5)
	joinSeeded(t, a, author, c.ID)
	joinSeeded(t, a, commenter, c.ID)
	work, err := a.CreateWork(author, c.ID, "artifact")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}
	if _, err := a.CreateFeedback(commenter, work.ID, "note", nil); err != nil {
		t.Fatalf("create feedback: %v", err)
	}

	asCommenter, err := a.ListFeedback(commenter, work.ID, 0, 10)
	if err != nil {
		t.Fatalf("list as commenter: %v", err)
	}
	if !asCommenter.List[0].IsEditable {
		t.Fatalf("author should see own feedback editable")
	}
	asAuthor, err := a.ListFeedback(author, work.ID, 0, 10)
	if err != nil {
		t.Fatalf("list as author: %v", err)
	}
	if asAuthor.List[0].IsEditable {
		t.Fatalf("work author should not see others' feedback editable")
	}
}
