package app

import (
	"fmt"
	"strings"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

const defaultFeedbackLimit = 10
const embeddedReplyLimit = 3

// CursorMeta describes cursor pagination results.
type CursorMeta struct {
	HasNext    bool  `json:"hasNext"`
	NextCursor *uint `json:"nextCursor"`
}

// FeedbackItem is a feedback row decorated for the requesting user.
type FeedbackItem struct {
	domain.Feedback
	Writer     domain.Writer `json:"writer"`
	IsEditable bool          `json:"isEditable"`
	Replies    *FeedbackPage `json:"replies,omitempty"`
}

// FeedbackPage is one page of a feedback thread.
type FeedbackPage struct {
	List []FeedbackItem `json:"list"`
	Meta CursorMeta     `json:"meta"`
}

// ListFeedback returns one cursor page of a work's top-level feedback,
// each item carrying the first page of its replies.
func (a *App) ListFeedback(actor domain.User, workID uint, cursorID uint, limit int) (FeedbackPage, error) {
	work, err := a.visibleWork(actor, workID)
	if err != nil {
		return FeedbackPage{}, err
	}
	challenge, ok, err := a.store.GetChallenge(work.ChallengeID)
	if err != nil {
		return FeedbackPage{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if !ok {
		return FeedbackPage{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = defaultFeedbackLimit
	}

	rows, err := a.store.ListFeedbackPage(workID, cursorID, limit+1)
	if err != nil {
		if err == store.ErrCursorNotFound {
			return FeedbackPage{}, fmt.Errorf("cursor not found: %w", ErrNotFound)
		}
		return FeedbackPage{}, fmt.Errorf("list feedback: %w", err)
	}
	page, items := cutPage(rows, limit)
	list := make([]FeedbackItem, 0, len(items))
	for _, f := range items {
		item, err := a.feedbackItem(actor, f, challenge.Progress)
		if err != nil {
			return FeedbackPage{}, err
		}
		replies, err := a.replyPage(actor, f.ID, 0, embeddedReplyLimit, challenge.Progress)
		if err != nil {
			return FeedbackPage{}, err
		}
		item.Replies = &replies
		list = append(list, item)
	}
	page.List = list
	return page, nil
}

// ListReplies returns one cursor page of a feedback's replies.
func (a *App) ListReplies(actor domain.User, feedbackID uint, cursorID uint, limit int) (FeedbackPage, error) {
	feedback, ok, err := a.store.GetFeedback(feedbackID)
	if err != nil {
		return FeedbackPage{}, fmt.Errorf("fetch feedback: %w", err)
	}
	if !ok {
		return FeedbackPage{}, fmt.Errorf("feedback not found: %w", ErrNotFound)
	}
	work, err := a.visibleWork(actor, feedback.WorkID)
	if err != nil {
		return FeedbackPage{}, err
	}
	challenge, ok, err := a.store.GetChallenge(work.ChallengeID)
	if err != nil {
		return FeedbackPage{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if !ok {
		return FeedbackPage{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	if limit <= 0 {
		limit = defaultFeedbackLimit
	}
	return a.replyPage(actor, feedbackID, cursorID, limit, challenge.Progress)
}

// CreateFeedback adds feedback or a reply to a work. Closed
// challenges reject new feedback; the work's author is notified.
func (a *App) CreateFeedback(actor domain.User, workID uint, content string, repliesToID *uint) (FeedbackItem, error) {
	if strings.TrimSpace(content) == "" {
		return FeedbackItem{}, fmt.Errorf("content required: %w", ErrValidation)
	}
	var (
		created  domain.Feedback
		progress bool
	)
	err := a.store.Atomic(func(tx store.Store) error {
		work, ok, err := tx.GetWork(workID)
		if err != nil {
			return fmt.Errorf("fetch work: %w", err)
		}
		if !ok {
			return fmt.Errorf("work not found: %w", ErrNotFound)
		}
		challenge, ok, err := tx.GetChallenge(work.ChallengeID)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}
		if challenge.Progress {
			return fmt.Errorf("challenge is closed: %w", ErrConflict)
		}
		if repliesToID != nil {
			parent, ok, err := tx.GetFeedback(*repliesToID)
			if err != nil {
				return fmt.Errorf("fetch parent feedback: %w", err)
			}
			if !ok || parent.WorkID != workID {
				return fmt.Errorf("parent feedback not found: %w", ErrNotFound)
			}
			if parent.RepliesToID != nil {
				return fmt.Errorf("replies cannot be nested: %w", ErrValidation)
			}
		}
		ts := now()
		feedback := domain.Feedback{
			WorkID:      workID,
			UserID:      actor.ID,
			RepliesToID: repliesToID,
			Content:     content,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.SaveFeedback(&feedback); err != nil {
			return fmt.Errorf("save feedback: %w", err)
		}
		if work.UserID != actor.ID {
			related := []uint{challenge.ID, work.ID, feedback.ID}
			if err := enqueueEvent(tx, actor.ID, []uint{work.UserID}, domain.EntityFeedback, challenge.Title, domain.ActionCreated, related); err != nil {
				return err
			}
		}
		created = feedback
		progress = challenge.Progress
		return nil
	})
	if err != nil {
		return FeedbackItem{}, err
	}
	return a.feedbackItem(actor, created, progress)
}

// UpdateFeedback edits a feedback subject to the editability rule and
// notifies the feedback author and the work author independently.
func (a *App) UpdateFeedback(actor domain.User, id uint, content string) (FeedbackItem, error) {
	if strings.TrimSpace(content) == "" {
		return FeedbackItem{}, fmt.Errorf("content required: %w", ErrValidation)
	}
	var (
		updated  domain.Feedback
		progress bool
	)
	err := a.store.Atomic(func(tx store.Store) error {
		feedback, work, challenge, err := a.feedbackContext(tx, id)
		if err != nil {
			return err
		}
		if !canEdit(actor, feedback.UserID, challenge.Progress) {
			return fmt.Errorf("not allowed to edit this feedback: %w", ErrForbidden)
		}
		feedback.Content = content
		feedback.UpdatedAt = now()
		if err := tx.SaveFeedback(&feedback); err != nil {
			return fmt.Errorf("save feedback: %w", err)
		}
		if err := a.notifyFeedbackChange(tx, actor, feedback, work, challenge, domain.ActionUpdated); err != nil {
			return err
		}
		updated = feedback
		progress = challenge.Progress
		return nil
	})
	if err != nil {
		return FeedbackItem{}, err
	}
	return a.feedbackItem(actor, updated, progress)
}

// DeleteFeedback removes a feedback and its replies, same access rule
// and notifications as update.
func (a *App) DeleteFeedback(actor domain.User, id uint) error {
	return a.store.Atomic(func(tx store.Store) error {
		feedback, work, challenge, err := a.feedbackContext(tx, id)
		if err != nil {
			return err
		}
		if !canEdit(actor, feedback.UserID, challenge.Progress) {
			return fmt.Errorf("not allowed to delete this feedback: %w", ErrForbidden)
		}
		if err := tx.DeleteFeedback(feedback.ID); err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("feedback not found: %w", ErrNotFound)
			}
			return fmt.Errorf("delete feedback: %w", err)
		}
		return a.notifyFeedbackChange(tx, actor, feedback, work, challenge, domain.ActionDeleted)
	})
}

// notifyFeedbackChange emits the two independent notifications a
// feedback edit or delete can produce: one to the feedback author when
// someone else changed it, one to the work author when the feedback
// belongs to a different user. A third party acting on both triggers both.
func (a *App) notifyFeedbackChange(tx store.Store, actor domain.User, feedback domain.Feedback, work domain.Work, challenge domain.Challenge, action string) error {
	related := []uint{challenge.ID, work.ID, feedback.ID}
	if feedback.UserID != actor.ID {
		if err := enqueueEvent(tx, actor.ID, []uint{feedback.UserID}, domain.EntityFeedback, challenge.Title, action, related); err != nil {
			return err
		}
	}
	if work.UserID != feedback.UserID {
		if err := enqueueEvent(tx, actor.ID, []uint{work.UserID}, domain.EntityFeedback, challenge.Title, action, related); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) feedbackContext(tx store.Store, id uint) (domain.Feedback, domain.Work, domain.Challenge, error) {
	feedback, ok, err := tx.GetFeedback(id)
	if err != nil {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("fetch feedback: %w", err)
	}
	if !ok {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("feedback not found: %w", ErrNotFound)
	}
	work, ok, err := tx.GetWork(feedback.WorkID)
	if err != nil {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("fetch work: %w", err)
	}
	if !ok {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("work not found: %w", ErrNotFound)
	}
	challenge, ok, err := tx.GetChallenge(work.ChallengeID)
	if err != nil {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if !ok {
		return domain.Feedback{}, domain.Work{}, domain.Challenge{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	return feedback, work, challenge, nil
}

func (a *App) replyPage(actor domain.User, feedbackID uint, cursorID uint, limit int, progress bool) (FeedbackPage, error) {
	rows, err := a.store.ListReplyPage(feedbackID, cursorID, limit+1)
	if err != nil {
		if err == store.ErrCursorNotFound {
			return FeedbackPage{}, fmt.Errorf("cursor not found: %w", ErrNotFound)
		}
		return FeedbackPage{}, fmt.Errorf("list replies: %w", err)
	}
	page, items := cutPage(rows, limit)
	list := make([]FeedbackItem, 0, len(items))
	for _, f := range items {
		item, err := a.feedbackItem(actor, f, progress)
		if err != nil {
			return FeedbackPage{}, err
		}
		list = append(list, item)
	}
	page.List = list
	return page, nil
}

// cutPage applies the limit+1 probe: limit+1 fetched rows mean another
// page exists and the cursor points at the last returned row, so the
// next fetch resumes strictly after it.
func cutPage(rows []domain.Feedback, limit int) (FeedbackPage, []domain.Feedback) {
	page := FeedbackPage{Meta: CursorMeta{}}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1].ID
		page.Meta.HasNext = true
		page.Meta.NextCursor = &last
	}
	return page, rows
}

func (a *App) feedbackItem(actor domain.User, f domain.Feedback, progress bool) (FeedbackItem, error) {
	writer, err := a.writerOf(f.UserID)
	if err != nil {
		return FeedbackItem{}, err
	}
	return FeedbackItem{
		Feedback:   f,
		Writer:     writer,
		IsEditable: canEdit(actor, f.UserID, progress),
	}, nil
}
