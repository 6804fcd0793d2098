package app

import (
	"fmt"
	"strings"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

// WorkDetail pairs a work with its author profile and the requesting
// user's like state.
type WorkDetail struct {
	domain.Work
	Writer  domain.Writer `json:"writer"`
	IsLiked bool          `json:"isLiked"`
}

// CreateWork posts a work artifact. Participants only; the challenge
// must still be open.
func (a *App) CreateWork(actor domain.User, challengeID uint, content string) (WorkDetail, error) {
	if strings.TrimSpace(content) == "" {
		return WorkDetail{}, fmt.Errorf("content required: %w", ErrValidation)
	}
	var created domain.Work
	err := a.store.Atomic(func(tx store.Store) error {
		challenge, ok, err := tx.GetChallenge(challengeID)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok || challenge.Status != domain.StatusAccepted {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}
		if challenge.Progress {
			return fmt.Errorf("challenge is closed: %w", ErrConflict)
		}
		participating, err := tx.HasParticipation(challengeID, actor.ID)
		if err != nil {
			return fmt.Errorf("check participation: %w", err)
		}
		if !participating {
			return fmt.Errorf("only participants can post works: %w", ErrForbidden)
		}
		ts := now()
		work := domain.Work{
			ChallengeID: challengeID,
			UserID:      actor.ID,
			Content:     content,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.SaveWork(&work); err != nil {
			return fmt.Errorf("save work: %w", err)
		}
		created = work
		return nil
	})
	if err != nil {
		return WorkDetail{}, err
	}
	return a.workDetail(actor, created)
}

// GetWork returns one work with author profile and like state.
func (a *App) GetWork(actor domain.User, id uint) (WorkDetail, error) {
	work, err := a.visibleWork(actor, id)
	if err != nil {
		return WorkDetail{}, err
	}
	return a.workDetail(actor, work)
}

// ListWorks returns a challenge's works ordered by like count.
func (a *App) ListWorks(actor domain.User, challengeID uint, page, limit int) ([]WorkDetail, PageMeta, error) {
	if _, err := a.visibleChallenge(actor, challengeID); err != nil {
		return nil, PageMeta{}, err
	}
	works, total, err := a.store.ListWorksByChallenge(challengeID, page, limit)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list works: %w", err)
	}
	details := make([]WorkDetail, 0, len(works))
	for _, w := range works {
		d, err := a.workDetail(actor, w)
		if err != nil {
			return nil, PageMeta{}, err
		}
		details = append(details, d)
	}
	return details, pageMeta(page, limit, total), nil
}

// UpdateWork edits a work's content subject to the editability rule:
// closed challenges are admin-only, open ones allow the author too.
func (a *App) UpdateWork(actor domain.User, id uint, content string) (WorkDetail, error) {
	if strings.TrimSpace(content) == "" {
		return WorkDetail{}, fmt.Errorf("content required: %w", ErrValidation)
	}
	var updated domain.Work
	err := a.store.Atomic(func(tx store.Store) error {
		work, ok, err := tx.GetWork(id)
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
		if !canEdit(actor, work.UserID, challenge.Progress) {
			return fmt.Errorf("not allowed to edit this work: %w", ErrForbidden)
		}
		work.Content = content
		work.UpdatedAt = now()
		if err := tx.SaveWork(&work); err != nil {
			return fmt.Errorf("save work: %w", err)
		}
		if work.UserID != actor.ID {
			if err := enqueueEvent(tx, actor.ID, []uint{work.UserID}, domain.EntityWork, challenge.Title, domain.ActionUpdated, []uint{challenge.ID, work.ID}); err != nil {
				return err
			}
		}
		updated = work
		return nil
	})
	if err != nil {
		return WorkDetail{}, err
	}
	return a.workDetail(actor, updated)
}

// DeleteWork removes a work with its feedbacks and likes, drops the
// author's participation and decrements the challenge counter.
func (a *App) DeleteWork(actor domain.User, id uint) error {
	return a.store.Atomic(func(tx store.Store) error {
		work, ok, err := tx.GetWork(id)
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
		if !canEdit(actor, work.UserID, challenge.Progress) {
			return fmt.Errorf("not allowed to delete this work: %w", ErrForbidden)
		}
		if err := tx.DeleteFeedbacksByWork(work.ID); err != nil {
			return fmt.Errorf("delete feedbacks: %w", err)
		}
		if err := tx.DeleteWork(work.ID); err != nil {
			return fmt.Errorf("delete work: %w", err)
		}
		if err := tx.DeleteParticipation(challenge.ID, work.UserID); err != nil && err != store.ErrNotFound {
			return fmt.Errorf("delete participation: %w", err)
		} else if err == nil && challenge.Participants > 0 {
			challenge.Participants--
			challenge.UpdatedAt = now()
			if err := tx.SaveChallenge(&challenge); err != nil {
				return fmt.Errorf("save challenge: %w", err)
			}
		}
		if work.UserID != actor.ID {
			if err := enqueueEvent(tx, actor.ID, []uint{work.UserID}, domain.EntityWork, challenge.Title, domain.ActionDeleted, []uint{challenge.ID, work.ID}); err != nil {
				return err
			}
		}
		return nil
	})
}

// LikeWork records a like. Authors cannot like their own work.
func (a *App) LikeWork(actor domain.User, workID uint) error {
	work, err := a.visibleWork(actor, workID)
	if err != nil {
		return err
	}
	if work.UserID == actor.ID {
		return fmt.Errorf("cannot like your own work: %w", ErrConflict)
	}
	if err := a.store.LikeWork(workID, actor.ID); err != nil {
		if err == store.ErrDuplicate {
			return fmt.Errorf("already liked: %w", ErrConflict)
		}
		return fmt.Errorf("like work: %w", err)
	}
	return nil
}

// UnlikeWork removes a like.
func (a *App) UnlikeWork(actor domain.User, workID uint) error {
	if _, err := a.visibleWork(actor, workID); err != nil {
		return err
	}
	if err := a.store.UnlikeWork(workID, actor.ID); err != nil {
		if err == store.ErrNotFound {
			return fmt.Errorf("like not found: %w", ErrNotFound)
		}
		return fmt.Errorf("unlike work: %w", err)
	}
	return nil
}

// canEdit implements the shared editability rule for works and
// feedback: closed challenge means admin-only.
func canEdit(actor domain.User, authorID uint, progress bool) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}
	if progress {
		return false
	}
	return actor.ID == authorID
}

func (a *App) visibleWork(actor domain.User, id uint) (domain.Work, error) {
	work, ok, err := a.store.GetWork(id)
	if err != nil {
		return domain.Work{}, fmt.Errorf("fetch work: %w", err)
	}
	if !ok {
		return domain.Work{}, fmt.Errorf("work not found: %w", ErrNotFound)
	}
	if _, err := a.visibleChallenge(actor, work.ChallengeID); err != nil {
		return domain.Work{}, err
	}
	return work, nil
}

func (a *App) workDetail(actor domain.User, work domain.Work) (WorkDetail, error) {
	writer, err := a.writerOf(work.UserID)
	if err != nil {
		return WorkDetail{}, err
	}
	liked, err := a.store.HasLiked(work.ID, actor.ID)
	if err != nil {
		return WorkDetail{}, fmt.Errorf("check like: %w", err)
	}
	return WorkDetail{Work: work, Writer: writer, IsLiked: liked}, nil
}
