package app

import (
	"fmt"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

// ChallengeListOptions filters and paginates the public challenge list.
type ChallengeListOptions struct {
	Fields    []string
	DocType   string
	Progress  *bool
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// ChallengeDetail pairs a challenge with its owner's public profile.
type ChallengeDetail struct {
	domain.Challenge
	Writer domain.Writer `json:"writer"`
}

// ChallengeUpdate carries a partial challenge update; nil fields are
// left untouched.
type ChallengeUpdate struct {
	Title           *string
	Field           *string
	DocType         *string
	Description     *string
	DocURL          *string
	Deadline        *time.Time
	MaxParticipants *int
	Progress        *bool
}

// ListChallenges returns the public challenge list: ACCEPTED only.
func (a *App) ListChallenges(opts ChallengeListOptions) ([]ChallengeDetail, PageMeta, error) {
	list, total, err := a.store.ListChallenges(store.ChallengeFilter{
		Status:    domain.StatusAccepted,
		Fields:    opts.Fields,
		DocType:   opts.DocType,
		Progress:  opts.Progress,
		Search:    opts.Search,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Page:      opts.Page,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list challenges: %w", err)
	}
	details, err := a.attachWriters(list)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return details, pageMeta(opts.Page, opts.Limit, total), nil
}

// GetChallenge returns one challenge with its owner profile.
// Non-ACCEPTED challenges are visible only to their owner and admins.
func (a *App) GetChallenge(actor domain.User, id uint) (ChallengeDetail, error) {
	challenge, err := a.visibleChallenge(actor, id)
	if err != nil {
		return ChallengeDetail{}, err
	}
	writer, err := a.writerOf(challenge.OwnerID)
	if err != nil {
		return ChallengeDetail{}, err
	}
	return ChallengeDetail{Challenge: challenge, Writer: writer}, nil
}

// GetChallengeURL returns the source document URL of a challenge.
func (a *App) GetChallengeURL(actor domain.User, id uint) (string, error) {
	challenge, err := a.visibleChallenge(actor, id)
	if err != nil {
		return "", err
	}
	return challenge.DocURL, nil
}

// UpdateChallenge applies a partial update, admin only. Closed
// challenges stay editable for admins. Notifies the owner and
// participants of the content change.
func (a *App) UpdateChallenge(actor domain.User, id uint, update ChallengeUpdate) (ChallengeDetail, error) {
	if actor.Role != domain.RoleAdmin {
		return ChallengeDetail{}, fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	var updated domain.Challenge
	err := a.store.Atomic(func(tx store.Store) error {
		challenge, ok, err := tx.GetChallenge(id)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}
		if update.Title != nil {
			challenge.Title = *update.Title
		}
		if update.Field != nil {
			challenge.Field = *update.Field
		}
		if update.DocType != nil {
			challenge.DocType = *update.DocType
		}
		if update.Description != nil {
			challenge.Description = *update.Description
		}
		if update.DocURL != nil {
			challenge.DocURL = *update.DocURL
		}
		if update.Deadline != nil {
			challenge.Deadline = *update.Deadline
		}
		if update.MaxParticipants != nil {
			if *update.MaxParticipants < 1 {
				return fmt.Errorf("maxParticipants must be at least 1: %w", ErrValidation)
			}
			if *update.MaxParticipants < challenge.Participants {
				return fmt.Errorf("maxParticipants below current participants: %w", ErrValidation)
			}
			challenge.MaxParticipants = *update.MaxParticipants
		}
		if update.Progress != nil {
			challenge.Progress = *update.Progress
		}
		if challenge.Title == "" {
			return fmt.Errorf("title required: %w", ErrValidation)
		}
		challenge.UpdatedAt = now()
		if err := tx.SaveChallenge(&challenge); err != nil {
			return fmt.Errorf("save challenge: %w", err)
		}

		participantIDs, err := tx.ListParticipantIDs(challenge.ID)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}
		recipients := append([]uint{challenge.OwnerID}, participantIDs...)
		if err := enqueueEvent(tx, actor.ID, recipients, domain.EntityChallenge, challenge.Title, domain.ActionUpdated, []uint{challenge.ID}); err != nil {
			return err
		}
		updated = challenge
		return nil
	})
	if err != nil {
		return ChallengeDetail{}, err
	}
	writer, err := a.writerOf(updated.OwnerID)
	if err != nil {
		return ChallengeDetail{}, err
	}
	return ChallengeDetail{Challenge: updated, Writer: writer}, nil
}

// JoinChallenge enrolls the actor. The participation row and the
// participants counter commit together; the capacity check blocks at
// exactly maxParticipants.
func (a *App) JoinChallenge(actor domain.User, id uint) (domain.Challenge, error) {
	var joined domain.Challenge
	err := a.store.Atomic(func(tx store.Store) error {
		challenge, ok, err := tx.GetChallenge(id)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok || challenge.Status != domain.StatusAccepted {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}
		if challenge.Progress {
			return ErrChallengeClosed
		}
		already, err := tx.HasParticipation(challenge.ID, actor.ID)
		if err != nil {
			return fmt.Errorf("check participation: %w", err)
		}
		if already {
			return ErrAlreadyJoined
		}
		if challenge.Participants >= challenge.MaxParticipants {
			return ErrCapacity
		}

		participation := domain.Participation{
			ChallengeID: challenge.ID,
			UserID:      actor.ID,
			CreatedAt:   now(),
		}
		if err := tx.SaveParticipation(&participation); err != nil {
			if err == store.ErrDuplicate {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("save participation: %w", err)
		}
		challenge.Participants++
		challenge.UpdatedAt = now()
		if err := tx.SaveChallenge(&challenge); err != nil {
			return fmt.Errorf("save challenge: %w", err)
		}
		if err := enqueueEvent(tx, actor.ID, []uint{actor.ID}, domain.EntityChallenge, challenge.Title, domain.ActionJoined, []uint{challenge.ID}); err != nil {
			return err
		}
		joined = challenge
		return nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return joined, nil
}

// MyOngoingChallenges lists the actor's open participations.
func (a *App) MyOngoingChallenges(actor domain.User, page, limit int) ([]ChallengeDetail, PageMeta, error) {
	return a.myChallenges(actor, false, page, limit)
}

// MyCompletedChallenges lists the actor's closed participations.
func (a *App) MyCompletedChallenges(actor domain.User, page, limit int) ([]ChallengeDetail, PageMeta, error) {
	return a.myChallenges(actor, true, page, limit)
}

func (a *App) myChallenges(actor domain.User, progress bool, page, limit int) ([]ChallengeDetail, PageMeta, error) {
	list, total, err := a.store.ListChallengesByParticipant(actor.ID, &progress, page, limit)
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list participations: %w", err)
	}
	details, err := a.attachWriters(list)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return details, pageMeta(page, limit, total), nil
}

func (a *App) visibleChallenge(actor domain.User, id uint) (domain.Challenge, error) {
	challenge, ok, err := a.store.GetChallenge(id)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if !ok {
		return domain.Challenge{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	if challenge.Status != domain.StatusAccepted && challenge.OwnerID != actor.ID && actor.Role != domain.RoleAdmin {
		return domain.Challenge{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	return challenge, nil
}

func (a *App) writerOf(userID uint) (domain.Writer, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.Writer{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.Writer{}, nil
	}
	return user.Writer(), nil
}

func (a *App) attachWriters(list []domain.Challenge) ([]ChallengeDetail, error) {
	details := make([]ChallengeDetail, 0, len(list))
	for _, c := range list {
		writer, err := a.writerOf(c.OwnerID)
		if err != nil {
			return nil, err
		}
		details = append(details, ChallengeDetail{Challenge: c, Writer: writer})
	}
	return details, nil
}
