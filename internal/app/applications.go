package app

import (
	"fmt"
	"strings"
	"time"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

// PageMeta describes offset pagination results.
type PageMeta struct {
	CurrentPage int `json:"currentPage"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
}

func pageMeta(page, limit, total int) PageMeta {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	return PageMeta{CurrentPage: page, TotalCount: total, TotalPages: pages}
}

// SubmitApplicationInput carries the fields of a challenge-creation request.
type SubmitApplicationInput struct {
	Title           string
	Field           string
	DocType         string
	Description     string
	DocURL          string
	Deadline        time.Time
	MaxParticipants int
}

// ApplicationListOptions filters and paginates application lists.
type ApplicationListOptions struct {
	Status    domain.Status
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// SubmitApplication creates a Challenge and its Application in WAITING
// status as one transaction.
func (a *App) SubmitApplication(actor domain.User, in SubmitApplicationInput) (domain.ApplicationDetail, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Field = strings.TrimSpace(in.Field)
	in.DocType = strings.TrimSpace(in.DocType)
	switch {
	case in.Title == "":
		return domain.ApplicationDetail{}, fmt.Errorf("title required: %w", ErrValidation)
	case in.Field == "":
		return domain.ApplicationDetail{}, fmt.Errorf("field required: %w", ErrValidation)
	case in.DocType == "":
		return domain.ApplicationDetail{}, fmt.Errorf("docType required: %w", ErrValidation)
	case in.Deadline.IsZero():
		return domain.ApplicationDetail{}, fmt.Errorf("deadline required: %w", ErrValidation)
	case in.MaxParticipants < 1:
		return domain.ApplicationDetail{}, fmt.Errorf("maxParticipants must be at least 1: %w", ErrValidation)
	}

	var detail domain.ApplicationDetail
	err := a.store.Atomic(func(tx store.Store) error {
		ts := now()
		challenge := domain.Challenge{
			OwnerID:         actor.ID,
			Title:           in.Title,
			Field:           in.Field,
			DocType:         in.DocType,
			Description:     in.Description,
			DocURL:          in.DocURL,
			Deadline:        in.Deadline,
			MaxParticipants: in.MaxParticipants,
			Status:          domain.StatusWaiting,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := tx.SaveChallenge(&challenge); err != nil {
			return fmt.Errorf("save challenge: %w", err)
		}
		application := domain.Application{
			UserID:      actor.ID,
			ChallengeID: challenge.ID,
			Status:      domain.StatusWaiting,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := tx.SaveApplication(&application); err != nil {
			return fmt.Errorf("save application: %w", err)
		}
		detail = domain.ApplicationDetail{Application: application, Challenge: challenge}
		return nil
	})
	if err != nil {
		return domain.ApplicationDetail{}, err
	}
	return detail, nil
}

// MyApplications lists the actor's applications, cancelled ones excluded.
func (a *App) MyApplications(actor domain.User, opts ApplicationListOptions) ([]domain.ApplicationDetail, PageMeta, error) {
	if err := validateStatusFilter(opts.Status); err != nil {
		return nil, PageMeta{}, err
	}
	userID := actor.ID
	list, total, err := a.store.ListApplications(store.ApplicationFilter{
		UserID:    &userID,
		Status:    opts.Status,
		Search:    opts.Search,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Page:      opts.Page,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list applications: %w", err)
	}
	return list, pageMeta(opts.Page, opts.Limit, total), nil
}

// AllApplications lists every application, admin only, cancelled ones excluded.
func (a *App) AllApplications(actor domain.User, opts ApplicationListOptions) ([]domain.ApplicationDetail, PageMeta, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, PageMeta{}, fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	if err := validateStatusFilter(opts.Status); err != nil {
		return nil, PageMeta{}, err
	}
	list, total, err := a.store.ListApplications(store.ApplicationFilter{
		Status:    opts.Status,
		Search:    opts.Search,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Page:      opts.Page,
		Limit:     opts.Limit,
	})
	if err != nil {
		return nil, PageMeta{}, fmt.Errorf("list applications: %w", err)
	}
	return list, pageMeta(opts.Page, opts.Limit, total), nil
}

// GetApplication returns one application with its challenge. Owner or
// admin only; cancelled applications stay retrievable for audit.
func (a *App) GetApplication(actor domain.User, id uint) (domain.ApplicationDetail, error) {
	application, ok, err := a.store.GetApplication(id)
	if err != nil {
		return domain.ApplicationDetail{}, fmt.Errorf("fetch application: %w", err)
	}
	if !ok {
		return domain.ApplicationDetail{}, fmt.Errorf("application not found: %w", ErrNotFound)
	}
	if application.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return domain.ApplicationDetail{}, fmt.Errorf("not the application owner: %w", ErrForbidden)
	}
	challenge, ok, err := a.store.GetChallenge(application.ChallengeID)
	if err != nil {
		return domain.ApplicationDetail{}, fmt.Errorf("fetch challenge: %w", err)
	}
	if !ok {
		return domain.ApplicationDetail{}, fmt.Errorf("challenge not found: %w", ErrNotFound)
	}
	return domain.ApplicationDetail{Application: application, Challenge: challenge}, nil
}

// TransitionApplication moves an application to ACCEPTED, REJECTED or
// DELETED. Admin only. REJECTED and DELETED require a reason. DELETED
// fans out to the challenge and notifies the owner and participants.
func (a *App) TransitionApplication(actor domain.User, id uint, newStatus domain.Status, reason string) (domain.ApplicationDetail, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.ApplicationDetail{}, fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	if newStatus != domain.StatusAccepted && newStatus != domain.StatusRejected && newStatus != domain.StatusDeleted {
		return domain.ApplicationDetail{}, fmt.Errorf("invalid target status %q: %w", newStatus, ErrValidation)
	}
	reason = strings.TrimSpace(reason)
	if (newStatus == domain.StatusRejected || newStatus == domain.StatusDeleted) && reason == "" {
		return domain.ApplicationDetail{}, fmt.Errorf("reason required for %s: %w", newStatus, ErrValidation)
	}

	var detail domain.ApplicationDetail
	err := a.store.Atomic(func(tx store.Store) error {
		application, ok, err := tx.GetApplication(id)
		if err != nil {
			return fmt.Errorf("fetch application: %w", err)
		}
		if !ok {
			return fmt.Errorf("application not found: %w", ErrNotFound)
		}
		if application.IsCancelled {
			return fmt.Errorf("application is cancelled: %w", ErrConflict)
		}
		if !transitionAllowed(application.Status, newStatus) {
			return fmt.Errorf("cannot transition %s application to %s: %w", application.Status, newStatus, ErrConflict)
		}
		challenge, ok, err := tx.GetChallenge(application.ChallengeID)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}

		ts := now()
		application.Status = newStatus
		application.UpdatedAt = ts
		if newStatus == domain.StatusRejected || newStatus == domain.StatusDeleted {
			application.Message = reason
		} else {
			application.Message = ""
		}
		if err := tx.SaveApplication(&application); err != nil {
			return fmt.Errorf("save application: %w", err)
		}

		challenge.Status = newStatus
		challenge.UpdatedAt = ts
		if err := tx.SaveChallenge(&challenge); err != nil {
			return fmt.Errorf("save challenge: %w", err)
		}

		recipients := []uint{application.UserID}
		action := domain.ActionUpdated
		if newStatus == domain.StatusDeleted {
			action = domain.ActionDeleted
			participantIDs, err := tx.ListParticipantIDs(challenge.ID)
			if err != nil {
				return fmt.Errorf("list participants: %w", err)
			}
			recipients = append(recipients, participantIDs...)
		}
		related := []uint{challenge.ID, application.ID}
		if err := enqueueEvent(tx, actor.ID, recipients, domain.EntityChallenge, challenge.Title, action, related); err != nil {
			return err
		}

		detail = domain.ApplicationDetail{Application: application, Challenge: challenge}
		return nil
	})
	if err != nil {
		return domain.ApplicationDetail{}, err
	}
	return detail, nil
}

// CancelApplication flips isCancelled while the application is still
// WAITING. Owner only; the status itself does not change.
func (a *App) CancelApplication(actor domain.User, id uint) (domain.ApplicationDetail, error) {
	var detail domain.ApplicationDetail
	err := a.store.Atomic(func(tx store.Store) error {
		application, ok, err := tx.GetApplication(id)
		if err != nil {
			return fmt.Errorf("fetch application: %w", err)
		}
		if !ok {
			return fmt.Errorf("application not found: %w", ErrNotFound)
		}
		if application.UserID != actor.ID {
			return fmt.Errorf("not the application owner: %w", ErrForbidden)
		}
		if application.Status != domain.StatusWaiting || application.IsCancelled {
			return ErrCancelConflict
		}
		application.IsCancelled = true
		application.UpdatedAt = now()
		if err := tx.SaveApplication(&application); err != nil {
			return fmt.Errorf("save application: %w", err)
		}
		challenge, ok, err := tx.GetChallenge(application.ChallengeID)
		if err != nil {
			return fmt.Errorf("fetch challenge: %w", err)
		}
		if !ok {
			return fmt.Errorf("challenge not found: %w", ErrNotFound)
		}
		detail = domain.ApplicationDetail{Application: application, Challenge: challenge}
		return nil
	})
	if err != nil {
		return domain.ApplicationDetail{}, err
	}
	return detail, nil
}

// transitionAllowed encodes the state machine: WAITING may move to any
// terminal state, terminal states may only be re-applied (idempotent
// re-stamp) or escalated to DELETED.
func transitionAllowed(current, target domain.Status) bool {
	if current == domain.StatusWaiting {
		return true
	}
	if current == target {
		return true
	}
	return target == domain.StatusDeleted
}

func validateStatusFilter(s domain.Status) error {
	if s == "" {
		return nil
	}
	if !domain.ValidStatus(s) {
		return fmt.Errorf("invalid status filter %q: %w", s, ErrValidation)
	}
	return nil
}
