package store

import (
	"errors"
	"time"

	"challengehub/pkg/domain"
)

var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate record")
	// ErrCursorNotFound indicates a pagination cursor pointed at a missing row.
	ErrCursorNotFound = errors.New("cursor not found")
)

// ChallengeFilter narrows and orders challenge listings.
type ChallengeFilter struct {
	Status   domain.Status
	Fields   []string
	DocType  string
	Progress *bool
	// Search matches challenge titles case-insensitively.
	Search string
	// SortBy is a domain field name: "createdAt" or "deadline".
	SortBy    string
	SortOrder string // "asc" or "desc"
	Page      int
	Limit     int
}

// ApplicationFilter narrows and orders application listings.
// Cancelled rows are excluded unless IncludeCancelled is set.
type ApplicationFilter struct {
	UserID           *uint
	Status           domain.Status
	IncludeCancelled bool
	Search           string // matches challenge title
	SortBy           string // "appliedAt" or "deadline"
	SortOrder        string
	Page             int
	Limit            int
}

// Store defines persistence operations for the challenge platform.
//
// Methods that must observe and mutate state as one unit run inside
// Atomic, which executes fn against a transaction-scoped Store at
// serializable isolation and rolls everything back when fn errors.
type Store interface {
	Atomic(fn func(Store) error) error

	// users
	SaveUser(u *domain.User) error
	GetUserByID(id uint) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	HasUserEmail(email string) (bool, error)
	HasUserNickname(nickname string) (bool, error)
	UserCount() (int, error)

	// challenges
	SaveChallenge(c *domain.Challenge) error
	GetChallenge(id uint) (domain.Challenge, bool, error)
	ListChallenges(f ChallengeFilter) ([]domain.Challenge, int, error)

	// applications
	SaveApplication(a *domain.Application) error
	GetApplication(id uint) (domain.Application, bool, error)
	ListApplications(f ApplicationFilter) ([]domain.ApplicationDetail, int, error)

	// participations
	SaveParticipation(p *domain.Participation) error
	HasParticipation(challengeID, userID uint) (bool, error)
	DeleteParticipation(challengeID, userID uint) error
	ListParticipantIDs(challengeID uint) ([]uint, error)
	ListChallengesByParticipant(userID uint, progress *bool, page, limit int) ([]domain.Challenge, int, error)

	// works
	SaveWork(w *domain.Work) error
	GetWork(id uint) (domain.Work, bool, error)
	ListWorksByChallenge(challengeID uint, page, limit int) ([]domain.Work, int, error)
	DeleteWork(id uint) error
	LikeWork(workID, userID uint) error
	UnlikeWork(workID, userID uint) error
	HasLiked(workID, userID uint) (bool, error)

	// feedbacks; page queries return rows strictly after the cursor row in
	// (createdAt DESC, id ASC) order, at most limit rows
	SaveFeedback(fb *domain.Feedback) error
	GetFeedback(id uint) (domain.Feedback, bool, error)
	DeleteFeedback(id uint) error
	DeleteFeedbacksByWork(workID uint) error
	ListFeedbackPage(workID uint, cursorID uint, limit int) ([]domain.Feedback, error)
	ListReplyPage(feedbackID uint, cursorID uint, limit int) ([]domain.Feedback, error)

	// notifications
	SaveNotification(n *domain.Notification) error
	ListNotificationsByRecipient(userID uint) ([]domain.Notification, error)
	GetNotification(id uint) (domain.Notification, bool, error)
	MarkNotificationRead(id uint) error

	// outbox
	SaveOutboxEvent(e *domain.OutboxEvent) error
	ListPendingOutbox(limit int) ([]domain.OutboxEvent, error)
	MarkOutboxPublished(id string, at time.Time) error
}

// SessionClaims is the identity carried by an access token.
type SessionClaims struct {
	UserID uint
	Role   domain.UserRole
}

// SessionStore issues and validates access tokens.
type SessionStore interface {
	NewSession(claims SessionClaims) (string, error)
	GetSession(token string) (SessionClaims, bool, error)
	DeleteSession(token string) error
}
