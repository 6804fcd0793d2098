package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type UserGrade string

const (
	GradeNormal UserGrade = "NORMAL"
	GradeExpert UserGrade = "EXPERT"
)

// Status is the shared lifecycle state of a challenge and its application.
// The challenge row is authoritative; the application row mirrors the value
// it was last stamped with for audit.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusDeleted  Status = "DELETED"
)

// Notification entity types and actions carried by outbox events.
const (
	EntityChallenge   = "CHALLENGE"
	EntityApplication = "APPLICATION"
	EntityWork        = "WORK"
	EntityFeedback    = "FEEDBACK"
)

const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
	ActionDeleted = "DELETED"
	ActionJoined  = "JOINED"
)

type User struct {
	ID           uint      `json:"id"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Grade        UserGrade `json:"grade"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Challenge struct {
	ID              uint      `json:"id"`
	OwnerID         uint      `json:"ownerId"`
	Title           string    `json:"title"`
	Field           string    `json:"field"`
	DocType         string    `json:"docType"`
	Description     string    `json:"description"`
	DocURL          string    `json:"docUrl"`
	Deadline        time.Time `json:"deadline"`
	MaxParticipants int       `json:"maxParticipants"`
	Participants    int       `json:"participants"`
	Progress        bool      `json:"progress"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Application struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"userId"`
	ChallengeID uint      `json:"challengeId"`
	Status      Status    `json:"status"`
	IsCancelled bool      `json:"isCancelled"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ApplicationDetail pairs an application with the challenge it created.
type ApplicationDetail struct {
	Application
	Challenge Challenge `json:"challenge"`
}

type Participation struct {
	ID          uint      `json:"id"`
	ChallengeID uint      `json:"challengeId"`
	UserID      uint      `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Work struct {
	ID          uint      `json:"id"`
	ChallengeID uint      `json:"challengeId"`
	UserID      uint      `json:"userId"`
	Content     string    `json:"content"`
	LikeCount   int       `json:"likeCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Feedback struct {
	ID          uint      `json:"id"`
	WorkID      uint      `json:"workId"`
	UserID      uint      `json:"userId"`
	RepliesToID *uint     `json:"repliesToId,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Notification struct {
	ID          uint      `json:"id"`
	RecipientID uint      `json:"recipientId"`
	ActorID     uint      `json:"actorId"`
	EntityType  string    `json:"entityType"`
	EntityTitle string    `json:"entityTitle"`
	Action      string    `json:"action"`
	RelatedIDs  []uint    `json:"relatedIds"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OutboxEvent is a pending notification written in the same transaction as
// the state change that triggered it. One event fans out to one
// Notification row per recipient when dispatched.
type OutboxEvent struct {
	ID           string     `json:"id"`
	RecipientIDs []uint     `json:"recipientIds"`
	ActorID      uint       `json:"actorId"`
	EntityType   string     `json:"entityType"`
	EntityTitle  string     `json:"entityTitle"`
	Action       string     `json:"action"`
	RelatedIDs   []uint     `json:"relatedIds"`
	CreatedAt    time.Time  `json:"createdAt"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
}

// Writer is the public slice of a user attached to challenges, works, and
// feedback items.
type Writer struct {
	Nickname string    `json:"nickname"`
	Grade    UserGrade `json:"grade"`
}

func (u User) Writer() Writer {
	return Writer{Nickname: u.Nickname, Grade: u.Grade}
}

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusWaiting, StatusAccepted, StatusRejected, StatusDeleted:
		return true
	default:
		return false
	}
}
