package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           uint      `gorm:"primaryKey"`
	Nickname     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	Grade        string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ChallengeModel struct {
	ID              uint   `gorm:"primaryKey"`
	OwnerID         uint   `gorm:"not null;index"`
	Title           string `gorm:"not null"`
	Field           string `gorm:"not null;index"`
	DocType         string `gorm:"not null"`
	Description     string `gorm:"type:text"`
	DocURL          string
	Deadline        time.Time `gorm:"not null"`
	MaxParticipants int       `gorm:"not null"`
	Participants    int       `gorm:"not null;default:0"`
	Progress        bool      `gorm:"not null;default:false"`
	Status          string    `gorm:"not null;index"`
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type ApplicationModel struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index"`
	ChallengeID uint      `gorm:"not null;uniqueIndex"`
	Status      string    `gorm:"not null;index"`
	IsCancelled bool      `gorm:"not null;default:false"`
	Message     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type ParticipationModel struct {
	ID          uint      `gorm:"primaryKey"`
	ChallengeID uint      `gorm:"not null;uniqueIndex:idx_participation_challenge_user"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_participation_challenge_user;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type WorkModel struct {
	ID          uint      `gorm:"primaryKey"`
	ChallengeID uint      `gorm:"not null;index"`
	UserID      uint      `gorm:"not null;index"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type WorkLikeModel struct {
	ID        uint      `gorm:"primaryKey"`
	WorkID    uint      `gorm:"not null;uniqueIndex:idx_work_like_work_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_work_like_work_user"`
	CreatedAt time.Time `gorm:"not null"`
}

type FeedbackModel struct {
	ID          uint      `gorm:"primaryKey"`
	WorkID      uint      `gorm:"not null;index"`
	UserID      uint      `gorm:"not null"`
	RepliesToID *uint     `gorm:"index"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type NotificationModel struct {
	ID          uint           `gorm:"primaryKey"`
	RecipientID uint           `gorm:"not null;index"`
	ActorID     uint           `gorm:"not null"`
	EntityType  string         `gorm:"not null"`
	EntityTitle string         `gorm:"not null"`
	Action      string         `gorm:"not null"`
	RelatedIDs  datatypes.JSON `gorm:"type:jsonb"`
	IsRead      bool           `gorm:"not null;default:false"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

type OutboxEventModel struct {
	ID           string         `gorm:"primaryKey"`
	RecipientIDs datatypes.JSON `gorm:"type:jsonb;not null"`
	ActorID      uint           `gorm:"not null"`
	EntityType   string         `gorm:"not null"`
	EntityTitle  string         `gorm:"not null"`
	Action       string         `gorm:"not null"`
	RelatedIDs   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	PublishedAt  *time.Time     `gorm:"index"`
}
