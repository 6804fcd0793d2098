package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"challengehub/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ChallengeModel{},
		&ApplicationModel{},
		&ParticipationModel{},
		&WorkModel{},
		&WorkLikeModel{},
		&FeedbackModel{},
		&NotificationModel{},
		&OutboxEventModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Atomic runs fn against a transaction-scoped store at serializable
// isolation. Any error from fn rolls the whole transaction back.
func (s *GormStore) Atomic(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// users

func (s *GormStore) SaveUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	*u = userFromModel(model)
	return nil
}

func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) HasUserNickname(nickname string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("nickname = ?", nickname).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// challenges

func (s *GormStore) SaveChallenge(c *domain.Challenge) error {
	model := challengeToModel(*c)
	if err := s.db.Save(&model).Error; err != nil {
		return err
	}
	*c = challengeFromModel(model)
	return nil
}

func (s *GormStore) GetChallenge(id uint) (domain.Challenge, bool, error) {
	var model ChallengeModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Challenge{}, false, nil
		}
		return domain.Challenge{}, false, err
	}
	return challengeFromModel(model), true, nil
}

func (s *GormStore) ListChallenges(f ChallengeFilter) ([]domain.Challenge, int, error) {
	q := s.db.Model(&ChallengeModel{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if len(f.Fields) > 0 {
		q = q.Where("field IN ?", f.Fields)
	}
	if f.DocType != "" {
		q = q.Where("doc_type = ?", f.DocType)
	}
	if f.Progress != nil {
		q = q.Where("progress = ?", *f.Progress)
	}
	if f.Search != "" {
		q = q.Where("title ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []ChallengeModel
	if err := q.Order(challengeOrderClause(f.SortBy, f.SortOrder)).
		Offset(pageOffset(f.Page, f.Limit)).Limit(pageLimit(f.Limit)).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Challenge, 0, len(models))
	for _, m := range models {
		res = append(res, challengeFromModel(m))
	}
	return res, int(total), nil
}

// applications

func (s *GormStore) SaveApplication(a *domain.Application) error {
	model := applicationToModel(*a)
	if err := s.db.Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	*a = applicationFromModel(model)
	return nil
}

func (s *GormStore) GetApplication(id uint) (domain.Application, bool, error) {
	var model ApplicationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Application{}, false, nil
		}
		return domain.Application{}, false, err
	}
	return applicationFromModel(model), true, nil
}

func (s *GormStore) ListApplications(f ApplicationFilter) ([]domain.ApplicationDetail, int, error) {
	q := s.db.Model(&ApplicationModel{}).
		Joins("JOIN challenge_models ON challenge_models.id = application_models.challenge_id")
	if !f.IncludeCancelled {
		q = q.Where("application_models.is_cancelled = ?", false)
	}
	if f.UserID != nil {
		q = q.Where("application_models.user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("application_models.status = ?", string(f.Status))
	}
	if f.Search != "" {
		q = q.Where("challenge_models.title ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "application_models.created_at"
	if f.SortBy == "deadline" {
		order = "challenge_models.deadline"
	}
	if strings.EqualFold(f.SortOrder, "asc") {
		order += " ASC"
	} else {
		order += " DESC"
	}

	var models []ApplicationModel
	if err := q.Order(order).
		Offset(pageOffset(f.Page, f.Limit)).Limit(pageLimit(f.Limit)).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	challengeIDs := make([]uint, 0, len(models))
	for _, m := range models {
		challengeIDs = append(challengeIDs, m.ChallengeID)
	}
	challenges := make(map[uint]domain.Challenge, len(challengeIDs))
	if len(challengeIDs) > 0 {
		var cms []ChallengeModel
		if err := s.db.Find(&cms, "id IN ?", challengeIDs).Error; err != nil {
			return nil, 0, err
		}
		for _, cm := range cms {
			challenges[cm.ID] = challengeFromModel(cm)
		}
	}

	res := make([]domain.ApplicationDetail, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ApplicationDetail{
			Application: applicationFromModel(m),
			Challenge:   challenges[m.ChallengeID],
		})
	}
	return res, int(total), nil
}

// participations

func (s *GormStore) SaveParticipation(p *domain.Participation) error {
	model := participationToModel(*p)
	if err := s.db.Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	*p = participationFromModel(model)
	return nil
}

func (s *GormStore) HasParticipation(challengeID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&ParticipationModel{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) DeleteParticipation(challengeID, userID uint) error {
	res := s.db.Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Delete(&ParticipationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListParticipantIDs(challengeID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&ParticipationModel{}).
		Where("challenge_id = ?", challengeID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) ListChallengesByParticipant(userID uint, progress *bool, page, limit int) ([]domain.Challenge, int, error) {
	q := s.db.Model(&ChallengeModel{}).
		Joins("JOIN participation_models ON participation_models.challenge_id = challenge_models.id").
		Where("participation_models.user_id = ?", userID)
	if progress != nil {
		q = q.Where("challenge_models.progress = ?", *progress)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []ChallengeModel
	if err := q.Order("challenge_models.created_at DESC").
		Offset(pageOffset(page, limit)).Limit(pageLimit(limit)).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Challenge, 0, len(models))
	for _, m := range models {
		res = append(res, challengeFromModel(m))
	}
	return res, int(total), nil
}

// works

func (s *GormStore) SaveWork(w *domain.Work) error {
	model := workToModel(*w)
	if err := s.db.Save(&model).Error; err != nil {
		return err
	}
	likeCount := w.LikeCount
	*w = workFromModel(model)
	w.LikeCount = likeCount
	return nil
}

func (s *GormStore) GetWork(id uint) (domain.Work, bool, error) {
	var model WorkModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Work{}, false, nil
		}
		return domain.Work{}, false, err
	}
	work := workFromModel(model)
	var likes int64
	if err := s.db.Model(&WorkLikeModel{}).Where("work_id = ?", id).Count(&likes).Error; err != nil {
		return domain.Work{}, false, err
	}
	work.LikeCount = int(likes)
	return work, true, nil
}

func (s *GormStore) ListWorksByChallenge(challengeID uint, page, limit int) ([]domain.Work, int, error) {
	var total int64
	if err := s.db.Model(&WorkModel{}).Where("challenge_id = ?", challengeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	type workRow struct {
		WorkModel
		LikeCount int
	}
	var rows []workRow
	err := s.db.Model(&WorkModel{}).
		Select("work_models.*, (SELECT COUNT(*) FROM work_like_models WHERE work_like_models.work_id = work_models.id) AS like_count").
		Where("work_models.challenge_id = ?", challengeID).
		Order("like_count DESC, work_models.id ASC").
		Offset(pageOffset(page, limit)).Limit(pageLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	res := make([]domain.Work, 0, len(rows))
	for _, r := range rows {
		w := workFromModel(r.WorkModel)
		w.LikeCount = r.LikeCount
		res = append(res, w)
	}
	return res, int(total), nil
}

// DeleteWork removes the work row and its likes. Feedback and
// participation cleanup is orchestrated by the caller.
func (s *GormStore) DeleteWork(id uint) error {
	if err := s.db.Where("work_id = ?", id).Delete(&WorkLikeModel{}).Error; err != nil {
		return err
	}
	res := s.db.Delete(&WorkModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) LikeWork(workID, userID uint) error {
	like := WorkLikeModel{WorkID: workID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := s.db.Create(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStore) UnlikeWork(workID, userID uint) error {
	res := s.db.Where("work_id = ? AND user_id = ?", workID, userID).Delete(&WorkLikeModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) HasLiked(workID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&WorkLikeModel{}).
		Where("work_id = ? AND user_id = ?", workID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// feedbacks

func (s *GormStore) SaveFeedback(fb *domain.Feedback) error {
	model := feedbackToModel(*fb)
	if err := s.db.Save(&model).Error; err != nil {
		return err
	}
	*fb = feedbackFromModel(model)
	return nil
}

func (s *GormStore) GetFeedback(id uint) (domain.Feedback, bool, error) {
	var model FeedbackModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Feedback{}, false, nil
		}
		return domain.Feedback{}, false, err
	}
	return feedbackFromModel(model), true, nil
}

// DeleteFeedback removes a feedback row together with its replies.
func (s *GormStore) DeleteFeedback(id uint) error {
	if err := s.db.Where("replies_to_id = ?", id).Delete(&FeedbackModel{}).Error; err != nil {
		return err
	}
	res := s.db.Delete(&FeedbackModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteFeedbacksByWork(workID uint) error {
	return s.db.Where("work_id = ?", workID).Delete(&FeedbackModel{}).Error
}

func (s *GormStore) ListFeedbackPage(workID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	q := s.db.Where("work_id = ? AND replies_to_id IS NULL", workID)
	return s.feedbackPage(q, cursorID, limit)
}

func (s *GormStore) ListReplyPage(feedbackID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	q := s.db.Where("replies_to_id = ?", feedbackID)
	return s.feedbackPage(q, cursorID, limit)
}

// feedbackPage returns rows strictly after the cursor row in
// (createdAt DESC, id ASC) order.
func (s *GormStore) feedbackPage(q *gorm.DB, cursorID uint, limit int) ([]domain.Feedback, error) {
	if cursorID != 0 {
		var anchor FeedbackModel
		if err := s.db.First(&anchor, "id = ?", cursorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCursorNotFound
			}
			return nil, err
		}
		q = q.Where("(created_at < ?) OR (created_at = ? AND id > ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}
	var models []FeedbackModel
	if err := q.Order("created_at DESC, id ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Feedback, 0, len(models))
	for _, m := range models {
		res = append(res, feedbackFromModel(m))
	}
	return res, nil
}

// notifications

func (s *GormStore) SaveNotification(n *domain.Notification) error {
	model, err := notificationToModel(*n)
	if err != nil {
		return err
	}
	if err := s.db.Save(&model).Error; err != nil {
		return err
	}
	saved, err := notificationFromModel(model)
	if err != nil {
		return err
	}
	*n = saved
	return nil
}

func (s *GormStore) ListNotificationsByRecipient(userID uint) ([]domain.Notification, error) {
	var models []NotificationModel
	if err := s.db.Order("created_at DESC, id DESC").Find(&models, "recipient_id = ?", userID).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		n, err := notificationFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

func (s *GormStore) GetNotification(id uint) (domain.Notification, bool, error) {
	var model NotificationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Notification{}, false, nil
		}
		return domain.Notification{}, false, err
	}
	n, err := notificationFromModel(model)
	if err != nil {
		return domain.Notification{}, false, err
	}
	return n, true, nil
}

func (s *GormStore) MarkNotificationRead(id uint) error {
	res := s.db.Model(&NotificationModel{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// outbox

func (s *GormStore) SaveOutboxEvent(e *domain.OutboxEvent) error {
	model, err := outboxToModel(*e)
	if err != nil {
		return err
	}
	return s.db.Save(&model).Error
}

func (s *GormStore) ListPendingOutbox(limit int) ([]domain.OutboxEvent, error) {
	var models []OutboxEventModel
	err := s.db.Where("published_at IS NULL").
		Order("created_at ASC, id ASC").Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.OutboxEvent, 0, len(models))
	for _, m := range models {
		e, err := outboxFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

func (s *GormStore) MarkOutboxPublished(id string, at time.Time) error {
	res := s.db.Model(&OutboxEventModel{}).Where("id = ?", id).Update("published_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// pagination helpers

func pageOffset(page, limit int) int {
	if page <= 1 {
		return 0
	}
	return (page - 1) * pageLimit(limit)
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}

func challengeOrderClause(sortBy, sortOrder string) string {
	col := "created_at"
	if sortBy == "deadline" {
		col = "deadline"
	}
	if strings.EqualFold(sortOrder, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}

// model conversions

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Nickname:     u.Nickname,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Grade:        string(u.Grade),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Nickname:     m.Nickname,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Grade:        domain.UserGrade(m.Grade),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func challengeToModel(c domain.Challenge) ChallengeModel {
	return ChallengeModel{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Field:           c.Field,
		DocType:         c.DocType,
		Description:     c.Description,
		DocURL:          c.DocURL,
		Deadline:        c.Deadline,
		MaxParticipants: c.MaxParticipants,
		Participants:    c.Participants,
		Progress:        c.Progress,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func challengeFromModel(m ChallengeModel) domain.Challenge {
	return domain.Challenge{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		Title:           m.Title,
		Field:           m.Field,
		DocType:         m.DocType,
		Description:     m.Description,
		DocURL:          m.DocURL,
		Deadline:        m.Deadline,
		MaxParticipants: m.MaxParticipants,
		Participants:    m.Participants,
		Progress:        m.Progress,
		Status:          domain.Status(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func applicationToModel(a domain.Application) ApplicationModel {
	return ApplicationModel{
		ID:          a.ID,
		UserID:      a.UserID,
		ChallengeID: a.ChallengeID,
		Status:      string(a.Status),
		IsCancelled: a.IsCancelled,
		Message:     a.Message,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func applicationFromModel(m ApplicationModel) domain.Application {
	return domain.Application{
		ID:          m.ID,
		UserID:      m.UserID,
		ChallengeID: m.ChallengeID,
		Status:      domain.Status(m.Status),
		IsCancelled: m.IsCancelled,
		Message:     m.Message,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func participationToModel(p domain.Participation) ParticipationModel {
	return ParticipationModel{
		ID:          p.ID,
		ChallengeID: p.ChallengeID,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
	}
}

func participationFromModel(m ParticipationModel) domain.Participation {
	return domain.Participation{
		ID:          m.ID,
		ChallengeID: m.ChallengeID,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
	}
}

func workToModel(w domain.Work) WorkModel {
	return WorkModel{
		ID:          w.ID,
		ChallengeID: w.ChallengeID,
		UserID:      w.UserID,
		Content:     w.Content,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func workFromModel(m WorkModel) domain.Work {
	return domain.Work{
		ID:          m.ID,
		ChallengeID: m.ChallengeID,
		UserID:      m.UserID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func feedbackToModel(f domain.Feedback) FeedbackModel {
	return FeedbackModel{
		ID:          f.ID,
		WorkID:      f.WorkID,
		UserID:      f.UserID,
		RepliesToID: f.RepliesToID,
		Content:     f.Content,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func feedbackFromModel(m FeedbackModel) domain.Feedback {
	return domain.Feedback{
		ID:          m.ID,
		WorkID:      m.WorkID,
		UserID:      m.UserID,
		RepliesToID: m.RepliesToID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func notificationToModel(n domain.Notification) (NotificationModel, error) {
	related, err := uintsToJSON(n.RelatedIDs)
	if err != nil {
		return NotificationModel{}, err
	}
	return NotificationModel{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		ActorID:     n.ActorID,
		EntityType:  n.EntityType,
		EntityTitle: n.EntityTitle,
		Action:      n.Action,
		RelatedIDs:  related,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}, nil
}

func notificationFromModel(m NotificationModel) (domain.Notification, error) {
	related, err := uintsFromJSON(m.RelatedIDs)
	if err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		ActorID:     m.ActorID,
		EntityType:  m.EntityType,
		EntityTitle: m.EntityTitle,
		Action:      m.Action,
		RelatedIDs:  related,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func outboxToModel(e domain.OutboxEvent) (OutboxEventModel, error) {
	recipients, err := uintsToJSON(e.RecipientIDs)
	if err != nil {
		return OutboxEventModel{}, err
	}
	related, err := uintsToJSON(e.RelatedIDs)
	if err != nil {
		return OutboxEventModel{}, err
	}
	return OutboxEventModel{
		ID:           e.ID,
		RecipientIDs: recipients,
		ActorID:      e.ActorID,
		EntityType:   e.EntityType,
		EntityTitle:  e.EntityTitle,
		Action:       e.Action,
		RelatedIDs:   related,
		CreatedAt:    e.CreatedAt,
		PublishedAt:  e.PublishedAt,
	}, nil
}

func outboxFromModel(m OutboxEventModel) (domain.OutboxEvent, error) {
	recipients, err := uintsFromJSON(m.RecipientIDs)
	if err != nil {
		return domain.OutboxEvent{}, err
	}
	related, err := uintsFromJSON(m.RelatedIDs)
	if err != nil {
		return domain.OutboxEvent{}, err
	}
	return domain.OutboxEvent{
		ID:           m.ID,
		RecipientIDs: recipients,
		ActorID:      m.ActorID,
		EntityType:   m.EntityType,
		EntityTitle:  m.EntityTitle,
		Action:       m.Action,
		RelatedIDs:   related,
		CreatedAt:    m.CreatedAt,
		PublishedAt:  m.PublishedAt,
	}, nil
}

func uintsToJSON(ids []uint) (datatypes.JSON, error) {
	if ids == nil {
		ids = []uint{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func uintsFromJSON(raw datatypes.JSON) ([]uint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
