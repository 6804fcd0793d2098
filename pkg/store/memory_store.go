package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"challengehub/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
// Atomic clones the whole state, runs the callback against the clone,
// and swaps it in only on success, so a failed transaction leaves no
// partial writes. The store mutex is held for the duration of the
// callback, which gives the same serial execution a serializable
// database transaction would.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

func (s *MemoryStore) Atomic(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.st.clone()
	if err := fn(&memTx{st: clone}); err != nil {
		return err
	}
	s.st = clone
	return nil
}

func (s *MemoryStore) SaveUser(u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveUser(u)
}

func (s *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getUserByID(id)
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getUserByEmail(email)
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.hasUserEmail(email)
}

func (s *MemoryStore) HasUserNickname(nickname string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.hasUserNickname(nickname)
}

func (s *MemoryStore) UserCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.users), nil
}

func (s *MemoryStore) SaveChallenge(c *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveChallenge(c)
}

func (s *MemoryStore) GetChallenge(id uint) (domain.Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getChallenge(id)
}

func (s *MemoryStore) ListChallenges(f ChallengeFilter) ([]domain.Challenge, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listChallenges(f)
}

func (s *MemoryStore) SaveApplication(a *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveApplication(a)
}

func (s *MemoryStore) GetApplication(id uint) (domain.Application, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getApplication(id)
}

func (s *MemoryStore) ListApplications(f ApplicationFilter) ([]domain.ApplicationDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listApplications(f)
}

func (s *MemoryStore) SaveParticipation(p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveParticipation(p)
}

func (s *MemoryStore) HasParticipation(challengeID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.hasParticipation(challengeID, userID)
}

func (s *MemoryStore) DeleteParticipation(challengeID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteParticipation(challengeID, userID)
}

func (s *MemoryStore) ListParticipantIDs(challengeID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listParticipantIDs(challengeID)
}

func (s *MemoryStore) ListChallengesByParticipant(userID uint, progress *bool, page, limit int) ([]domain.Challenge, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listChallengesByParticipant(userID, progress, page, limit)
}

func (s *MemoryStore) SaveWork(w *domain.Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveWork(w)
}

func (s *MemoryStore) GetWork(id uint) (domain.Work, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getWork(id)
}

func (s *MemoryStore) ListWorksByChallenge(challengeID uint, page, limit int) ([]domain.Work, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listWorksByChallenge(challengeID, page, limit)
}

func (s *MemoryStore) DeleteWork(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteWork(id)
}

func (s *MemoryStore) LikeWork(workID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.likeWork(workID, userID)
}

func (s *MemoryStore) UnlikeWork(workID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.unlikeWork(workID, userID)
}

func (s *MemoryStore) HasLiked(workID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.hasLiked(workID, userID)
}

func (s *MemoryStore) SaveFeedback(f *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveFeedback(f)
}

func (s *MemoryStore) GetFeedback(id uint) (domain.Feedback, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getFeedback(id)
}

func (s *MemoryStore) DeleteFeedback(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteFeedback(id)
}

func (s *MemoryStore) DeleteFeedbacksByWork(workID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteFeedbacksByWork(workID)
}

func (s *MemoryStore) ListFeedbackPage(workID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listFeedbackPage(workID, cursorID, limit)
}

func (s *MemoryStore) ListReplyPage(feedbackID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listReplyPage(feedbackID, cursorID, limit)
}

func (s *MemoryStore) SaveNotification(n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveNotification(n)
}

func (s *MemoryStore) ListNotificationsByRecipient(userID uint) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listNotificationsByRecipient(userID)
}

func (s *MemoryStore) GetNotification(id uint) (domain.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getNotification(id)
}

func (s *MemoryStore) MarkNotificationRead(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.markNotificationRead(id)
}

func (s *MemoryStore) SaveOutboxEvent(e *domain.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.saveOutboxEvent(e)
}

func (s *MemoryStore) ListPendingOutbox(limit int) ([]domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listPendingOutbox(limit)
}

func (s *MemoryStore) MarkOutboxPublished(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.markOutboxPublished(id, at)
}

// memTx is the transaction view handed to Atomic callbacks. It works
// on an already-cloned state so no locking is needed.
type memTx struct {
	st *memState
}

func (t *memTx) Atomic(fn func(Store) error) error {
	clone := t.st.clone()
	if err := fn(&memTx{st: clone}); err != nil {
		return err
	}
	*t.st = *clone
	return nil
}

func (t *memTx) SaveUser(u *domain.User) error { return t.st.saveUser(u) }
func (t *memTx) GetUserByID(id uint) (domain.User, bool, error) {
	return t.st.getUserByID(id)
}
func (t *memTx) GetUserByEmail(email string) (domain.User, bool, error) {
	return t.st.getUserByEmail(email)
}
func (t *memTx) HasUserEmail(email string) (bool, error) { return t.st.hasUserEmail(email) }
func (t *memTx) HasUserNickname(nickname string) (bool, error) {
	return t.st.hasUserNickname(nickname)
}
func (t *memTx) UserCount() (int, error)                 { return len(t.st.users), nil }
func (t *memTx) SaveChallenge(c *domain.Challenge) error { return t.st.saveChallenge(c) }
func (t *memTx) GetChallenge(id uint) (domain.Challenge, bool, error) {
	return t.st.getChallenge(id)
}
func (t *memTx) ListChallenges(f ChallengeFilter) ([]domain.Challenge, int, error) {
	return t.st.listChallenges(f)
}
func (t *memTx) SaveApplication(a *domain.Application) error { return t.st.saveApplication(a) }
func (t *memTx) GetApplication(id uint) (domain.Application, bool, error) {
	return t.st.getApplication(id)
}
func (t *memTx) ListApplications(f ApplicationFilter) ([]domain.ApplicationDetail, int, error) {
	return t.st.listApplications(f)
}
func (t *memTx) SaveParticipation(p *domain.Participation) error {
	return t.st.saveParticipation(p)
}
func (t *memTx) HasParticipation(challengeID, userID uint) (bool, error) {
	return t.st.hasParticipation(challengeID, userID)
}
func (t *memTx) DeleteParticipation(challengeID, userID uint) error {
	return t.st.deleteParticipation(challengeID, userID)
}
func (t *memTx) ListParticipantIDs(challengeID uint) ([]uint, error) {
	return t.st.listParticipantIDs(challengeID)
}
func (t *memTx) ListChallengesByParticipant(userID uint, progress *bool, page, limit int) ([]domain.Challenge, int, error) {
	return t.st.listChallengesByParticipant(userID, progress, page, limit)
}
func (t *memTx) SaveWork(w *domain.Work) error { return t.st.saveWork(w) }
func (t *memTx) GetWork(id uint) (domain.Work, bool, error) {
	return t.st.getWork(id)
}
func (t *memTx) ListWorksByChallenge(challengeID uint, page, limit int) ([]domain.Work, int, error) {
	return t.st.listWorksByChallenge(challengeID, page, limit)
}
func (t *memTx) DeleteWork(id uint) error             { return t.st.deleteWork(id) }
func (t *memTx) LikeWork(workID, userID uint) error   { return t.st.likeWork(workID, userID) }
func (t *memTx) UnlikeWork(workID, userID uint) error { return t.st.unlikeWork(workID, userID) }
func (t *memTx) HasLiked(workID, userID uint) (bool, error) {
	return t.st.hasLiked(workID, userID)
}
func (t *memTx) SaveFeedback(f *domain.Feedback) error { return t.st.saveFeedback(f) }
func (t *memTx) GetFeedback(id uint) (domain.Feedback, bool, error) {
	return t.st.getFeedback(id)
}
func (t *memTx) DeleteFeedback(id uint) error { return t.st.deleteFeedback(id) }
func (t *memTx) DeleteFeedbacksByWork(workID uint) error {
	return t.st.deleteFeedbacksByWork(workID)
}
func (t *memTx) ListFeedbackPage(workID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	return t.st.listFeedbackPage(workID, cursorID, limit)
}
func (t *memTx) ListReplyPage(feedbackID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	return t.st.listReplyPage(feedbackID, cursorID, limit)
}
func (t *memTx) SaveNotification(n *domain.Notification) error {
	return t.st.saveNotification(n)
}
func (t *memTx) ListNotificationsByRecipient(userID uint) ([]domain.Notification, error) {
	return t.st.listNotificationsByRecipient(userID)
}
func (t *memTx) GetNotification(id uint) (domain.Notification, bool, error) {
	return t.st.getNotification(id)
}
func (t *memTx) MarkNotificationRead(id uint) error { return t.st.markNotificationRead(id) }
func (t *memTx) SaveOutboxEvent(e *domain.OutboxEvent) error {
	return t.st.saveOutboxEvent(e)
}
func (t *memTx) ListPendingOutbox(limit int) ([]domain.OutboxEvent, error) {
	return t.st.listPendingOutbox(limit)
}
func (t *memTx) MarkOutboxPublished(id string, at time.Time) error {
	return t.st.markOutboxPublished(id, at)
}

type likeKey struct {
	workID uint
	userID uint
}

type memState struct {
	users          map[uint]domain.User
	challenges     map[uint]domain.Challenge
	applications   map[uint]domain.Application
	participations map[uint]domain.Participation
	works          map[uint]domain.Work
	likes          map[likeKey]time.Time
	feedbacks      map[uint]domain.Feedback
	notifications  map[uint]domain.Notification
	outbox         map[string]domain.OutboxEvent

	nextUserID          uint
	nextChallengeID     uint
	nextApplicationID   uint
	nextParticipationID uint
	nextWorkID          uint
	nextFeedbackID      uint
	nextNotificationID  uint
	outboxSeq           uint
	outboxOrder         map[string]uint
}

func newMemState() *memState {
	return &memState{
		users:          make(map[uint]domain.User),
		challenges:     make(map[uint]domain.Challenge),
		applications:   make(map[uint]domain.Application),
		participations: make(map[uint]domain.Participation),
		works:          make(map[uint]domain.Work),
		likes:          make(map[likeKey]time.Time),
		feedbacks:      make(map[uint]domain.Feedback),
		notifications:  make(map[uint]domain.Notification),
		outbox:         make(map[string]domain.OutboxEvent),
		outboxOrder:    make(map[string]uint),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.challenges {
		c.challenges[k] = v
	}
	for k, v := range st.applications {
		c.applications[k] = v
	}
	for k, v := range st.participations {
		c.participations[k] = v
	}
	for k, v := range st.works {
		c.works[k] = v
	}
	for k, v := range st.likes {
		c.likes[k] = v
	}
	for k, v := range st.feedbacks {
		c.feedbacks[k] = v
	}
	for k, v := range st.notifications {
		c.notifications[k] = v
	}
	for k, v := range st.outbox {
		c.outbox[k] = v
	}
	for k, v := range st.outboxOrder {
		c.outboxOrder[k] = v
	}
	c.nextUserID = st.nextUserID
	c.nextChallengeID = st.nextChallengeID
	c.nextApplicationID = st.nextApplicationID
	c.nextParticipationID = st.nextParticipationID
	c.nextWorkID = st.nextWorkID
	c.nextFeedbackID = st.nextFeedbackID
	c.nextNotificationID = st.nextNotificationID
	c.outboxSeq = st.outboxSeq
	return c
}

func (st *memState) saveUser(u *domain.User) error {
	for id, existing := range st.users {
		if id == u.ID {
			continue
		}
		if existing.Email == u.Email || existing.Nickname == u.Nickname {
			return ErrDuplicate
		}
	}
	if u.ID == 0 {
		st.nextUserID++
		u.ID = st.nextUserID
	}
	st.users[u.ID] = *u
	return nil
}

func (st *memState) getUserByID(id uint) (domain.User, bool, error) {
	u, ok := st.users[id]
	return u, ok, nil
}

func (st *memState) getUserByEmail(email string) (domain.User, bool, error) {
	for _, u := range st.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (st *memState) hasUserEmail(email string) (bool, error) {
	_, ok, _ := st.getUserByEmail(email)
	return ok, nil
}

func (st *memState) hasUserNickname(nickname string) (bool, error) {
	for _, u := range st.users {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (st *memState) saveChallenge(c *domain.Challenge) error {
	if c.ID == 0 {
		st.nextChallengeID++
		c.ID = st.nextChallengeID
	}
	st.challenges[c.ID] = *c
	return nil
}

func (st *memState) getChallenge(id uint) (domain.Challenge, bool, error) {
	c, ok := st.challenges[id]
	return c, ok, nil
}

func (st *memState) listChallenges(f ChallengeFilter) ([]domain.Challenge, int, error) {
	var matched []domain.Challenge
	for _, c := range st.challenges {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if len(f.Fields) > 0 && !containsString(f.Fields, c.Field) {
			continue
		}
		if f.DocType != "" && c.DocType != f.DocType {
			continue
		}
		if f.Progress != nil && c.Progress != *f.Progress {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, c)
	}
	asc := strings.EqualFold(f.SortOrder, "asc")
	sort.Slice(matched, func(i, j int) bool {
		var ti, tj time.Time
		if f.SortBy == "deadline" {
			ti, tj = matched[i].Deadline, matched[j].Deadline
		} else {
			ti, tj = matched[i].CreatedAt, matched[j].CreatedAt
		}
		if !ti.Equal(tj) {
			if asc {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	return pageSliceChallenges(matched, f.Page, f.Limit), total, nil
}

func (st *memState) saveApplication(a *domain.Application) error {
	for id, existing := range st.applications {
		if id != a.ID && existing.ChallengeID == a.ChallengeID {
			return ErrDuplicate
		}
	}
	if a.ID == 0 {
		st.nextApplicationID++
		a.ID = st.nextApplicationID
	}
	st.applications[a.ID] = *a
	return nil
}

func (st *memState) getApplication(id uint) (domain.Application, bool, error) {
	a, ok := st.applications[id]
	return a, ok, nil
}

func (st *memState) listApplications(f ApplicationFilter) ([]domain.ApplicationDetail, int, error) {
	var matched []domain.ApplicationDetail
	for _, a := range st.applications {
		if !f.IncludeCancelled && a.IsCancelled {
			continue
		}
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		c := st.challenges[a.ChallengeID]
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, domain.ApplicationDetail{Application: a, Challenge: c})
	}
	asc := strings.EqualFold(f.SortOrder, "asc")
	sort.Slice(matched, func(i, j int) bool {
		var ti, tj time.Time
		if f.SortBy == "deadline" {
			ti, tj = matched[i].Challenge.Deadline, matched[j].Challenge.Deadline
		} else {
			ti, tj = matched[i].CreatedAt, matched[j].CreatedAt
		}
		if !ti.Equal(tj) {
			if asc {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		return matched[i].Application.ID < matched[j].Application.ID
	})
	total := len(matched)
	start := pageOffset(f.Page, f.Limit)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageLimit(f.Limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (st *memState) saveParticipation(p *domain.Participation) error {
	for id, existing := range st.participations {
		if id != p.ID && existing.ChallengeID == p.ChallengeID && existing.UserID == p.UserID {
			return ErrDuplicate
		}
	}
	if p.ID == 0 {
		st.nextParticipationID++
		p.ID = st.nextParticipationID
	}
	st.participations[p.ID] = *p
	return nil
}

func (st *memState) hasParticipation(challengeID, userID uint) (bool, error) {
	for _, p := range st.participations {
		if p.ChallengeID == challengeID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (st *memState) deleteParticipation(challengeID, userID uint) error {
	for id, p := range st.participations {
		if p.ChallengeID == challengeID && p.UserID == userID {
			delete(st.participations, id)
			return nil
		}
	}
	return ErrNotFound
}

func (st *memState) listParticipantIDs(challengeID uint) ([]uint, error) {
	var parts []domain.Participation
	for _, p := range st.participations {
		if p.ChallengeID == challengeID {
			parts = append(parts, p)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

func (st *memState) listChallengesByParticipant(userID uint, progress *bool, page, limit int) ([]domain.Challenge, int, error) {
	var matched []domain.Challenge
	for _, p := range st.participations {
		if p.UserID != userID {
			continue
		}
		c, ok := st.challenges[p.ChallengeID]
		if !ok {
			continue
		}
		if progress != nil && c.Progress != *progress {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	return pageSliceChallenges(matched, page, limit), total, nil
}

func (st *memState) saveWork(w *domain.Work) error {
	if w.ID == 0 {
		st.nextWorkID++
		w.ID = st.nextWorkID
	}
	st.works[w.ID] = *w
	return nil
}

func (st *memState) getWork(id uint) (domain.Work, bool, error) {
	w, ok := st.works[id]
	if !ok {
		return domain.Work{}, false, nil
	}
	w.LikeCount = st.likeCount(id)
	return w, true, nil
}

func (st *memState) likeCount(workID uint) int {
	n := 0
	for k := range st.likes {
		if k.workID == workID {
			n++
		}
	}
	return n
}

func (st *memState) listWorksByChallenge(challengeID uint, page, limit int) ([]domain.Work, int, error) {
	var matched []domain.Work
	for _, w := range st.works {
		if w.ChallengeID != challengeID {
			continue
		}
		w.LikeCount = st.likeCount(w.ID)
		matched = append(matched, w)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LikeCount != matched[j].LikeCount {
			return matched[i].LikeCount > matched[j].LikeCount
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	start := pageOffset(page, limit)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageLimit(limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (st *memState) deleteWork(id uint) error {
	if _, ok := st.works[id]; !ok {
		return ErrNotFound
	}
	delete(st.works, id)
	for k := range st.likes {
		if k.workID == id {
			delete(st.likes, k)
		}
	}
	return nil
}

func (st *memState) likeWork(workID, userID uint) error {
	k := likeKey{workID: workID, userID: userID}
	if _, ok := st.likes[k]; ok {
		return ErrDuplicate
	}
	st.likes[k] = time.Now().UTC()
	return nil
}

func (st *memState) unlikeWork(workID, userID uint) error {
	k := likeKey{workID: workID, userID: userID}
	if _, ok := st.likes[k]; !ok {
		return ErrNotFound
	}
	delete(st.likes, k)
	return nil
}

func (st *memState) hasLiked(workID, userID uint) (bool, error) {
	_, ok := st.likes[likeKey{workID: workID, userID: userID}]
	return ok, nil
}

func (st *memState) saveFeedback(f *domain.Feedback) error {
	if f.ID == 0 {
		st.nextFeedbackID++
		f.ID = st.nextFeedbackID
	}
	st.feedbacks[f.ID] = *f
	return nil
}

func (st *memState) getFeedback(id uint) (domain.Feedback, bool, error) {
	f, ok := st.feedbacks[id]
	return f, ok, nil
}

func (st *memState) deleteFeedback(id uint) error {
	if _, ok := st.feedbacks[id]; !ok {
		return ErrNotFound
	}
	delete(st.feedbacks, id)
	for fid, f := range st.feedbacks {
		if f.RepliesToID != nil && *f.RepliesToID == id {
			delete(st.feedbacks, fid)
		}
	}
	return nil
}

func (st *memState) deleteFeedbacksByWork(workID uint) error {
	for id, f := range st.feedbacks {
		if f.WorkID == workID {
			delete(st.feedbacks, id)
		}
	}
	return nil
}

func (st *memState) listFeedbackPage(workID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	match := func(f domain.Feedback) bool {
		return f.WorkID == workID && f.RepliesToID == nil
	}
	return st.feedbackPage(match, cursorID, limit)
}

func (st *memState) listReplyPage(feedbackID uint, cursorID uint, limit int) ([]domain.Feedback, error) {
	match := func(f domain.Feedback) bool {
		return f.RepliesToID != nil && *f.RepliesToID == feedbackID
	}
	return st.feedbackPage(match, cursorID, limit)
}

func (st *memState) feedbackPage(match func(domain.Feedback) bool, cursorID uint, limit int) ([]domain.Feedback, error) {
	var anchor domain.Feedback
	if cursorID != 0 {
		a, ok := st.feedbacks[cursorID]
		if !ok {
			return nil, ErrCursorNotFound
		}
		anchor = a
	}
	var matched []domain.Feedback
	for _, f := range st.feedbacks {
		if !match(f) {
			continue
		}
		if cursorID != 0 && !feedbackAfter(f, anchor) {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// feedbackAfter reports whether f sorts strictly after anchor in
// (createdAt DESC, id ASC) order.
func feedbackAfter(f, anchor domain.Feedback) bool {
	if !f.CreatedAt.Equal(anchor.CreatedAt) {
		return f.CreatedAt.Before(anchor.CreatedAt)
	}
	return f.ID > anchor.ID
}

func (st *memState) saveNotification(n *domain.Notification) error {
	if n.ID == 0 {
		st.nextNotificationID++
		n.ID = st.nextNotificationID
	}
	st.notifications[n.ID] = *n
	return nil
}

func (st *memState) listNotificationsByRecipient(userID uint) ([]domain.Notification, error) {
	var res []domain.Notification
	for _, n := range st.notifications {
		if n.RecipientID == userID {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func (st *memState) getNotification(id uint) (domain.Notification, bool, error) {
	n, ok := st.notifications[id]
	return n, ok, nil
}

func (st *memState) markNotificationRead(id uint) error {
	n, ok := st.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	st.notifications[id] = n
	return nil
}

func (st *memState) saveOutboxEvent(e *domain.OutboxEvent) error {
	if _, ok := st.outbox[e.ID]; !ok {
		st.outboxSeq++
		st.outboxOrder[e.ID] = st.outboxSeq
	}
	st.outbox[e.ID] = *e
	return nil
}

func (st *memState) listPendingOutbox(limit int) ([]domain.OutboxEvent, error) {
	var res []domain.OutboxEvent
	for _, e := range st.outbox {
		if e.PublishedAt == nil {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return st.outboxOrder[res[i].ID] < st.outboxOrder[res[j].ID]
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (st *memState) markOutboxPublished(id string, at time.Time) error {
	e, ok := st.outbox[id]
	if !ok {
		return ErrNotFound
	}
	e.PublishedAt = &at
	st.outbox[id] = e
	return nil
}

func pageSliceChallenges(list []domain.Challenge, page, limit int) []domain.Challenge {
	start := pageOffset(page, limit)
	if start > len(list) {
		start = len(list)
	}
	end := start + pageLimit(limit)
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
