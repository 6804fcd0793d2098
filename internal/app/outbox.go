package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

func now() time.Time {
	return time.Now().UTC()
}

// enqueueEvent records a notification event in the outbox within the
// caller's transaction. Recipients are de-duplicated; call sites
// decide whether the actor is among them.
func enqueueEvent(s store.Store, actorID uint, recipientIDs []uint, entityType, entityTitle, action string, relatedIDs []uint) error {
	seen := make(map[uint]struct{}, len(recipientIDs))
	recipients := make([]uint, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	if len(recipients) == 0 {
		return nil
	}
	event := domain.OutboxEvent{
		ID:           uuid.NewString(),
		RecipientIDs: recipients,
		ActorID:      actorID,
		EntityType:   entityType,
		EntityTitle:  entityTitle,
		Action:       action,
		RelatedIDs:   relatedIDs,
		CreatedAt:    now(),
	}
	if err := s.SaveOutboxEvent(&event); err != nil {
		return fmt.Errorf("enqueue notification event: %w", err)
	}
	return nil
}
