package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds. The payload carries kind-specific fields such as the
// relationship or post id.
const (
	NotificationFriendRequest  = "friend.request"
	NotificationFriendAccepted = "friend.accepted"
	NotificationComment        = "post.comment"
)

type Notification struct {
	ID          uuid.UUID      `json:"id"`
	RecipientID uuid.UUID      `json:"recipientId"`
	ActorID     uuid.UUID      `json:"actorId"`
	Kind        string         `json:"kind"`
	Payload     map[string]any `json:"payload,omitempty"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"createdAt"`
}
