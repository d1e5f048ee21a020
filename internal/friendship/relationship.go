// internal/friendship/relationship.go
package friendship

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Relationship. A relationship is created
// pending and either becomes accepted (terminal) or is deleted outright;
// declined requests are not archived.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Relationship is a single friend request or established friendship between
// two users. The requester/recipient split records who initiated; the
// resulting friendship is symmetric and at most one row exists per unordered
// pair, regardless of direction.
type Relationship struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requesterId"`
	RecipientID uuid.UUID  `json:"recipientId"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
}

// Other returns the endpoint that is not userID. Callers must ensure userID
// is one of the two endpoints.
func (r Relationship) Other(userID uuid.UUID) uuid.UUID {
	if r.RequesterID == userID {
		return r.RecipientID
	}
	return r.RequesterID
}

// Involves reports whether userID is either endpoint.
func (r Relationship) Involves(userID uuid.UUID) bool {
	return r.RequesterID == userID || r.RecipientID == userID
}

// Profile is the public slice of a user exposed in enriched responses.
type Profile struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture"`
}

// FriendProfile extends Profile with presence for friend-list entries.
type FriendProfile struct {
	Profile
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// RequestResult is returned by RequestFriendship and AcceptFriendship: the
// affected relationship with the counterparty's public profile attached.
type RequestResult struct {
	Relationship
	User Profile `json:"user"`
}

// IncomingRequest is one entry of ListIncomingRequests.
type IncomingRequest struct {
	Relationship
	Requester     Profile `json:"requester"`
	MutualFriends int     `json:"mutualFriends"`
}

// FriendEntry is one entry of ListFriends, resolved to "the other party".
type FriendEntry struct {
	RelationshipID uuid.UUID     `json:"relationshipId"`
	AcceptedAt     time.Time     `json:"acceptedAt"`
	Friend         FriendProfile `json:"friend"`
}

// Suggestion is a candidate user for a new friend request.
type Suggestion struct {
	Profile
	MutualFriends int `json:"mutualFriends"`
}
