// internal/models/subscription.go
package models

// SubscriptionScope narrows who a subscription matches against.
type SubscriptionScope string

const (
	ScopeAll  SubscriptionScope = "all"
	ScopeRole SubscriptionScope = "role"
	ScopeUser SubscriptionScope = "user"
)

// SubscriptionEventAll marks interest in every event type.
const SubscriptionEventAll = "ALL"

// Subscription declares a user's interest in events not directed at them
// personally. Event is either SubscriptionEventAll or a concrete EventType
// string. Value holds the role name for ScopeRole or the actor's user id for
// ScopeUser; empty for ScopeAll.
type Subscription struct {
	UserID string            `json:"userId"`
	Event  string            `json:"event"`
	Scope  SubscriptionScope `json:"scope"`
	Value  string            `json:"value,omitempty"`
}

// Matches reports whether this subscription selects its owner for an event
// performed by the given actor. A nil actor never matches role or user
// scopes.
func (s Subscription) Matches(actor *User) bool {
	switch s.Scope {
	case ScopeAll:
		return true
	case ScopeRole:
		return actor != nil && actor.Role == s.Value
	case ScopeUser:
		return actor != nil && actor.ID == s.Value
	}
	return false
}
