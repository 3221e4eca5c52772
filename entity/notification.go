package entity

import "time"

// Notification topics used to categorize change notifications.
// Subscribers filter by topic; the bot tags admin alerts the same way.
const (
	TopicGraph  = "graph"  // edge added, member enrolled
	TopicLedger = "ledger" // commission record created or settled
	TopicSystem = "system" // lifecycle, configuration
	TopicError  = "error"  // invariant violations, store failures
)

var allTopics = []string{
	TopicGraph,
	TopicLedger,
	TopicSystem,
	TopicError,
}

func AllTopics() []string {
	result := make([]string, len(allTopics))
	copy(result, allTopics)
	return result
}

func IsValidTopic(topic string) bool {
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// NotificationKind is a closed set of change kinds.
type NotificationKind string

const (
	NoteEdgeAdded         NotificationKind = "edge_added"
	NoteCommissionCreated NotificationKind = "commission_created"
	NoteCommissionUpdated NotificationKind = "commission_updated"
	NoteMemberUpdated     NotificationKind = "member_updated"
)

// ChangeNotification is a hint that state relevant to MemberId changed.
// Delivery is at-least-once and may drop under backpressure; consumers
// re-query the read APIs rather than trusting the payload as a record.
type ChangeNotification struct {
	Kind     NotificationKind `json:"kind"`
	Topic    string           `json:"topic"`
	MemberId string           `json:"member_id"`
	RefId    string           `json:"ref_id,omitempty"` // record or edge reference
	At       time.Time        `json:"at"`
}
