package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Conversation holds one user's full chat history in a single document. The
// message array is capped at write time, so the document cannot grow without
// bound.
type Conversation struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	UserID      string    `bson:"userId" json:"userId"`
	Language    string    `bson:"language" json:"language"`
	Messages    []Message `bson:"messages" json:"messages"`
	LastUpdated time.Time `bson:"lastUpdated" json:"lastUpdated"`
}
