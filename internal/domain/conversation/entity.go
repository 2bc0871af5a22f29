package conversation

import "time"

// ConversationID identifier type
type ConversationID string

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status of a conversation. Only external collaborators move it out of active.
type Status string

const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusAbandoned Status = "abandoned"
)

// MaxConcerns bounds Context.MainConcerns; the most recent entries are kept.
const MaxConcerns = 5

// IntentSeekingAlternatives is the sentinel written when the user asks for alternatives.
const IntentSeekingAlternatives = "seeking-alternatives"

// Reasoning shown next to an assistant reply.
type Reasoning struct {
	Visible    bool     `json:"visible"`
	Steps      []string `json:"steps"`
	Confidence float64  `json:"confidence"`
}

type MessageMetadata struct {
	Model            string `json:"model,omitempty"`
	TokensUsed       int    `json:"tokensUsed,omitempty"`
	ProcessingTimeMS int64  `json:"processingTime,omitempty"`
}

type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Reasoning *Reasoning       `json:"reasoning,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// Context is the conversation-level state that drifts across turns.
type Context struct {
	ProductName    string   `json:"productName"`
	MainConcerns   []string `json:"mainConcerns"`
	UserIntent     string   `json:"userIntent"`
	KeyIngredients []string `json:"keyIngredients"`
}

// Conversation is a multi-turn dialogue about one analysis.
type Conversation struct {
	ID            ConversationID `json:"id"`
	UserID        string         `json:"userId"`
	AnalysisID    string         `json:"analysisId"`
	Messages      []Message      `json:"messages"`
	Context       Context        `json:"context"`
	Status        Status         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastMessageAt time.Time      `json:"lastMessageAt"`
}

// Summary is the list-view projection of a conversation.
type Summary struct {
	ID            ConversationID `json:"id"`
	AnalysisID    string         `json:"analysisId"`
	ProductName   string         `json:"productName"`
	Status        Status         `json:"status"`
	MessageCount  int            `json:"messageCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastMessageAt time.Time      `json:"lastMessageAt"`
}
