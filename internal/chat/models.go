package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chat struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title          string    `gorm:"type:varchar(180)" json:"title"`
	SystemPrompt   string    `gorm:"type:text" json:"system_prompt"`
	DefaultModel   string    `gorm:"type:varchar(120)" json:"default_model"`
	Provider       string    `gorm:"type:varchar(50)" json:"provider"`
	Archived       bool      `gorm:"default:false" json:"archived"`
	SupportsVision bool      `gorm:"default:false" json:"supports_vision"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (Chat) TableName() string { return "chats" }

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Message struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatID string `gorm:"type:varchar(36);index;not null" json:"chat_id"`
	// UserID is nil for assistant and system messages.
	UserID           *string   `gorm:"type:varchar(36);index" json:"user_id"`
	Role             string    `gorm:"type:varchar(20);not null" json:"role"`
	Content          string    `gorm:"type:text;not null;default:''" json:"content"`
	ModelUsed        string    `gorm:"type:varchar(120)" json:"model_used,omitempty"`
	Provider         string    `gorm:"type:varchar(50)" json:"provider,omitempty"`
	Temperature      *float64  `json:"temperature"`
	MaxTokens        *int      `json:"max_tokens"`
	PromptTokens     *int      `json:"prompt_tokens"`
	CompletionTokens *int      `json:"completion_tokens"`
	TotalTokens      *int      `json:"total_tokens"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`

	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

func (Message) TableName() string { return "chat_messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type Attachment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	MessageID string    `gorm:"type:varchar(36);index;not null" json:"message_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Path      string    `gorm:"type:varchar(600);not null" json:"-"`
	Mimetype  string    `gorm:"type:varchar(120);not null;default:'application/octet-stream'" json:"mimetype"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func (Attachment) TableName() string { return "chat_attachments" }

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
